// Package transport implements the UDP server side of the ILDA Wave
// Protocol: a receive loop that decodes datagrams into command deliveries,
// per-source liveness tracking, and datagram-capped transmission.
//
// Example:
//
//	srv := transport.NewServer(transport.Config{Port: transport.DefaultPort})
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	for d := range srv.Queue() {
//	    handle(d.Commands)
//	}
package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beamnet/laserstream/internal/clock"
	"github.com/beamnet/laserstream/iwp"
)

const (
	// DefaultPort is the standard IWP listen port.
	DefaultPort = 7200
	// DefaultDevicePort is the listen port used by some projector device
	// profiles instead of DefaultPort.
	DefaultDevicePort = 7255

	// DefaultQueueSize bounds the delivery queue. When full, the oldest
	// delivery is dropped so the receive path never blocks.
	DefaultQueueSize = 256

	// MaxDatagramSize caps outgoing datagrams below the usual path MTU so
	// sends avoid IP fragmentation. Splits land on command boundaries.
	MaxDatagramSize = 1400

	// DefaultSendTimeout bounds how long Send may block on socket
	// backpressure.
	DefaultSendTimeout = time.Second

	// readTimeout is the receive poll interval; Stop takes effect within
	// one such iteration.
	readTimeout = 200 * time.Millisecond

	recvBufferSize = 2048
)

// Config holds the server settings. The zero value listens on all
// interfaces at DefaultPort with default windows and a real clock.
type Config struct {
	// BindAddress is the local interface to bind, default "0.0.0.0".
	BindAddress string
	// Port is the UDP listen port, default DefaultPort. A negative port
	// binds an ephemeral port.
	Port int
	// QueueSize bounds the delivery queue, default DefaultQueueSize.
	QueueSize int
	// Decode controls IWP decoding of received datagrams.
	Decode iwp.Options

	// StaleAfter, DisconnectAfter and EvictAfter set the liveness windows;
	// zero values take the package defaults.
	StaleAfter      time.Duration
	DisconnectAfter time.Duration
	EvictAfter      time.Duration

	// SendTimeout bounds Send on socket backpressure, default
	// DefaultSendTimeout.
	SendTimeout time.Duration

	// Clock overrides the time source, for tests.
	Clock clock.Clock
}

func (c Config) withDefaults() Config {
	if c.BindAddress == "" {
		c.BindAddress = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.DisconnectAfter <= 0 {
		c.DisconnectAfter = DefaultDisconnectAfter
	}
	if c.EvictAfter <= 0 {
		c.EvictAfter = DefaultEvictAfter
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}

// Delivery is one received datagram after decoding, timestamped on arrival.
// On a decode fault Commands still holds the valid prefix and Err reports
// the fault, so consumers can choose to keep or discard partial data.
type Delivery struct {
	Addr       string
	ReceivedAt time.Time
	Commands   []iwp.Command
	Size       int
	Err        error
}

// Server owns the UDP socket. The receive loop runs on its own goroutine,
// never blocks on the consumer, and survives per-packet errors; only Stop
// ends it.
type Server struct {
	cfg Config
	clk clock.Clock

	mu      sync.RWMutex
	conn    net.PacketConn
	conns   map[string]*Connection
	running bool
	started time.Time

	queue  chan Delivery
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server with the given configuration. Call Start to
// bind the socket.
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:   cfg,
		clk:   clock.Default(cfg.Clock),
		conns: make(map[string]*Connection),
		queue: make(chan Delivery, cfg.QueueSize),
	}
}

// Start binds the listen socket and launches the receive loop. It returns a
// *BindError if the port is unavailable, leaving nothing running.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	port := s.cfg.Port
	if port < 0 {
		port = 0
	}
	addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(port))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Start",
			"address":  addr,
			"error":    err.Error(),
		}).Error("Failed to bind UDP socket")
		return &BindError{Addr: addr, Err: err}
	}

	s.conn = conn
	s.running = true
	s.started = s.clk.Now()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.recvLoop()

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"address":  conn.LocalAddr().String(),
	}).Info("IWP UDP server listening")

	return nil
}

// Stop cancels the receive loop, releases the socket and drains the queue.
// The in-flight receive call ends within one read timeout. The delivery
// channel is closed once the loop has exited.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	_ = s.conn.Close()
	s.mu.Unlock()

	s.wg.Wait()

	for {
		select {
		case <-s.queue:
		default:
			close(s.queue)
			logrus.WithFields(logrus.Fields{
				"function": "Stop",
			}).Info("IWP UDP server stopped")
			return
		}
	}
}

// LocalAddr returns the bound address, or nil before Start.
func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Queue returns the delivery channel. It is closed by Stop.
func (s *Server) Queue() <-chan Delivery {
	return s.queue
}

// Drain returns every delivery currently queued without blocking.
func (s *Server) Drain() []Delivery {
	var out []Delivery
	for {
		select {
		case d, ok := <-s.queue:
			if !ok {
				return out
			}
			out = append(out, d)
		default:
			return out
		}
	}
}

func (s *Server) recvLoop() {
	defer s.wg.Done()

	buf := make([]byte, recvBufferSize)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			logrus.WithFields(logrus.Fields{
				"function": "recvLoop",
				"error":    err.Error(),
			}).Warn("UDP read error")
			continue
		}

		s.handleDatagram(buf[:n], addr.String())
	}
}

// handleDatagram decodes one datagram, updates the source's connection
// record and enqueues the delivery. It never blocks.
func (s *Server) handleDatagram(data []byte, addr string) {
	now := s.clk.Now()

	metricPacketsReceived.Inc()
	metricBytesReceived.Add(float64(len(data)))

	s.touchConnection(addr, now, len(data))

	cmds, err := iwp.Decode(data, s.cfg.Decode)
	if err != nil {
		metricInvalidPackets.Inc()
		logrus.WithFields(logrus.Fields{
			"function": "handleDatagram",
			"source":   addr,
			"size":     len(data),
			"decoded":  len(cmds),
			"error":    err.Error(),
		}).Debug("Datagram decoded with error")
	}

	s.enqueue(Delivery{
		Addr:       addr,
		ReceivedAt: now,
		Commands:   cmds,
		Size:       len(data),
		Err:        err,
	})
}

func (s *Server) touchConnection(addr string, now time.Time, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[addr]
	if !ok {
		c = &Connection{Addr: addr, FirstSeen: now}
		s.conns[addr] = c
		logrus.WithFields(logrus.Fields{
			"function": "touchConnection",
			"source":   addr,
		}).Info("New IWP source detected")
	}
	c.LastSeen = now
	c.Packets++
	c.Bytes += uint64(size)
}

// enqueue pushes a delivery, dropping the oldest entry when the queue is
// full so the receive path never blocks under flood.
func (s *Server) enqueue(d Delivery) {
	select {
	case s.queue <- d:
		return
	default:
	}

	select {
	case <-s.queue:
		metricQueueOverflow.Inc()
	default:
	}
	select {
	case s.queue <- d:
	default:
		metricQueueOverflow.Inc()
	}
}

// Connections returns a point-in-time snapshot of the liveness table.
// Records quiet past the eviction window are removed during the sweep.
func (s *Server) Connections() map[string]ConnectionInfo {
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ConnectionInfo, len(s.conns))
	for addr, c := range s.conns {
		if now.Sub(c.LastSeen) > s.cfg.EvictAfter {
			delete(s.conns, addr)
			logrus.WithFields(logrus.Fields{
				"function": "Connections",
				"source":   addr,
			}).Debug("Evicting disconnected source")
			continue
		}
		out[addr] = ConnectionInfo{
			Connection: *c,
			State:      c.stateAt(now, s.cfg.StaleAfter, s.cfg.DisconnectAfter),
		}
	}
	return out
}

// Send encodes the command sequence and transmits it to dst, splitting
// across datagrams on command boundaries so none exceeds MaxDatagramSize.
// It returns the number of payload bytes written.
func (s *Server) Send(dst string, cmds []iwp.Command) (int, error) {
	s.mu.RLock()
	conn := s.conn
	running := s.running
	s.mu.RUnlock()
	if !running {
		return 0, ErrNotRunning
	}

	addr, err := net.ResolveUDPAddr("udp", dst)
	if err != nil {
		return 0, err
	}

	total := 0
	chunk := make([]iwp.Command, 0, len(cmds))
	chunkSize := 0

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		payload := iwp.Encode(chunk)
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.SendTimeout))
		n, err := conn.WriteTo(payload, addr)
		if err != nil {
			return err
		}
		metricPacketsSent.Inc()
		metricBytesSent.Add(float64(n))
		total += n
		chunk = chunk[:0]
		chunkSize = 0
		return nil
	}

	for _, c := range cmds {
		if chunkSize+c.WireSize() > MaxDatagramSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
		chunk = append(chunk, c)
		chunkSize += c.WireSize()
	}
	if err := flush(); err != nil {
		return total, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Send",
		"dest":     dst,
		"commands": len(cmds),
		"bytes":    total,
	}).Debug("Sent command sequence")

	return total, nil
}

// SendScanPeriod transmits a single scan-period directive, the setup packet
// projectors expect before point data.
func (s *Server) SendScanPeriod(dst string, micros uint32) error {
	sp, err := iwp.NewScanPeriod(micros)
	if err != nil {
		return err
	}
	_, err = s.Send(dst, []iwp.Command{sp})
	return err
}

// Stats is a point-in-time summary of server activity.
type Stats struct {
	Uptime      time.Duration
	Sources     int
	QueueLength int
}

// Stats reports uptime, tracked sources and current queue depth.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var uptime time.Duration
	if s.running {
		uptime = s.clk.Since(s.started)
	}
	return Stats{
		Uptime:      uptime,
		Sources:     len(s.conns),
		QueueLength: len(s.queue),
	}
}
