// Package laserstream wires the IWP UDP transport and the ILDA playback
// scheduler into a single command pipeline.
//
// Two producers feed one consumer stream: datagrams received by the UDP
// server, and frames replayed from a loaded ILDA file. Consumers pull
// decoded command events from Subscribe; playback can additionally be
// forwarded back onto the network for a projector.
//
// Example:
//
//	sys := laserstream.New(laserstream.Config{})
//	if err := sys.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Stop()
//
//	if _, err := sys.LoadIldaFile("show.ild"); err == nil {
//	    sys.Play()
//	}
//	for ev := range sys.Subscribe() {
//	    render(ev.Commands)
//	}
package laserstream

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beamnet/laserstream/ilda"
	"github.com/beamnet/laserstream/internal/clock"
	"github.com/beamnet/laserstream/iwp"
	"github.com/beamnet/laserstream/playback"
	"github.com/beamnet/laserstream/transport"
)

// PlaybackSource is the Event source tag for commands emitted by the
// playback scheduler rather than a network peer.
const PlaybackSource = "playback"

// Event is one batch of decoded commands entering the pipeline, from either
// a network source or the playback scheduler.
type Event struct {
	// Source is the sender address, or PlaybackSource.
	Source string
	// Time is the arrival or emission timestamp.
	Time time.Time
	// Commands is the decoded command batch.
	Commands []iwp.Command
	// Err carries the decode fault for partial network batches.
	Err error
}

// Config holds system settings. The zero value listens on the default IWP
// port, plays at 25fps without looping, and decodes strictly.
type Config struct {
	// BindAddress and Port configure the UDP listener.
	BindAddress string
	Port        int
	// QueueSize bounds both the transport queue and the event stream.
	QueueSize int
	// Decode controls IWP decoding of received datagrams.
	Decode iwp.Options
	// FPS, Speed and Loop seed the playback scheduler.
	FPS   float64
	Speed float64
	Loop  bool
	// Clock overrides the time source, for tests.
	Clock clock.Clock
}

// System owns the transport server, the playback scheduler and the shared
// event stream.
type System struct {
	cfg Config
	clk clock.Clock

	server *transport.Server
	player *playback.Player

	events chan Event

	mu      sync.Mutex
	forward string
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles a system from the configuration. Call Start to bind the
// socket and begin scheduling.
func New(cfg Config) *System {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = transport.DefaultQueueSize
	}

	sys := &System{
		cfg:    cfg,
		clk:    clock.Default(cfg.Clock),
		events: make(chan Event, cfg.QueueSize),
	}

	sys.server = transport.NewServer(transport.Config{
		BindAddress: cfg.BindAddress,
		Port:        cfg.Port,
		QueueSize:   cfg.QueueSize,
		Decode:      cfg.Decode,
		Clock:       cfg.Clock,
	})
	sys.player = playback.NewPlayer(sys, playback.Config{
		FPS:   cfg.FPS,
		Speed: cfg.Speed,
		Loop:  cfg.Loop,
		Clock: cfg.Clock,
	})

	return sys
}

// Start binds the UDP listener and launches the receive and scheduler
// loops. A bind failure leaves nothing running.
func (s *System) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return transport.ErrAlreadyRunning
	}
	if err := s.server.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(2)
	go s.pumpDeliveries()
	go func() {
		defer s.wg.Done()
		s.player.Run(ctx)
	}()

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"address":  s.server.LocalAddr().String(),
	}).Info("Laser stream system started")

	return nil
}

// Stop shuts the scheduler and the transport down in order and closes the
// event stream. It is idempotent.
func (s *System) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.player.Stop()
	s.server.Stop()
	s.wg.Wait()
	close(s.events)

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
	}).Info("Laser stream system stopped")
}

// pumpDeliveries moves transport deliveries onto the shared event stream
// until the server queue closes.
func (s *System) pumpDeliveries() {
	defer s.wg.Done()
	for d := range s.server.Queue() {
		s.publish(Event{
			Source:   d.Addr,
			Time:     d.ReceivedAt,
			Commands: d.Commands,
			Err:      d.Err,
		})
	}
}

// publish pushes an event, dropping the oldest one under overflow so
// producers never block on a slow consumer.
func (s *System) publish(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- ev:
	default:
	}
}

// EmitCommands implements playback.Sink: scheduler output enters the same
// pipeline as network traffic and, when forwarding is enabled, goes back
// out over UDP.
func (s *System) EmitCommands(cmds []iwp.Command) {
	s.publish(Event{
		Source:   PlaybackSource,
		Time:     s.clk.Now(),
		Commands: cmds,
	})

	s.mu.Lock()
	dst := s.forward
	s.mu.Unlock()
	if dst == "" {
		return
	}
	if _, err := s.server.Send(dst, cmds); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "EmitCommands",
			"dest":     dst,
			"error":    err.Error(),
		}).Warn("Forwarding failed")
	}
}

// LoadIldaFile decodes an ILDA file and installs its frames in the
// scheduler, returning the frame count. A partial decode still loads the
// frames recovered before the fault; the error reports the fault either
// way.
func (s *System) LoadIldaFile(path string) (int, error) {
	frames, err := ilda.DecodeFile(path)
	if len(frames) == 0 {
		if err == nil {
			err = ilda.ErrShortRecord
		}
		return 0, err
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "LoadIldaFile",
			"path":     path,
			"frames":   len(frames),
			"error":    err.Error(),
		}).Warn("Loaded partial ILDA file")
	}

	s.player.Load(frames)
	return len(frames), err
}

// LocalAddr returns the bound UDP address, or nil before Start.
func (s *System) LocalAddr() net.Addr {
	return s.server.LocalAddr()
}

// Play starts or resumes playback.
func (s *System) Play() { s.player.Play() }

// Pause pauses playback, keeping the cursor position.
func (s *System) Pause() { s.player.Pause() }

// StopPlayback halts playback and rewinds to frame zero.
func (s *System) StopPlayback() { s.player.Stop() }

// SeekFrame moves the playback cursor, clamped to the loaded range.
func (s *System) SeekFrame(frame int) { s.player.Seek(frame) }

// SetSpeed sets the playback speed multiplier.
func (s *System) SetSpeed(speed float64) error { return s.player.SetSpeed(speed) }

// SetFPS sets the playback frame rate.
func (s *System) SetFPS(fps float64) error { return s.player.SetFPS(fps) }

// SetLoop toggles playback loop mode.
func (s *System) SetLoop(loop bool) { s.player.SetLoop(loop) }

// PlaybackState returns the scheduler state.
func (s *System) PlaybackState() playback.State { return s.player.State() }

// PlaybackFrame returns the cursor's current frame index.
func (s *System) PlaybackFrame() int { return s.player.Frame() }

// FrameCount returns the number of loaded frames.
func (s *System) FrameCount() int { return s.player.FrameCount() }

// EnableForwarding starts re-transmitting playback output to dst and sends
// the scan-period setup packet devices expect first. scanRate is in points
// per second.
func (s *System) EnableForwarding(dst string, scanRate int) error {
	if scanRate <= 0 {
		scanRate = 1000
	}
	period := uint32(1_000_000 / scanRate)
	if err := s.server.SendScanPeriod(dst, period); err != nil {
		return err
	}

	s.mu.Lock()
	s.forward = dst
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "EnableForwarding",
		"dest":      dst,
		"scan_rate": scanRate,
	}).Info("Forwarding enabled")
	return nil
}

// DisableForwarding stops network re-transmission of playback output.
func (s *System) DisableForwarding() {
	s.mu.Lock()
	s.forward = ""
	s.mu.Unlock()
}

// Subscribe returns the shared event stream. It is closed by Stop.
func (s *System) Subscribe() <-chan Event {
	return s.events
}

// ConnectionSnapshot returns the liveness state of every tracked source.
func (s *System) ConnectionSnapshot() map[string]transport.State {
	snap := s.server.Connections()
	out := make(map[string]transport.State, len(snap))
	for addr, info := range snap {
		out[addr] = info.State
	}
	return out
}

// Connections returns the full per-source connection records.
func (s *System) Connections() map[string]transport.ConnectionInfo {
	return s.server.Connections()
}

// Stats returns transport activity counters.
func (s *System) Stats() transport.Stats {
	return s.server.Stats()
}
