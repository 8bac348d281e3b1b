// Package playback paces decoded ILDA frames into the live command
// pipeline, replaying recorded shows as if they were network traffic.
//
// Example:
//
//	p := playback.NewPlayer(sink, playback.Config{})
//	p.Load(frames)
//	p.Play()
//	go p.Run(ctx)
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beamnet/laserstream/ilda"
	"github.com/beamnet/laserstream/internal/clock"
	"github.com/beamnet/laserstream/iwp"
)

// State is the scheduler state.
type State uint8

const (
	// StateStopped means playback is idle at frame zero.
	StateStopped State = iota
	// StatePlaying means the cursor advances on each tick.
	StatePlaying
	// StatePaused means the cursor holds its position.
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	}
	return "UNKNOWN"
}

// Playback limits, matching what projectors tolerate.
const (
	// DefaultFPS is the frame rate used when none is configured.
	DefaultFPS = 25.0
	// MinFPS and MaxFPS bound SetFPS.
	MinFPS = 0.1
	MaxFPS = 1000.0
	// MinSpeed and MaxSpeed bound SetSpeed.
	MinSpeed = 0.1
	MaxSpeed = 10.0
	// DefaultTick is the scheduler tick period used by Run.
	DefaultTick = 10 * time.Millisecond
)

// Sink consumes the commands a frame emits. The facade routes this into the
// same queue the UDP server feeds.
type Sink interface {
	EmitCommands(cmds []iwp.Command)
}

// Config holds player settings. The zero value plays at DefaultFPS, speed
// 1.0, loop off, real clock.
type Config struct {
	FPS   float64
	Speed float64
	Loop  bool
	Clock clock.Clock
}

// Player replays a loaded frame sequence at a configured rate. The cursor
// is owned by the player alone; control calls and ticks serialize on one
// mutex so a tick never observes a half-applied control change.
type Player struct {
	mu sync.Mutex

	frames []ilda.Frame
	state  State
	frame  int
	budget time.Duration
	last   time.Time

	fps   float64
	speed float64
	loop  bool

	sink Sink
	clk  clock.Clock
}

// NewPlayer creates a player emitting into sink.
func NewPlayer(sink Sink, cfg Config) *Player {
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	return &Player{
		fps:   fps,
		speed: speed,
		loop:  cfg.Loop,
		sink:  sink,
		clk:   clock.Default(cfg.Clock),
	}
}

// Load installs a new frame sequence and resets the cursor to a stopped
// state at frame zero.
func (p *Player) Load(frames []ilda.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames = frames
	p.frame = 0
	p.budget = 0
	p.state = StateStopped

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"frames":   len(frames),
	}).Info("Loaded frame sequence")
}

// Play starts or resumes playback. Starting from stopped emits the current
// frame immediately so consumers see output before the first frame period
// elapses.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying || len(p.frames) == 0 {
		return
	}
	from := p.state
	p.state = StatePlaying
	p.last = p.clk.Now()

	logrus.WithFields(logrus.Fields{
		"function": "Play",
		"from":     from.String(),
		"frame":    p.frame,
	}).Info("Playback started")

	if from == StateStopped {
		p.budget = 0
		p.emitLocked()
	}
}

// Pause holds the cursor; Play resumes from the same position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return
	}
	p.state = StatePaused
	logrus.WithFields(logrus.Fields{
		"function": "Pause",
		"frame":    p.frame,
	}).Info("Playback paused")
}

// Stop halts playback and resets the cursor to frame zero.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateStopped {
		return
	}
	p.state = StateStopped
	p.frame = 0
	p.budget = 0
	logrus.WithFields(logrus.Fields{
		"function": "Stop",
	}).Info("Playback stopped")
}

// Seek moves the cursor to the given frame, clamped to the loaded range,
// and resets the intra-frame time budget.
func (p *Player) Seek(frame int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) == 0 {
		return
	}
	if frame < 0 {
		frame = 0
	}
	if frame >= len(p.frames) {
		frame = len(p.frames) - 1
	}
	p.frame = frame
	p.budget = 0
}

// SetSpeed sets the playback speed multiplier, clamped to
// [MinSpeed, MaxSpeed]. Non-positive values are rejected.
func (p *Player) SetSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = speed
	return nil
}

// SetFPS sets the frame rate, clamped to [MinFPS, MaxFPS]. Non-positive
// values are rejected.
func (p *Player) SetFPS(fps float64) error {
	if fps <= 0 {
		return ErrInvalidFPS
	}
	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fps = fps
	return nil
}

// SetLoop turns loop mode on or off.
func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
}

// State returns the current scheduler state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Frame returns the cursor's current frame index.
func (p *Player) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// FrameCount returns the number of loaded frames.
func (p *Player) FrameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Advance performs one scheduler step at the given instant. While playing
// it accumulates wall-clock time scaled by the speed multiplier; each time
// the budget crosses the frame duration the cursor moves on and the new
// frame is emitted. Past the last frame it either wraps (loop) or stops.
func (p *Player) Advance(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying || len(p.frames) == 0 {
		p.last = now
		return
	}

	elapsed := now.Sub(p.last)
	p.last = now
	if elapsed < 0 {
		elapsed = 0
	}
	p.budget += time.Duration(float64(elapsed) * p.speed)

	duration := p.frameDuration()
	for p.budget >= duration {
		p.budget -= duration
		if !p.stepLocked() {
			return
		}
		p.emitLocked()
	}
}

// stepLocked moves the cursor to the next frame. It returns false when
// playback ran off the end with loop disabled.
func (p *Player) stepLocked() bool {
	p.frame++
	if p.frame < len(p.frames) {
		return true
	}
	if p.loop {
		p.frame = 0
		return true
	}
	p.frame = len(p.frames) - 1
	p.state = StateStopped
	p.budget = 0
	logrus.WithFields(logrus.Fields{
		"function": "stepLocked",
		"frames":   len(p.frames),
	}).Info("Reached end of sequence, stopping")
	return false
}

func (p *Player) frameDuration() time.Duration {
	return time.Duration(float64(time.Second) / p.fps)
}

// emitLocked converts the current frame to IWP commands and pushes them to
// the sink: one 16-bit point per frame point (blanked points carry zero
// color), framed by a Blank terminator.
func (p *Player) emitLocked() {
	if p.sink == nil {
		return
	}
	frame := p.frames[p.frame]

	cmds := make([]iwp.Command, 0, len(frame.Points)+1)
	for _, pt := range frame.Points {
		x, y := iwp.TransformXY(pt.X, pt.Y)
		var r, g, b uint16
		if !pt.Blanked {
			r8, g8, b8 := pt.RGB(frame.Palette)
			r, g, b = iwp.Scale8To16(r8), iwp.Scale8To16(g8), iwp.Scale8To16(b8)
		}
		cmds = append(cmds, iwp.PointRGB16{X: x, Y: y, R: r, G: g, B: b})
	}
	cmds = append(cmds, iwp.Blank{})

	p.sink.EmitCommands(cmds)
}

// Run drives the scheduler from a ticker until ctx is cancelled. Ticks and
// control calls serialize on the player mutex. Cancellation takes effect
// within one tick.
func (p *Player) Run(ctx context.Context) {
	p.RunWithTick(ctx, DefaultTick)
}

// RunWithTick is Run with an explicit tick period.
func (p *Player) RunWithTick(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Advance(p.clk.Now())
		}
	}
}
