package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamnet/laserstream/ilda"
	"github.com/beamnet/laserstream/internal/clock"
	"github.com/beamnet/laserstream/iwp"
)

type captureSink struct {
	emissions [][]iwp.Command
}

func (c *captureSink) EmitCommands(cmds []iwp.Command) {
	c.emissions = append(c.emissions, cmds)
}

func testFrames(n int) []ilda.Frame {
	frames := make([]ilda.Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, ilda.Frame{
			Format:  ilda.Format2DIndexed,
			Number:  uint16(i),
			Points:  []ilda.Point{{X: int16(i), Y: int16(i), ColorIndex: 0}},
			Palette: ilda.DefaultPalette(),
		})
	}
	return frames
}

const frameDur = 40 * time.Millisecond // 25 fps

func newTestPlayer(cfg Config) (*Player, *captureSink, *clock.Mock) {
	mock := clock.NewMock(time.Unix(5000, 0))
	cfg.Clock = mock
	sink := &captureSink{}
	return NewPlayer(sink, cfg), sink, mock
}

// TestPlayEmitsFirstFrame verifies starting from stopped emits frame zero
// immediately.
func TestPlayEmitsFirstFrame(t *testing.T) {
	p, sink, _ := newTestPlayer(Config{})
	p.Load(testFrames(3))

	assert.Equal(t, StateStopped, p.State())
	p.Play()

	assert.Equal(t, StatePlaying, p.State())
	require.Len(t, sink.emissions, 1)
}

// TestPlayWithoutFramesIsNoop verifies Play does nothing before a load.
func TestPlayWithoutFramesIsNoop(t *testing.T) {
	p, sink, _ := newTestPlayer(Config{})
	p.Play()
	assert.Equal(t, StateStopped, p.State())
	assert.Empty(t, sink.emissions)
}

// TestRunToEndWithoutLoop drives three frames at 25fps on a simulated clock
// and verifies playback stops after the last frame with nothing further
// emitted.
func TestRunToEndWithoutLoop(t *testing.T) {
	p, sink, mock := newTestPlayer(Config{})
	p.Load(testFrames(3))
	p.Play() // emits frame 0

	for i := 0; i < 2; i++ {
		mock.Advance(frameDur)
		p.Advance(mock.Now())
	}
	assert.Equal(t, StatePlaying, p.State())
	assert.Equal(t, 2, p.Frame())
	require.Len(t, sink.emissions, 3)

	mock.Advance(frameDur)
	p.Advance(mock.Now())
	assert.Equal(t, StateStopped, p.State())
	assert.Len(t, sink.emissions, 3, "no emission past the end")

	mock.Advance(10 * frameDur)
	p.Advance(mock.Now())
	assert.Len(t, sink.emissions, 3, "stopped player stays silent")
}

// TestRunLoops verifies loop mode wraps the cursor to frame zero and keeps
// emitting.
func TestRunLoops(t *testing.T) {
	p, sink, mock := newTestPlayer(Config{Loop: true})
	p.Load(testFrames(3))
	p.Play()

	for i := 0; i < 7; i++ {
		mock.Advance(frameDur)
		p.Advance(mock.Now())
	}

	assert.Equal(t, StatePlaying, p.State())
	assert.Equal(t, 1, p.Frame(), "7 steps from frame 0 over 3 frames wraps to 1")
	assert.Len(t, sink.emissions, 8)
}

// TestSpeedMultiplier verifies speed 2.0 halves the effective frame period.
func TestSpeedMultiplier(t *testing.T) {
	p, sink, mock := newTestPlayer(Config{Loop: true, Speed: 2.0})
	p.Load(testFrames(3))
	p.Play()

	mock.Advance(frameDur / 2)
	p.Advance(mock.Now())

	assert.Equal(t, 1, p.Frame())
	assert.Len(t, sink.emissions, 2)
}

// TestPauseHoldsCursor verifies pausing suspends emission and resuming does
// not leap over the paused interval.
func TestPauseHoldsCursor(t *testing.T) {
	p, sink, mock := newTestPlayer(Config{Loop: true})
	p.Load(testFrames(3))
	p.Play()
	require.Len(t, sink.emissions, 1)

	p.Pause()
	assert.Equal(t, StatePaused, p.State())

	mock.Advance(10 * frameDur)
	p.Advance(mock.Now())
	assert.Len(t, sink.emissions, 1, "paused player emits nothing")

	p.Play() // resume, no immediate re-emit
	assert.Len(t, sink.emissions, 1)

	mock.Advance(frameDur)
	p.Advance(mock.Now())
	assert.Len(t, sink.emissions, 2, "resume picks up from the pause point")
	assert.Equal(t, 1, p.Frame())
}

// TestSeekClamps verifies seek clamps to the loaded range and resets the
// time budget.
func TestSeekClamps(t *testing.T) {
	p, _, mock := newTestPlayer(Config{})
	p.Load(testFrames(3))

	p.Seek(99)
	assert.Equal(t, 2, p.Frame())

	p.Seek(-5)
	assert.Equal(t, 0, p.Frame())

	p.Play()
	mock.Advance(frameDur / 2)
	p.Advance(mock.Now())
	p.Seek(1)
	mock.Advance(frameDur / 2)
	p.Advance(mock.Now())
	assert.Equal(t, 1, p.Frame(), "seek resets the intra-frame budget")
}

// TestControlValidation tests speed and fps validation and clamping.
func TestControlValidation(t *testing.T) {
	p, _, _ := newTestPlayer(Config{})

	assert.ErrorIs(t, p.SetSpeed(0), ErrInvalidSpeed)
	assert.ErrorIs(t, p.SetSpeed(-1), ErrInvalidSpeed)
	assert.NoError(t, p.SetSpeed(0.01)) // clamps to MinSpeed
	assert.NoError(t, p.SetSpeed(50))   // clamps to MaxSpeed

	assert.ErrorIs(t, p.SetFPS(0), ErrInvalidFPS)
	assert.NoError(t, p.SetFPS(2000)) // clamps to MaxFPS
}

// TestEmissionShape verifies the emitted command layout: transformed 16-bit
// points, zeroed color on blanked points, Blank terminator.
func TestEmissionShape(t *testing.T) {
	p, sink, _ := newTestPlayer(Config{})
	p.Load([]ilda.Frame{{
		Points: []ilda.Point{
			{X: 0, Y: 0, ColorIndex: 0},          // default palette 0 = red
			{X: 100, Y: -100, Blanked: true, ColorIndex: 0},
		},
		Palette: ilda.DefaultPalette(),
	}})
	p.Play()

	require.Len(t, sink.emissions, 1)
	cmds := sink.emissions[0]
	require.Len(t, cmds, 3)

	first, ok := cmds[0].(iwp.PointRGB16)
	require.True(t, ok)
	assert.Equal(t, uint16(32768), first.X)
	assert.Equal(t, uint16(32768), first.Y)
	assert.Equal(t, uint16(0xFFFF), first.R)
	assert.Equal(t, uint16(0), first.G)

	blanked, ok := cmds[1].(iwp.PointRGB16)
	require.True(t, ok)
	assert.Equal(t, uint16(0), blanked.R)
	assert.Equal(t, uint16(0), blanked.G)
	assert.Equal(t, uint16(0), blanked.B)
	assert.True(t, iwp.Options{}.Blanked(blanked))

	assert.Equal(t, iwp.Blank{}, cmds[2])
}

// TestLoadResetsCursor verifies loading a new sequence stops playback.
func TestLoadResetsCursor(t *testing.T) {
	p, _, mock := newTestPlayer(Config{Loop: true})
	p.Load(testFrames(3))
	p.Play()
	mock.Advance(frameDur)
	p.Advance(mock.Now())
	require.Equal(t, 1, p.Frame())

	p.Load(testFrames(2))
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 0, p.Frame())
	assert.Equal(t, 2, p.FrameCount())
}
