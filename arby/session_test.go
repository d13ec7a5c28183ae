package arby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retro486/ArbyEmulator/arby/avr"
	"github.com/retro486/ArbyEmulator/arby/display"
	"github.com/retro486/ArbyEmulator/arby/firmware"
	"github.com/retro486/ArbyEmulator/arby/input"
	"github.com/retro486/ArbyEmulator/arby/video"
)

type fakeLine struct {
	level bool
}

func (l *fakeLine) Set(level bool) { l.level = level }

type fakeTimer struct {
	when uint64
	fn   avr.CycleTimerFn
}

// fakeEngine is a scripted engine: each Run burst advances the clock by
// quantum cycles and fires due timers.
type fakeEngine struct {
	cycle      uint64
	quantum    uint64
	state      avr.State
	limit      uint64
	timers     []fakeTimer
	registered []uint64
	bus        display.Bus
	lines      map[avr.Port]*fakeLine
	eeprom     []byte
	runCalls   int
	terminated int
	loaded     *firmware.Image
}

func newFakeEngine(quantum uint64) *fakeEngine {
	return &fakeEngine{
		quantum: quantum,
		state:   avr.Running,
		lines:   make(map[avr.Port]*fakeLine),
		eeprom:  make([]byte, 1024),
	}
}

func (e *fakeEngine) LoadProgram(img *firmware.Image) error {
	e.loaded = img
	return nil
}

func (e *fakeEngine) Frequency() uint64              { return 16000000 }
func (e *fakeEngine) Cycle() uint64                  { return e.cycle }
func (e *fakeEngine) SetRunCycleLimit(cycles uint64) { e.limit = cycles }
func (e *fakeEngine) PersistentMemory() []byte       { return e.eeprom }
func (e *fakeEngine) Terminate()                     { e.terminated++ }

func (e *fakeEngine) Run() avr.State {
	if e.state != avr.Running {
		return e.state
	}
	e.runCalls++
	e.cycle += e.quantum
	for {
		idx := -1
		for i, t := range e.timers {
			if t.when <= e.cycle && (idx < 0 || t.when < e.timers[idx].when) {
				idx = i
			}
		}
		if idx < 0 {
			break
		}
		t := e.timers[idx]
		e.timers = append(e.timers[:idx], e.timers[idx+1:]...)
		if next := t.fn(t.when); next > t.when {
			e.RegisterCycleTimer(next, t.fn)
		}
	}
	return e.state
}

func (e *fakeEngine) RegisterCycleTimer(when uint64, fn avr.CycleTimerFn) {
	e.timers = append(e.timers, fakeTimer{when: when, fn: fn})
	e.registered = append(e.registered, when)
}

func (e *fakeEngine) Line(p avr.Port) (avr.Line, error) {
	l, ok := e.lines[p]
	if !ok {
		l = &fakeLine{}
		e.lines[p] = l
	}
	return l, nil
}

func (e *fakeEngine) ConnectDisplay(bus display.Bus) { e.bus = bus }

// framePeriod for the fake's 16 MHz clock.
const testFramePeriod = 16000000 * RefreshPeriodUsec / 1000000

func newTestSession(t *testing.T, engine avr.Engine) *Session {
	t.Helper()
	s, err := New(Config{
		Firmware: &firmware.Image{Data: []byte{0x0C, 0x94}},
		Engine:   engine,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newPixels(fill uint32) []uint32 {
	pixels := make([]uint32, video.FramebufferWidth*video.FramebufferHeight)
	for i := range pixels {
		pixels[i] = fill
	}
	return pixels
}

func TestNewRequiresFirmware(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewUnknownMCU(t *testing.T) {
	_, err := New(Config{
		Firmware: &firmware.Image{},
		MCU:      "atmega9000",
	})
	assert.ErrorContains(t, err, "no engine registered")
}

func TestNewConfiguresEngine(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	newTestSession(t, engine)

	assert.NotNil(t, engine.loaded, "firmware loaded into the engine")
	assert.Equal(t, uint64(2*testFramePeriod), engine.limit,
		"run cycle limit is twice the frame period")
	assert.NotNil(t, engine.bus, "display controller connected")
	require.NotEmpty(t, engine.registered)
	assert.Equal(t, uint64(testFramePeriod), engine.registered[0],
		"frame timer armed one period out")
	assert.Len(t, engine.lines, 6, "all six buttons wired")
}

func TestLoopYieldsOncePerFrame(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)

	assert.True(t, s.Loop(newPixels(0)))
	assert.Equal(t, 4, engine.runCalls, "one frame of bursts per Loop call")

	assert.True(t, s.Loop(newPixels(0)))
	assert.Equal(t, 8, engine.runCalls)
}

func TestLoopTerminalState(t *testing.T) {
	for _, state := range []avr.State{avr.Done, avr.Crashed} {
		t.Run(state.String(), func(t *testing.T) {
			engine := newFakeEngine(testFramePeriod / 4)
			s := newTestSession(t, engine)
			engine.state = state

			const sentinel = 0xDEADBEEF
			pixels := newPixels(sentinel)
			assert.False(t, s.Loop(pixels))
			assert.Equal(t, 0, engine.runCalls)
			for i, p := range pixels {
				if p != sentinel {
					t.Fatalf("pixel %d touched on terminal path", i)
				}
			}
		})
	}
}

func TestLoopRendersBackgroundFrame(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)

	// Power the display on the way firmware would.
	engine.bus.WriteCommand(0xAF)

	pixels := newPixels(0xDEADBEEF)
	require.True(t, s.Loop(pixels))
	for i, p := range pixels {
		if p != 0xFF000000 {
			t.Fatalf("pixel %d = %#x, want background black", i, p)
		}
	}
}

func TestSchedulerRearmsAbsolute(t *testing.T) {
	// A quantum larger than the frame period makes every firing late; the
	// re-arm must still be previous-fire + period, not now + period.
	engine := newFakeEngine(testFramePeriod + 50000)
	s := newTestSession(t, engine)

	require.True(t, s.Loop(newPixels(0)))
	require.GreaterOrEqual(t, len(engine.registered), 2)
	assert.Equal(t, uint64(testFramePeriod), engine.registered[0])
	assert.Equal(t, uint64(2*testFramePeriod), engine.registered[1],
		"late firing must not drift the schedule")
}

func TestFrameSnapshotGating(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)
	engine.bus.WriteCommand(0xAF)

	// A partial frame of writes must not reach the rendered output.
	for i := 0; i < 100; i++ {
		engine.bus.WriteData(0xFF)
	}
	pixels := newPixels(0)
	require.True(t, s.Loop(pixels))
	for i, p := range pixels {
		if p != 0xFF000000 {
			t.Fatalf("pixel %d lit from a partial frame", i)
		}
	}

	// Completing the frame and starting the next one publishes it whole.
	for i := 100; i < display.Pages*display.Width; i++ {
		engine.bus.WriteData(0xFF)
	}
	engine.bus.WriteData(0xFF)
	require.True(t, s.Loop(pixels))
	for i, p := range pixels {
		if p == 0xFF000000 {
			t.Fatalf("pixel %d still background after completed frame", i)
		}
	}
}

func TestButtonEventTransitions(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)

	up := engine.lines[avr.Port{Bank: 'F', Pin: 7}]
	require.NotNil(t, up)
	assert.True(t, up.level, "pull-up raised at setup")

	s.ButtonEvent(input.Up, true)
	assert.False(t, up.level, "press drives the line low")
	s.ButtonEvent(input.Up, false)
	assert.True(t, up.level)
}

func TestPersistentMemoryRoundTrip(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)

	size := s.PersistentMemorySize()
	require.Equal(t, 1024, size)

	in := make([]byte, size)
	for i := range in {
		in[i] = byte(i * 7)
	}
	require.True(t, s.SetPersistentMemory(in))

	out := make([]byte, size)
	require.True(t, s.GetPersistentMemory(out))
	assert.Equal(t, in, out)
}

func TestPersistentMemoryShortBuffer(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)

	short := make([]byte, s.PersistentMemorySize()-1)
	assert.False(t, s.GetPersistentMemory(short))
	assert.False(t, s.SetPersistentMemory(short))
}

func TestInactiveSession(t *testing.T) {
	var nilSession *Session
	buf := make([]byte, 1024)
	assert.False(t, nilSession.GetPersistentMemory(buf))
	assert.False(t, nilSession.SetPersistentMemory(buf))
	assert.False(t, nilSession.Loop(newPixels(0)))
	assert.Equal(t, 0, nilSession.PersistentMemorySize())
	nilSession.ButtonEvent(input.Up, true)
	nilSession.Close()

	engine := newFakeEngine(testFramePeriod / 4)
	s := newTestSession(t, engine)
	s.Close()
	assert.False(t, s.GetPersistentMemory(buf))
	assert.False(t, s.SetPersistentMemory(buf))
	assert.False(t, s.Loop(newPixels(0)))
}

func TestCloseIdempotent(t *testing.T) {
	engine := newFakeEngine(testFramePeriod / 4)
	s, err := New(Config{
		Firmware: &firmware.Image{},
		Engine:   engine,
	})
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.Equal(t, 1, engine.terminated)
}
