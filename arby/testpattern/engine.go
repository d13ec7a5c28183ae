// Package testpattern provides a scripted engine that streams test patterns
// through the display bus instead of executing firmware. It exists for
// display debugging and end-to-end tests of the bridge without a real
// instruction set simulator.
package testpattern

import (
	"fmt"

	"github.com/retro486/ArbyEmulator/arby/avr"
	"github.com/retro486/ArbyEmulator/arby/display"
	"github.com/retro486/ArbyEmulator/arby/firmware"
)

// MCUName is the engine's name in the avr factory registry.
const MCUName = "testpattern"

func init() {
	avr.Register(MCUName, func() (avr.Engine, error) {
		return New(), nil
	})
}

const (
	frequencyHz = 16000000
	// runQuantum is how many cycles one Run burst advances, roughly an
	// instruction burst on the real engine.
	runQuantum = 4096

	tileSize    = 8
	stripeWidth = 4
	// animationFrames is the number of streamed frames between pattern
	// movements.
	animationFrames = 30
)

// PatternCount is the number of available patterns.
const PatternCount = 3

type cycleTimer struct {
	when uint64
	fn   avr.CycleTimerFn
}

type line struct {
	level bool
}

func (l *line) Set(level bool) { l.level = level }

// Engine is a fake avr.Engine. Its "firmware" powers the display on at boot
// and then streams one full frame of pattern data per display refresh.
type Engine struct {
	cycle  uint64
	limit  uint64
	state  avr.State
	timers []cycleTimer

	bus     display.Bus
	pattern int
	frame   int

	lines  map[avr.Port]*line
	eeprom [1024]byte
}

var _ avr.Engine = (*Engine)(nil)

// New returns a test-pattern engine showing the first pattern.
func New() *Engine {
	return &Engine{
		state: avr.Running,
		lines: make(map[avr.Port]*line),
	}
}

// LoadProgram accepts any image; there is no firmware to execute.
func (e *Engine) LoadProgram(img *firmware.Image) error {
	if img == nil {
		return fmt.Errorf("testpattern: nil image")
	}
	return nil
}

func (e *Engine) Frequency() uint64 { return frequencyHz }

func (e *Engine) Cycle() uint64 { return e.cycle }

func (e *Engine) SetRunCycleLimit(cycles uint64) { e.limit = cycles }

// Run advances the clock by one quantum and fires any timers that came due.
func (e *Engine) Run() avr.State {
	if e.state != avr.Running {
		return e.state
	}
	quantum := uint64(runQuantum)
	if e.limit != 0 && e.limit < quantum {
		quantum = e.limit
	}
	e.cycle += quantum
	e.fireDue()
	return e.state
}

func (e *Engine) RegisterCycleTimer(when uint64, fn avr.CycleTimerFn) {
	e.timers = append(e.timers, cycleTimer{when: when, fn: fn})
}

func (e *Engine) fireDue() {
	for {
		idx := -1
		for i, t := range e.timers {
			if t.when <= e.cycle && (idx < 0 || t.when < e.timers[idx].when) {
				idx = i
			}
		}
		if idx < 0 {
			return
		}
		t := e.timers[idx]
		e.timers = append(e.timers[:idx], e.timers[idx+1:]...)
		if next := t.fn(t.when); next > t.when {
			e.timers = append(e.timers, cycleTimer{when: next, fn: t.fn})
		}
	}
}

func (e *Engine) Line(p avr.Port) (avr.Line, error) {
	l, ok := e.lines[p]
	if !ok {
		l = &line{}
		e.lines[p] = l
	}
	return l, nil
}

// ConnectDisplay performs the boot sequence a firmware would: contrast,
// remap flags cleared, display on. The frame streamer is armed half a frame
// period out so every frame is fully streamed before the bridge renders it.
func (e *Engine) ConnectDisplay(bus display.Bus) {
	e.bus = bus
	bus.Reset()
	bus.WriteCommand(0x81)
	bus.WriteCommand(0xCF)
	bus.WriteCommand(0xA1)
	bus.WriteCommand(0xC8)
	bus.WriteCommand(0xAF)

	period := avr.UsecToCycles(frequencyHz, 16666)
	e.RegisterCycleTimer(e.cycle+period/2, func(when uint64) uint64 {
		e.streamFrame()
		return when + period
	})
}

func (e *Engine) PersistentMemory() []byte { return e.eeprom[:] }

func (e *Engine) Terminate() { e.state = avr.Done }

// CyclePattern switches to the next pattern.
func (e *Engine) CyclePattern() {
	e.pattern = (e.pattern + 1) % PatternCount
}

// streamFrame writes one full frame of pattern data, leaving the cursor back
// at the origin.
func (e *Engine) streamFrame() {
	e.frame++
	offset := (e.frame / animationFrames) * 2
	for p := 0; p < display.Pages; p++ {
		for c := 0; c < display.Width; c++ {
			var col byte
			for y := 0; y < 8; y++ {
				if e.lit(c, p*8+y, offset) {
					col |= 1 << y
				}
			}
			e.bus.WriteData(col)
		}
	}
}

func (e *Engine) lit(x, y, offset int) bool {
	switch e.pattern {
	case 0: // checkerboard
		return ((x/tileSize)+(y/tileSize))%2 == 0
	case 1: // scrolling vertical stripes
		return ((x+offset)/stripeWidth)%2 == 0
	default: // scrolling diagonal lines
		return ((x+y+offset)/tileSize)%2 == 0
	}
}
