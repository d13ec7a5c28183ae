// Package avr defines the contract between the bridge and a cycle-accurate
// AVR emulation engine. Instruction execution, interrupt delivery and the
// display controller's wire protocol live behind this interface; the bridge
// only schedules, observes and injects.
package avr

import (
	"github.com/retro486/ArbyEmulator/arby/display"
	"github.com/retro486/ArbyEmulator/arby/firmware"
)

// State is the engine's execution state as observed after a run burst.
type State int

const (
	// Running means the engine can be advanced further.
	Running State = iota
	// Done means the program reached a clean halt.
	Done
	// Crashed means the engine hit an illegal instruction or trap.
	Crashed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case Crashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the engine can no longer be advanced.
func (s State) Terminal() bool {
	return s == Done || s == Crashed
}

// Port locates a GPIO pin by IO port bank letter and pin number, e.g. F7.
type Port struct {
	Bank byte
	Pin  uint8
}

// Line is a digital input line into the engine. Set drives the line high
// (true) or low (false).
type Line interface {
	Set(level bool)
}

// CycleTimerFn is a scheduled action on the engine's cycle clock. It receives
// the absolute cycle it was scheduled for (which may be earlier than the
// engine's current cycle if the firing is late) and returns the absolute
// cycle of the next firing, or 0 to cancel.
type CycleTimerFn func(when uint64) uint64

// Engine is the emulation engine collaborator.
//
// Engines are single-threaded: every method must be called from the thread
// driving Run.
type Engine interface {
	// LoadProgram places a firmware image into flash and prepares the
	// program counter for execution.
	LoadProgram(img *firmware.Image) error

	// Frequency returns the configured clock frequency in Hz.
	Frequency() uint64

	// Cycle returns the current cycle count.
	Cycle() uint64

	// SetRunCycleLimit bounds how many cycles a single Run burst may
	// consume. A safety bound, not a scheduling mechanism.
	SetRunCycleLimit(cycles uint64)

	// Run advances the engine by one scheduling quantum, firing any cycle
	// timers that come due, and reports the resulting state.
	Run() State

	// RegisterCycleTimer schedules fn to fire at the given absolute cycle.
	RegisterCycleTimer(when uint64, fn CycleTimerFn)

	// Line returns the injectable GPIO line for a port pin.
	Line(p Port) (Line, error)

	// ConnectDisplay attaches the display controller model. The engine
	// forwards decoded display bytes to it.
	ConnectDisplay(bus display.Bus)

	// PersistentMemory returns the live persistent-memory (EEPROM) region.
	// Its length is the declared region size for the target.
	PersistentMemory() []byte

	// Terminate releases the engine. The engine must not be used after.
	Terminate()
}

// UsecToCycles converts a duration in microseconds to engine cycles at the
// given clock frequency.
func UsecToCycles(freqHz, usec uint64) uint64 {
	return freqHz * usec / 1000000
}
