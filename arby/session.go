// Package arby bridges an AVR emulation engine to a host application that
// wants fixed-rate rendered frames and injected button input.
package arby

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/retro486/ArbyEmulator/arby/avr"
	"github.com/retro486/ArbyEmulator/arby/display"
	"github.com/retro486/ArbyEmulator/arby/firmware"
	"github.com/retro486/ArbyEmulator/arby/input"
	"github.com/retro486/ArbyEmulator/arby/video"
)

const (
	// RefreshPeriodUsec is one simulated display frame, about 60 Hz.
	RefreshPeriodUsec = 16666
	// DefaultCPUFrequencyHz is the stock target clock, 16 MHz.
	DefaultCPUFrequencyHz = 16000000
	// DefaultMCU is the engine model used when none is configured.
	DefaultMCU = "atmega32u4"
)

// Config describes a session to create.
type Config struct {
	// Firmware is the program to run. Required.
	Firmware *firmware.Image
	// CPUFrequencyHz is the engine clock; DefaultCPUFrequencyHz when zero.
	CPUFrequencyHz uint64
	// MCU selects a registered engine model; DefaultMCU when empty.
	// Ignored when Engine is set.
	MCU string
	// Engine, when non-nil, is used directly instead of the MCU registry.
	Engine avr.Engine
}

// Session binds one engine instance, the luma map, the yield flag and the
// transient pixel-buffer reference. Sessions are single-threaded and
// cooperative: Loop, ButtonEvent, the persistent-memory accessors and Close
// must all be called from one thread. Closing a session while a Loop call is
// in progress is a contract violation.
type Session struct {
	engine  avr.Engine
	ctrl    *display.Controller
	buttons *input.Controller
	luma    video.LumaMap

	framePeriod uint64 // engine cycles per display frame
	yield       bool
	pixels      []uint32
	closed      bool
}

// New loads the firmware, constructs and wires the engine, arms the frame
// scheduler and returns a runnable session. On failure no session is left
// behind and the attempt is terminal.
func New(cfg Config) (*Session, error) {
	if cfg.Firmware == nil {
		return nil, errors.New("arby: no firmware image")
	}

	freq := cfg.CPUFrequencyHz
	if freq == 0 {
		freq = DefaultCPUFrequencyHz
	}

	engine := cfg.Engine
	if engine == nil {
		mcu := cfg.MCU
		if mcu == "" {
			mcu = DefaultMCU
		}
		var err error
		engine, err = avr.New(mcu)
		if err != nil {
			return nil, fmt.Errorf("arby: construct engine: %w", err)
		}
	}

	if err := engine.LoadProgram(cfg.Firmware); err != nil {
		engine.Terminate()
		return nil, fmt.Errorf("arby: load firmware: %w", err)
	}

	s := &Session{
		engine: engine,
		ctrl:   display.NewController(),
	}
	s.framePeriod = avr.UsecToCycles(freq, RefreshPeriodUsec)

	// Safety bound against a missed scheduling event; the frame timer is
	// the loop's real suspension point.
	engine.SetRunCycleLimit(2 * s.framePeriod)

	engine.ConnectDisplay(s.ctrl)
	s.ctrl.SetFrameListener(s.luma.Snapshot)

	buttons, err := input.NewController(engine)
	if err != nil {
		engine.Terminate()
		return nil, fmt.Errorf("arby: %w", err)
	}
	s.buttons = buttons

	engine.RegisterCycleTimer(engine.Cycle()+s.framePeriod, s.frameTick)

	slog.Info("session ready",
		"frequency_hz", freq,
		"frame_cycles", s.framePeriod,
		"persistent_bytes", len(engine.PersistentMemory()))
	return s, nil
}

// frameTick is the scheduler's periodic action on the engine cycle clock. It
// renders into the currently bound pixel buffer, signals yield, and re-arms
// from the scheduled time rather than the current cycle so a late firing does
// not accumulate drift.
func (s *Session) frameTick(when uint64) uint64 {
	if s.pixels != nil {
		video.Render(s.pixels, &s.luma, s.ctrl)
	}
	s.yield = true
	return when + s.framePeriod
}

// Loop runs one simulated frame. It clears the yield flag, binds pixels for
// the duration of the call, and advances the engine until the frame timer
// fires (true) or the engine reaches a terminal state (false). After a false
// return the session is no longer runnable.
//
// Exactly one frame period of simulated time elapses per call regardless of
// wall-clock time; real-time pacing is the caller's responsibility.
func (s *Session) Loop(pixels []uint32) bool {
	if s == nil || s.closed {
		return false
	}
	s.yield = false
	s.pixels = pixels
	defer func() { s.pixels = nil }()

	for !s.yield {
		if state := s.engine.Run(); state.Terminal() {
			slog.Info("engine reached terminal state", "state", state)
			return false
		}
	}
	return true
}

// ButtonEvent injects a button state change; see input.Controller.Set.
func (s *Session) ButtonEvent(b input.Button, pressed bool) {
	if s == nil || s.closed {
		return
	}
	s.buttons.Set(b, pressed)
}

// PersistentMemorySize returns the declared persistent-memory region size,
// or 0 when the session is not active.
func (s *Session) PersistentMemorySize() int {
	if s == nil || s.closed {
		return 0
	}
	return len(s.engine.PersistentMemory())
}

// GetPersistentMemory bulk-copies the persistent-memory region into buf,
// which must hold at least PersistentMemorySize bytes. It reports false, and
// copies nothing, when the session is not active or buf is too short.
func (s *Session) GetPersistentMemory(buf []byte) bool {
	if s == nil || s.closed {
		return false
	}
	mem := s.engine.PersistentMemory()
	if len(buf) < len(mem) {
		return false
	}
	copy(buf, mem)
	return true
}

// SetPersistentMemory bulk-copies buf into the persistent-memory region,
// with the same contract as GetPersistentMemory.
func (s *Session) SetPersistentMemory(buf []byte) bool {
	if s == nil || s.closed {
		return false
	}
	mem := s.engine.PersistentMemory()
	if len(buf) < len(mem) {
		return false
	}
	copy(mem, buf)
	return true
}

// Close terminates the engine and invalidates the session. Safe to call more
// than once.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.engine.Terminate()
	s.closed = true
	slog.Info("session closed")
}
