package input

import (
	"fmt"

	"github.com/retro486/ArbyEmulator/arby/avr"
)

// Controller tracks logical button levels and applies edge-triggered
// transitions to the engine's GPIO lines. There is no time-based debounce;
// debouncing reduces to change detection.
type Controller struct {
	lines   [buttonCount]avr.Line
	pressed [buttonCount]bool
}

// NewController wires every button's line on the engine and releases it,
// driving the line high to model the pull-up.
func NewController(engine avr.Engine) (*Controller, error) {
	c := &Controller{}
	for _, b := range Buttons() {
		line, err := engine.Line(wiring[b])
		if err != nil {
			return nil, fmt.Errorf("wire button %s: %w", b, err)
		}
		line.Set(true)
		c.lines[b] = line
	}
	return c, nil
}

// Set applies a button state change. Only an actual transition touches the
// GPIO line: pressing drives it low, releasing drives it back high. Redundant
// calls with the current state are no-ops.
func (c *Controller) Set(b Button, pressed bool) {
	if b < 0 || b >= buttonCount {
		return
	}
	if c.pressed[b] == pressed {
		return
	}
	c.lines[b].Set(!pressed)
	c.pressed[b] = pressed
}

// Pressed reports the tracked state of a button.
func (c *Controller) Pressed(b Button) bool {
	if b < 0 || b >= buttonCount {
		return false
	}
	return c.pressed[b]
}
