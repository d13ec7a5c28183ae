// Package backend defines the host frontends that display frames and collect
// input for the bridge's run loop.
package backend

import (
	"github.com/retro486/ArbyEmulator/arby/input"
	"github.com/retro486/ArbyEmulator/arby/video"
)

// EventType classifies an input event returned by a backend.
type EventType int

const (
	// Press and Release carry a button.
	Press EventType = iota
	Release
	// Quit asks the run loop to stop.
	Quit
)

// InputEvent is a single input state change collected by a backend.
type InputEvent struct {
	Type   EventType
	Button input.Button
}

// Config holds backend configuration.
type Config struct {
	Title string
	Scale int

	// Headless options.
	MaxFrames        int
	SnapshotInterval int // save a PNG every N frames, 0 disables
	SnapshotDir      string
	SnapshotName     string
}

// Backend renders frames and translates platform input into events.
type Backend interface {
	// Init configures the backend. Required before Update.
	Init(config Config) error

	// Update renders the frame and returns input events gathered since the
	// previous call.
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup releases backend resources.
	Cleanup() error
}
