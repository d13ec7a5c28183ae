//go:build sdl2

package sdl2

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/retro486/ArbyEmulator/arby/backend"
	"github.com/retro486/ArbyEmulator/arby/input"
	"github.com/retro486/ArbyEmulator/arby/video"
)

// Backend implements the Backend interface using SDL2 bindings.
// Note: building this requires SDL2 development libraries installed.
// Default builds use the stubbed variant instead, see build tags (sdl2).
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	scale    int
}

func New() *Backend {
	return &Backend{}
}

func (s *Backend) Init(config backend.Config) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("initialize SDL: %w", err)
	}

	s.scale = config.Scale
	if s.scale <= 0 {
		s.scale = 4
	}

	var err error
	s.window, err = sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(video.FramebufferWidth*s.scale),
		int32(video.FramebufferHeight*s.scale),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	s.renderer, err = sdl.CreateRenderer(s.window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	s.texture, err = s.renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		int32(video.FramebufferWidth),
		int32(video.FramebufferHeight))
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	return nil
}

func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	var events []backend.InputEvent

	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			events = append(events, backend.InputEvent{Type: backend.Quit})
		case *sdl.KeyboardEvent:
			events = appendKeyEvent(events, ev)
		}
	}

	buf := frame.ToSlice()
	if err := s.texture.Update(nil,
		unsafe.Pointer(&buf[0]),
		video.FramebufferWidth*4); err != nil {
		return events, fmt.Errorf("update texture: %w", err)
	}
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
	return events, nil
}

func (s *Backend) Cleanup() error {
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}

func appendKeyEvent(events []backend.InputEvent, ev *sdl.KeyboardEvent) []backend.InputEvent {
	if ev.Repeat != 0 {
		return events
	}

	var button input.Button
	switch ev.Keysym.Sym {
	case sdl.K_ESCAPE:
		if ev.Type == sdl.KEYDOWN {
			return append(events, backend.InputEvent{Type: backend.Quit})
		}
		return events
	case sdl.K_UP:
		button = input.Up
	case sdl.K_DOWN:
		button = input.Down
	case sdl.K_LEFT:
		button = input.Left
	case sdl.K_RIGHT:
		button = input.Right
	case sdl.K_z:
		button = input.A
	case sdl.K_x:
		button = input.B
	default:
		return events
	}

	eventType := backend.Press
	if ev.Type == sdl.KEYUP {
		eventType = backend.Release
	}
	return append(events, backend.InputEvent{Type: eventType, Button: button})
}
