//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/retro486/ArbyEmulator/arby/backend"
	"github.com/retro486/ArbyEmulator/arby/video"
)

// Backend stub for when SDL2 is not available.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

// Init returns an error indicating SDL2 is not available.
func (s *Backend) Init(config backend.Config) error {
	return fmt.Errorf("SDL2 backend not available - build with -tags sdl2 to enable")
}

func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	return nil, fmt.Errorf("SDL2 backend not available")
}

func (s *Backend) Cleanup() error {
	return nil
}
