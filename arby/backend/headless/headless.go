// Package headless is a backend for automated runs: no display, optional PNG
// snapshots, quits after a fixed frame count.
package headless

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/retro486/ArbyEmulator/arby/backend"
	"github.com/retro486/ArbyEmulator/arby/video"
)

// Backend implements backend.Backend for batch processing.
type Backend struct {
	config     backend.Config
	frameCount int
}

func New() *Backend {
	return &Backend{}
}

func (h *Backend) Init(config backend.Config) error {
	h.config = config
	if config.SnapshotInterval > 0 {
		if config.SnapshotDir == "" {
			return fmt.Errorf("snapshot interval set but no directory")
		}
		if err := os.MkdirAll(config.SnapshotDir, 0755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	slog.Info("running headless",
		"frames", config.MaxFrames,
		"snapshot_interval", config.SnapshotInterval)
	return nil
}

func (h *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	h.frameCount++

	if h.config.SnapshotInterval > 0 && h.frameCount%h.config.SnapshotInterval == 0 {
		if err := h.saveSnapshot(frame); err != nil {
			slog.Error("snapshot failed", "frame", h.frameCount, "error", err)
		}
	}

	if h.frameCount%60 == 0 {
		slog.Debug("frame progress", "completed", h.frameCount, "total", h.config.MaxFrames)
	}

	if h.config.MaxFrames > 0 && h.frameCount >= h.config.MaxFrames {
		slog.Info("headless run completed", "frames", h.frameCount)
		return []backend.InputEvent{{Type: backend.Quit}}, nil
	}
	return nil, nil
}

func (h *Backend) Cleanup() error {
	return nil
}

// FrameCount returns the number of frames processed so far.
func (h *Backend) FrameCount() int {
	return h.frameCount
}

func (h *Backend) saveSnapshot(frame *video.FrameBuffer) error {
	img := image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			p := frame.GetPixel(uint(x), uint(y))
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(p >> 16),
				G: uint8(p >> 8),
				B: uint8(p),
				A: uint8(p >> 24),
			})
		}
	}

	name := fmt.Sprintf("%s_frame_%d.png", h.config.SnapshotName, h.frameCount)
	path := filepath.Join(h.config.SnapshotDir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	slog.Debug("saved snapshot", "path", path)
	return nil
}
