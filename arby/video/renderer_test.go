package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retro486/ArbyEmulator/arby/display"
)

type stubState struct {
	on       bool
	mirrorX  bool
	mirrorY  bool
	inverted bool
	contrast uint8
}

func (s stubState) Flag(f display.Flag) bool {
	switch f {
	case display.FlagDisplayOn:
		return s.on
	case display.FlagMirrorX:
		return s.mirrorX
	case display.FlagMirrorY:
		return s.mirrorY
	case display.FlagInverted:
		return s.inverted
	default:
		return false
	}
}

func (s stubState) Contrast() uint8 { return s.contrast }

func newPixels(fill uint32) []uint32 {
	pixels := make([]uint32, FramebufferWidth*FramebufferHeight)
	for i := range pixels {
		pixels[i] = fill
	}
	return pixels
}

func lumaWithBit(x, y int) *LumaMap {
	var vram [display.Pages][display.Width]byte
	vram[y/8][x] = 1 << (y % 8)
	var m LumaMap
	m.Snapshot(&vram)
	return &m
}

func TestOpacity(t *testing.T) {
	assert.Equal(t, 0.5, Opacity(0))
	assert.Equal(t, float64(255)/512+0.5, Opacity(255))
	assert.Equal(t, float64(128)/512+0.5, Opacity(128))
}

func TestRenderPowerOffLeavesBufferUntouched(t *testing.T) {
	const sentinel = 0xDEADBEEF
	pixels := newPixels(sentinel)

	Render(pixels, &LumaMap{}, stubState{on: false, contrast: 255})

	for i, p := range pixels {
		if p != sentinel {
			t.Fatalf("pixel %d overwritten while display off", i)
		}
	}
}

func TestRenderForegroundAndBackground(t *testing.T) {
	tests := []struct {
		name     string
		contrast uint8
		inverted bool
		wantFg   uint32
		wantBg   uint32
	}{
		{"contrast 0", 0, false, 0xFF7F7F7F, 0xFF000000},
		{"contrast 255", 255, false, 0xFFFEFEFE, 0xFF000000},
		{"inverted forces black foreground", 200, true, 0xFF000000, 0xFFE3E3E3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixels := newPixels(0)
			Render(pixels, lumaWithBit(0, 0), stubState{
				on:       true,
				inverted: tt.inverted,
				contrast: tt.contrast,
			})

			assert.Equal(t, tt.wantFg, pixels[0], "lit pixel")
			assert.Equal(t, tt.wantBg, pixels[1], "unlit pixel")
		})
	}
}

func TestRenderMirrorCorners(t *testing.T) {
	// For each mirror combination, the luma corner that must land at
	// buffer index (0,0).
	tests := []struct {
		name     string
		mirrorX  bool
		mirrorY  bool
		litX     int
		litY     int
	}{
		{"no mirroring: top left", false, false, 0, 0},
		{"mirror X: top right", true, false, FramebufferWidth - 1, 0},
		{"mirror Y: bottom left", false, true, 0, FramebufferHeight - 1},
		{"mirror both: bottom right", true, true, FramebufferWidth - 1, FramebufferHeight - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixels := newPixels(0)
			Render(pixels, lumaWithBit(tt.litX, tt.litY), stubState{
				on:       true,
				mirrorX:  tt.mirrorX,
				mirrorY:  tt.mirrorY,
				contrast: 0,
			})

			assert.Equal(t, uint32(0xFF7F7F7F), pixels[0], "corner pixel maps to index 0")

			lit := 0
			for _, p := range pixels {
				if p != 0xFF000000 {
					lit++
				}
			}
			assert.Equal(t, 1, lit, "exactly one foreground pixel")
		})
	}
}
