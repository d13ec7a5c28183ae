package video

import "github.com/retro486/ArbyEmulator/arby/display"

// LumaMap is a per-pixel binary brightness snapshot of the display, one bit
// per pixel. It is overwritten only as a whole frame, never partially, so a
// rendered frame can never mix bytes from two in-progress display writes.
type LumaMap struct {
	bits [display.Height][display.Width]uint8
}

// Snapshot decodes one complete bit-packed frame into the map. Each column
// byte carries 8 vertically stacked pixels, least significant bit on top.
func (m *LumaMap) Snapshot(vram *[display.Pages][display.Width]byte) {
	for p := 0; p < display.Pages; p++ {
		for c := 0; c < display.Width; c++ {
			col := vram[p][c]
			for y := 0; y < 8; y++ {
				m.bits[p*8+y][c] = col & 0x1
				col >>= 1
			}
		}
	}
}

// Lit reports whether the pixel at (x, y) is on.
func (m *LumaMap) Lit(x, y int) bool {
	return m.bits[y][x] != 0
}
