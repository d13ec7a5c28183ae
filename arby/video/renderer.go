package video

import "github.com/retro486/ArbyEmulator/arby/display"

const black = 0xFF000000

// Opacity maps the contrast register to display opacity. The floor of 0.5
// exists because the physical panel stays clearly visible even at zero
// contrast.
func Opacity(contrast uint8) float64 {
	return float64(contrast)/512 + 0.5
}

func foreground(inverted bool, opacity float64) uint32 {
	if inverted {
		return black
	}
	v := uint32(255 * opacity)
	return 0xFF000000 | v<<16 | v<<8 | v
}

func background(inverted bool, opacity float64) uint32 {
	if inverted {
		return foreground(false, opacity)
	}
	return black
}

// Render draws the luma map into pixels, which must hold
// FramebufferWidth*FramebufferHeight ARGB values.
//
// When the display is powered off the buffer is left untouched: callers that
// need a blank frame on that path must clear the buffer themselves.
//
// Mirroring is applied by iteration order. Each mirror flag independently
// reverses one axis, so the four flag combinations select which luma corner
// lands at buffer index 0.
func Render(pixels []uint32, luma *LumaMap, st display.State) {
	if !st.Flag(display.FlagDisplayOn) {
		return
	}

	origX, origY := 0, 0
	dx, dy := 1, 1
	if st.Flag(display.FlagMirrorX) {
		origX, dx = display.Width-1, -1
	}
	if st.Flag(display.FlagMirrorY) {
		origY, dy = display.Height-1, -1
	}

	inverted := st.Flag(display.FlagInverted)
	opacity := Opacity(st.Contrast())
	fg := foreground(inverted, opacity)
	bg := background(inverted, opacity)

	i := 0
	for y := origY; y >= 0 && y < display.Height; y += dy {
		for x := origX; x >= 0 && x < display.Width; x += dx {
			if luma.Lit(x, y) {
				pixels[i] = fg
			} else {
				pixels[i] = bg
			}
			i++
		}
	}
}
