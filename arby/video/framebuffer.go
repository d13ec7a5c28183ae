package video

import "github.com/retro486/ArbyEmulator/arby/display"

// FramebufferWidth and FramebufferHeight match the display resolution.
const (
	FramebufferWidth  = display.Width
	FramebufferHeight = display.Height
)

// FrameBuffer holds one rendered frame as flat ARGB values, row-major with
// the origin at the top left.
type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

// NewFrameBuffer creates a frame buffer sized to the display.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: make([]uint32, FramebufferWidth*FramebufferHeight),
	}
}

func (fb *FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color uint32) {
	fb.buffer[y*fb.width+x] = color
}

// ToSlice exposes the backing pixel storage.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}
