package display

// Physical dimensions of the OLED panel.
const (
	Width  = 128
	Height = 64
	// Pages is the number of 8-pixel row bands in the controller's
	// bit-packed display memory.
	Pages = Height / 8
)
