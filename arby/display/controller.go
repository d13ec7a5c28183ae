package display

// Flag identifies one of the controller's status flags.
type Flag uint8

const (
	// FlagDisplayOn is set while the panel is powered.
	FlagDisplayOn Flag = iota
	// FlagMirrorX reverses column iteration order (segment remap).
	FlagMirrorX
	// FlagMirrorY reverses row iteration order (COM scan direction).
	FlagMirrorY
	// FlagInverted swaps foreground and background.
	FlagInverted
	// FlagDirty is set when pixel data has been written since the last
	// completed frame was handed to the frame listener.
	FlagDirty
)

// State is the read-only view of the controller that the renderer consumes.
type State interface {
	Flag(f Flag) bool
	Contrast() uint8
}

// Bus is the byte-level interface the emulation engine drives. The wire
// protocol (SPI framing, D/C pin decoding) belongs to the engine; by the time
// a byte reaches the Bus it is already classified as data or command.
type Bus interface {
	WriteData(b byte)
	WriteCommand(b byte)
	Reset()
}

// Command bytes understood by the controller model.
const (
	cmdSetContrast     = 0x81
	cmdChargePump      = 0x8D
	cmdDisplayNormal   = 0xA6
	cmdDisplayInverted = 0xA7
	cmdMultiplexRatio  = 0xA8
	cmdDisplayOff      = 0xAE
	cmdDisplayOn       = 0xAF
	cmdAddressingMode  = 0x20
	cmdColumnRange     = 0x21
	cmdPageRange       = 0x22
	cmdDisplayOffset   = 0xD3
	cmdClockDivide     = 0xD5
	cmdPrecharge       = 0xD9
	cmdCOMPins         = 0xDA
	cmdVCOMDeselect    = 0xDB
	cmdSegRemapOff     = 0xA0
	cmdSegRemapOn      = 0xA1
	cmdCOMScanNormal   = 0xC0
	cmdCOMScanRemap    = 0xC8
)

// Controller models the display controller's memory and status registers: a
// bit-packed framebuffer addressed by page and column, a write cursor that
// wraps in horizontal addressing order, and the handful of flags the bridge
// renders from.
//
// A registered frame listener is invoked exactly when a data byte arrives
// while the cursor sits at the frame origin with unsaved pixel writes
// pending: at that moment the memory holds one complete, self-consistent
// frame. Display firmware streams whole frames before wrapping the cursor, so
// this is the frame boundary.
type Controller struct {
	vram     [Pages][Width]byte
	page     int
	column   int
	flags    uint8
	contrast uint8

	// pending multi-byte command state
	pendingCmd  byte
	pendingArgs int

	onFrame func(vram *[Pages][Width]byte)
}

// NewController returns a controller in its power-on state.
func NewController() *Controller {
	c := &Controller{}
	c.Reset()
	return c
}

// Reset returns the controller to power-on defaults: display off, cursor at
// the origin, memory cleared, mid-scale contrast, both remap flags set (the
// hardware default; firmware normally clears them during boot).
func (c *Controller) Reset() {
	c.vram = [Pages][Width]byte{}
	c.page = 0
	c.column = 0
	c.flags = 0
	c.contrast = 0x7F
	c.pendingArgs = 0
	c.setFlag(FlagMirrorX, true)
	c.setFlag(FlagMirrorY, true)
}

// SetFrameListener registers the frame-complete callback. The vram pointer
// passed to fn is only valid for the duration of the call.
func (c *Controller) SetFrameListener(fn func(vram *[Pages][Width]byte)) {
	c.onFrame = fn
}

// Flag reports the current value of a status flag.
func (c *Controller) Flag(f Flag) bool {
	return c.flags&(1<<f) != 0
}

// Contrast returns the contrast register value.
func (c *Controller) Contrast() uint8 {
	return c.contrast
}

// Cursor returns the current write position.
func (c *Controller) Cursor() (page, column int) {
	return c.page, c.column
}

// ReadVRAM returns the bit-packed column byte at the given position.
func (c *Controller) ReadVRAM(page, column int) byte {
	return c.vram[page][column]
}

func (c *Controller) setFlag(f Flag, on bool) {
	if on {
		c.flags |= 1 << f
	} else {
		c.flags &^= 1 << f
	}
}

// WriteData accepts one data byte: if the cursor is at the frame origin with
// dirty pixel writes pending, the completed frame is dispatched first and the
// dirty flag cleared. The byte is then stored at the cursor, which advances
// in horizontal addressing order (column, then page, wrapping to the origin).
func (c *Controller) WriteData(b byte) {
	if c.page == 0 && c.column == 0 && c.Flag(FlagDirty) {
		if c.onFrame != nil {
			c.onFrame(&c.vram)
		}
		c.setFlag(FlagDirty, false)
	}
	c.vram[c.page][c.column] = b
	c.setFlag(FlagDirty, true)
	c.column++
	if c.column == Width {
		c.column = 0
		c.page = (c.page + 1) % Pages
	}
}

// WriteCommand accepts one command byte. Commands the bridge does not render
// from still have their argument bytes consumed so the stream stays in sync.
func (c *Controller) WriteCommand(b byte) {
	if c.pendingArgs > 0 {
		c.pendingArgs--
		switch c.pendingCmd {
		case cmdSetContrast:
			c.contrast = b
		case cmdColumnRange:
			if c.pendingArgs == 1 {
				c.column = int(b) % Width
			}
		case cmdPageRange:
			if c.pendingArgs == 1 {
				c.page = int(b) % Pages
			}
		}
		return
	}

	switch {
	case b == cmdDisplayOn:
		c.setFlag(FlagDisplayOn, true)
	case b == cmdDisplayOff:
		c.setFlag(FlagDisplayOn, false)
	case b == cmdDisplayInverted:
		c.setFlag(FlagInverted, true)
	case b == cmdDisplayNormal:
		c.setFlag(FlagInverted, false)
	case b == cmdSegRemapOff:
		c.setFlag(FlagMirrorX, true)
	case b == cmdSegRemapOn:
		c.setFlag(FlagMirrorX, false)
	case b == cmdCOMScanNormal:
		c.setFlag(FlagMirrorY, true)
	case b == cmdCOMScanRemap:
		c.setFlag(FlagMirrorY, false)
	case b >= 0xB0 && b <= 0xB7:
		c.page = int(b & 0x07)
	case b <= 0x0F:
		c.column = (c.column & 0xF0) | int(b)
	case b >= 0x10 && b <= 0x1F:
		c.column = (c.column & 0x0F) | int(b&0x0F)<<4
		c.column %= Width
	case b == cmdSetContrast, b == cmdChargePump, b == cmdAddressingMode,
		b == cmdMultiplexRatio, b == cmdDisplayOffset, b == cmdClockDivide,
		b == cmdPrecharge, b == cmdCOMPins, b == cmdVCOMDeselect:
		c.pendingCmd = b
		c.pendingArgs = 1
	case b == cmdColumnRange, b == cmdPageRange:
		c.pendingCmd = b
		c.pendingArgs = 2
	}
}
