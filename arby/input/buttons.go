package input

import "github.com/retro486/ArbyEmulator/arby/avr"

// Button identifies one of the six physical buttons.
type Button int

const (
	Up Button = iota
	Down
	Left
	Right
	A
	B
	buttonCount
)

func (b Button) String() string {
	switch b {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case A:
		return "a"
	case B:
		return "b"
	default:
		return "unknown"
	}
}

// Buttons lists every button, for callers that iterate the full set.
func Buttons() []Button {
	return []Button{Up, Down, Left, Right, A, B}
}

// wiring maps each button to the IO port pin its line is attached to.
// Lines are active low with a pull-up: released is high.
var wiring = [buttonCount]avr.Port{
	Up:    {Bank: 'F', Pin: 7},
	Down:  {Bank: 'F', Pin: 4},
	Left:  {Bank: 'F', Pin: 5},
	Right: {Bank: 'F', Pin: 6},
	A:     {Bank: 'E', Pin: 6},
	B:     {Bank: 'B', Pin: 4},
}
