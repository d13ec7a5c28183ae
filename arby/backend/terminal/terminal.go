// Package terminal renders frames into a terminal with tcell, two pixels per
// character cell using the upper-half-block glyph.
package terminal

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/retro486/ArbyEmulator/arby/backend"
	"github.com/retro486/ArbyEmulator/arby/input"
	"github.com/retro486/ArbyEmulator/arby/video"
)

// Terminals deliver key repeats but no key-up events, so a button is
// considered held while its key was seen within this window.
const keyTimeout = 100 * time.Millisecond

// Backend implements backend.Backend on a tcell screen.
type Backend struct {
	screen tcell.Screen
	quit   bool

	lastSeen map[input.Button]time.Time
	active   map[input.Button]bool
}

func New() *Backend {
	return &Backend{
		lastSeen: make(map[input.Button]time.Time),
		active:   make(map[input.Button]bool),
	}
}

func (t *Backend) Init(config backend.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initialize terminal: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	screen.Clear()
	t.screen = screen
	return nil
}

func (t *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	now := time.Now()

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKey(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.buttonTransitions(now)
	if t.quit {
		events = append(events, backend.InputEvent{Type: backend.Quit})
	}

	t.draw(frame)
	return events, nil
}

func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) processKey(ev *tcell.EventKey, now time.Time) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.quit = true
		return
	case tcell.KeyUp:
		t.lastSeen[input.Up] = now
		return
	case tcell.KeyDown:
		t.lastSeen[input.Down] = now
		return
	case tcell.KeyLeft:
		t.lastSeen[input.Left] = now
		return
	case tcell.KeyRight:
		t.lastSeen[input.Right] = now
		return
	}

	switch ev.Rune() {
	case 'q', 'Q':
		t.quit = true
	case 'z', 'Z':
		t.lastSeen[input.A] = now
	case 'x', 'X':
		t.lastSeen[input.B] = now
	}
}

// buttonTransitions turns key-recency state into press/release events.
func (t *Backend) buttonTransitions(now time.Time) []backend.InputEvent {
	var events []backend.InputEvent
	for _, b := range input.Buttons() {
		seen, ok := t.lastSeen[b]
		held := ok && now.Sub(seen) < keyTimeout
		if held && !t.active[b] {
			events = append(events, backend.InputEvent{Type: backend.Press, Button: b})
		} else if !held && t.active[b] {
			events = append(events, backend.InputEvent{Type: backend.Release, Button: b})
		}
		t.active[b] = held
	}
	return events
}

func (t *Backend) draw(frame *video.FrameBuffer) {
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			top := frame.GetPixel(uint(x), uint(y))
			bottom := frame.GetPixel(uint(x), uint(y+1))
			style := tcell.StyleDefault.
				Foreground(rgbColor(top)).
				Background(rgbColor(bottom))
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
	t.screen.Show()
}

func rgbColor(argb uint32) tcell.Color {
	return tcell.NewRGBColor(
		int32(argb>>16&0xFF),
		int32(argb>>8&0xFF),
		int32(argb&0xFF))
}
