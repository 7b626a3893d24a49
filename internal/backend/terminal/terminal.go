// Package terminal implements a backend.Sink that renders the emulator's
// framebuffer to a terminal using half-block characters, via tcell.
package terminal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/tindale/gobold/internal/backend"
	"github.com/tindale/gobold/internal/video"
)

const (
	width        = video.FramebufferWidth
	height       = video.FramebufferHeight
	minTermWidth = width + 2

	// keyTimeout is how long a button stays "pressed" after its last key
	// event, since terminals deliver key-down without a matching key-up.
	keyTimeout = 100 * time.Millisecond
)

// Sink renders frames with tcell and maps keyboard input to joypad events.
type Sink struct {
	screen tcell.Screen
	quit   bool

	lastSeen map[uint8]time.Time
	active   map[uint8]bool
}

func New() *Sink {
	return &Sink{
		lastSeen: make(map[uint8]time.Time),
		active:   make(map[uint8]bool),
	}
}

func (s *Sink) Init() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: init screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	s.screen = screen
	slog.Info("terminal backend initialized")
	return nil
}

func (s *Sink) Present(frame *video.FrameBuffer) ([]backend.KeyEvent, error) {
	now := time.Now()

	for s.screen.HasPendingEvent() {
		switch ev := s.screen.PollEvent().(type) {
		case *tcell.EventKey:
			if jk, ok := s.joypadKey(ev); ok {
				s.lastSeen[jk] = now
			}
		case *tcell.EventResize:
			s.screen.Sync()
		}
	}

	events := s.reconcileKeyState(now)

	termWidth, termHeight := s.screen.Size()
	if termWidth < minTermWidth || termHeight < height/2+1 {
		s.screen.Clear()
		msg := fmt.Sprintf("terminal too small, need at least %dx%d", minTermWidth, height/2+1)
		for i, ch := range msg {
			s.screen.SetContent(i, 0, ch, nil, tcell.StyleDefault.Foreground(tcell.ColorRed))
		}
		s.screen.Show()
		return events, nil
	}

	s.draw(frame)
	s.screen.Show()

	return events, nil
}

func (s *Sink) draw(frame *video.FrameBuffer) {
	pixels := frame.ToSlice()
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			top := pixelToShade(pixels[y*width+x])
			bottom := 3
			if y+1 < height {
				bottom = pixelToShade(pixels[(y+1)*width+x])
			}
			ch, fg, bg := halfBlock(top, bottom)
			s.screen.SetContent(x, y/2, ch, nil, tcell.StyleDefault.Foreground(fg).Background(bg))
		}
	}
}

// pixelToShade maps a GBColor-as-uint32 pixel back to its 2-bit shade index.
func pixelToShade(pixel uint32) int {
	switch video.GBColor(pixel) {
	case video.BlackColor:
		return 0
	case video.DarkGreyColor:
		return 1
	case video.LightGreyColor:
		return 2
	default:
		return 3
	}
}

var shadeColors = [4]tcell.Color{tcell.ColorBlack, tcell.ColorGray, tcell.ColorSilver, tcell.ColorWhite}

func halfBlock(top, bottom int) (rune, tcell.Color, tcell.Color) {
	if top == bottom {
		return '█', shadeColors[top], tcell.ColorDefault
	}
	return '▀', shadeColors[top], shadeColors[bottom]
}

var keyToJoypad = map[tcell.Key]uint8{
	tcell.KeyUp:    2, // JoypadUp
	tcell.KeyDown:  3, // JoypadDown
	tcell.KeyLeft:  1, // JoypadLeft
	tcell.KeyRight: 0, // JoypadRight
	tcell.KeyEnter: 7, // JoypadStart
}

var runeToJoypad = map[rune]uint8{
	'z': 4, // JoypadA
	'x': 5, // JoypadB
	' ': 6, // JoypadSelect
}

// joypadKey translates a raw key event to a joypad button, also handling
// the quit keys as a side effect.
func (s *Sink) joypadKey(ev *tcell.EventKey) (uint8, bool) {
	if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
		s.quit = true
		return 0, false
	}
	if jk, ok := keyToJoypad[ev.Key()]; ok {
		return jk, true
	}
	if ev.Key() == tcell.KeyRune {
		if jk, ok := runeToJoypad[ev.Rune()]; ok {
			return jk, true
		}
		if ev.Rune() == 'q' {
			s.quit = true
		}
	}
	return 0, false
}

// reconcileKeyState turns the most-recently-seen timestamps into press/hold
// transitions, expiring buttons whose last key event is older than
// keyTimeout and emitting a release for them.
func (s *Sink) reconcileKeyState(now time.Time) []backend.KeyEvent {
	var events []backend.KeyEvent

	currentlyActive := make(map[uint8]bool, len(s.lastSeen))
	for key, seenAt := range s.lastSeen {
		if now.Sub(seenAt) >= keyTimeout {
			delete(s.lastSeen, key)
			continue
		}
		currentlyActive[key] = true
		if !s.active[key] {
			events = append(events, backend.KeyEvent{Key: key, Pressed: true})
		}
	}

	for key := range s.active {
		if !currentlyActive[key] {
			events = append(events, backend.KeyEvent{Key: key, Pressed: false})
		}
	}

	s.active = currentlyActive
	return events
}

func (s *Sink) Quit() bool { return s.quit }

func (s *Sink) Close() error {
	if s.screen != nil {
		s.screen.Fini()
	}
	return nil
}

var _ backend.Sink = (*Sink)(nil)
