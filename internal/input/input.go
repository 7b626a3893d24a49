// Package input translates the abstract button transitions a backend.Sink
// reports into joypad presses and releases on the bus.
package input

import (
	"github.com/tindale/gobold/internal/backend"
	"github.com/tindale/gobold/internal/memory"
)

// joypadKeys maps the uint8 button code a Sink reports (see each backend's
// own key layout) to the joypad button it represents.
var joypadKeys = map[uint8]memory.JoypadKey{
	0: memory.JoypadRight,
	1: memory.JoypadLeft,
	2: memory.JoypadUp,
	3: memory.JoypadDown,
	4: memory.JoypadA,
	5: memory.JoypadB,
	6: memory.JoypadSelect,
	7: memory.JoypadStart,
}

// Dispatcher applies button transitions reported by a sink to a bus.
type Dispatcher struct {
	bus *memory.Bus
}

// NewDispatcher creates a Dispatcher targeting the given bus.
func NewDispatcher(bus *memory.Bus) *Dispatcher {
	return &Dispatcher{bus: bus}
}

// Apply forwards each key event to the bus as a press or release, ignoring
// codes that don't map to a known joypad button.
func (d *Dispatcher) Apply(events []backend.KeyEvent) {
	for _, ev := range events {
		key, ok := joypadKeys[ev.Key]
		if !ok {
			continue
		}
		if ev.Pressed {
			d.bus.HandleKeyPress(key)
		} else {
			d.bus.HandleKeyRelease(key)
		}
	}
}
