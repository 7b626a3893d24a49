// Package backend defines the presentation sink contract the core calls
// once per frame. Rendering semantics (shader pipeline, palette decoding)
// are out of scope for the core; a sink only needs to display whatever
// raster it is handed and report button transitions back.
package backend

import "github.com/tindale/gobold/internal/video"

// KeyEvent is a single button transition reported by a sink.
type KeyEvent struct {
	Key     uint8 // memory.JoypadKey, kept untyped here to avoid an import cycle
	Pressed bool
}

// Sink is a complete presentation backend: it displays frames and reports
// the button transitions it observed since the last call.
type Sink interface {
	// Init prepares the backend for use.
	Init() error
	// Present displays one frame and returns any key transitions collected
	// since the previous call.
	Present(frame *video.FrameBuffer) ([]KeyEvent, error)
	// Quit reports whether the sink has requested shutdown (e.g. window
	// close, Ctrl-C).
	Quit() bool
	// Close releases backend resources.
	Close() error
}
