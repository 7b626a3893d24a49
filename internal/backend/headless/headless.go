// Package headless implements a backend.Sink that discards frames and never
// reports input, for running the core without a terminal (tests, CI, batch
// test-ROM runs).
package headless

import (
	"github.com/tindale/gobold/internal/backend"
	"github.com/tindale/gobold/internal/video"
)

type Sink struct {
	FrameCount int
	quit       bool
}

func New() *Sink {
	return &Sink{}
}

func (s *Sink) Init() error { return nil }

func (s *Sink) Present(frame *video.FrameBuffer) ([]backend.KeyEvent, error) {
	s.FrameCount++
	return nil, nil
}

func (s *Sink) Quit() bool { return s.quit }

// RequestQuit lets a test harness stop a running core after N frames.
func (s *Sink) RequestQuit() { s.quit = true }

func (s *Sink) Close() error { return nil }

var _ backend.Sink = (*Sink)(nil)
