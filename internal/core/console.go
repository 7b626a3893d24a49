// Package core wires the CPU, bus and display timing into the single
// deterministic tick loop the rest of the system drives: one call to
// RunFrame executes whole instructions until a frame boundary is reached,
// presenting through whatever backend.Sink the caller supplied.
package core

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tindale/gobold/internal/backend"
	"github.com/tindale/gobold/internal/cpu"
	"github.com/tindale/gobold/internal/memory"
	"github.com/tindale/gobold/internal/video"
)

// Console is the root struct tying together CPU, bus, display timing and a
// presentation sink. It owns no pixel data of its own: that lives in the
// FrameBuffer the display timer signals readiness for.
type Console struct {
	cpu     *cpu.CPU
	bus     *memory.Bus
	display *video.Display
	sink    backend.Sink

	frame *video.FrameBuffer

	frameCount uint64
}

// New creates a Console with no cartridge loaded.
func New(sink backend.Sink) *Console {
	return newConsole(memory.New(), sink)
}

// NewWithROM creates a Console with the given ROM image loaded.
func NewWithROM(rom []byte, sink backend.Sink) (*Console, error) {
	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return nil, fmt.Errorf("core: load cartridge: %w", err)
	}
	slog.Debug("loaded ROM", "title", cart.Title, "size", len(rom))
	return newConsole(memory.NewWithCartridge(cart), sink), nil
}

// NewFromFile reads a ROM image from path and creates a Console from it.
func NewFromFile(path string, sink backend.Sink) (*Console, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: read ROM file: %w", err)
	}
	return NewWithROM(data, sink)
}

func newConsole(bus *memory.Bus, sink backend.Sink) *Console {
	c := &Console{
		cpu:     cpu.New(bus),
		bus:     bus,
		frame:   video.NewFrameBuffer(),
		sink:    sink,
	}
	c.frame.Clear()
	c.display = video.NewDisplay(bus)
	c.display.FrameReady = func() { c.frameCount++ }
	bus.LCDCWriteHook = c.display.NotifyLCDCWrite
	return c
}

// Bus exposes the memory bus, for input handling and inspection.
func (c *Console) Bus() *memory.Bus { return c.bus }

// CPU exposes the CPU, for inspection and debugging tools.
func (c *Console) CPU() *cpu.CPU { return c.cpu }

// FrameCount returns the number of frames the display timer has completed so far.
func (c *Console) FrameCount() uint64 { return c.frameCount }

// Tick executes a single strictly-ordered step: interrupt dispatch and
// instruction execute happen inside cpu.Tick, whose returned clock-cycle
// count then drives the bus (timer, audio frame sequencer, serial) and the
// display timer in that order. It returns the number of clock cycles
// elapsed, and whether this step completed a frame.
func (c *Console) Tick() (cycles int, frameBoundary bool) {
	before := c.frameCount

	cycles = c.cpu.Tick()
	c.bus.Tick(cycles)
	c.display.Tick(cycles)

	return cycles, c.frameCount != before
}

// RunFrame executes instructions until one full frame (70224 clock cycles
// of display advancement) has elapsed, then presents it through the sink.
// It returns the key events the sink collected and any presentation error.
// If the CPU stops on a decode failure, RunFrame returns that error at once
// without presenting.
func (c *Console) RunFrame() ([]backend.KeyEvent, error) {
	for {
		_, boundary := c.Tick()
		if err := c.cpu.FatalErr(); err != nil {
			return nil, fmt.Errorf("core: %w", err)
		}
		if boundary {
			break
		}
	}

	events, err := c.sink.Present(c.frame)
	if err != nil {
		return events, fmt.Errorf("core: present frame: %w", err)
	}
	return events, nil
}

// Sink returns the presentation sink the console presents frames through.
func (c *Console) Sink() backend.Sink { return c.sink }

// HandleKeyPress forwards a button press to the joypad register.
func (c *Console) HandleKeyPress(key memory.JoypadKey) { c.bus.HandleKeyPress(key) }

// HandleKeyRelease forwards a button release to the joypad register.
func (c *Console) HandleKeyRelease(key memory.JoypadKey) { c.bus.HandleKeyRelease(key) }
