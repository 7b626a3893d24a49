package video

import (
	"github.com/tindale/gobold/internal/addr"
	"github.com/tindale/gobold/internal/bit"
)

const (
	cyclesPerScanline = 456
	cyclesPerFrame    = 70224
	screenHeight      = 144
	totalLines        = 154
)

// Bus is the subset of the memory bus the display timing model needs: LCDC
// gating, LY updates, and the VBLANK interrupt line.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	RequestInterrupt(interrupt addr.Interrupt)
}

// Display implements the two-counter scanline/frame timing model: a
// cycles-to-next-scanline counter that advances the LY register modulo 154
// (asserting VBLANK at line 144), and a cycles-to-next-frame counter that
// signals the presentation sink once per 70224-cycle frame. It performs no
// pixel composition; that is an explicit non-goal of the core.
type Display struct {
	bus Bus

	cyclesToScanline int
	cyclesToFrame    int
	line             uint8

	// FrameReady is invoked once per frame, with no arguments, when a frame
	// completes. The caller presents whatever it has drawn into its
	// own framebuffer; Display itself owns none.
	FrameReady func()
}

func NewDisplay(bus Bus) *Display {
	return &Display{
		bus:              bus,
		cyclesToScanline: cyclesPerScanline,
		cyclesToFrame:    cyclesPerFrame,
	}
}

// Tick advances the timing counters by the clock cycles elapsed this step.
func (d *Display) Tick(cycles int) {
	if !d.lcdEnabled() {
		return
	}

	d.cyclesToScanline -= cycles
	d.cyclesToFrame -= cycles

	for d.cyclesToScanline <= 0 {
		d.cyclesToScanline += cyclesPerScanline
		d.advanceLine()
	}

	if d.cyclesToFrame <= 0 {
		d.cyclesToFrame += cyclesPerFrame
		if d.FrameReady != nil {
			d.FrameReady()
		}
	}
}

func (d *Display) advanceLine() {
	d.line = (d.line + 1) % totalLines
	d.bus.Write(addr.LY, d.line)

	switch d.line {
	case screenHeight:
		d.bus.RequestInterrupt(addr.VBlankInterrupt)
	case 0:
		iflag := d.bus.Read(addr.IF)
		d.bus.Write(addr.IF, bit.Reset(0, iflag))
	}
}

func (d *Display) lcdEnabled() bool {
	return bit.IsSet(7, d.bus.Read(addr.LCDC))
}

// NotifyLCDCWrite must be called whenever the caller writes LCDC, so Display
// can detect bit 7 being cleared and reset its counters and line per the
// hardware's power-off behavior.
func (d *Display) NotifyLCDCWrite(value byte) {
	if !bit.IsSet(7, value) {
		d.line = 0
		d.bus.Write(addr.LY, 0)
		d.cyclesToScanline = cyclesPerScanline
		d.cyclesToFrame = cyclesPerFrame
	}
}

// Line returns the current scanline, 0-153.
func (d *Display) Line() uint8 {
	return d.line
}
