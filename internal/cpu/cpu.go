package cpu

import (
	"github.com/tindale/gobold/internal/addr"
	"github.com/tindale/gobold/internal/memory"
)

// Flag is one of the 4 possible flags used in the flag register (low nibble
// of F is always zero on read).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interrupt vector table, indexed by the lowest set bit of (IE & IF & 0x1F).
var interruptVectors = [5]uint16{0x0040, 0x0048, 0x0050, 0x0058, 0x0060}

// CPU is the register file plus execution state for the opcode dispatch.
type CPU struct {
	a, b, c, d, e, h, l, f uint8
	sp, pc                 uint16

	bus *memory.Bus

	currentOpcode uint16

	interruptsEnabled bool
	eiPending         bool
	halted            bool
	haltBug           bool

	cycles uint64

	// halt set by a fatal decode failure; once true Tick is a no-op.
	fatal    bool
	fatalErr error
}

// New creates a CPU with the post-boot-ROM register state.
func New(bus *memory.Bus) *CPU {
	c := &CPU{bus: bus}
	c.a, c.f = 0x01, 0xB0
	c.b, c.c = 0x00, 0x13
	c.d, c.e = 0x00, 0xD8
	c.h, c.l = 0x01, 0x4D
	c.sp = 0xFFFE
	c.pc = 0x0100
	return c
}

// FatalErr returns the decode-failure error if the CPU has halted on one.
func (c *CPU) FatalErr() error { return c.fatalErr }

// GetPC returns the current program counter, for inspection and debugging.
func (c *CPU) GetPC() uint16 { return c.pc }

// Halted reports whether the CPU is in a low-power HALT state.
func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) getAF() uint16 { return combine(c.a, c.f&0xF0) }
func (c *CPU) getBC() uint16 { return combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return combine(c.h, c.l) }

func (c *CPU) setAF(v uint16) { c.a, c.f = high(v), low(v)&0xF0 }
func (c *CPU) setBC(v uint16) { c.b, c.c = high(v), low(v) }
func (c *CPU) setDE(v uint16) { c.d, c.e = high(v), low(v) }
func (c *CPU) setHL(v uint16) { c.h, c.l = high(v), low(v) }

func combine(hi, lo uint8) uint16 { return uint16(hi)<<8 | uint16(lo) }
func high(v uint16) uint8         { return uint8(v >> 8) }
func low(v uint16) uint8          { return uint8(v) }

// Tick executes one step: interrupt dispatch (if any), then either idles one
// cycle (halted) or fetches and executes a single instruction. It returns
// the number of clock cycles elapsed, which the caller feeds to the bus
// (timer/audio) and display timing.
func (c *CPU) Tick() int {
	if c.fatal {
		return 0
	}

	imeWasSet := c.interruptsEnabled
	pending := c.handleInterrupts()

	if c.halted && pending {
		c.halted = false
		if !imeWasSet {
			c.haltBug = true
		}
	}

	var elapsed int
	switch {
	case pending && imeWasSet:
		// handleInterrupts already charged the dispatch's 20 clock cycles.
		elapsed = 20
	case c.halted:
		elapsed = 4
		c.cycles += uint64(elapsed)
	default:
		elapsed = c.step()
		c.cycles += uint64(elapsed)
	}

	if c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	return elapsed
}

// step fetches and executes exactly one instruction, returning its cost in
// clock cycles (opcode functions report machine cycles; 1 machine cycle is
// 4 clock ticks).
func (c *CPU) step() int {
	op := Decode(c)
	machineCycles := op(c)
	return machineCycles * 4
}

// handleInterrupts implements the interrupt-controller state machine. It
// returns whether a source is pending (IE & IF & 0x1F != 0); if IME is also
// set it dispatches the highest-priority one and charges its 20 clock-cycle
// cost. Halt-wake and halt-bug handling are the caller's responsibility
// (see Tick), since a pending-but-undispatched interrupt must still wake a
// halted CPU even with IME clear.
func (c *CPU) handleInterrupts() bool {
	ie := c.bus.Read(addr.IE)
	iflag := c.bus.Read(addr.IF)
	pending := ie & iflag & 0x1F

	if pending == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	var bitIdx uint8
	for bitIdx = 0; bitIdx < 5; bitIdx++ {
		if pending&(1<<bitIdx) != 0 {
			break
		}
	}

	c.bus.Write(addr.IF, iflag&^(1<<bitIdx))
	c.interruptsEnabled = false
	c.pushStack(c.pc)
	c.pc = interruptVectors[bitIdx]
	c.cycles += 20

	return true
}
