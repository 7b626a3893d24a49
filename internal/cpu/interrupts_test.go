package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tindale/gobold/internal/addr"
	"github.com/tindale/gobold/internal/memory"
)

func TestInterruptHandling(t *testing.T) {
	t.Run("pending source reported even with IME off", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)

		bus.Write(addr.IF, 0x01)
		bus.Write(addr.IE, 0x01)

		pending := cpu.handleInterrupts()
		assert.True(t, pending)
		assert.Equal(t, uint16(0x100), cpu.pc, "no dispatch happens while IME is clear")
	})

	t.Run("EI arms eiPending, which then sets IME", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.pc = 0xC000
		bus.Write(0xC000, 0xFB) // EI

		op := Decode(cpu)
		op(cpu)
		assert.False(t, cpu.interruptsEnabled)
		assert.True(t, cpu.eiPending)

		if cpu.eiPending {
			cpu.eiPending = false
			cpu.interruptsEnabled = true
		}

		assert.True(t, cpu.interruptsEnabled)
		assert.False(t, cpu.eiPending)
	})

	t.Run("DI disables interrupts immediately", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = true
		cpu.pc = 0xC000
		bus.Write(0xC000, 0xF3) // DI

		op := Decode(cpu)
		op(cpu)
		assert.False(t, cpu.interruptsEnabled)
	})

	t.Run("interrupt priority order dispatches the lowest set bit", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = true

		bus.Write(addr.IF, 0x1F)
		bus.Write(addr.IE, 0x1F)

		cpu.handleInterrupts()

		assert.Equal(t, uint16(0x40), cpu.pc)
		assert.Equal(t, uint8(0xFE), bus.Read(addr.IF))
	})

	t.Run("RETI enables interrupts and returns", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = false
		cpu.sp = 0xFFFE
		cpu.pc = 0xC200

		cpu.pushStack(0x150)

		bus.Write(0xC200, 0xD9) // RETI
		op := Decode(cpu)
		op(cpu)

		assert.True(t, cpu.interruptsEnabled)
		assert.Equal(t, uint16(0x150), cpu.pc)
	})
}

func TestHALTBehavior(t *testing.T) {
	t.Run("HALT with IME=1 and pending interrupt wakes and services", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = true
		cpu.halted = true

		bus.Write(addr.IF, 0x01)
		bus.Write(addr.IE, 0x01)

		imeWasSet := cpu.interruptsEnabled
		pending := cpu.handleInterrupts()
		if cpu.halted && pending {
			cpu.halted = false
			if !imeWasSet {
				cpu.haltBug = true
			}
		}

		assert.False(t, cpu.halted)
		assert.Equal(t, uint16(0x40), cpu.pc)
		assert.False(t, cpu.haltBug)
	})

	t.Run("HALT with IME=0 and pending interrupt wakes but doesn't service", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = false
		cpu.halted = true
		cpu.pc = 0x100

		bus.Write(addr.IF, 0x01)
		bus.Write(addr.IE, 0x01)

		imeWasSet := cpu.interruptsEnabled
		pending := cpu.handleInterrupts()
		if cpu.halted && pending {
			cpu.halted = false
			if !imeWasSet {
				cpu.haltBug = true
			}
		}

		assert.False(t, cpu.halted)
		assert.True(t, cpu.haltBug)
		assert.Equal(t, uint16(0x100), cpu.pc)
	})

	t.Run("HALT with IME=0 and no pending interrupt stays halted", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = false
		cpu.halted = true

		bus.Write(addr.IF, 0x00)
		bus.Write(addr.IE, 0x01)

		pending := cpu.handleInterrupts()
		assert.False(t, pending)
		assert.True(t, cpu.halted)
	})
}

func TestInterruptTiming(t *testing.T) {
	t.Run("interrupt dispatch costs 20 clock cycles", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = true
		cpu.cycles = 0

		bus.Write(addr.IF, 0x01)
		bus.Write(addr.IE, 0x01)

		startCycles := cpu.cycles
		cpu.handleInterrupts()

		assert.Equal(t, uint64(20), cpu.cycles-startCycles)
	})

	t.Run("Tick dispatches through the same accounting", func(t *testing.T) {
		bus := memory.New()
		cpu := New(bus)
		cpu.interruptsEnabled = true
		cpu.pc = 0xC000
		bus.Write(0xC000, 0x00) // NOP, should never execute this tick

		bus.Write(addr.IF, 0x01)
		bus.Write(addr.IE, 0x01)

		elapsed := cpu.Tick()

		assert.Equal(t, 20, elapsed)
		assert.Equal(t, uint16(0x40), cpu.pc)
	})
}
