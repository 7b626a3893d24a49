package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tindale/gobold/internal/memory"
)

func TestNew_postBootRegisterState(t *testing.T) {
	cpu := newTestCPU()

	assert.Equal(t, uint16(0x0100), cpu.pc)
	assert.Equal(t, uint16(0xFFFE), cpu.sp)
	assert.Equal(t, uint16(0x01B0), cpu.getAF())
	assert.Equal(t, uint16(0x0013), cpu.getBC())
	assert.Equal(t, uint16(0x00D8), cpu.getDE())
	assert.Equal(t, uint16(0x014D), cpu.getHL())
}

func TestRegisterPairAliasing(t *testing.T) {
	cpu := newTestCPU()

	cpu.setBC(0x1234)
	assert.Equal(t, uint8(0x12), cpu.b)
	assert.Equal(t, uint8(0x34), cpu.c)
	assert.Equal(t, uint16(0x1234), cpu.getBC())

	cpu.b = 0xAB
	cpu.c = 0xCD
	assert.Equal(t, uint16(0xABCD), cpu.getBC())
}

func TestSetAF_masksLowNibbleOfF(t *testing.T) {
	cpu := newTestCPU()
	cpu.setAF(0x1234)
	assert.Equal(t, uint8(0x30), cpu.f, "low nibble of F always reads zero")
	assert.Equal(t, uint16(0x1230), cpu.getAF())
}

func TestTick_runsThroughASmallProgram(t *testing.T) {
	bus := memory.New()
	cpu := New(bus)
	cpu.pc = 0xC000

	// LD A,0x02 ; ADD A,0x03 ; HALT
	bus.Write(0xC000, 0x3E)
	bus.Write(0xC001, 0x02)
	bus.Write(0xC002, 0xC6)
	bus.Write(0xC003, 0x03)
	bus.Write(0xC004, 0x76)

	cpu.Tick()
	assert.Equal(t, uint8(0x02), cpu.a)

	cpu.Tick()
	assert.Equal(t, uint8(0x05), cpu.a)

	cpu.Tick()
	assert.True(t, cpu.halted)

	elapsed := cpu.Tick()
	assert.Equal(t, 4, elapsed, "a halted CPU idles one machine cycle's worth of clock ticks per Tick")
}
