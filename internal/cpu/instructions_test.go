package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tindale/gobold/internal/memory"
)

func newTestCPU() *CPU {
	return New(memory.New())
}

func TestCPU_stack(t *testing.T) {
	cpu := newTestCPU()

	cpu.sp = 0xFFFF
	cpu.pushStack(0x0102)

	assert.Equal(t, uint16(0xFFFD), cpu.sp)

	popped := cpu.popStack()

	assert.Equal(t, uint16(0x0102), popped)
	assert.Equal(t, uint16(0xFFFF), cpu.sp)
}

func TestCPU_inc(t *testing.T) {
	cpu := newTestCPU()

	testCases := []struct {
		desc  string
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "increases", arg: 0x0A, want: 0x0B},
		{desc: "sets zero and half carry flag", arg: 0xFF, want: 0, flags: zeroFlag | halfCarryFlag},
		{desc: "sets half carry flag", arg: 0x0F, want: 0x10, flags: halfCarryFlag},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cpu.f = 0
			cpu.a = tc.arg
			cpu.inc(&cpu.a)
			assert.Equal(t, tc.want, cpu.a)
			assert.Equal(t, uint8(tc.flags), cpu.f)
		})
	}
}

func TestCPU_dec(t *testing.T) {
	cpu := newTestCPU()

	testCases := []struct {
		desc  string
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "decreases", arg: 0x0A, want: 0x09, flags: subFlag},
		{desc: "sets half carry on borrow from zero", arg: 0, want: 0xFF, flags: subFlag | halfCarryFlag},
		{desc: "sets zero flag", arg: 0x01, want: 0, flags: subFlag | zeroFlag},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cpu.f = 0
			cpu.a = tc.arg
			cpu.dec(&cpu.a)
			assert.Equal(t, tc.want, cpu.a)
			assert.Equal(t, uint8(tc.flags), cpu.f)
		})
	}
}

func TestCPU_addToA(t *testing.T) {
	cpu := newTestCPU()
	cpu.a = 0x0F
	cpu.addToA(0x01)
	assert.Equal(t, uint8(0x10), cpu.a)
	assert.True(t, cpu.isSetFlag(halfCarryFlag))
	assert.False(t, cpu.isSetFlag(carryFlag))
}

func TestCPU_adc(t *testing.T) {
	cpu := newTestCPU()
	cpu.a = 0xFE
	cpu.setFlag(carryFlag)
	cpu.adc(0x01)
	assert.Equal(t, uint8(0x00), cpu.a)
	assert.True(t, cpu.isSetFlag(zeroFlag))
	assert.True(t, cpu.isSetFlag(carryFlag))
}

func TestCPU_sbc(t *testing.T) {
	cpu := newTestCPU()
	cpu.a = 0x00
	cpu.setFlag(carryFlag)
	cpu.sbc(0x00)
	assert.Equal(t, uint8(0xFF), cpu.a)
	assert.True(t, cpu.isSetFlag(carryFlag))
	assert.True(t, cpu.isSetFlag(subFlag))
}

func TestCPU_cp_doesNotStore(t *testing.T) {
	cpu := newTestCPU()
	cpu.a = 0x10
	cpu.cp(0x10)
	assert.Equal(t, uint8(0x10), cpu.a, "CP must not write back to A")
	assert.True(t, cpu.isSetFlag(zeroFlag))
}

func TestCPU_daa_afterAddition(t *testing.T) {
	cpu := newTestCPU()
	// 0x45 + 0x38 = 0x7D raw; low nibble 0xD > 9 so DAA adds 0x06 -> 0x83,
	// the correct packed-BCD result of 45+38.
	cpu.a = 0x45
	cpu.addToA(0x38)
	cpu.daa()
	assert.Equal(t, uint8(0x83), cpu.a)
	assert.False(t, cpu.isSetFlag(carryFlag))
}

func TestCPU_rlc(t *testing.T) {
	cpu := newTestCPU()

	testCases := []struct {
		desc  string
		reg   *uint8
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "rotates left", reg: &cpu.a, arg: 0x01, want: 0x02},
		{desc: "sets carry flag", reg: &cpu.a, arg: 0x80, want: 0x01, flags: carryFlag},
		{desc: "sets zero flag", reg: &cpu.b, arg: 0, want: 0, flags: zeroFlag},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cpu.f = 0
			*tc.reg = tc.arg
			cpu.rlc(tc.reg)
			assert.Equal(t, tc.want, *tc.reg)
			assert.Equal(t, uint8(tc.flags), cpu.f)
		})
	}
}

func TestCPU_rlca_alwaysClearsZero(t *testing.T) {
	cpu := newTestCPU()
	cpu.a = 0
	cpu.f = 0
	cpu.rlca()
	assert.Equal(t, uint8(0), cpu.a)
	assert.False(t, cpu.isSetFlag(zeroFlag), "RLCA always clears Z even when the result is zero")
}

func TestCPU_bitTest(t *testing.T) {
	cpu := newTestCPU()
	cpu.f = 0
	cpu.bitTest(3, 0x08)
	assert.False(t, cpu.isSetFlag(zeroFlag))
	assert.True(t, cpu.isSetFlag(halfCarryFlag))
	assert.False(t, cpu.isSetFlag(subFlag))

	cpu.bitTest(3, 0x00)
	assert.True(t, cpu.isSetFlag(zeroFlag))
}

func TestCPU_addSPSigned(t *testing.T) {
	cpu := newTestCPU()
	cpu.sp = 0xFFFF
	result := cpu.addSPSigned(1)
	assert.Equal(t, uint16(0x0000), result)
	assert.True(t, cpu.isSetFlag(carryFlag))
	assert.True(t, cpu.isSetFlag(halfCarryFlag))
	assert.False(t, cpu.isSetFlag(zeroFlag))
}
