package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tindale/gobold/internal/memory"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name           string
		memorySetup    map[uint16]uint8
		pc             uint16
		expectedOpcode uint16
	}{
		{
			name:           "NOP",
			memorySetup:    map[uint16]uint8{0xC000: 0x00},
			pc:             0xC000,
			expectedOpcode: 0x00,
		},
		{
			name:           "INC B",
			memorySetup:    map[uint16]uint8{0xC000: 0x04},
			pc:             0xC000,
			expectedOpcode: 0x04,
		},
		{
			name: "CB BIT 0,B",
			memorySetup: map[uint16]uint8{
				0xC000: 0xCB,
				0xC001: 0x40,
			},
			pc:             0xC000,
			expectedOpcode: 0xCB40,
		},
		{
			name: "CB SET 7,A",
			memorySetup: map[uint16]uint8{
				0xC000: 0xCB,
				0xC001: 0xFF,
			},
			pc:             0xC000,
			expectedOpcode: 0xCBFF,
		},
		{
			name: "LD B,0xCB (not CB prefix)",
			memorySetup: map[uint16]uint8{
				0xC000: 0x06,
				0xC001: 0xCB,
			},
			pc:             0xC000,
			expectedOpcode: 0x06,
		},
		{
			name:           "HALT",
			memorySetup:    map[uint16]uint8{0xC000: 0x76},
			pc:             0xC000,
			expectedOpcode: 0x76,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := memory.New()
			cpu := &CPU{bus: bus, pc: tt.pc}

			for addr, value := range tt.memorySetup {
				bus.Write(addr, value)
			}

			initialPC := cpu.pc
			opcode := Decode(cpu)

			assert.Equal(t, initialPC, cpu.pc, "decode must not move pc")
			assert.Equal(t, tt.expectedOpcode, cpu.currentOpcode)
			assert.NotNil(t, opcode)
		})
	}
}

func TestDecodeUndefinedOpcodeFaults(t *testing.T) {
	for _, b := range []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		bus := memory.New()
		cpu := New(bus)
		cpu.pc = 0xC000
		bus.Write(0xC000, b)

		op := Decode(cpu)
		op(cpu)

		assert.True(t, cpu.fatal, "opcode %#x should fault", b)
		assert.Error(t, cpu.FatalErr())
	}
}

func TestDecodeAndExecuteSimpleProgram(t *testing.T) {
	bus := memory.New()
	cpu := New(bus)
	cpu.pc = 0xC000

	// LD B,0x05 ; INC B ; HALT
	bus.Write(0xC000, 0x06)
	bus.Write(0xC001, 0x05)
	bus.Write(0xC002, 0x04)
	bus.Write(0xC003, 0x76)

	op := Decode(cpu)
	cycles := op(cpu)
	assert.Equal(t, 2, cycles)
	assert.Equal(t, uint8(0x05), cpu.b)
	assert.Equal(t, uint16(0xC002), cpu.pc)

	op = Decode(cpu)
	op(cpu)
	assert.Equal(t, uint8(0x06), cpu.b)
	assert.Equal(t, uint16(0xC003), cpu.pc)

	op = Decode(cpu)
	op(cpu)
	assert.True(t, cpu.halted)
}
