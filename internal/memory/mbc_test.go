package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func romOfSize(banks int) []uint8 {
	rom := make([]uint8, banks*0x4000)
	for bank := 0; bank < banks; bank++ {
		// stamp each bank's first byte with its own index, for bank-select assertions.
		rom[bank*0x4000] = uint8(bank)
	}
	return rom
}

func TestMBC1_romBank0WritePromotesToBank1(t *testing.T) {
	mbc := NewMBC1(romOfSize(4), false, 1)

	mbc.Write(0x2000, 0x00)

	assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank register should read as 1, not 0")
}

func TestMBC1_switchableWindowReflectsSelectedBank(t *testing.T) {
	mbc := NewMBC1(romOfSize(4), false, 1)

	mbc.Write(0x2000, 0x03)

	assert.Equal(t, uint8(3), mbc.Read(0x4000))
}

func TestMBC1_ramGatedByEnableWrite(t *testing.T) {
	mbc := NewMBC1(romOfSize(2), false, 1)

	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "RAM should read open-bus before enable")

	mbc.Write(0x0000, 0x0A)
	mbc.Write(0xA000, 0x42)

	assert.Equal(t, uint8(0x42), mbc.Read(0xA000))
}

func TestMBC2_ramIsNibbleWidthAndUpperBitsReadAsSet(t *testing.T) {
	mbc := NewMBC2(romOfSize(2), false)

	mbc.Write(0x0000, 0x0A) // bit 8 of address is 0: RAM enable
	mbc.Write(0xA000, 0xFF)

	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000))

	mbc.Write(0xA000, 0x03)
	assert.Equal(t, uint8(0xF3), mbc.Read(0xA000), "upper nibble always reads as 1s")
}

func TestMBC2_romBankSelectRequiresAddressBit8(t *testing.T) {
	mbc := NewMBC2(romOfSize(4), false)

	mbc.Write(0x0000, 0x02) // bit 8 clear: RAM-enable write, not bank-select
	assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank should remain the default 1")

	mbc.Write(0x0100, 0x02) // bit 8 set: bank-select write
	assert.Equal(t, uint8(2), mbc.Read(0x4000))
}

func TestMBC2_romBank0WritePromotesToBank1(t *testing.T) {
	mbc := NewMBC2(romOfSize(4), false)

	mbc.Write(0x0100, 0x02) // select bank 2 first, so the next write is observable
	mbc.Write(0x0100, 0x00)

	assert.Equal(t, uint8(1), mbc.Read(0x4000))
}

func TestMBC3_ramBankAboveSevenReadsRTCWindowAsZero(t *testing.T) {
	mbc := NewMBC3(romOfSize(2), true, false, 1)

	mbc.Write(0x0000, 0x0A)
	mbc.Write(0x4000, 0x08) // RTC seconds register

	assert.Equal(t, uint8(0), mbc.Read(0xA000))
}

func TestMBC5_romBank0IsValidUnlikeOtherVariants(t *testing.T) {
	mbc := NewMBC5(romOfSize(4), false, false, 1)

	mbc.Write(0x2000, 0x00)

	assert.Equal(t, uint8(0), mbc.Read(0x4000), "MBC5 allows bank 0 in the switchable window")
}

func TestMBC5_nineBitBankNumberCombinesBothRegisters(t *testing.T) {
	mbc := NewMBC5(romOfSize(512), false, false, 1)

	mbc.Write(0x2000, 0xFF) // low 8 bits
	mbc.Write(0x3000, 0x01) // bit 8

	assert.Equal(t, uint8(0xFF), mbc.Read(0x4000), "bank 0x1FF (511) is selected by combining both registers")
}
