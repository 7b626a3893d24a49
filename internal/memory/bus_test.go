package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tindale/gobold/internal/addr"
)

func TestBus_echoRegionAliasesWorkRAM(t *testing.T) {
	bus := New()

	bus.Write(0xC010, 0x42)

	assert.Equal(t, uint8(0x42), bus.Read(0xE010))
}

func TestBus_ifRegisterAlwaysReadsUpperBitsSet(t *testing.T) {
	bus := New()

	bus.Write(addr.IF, 0x00)

	assert.Equal(t, uint8(0xE0), bus.Read(addr.IF))
}

func TestBus_requestInterruptSetsTheMatchingBit(t *testing.T) {
	bus := New()

	bus.RequestInterrupt(addr.TimerInterrupt)

	assert.True(t, bus.ReadBit(2, addr.IF))
}

func TestBus_joypadReadsActiveLowForPressedButtons(t *testing.T) {
	bus := New()
	bus.Write(addr.P1, 0x10) // select button group (bit 5 clear)

	bus.HandleKeyPress(JoypadA)

	assert.False(t, bus.ReadBit(0, addr.P1), "bit 0 (A) should read low when pressed")
}

func TestBus_joypadReleaseSetsBitBackHigh(t *testing.T) {
	bus := New()
	bus.Write(addr.P1, 0x10)

	bus.HandleKeyPress(JoypadA)
	bus.HandleKeyRelease(JoypadA)

	assert.True(t, bus.ReadBit(0, addr.P1))
}

func TestBus_keyPressRequestsJoypadInterrupt(t *testing.T) {
	bus := New()
	bus.Write(addr.P1, 0x10)

	bus.HandleKeyPress(JoypadA)

	assert.True(t, bus.ReadBit(4, addr.IF))
}

func TestBus_dmaCopiesToOAM(t *testing.T) {
	bus := New()
	for i := uint16(0); i < 160; i++ {
		bus.Write(0xC000+i, uint8(i))
	}

	bus.Write(addr.DMA, 0xC0)

	for i := uint16(0); i < 160; i++ {
		assert.Equal(t, uint8(i), bus.Read(0xFE00+i))
	}
}

func TestBus_newSeedsPostBootRegisterTable(t *testing.T) {
	bus := New()

	assert.Equal(t, uint8(0x91), bus.Read(addr.LCDC), "LCD must boot enabled, or the display timer never advances")
	assert.Equal(t, uint8(0x85), bus.Read(addr.STAT))
	assert.Equal(t, uint8(0xFC), bus.Read(addr.BGP))
	assert.Equal(t, uint8(0xF1), bus.Read(addr.NR52))
	assert.Equal(t, uint8(0xAB), bus.Read(addr.DIV), "divider seed must be applied via SetTimerSeed, not left at zero")
}

func TestBus_lcdcWriteInvokesHook(t *testing.T) {
	bus := New()
	var notified byte
	calls := 0
	bus.LCDCWriteHook = func(value byte) {
		calls++
		notified = value
	}

	bus.Write(addr.LCDC, 0x00)

	assert.Equal(t, 1, calls)
	assert.Equal(t, uint8(0x00), notified)
	assert.Equal(t, uint8(0x00), bus.Read(addr.LCDC))
}

func TestBus_lcdcWriteWithoutHookDoesNotPanic(t *testing.T) {
	bus := New()

	assert.NotPanics(t, func() { bus.Write(addr.LCDC, 0x00) })
}

func TestBus_read16AndWrite16AreLittleEndian(t *testing.T) {
	bus := New()

	bus.Write16(0xC000, 0xBEEF)

	assert.Equal(t, uint8(0xEF), bus.Read(0xC000))
	assert.Equal(t, uint8(0xBE), bus.Read(0xC001))
	assert.Equal(t, uint16(0xBEEF), bus.Read16(0xC000))
}
