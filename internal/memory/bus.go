package memory

import (
	"fmt"
	"log/slog"

	"github.com/tindale/gobold/internal/addr"
	"github.com/tindale/gobold/internal/audio"
	"github.com/tindale/gobold/internal/bit"
	"github.com/tindale/gobold/internal/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// Bus multiplexes the 16-bit address space across cartridge ROM, banked
// external RAM, work RAM, video RAM, OAM, memory-mapped I/O, high RAM and
// the interrupt-enable register.
type Bus struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	regionMap [256]memRegion

	joypadButtons uint8
	joypadDpad    uint8

	serial SerialPort
	timer  Timer

	// LCDCWriteHook, if set, is invoked with the new value on every write to
	// LCDC, so an external display timer can detect bit 7 being cleared and
	// apply the hardware's power-off reset (see writeIO).
	LCDCWriteHook func(value byte)
}

// postBootDIVSeed is the jeebie-derived internal divider seed at the point
// the DMG boot ROM hands off to the cartridge (systemCounter = 0xABCC,
// giving DIV = 0xAB).
const postBootDIVSeed = 0xABCC

// New creates a Bus with no cartridge loaded, its I/O registers set to the
// documented DMG post-boot-ROM values (see initPostBootRegisters) rather
// than all-zero, matching the state a real cartridge's code actually runs
// against.
func New() *Bus {
	b := &Bus{
		memory:        make([]byte, 0x10000),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	b.serial = serial.NewLogSink(func() { b.RequestInterrupt(addr.SerialInterrupt) })
	b.timer.TimerInterruptHandler = func() { b.RequestInterrupt(addr.TimerInterrupt) }
	b.timer.AudioFrameHandler = func() { b.APU.TickFrameSequencer() }
	initRegionMap(b)
	b.SetTimerSeed(postBootDIVSeed)
	initPostBootRegisters(b)
	return b
}

// initPostBootRegisters seeds the I/O registers with the values the DMG
// boot ROM leaves behind when it hands off to cartridge code, so a ROM that
// never writes e.g. LCDC still runs against display-enabled, post-boot
// hardware state instead of an all-zero register file.
func initPostBootRegisters(b *Bus) {
	regs := []struct {
		address uint16
		value   byte
	}{
		{addr.TAC, 0x00},
		{addr.NR10, 0x80},
		{addr.NR11, 0xBF},
		{addr.NR12, 0xF3},
		{addr.NR14, 0xBF},
		{addr.NR21, 0x3F},
		{addr.NR24, 0xBF},
		{addr.NR30, 0x7F},
		{addr.NR31, 0xFF},
		{addr.NR32, 0x9F},
		{addr.NR34, 0xBF},
		{addr.NR50, 0x77},
		{addr.NR51, 0xF3},
		{addr.NR52, 0xF1},
		{addr.LCDC, 0x91},
		{addr.STAT, 0x85},
		{addr.BGP, 0xFC},
		{addr.OBP0, 0xFF},
		{addr.OBP1, 0xFF},
		{addr.IF, 0xE1},
	}
	for _, r := range regs {
		b.Write(r.address, r.value)
	}
}

// NewWithCartridge creates a Bus with the given cartridge loaded and its MBC
// constructed from the cartridge header.
func NewWithCartridge(cart *Cartridge) *Bus {
	b := New()
	b.cart = cart
	b.mbc = cart.NewMBC()
	return b
}

// Tick advances any I/O subsystem driven by the CPU clock: the divider/timer
// (which in turn drives the audio frame sequencer) and the serial port.
func (b *Bus) Tick(cycles int) {
	b.timer.Tick(cycles)
	if b.serial != nil {
		b.serial.Tick(cycles)
	}
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (b *Bus) SetTimerSeed(seed uint16) {
	b.timer.SetSeed(seed)
}

// transcriber is implemented by serial.LogSink; b.serial is held as a
// SerialPort, so the transcript is reached through this optional interface.
type transcriber interface {
	Transcript() string
}

// SerialTranscript returns everything written to the serial port so far, if
// the attached SerialPort records one. Used by test-ROM harnesses that
// signal completion by printing text over SB/SC.
func (b *Bus) SerialTranscript() string {
	if t, ok := b.serial.(transcriber); ok {
		return t.Transcript()
	}
	return ""
}

func initRegionMap(b *Bus) {
	for i := 0x00; i <= 0x7F; i++ {
		b.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		b.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		b.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		b.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		b.regionMap[i] = regionEcho
	}
	b.regionMap[0xFE] = regionOAM
	b.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the matching bit of the IF register.
func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	flags := b.Read(addr.IF)

	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		return
	}

	b.Write(addr.IF, bit.Set(bitPos, flags))
}

func (b *Bus) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, b.Read(address))
}

func (b *Bus) SetBit(index uint8, address uint16, set bool) {
	value := b.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	b.Write(address, value)
}

// Read16 reads a little-endian 16-bit value.
func (b *Bus) Read16(address uint16) uint16 {
	lo := b.Read(address)
	hi := b.Read(address + 1)
	return bit.Combine(hi, lo)
}

// Write16 writes a little-endian 16-bit value.
func (b *Bus) Write16(address uint16, value uint16) {
	b.Write(address, bit.Low(value))
	b.Write(address+1, bit.High(value))
}

func (b *Bus) Read(address uint16) byte {
	switch b.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if b.mbc == nil {
			slog.Warn("bus: read with no cartridge loaded", "addr", fmt.Sprintf("0x%04X", address))
			return 0
		}
		return b.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return b.memory[address]
	case regionEcho:
		return b.memory[address-0x2000]
	case regionOAM:
		return b.memory[address]
	case regionIO:
		return b.readIO(address)
	default:
		return 0xFF
	}
}

func (b *Bus) readIO(address uint16) byte {
	switch {
	case address == addr.SB || address == addr.SC:
		return b.serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return b.timer.Read(address)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return b.APU.ReadRegister(address)
	case address == addr.IF:
		// The upper 3 bits are unused but always read as 1 on real hardware.
		return b.memory[address] | 0xE0
	default:
		return b.memory[address]
	}
}

func (b *Bus) Write(address uint16, value byte) {
	switch b.regionMap[address>>8] {
	case regionROM:
		if b.mbc == nil {
			slog.Warn("bus: write to ROM with no cartridge loaded", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		b.mbc.Write(address, value)
	case regionVRAM, regionWRAM, regionOAM:
		b.memory[address] = value
	case regionExtRAM:
		if b.mbc == nil {
			slog.Warn("bus: write to external RAM with no cartridge loaded", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		b.mbc.Write(address, value)
	case regionEcho:
		b.memory[address-0x2000] = value
	case regionIO:
		b.writeIO(address, value)
	}
}

func (b *Bus) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		b.writeJoypad(value)
	case address == addr.SB || address == addr.SC:
		b.serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		b.timer.Write(address, value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		b.APU.WriteRegister(address, value)
	case address == addr.IF:
		b.memory[address] = value | 0xE0
	case address == addr.LCDC:
		b.memory[address] = value
		if b.LCDCWriteHook != nil {
			b.LCDCWriteHook(value)
		}
	case address == addr.DMA:
		// Implemented as an atomic copy at the write site; the staggered
		// 160-cycle hardware timing is an explicit non-goal.
		sourceAddr := uint16(value) << 8
		for i := range uint16(160) {
			b.memory[0xFE00+i] = b.Read(sourceAddr + i)
		}
		b.memory[address] = value
	default:
		b.memory[address] = value
	}
}

// updateJoypadRegister recomputes P1 bits 0-3 from the current button state
// and the group-selection bits 4-5. 1 means released, 0 means pressed.
func (b *Bus) updateJoypadRegister() {
	p1 := b.memory[addr.P1]
	result := uint8(0b11000000)
	result |= p1 & 0b00110000

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= b.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= b.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= b.joypadButtons & b.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	b.memory[addr.P1] = result
}

func (b *Bus) writeJoypad(value uint8) {
	b.memory[addr.P1] = value & 0b00110000
	b.updateJoypadRegister()
}

// JoypadKey identifies one of the eight physical buttons.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

func (b *Bus) HandleKeyPress(key JoypadKey) {
	oldButtons, oldDpad := b.joypadButtons, b.joypadDpad

	switch key {
	case JoypadRight:
		b.joypadDpad = bit.Reset(0, b.joypadDpad)
	case JoypadLeft:
		b.joypadDpad = bit.Reset(1, b.joypadDpad)
	case JoypadUp:
		b.joypadDpad = bit.Reset(2, b.joypadDpad)
	case JoypadDown:
		b.joypadDpad = bit.Reset(3, b.joypadDpad)
	case JoypadA:
		b.joypadButtons = bit.Reset(0, b.joypadButtons)
	case JoypadB:
		b.joypadButtons = bit.Reset(1, b.joypadButtons)
	case JoypadSelect:
		b.joypadButtons = bit.Reset(2, b.joypadButtons)
	case JoypadStart:
		b.joypadButtons = bit.Reset(3, b.joypadButtons)
	}

	if (oldButtons & ^b.joypadButtons)|(oldDpad & ^b.joypadDpad) != 0 {
		b.RequestInterrupt(addr.JoypadInterrupt)
	}

	b.updateJoypadRegister()
}

func (b *Bus) HandleKeyRelease(key JoypadKey) {
	switch key {
	case JoypadRight:
		b.joypadDpad = bit.Set(0, b.joypadDpad)
	case JoypadLeft:
		b.joypadDpad = bit.Set(1, b.joypadDpad)
	case JoypadUp:
		b.joypadDpad = bit.Set(2, b.joypadDpad)
	case JoypadDown:
		b.joypadDpad = bit.Set(3, b.joypadDpad)
	case JoypadA:
		b.joypadButtons = bit.Set(0, b.joypadButtons)
	case JoypadB:
		b.joypadButtons = bit.Set(1, b.joypadButtons)
	case JoypadSelect:
		b.joypadButtons = bit.Set(2, b.joypadButtons)
	case JoypadStart:
		b.joypadButtons = bit.Set(3, b.joypadButtons)
	}

	b.updateJoypadRegister()
}
