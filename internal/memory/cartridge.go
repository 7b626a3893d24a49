package memory

import "fmt"

// mbcVariant is the dispatch tag selected from the cartridge-type byte at 0x0147.
type mbcVariant uint8

const (
	variantNone mbcVariant = iota
	variantMBC1
	variantMBC2
	variantMBC3
	variantMBC5
)

// Cartridge holds the raw ROM image plus the header fields the core derives
// from it: the MBC variant, battery/RTC/rumble presence, and RAM bank count.
// Byte 0x0147 (cartridge type) selects the MBC variant and its flags, and
// byte 0x0149 (RAM size code) sets the external RAM bank count the MBC is
// built with (MBC2 uses its fixed built-in RAM instead). The title is
// surfaced for diagnostics and logging only.
type Cartridge struct {
	Title        string
	rom          []uint8
	mbcType      mbcVariant
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
}

// NewCartridge parses a raw ROM image into a Cartridge descriptor.
func NewCartridge(rom []uint8) (*Cartridge, error) {
	if len(rom) < 0x150 {
		return nil, fmt.Errorf("memory: cartridge image too small (%d bytes)", len(rom))
	}

	c := &Cartridge{
		rom:   rom,
		Title: cleanGameboyTitle(rom[0x0134:0x0144]),
	}

	typeByte := rom[0x0147]
	switch {
	case typeByte == 0x00 || typeByte == 0x08 || typeByte == 0x09:
		c.mbcType = variantNone
	case typeByte >= 0x01 && typeByte <= 0x03:
		c.mbcType = variantMBC1
	case typeByte == 0x05 || typeByte == 0x06:
		c.mbcType = variantMBC2
	case typeByte >= 0x0F && typeByte <= 0x13:
		c.mbcType = variantMBC3
	case typeByte >= 0x19 && typeByte <= 0x1E:
		c.mbcType = variantMBC5
	default:
		return nil, fmt.Errorf("memory: unsupported cartridge type byte 0x%02X", typeByte)
	}

	switch typeByte {
	case 0x03, 0x06, 0x09, 0x0D, 0x0F, 0x10, 0x13, 0x1B, 0x1E:
		c.hasBattery = true
	}
	switch typeByte {
	case 0x0F, 0x10:
		c.hasRTC = true
	}
	switch typeByte {
	case 0x1C, 0x1D, 0x1E:
		c.hasRumble = true
	}

	c.ramBankCount = ramBankCountFromHeader(rom[0x0149], c.mbcType)

	return c, nil
}

// ramBankCountFromHeader decodes the RAM-size header byte at 0x0149. MBC2
// carries its own fixed 512x4-bit RAM regardless of this byte.
func ramBankCountFromHeader(sizeByte uint8, variant mbcVariant) uint8 {
	if variant == variantMBC2 {
		return 0
	}
	switch sizeByte {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// NewMBC builds the MBC implementation selected by the cartridge header.
func (c *Cartridge) NewMBC() MBC {
	switch c.mbcType {
	case variantMBC1:
		return NewMBC1(c.rom, c.hasBattery, c.ramBankCount)
	case variantMBC2:
		return NewMBC2(c.rom, c.hasBattery)
	case variantMBC3:
		return NewMBC3(c.rom, c.hasRTC, c.hasBattery, c.ramBankCount)
	case variantMBC5:
		return NewMBC5(c.rom, c.hasRumble, c.hasBattery, c.ramBankCount)
	default:
		return NewNoMBC(c.rom)
	}
}
