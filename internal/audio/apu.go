package audio

import (
	"math"

	"github.com/tindale/gobold/internal/addr"
	"github.com/tindale/gobold/internal/bit"
)

// channelKind distinguishes the two synthesis models carried in Channel.
type channelKind uint8

const (
	kindPulse channelKind = iota
	kindWave
)

// Channel holds the generic length/enable state shared by every channel plus
// the fields specific to its synthesis kind.
type Channel struct {
	kind channelKind

	dacEnabled bool
	enabled    bool
	left       bool
	right      bool

	length       uint16 // counts down toward zero at 256 Hz
	lengthEnable bool

	frequency uint16 // 11-bit period register (pulse/wave)

	// pulse-only
	duty            uint8
	initialVolume   uint8
	envelopeUp      bool
	envelopePace    uint8
	envelopeCounter uint8
	volume          uint8

	sweepPeriod  uint8
	sweepDown    bool
	sweepShift   uint8
	sweepTimer   uint8
	sweepEnabled bool
	shadowFreq   uint16

	// wave-only
	outputLevel uint8 // 0..3, see NR32
	samples     [32]uint8
}

func (ch *Channel) maxLength() uint16 {
	if ch.kind == kindWave {
		return 256
	}
	return 64
}

// APU is the audio unit: a 512 Hz frame sequencer driving two pulse channels
// and one custom-wave channel, mixed to a stereo float pair on demand.
type APU struct {
	ch [3]Channel // 0: pulse1 (with sweep), 1: pulse2, 2: wave

	enabled bool

	volLeft, volRight   uint8 // NR50, 0..7
	vinLeft, vinRight   bool
	routing             uint8 // NR51 raw byte, high nibble = left, low nibble = right

	waveRAM [waveRAMSize]uint8

	step int // frame sequencer step, 0..7

	hostSampleRate int
	sampleIndex    uint64

	lastLeft, lastRight float32
}

// New creates an APU with default post-power-on state.
func New() *APU {
	a := &APU{hostSampleRate: 44100}
	a.ch[0].kind = kindPulse
	a.ch[1].kind = kindPulse
	a.ch[2].kind = kindWave
	return a
}

// TickFrameSequencer advances length/envelope/sweep by one 512 Hz step.
func (a *APU) TickFrameSequencer() {
	a.step = (a.step + 1) % 8

	if a.step%2 == 0 {
		a.tickLength()
	}
	if a.step == 2 || a.step == 6 {
		a.tickSweep()
	}
	if a.step == 7 {
		a.tickEnvelope()
	}
}

func (a *APU) tickLength() {
	for i := range a.ch {
		ch := &a.ch[i]
		if !ch.lengthEnable || ch.length == 0 {
			continue
		}
		ch.length--
		if ch.length == 0 {
			ch.enabled = false
		}
	}
}

func (a *APU) tickEnvelope() {
	for i := 0; i < 2; i++ {
		ch := &a.ch[i]
		if ch.envelopePace == 0 {
			continue
		}
		ch.envelopeCounter++
		if ch.envelopeCounter < ch.envelopePace {
			continue
		}
		ch.envelopeCounter = 0
		if ch.envelopeUp && ch.volume < 15 {
			ch.volume++
		} else if !ch.envelopeUp && ch.volume > 0 {
			ch.volume--
		}
	}
}

func (a *APU) tickSweep() {
	ch := &a.ch[0]
	if !ch.sweepEnabled || ch.sweepPeriod == 0 {
		return
	}
	if ch.sweepTimer > 0 {
		ch.sweepTimer--
	}
	if ch.sweepTimer != 0 {
		return
	}
	ch.sweepTimer = ch.sweepPeriod

	newFreq, overflow := a.sweepCalc(ch)
	if overflow {
		ch.enabled = false
		return
	}
	if ch.sweepShift != 0 {
		ch.shadowFreq = newFreq
		ch.frequency = newFreq
		if _, overflow2 := a.sweepCalc(ch); overflow2 {
			ch.enabled = false
		}
	}
}

func (a *APU) sweepCalc(ch *Channel) (uint16, bool) {
	delta := ch.shadowFreq >> ch.sweepShift
	var next uint16
	if ch.sweepDown {
		if delta > ch.shadowFreq {
			next = 0
		} else {
			next = ch.shadowFreq - delta
		}
	} else {
		next = ch.shadowFreq + delta
	}
	return next, next > 2047
}

// triggerPulse (re)starts a pulse channel on a write to NRx4 with bit 7 set.
func (a *APU) triggerPulse(idx int) {
	ch := &a.ch[idx]
	ch.enabled = ch.dacEnabled
	if ch.length == 0 {
		ch.length = ch.maxLength()
	}
	ch.volume = ch.initialVolume
	ch.envelopeCounter = 0

	if idx == 0 {
		ch.shadowFreq = ch.frequency
		ch.sweepTimer = ch.sweepPeriod
		if ch.sweepTimer == 0 {
			ch.sweepTimer = 8
		}
		ch.sweepEnabled = ch.sweepPeriod != 0 || ch.sweepShift != 0
		if ch.sweepShift != 0 {
			if _, overflow := a.sweepCalc(ch); overflow {
				ch.enabled = false
			}
		}
	}
}

func (a *APU) triggerWave(idx int) {
	ch := &a.ch[idx]
	ch.enabled = ch.dacEnabled
	if ch.length == 0 {
		ch.length = ch.maxLength()
	}
	for i := 0; i < waveRAMSize; i++ {
		ch.samples[i*2] = a.waveRAM[i] >> 4
		ch.samples[i*2+1] = a.waveRAM[i] & 0x0F
	}
}

// Sample recomputes the current stereo pair from the phase-based channel
// formulas at the current host-sample time and caches it. The cached value
// is read by Sample's last-written fields without synchronization: the
// audio callback may observe a torn update, an accepted approximation (see
// the concurrency notes carried from the core spec).
func (a *APU) Sample() (left, right float32) {
	t := float64(a.sampleIndex) / float64(a.hostSampleRate)
	a.sampleIndex++

	var leftAcc, rightAcc float64
	var n int

	for i := range a.ch {
		ch := &a.ch[i]
		if !ch.enabled || !ch.dacEnabled {
			continue
		}
		n++
		var out float64
		if ch.kind == kindPulse {
			out = pulseOutput(ch, t)
		} else {
			out = waveOutput(ch, t)
		}
		if ch.left {
			leftAcc += out
		}
		if ch.right {
			rightAcc += out
		}
	}
	if n == 0 {
		n = 1
	}

	leftAcc /= 15 * float64(n)
	rightAcc /= 15 * float64(n)

	leftAcc *= (float64(a.volLeft) + 1) / 16
	rightAcc *= (float64(a.volRight) + 1) / 16

	a.lastLeft = float32(leftAcc)
	a.lastRight = float32(rightAcc)
	return a.lastLeft, a.lastRight
}

func pulseOutput(ch *Channel, t float64) float64 {
	if ch.frequency >= 2048 {
		return 0
	}
	periodS := float64(2048-ch.frequency) * 8 / CPUClockHz
	phase := math.Mod((t-0.125*periodS)/periodS, 1)
	if phase < 0 {
		phase += 1
	}
	threshold := dutyThresholds[ch.duty]
	if phase >= threshold {
		return 0
	}
	return float64(ch.volume)
}

func waveOutput(ch *Channel, t float64) float64 {
	if ch.frequency >= 2048 || ch.outputLevel == 0 {
		return 0
	}
	periodS := float64(2048-ch.frequency) * 8 * 8 / CPUClockHz
	phase := math.Mod(t/periodS, 1)
	if phase < 0 {
		phase += 1
	}
	idx := int(phase * 32)
	if idx > 31 {
		idx = 31
	}
	sample := ch.samples[idx]
	return float64(sample >> (ch.outputLevel - 1))
}

// ReadRegister implements the audio portion of the I/O register map.
func (a *APU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.NR10:
		return packSweep(&a.ch[0])
	case addr.NR11:
		return (a.ch[0].duty << 6) | 0x3F
	case addr.NR12:
		return packEnvelope(&a.ch[0])
	case addr.NR13:
		return 0xFF
	case addr.NR14:
		return packLengthEnable(&a.ch[0])
	case addr.NR21:
		return (a.ch[1].duty << 6) | 0x3F
	case addr.NR22:
		return packEnvelope(&a.ch[1])
	case addr.NR23:
		return 0xFF
	case addr.NR24:
		return packLengthEnable(&a.ch[1])
	case addr.NR30:
		if a.ch[2].dacEnabled {
			return 0xFF
		}
		return 0x7F
	case addr.NR31:
		return 0xFF
	case addr.NR32:
		return (a.ch[2].outputLevel << 5) | 0x9F
	case addr.NR33:
		return 0xFF
	case addr.NR34:
		return packLengthEnable(&a.ch[2])
	case addr.NR50:
		return a.packNR50()
	case addr.NR51:
		return a.routing
	case addr.NR52:
		return a.packNR52()
	default:
		if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
			return a.waveRAM[address-addr.WaveRAMStart]
		}
		return 0xFF
	}
}

// WriteRegister implements the write half, including trigger side effects.
func (a *APU) WriteRegister(address uint16, value uint8) {
	switch address {
	case addr.NR10:
		ch := &a.ch[0]
		ch.sweepPeriod = (value >> 4) & 0x07
		ch.sweepDown = bit.IsSet(3, value)
		ch.sweepShift = value & 0x07
	case addr.NR11:
		ch := &a.ch[0]
		ch.duty = value >> 6
		ch.length = ch.maxLength() - uint16(value&0x3F)
	case addr.NR12:
		ch := &a.ch[0]
		ch.initialVolume = value >> 4
		ch.envelopeUp = bit.IsSet(3, value)
		ch.envelopePace = value & 0x07
		ch.dacEnabled = value&0xF8 != 0
		if !ch.dacEnabled {
			ch.enabled = false
		}
	case addr.NR13:
		ch := &a.ch[0]
		ch.frequency = (ch.frequency & 0x700) | uint16(value)
	case addr.NR14:
		ch := &a.ch[0]
		ch.frequency = (ch.frequency & 0xFF) | (uint16(value&0x07) << 8)
		ch.lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.triggerPulse(0)
		}
	case addr.NR21:
		ch := &a.ch[1]
		ch.duty = value >> 6
		ch.length = ch.maxLength() - uint16(value&0x3F)
	case addr.NR22:
		ch := &a.ch[1]
		ch.initialVolume = value >> 4
		ch.envelopeUp = bit.IsSet(3, value)
		ch.envelopePace = value & 0x07
		ch.dacEnabled = value&0xF8 != 0
		if !ch.dacEnabled {
			ch.enabled = false
		}
	case addr.NR23:
		ch := &a.ch[1]
		ch.frequency = (ch.frequency & 0x700) | uint16(value)
	case addr.NR24:
		ch := &a.ch[1]
		ch.frequency = (ch.frequency & 0xFF) | (uint16(value&0x07) << 8)
		ch.lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.triggerPulse(1)
		}
	case addr.NR30:
		ch := &a.ch[2]
		ch.dacEnabled = bit.IsSet(7, value)
		if !ch.dacEnabled {
			ch.enabled = false
		}
	case addr.NR31:
		ch := &a.ch[2]
		ch.length = ch.maxLength() - uint16(value)
	case addr.NR32:
		a.ch[2].outputLevel = (value >> 5) & 0x03
	case addr.NR33:
		ch := &a.ch[2]
		ch.frequency = (ch.frequency & 0x700) | uint16(value)
	case addr.NR34:
		ch := &a.ch[2]
		ch.frequency = (ch.frequency & 0xFF) | (uint16(value&0x07) << 8)
		ch.lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.triggerWave(2)
		}
	case addr.NR50:
		a.volRight = value & 0x07
		a.vinRight = bit.IsSet(3, value)
		a.volLeft = (value >> 4) & 0x07
		a.vinLeft = bit.IsSet(7, value)
	case addr.NR51:
		a.routing = value
		a.ch[0].right = bit.IsSet(0, value)
		a.ch[1].right = bit.IsSet(1, value)
		a.ch[2].right = bit.IsSet(2, value)
		a.ch[0].left = bit.IsSet(4, value)
		a.ch[1].left = bit.IsSet(5, value)
		a.ch[2].left = bit.IsSet(6, value)
	case addr.NR52:
		a.enabled = bit.IsSet(7, value)
		if !a.enabled {
			for i := range a.ch {
				a.ch[i] = Channel{kind: a.ch[i].kind}
			}
		}
	default:
		if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
			a.waveRAM[address-addr.WaveRAMStart] = value
		}
	}
}

func packSweep(ch *Channel) uint8 {
	v := (ch.sweepPeriod << 4) | ch.sweepShift | 0x80
	if ch.sweepDown {
		v |= 0x08
	}
	return v
}

func packEnvelope(ch *Channel) uint8 {
	v := (ch.initialVolume << 4) | ch.envelopePace
	if ch.envelopeUp {
		v |= 0x08
	}
	return v
}

func packLengthEnable(ch *Channel) uint8 {
	v := uint8(0xBF)
	if ch.lengthEnable {
		v |= 0x40
	}
	return v
}

func (a *APU) packNR50() uint8 {
	v := (a.volLeft << 4) | a.volRight
	if a.vinLeft {
		v |= 0x80
	}
	if a.vinRight {
		v |= 0x08
	}
	return v
}

func (a *APU) packNR52() uint8 {
	v := uint8(0x70)
	if a.enabled {
		v |= 0x80
	}
	for i := range a.ch {
		if a.ch[i].enabled {
			v |= 1 << uint(i)
		}
	}
	return v
}
