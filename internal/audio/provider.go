package audio

// Provider is the minimal contract the host audio sink pulls samples from.
// The core only ever produces the "most recent" stereo pair; the pull
// callback copies it without synchronization (see the concurrency notes on
// APU.Sample).
type Provider interface {
	// ReadRegister returns the byte currently backing an audio I/O address.
	ReadRegister(address uint16) uint8
	// WriteRegister applies a byte written to an audio I/O address.
	WriteRegister(address uint16, value uint8)
	// TickFrameSequencer advances the 512 Hz length/envelope/sweep sequencer
	// by one step. Called on a falling edge of divider bit 13.
	TickFrameSequencer()
	// Sample recomputes and returns the current stereo pair at the host
	// sample rate.
	Sample() (left, right float32)
}

var _ Provider = (*APU)(nil)
