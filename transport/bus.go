package transport

// Bus is the interface that wraps the byte-level SPI operations the SD
// card driver needs. Implementations are expected to be synchronous and
// byte-atomic: SendByte clocks one byte out, ReceiveByte clocks 0xFF out
// while sampling one byte in.
//
// The driver asserts ChipSelect for the duration of every multi-byte
// transaction and releases it before returning, so implementations only
// need to toggle the line, never to track transaction state.
type Bus interface {
	// SendByte clocks a single byte out on the bus.
	SendByte(b byte) error

	// ReceiveByte clocks 0xFF out and returns the byte sampled in.
	ReceiveByte() (byte, error)

	// ChipSelect drives the card's chip-select line. Assert pulls the
	// line active (low on real hardware), deassert releases it.
	ChipSelect(assert bool)
}
