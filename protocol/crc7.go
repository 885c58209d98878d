package protocol

// CRC7 algorithm constants.
const (
	// CRC7Generator is the SD-standard generator polynomial
	// x^7 + x^3 + 1, expressed as the 8-bit divisor 0x89.
	CRC7Generator = 0x89

	// crc7MessageBits is the number of message bits covered by the CRC:
	// the transmit prefix, command index, and argument (40 bits).
	crc7MessageBits = 40

	// crc7TestBit is the initial test position, the top bit of the
	// 48-bit-wide shift register.
	crc7TestBit = uint64(1) << 47

	// crc7Divisor is the generator aligned under the initial test bit.
	crc7Divisor = uint64(CRC7Generator) << crc7MessageBits
)

// CRC7 computes the 7-bit CRC over the leading 40 bits of a command frame.
//
// The message must occupy bits 47..8 of the argument, i.e. the command
// byte (transmit prefix included) in bits 47..40 and the 32-bit argument
// in bits 39..8, with the low 8 bits zero. The returned byte holds the
// CRC in bits 7..1, ready to be OR-ed with the stop bit to form the final
// frame byte.
//
// The computation is pure long division: for each of the 40 message bit
// positions, if the bit under the test position is set, the accumulator
// is XOR-ed with the generator shifted to that position. No state is
// carried between calls.
func CRC7(message uint64) byte {
	acc := message
	test := crc7TestBit
	divisor := crc7Divisor

	for i := 0; i < crc7MessageBits; i++ {
		if acc&test != 0 {
			acc ^= divisor
		}
		test >>= 1
		divisor >>= 1
	}

	// After 40 iterations the remainder sits in bits 7..1.
	return byte(acc)
}
