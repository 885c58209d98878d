package protocol

import "fmt"

// BuildCommandFrame constructs a 48-bit SD command frame.
//
// Frame structure (most significant bit first on the wire):
//
//	[0 1][INDEX(6)][ARGUMENT(32)][CRC7(7)][1]
//
// which serializes to six bytes:
//
//	[0x40|INDEX][ARG3][ARG2][ARG1][ARG0][CRC7<<1|0x01]
//
// The CRC7 is computed over the leading 40 bits. The frame is built fresh
// on every call; nothing is cached between commands.
//
// Returns the complete frame ready to send, or an error if the index does
// not fit in the 6-bit field.
func BuildCommandFrame(index byte, arg uint32) ([]byte, error) {
	if index > MaxCommandIndex {
		return nil, fmt.Errorf("command index must be 0-%d, got %d", MaxCommandIndex, index)
	}

	frame := make([]byte, FrameSize)
	frame[0] = TransmitBit | index
	frame[1] = byte(arg >> 24)
	frame[2] = byte(arg >> 16)
	frame[3] = byte(arg >> 8)
	frame[4] = byte(arg)

	// Assemble the 40 message bits into the top of a 48-bit register and
	// divide; the stop bit lands in the frame's final bit position.
	message := uint64(frame[0])<<40 | uint64(arg)<<8
	frame[5] = CRC7(message) | StopBit

	return frame, nil
}
