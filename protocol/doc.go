// Package protocol implements the wire level of the SD card SPI-mode
// command protocol.
//
// This package provides the command frame builder with its CRC7, the
// response and token decoders, the OCR/CSD/CID register parsers, and the
// structured error type shared by the whole module. It performs no bus
// I/O itself; the card package drives transactions with it.
//
// # Protocol Overview
//
// Every command is a fixed 48-bit frame:
//
//	[0 1][INDEX(6)][ARGUMENT(32)][CRC7(7)][1]
//
// serialized most significant bit first into six bytes. The card answers
// with an R1 status byte, optionally extended to R7 (CMD8, 5 bytes) or
// R2 (CMD13, 2 bytes). Data blocks are framed by single-byte tokens:
//
//	0xFE  start block (single-block transfers, multi-block reads)
//	0xFC  start block (multi-block writes)
//	0xFD  stop transmission (multi-block writes)
//
// and every streamed block is answered by a data response token whose
// low 5 bits report accepted / CRC error / write error.
//
// # Command Frames
//
// Use BuildCommandFrame to create frames ready to clock out:
//
//	frame, err := protocol.BuildCommandFrame(protocol.CmdGoIdleState, 0)
//	// frame = 40 00 00 00 00 95
//
// CRC7 computation is stateless and bit-exact; building the same
// (index, argument) pair twice yields identical bytes.
//
// # Error Handling
//
// Protocol failures are reported as *CardError, pairing an
// operation-level Category with the R1 flags observed at the failure
// point. The synthetic R1Timeout flag (bit 7, unused by the real
// protocol) marks bounded-wait expiry. Code() packs a CardError into the
// legacy 32-bit layout (R1 in bits 0-7, category in bits 8-23) and
// Decode inverts it:
//
//	if ce := protocol.AsCardError(err); ce != nil && ce.Timeout() {
//	    // retry the operation
//	}
package protocol
