package protocol

import (
	"fmt"
	"strings"
)

// R1 is the single-byte status every SPI-mode command answers with. A
// value of zero means the command was accepted and the card is out of
// idle state.
//
// Bit 7 is always zero on the wire; this package reuses it as a synthetic
// timeout flag (R1Timeout) so that "no response within the attempt bound"
// can travel in the same byte as the card's own flags.
type R1 byte

// R1 status flags per SD spec section 7.3.2.1.
const (
	// R1InIdleState is set while the card is running its initialization
	// sequence.
	R1InIdleState R1 = 1 << 0

	// R1EraseReset is set when an erase sequence was cleared before
	// executing.
	R1EraseReset R1 = 1 << 1

	// R1IllegalCommand is set when the card received an illegal command.
	R1IllegalCommand R1 = 1 << 2

	// R1CRCError is set when the command CRC check failed.
	R1CRCError R1 = 1 << 3

	// R1EraseSequenceError is set on an error in the erase command
	// sequence.
	R1EraseSequenceError R1 = 1 << 4

	// R1AddressError is set when a misaligned address did not match the
	// block length.
	R1AddressError R1 = 1 << 5

	// R1ParameterError is set when a command argument was out of range.
	R1ParameterError R1 = 1 << 6

	// R1Timeout is NOT part of the SD protocol: it is injected by the
	// response poller when the card never pulled its line off 0xFF within
	// the bounded attempt count.
	R1Timeout R1 = 1 << 7
)

// Ready reports whether the command was accepted with no flags raised.
func (r R1) Ready() bool { return r == 0 }

// Idle reports whether the card is (only) in idle state.
func (r R1) Idle() bool { return r == R1InIdleState }

// Err reports whether any flag beyond in-idle-state is raised, the
// synthetic timeout included.
func (r R1) Err() bool { return r&^R1InIdleState != 0 }

// TimedOut reports whether the synthetic timeout flag is raised.
func (r R1) TimedOut() bool { return r&R1Timeout != 0 }

func (r R1) String() string {
	if r == 0 {
		return "ready"
	}
	var parts []string
	for _, f := range []struct {
		flag R1
		name string
	}{
		{R1Timeout, "response timeout"},
		{R1ParameterError, "parameter error"},
		{R1AddressError, "address error"},
		{R1EraseSequenceError, "erase sequence error"},
		{R1CRCError, "command CRC error"},
		{R1IllegalCommand, "illegal command"},
		{R1EraseReset, "erase reset"},
		{R1InIdleState, "in idle state"},
	} {
		if r&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// R7 is the 5-byte interface-condition response to CMD8.
//
// Byte layout:
//
//	[R1][RESERVED][RESERVED/VERSION][VOLTAGE_ACCEPTED][CHECK_PATTERN]
type R7 struct {
	// R1 is the leading status byte
	R1 R1

	// VoltageAccepted is the low nibble of the fourth byte; it echoes the
	// voltage range the card accepted.
	VoltageAccepted byte

	// CheckPattern is the fifth byte; it echoes the pattern sent in the
	// CMD8 argument.
	CheckPattern byte
}

// ParseR7 extracts the interface condition from the 4 bytes that follow
// the R1 of a CMD8 response.
func ParseR7(r1 R1, tail [R7Size - 1]byte) R7 {
	return R7{
		R1:              r1,
		VoltageAccepted: tail[2] & 0x0F,
		CheckPattern:    tail[3],
	}
}

// Valid reports whether the card echoed back the voltage range and check
// pattern this host sent in the CMD8 argument.
func (r R7) Valid() bool {
	return r.VoltageAccepted == VoltageRangeAccepted && r.CheckPattern == CheckPattern
}

// DataResponse classifies a data response token received after streaming
// a block to the card.
type DataResponse byte

const (
	// DataResponseNone means the byte is not a data response token and
	// polling should continue.
	DataResponseNone DataResponse = iota

	// DataResponseAccepted means the block was accepted for programming.
	DataResponseAccepted

	// DataResponseCRCError means the card rejected the block with a CRC
	// error.
	DataResponseCRCError

	// DataResponseWriteError means the card rejected the block with a
	// write error.
	DataResponseWriteError
)

func (d DataResponse) String() string {
	switch d {
	case DataResponseAccepted:
		return "accepted"
	case DataResponseCRCError:
		return "CRC error"
	case DataResponseWriteError:
		return "write error"
	default:
		return "no token"
	}
}

// ClassifyDataResponse masks a received byte down to the 5 token bits and
// maps it to a DataResponse. Bytes that match none of the defined tokens
// yield DataResponseNone, telling the caller to keep polling.
func ClassifyDataResponse(b byte) DataResponse {
	switch b & DataResponseMask {
	case DataAccepted:
		return DataResponseAccepted
	case DataCRCError:
		return DataResponseCRCError
	case DataWriteError:
		return DataResponseWriteError
	default:
		return DataResponseNone
	}
}

// R2 is the 2-byte status response to CMD13: the usual R1 followed by a
// second status byte obtained with one extra receive.
type R2 struct {
	// R1 is the leading status byte
	R1 R1

	// Status is the second byte, carrying write-protect, lock and ECC
	// error flags.
	Status byte
}

func (r R2) String() string {
	return fmt.Sprintf("%s, status 0x%02X", r.R1, r.Status)
}
