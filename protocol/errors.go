package protocol

import (
	"errors"
	"fmt"
)

// Category classifies a protocol failure by the operation step that
// produced it. Together with the R1 flags captured at the failure point
// it identifies both the protocol-level and operation-level cause.
type Category uint8

const (
	// CatNone means no operation-level category applies; the R1 flags
	// alone describe the failure.
	CatNone Category = iota

	// CatGoIdleState: CMD0 did not leave the card in idle state
	CatGoIdleState

	// CatSendIfCond: the CMD8 interface-condition exchange failed
	CatSendIfCond

	// CatUnsupportedCard: the card's type or operating conditions are not
	// usable by this host (bad CMD8 echo, UHS-II, over 2 TB, 1.8 V,
	// wrong voltage window)
	CatUnsupportedCard

	// CatCRCOnOff: CMD59 failed
	CatCRCOnOff

	// CatAppCmd: CMD55 failed ahead of an application command
	CatAppCmd

	// CatSendOpCond: ACMD41 reported an error during initialization
	CatSendOpCond

	// CatOutOfIdleTimeout: the card stayed in idle state through the
	// whole ACMD41 retry allowance
	CatOutOfIdleTimeout

	// CatReadOCR: CMD58 failed
	CatReadOCR

	// CatPowerUpNotComplete: the OCR power-up status bit was clear
	CatPowerUpNotComplete

	// CatR1Error: a block I/O command returned a non-ready R1
	CatR1Error

	// CatStartTokenTimeout: the start block token never arrived
	CatStartTokenTimeout

	// CatDataResponseTimeout: no data response token arrived after a
	// block was streamed
	CatDataResponseTimeout

	// CatCardBusyTimeout: the card held its data line busy past the
	// attempt bound
	CatCardBusyTimeout

	// CatWriteCRCError: the card rejected a streamed block with a CRC
	// error token
	CatWriteCRCError

	// CatWriteError: the card rejected a streamed block with a write
	// error token
	CatWriteError

	// CatEraseStartAddr: CMD32 failed
	CatEraseStartAddr

	// CatEraseEndAddr: CMD33 failed
	CatEraseEndAddr

	// CatErase: CMD38 failed
	CatErase

	// CatEraseBusyTimeout: the card stayed busy past the erase attempt
	// bound
	CatEraseBusyTimeout

	// CatCSDFormat: a CSD register field did not match its expected
	// framing value
	CatCSDFormat
)

func (c Category) String() string {
	switch c {
	case CatNone:
		return "protocol error"
	case CatGoIdleState:
		return "go idle state failed"
	case CatSendIfCond:
		return "send interface condition failed"
	case CatUnsupportedCard:
		return "unsupported card type"
	case CatCRCOnOff:
		return "CRC on/off failed"
	case CatAppCmd:
		return "app command failed"
	case CatSendOpCond:
		return "send op cond failed"
	case CatOutOfIdleTimeout:
		return "out of idle timeout"
	case CatReadOCR:
		return "read OCR failed"
	case CatPowerUpNotComplete:
		return "power up not complete"
	case CatR1Error:
		return "R1 error"
	case CatStartTokenTimeout:
		return "start token timeout"
	case CatDataResponseTimeout:
		return "data response timeout"
	case CatCardBusyTimeout:
		return "card busy timeout"
	case CatWriteCRCError:
		return "write CRC error"
	case CatWriteError:
		return "write error"
	case CatEraseStartAddr:
		return "set erase start address failed"
	case CatEraseEndAddr:
		return "set erase end address failed"
	case CatErase:
		return "erase failed"
	case CatEraseBusyTimeout:
		return "erase busy timeout"
	case CatCSDFormat:
		return "malformed CSD register"
	default:
		return fmt.Sprintf("unknown category %d", uint8(c))
	}
}

// CardError is the error type for every protocol-level failure. It pairs
// the operation-level category with the R1 flags observed at the failure
// point, so a single value expresses both causes.
type CardError struct {
	// Op is the operation that failed ("init", "read block", ...)
	Op string

	// Category is the operation-level classification
	Category Category

	// R1 holds the card's status flags at the failure point, the
	// synthetic timeout flag included. Zero when the failing step never
	// reached an R1.
	R1 R1
}

func (e *CardError) Error() string {
	if e.R1 == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Category)
	}
	return fmt.Sprintf("%s: %s (R1: %s)", e.Op, e.Category, e.R1)
}

// Code packs the error into the historical 32-bit layout: R1 flags in
// bits 0-7 and the category in bits 8-23. The mapping is lossless; Decode
// inverts it.
func (e *CardError) Code() uint32 {
	return uint32(e.Category)<<8 | uint32(e.R1)
}

// Decode rebuilds a CardError from a packed 32-bit code. The Op field is
// not part of the packed layout and is left empty.
func Decode(code uint32) *CardError {
	return &CardError{
		Category: Category(code >> 8),
		R1:       R1(code),
	}
}

// Timeout reports whether the failure was a bounded-wait expiry, which
// the caller may retry at the operation level. Card-incompatibility and
// framing failures are never timeouts.
func (e *CardError) Timeout() bool {
	switch e.Category {
	case CatOutOfIdleTimeout, CatStartTokenTimeout, CatDataResponseTimeout,
		CatCardBusyTimeout, CatEraseBusyTimeout:
		return true
	}
	return e.R1.TimedOut()
}

// AsCardError returns the CardError wrapped anywhere in err's chain, or
// nil if there is none.
func AsCardError(err error) *CardError {
	var ce *CardError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
