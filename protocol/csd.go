package protocol

import "fmt"

// CSD framing constants. The SD specification fixes several CSD fields
// to known values; a register that disagrees was framed wrong on the
// wire and is rejected rather than interpreted.
const (
	// CSDStructureV1 is the CSD_STRUCTURE value of standard capacity
	// cards.
	CSDStructureV1 = 0

	// CSDStructureV2 is the CSD_STRUCTURE value of high capacity cards.
	CSDStructureV2 = 1

	// TranSpeed25MHz and TranSpeed50MHz are the only TRAN_SPEED values
	// defined for default and high speed mode.
	TranSpeed25MHz = 0x32
	TranSpeed50MHz = 0x5A

	// TAACV2 is the fixed data read access time of high capacity cards.
	TAACV2 = 0x0E

	// NSACV2 is the fixed clock-cycle access time of high capacity cards.
	NSACV2 = 0x00

	// ReadBlockLenV2 is the fixed READ_BL_LEN of high capacity cards
	// (2^9 = 512 bytes).
	ReadBlockLenV2 = 9

	// ReadBlockLenMin and ReadBlockLenMax bound READ_BL_LEN on standard
	// capacity cards (512 to 2048 byte blocks).
	ReadBlockLenMin = 9
	ReadBlockLenMax = 11
)

// CSDFormatError indicates that a CSD register field did not hold its
// expected framing value, meaning the register was not framed correctly
// on the wire.
type CSDFormatError struct {
	// Field is the CSD field name that failed validation
	Field string

	// Got is the value actually decoded
	Got byte
}

func (e *CSDFormatError) Error() string {
	return fmt.Sprintf("malformed CSD register: %s = 0x%02X", e.Field, e.Got)
}

// CSD holds the Card-Specific Data fields this host consumes. The
// register only lives long enough to compute the capacity; nothing is
// retained across operations.
type CSD struct {
	// Structure is the CSD_STRUCTURE discriminant (CSDStructureV1 or V2)
	Structure byte

	// TAAC, NSAC and TranSpeed are access/transfer timing fields,
	// validated as framing confirmation only
	TAAC      byte
	NSAC      byte
	TranSpeed byte

	// ReadBlockLen is the READ_BL_LEN exponent (block size = 2^n bytes)
	ReadBlockLen byte

	// CSize is the C_SIZE device size field: 12 bits on standard
	// capacity cards, 22 bits on high capacity cards
	CSize uint32

	// CSizeMult is the 3-bit C_SIZE_MULT multiplier exponent; standard
	// capacity cards only
	CSizeMult byte
}

// ParseCSD decodes and validates a raw 16-byte CSD register for the
// given card type. Field layouts differ between the two CSD structure
// versions:
//
//	v1 (SDSC): C_SIZE[73:62] (12 bits) and C_SIZE_MULT[49:47] (3 bits)
//	v2 (SDHC): C_SIZE[69:48] (22 bits)
//
// Any field that disagrees with its expected value yields a
// CSDFormatError; the register bytes are never interpreted further.
func ParseCSD(raw [RegisterSize]byte, cardType CardType) (*CSD, error) {
	csd := &CSD{
		Structure: raw[0] >> 6,
		TAAC:      raw[1],
		NSAC:      raw[2],
		TranSpeed: raw[3],
	}

	if csd.TranSpeed != TranSpeed25MHz && csd.TranSpeed != TranSpeed50MHz {
		return nil, &CSDFormatError{Field: "TRAN_SPEED", Got: csd.TranSpeed}
	}

	switch cardType {
	case TypeSDSC:
		if csd.Structure != CSDStructureV1 {
			return nil, &CSDFormatError{Field: "CSD_STRUCTURE", Got: csd.Structure}
		}
		// TAAC bit 7 is reserved and always zero.
		if csd.TAAC&0x80 != 0 {
			return nil, &CSDFormatError{Field: "TAAC", Got: csd.TAAC}
		}
		csd.ReadBlockLen = raw[5] & 0x0F
		if csd.ReadBlockLen < ReadBlockLenMin || csd.ReadBlockLen > ReadBlockLenMax {
			return nil, &CSDFormatError{Field: "READ_BL_LEN", Got: csd.ReadBlockLen}
		}
		csd.CSize = uint32(raw[6]&0x03)<<10 | uint32(raw[7])<<2 | uint32(raw[8])>>6
		csd.CSizeMult = (raw[9]&0x03)<<1 | raw[10]>>7

	case TypeSDHC:
		if csd.Structure != CSDStructureV2 {
			return nil, &CSDFormatError{Field: "CSD_STRUCTURE", Got: csd.Structure}
		}
		if csd.TAAC != TAACV2 {
			return nil, &CSDFormatError{Field: "TAAC", Got: csd.TAAC}
		}
		if csd.NSAC != NSACV2 {
			return nil, &CSDFormatError{Field: "NSAC", Got: csd.NSAC}
		}
		csd.ReadBlockLen = raw[5] & 0x0F
		if csd.ReadBlockLen != ReadBlockLenV2 {
			return nil, &CSDFormatError{Field: "READ_BL_LEN", Got: csd.ReadBlockLen}
		}
		csd.CSize = uint32(raw[7]&0x3F)<<16 | uint32(raw[8])<<8 | uint32(raw[9])

	default:
		return nil, fmt.Errorf("cannot parse CSD for card type %d", cardType)
	}

	return csd, nil
}

// Capacity computes the card's total byte capacity from the decoded
// size fields:
//
//	v1: (C_SIZE+1) * 2^(C_SIZE_MULT+2) * 2^READ_BL_LEN
//	v2: (C_SIZE+1) * 512 KiB
func (c *CSD) Capacity() uint64 {
	if c.Structure == CSDStructureV2 {
		return uint64(c.CSize+1) * 512 * 1024
	}
	return uint64(c.CSize+1) << (uint(c.CSizeMult) + 2 + uint(c.ReadBlockLen))
}
