package protocol

import (
	"encoding/binary"
	"fmt"
)

// CID is the Card Identification register, read with CMD10.
type CID struct {
	// ManufacturerID is the MID field assigned by the SD association
	ManufacturerID byte

	// OEMID is the 2-character OID application ID
	OEMID string

	// ProductName is the 5-character PNM field
	ProductName string

	// Revision is the PRV field, BCD-coded major.minor
	Revision byte

	// SerialNumber is the 32-bit PSN field
	SerialNumber uint32

	// ManufactureYear and ManufactureMonth decode the MDT field; the
	// year is absolute (offset 2000 applied)
	ManufactureYear  int
	ManufactureMonth int
}

// ParseCID decodes a raw 16-byte CID register.
//
// Byte layout:
//
//	[MID(1)][OID(2)][PNM(5)][PRV(1)][PSN(4)][RSVD/MDT(2)][CRC(1)]
func ParseCID(raw [RegisterSize]byte) *CID {
	return &CID{
		ManufacturerID:   raw[0],
		OEMID:            string(raw[1:3]),
		ProductName:      string(raw[3:8]),
		Revision:         raw[8],
		SerialNumber:     binary.BigEndian.Uint32(raw[9:13]),
		ManufactureYear:  2000 + int(raw[13]&0x0F)<<4 + int(raw[14]>>4),
		ManufactureMonth: int(raw[14] & 0x0F),
	}
}

func (c *CID) String() string {
	return fmt.Sprintf("%s %s rev %d.%d serial %08X (%04d-%02d)",
		c.OEMID, c.ProductName, c.Revision>>4, c.Revision&0x0F,
		c.SerialNumber, c.ManufactureYear, c.ManufactureMonth)
}
