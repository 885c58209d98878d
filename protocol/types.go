package protocol

// CardVersion identifies the card's physical layer specification version,
// determined by the CMD8 interface-condition exchange.
type CardVersion byte

const (
	// Version1 cards predate CMD8 and reject it as an illegal command.
	Version1 CardVersion = 1

	// Version2 cards answer CMD8 with an R7 echo of the voltage range and
	// check pattern.
	Version2 CardVersion = 2
)

func (v CardVersion) String() string {
	switch v {
	case Version1:
		return "v1"
	case Version2:
		return "v2"
	default:
		return "unknown version"
	}
}

// CardType identifies the card's capacity class, reported by the CCS bit
// of the OCR register. The type decides the addressing mode: standard
// capacity cards are byte-addressed, high capacity cards block-addressed.
type CardType byte

const (
	// TypeSDSC is a standard capacity card (byte-addressed).
	TypeSDSC CardType = 1

	// TypeSDHC is a high capacity card (block-addressed).
	TypeSDHC CardType = 2
)

func (t CardType) String() string {
	switch t {
	case TypeSDSC:
		return "SDSC"
	case TypeSDHC:
		return "SDHC"
	default:
		return "unknown type"
	}
}

// CardInfo describes a successfully initialized card. It is produced
// exactly once, by initialization, and is immutable afterwards; every
// address-computing operation reads it to pick the addressing mode.
type CardInfo struct {
	// Version is the physical layer specification version (1 or 2)
	Version CardVersion

	// Type is the capacity class (SDSC or SDHC)
	Type CardType
}

// OCR is the 32-bit Operating Conditions Register, read with CMD58.
type OCR uint32

// ParseOCR assembles the register from the four bytes received after the
// CMD58 R1, most significant byte first.
func ParseOCR(raw [OCRSize]byte) OCR {
	return OCR(raw[0])<<24 | OCR(raw[1])<<16 | OCR(raw[2])<<8 | OCR(raw[3])
}

// PoweredUp reports whether the card has finished its power-up procedure.
func (o OCR) PoweredUp() bool { return o&OCRPowerUpStatus != 0 }

// HighCapacity reports the CCS bit. Only meaningful once PoweredUp.
func (o OCR) HighCapacity() bool { return o&OCRCardCapacityStatus != 0 }

// Supported reports whether the card's operating conditions are usable by
// this host: no UHS-II, no over-2TB addressing, no 1.8 V switch, and the
// full 2.7-3.6 V voltage window accepted.
func (o OCR) Supported() bool {
	if o&(OCRUHSIIStatus|OCROver2TB|OCRSwitchTo18V) != 0 {
		return false
	}
	return uint32(o)&OCRVoltageMask == OCRVoltageFullRange
}
