package protocol

// Command frame structure constants per the SD Physical Layer Simplified
// Specification, SPI mode.
const (
	// FrameSize is the command frame size in bytes:
	// INDEX(1) + ARGUMENT(4) + CRC7/STOP(1)
	FrameSize = 6

	// TransmitBit is OR-ed into the command index byte. Together with the
	// always-zero start bit it forms the 2-bit "01" transmit prefix.
	TransmitBit = 0x40

	// StopBit terminates the frame; it is OR-ed into the CRC byte.
	StopBit = 0x01

	// MaxCommandIndex is the largest value the 6-bit index field can hold.
	MaxCommandIndex = 63

	// BlockSize is the fixed data block payload size in bytes.
	BlockSize = 512

	// BlockCRCSize is the number of CRC bytes trailing every data block.
	BlockCRCSize = 2
)

// Command indexes per SD spec section 7.3.1.3 (SPI mode command set).
const (
	// CmdGoIdleState (CMD0) resets the card into idle state
	CmdGoIdleState = 0

	// CmdSendIfCond (CMD8) queries the interface condition; distinguishes
	// version 1 from version 2 cards
	CmdSendIfCond = 8

	// CmdSendCSD (CMD9) reads the 16-byte Card-Specific Data register
	CmdSendCSD = 9

	// CmdSendCID (CMD10) reads the 16-byte Card Identification register
	CmdSendCID = 10

	// CmdStopTransmission (CMD12) ends a multi-block read
	CmdStopTransmission = 12

	// CmdSendStatus (CMD13) reads the 2-byte R2 card status
	CmdSendStatus = 13

	// CmdReadSingleBlock (CMD17) reads one data block
	CmdReadSingleBlock = 17

	// CmdReadMultipleBlock (CMD18) starts a continuous block read
	CmdReadMultipleBlock = 18

	// CmdWriteBlock (CMD24) writes one data block
	CmdWriteBlock = 24

	// CmdWriteMultipleBlock (CMD25) starts a continuous block write
	CmdWriteMultipleBlock = 25

	// CmdEraseStartAddr (CMD32) sets the first block to erase
	CmdEraseStartAddr = 32

	// CmdEraseEndAddr (CMD33) sets the last block to erase
	CmdEraseEndAddr = 33

	// CmdErase (CMD38) erases the previously selected block range
	CmdErase = 38

	// CmdAppCmd (CMD55) announces that the next command is an ACMD
	CmdAppCmd = 55

	// CmdReadOCR (CMD58) reads the 4-byte Operating Conditions Register
	CmdReadOCR = 58

	// CmdCRCOnOff (CMD59) enables or disables CRC checking
	CmdCRCOnOff = 59

	// ACmdSendNumWrBlocks (ACMD22) reports the number of well written
	// blocks after a failed multi-block write
	ACmdSendNumWrBlocks = 22

	// ACmdSDSendOpCond (ACMD41) starts card initialization
	ACmdSDSendOpCond = 41
)

// Command arguments.
const (
	// SendIfCondArg is the fixed CMD8 argument: voltage range nibble 0x1
	// (2.7-3.6 V) and check pattern 0xAA.
	SendIfCondArg = 0x000001AA

	// CheckPattern is the CMD8 echo byte the card must return verbatim.
	CheckPattern = 0xAA

	// VoltageRangeAccepted is the CMD8 voltage range nibble the card must
	// echo to be usable by this host.
	VoltageRangeAccepted = 0x01

	// HCSBit (Host Capacity Support) is set in the ACMD41 argument when
	// the host can handle high-capacity cards.
	HCSBit = 0x40000000

	// CRCOff disables CRC checking when passed as the CMD59 argument.
	CRCOff = 0

	// CRCOn enables CRC checking when passed as the CMD59 argument.
	CRCOn = 1
)

// Data transfer tokens per SD spec section 7.3.3.2.
const (
	// StartBlockToken frames each data block of single-block transfers and
	// multi-block reads.
	StartBlockToken = 0xFE

	// MultiWriteToken frames each data block of a multi-block write.
	MultiWriteToken = 0xFC

	// StopTranToken ends a multi-block write.
	StopTranToken = 0xFD
)

// Data response token values (received byte masked with DataResponseMask)
// per SD spec section 7.3.3.1.
const (
	// DataResponseMask selects the meaningful low 5 bits of the token.
	DataResponseMask = 0x1F

	// DataAccepted indicates the block was accepted for programming.
	DataAccepted = 0x05

	// DataCRCError indicates the block was rejected due to a CRC error.
	DataCRCError = 0x0B

	// DataWriteError indicates the block was rejected due to a write error.
	DataWriteError = 0x0D
)

// OCR register bits (32-bit register, received big-endian: the first byte
// holds bits 31..24) per SD spec section 5.1.
const (
	// OCRPowerUpStatus (bit 31) is set once the card's power-up procedure
	// has finished. CCS is only valid while this bit is set.
	OCRPowerUpStatus = 1 << 31

	// OCRCardCapacityStatus (bit 30, CCS) is set for high-capacity cards.
	OCRCardCapacityStatus = 1 << 30

	// OCRUHSIIStatus (bit 29) is set for UHS-II cards, which this host
	// does not support.
	OCRUHSIIStatus = 1 << 29

	// OCROver2TB (bit 27, CO2T) is set for cards larger than 2 TB, which
	// need addressing this host does not support.
	OCROver2TB = 1 << 27

	// OCRSwitchTo18V (bit 24, S18A) is set when the card accepted a 1.8 V
	// signaling switch, which this host does not support.
	OCRSwitchTo18V = 1 << 24

	// OCRVoltageMask covers the voltage window bits 23..15.
	OCRVoltageMask = 0x1FF << 15

	// OCRVoltageFullRange is the voltage window with every 2.7-3.6 V step
	// accepted, the only window this host negotiates.
	OCRVoltageFullRange = OCRVoltageMask
)

// OCRSize is the OCR register size in bytes as received after CMD58.
const OCRSize = 4

// RegisterSize is the size of the CSD and CID registers in bytes.
const RegisterSize = 16

// R7Size is the total R7 response size in bytes, R1 included.
const R7Size = 5
