package card

import (
	"encoding/binary"

	"github.com/Jsfain/go-sdspi/protocol"
)

// mockCard emulates the card side of the SPI protocol for testing: it
// decodes command frames byte by byte, runs the init handshake, and
// stores block data in memory. Fault injection fields let tests script
// rejections, silence, and per-command error statuses.
type mockCard struct {
	// identity
	version1     bool
	highCapacity bool
	cmd0Response byte   // R1 for CMD0
	cmd8Pattern  byte   // check pattern echoed in R7
	acmd41Rounds int    // rounds reporting idle before ready
	ocrOverride  uint32 // full OCR word; 0 = derive from identity
	csd          [protocol.RegisterSize]byte
	cid          [protocol.RegisterSize]byte

	// storage, keyed by logical block index
	blocks map[uint32]Block

	// fault injection
	mute        bool          // never answer anything
	failR1      map[byte]byte // R1 override per command index
	failWriteAt int           // 1-based ordinal of multi-write block to reject
	rejectToken byte          // data response used for the rejection

	// observable state
	selected     bool
	deselects    int
	receives     int
	commands     []mockCommand
	stopTranSeen bool
	wellWritten  uint32
	acmd41Seen   int

	// protocol state
	idle        bool
	appCmd      bool
	rx          []byte
	cmdBuf      []byte
	writeState  int // wsNone, wsSingle, wsMulti
	writeAddr   uint32
	writePacket []byte
	writeCount  int
	readActive  bool
	readAddr    uint32
}

type mockCommand struct {
	index byte
	arg   uint32
}

const (
	wsNone = iota
	wsSingle
	wsMulti
)

func newMockCard() *mockCard {
	m := &mockCard{
		highCapacity: true,
		cmd0Response: 0x01,
		cmd8Pattern:  protocol.CheckPattern,
		acmd41Rounds: 2,
		rejectToken:  protocol.DataWriteError,
		blocks:       make(map[uint32]Block),
		failR1:       make(map[byte]byte),
	}
	m.csd = testCSDv2(32767) // 16 GiB
	return m
}

// lastCommand returns the most recent frame matching the index, or nil.
func (m *mockCard) lastCommand(index byte) *mockCommand {
	for i := len(m.commands) - 1; i >= 0; i-- {
		if m.commands[i].index == index {
			return &m.commands[i]
		}
	}
	return nil
}

func (m *mockCard) ChipSelect(assert bool) {
	if m.selected && !assert {
		m.deselects++
	}
	m.selected = assert
}

func (m *mockCard) SendByte(b byte) error {
	if !m.selected {
		return nil // power-up clocks and post-deselect padding
	}

	// A command frame in flight collects all six bytes verbatim.
	if len(m.cmdBuf) > 0 {
		m.cmdBuf = append(m.cmdBuf, b)
		if len(m.cmdBuf) == protocol.FrameSize {
			m.handleCommand()
		}
		return nil
	}

	if m.writeState != wsNone {
		m.handleWriteByte(b)
		return nil
	}

	if b&0xC0 == protocol.TransmitBit {
		m.cmdBuf = append(m.cmdBuf, b)
		return nil
	}
	return nil // dummy clocks
}

func (m *mockCard) ReceiveByte() (byte, error) {
	m.receives++
	if !m.selected || m.mute {
		return 0xFF, nil
	}
	if len(m.rx) == 0 && m.readActive {
		m.queueReadBlock()
	}
	if len(m.rx) == 0 {
		return 0xFF, nil
	}
	b := m.rx[0]
	m.rx = m.rx[1:]
	return b, nil
}

func (m *mockCard) queue(bs ...byte) {
	m.rx = append(m.rx, bs...)
}

// blockIndex converts a received command argument back to a logical
// block index according to the card's addressing mode.
func (m *mockCard) blockIndex(arg uint32) uint32 {
	if m.highCapacity {
		return arg
	}
	return arg / protocol.BlockSize
}

func (m *mockCard) queueReadBlock() {
	blk := m.blocks[m.readAddr]
	m.readAddr++
	m.queue(0xFF, protocol.StartBlockToken)
	m.queue(blk[:]...)
	m.queue(0xAA, 0xBB) // block CRC, discarded by the host
}

// r1 builds the card's base status for the current init state.
func (m *mockCard) r1() byte {
	if m.idle {
		return 0x01
	}
	return 0x00
}

func (m *mockCard) handleCommand() {
	index := m.cmdBuf[0] &^ byte(protocol.TransmitBit)
	arg := binary.BigEndian.Uint32(m.cmdBuf[1:5])
	m.cmdBuf = nil
	m.commands = append(m.commands, mockCommand{index: index, arg: arg})

	// A new command supersedes whatever the card was still streaming.
	m.rx = nil
	m.readActive = false
	m.writeState = wsNone
	m.writePacket = nil

	if m.mute {
		return
	}

	if r1, ok := m.failR1[index]; ok {
		m.queue(r1)
		m.appCmd = false
		return
	}

	wasApp := m.appCmd
	m.appCmd = false

	switch {
	case index == protocol.CmdGoIdleState:
		m.idle = true
		m.queue(m.cmd0Response)

	case index == protocol.CmdSendIfCond:
		if m.version1 {
			m.queue(0x05) // illegal command | in idle state
			return
		}
		m.queue(m.r1(), 0x00, 0x00, byte(arg>>8)&0x0F, m.cmd8Pattern)

	case index == protocol.CmdCRCOnOff:
		m.queue(m.r1())

	case index == protocol.CmdAppCmd:
		m.appCmd = true
		m.queue(m.r1())

	case index == protocol.ACmdSDSendOpCond && wasApp:
		m.acmd41Seen++
		if m.acmd41Seen > m.acmd41Rounds {
			m.idle = false
		}
		m.queue(m.r1())

	case index == protocol.ACmdSendNumWrBlocks && wasApp:
		var raw [4]byte
		binary.BigEndian.PutUint32(raw[:], m.wellWritten)
		m.queue(0x00, 0xFF, protocol.StartBlockToken)
		m.queue(raw[:]...)
		m.queue(0xAA, 0xBB)

	case index == protocol.CmdReadOCR:
		ocr := m.ocrWord()
		m.queue(0x00, byte(ocr>>24), byte(ocr>>16), byte(ocr>>8), byte(ocr))

	case index == protocol.CmdSendCSD:
		m.queueRegister(m.csd)

	case index == protocol.CmdSendCID:
		m.queueRegister(m.cid)

	case index == protocol.CmdSendStatus:
		m.queue(m.r1(), 0x00)

	case index == protocol.CmdReadSingleBlock:
		blk := m.blocks[m.blockIndex(arg)]
		m.queue(0x00, 0xFF, protocol.StartBlockToken)
		m.queue(blk[:]...)
		m.queue(0xAA, 0xBB)

	case index == protocol.CmdReadMultipleBlock:
		m.readActive = true
		m.readAddr = m.blockIndex(arg)
		m.queue(0x00)

	case index == protocol.CmdStopTransmission:
		// stuff byte, R1, brief busy
		m.queue(0xFF, 0x00, 0x00, 0xFF)

	case index == protocol.CmdWriteBlock:
		m.writeState = wsSingle
		m.writeAddr = m.blockIndex(arg)
		m.queue(0x00)

	case index == protocol.CmdWriteMultipleBlock:
		m.writeState = wsMulti
		m.writeAddr = m.blockIndex(arg)
		m.writeCount = 0
		m.queue(0x00)

	case index == protocol.CmdEraseStartAddr, index == protocol.CmdEraseEndAddr:
		m.queue(m.r1())

	case index == protocol.CmdErase:
		m.queue(0x00, 0x00, 0x00, 0xFF) // R1, busy, release

	default:
		m.queue(0x04 | m.r1()) // illegal command
	}
}

func (m *mockCard) ocrWord() uint32 {
	if m.ocrOverride != 0 {
		return m.ocrOverride
	}
	ocr := uint32(protocol.OCRPowerUpStatus | protocol.OCRVoltageFullRange)
	if m.highCapacity {
		ocr |= protocol.OCRCardCapacityStatus
	}
	return ocr
}

func (m *mockCard) queueRegister(reg [protocol.RegisterSize]byte) {
	m.queue(0x00, 0xFF, protocol.StartBlockToken)
	m.queue(reg[:]...)
	m.queue(0xAA, 0xBB)
}

// handleWriteByte runs the data phase of write transactions: token,
// payload and CRC collection, data response, and busy signaling.
func (m *mockCard) handleWriteByte(b byte) {
	if len(m.writePacket) == 0 {
		switch {
		case m.writeState == wsSingle && b == protocol.StartBlockToken,
			m.writeState == wsMulti && b == protocol.MultiWriteToken:
			m.writePacket = append(m.writePacket, b)
		case m.writeState == wsMulti && b == protocol.StopTranToken:
			m.stopTranSeen = true
			m.writeState = wsNone
			m.queue(0xFF, 0x00, 0x00, 0xFF) // stuff byte, busy, release
		}
		return
	}

	m.writePacket = append(m.writePacket, b)
	if len(m.writePacket) < 1+protocol.BlockSize+protocol.BlockCRCSize {
		return
	}

	payload := m.writePacket[1 : 1+protocol.BlockSize]
	m.writeCount++

	if m.writeState == wsMulti && m.writeCount == m.failWriteAt {
		m.writePacket = nil
		m.wellWritten = uint32(m.writeCount - 1)
		m.queue(m.rejectToken, 0xFF)
		return
	}

	var blk Block
	copy(blk[:], payload)
	m.blocks[m.writeAddr] = blk
	m.writeAddr++
	m.writePacket = nil
	if m.writeState == wsSingle {
		m.writeState = wsNone
		m.wellWritten = 1
	} else {
		m.wellWritten = uint32(m.writeCount)
	}
	m.queue(0xE5, 0x00, 0x00, 0xFF) // accepted, busy, release
}

// testCSDv1 builds a valid version 1 CSD register.
func testCSDv1(readBlockLen byte, cSize uint32, cSizeMult byte) [protocol.RegisterSize]byte {
	var raw [protocol.RegisterSize]byte
	raw[0] = 0x00
	raw[1] = 0x26
	raw[3] = 0x32
	raw[5] = 0x50 | readBlockLen
	raw[6] = byte(cSize >> 10 & 0x03)
	raw[7] = byte(cSize >> 2)
	raw[8] = byte(cSize << 6)
	raw[9] = cSizeMult >> 1 & 0x03
	raw[10] = cSizeMult << 7
	return raw
}

// testCSDv2 builds a valid version 2 CSD register.
func testCSDv2(cSize uint32) [protocol.RegisterSize]byte {
	var raw [protocol.RegisterSize]byte
	raw[0] = 0x40
	raw[1] = 0x0E
	raw[3] = 0x32
	raw[5] = 0x59
	raw[7] = byte(cSize >> 16 & 0x3F)
	raw[8] = byte(cSize >> 8)
	raw[9] = byte(cSize)
	return raw
}
