package card

import (
	"context"
	"fmt"

	"github.com/Jsfain/go-sdspi/protocol"
)

// Init drives the card from power-up to ready state and determines its
// version and capacity class. The sequence is:
//
//  1. Clock out dummy bytes with chip select released (power-up)
//  2. CMD0  GO_IDLE_STATE - card must report exactly in-idle-state
//  3. CMD8  SEND_IF_COND  - splits version 1 from version 2 cards and
//     validates the voltage range / check pattern echo
//  4. CMD59 CRC_ON_OFF    - disables data CRC checking
//  5. APP_CMD + ACMD41 loop until the card leaves idle state
//  6. CMD58 READ_OCR      - confirms power-up, rejects unsupported
//     operating conditions, and picks SDSC vs SDHC from the CCS bit
//
// Init is one-shot and non-resumable: the first failure is returned
// immediately as a *protocol.CardError and nothing is retried except the
// bounded ACMD41 idle loop. On success the returned CardInfo is also
// retained by the Card and consulted by every subsequent operation.
func (c *Card) Init(ctx context.Context) (*protocol.CardInfo, error) {
	const op = "init"

	// The card needs at least 74 clocks with chip select released before
	// it can accept commands.
	c.bus.ChipSelect(false)
	if err := c.clock(c.config.PowerUpClocks); err != nil {
		return nil, err
	}

	var info protocol.CardInfo
	err := c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdGoIdleState, 0)
		if err != nil {
			return err
		}
		if !r1.Idle() {
			return &protocol.CardError{Op: op, Category: protocol.CatGoIdleState, R1: r1}
		}

		version, err := c.checkInterface(op)
		if err != nil {
			return err
		}
		info.Version = version

		r1, err = c.sendCommand(protocol.CmdCRCOnOff, protocol.CRCOff)
		if err != nil {
			return err
		}
		if !r1.Idle() {
			return &protocol.CardError{Op: op, Category: protocol.CatCRCOnOff, R1: r1}
		}

		if err := c.negotiate(ctx, op, version); err != nil {
			return err
		}

		cardType, err := c.readOCR(op)
		if err != nil {
			return err
		}
		info.Type = cardType
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.info = &info
	c.logDebug("card initialized",
		"version", info.Version.String(),
		"type", info.Type.String(),
	)
	return &info, nil
}

// checkInterface runs the CMD8 interface-condition exchange. Version 1
// cards predate CMD8 and reject it; version 2 cards echo the voltage
// range and check pattern, which must match what was sent.
func (c *Card) checkInterface(op string) (protocol.CardVersion, error) {
	r1, err := c.sendCommand(protocol.CmdSendIfCond, protocol.SendIfCondArg)
	if err != nil {
		return 0, err
	}

	switch {
	case r1 == protocol.R1IllegalCommand|protocol.R1InIdleState:
		return protocol.Version1, nil

	case r1.Idle():
		var tail [protocol.R7Size - 1]byte
		if err := c.receive(tail[:]); err != nil {
			return 0, err
		}
		r7 := protocol.ParseR7(r1, tail)
		if !r7.Valid() {
			return 0, &protocol.CardError{Op: op, Category: protocol.CatUnsupportedCard, R1: r1}
		}
		return protocol.Version2, nil

	default:
		return 0, &protocol.CardError{Op: op, Category: protocol.CatSendIfCond, R1: r1}
	}
}

// negotiate repeats APP_CMD + SD_SEND_OP_COND until the card reports it
// has left idle state, bounded by the configured retry limit. Version 2
// cards are told whether this host supports high capacity addressing.
func (c *Card) negotiate(ctx context.Context, op string, version protocol.CardVersion) error {
	var arg uint32
	if version == protocol.Version2 && c.config.HighCapacitySupport {
		arg = protocol.HCSBit
	}

	for attempt := 0; attempt < c.config.ACMD41RetryLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		r1, err := c.sendAppCommand(op, protocol.ACmdSDSendOpCond, arg)
		if err != nil {
			return err
		}
		if r1.Ready() {
			return nil
		}
		if r1.Err() {
			return &protocol.CardError{Op: op, Category: protocol.CatSendOpCond, R1: r1}
		}
	}

	return &protocol.CardError{
		Op:       op,
		Category: protocol.CatOutOfIdleTimeout,
		R1:       protocol.R1InIdleState,
	}
}

// readOCR reads the operating conditions register and derives the
// capacity class. The card must report completed power-up and operating
// conditions this host can work with.
func (c *Card) readOCR(op string) (protocol.CardType, error) {
	r1, err := c.sendCommand(protocol.CmdReadOCR, 0)
	if err != nil {
		return 0, err
	}
	if !r1.Ready() {
		return 0, &protocol.CardError{Op: op, Category: protocol.CatReadOCR, R1: r1}
	}

	var raw [protocol.OCRSize]byte
	if err := c.receive(raw[:]); err != nil {
		return 0, err
	}
	ocr := protocol.ParseOCR(raw)

	if !ocr.PoweredUp() {
		return 0, &protocol.CardError{Op: op, Category: protocol.CatPowerUpNotComplete}
	}
	if !ocr.Supported() {
		return 0, &protocol.CardError{Op: op, Category: protocol.CatUnsupportedCard}
	}

	if ocr.HighCapacity() {
		return protocol.TypeSDHC, nil
	}
	return protocol.TypeSDSC, nil
}
