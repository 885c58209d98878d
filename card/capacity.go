package card

import (
	"context"
	"fmt"

	"github.com/Jsfain/go-sdspi/protocol"
)

// readRegister runs a register read transaction: command, R1, start
// token, 16 register bytes, discarded CRC.
func (c *Card) readRegister(op string, index byte) ([protocol.RegisterSize]byte, error) {
	var raw [protocol.RegisterSize]byte
	err := c.withSelect(func() error {
		r1, err := c.sendCommand(index, 0)
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}
		if err := c.waitStartToken(op); err != nil {
			return err
		}
		if err := c.receive(raw[:]); err != nil {
			return err
		}
		return c.skip(protocol.BlockCRCSize)
	})
	return raw, err
}

// ReadCSD reads and decodes the Card-Specific Data register.
func (c *Card) ReadCSD(ctx context.Context) (*protocol.CSD, error) {
	if err := c.requireInit(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled: %w", err)
	}

	raw, err := c.readRegister("read CSD", protocol.CmdSendCSD)
	if err != nil {
		return nil, err
	}
	return protocol.ParseCSD(raw, c.info.Type)
}

// ReadCID reads and decodes the Card Identification register.
func (c *Card) ReadCID(ctx context.Context) (*protocol.CID, error) {
	if err := c.requireInit(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled: %w", err)
	}

	raw, err := c.readRegister("read CID", protocol.CmdSendCID)
	if err != nil {
		return nil, err
	}
	return protocol.ParseCID(raw), nil
}

// Capacity computes the card's total byte capacity from its CSD
// register. The field layout depends on the capacity class established
// by Init.
func (c *Card) Capacity(ctx context.Context) (uint64, error) {
	csd, err := c.ReadCSD(ctx)
	if err != nil {
		return 0, err
	}

	capacity := csd.Capacity()
	c.logDebug("capacity computed",
		"csd_version", csd.Structure+1,
		"bytes", capacity,
	)
	return capacity, nil
}
