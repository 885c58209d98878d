package card

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Jsfain/go-sdspi/protocol"
)

// Block is one fixed-size data block payload.
type Block = [protocol.BlockSize]byte

// ReadBlock reads the block at the given logical index into dst.
func (c *Card) ReadBlock(ctx context.Context, block uint32, dst *Block) error {
	const op = "read block"
	if err := c.requireInit(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}

	return c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdReadSingleBlock, c.blockArg(block))
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}
		return c.receiveBlock(op, dst)
	})
}

// receiveBlock waits for the start token, streams one payload, and
// discards the trailing CRC (CRC checking is disabled in this mode).
func (c *Card) receiveBlock(op string, dst *Block) error {
	if err := c.waitStartToken(op); err != nil {
		return err
	}
	if err := c.receive(dst[:]); err != nil {
		return err
	}
	return c.skip(protocol.BlockCRCSize)
}

// WriteBlock writes src to the block at the given logical index.
func (c *Card) WriteBlock(ctx context.Context, block uint32, src *Block) error {
	const op = "write block"
	if err := c.requireInit(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}

	return c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdWriteBlock, c.blockArg(block))
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}
		return c.streamBlock(op, protocol.StartBlockToken, src, c.config.BusyPollLimit)
	})
}

// streamBlock sends one token-framed block and interprets the card's
// data response. Accepted blocks are followed by a bounded busy wait;
// rejected blocks return their category immediately, without waiting.
func (c *Card) streamBlock(op string, token byte, src *Block, busyLimit int) error {
	if err := c.bus.SendByte(token); err != nil {
		return fmt.Errorf("send token: %w", err)
	}
	if err := c.send(src[:]); err != nil {
		return err
	}
	// Dummy CRC; ignored by the card while CRC checking is off.
	if err := c.clock(protocol.BlockCRCSize); err != nil {
		return err
	}

	resp, err := c.dataResponse(op)
	if err != nil {
		return err
	}
	switch resp {
	case protocol.DataResponseAccepted:
		return c.waitNotBusy(op, busyLimit, protocol.CatCardBusyTimeout)
	case protocol.DataResponseCRCError:
		return &protocol.CardError{Op: op, Category: protocol.CatWriteCRCError}
	default:
		return &protocol.CardError{Op: op, Category: protocol.CatWriteError}
	}
}

// ReadBlocks streams n consecutive blocks starting at the given logical
// index, invoking sink with each block's index and payload. The payload
// buffer is reused between blocks; sinks that keep the data must copy it.
// A sink error aborts the stream (the stop command is still sent).
func (c *Card) ReadBlocks(ctx context.Context, block uint32, n int, sink func(index int, data *Block) error) error {
	const op = "read blocks"
	if err := c.requireInit(); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("block count must be positive, got %d", n)
	}

	started := time.Now()
	return c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdReadMultipleBlock, c.blockArg(block))
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}

		var buf Block
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return c.stopRead(op, fmt.Errorf("cancelled: %w", err))
			}
			if err := c.receiveBlock(op, &buf); err != nil {
				return c.stopRead(op, err)
			}
			if err := sink(i, &buf); err != nil {
				return c.stopRead(op, fmt.Errorf("sink block %d: %w", i, err))
			}

			c.reportProgress(Progress{
				Phase:            PhaseReading,
				CurrentBlock:     i + 1,
				TotalBlocks:      n,
				BytesTransferred: (i + 1) * protocol.BlockSize,
				ElapsedTime:      time.Since(started),
			})
		}

		if err := c.stopRead(op, nil); err != nil {
			return err
		}
		c.reportProgress(Progress{
			Phase:            PhaseComplete,
			CurrentBlock:     n,
			TotalBlocks:      n,
			BytesTransferred: n * protocol.BlockSize,
			ElapsedTime:      time.Since(started),
		})
		return nil
	})
}

// stopRead terminates a multi-block read with STOP_TRANSMISSION. When
// cause is non-nil the stream is being aborted and cause wins over any
// stop failure.
func (c *Card) stopRead(op string, cause error) error {
	r1, err := c.sendCommand(protocol.CmdStopTransmission, 0)
	if cause != nil {
		return cause
	}
	if err != nil {
		return err
	}
	if !r1.Ready() {
		return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
	}
	return nil
}

// WriteBlocks writes len(data)/512 consecutive blocks starting at the
// given logical index. data length must be an exact multiple of the
// block size.
//
// On a rejected block the engine stops streaming immediately, still
// sends the stop transmission token, and returns the rejection category;
// WellWrittenBlocks then reports how many of the attempted blocks the
// card programmed durably.
func (c *Card) WriteBlocks(ctx context.Context, block uint32, data []byte) error {
	const op = "write blocks"
	if err := c.requireInit(); err != nil {
		return err
	}
	if len(data) == 0 || len(data)%protocol.BlockSize != 0 {
		return fmt.Errorf("data length must be a positive multiple of %d, got %d",
			protocol.BlockSize, len(data))
	}
	n := len(data) / protocol.BlockSize

	started := time.Now()
	return c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdWriteMultipleBlock, c.blockArg(block))
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}

		var buf Block
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return c.stopWrite(op, fmt.Errorf("cancelled: %w", err))
			}
			copy(buf[:], data[i*protocol.BlockSize:])
			if err := c.streamBlock(op, protocol.MultiWriteToken, &buf, c.config.BusyPollLimit); err != nil {
				// Stop issuing further blocks, but the stream must still
				// be closed with the stop transmission token.
				return c.stopWrite(op, err)
			}

			c.reportProgress(Progress{
				Phase:            PhaseWriting,
				CurrentBlock:     i + 1,
				TotalBlocks:      n,
				BytesTransferred: (i + 1) * protocol.BlockSize,
				ElapsedTime:      time.Since(started),
			})
		}

		if err := c.stopWrite(op, nil); err != nil {
			return err
		}
		c.reportProgress(Progress{
			Phase:            PhaseComplete,
			CurrentBlock:     n,
			TotalBlocks:      n,
			BytesTransferred: n * protocol.BlockSize,
			ElapsedTime:      time.Since(started),
		})
		c.logInfo("multi-block write complete",
			"blocks", n,
			"bytes", n*protocol.BlockSize,
			"elapsed", time.Since(started).String(),
		)
		return nil
	})
}

// stopWrite ends a multi-block write with the stop transmission token
// and waits out the card's final busy period. When cause is non-nil the
// stream is being aborted and cause wins over any stop failure.
func (c *Card) stopWrite(op string, cause error) error {
	err := c.bus.SendByte(protocol.StopTranToken)
	if err == nil {
		// One stuff byte before the card drives busy.
		err = c.skip(1)
	}
	if err == nil {
		err = c.waitNotBusy(op, c.config.BusyPollLimit, protocol.CatCardBusyTimeout)
	}

	if cause != nil {
		return cause
	}
	if err != nil {
		return err
	}
	return nil
}

// WellWrittenBlocks reports how many blocks of the preceding multi-block
// write the card programmed durably. It is the only recovery mechanism
// after a partial write failure.
func (c *Card) WellWrittenBlocks(ctx context.Context) (uint32, error) {
	const op = "well written blocks"
	if err := c.requireInit(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("cancelled: %w", err)
	}

	var count uint32
	err := c.withSelect(func() error {
		r1, err := c.sendAppCommand(op, protocol.ACmdSendNumWrBlocks, 0)
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}

		// The count arrives as a 4-byte data block, big-endian.
		if err := c.waitStartToken(op); err != nil {
			return err
		}
		var raw [4]byte
		if err := c.receive(raw[:]); err != nil {
			return err
		}
		count = binary.BigEndian.Uint32(raw[:])
		return c.skip(protocol.BlockCRCSize)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// EraseBlocks erases the inclusive range of logical blocks [first, last].
// The range bounds are passed to the card unvalidated; cards reject a
// reversed range through the erase sequence error flag.
func (c *Card) EraseBlocks(ctx context.Context, first, last uint32) error {
	const op = "erase blocks"
	if err := c.requireInit(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}

	return c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdEraseStartAddr, c.blockArg(first))
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatEraseStartAddr, R1: r1}
		}

		r1, err = c.sendCommand(protocol.CmdEraseEndAddr, c.blockArg(last))
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatEraseEndAddr, R1: r1}
		}

		r1, err = c.sendCommand(protocol.CmdErase, 0)
		if err != nil {
			return err
		}
		if !r1.Ready() {
			return &protocol.CardError{Op: op, Category: protocol.CatErase, R1: r1}
		}

		return c.waitNotBusy(op, c.config.EraseBusyPollLimit, protocol.CatEraseBusyTimeout)
	})
}

// Status reads the 2-byte R2 card status (CMD13).
func (c *Card) Status(ctx context.Context) (protocol.R2, error) {
	const op = "status"
	if err := ctx.Err(); err != nil {
		return protocol.R2{}, fmt.Errorf("cancelled: %w", err)
	}

	var r2 protocol.R2
	err := c.withSelect(func() error {
		r1, err := c.sendCommand(protocol.CmdSendStatus, 0)
		if err != nil {
			return err
		}
		if r1.TimedOut() {
			return &protocol.CardError{Op: op, Category: protocol.CatR1Error, R1: r1}
		}
		// The second status byte follows with one extra receive.
		b, err := c.bus.ReceiveByte()
		if err != nil {
			return fmt.Errorf("receive byte: %w", err)
		}
		r2 = protocol.R2{R1: r1, Status: b}
		return nil
	})
	return r2, err
}
