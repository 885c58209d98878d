package card

import (
	"fmt"

	"github.com/Jsfain/go-sdspi/protocol"
	"github.com/Jsfain/go-sdspi/transport"
)

// Card drives a single SD/SDHC card over a byte-level SPI bus. It owns
// the transaction protocol: command framing, response polling, token
// handling, and the chip-select discipline.
//
// Card is not safe for concurrent use; the underlying bus carries one
// synchronous transaction at a time.
type Card struct {
	bus    transport.Bus
	config Config

	// info is written exactly once, by a successful Init, and read by
	// every address-computing operation afterwards.
	info *protocol.CardInfo
}

// New creates a Card over the given bus.
//
// Example:
//
//	bus := myboard.OpenSPI()
//	c := card.New(bus,
//	    card.WithLogger(myLogger),
//	    card.WithACMD41RetryLimit(200),
//	)
func New(bus transport.Bus, opts ...Option) *Card {
	if bus == nil {
		panic("bus cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Card{
		bus:    bus,
		config: cfg,
	}
}

// Info returns the card description established by Init, or nil if the
// card has not been initialized.
func (c *Card) Info() *protocol.CardInfo {
	return c.info
}

// requireInit guards every operation that computes on-the-wire addresses
// or card-type-dependent layouts.
func (c *Card) requireInit() error {
	if c.info == nil {
		return fmt.Errorf("card not initialized")
	}
	return nil
}

// blockArg converts a logical block index into the command argument the
// card expects: standard capacity cards are byte-addressed, high capacity
// cards block-addressed. The decision comes from the Init-time CardInfo
// and is applied here for every operation.
func (c *Card) blockArg(block uint32) uint32 {
	if c.info.Type == protocol.TypeSDSC {
		return block * protocol.BlockSize
	}
	return block
}

// withSelect runs one transaction with chip select asserted, releasing it
// on every exit path. A trailing dummy byte after deselect gives the card
// the extra clocks it needs to release its data line.
func (c *Card) withSelect(fn func() error) error {
	c.bus.ChipSelect(true)
	defer func() {
		c.bus.ChipSelect(false)
		_ = c.bus.SendByte(0xFF)
	}()
	return fn()
}

// clock sends n dummy 0xFF bytes.
func (c *Card) clock(n int) error {
	for i := 0; i < n; i++ {
		if err := c.bus.SendByte(0xFF); err != nil {
			return fmt.Errorf("send clock byte: %w", err)
		}
	}
	return nil
}

// pollByte receives bytes until done accepts one, bounded by maxAttempts.
// Every "wait for the card" site goes through this helper so that no loop
// in the driver can run unbounded.
func (c *Card) pollByte(maxAttempts int, done func(byte) bool) (byte, bool, error) {
	for i := 0; i < maxAttempts; i++ {
		b, err := c.bus.ReceiveByte()
		if err != nil {
			return 0, false, fmt.Errorf("receive byte: %w", err)
		}
		if done(b) {
			return b, true, nil
		}
	}
	return 0, false, nil
}

// getR1 polls for the R1 status that follows every command. If the card
// never answers within the attempt bound, the synthetic timeout flag is
// returned in place of a real status.
func (c *Card) getR1() (protocol.R1, error) {
	b, ok, err := c.pollByte(c.config.ResponsePollLimit, func(b byte) bool {
		return b != 0xFF
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return protocol.R1Timeout, nil
	}
	return protocol.R1(b), nil
}

// sendCommand frames and sends one command, then polls for its R1.
// Chip select must already be asserted.
func (c *Card) sendCommand(index byte, arg uint32) (protocol.R1, error) {
	frame, err := protocol.BuildCommandFrame(index, arg)
	if err != nil {
		return 0, err
	}
	for _, b := range frame {
		if err := c.bus.SendByte(b); err != nil {
			return 0, fmt.Errorf("send command frame: %w", err)
		}
	}

	// CMD12 is answered after one stuff byte that must be discarded.
	if index == protocol.CmdStopTransmission {
		if _, err := c.bus.ReceiveByte(); err != nil {
			return 0, fmt.Errorf("receive byte: %w", err)
		}
	}

	return c.getR1()
}

// sendAppCommand sends APP_CMD followed by the application command. The
// APP_CMD status must not carry error flags; in-idle-state alone is fine
// since ACMDs are also used during initialization.
func (c *Card) sendAppCommand(op string, index byte, arg uint32) (protocol.R1, error) {
	r1, err := c.sendCommand(protocol.CmdAppCmd, 0)
	if err != nil {
		return 0, err
	}
	if r1.Err() {
		return r1, &protocol.CardError{Op: op, Category: protocol.CatAppCmd, R1: r1}
	}
	return c.sendCommand(index, arg)
}

// waitStartToken polls for the start block token that precedes every data
// block sent by the card.
func (c *Card) waitStartToken(op string) error {
	_, ok, err := c.pollByte(c.config.StartTokenPollLimit, func(b byte) bool {
		return b == protocol.StartBlockToken
	})
	if err != nil {
		return err
	}
	if !ok {
		return &protocol.CardError{Op: op, Category: protocol.CatStartTokenTimeout}
	}
	return nil
}

// dataResponse polls for the data response token after a block has been
// streamed to the card.
func (c *Card) dataResponse(op string) (protocol.DataResponse, error) {
	b, ok, err := c.pollByte(c.config.DataResponsePollLimit, func(b byte) bool {
		return protocol.ClassifyDataResponse(b) != protocol.DataResponseNone
	})
	if err != nil {
		return protocol.DataResponseNone, err
	}
	if !ok {
		return protocol.DataResponseNone, &protocol.CardError{Op: op, Category: protocol.CatDataResponseTimeout}
	}
	return protocol.ClassifyDataResponse(b), nil
}

// waitNotBusy polls until the card releases its data line (any non-zero
// byte). The card signals busy by holding the line at zero.
func (c *Card) waitNotBusy(op string, maxAttempts int, timeoutCat protocol.Category) error {
	_, ok, err := c.pollByte(maxAttempts, func(b byte) bool {
		return b != 0x00
	})
	if err != nil {
		return err
	}
	if !ok {
		return &protocol.CardError{Op: op, Category: timeoutCat}
	}
	return nil
}

// receive fills dst from the bus.
func (c *Card) receive(dst []byte) error {
	for i := range dst {
		b, err := c.bus.ReceiveByte()
		if err != nil {
			return fmt.Errorf("receive byte: %w", err)
		}
		dst[i] = b
	}
	return nil
}

// send streams src onto the bus.
func (c *Card) send(src []byte) error {
	for _, b := range src {
		if err := c.bus.SendByte(b); err != nil {
			return fmt.Errorf("send byte: %w", err)
		}
	}
	return nil
}

// skip discards n received bytes (block CRCs and stuff bytes).
func (c *Card) skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.bus.ReceiveByte(); err != nil {
			return fmt.Errorf("receive byte: %w", err)
		}
	}
	return nil
}

// logDebug logs a debug message if a logger is configured.
func (c *Card) logDebug(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (c *Card) logInfo(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}

// reportProgress calls the progress callback if configured.
func (c *Card) reportProgress(progress Progress) {
	if c.config.ProgressCallback != nil {
		c.config.ProgressCallback(progress)
	}
}
