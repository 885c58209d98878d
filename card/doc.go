// Package card provides a high-level driver for SD/SDHC cards in SPI
// mode: initialization, block read/write/erase, and register queries,
// over any byte-level bus.
//
// # Overview
//
// The driver owns the transaction protocol on top of a transport.Bus:
//   - The multi-step initialization handshake that brings a card from
//     power-up to ready state and classifies it (version 1/2, SDSC/SDHC)
//   - Single and multi-block reads and writes with token framing
//   - Block range erase
//   - CSD/CID register reads and capacity calculation
//   - Partial-failure recovery for multi-block writes
//
// # Basic Usage
//
//	// User provides the byte-level bus (transport.Bus)
//	bus := myboard.OpenSPI()
//
//	c := card.New(bus)
//	info, err := c.Init(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(info.Version, info.Type)
//
//	var block card.Block
//	if err := c.ReadBlock(ctx, 0, &block); err != nil {
//	    log.Fatal(err)
//	}
//
// # Addressing
//
// All operations take logical block indexes. The driver converts them to
// the card's addressing mode (byte addresses on SDSC, block addresses on
// SDHC) using the CardInfo established by Init, so callers never deal
// with the difference.
//
// # Timeouts
//
// There is no interrupt or asynchronous abort on the bus: every wait is
// bounded by a configurable poll attempt count, and exceeding the bound
// surfaces as a *protocol.CardError whose Timeout() reports true. The
// context passed to multi-block operations is checked between blocks and
// between initialization retries, never mid-byte.
//
// # Partial Write Failure
//
// When the card rejects block k of a multi-block write, the driver stops
// streaming, closes the transfer with the stop transmission token, and
// returns the rejection category. WellWrittenBlocks then reports how
// many blocks the card programmed durably:
//
//	if err := c.WriteBlocks(ctx, addr, data); err != nil {
//	    if ce := protocol.AsCardError(err); ce != nil && ce.Category == protocol.CatWriteError {
//	        n, _ := c.WellWrittenBlocks(ctx)
//	        // first n blocks are durable; retry from addr+n
//	    }
//	}
//
// # Configuration
//
// Customize behavior with functional options:
//
//	c := card.New(bus,
//	    card.WithLogger(myLogger),
//	    card.WithProgressCallback(progressFunc),
//	    card.WithACMD41RetryLimit(254),
//	    card.WithBusyPollLimit(8192),
//	)
//
// # Hardware Independence
//
// This package does NOT implement hardware communication. Users provide
// a transport.Bus for their platform: an SPI peripheral, bit-banged
// GPIO, or an in-memory emulation for testing.
package card
