package card

// Config holds the driver configuration. All wait bounds are iteration
// counts, not durations: the bus is synchronous and the only way to limit
// a wait is to limit the number of poll attempts.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// ProgressCallback is called during multi-block transfers to report
	// progress (optional)
	ProgressCallback ProgressCallback

	// ResponsePollLimit bounds the receive attempts while waiting for the
	// R1 that follows every command
	ResponsePollLimit int

	// StartTokenPollLimit bounds the receive attempts while waiting for a
	// start block token
	StartTokenPollLimit int

	// DataResponsePollLimit bounds the receive attempts while waiting for
	// a data response token after streaming a block
	DataResponsePollLimit int

	// BusyPollLimit bounds the receive attempts while waiting for the
	// card to release its data line after a write
	BusyPollLimit int

	// EraseBusyPollLimit bounds the busy wait after an erase, which takes
	// far longer than a block program
	EraseBusyPollLimit int

	// ACMD41RetryLimit bounds the initialization loop that repeats
	// APP_CMD + SD_SEND_OP_COND until the card leaves idle state.
	// Observed cards need anywhere from a handful to a few hundred
	// rounds; this is a host policy, not a protocol constant.
	ACMD41RetryLimit int

	// PowerUpClocks is the number of dummy bytes clocked out before the
	// first command; the card requires at least 74 clock cycles
	PowerUpClocks int

	// HighCapacitySupport announces SDHC support to the card during
	// initialization (the ACMD41 HCS bit)
	HighCapacitySupport bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ResponsePollLimit:     255,
		StartTokenPollLimit:   1024,
		DataResponsePollLimit: 255,
		BusyPollLimit:         4096,
		EraseBusyPollLimit:    65535,
		ACMD41RetryLimit:      100,
		PowerUpClocks:         80,
		HighCapacitySupport:   true,
	}
}

// Option is a functional option for configuring the Card.
type Option func(*Config)

// WithLogger sets a logger for driver operations.
//
// Example:
//
//	c := card.New(bus, card.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback to track multi-block transfers.
//
// Example:
//
//	c := card.New(bus,
//	    card.WithProgressCallback(func(p card.Progress) {
//	        fmt.Printf("%s %d/%d\n", p.Phase, p.CurrentBlock, p.TotalBlocks)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithResponsePollLimit sets the R1 poll bound.
func WithResponsePollLimit(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.ResponsePollLimit = attempts
		}
	}
}

// WithStartTokenPollLimit sets the start block token poll bound.
func WithStartTokenPollLimit(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.StartTokenPollLimit = attempts
		}
	}
}

// WithBusyPollLimit sets the post-write busy wait bound.
func WithBusyPollLimit(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.BusyPollLimit = attempts
		}
	}
}

// WithEraseBusyPollLimit sets the post-erase busy wait bound.
func WithEraseBusyPollLimit(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.EraseBusyPollLimit = attempts
		}
	}
}

// WithACMD41RetryLimit sets how many APP_CMD + SD_SEND_OP_COND rounds
// initialization tries before giving up on the card leaving idle state.
//
// Example:
//
//	c := card.New(bus, card.WithACMD41RetryLimit(254))
func WithACMD41RetryLimit(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.ACMD41RetryLimit = retries
		}
	}
}

// WithHighCapacitySupport controls whether initialization announces SDHC
// support to the card. Default is true; disabling it makes high capacity
// cards initialize as standard capacity hosts would see them.
func WithHighCapacitySupport(enabled bool) Option {
	return func(c *Config) {
		c.HighCapacitySupport = enabled
	}
}
