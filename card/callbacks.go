package card

import "time"

// Transfer phases reported through ProgressCallback.
const (
	// PhaseReading: streaming blocks from the card
	PhaseReading = "reading"

	// PhaseWriting: streaming blocks to the card
	PhaseWriting = "writing"

	// PhaseComplete: the transfer finished successfully
	PhaseComplete = "complete"
)

// Progress contains information about a multi-block transfer in flight.
// Passed to ProgressCallback after every completed block.
type Progress struct {
	// Phase is PhaseReading, PhaseWriting or PhaseComplete
	Phase string

	// CurrentBlock is the number of blocks transferred so far
	CurrentBlock int

	// TotalBlocks is the total number of blocks in the transfer
	TotalBlocks int

	// BytesTransferred is the payload byte count so far
	BytesTransferred int

	// ElapsedTime is the time since the transfer started
	ElapsedTime time.Duration
}

// ProgressCallback is called after each block of a multi-block transfer.
// Implementations should return quickly; the bus is stalled while the
// callback runs.
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the
// driver. This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	c := card.New(bus, card.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
