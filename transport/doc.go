// Package transport defines the byte-level bus abstraction used by the SD
// card driver.
//
// The driver never talks to hardware directly. Users provide a Bus
// implementation for their platform (SPI peripheral, bit-banged GPIO, a
// USB-SPI bridge, or an in-memory mock for testing):
//
//	type MySPI struct{ /* ... */ }
//
//	func (s *MySPI) SendByte(b byte) error        { /* clock b out */ }
//	func (s *MySPI) ReceiveByte() (byte, error)   { /* clock 0xFF, read */ }
//	func (s *MySPI) ChipSelect(assert bool)       { /* drive CS line */ }
//
//	c := card.New(&MySPI{})
//
// All Bus calls are blocking; there is no interrupt or asynchronous
// completion path. The driver bounds every wait with an iteration count,
// so a Bus that always returns 0xFF makes operations fail with a timeout
// rather than hang.
package transport
