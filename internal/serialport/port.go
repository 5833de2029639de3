// Package serialport abstracts the serial device a CNC controller hangs off so the
// session layer can be exercised without hardware.
package serialport

import (
	"io"
	"time"
)

// Porter defines the minimal interface needed for a serial port.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with a per-read timeout. go.bug.st/serial ports
// implement it; a Read that times out returns (0, nil).
type TimeoutPorter interface {
	Porter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Factory opens serial ports.
type Factory interface {
	// Open opens the serial port at path with the given options.
	Open(path string, opts PortOptions) (Porter, error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(path string, opts PortOptions) (Porter, error)

// Open calls f(path, opts).
func (f FactoryFunc) Open(path string, opts PortOptions) (Porter, error) {
	return f(path, opts)
}
