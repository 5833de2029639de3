package serialport

import (
	"fmt"

	"go.bug.st/serial"
)

// RealFactory opens hardware serial ports through go.bug.st/serial.
type RealFactory struct{}

// NewRealFactory returns a Factory backed by the operating system.
func NewRealFactory() RealFactory {
	return RealFactory{}
}

// Open opens path with opts. The returned port implements TimeoutPorter.
func (RealFactory) Open(path string, opts PortOptions) (Porter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}
