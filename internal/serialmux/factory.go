package serialmux

import (
	"go.bug.st/serial"
)

// NewRealSerialMux creates a SerialMux instance backed by a real serial port at the
// given path using the provided serial options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewSerialMux[serial.Port](port), nil
}

// Open opens path through factory and wraps it in a SerialMux. An empty path
// yields a DisabledSerialMux so callers can run without hardware.
func Open(factory SerialPortFactory, path string, opts PortOptions) (SerialMuxInterface, error) {
	if path == "" {
		return NewDisabledSerialMux(), nil
	}
	if factory == nil {
		factory = RealSerialPortFactory{}
	}
	port, err := factory.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux(port), nil
}
