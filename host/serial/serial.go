// Package serial is the host-side link to the flight controller's
// telemetry port.
package serial

import (
	"io"
)

// Port is the serial link abstraction. Separate implementations cover
// a real device (github.com/tarm/serial, serial_native.go) and
// in-memory pipes for tests (pipe.go).
type Port interface {
	io.ReadWriteCloser

	// Flush discards any buffered data.
	Flush() error
}

// Config holds the link configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyACM0", "COM3").
	Device string

	// Baud rate. USB CDC links ignore it.
	Baud int

	// Read timeout in milliseconds, 0 blocks.
	ReadTimeout int
}

// DefaultConfig returns the standard telemetry link setup for the
// given device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
