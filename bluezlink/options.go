package bluezlink

import "github.com/fako1024/btlighthouse"

// WithDevice sets the Bluetooth adapter device (default: hci0)
func WithDevice(device string) func(*Central) {
	return func(c *Central) {
		c.id = device
	}
}

// WithDBusAddress connects to a specific bus instead of the system bus
func WithDBusAddress(address string) func(*Central) {
	return func(c *Central) {
		c.address = address
	}
}

// WithLogger sets a logger
func WithLogger(logger btlighthouse.Logger) func(*Central) {
	return func(c *Central) {
		c.logger = logger
	}
}
