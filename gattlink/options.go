package gattlink

import (
	"github.com/fako1024/btlighthouse"
	"github.com/fako1024/gatt"
)

// WithDevice sets the GATT device (e.g. a pre-configured stack)
func WithDevice(device gatt.Device) func(*Central) {
	return func(c *Central) {
		c.device = device
	}
}

// WithLogger sets a logger
func WithLogger(logger btlighthouse.Logger) func(*Central) {
	return func(c *Central) {
		c.logger = logger
	}
}
