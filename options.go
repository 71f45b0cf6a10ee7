package btlighthouse

import "io"

// WithLogger sets a logger
func WithLogger(logger Logger) func(*Controller) {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithOutput redirects the status line output (default: standard output)
func WithOutput(w io.Writer) func(*Controller) {
	return func(c *Controller) {
		c.out = w
	}
}
