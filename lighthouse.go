// Package btlighthouse discovers Valve base stations ("lighthouses") over
// Bluetooth LE, reads their current power state and optionally commands a new
// one via the power management characteristic.
package btlighthouse

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Controller drives one scan / command run against a radio central
type Controller struct {
	central Central

	logger Logger
	out    io.Writer
}

// New instantiates a new Controller, executing functional options, if any
func New(central Central, options ...func(*Controller)) (*Controller, error) {
	if central == nil {
		return nil, errors.New("no radio central provided")
	}

	// Initialize a new instance of a Controller
	c := &Controller{
		central: central,
		logger:  &NullLogger{},
		out:     os.Stdout,
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Run consumes the discovery feed until the filter completes, the feed ends
// or a radio operation fails. Matched base stations are read and, unless the
// command is a pure scan, driven towards the requested power state, one at a
// time in discovery order. Any transport failure aborts the run.
func (c *Controller) Run(command Command, filter *Filter) (RunState, error) {
	stream, err := Discover(c.central, c.logger)
	if err != nil {
		return StateFailed, err
	}

	for !filter.Completed() {
		dev, err := stream.Next()
		if err != nil {
			return StateFailed, err
		}
		if dev == nil {
			return StateStreamExhausted, nil
		}
		if !filter.Match(dev.Name) {
			continue
		}

		data, err := dev.Peripheral.Read(dev.Characteristic)
		if err != nil {
			return StateFailed, fmt.Errorf("failed to read power state of `%s`: %w", dev.Name, err)
		}
		if len(data) == 0 {
			// No state inferable yet, leave the match open for a later
			// advertisement of the same base station
			c.logger.Debugf("empty power state response from `%s`", dev.Name)
			filter.Restore(dev.Name)
			continue
		}
		current := DecodePowerState(data[0])

		target, ok := command.Target()
		if !ok {
			fmt.Fprintf(c.out, "%s: %s\n", dev.Name, current)
			continue
		}

		fmt.Fprintf(c.out, "%s: %s -> %s\n", dev.Name, current, target)
		if current.Mode == target.Mode {
			// Already in the requested mode, nothing to write
			continue
		}
		if err := dev.Peripheral.WriteWithoutResponse(dev.Characteristic, []byte{target.Encode()}); err != nil {
			return StateFailed, fmt.Errorf("failed to write power state to `%s`: %w", dev.Name, err)
		}
	}

	return StateCompleted, nil
}
