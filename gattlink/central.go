// Package gattlink provides a btlighthouse.Central backed by the HCI based
// gatt stack.
package gattlink

import (
	"fmt"
	"sync"

	"github.com/fako1024/btlighthouse"
	"github.com/fako1024/gatt"
)

// eventBacklog bounds the discovery feed so slow consumers never stall the
// gatt callback goroutine
const eventBacklog = 128

var defaultClientOptions = []gatt.Option{
	gatt.LnxMaxConnections(1),
	gatt.LnxDeviceID(-1, false),
}

// Central adapts a gatt.Device to the btlighthouse radio capability
type Central struct {
	device gatt.Device
	logger btlighthouse.Logger

	mu          sync.Mutex
	peripherals map[string]*peripheral
	closed      bool

	events chan btlighthouse.Event
}

// NewCentral instantiates a new Central, executing functional options, if any
func NewCentral(options ...func(*Central)) (*Central, error) {

	// Initialize a new instance of a Central
	c := &Central{
		logger:      &btlighthouse.NullLogger{},
		peripherals: make(map[string]*peripheral),
		events:      make(chan btlighthouse.Event, eventBacklog),
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(c)
	}

	// Initialize a new GATT device (if not provided as option)
	if c.device == nil {
		device, err := gatt.NewDevice(defaultClientOptions...)
		if err != nil {
			return nil, err
		}
		c.device = device
	}

	return c, nil
}

// StartScan registers the discovery handlers and initializes the radio. The
// scan itself is enabled from the state change handler once the radio reports
// powered on.
func (c *Central) StartScan() error {
	c.device.Handle(
		gatt.AddPeripheralDiscovered(c.onPeripheralDiscovered),
		gatt.AddPeripheralConnected(c.onPeripheralConnected),
		gatt.AddPeripheralDisconnected(c.onPeripheralDisconnected),
	)

	return c.device.Init(c.onStateChanged)
}

// Events returns the discovery feed
func (c *Central) Events() (<-chan btlighthouse.Event, error) {
	return c.events, nil
}

// Peripheral resolves a previously discovered peripheral by its ID
func (c *Central) Peripheral(id string) (btlighthouse.Peripheral, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.peripherals[id]
	if !ok {
		return nil, fmt.Errorf("unknown peripheral %s", id)
	}

	return p, nil
}

// Close stops scanning and ends the discovery feed
func (c *Central) Close() error {
	err := c.device.StopScanning()
	c.closeFeed()

	return err
}

////////////////////////////////////////////////////////////////////////////////

func (c *Central) onStateChanged(d gatt.Device, s gatt.State) {
	c.logger.Debugf("radio state changed to %v", s)
	c.emit(btlighthouse.Event{Kind: btlighthouse.EventStateChanged})

	switch s {
	case gatt.StatePoweredOn:
		// Duplicate advertisements are wanted so that updates re-trigger
		// matching of already seen base stations
		if err := d.Scan([]gatt.UUID{}, true); err != nil {
			c.logger.Warnf("failed to enable scanning: %s", err)
		}
	case gatt.StatePoweredOff:
		c.closeFeed()
	default:
		if err := d.StopScanning(); err != nil {
			c.logger.Warnf("failed to stop scanning: %s", err)
		}
	}
}

func (c *Central) onPeripheralDiscovered(gp gatt.Peripheral, adv *gatt.Advertisement, rssi int) {
	c.mu.Lock()
	p, known := c.peripherals[gp.ID()]
	if !known {
		p = newPeripheral(c, gp)
		c.peripherals[gp.ID()] = p
	}
	c.mu.Unlock()
	p.update(gp, adv)

	kind := btlighthouse.EventDeviceUpdated
	if !known {
		kind = btlighthouse.EventDeviceDiscovered
		c.logger.Debugf("discovered device `%s/%s`", gp.Name(), gp.ID())
	}
	c.emit(btlighthouse.Event{Kind: kind, ID: gp.ID()})
}

func (c *Central) onPeripheralConnected(gp gatt.Peripheral, err error) {
	c.mu.Lock()
	p := c.peripherals[gp.ID()]
	c.mu.Unlock()
	if p == nil {
		return
	}

	p.setConnected(true, err)
	c.emit(btlighthouse.Event{Kind: btlighthouse.EventDeviceConnected, ID: gp.ID()})
}

func (c *Central) onPeripheralDisconnected(gp gatt.Peripheral, err error) {
	c.mu.Lock()
	p := c.peripherals[gp.ID()]
	c.mu.Unlock()
	if p == nil {
		return
	}

	p.setConnected(false, err)
	c.emit(btlighthouse.Event{Kind: btlighthouse.EventDeviceDisconnected, ID: gp.ID()})
}

////////////////////////////////////////////////////////////////////////////////

func (c *Central) emit(ev btlighthouse.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	// Never block the gatt callback goroutine, advertisements repeat anyway
	select {
	case c.events <- ev:
	default:
		c.logger.Debugf("discovery feed backlog full, dropping event for %s", ev.ID)
	}
}

func (c *Central) closeFeed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.events)
	}
}
