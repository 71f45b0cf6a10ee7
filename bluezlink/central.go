// Package bluezlink provides a btlighthouse.Central backed by the BlueZ D-Bus
// API.
//
// Some documentation for the BlueZ D-Bus interface:
// https://git.kernel.org/pub/scm/bluetooth/bluez.git/tree/doc
package bluezlink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fako1024/btlighthouse"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sync/errgroup"
)

const (
	defaultAdapter = "hci0"

	// eventBacklog bounds the discovery feed handed to the consumer
	eventBacklog = 128

	// signalBacklog bounds the raw bus signal channel; buffered generously so
	// no signals are dropped while the pump spins up
	signalBacklog = 1024
)

// Central adapts a BlueZ adapter to the btlighthouse radio capability
type Central struct {
	id      string
	address string
	logger  btlighthouse.Logger

	bus     *dbus.Conn
	bluez   dbus.BusObject // object at /
	adapter dbus.BusObject // object at /org/bluez/hciX

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu     sync.Mutex
	known  map[dbus.ObjectPath]struct{}
	closed bool

	events chan btlighthouse.Event
}

// NewCentral connects to the bus and validates the adapter, executing
// functional options, if any
func NewCentral(options ...func(*Central)) (*Central, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Initialize a new instance of a Central
	c := &Central{
		id:     defaultAdapter,
		logger: &btlighthouse.NullLogger{},
		ctx:    ctx,
		cancel: cancel,
		known:  make(map[dbus.ObjectPath]struct{}),
		events: make(chan btlighthouse.Event, eventBacklog),
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(c)
	}

	var (
		bus *dbus.Conn
		err error
	)
	if c.address == "" {
		bus, err = dbus.ConnectSystemBus()
	} else {
		bus, err = dbus.Connect(c.address, dbus.WithAuth(dbus.AuthAnonymous()))
	}
	if err != nil {
		cancel()
		return nil, err
	}

	c.bus = bus
	c.bluez = bus.Object("org.bluez", dbus.ObjectPath("/"))
	c.adapter = bus.Object("org.bluez", dbus.ObjectPath("/org/bluez/"+c.id))

	if _, err := c.adapter.GetProperty("org.bluez.Adapter1.Address"); err != nil {
		cancel()
		var dbusErr dbus.Error
		if errors.As(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.UnknownObject" {
			return nil, fmt.Errorf("adapter %s does not exist", c.adapter.Path())
		}
		return nil, fmt.Errorf("failed to activate BlueZ adapter: %w", err)
	}

	return c, nil
}

// StartScan sets an LE discovery filter with duplicate data enabled and
// instructs BlueZ to start discovering
func (c *Central) StartScan() error {
	err := c.adapter.CallWithContext(c.ctx, "org.bluez.Adapter1.SetDiscoveryFilter", 0, map[string]interface{}{
		"Transport":     "le",
		"DuplicateData": true,
	}).Err
	if err != nil {
		return fmt.Errorf("failed to set discovery filter: %w", err)
	}

	if err := c.adapter.CallWithContext(c.ctx, "org.bluez.Adapter1.StartDiscovery", 0).Err; err != nil && !isInProgress(err) {
		return fmt.Errorf("failed to start discovery: %w", err)
	}

	return nil
}

// Events subscribes to the ObjectManager / Properties signals of the bus and
// starts the pump translating them into discovery events
func (c *Central) Events() (<-chan btlighthouse.Event, error) {
	signal := make(chan *dbus.Signal, signalBacklog)
	c.bus.Signal(signal)

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface("org.freedesktop.DBus.Properties")},
		{dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager")},
	}
	for _, match := range matches {
		if err := c.bus.AddMatchSignalContext(c.ctx, match...); err != nil {
			c.bus.RemoveSignal(signal)
			return nil, fmt.Errorf("failed to match bus signals: %w", err)
		}
	}

	// Devices BlueZ already knows about never show up as InterfacesAdded, so
	// seed the feed from the managed objects
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := c.bluez.CallWithContext(c.ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managed); err != nil {
		return nil, fmt.Errorf("failed to list managed objects: %w", err)
	}
	for path, interfaces := range managed {
		if _, ok := interfaces["org.bluez.Device1"]; !ok {
			continue
		}
		if !c.ownsPath(path) {
			continue
		}
		c.addKnown(path)
		c.emit(btlighthouse.Event{Kind: btlighthouse.EventDeviceDiscovered, ID: string(path)})
	}

	c.group.Go(func() error {
		defer c.closeFeed()
		c.pump(signal)
		return nil
	})

	return c.events, nil
}

// Peripheral resolves a device object path to a peripheral handle
func (c *Central) Peripheral(id string) (btlighthouse.Peripheral, error) {
	if !c.ownsPath(dbus.ObjectPath(id)) {
		return nil, fmt.Errorf("peripheral %s does not belong to adapter %s", id, c.adapter.Path())
	}

	return &peripheral{
		central: c,
		device:  c.bus.Object("org.bluez", dbus.ObjectPath(id)),
	}, nil
}

// Close stops discovery, ends the feed and disconnects from the bus
func (c *Central) Close() error {
	_ = c.adapter.Call("org.bluez.Adapter1.StopDiscovery", 0).Err
	c.cancel()
	_ = c.group.Wait()

	return c.bus.Close()
}

////////////////////////////////////////////////////////////////////////////////

func (c *Central) pump(signal chan *dbus.Signal) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case sig, ok := <-signal:
			if !ok {
				return
			}
			c.handleSignal(sig)
		}
	}
}

func (c *Central) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case "org.freedesktop.DBus.ObjectManager.InterfacesAdded":
		if len(sig.Body) < 2 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return
		}
		interfaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return
		}
		if _, ok := interfaces["org.bluez.Device1"]; !ok {
			return
		}
		if !c.ownsPath(path) {
			return
		}
		c.addKnown(path)
		c.emit(btlighthouse.Event{Kind: btlighthouse.EventDeviceDiscovered, ID: string(path)})

	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) < 2 {
			return
		}
		if name, ok := sig.Body[0].(string); !ok || name != "org.bluez.Device1" {
			return
		}
		changes, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		if !c.isKnown(sig.Path) {
			return
		}

		if connected, ok := changes["Connected"].Value().(bool); ok {
			kind := btlighthouse.EventDeviceDisconnected
			if connected {
				kind = btlighthouse.EventDeviceConnected
			}
			c.emit(btlighthouse.Event{Kind: kind, ID: string(sig.Path)})
			return
		}

		// Pure signal strength changes are not advertisement updates
		if len(changes) == 1 {
			if _, ok := changes["RSSI"]; ok {
				return
			}
		}
		c.emit(btlighthouse.Event{Kind: btlighthouse.EventDeviceUpdated, ID: string(sig.Path)})
	}
}

func (c *Central) ownsPath(path dbus.ObjectPath) bool {
	return strings.HasPrefix(string(path), string(c.adapter.Path())+"/")
}

func (c *Central) addKnown(path dbus.ObjectPath) {
	c.mu.Lock()
	c.known[path] = struct{}{}
	c.mu.Unlock()
}

func (c *Central) isKnown(path dbus.ObjectPath) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.known[path]
	return ok
}

func (c *Central) emit(ev btlighthouse.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

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

// isInProgress detects the BlueZ error signalling that an operation is
// already underway
func isInProgress(err error) bool {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name == "org.bluez.Error.InProgress" || dbusErr.Error() == "Operation already in progress"
	}

	return false
}
