package bluezlink

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fako1024/btlighthouse"
	"github.com/godbus/dbus/v5"
)

// peripheral wraps a BlueZ Device1 object as a btlighthouse.Peripheral
type peripheral struct {
	central *Central
	device  dbus.BusObject

	mu    sync.Mutex
	chars map[string]dbus.BusObject
}

// Properties returns the advertised device properties, or nil if the device
// has vanished from the bus
func (p *peripheral) Properties() (*btlighthouse.Properties, error) {
	var props map[string]dbus.Variant
	err := p.device.CallWithContext(p.central.ctx, "org.freedesktop.DBus.Properties.GetAll", 0, "org.bluez.Device1").Store(&props)
	if err != nil {
		var dbusErr dbus.Error
		if errors.As(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.UnknownObject" {
			return nil, nil
		}
		return nil, err
	}

	return propertiesFromBus(props), nil
}

// Connect establishes a connection to the device, waiting for BlueZ to
// confirm it
func (p *peripheral) Connect() error {
	// Watch for property changes before reading the Connected property, so a
	// connect landing in between is not missed
	signal := make(chan *dbus.Signal, 4)
	defer close(signal)

	p.central.bus.Signal(signal)
	defer p.central.bus.RemoveSignal(signal)

	match := p.connectionMatchOptions()
	if err := p.central.bus.AddMatchSignalContext(p.central.ctx, match...); err != nil {
		return err
	}
	defer func() {
		_ = p.central.bus.RemoveMatchSignal(match...)
	}()

	connected, err := p.device.GetProperty("org.bluez.Device1.Connected")
	if err != nil {
		return err
	}
	if v, ok := connected.Value().(bool); ok && v {
		return nil
	}

	if err := p.device.CallWithContext(p.central.ctx, "org.bluez.Device1.Connect", 0).Err; err != nil && !isInProgress(err) {
		return fmt.Errorf("failed to connect: %w", err)
	}

	return p.awaitConnected(signal, true)
}

// Disconnect drops the connection, waiting for BlueZ to confirm it
func (p *peripheral) Disconnect() error {
	signal := make(chan *dbus.Signal, 4)
	defer close(signal)

	p.central.bus.Signal(signal)
	defer p.central.bus.RemoveSignal(signal)

	match := p.connectionMatchOptions()
	if err := p.central.bus.AddMatchSignalContext(p.central.ctx, match...); err != nil {
		return err
	}
	defer func() {
		_ = p.central.bus.RemoveMatchSignal(match...)
	}()

	connected, err := p.device.GetProperty("org.bluez.Device1.Connected")
	if err != nil {
		return err
	}
	if v, ok := connected.Value().(bool); ok && !v {
		return nil
	}

	if err := p.device.CallWithContext(p.central.ctx, "org.bluez.Device1.Disconnect", 0).Err; err != nil {
		return err
	}

	return p.awaitConnected(signal, false)
}

// DiscoverProfile waits for BlueZ to resolve the device services and collects
// all characteristics below the device object
func (p *peripheral) DiscoverProfile() error {
	if err := p.awaitServicesResolved(); err != nil {
		return err
	}

	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := p.central.bluez.CallWithContext(p.central.ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managed); err != nil {
		return err
	}

	chars := make(map[string]dbus.BusObject)
	for path, interfaces := range managed {
		if !strings.HasPrefix(string(path), string(p.device.Path())+"/service") {
			continue
		}
		properties, ok := interfaces["org.bluez.GattCharacteristic1"]
		if !ok {
			continue
		}
		uuid, ok := properties["UUID"].Value().(string)
		if !ok {
			continue
		}
		chars[strings.ToLower(uuid)] = p.central.bus.Object("org.bluez", path)
	}

	p.mu.Lock()
	p.chars = chars
	p.mu.Unlock()

	return nil
}

// Characteristics lists the characteristics enumerated so far
func (p *peripheral) Characteristics() []btlighthouse.Characteristic {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := make([]btlighthouse.Characteristic, 0, len(p.chars))
	for uuid := range p.chars {
		cs = append(cs, btlighthouse.Characteristic{UUID: uuid})
	}

	return cs
}

// Read returns the current value of a characteristic, reconnecting implicitly
// if required
func (p *peripheral) Read(c btlighthouse.Characteristic) ([]byte, error) {
	char, err := p.characteristic(c)
	if err != nil {
		return nil, err
	}
	if err := p.Connect(); err != nil {
		return nil, err
	}

	var result []byte
	options := make(map[string]interface{})
	if err := char.CallWithContext(p.central.ctx, "org.bluez.GattCharacteristic1.ReadValue", 0, options).Store(&result); err != nil {
		return nil, err
	}

	return result, nil
}

// WriteWithoutResponse issues a write command (no response expected) to a
// characteristic, reconnecting implicitly if required
func (p *peripheral) WriteWithoutResponse(c btlighthouse.Characteristic, data []byte) error {
	char, err := p.characteristic(c)
	if err != nil {
		return err
	}
	if err := p.Connect(); err != nil {
		return err
	}

	return char.CallWithContext(p.central.ctx, "org.bluez.GattCharacteristic1.WriteValue", 0, data, map[string]dbus.Variant{
		"type": dbus.MakeVariant("command"),
	}).Err
}

////////////////////////////////////////////////////////////////////////////////

func (p *peripheral) characteristic(c btlighthouse.Characteristic) (dbus.BusObject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	char, ok := p.chars[c.UUID]
	if !ok {
		return nil, fmt.Errorf("unknown characteristic %s", c.UUID)
	}

	return char, nil
}

func (p *peripheral) connectionMatchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchObjectPath(p.device.Path()),
		dbus.WithMatchArg(0, "org.bluez.Device1"),
		dbus.WithMatchMember("PropertiesChanged"),
	}
}

func (p *peripheral) awaitConnected(signal chan *dbus.Signal, want bool) error {
	for {
		select {
		case <-p.central.ctx.Done():
			return p.central.ctx.Err()
		case sig, ok := <-signal:
			if !ok {
				return errors.New("signal channel closed while awaiting connection change")
			}
			if len(sig.Body) < 2 {
				continue
			}
			changes, ok := sig.Body[1].(map[string]dbus.Variant)
			if !ok {
				continue
			}
			if connected, ok := changes["Connected"].Value().(bool); ok && connected == want {
				return nil
			}
		}
	}
}

func (p *peripheral) awaitServicesResolved() error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.central.ctx.Done():
			return p.central.ctx.Err()
		case <-ticker.C:
			resolved, err := p.device.GetProperty("org.bluez.Device1.ServicesResolved")
			if err != nil {
				return err
			}
			if v, ok := resolved.Value().(bool); ok && v {
				return nil
			}
		}
	}
}

// propertiesFromBus converts raw Device1 properties into advertised
// properties
func propertiesFromBus(props map[string]dbus.Variant) *btlighthouse.Properties {
	name, _ := props["Name"].Value().(string)

	manufacturerData := make(map[uint16][]byte)
	if mdata, ok := props["ManufacturerData"].Value().(map[uint16]dbus.Variant); ok {
		for id, v := range mdata {
			if data, ok := v.Value().([]byte); ok {
				manufacturerData[id] = data
			}
		}
	}

	return &btlighthouse.Properties{
		LocalName:        name,
		ManufacturerData: manufacturerData,
	}
}
