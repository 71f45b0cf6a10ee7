package gattlink

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fako1024/btlighthouse"
	"github.com/fako1024/gatt"
)

// bluetoothBaseUUID denotes the suffix used to expand short UUIDs
const bluetoothBaseUUID = "-0000-1000-8000-00805f9b34fb"

// peripheral wraps a gatt.Peripheral as a btlighthouse.Peripheral
type peripheral struct {
	central *Central

	mu        sync.Mutex
	gp        gatt.Peripheral
	adv       *gatt.Advertisement
	chars     map[string]*gatt.Characteristic
	connected bool

	connectRes    chan error
	disconnectRes chan error
}

func newPeripheral(central *Central, gp gatt.Peripheral) *peripheral {
	return &peripheral{
		central:       central,
		gp:            gp,
		connectRes:    make(chan error, 1),
		disconnectRes: make(chan error, 1),
	}
}

// update refreshes the underlying handle and advertisement (gatt hands out a
// fresh peripheral per discovery callback)
func (p *peripheral) update(gp gatt.Peripheral, adv *gatt.Advertisement) {
	p.mu.Lock()
	p.gp = gp
	p.adv = adv
	p.mu.Unlock()
}

func (p *peripheral) setConnected(connected bool, err error) {
	p.mu.Lock()
	p.connected = connected && err == nil
	p.mu.Unlock()

	res := p.disconnectRes
	if connected {
		res = p.connectRes
	}
	select {
	case res <- err:
	default:
	}
}

// Properties returns the advertised properties of the peripheral
func (p *peripheral) Properties() (*btlighthouse.Properties, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.adv == nil {
		return nil, nil
	}

	name := p.adv.LocalName
	if name == "" {
		name = p.gp.Name()
	}

	return &btlighthouse.Properties{
		LocalName:        name,
		ManufacturerData: parseManufacturerData(p.adv.ManufacturerData),
	}, nil
}

// Connect establishes a connection to the peripheral. Scanning is suspended
// while connected and re-enabled upon disconnect.
func (p *peripheral) Connect() error {
	p.mu.Lock()
	gp, connected := p.gp, p.connected
	p.mu.Unlock()

	if connected {
		return nil
	}

	if err := gp.Device().StopScanning(); err != nil {
		p.central.logger.Warnf("failed to suspend scanning for connect: %s", err)
	}
	if err := gp.Device().Connect(gp); err != nil {
		return err
	}

	return <-p.connectRes
}

// Disconnect drops the connection and re-enables scanning
func (p *peripheral) Disconnect() error {
	p.mu.Lock()
	gp, connected := p.gp, p.connected
	p.mu.Unlock()

	if !connected {
		return nil
	}

	if err := gp.Device().CancelConnection(gp); err != nil {
		return err
	}
	if err := <-p.disconnectRes; err != nil {
		return err
	}

	// Duplicate advertisements stay enabled, see onStateChanged
	if err := gp.Device().Scan([]gatt.UUID{}, true); err != nil {
		p.central.logger.Warnf("failed to resume scanning after disconnect: %s", err)
	}

	return nil
}

// DiscoverProfile enumerates all services and characteristics of the
// peripheral
func (p *peripheral) DiscoverProfile() error {
	p.mu.Lock()
	gp := p.gp
	p.mu.Unlock()

	ss, err := gp.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("failed to discover services: %w", err)
	}

	chars := make(map[string]*gatt.Characteristic)
	for _, s := range ss {
		cs, err := gp.DiscoverCharacteristics(nil, s)
		if err != nil {
			return fmt.Errorf("failed to discover characteristics of service %s: %w", s.UUID().String(), err)
		}
		for _, c := range cs {
			chars[canonicalUUID(c.UUID().String())] = c
		}
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
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].UUID < cs[j].UUID
	})

	return cs
}

// Read returns the current value of a characteristic, reconnecting implicitly
// if required
func (p *peripheral) Read(c btlighthouse.Characteristic) ([]byte, error) {
	gc, err := p.characteristic(c)
	if err != nil {
		return nil, err
	}
	if err := p.Connect(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	gp := p.gp
	p.mu.Unlock()

	return gp.ReadCharacteristic(gc)
}

// WriteWithoutResponse issues a write command to a characteristic,
// reconnecting implicitly if required
func (p *peripheral) WriteWithoutResponse(c btlighthouse.Characteristic, data []byte) error {
	gc, err := p.characteristic(c)
	if err != nil {
		return err
	}
	if err := p.Connect(); err != nil {
		return err
	}

	p.mu.Lock()
	gp := p.gp
	p.mu.Unlock()

	return gp.WriteCharacteristic(gc, data, true)
}

func (p *peripheral) characteristic(c btlighthouse.Characteristic) (*gatt.Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gc, ok := p.chars[c.UUID]
	if !ok {
		return nil, fmt.Errorf("unknown characteristic %s", c.UUID)
	}

	return gc, nil
}

////////////////////////////////////////////////////////////////////////////////

// parseManufacturerData splits raw advertisement manufacturer data into its
// little-endian company identifier and payload
func parseManufacturerData(data []byte) map[uint16][]byte {
	if len(data) < 2 {
		return nil
	}

	return map[uint16][]byte{
		binary.LittleEndian.Uint16(data[:2]): data[2:],
	}
}

// canonicalUUID converts the dash-less UUID representation of the gatt stack
// into the canonical dashed, lower-case form
func canonicalUUID(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "-", ""))
	switch len(s) {
	case 4:
		return "0000" + s + bluetoothBaseUUID
	case 8:
		return s + bluetoothBaseUUID
	case 32:
		return s[:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
	}

	return s
}
