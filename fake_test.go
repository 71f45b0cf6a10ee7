package btlighthouse

import "fmt"

// fakeCentral denotes an in-memory radio central with a scripted discovery
// feed
type fakeCentral struct {
	events      chan Event
	peripherals map[string]*fakePeripheral

	scanErr   error
	eventsErr error
}

func newFakeCentral() *fakeCentral {
	return &fakeCentral{
		events:      make(chan Event, 64),
		peripherals: make(map[string]*fakePeripheral),
	}
}

func (c *fakeCentral) add(id string, p *fakePeripheral) *fakeCentral {
	c.peripherals[id] = p
	return c
}

func (c *fakeCentral) push(kind EventKind, id string) {
	c.events <- Event{Kind: kind, ID: id}
}

func (c *fakeCentral) StartScan() error {
	return c.scanErr
}

func (c *fakeCentral) Events() (<-chan Event, error) {
	if c.eventsErr != nil {
		return nil, c.eventsErr
	}
	return c.events, nil
}

func (c *fakeCentral) Peripheral(id string) (Peripheral, error) {
	p, ok := c.peripherals[id]
	if !ok {
		return nil, fmt.Errorf("unknown peripheral %s", id)
	}
	return p, nil
}

// fakePeripheral denotes an in-memory peripheral. Reads consume the scripted
// values one by one, the last one is sticky.
type fakePeripheral struct {
	props  *Properties
	chars  []Characteristic
	values [][]byte

	propsErr      error
	connectErr    error
	enumerateErr  error
	disconnectErr error
	readErr       error
	writeErr      error

	connects     int
	enumerations int
	disconnects  int
	reads        int
	writes       [][]byte
}

func (p *fakePeripheral) Properties() (*Properties, error) {
	return p.props, p.propsErr
}

func (p *fakePeripheral) Connect() error {
	p.connects++
	return p.connectErr
}

func (p *fakePeripheral) DiscoverProfile() error {
	p.enumerations++
	return p.enumerateErr
}

func (p *fakePeripheral) Disconnect() error {
	p.disconnects++
	return p.disconnectErr
}

func (p *fakePeripheral) Characteristics() []Characteristic {
	return p.chars
}

func (p *fakePeripheral) Read(c Characteristic) ([]byte, error) {
	p.reads++
	if p.readErr != nil {
		return nil, p.readErr
	}
	if len(p.values) == 0 {
		return nil, nil
	}
	v := p.values[0]
	if len(p.values) > 1 {
		p.values = p.values[1:]
	}
	return v, nil
}

func (p *fakePeripheral) WriteWithoutResponse(c Characteristic, data []byte) error {
	if p.writeErr != nil {
		return p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), data...))
	return nil
}

// baseStation builds a vendor peripheral exposing the power management
// characteristic, reading back the given status byte sequences
func baseStation(name string, values ...[]byte) *fakePeripheral {
	return &fakePeripheral{
		props: &Properties{
			LocalName:        name,
			ManufacturerData: map[uint16][]byte{vendorID: {0x00, 0x12}},
		},
		chars: []Characteristic{
			{UUID: "00002a00-0000-1000-8000-00805f9b34fb"},
			{UUID: controlCharacteristic},
		},
		values: values,
	}
}
