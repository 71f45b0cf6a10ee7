package btlighthouse

import "fmt"

const (

	// Bluetooth SIG company identifier carried in the manufacturer data of all
	// base station advertisements
	vendorID uint16 = 0x055d

	// Power management characteristic exposed by the base stations
	controlCharacteristic = "00001525-1212-efde-1523-785feabcd124"
)

// Device denotes a base station ready to be read or commanded: it has been
// connected, enumerated and disconnected again, and exposes the power
// management characteristic
type Device struct {
	Name           string
	Peripheral     Peripheral
	Characteristic Characteristic
}

// Discoverer lazily turns the raw discovery feed of a Central into ready
// Devices. The connect / enumerate / disconnect handshake only happens as
// elements are pulled via Next.
type Discoverer struct {
	central Central
	events  <-chan Event
	logger  Logger
}

// Discover starts scanning on the central and subscribes to its discovery
// feed
func Discover(central Central, logger Logger) (*Discoverer, error) {
	if err := central.StartScan(); err != nil {
		return nil, fmt.Errorf("failed to start scanning: %w", err)
	}

	events, err := central.Events()
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to discovery events: %w", err)
	}

	return &Discoverer{
		central: central,
		events:  events,
		logger:  logger,
	}, nil
}

// Next blocks until the next ready base station was found and returns it. It
// returns (nil, nil) once the discovery feed has ended. Devices are not
// deduplicated, a base station advertising again is yielded again.
func (d *Discoverer) Next() (*Device, error) {
	for ev := range d.events {
		switch ev.Kind {
		case EventDeviceDiscovered, EventDeviceUpdated:
		default:
			continue
		}

		dev, err := d.resolve(ev.ID)
		if err != nil {
			return nil, err
		}
		if dev == nil {
			continue
		}

		return dev, nil
	}

	return nil, nil
}

// resolve performs the handshake for a single feed event, returning
// (nil, nil) for peripherals that are not (or not yet) relevant
func (d *Discoverer) resolve(id string) (*Device, error) {
	p, err := d.central.Peripheral(id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peripheral %s: %w", id, err)
	}

	props, err := p.Properties()
	if err != nil {
		return nil, fmt.Errorf("failed to read properties of peripheral %s: %w", id, err)
	}
	if props == nil {
		return nil, nil
	}
	if _, ok := props.ManufacturerData[vendorID]; !ok {
		return nil, nil
	}
	if props.LocalName == "" {
		d.logger.Debugf("skipping vendor device %s without local name", id)
		return nil, nil
	}

	d.logger.Debugf("enumerating base station candidate `%s/%s`", props.LocalName, id)

	if err := p.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to `%s`: %w", props.LocalName, err)
	}
	if err := p.DiscoverProfile(); err != nil {
		return nil, fmt.Errorf("failed to enumerate services of `%s`: %w", props.LocalName, err)
	}
	if err := p.Disconnect(); err != nil {
		return nil, fmt.Errorf("failed to disconnect from `%s`: %w", props.LocalName, err)
	}

	for _, c := range p.Characteristics() {
		if c.UUID == controlCharacteristic {
			return &Device{
				Name:           props.LocalName,
				Peripheral:     p,
				Characteristic: c,
			}, nil
		}
	}

	d.logger.Debugf("device `%s` does not expose the power management characteristic", props.LocalName)
	return nil, nil
}
