package btlighthouse

// EventKind denotes the type of a discovery feed event
type EventKind int

const (

	// EventDeviceDiscovered signals a peripheral seen for the first time
	EventDeviceDiscovered EventKind = iota

	// EventDeviceUpdated signals an advertisement update for a known peripheral
	EventDeviceUpdated

	// EventDeviceConnected signals an established connection
	EventDeviceConnected

	// EventDeviceDisconnected signals a dropped connection
	EventDeviceDisconnected

	// EventStateChanged signals a radio adapter state change
	EventStateChanged
)

// Event denotes a single notification on the discovery feed of a Central,
// keyed by an opaque peripheral identifier
type Event struct {
	Kind EventKind
	ID   string
}

// Central denotes the radio adapter capability the discovery pipeline runs
// against
type Central interface {

	// StartScan enables discovery with the default (unfiltered) configuration
	StartScan() error

	// Events returns the feed of discovery notifications. The channel is
	// closed when the underlying radio stops delivering events.
	Events() (<-chan Event, error)

	// Peripheral resolves an event identifier to a live peripheral handle
	Peripheral(id string) (Peripheral, error)
}

// Properties denotes the advertised properties of a peripheral
type Properties struct {
	LocalName        string
	ManufacturerData map[uint16][]byte
}

// Characteristic denotes an addressable GATT characteristic, identified by
// its canonical (dashed, lower-case) UUID
type Characteristic struct {
	UUID string
}

// Peripheral denotes a handle to a remote device
type Peripheral interface {

	// Properties returns the advertised properties, or nil if no advertisement
	// has been seen for the peripheral yet
	Properties() (*Properties, error)

	// Connect establishes a connection (no-op if already connected)
	Connect() error

	// DiscoverProfile enumerates the services and characteristics of a
	// connected peripheral
	DiscoverProfile() error

	// Disconnect drops the connection. The handle stays usable, a later read
	// or write reconnects implicitly.
	Disconnect() error

	// Characteristics lists the characteristics enumerated so far
	Characteristics() []Characteristic

	// Read returns the current value of a characteristic
	Read(c Characteristic) ([]byte, error)

	// WriteWithoutResponse issues a write command (no response expected) to a
	// characteristic
	WriteWithoutResponse(c Characteristic, data []byte) error
}
