package btlighthouse

import (
	"fmt"
	"strings"
)

// Command denotes the operation requested by the operator
type Command int

const (

	// CommandScan only reports the current power state of matched base stations
	CommandScan Command = iota

	// CommandOn powers matched base stations up
	CommandOn

	// CommandSleep puts matched base stations to sleep
	CommandSleep

	// CommandStandby puts matched base stations into standby
	CommandStandby
)

// ParseCommand converts an operator-supplied string into a Command
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(s) {
	case "scan":
		return CommandScan, nil
	case "on":
		return CommandOn, nil
	case "sleep":
		return CommandSleep, nil
	case "standby":
		return CommandStandby, nil
	}

	return 0, fmt.Errorf("unknown command `%s` (want on, sleep, standby or scan)", s)
}

// Target returns the power state the command drives matched base stations
// towards, or false for a pure scan
func (c Command) Target() (PowerState, bool) {
	switch c {
	case CommandOn:
		return PowerState{Mode: ModeOn}, true
	case CommandSleep:
		return PowerState{Mode: ModeSleep}, true
	case CommandStandby:
		return PowerState{Mode: ModeStandby}, true
	}

	return PowerState{}, false
}

// PowerMode denotes the semantic power mode of a base station
type PowerMode int

const (

	// ModeSleep is reported while the base station is fully off
	ModeSleep PowerMode = iota

	// ModeBooting is reported while the base station is powering up
	ModeBooting

	// ModeStandby is reported while the base station idles with motors off
	ModeStandby

	// ModeOn is reported once the base station is fully running
	ModeOn

	// ModeUnknown covers all status bytes without a known meaning
	ModeUnknown
)

// PowerState denotes a decoded base station status byte. For ModeUnknown the
// original byte is retained in Raw.
type PowerState struct {
	Mode PowerMode
	Raw  byte
}

// DecodePowerState maps a status byte onto a power state. The mapping is
// total, every byte is representable.
func DecodePowerState(b byte) PowerState {
	switch b {
	case 0x00:
		return PowerState{Mode: ModeSleep}
	case 0x01, 0x08, 0x09:
		return PowerState{Mode: ModeBooting}
	case 0x02:
		return PowerState{Mode: ModeStandby}
	case 0x0b:
		return PowerState{Mode: ModeOn}
	}

	return PowerState{Mode: ModeUnknown, Raw: b}
}

// Encode maps a power state onto the command byte requesting it. ModeOn and
// ModeBooting share the 0x01 "power up" command byte: the base stations accept
// a single boot request and report 0x0b themselves once fully on.
func (s PowerState) Encode() byte {
	switch s.Mode {
	case ModeSleep:
		return 0x00
	case ModeBooting, ModeOn:
		return 0x01
	case ModeStandby:
		return 0x02
	}

	return s.Raw
}

// String fulfils the Stringer interface
func (s PowerState) String() string {
	switch s.Mode {
	case ModeSleep:
		return "SLEEP"
	case ModeBooting:
		return "BOOTING"
	case ModeStandby:
		return "STANDBY"
	case ModeOn:
		return "ON"
	}

	return fmt.Sprintf("UNKNOWN(0x%02x)", s.Raw)
}

// RunState denotes the state of a scan / command run
type RunState int

const (

	// StateScanning is active while the run is still consuming discovery events
	StateScanning RunState = iota

	// StateCompleted is reached once every requested base station was handled
	StateCompleted

	// StateStreamExhausted is reached when the discovery feed ends before the
	// name filter completes
	StateStreamExhausted

	// StateFailed is reached when a radio operation fails
	StateFailed
)

// String fulfils the Stringer interface
func (s RunState) String() string {
	switch s {
	case StateScanning:
		return "Scanning"
	case StateCompleted:
		return "Completed"
	case StateStreamExhausted:
		return "StreamExhausted"
	case StateFailed:
		return "Failed"
	}

	return "Invalid"
}
