package btlighthouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePowerState(t *testing.T) {
	cases := []struct {
		b    byte
		want PowerState
	}{
		{0x00, PowerState{Mode: ModeSleep}},
		{0x01, PowerState{Mode: ModeBooting}},
		{0x08, PowerState{Mode: ModeBooting}},
		{0x09, PowerState{Mode: ModeBooting}},
		{0x02, PowerState{Mode: ModeStandby}},
		{0x0b, PowerState{Mode: ModeOn}},
		{0x03, PowerState{Mode: ModeUnknown, Raw: 0x03}},
		{0x0a, PowerState{Mode: ModeUnknown, Raw: 0x0a}},
		{0x7f, PowerState{Mode: ModeUnknown, Raw: 0x7f}},
		{0xff, PowerState{Mode: ModeUnknown, Raw: 0xff}},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, DecodePowerState(c.b), "byte 0x%02x", c.b)
	}
}

func TestEncodePowerState(t *testing.T) {
	cases := []struct {
		state PowerState
		want  byte
	}{
		{PowerState{Mode: ModeSleep}, 0x00},
		{PowerState{Mode: ModeBooting}, 0x01},
		{PowerState{Mode: ModeStandby}, 0x02},
		{PowerState{Mode: ModeOn}, 0x01},
		{PowerState{Mode: ModeUnknown, Raw: 0xaa}, 0xaa},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, c.state.Encode(), "state %s", c.state)
	}
}

// The base stations share a single "power up" command byte, so a state read
// back as fully on (0x0b) must encode to the boot request (0x01)
func TestOnEncodesToBootRequest(t *testing.T) {
	assert.Equal(t, byte(0x01), DecodePowerState(0x0b).Encode())
}

func TestUnknownRoundTrip(t *testing.T) {
	for _, b := range []byte{0x03, 0x0a, 0x42, 0xfe} {
		state := DecodePowerState(b)
		assert.Equal(t, ModeUnknown, state.Mode)
		assert.Equal(t, b, state.Raw)
		assert.Equal(t, b, state.Encode())
	}
}

func TestPowerStateString(t *testing.T) {
	assert.Equal(t, "SLEEP", DecodePowerState(0x00).String())
	assert.Equal(t, "BOOTING", DecodePowerState(0x08).String())
	assert.Equal(t, "STANDBY", DecodePowerState(0x02).String())
	assert.Equal(t, "ON", DecodePowerState(0x0b).String())
	assert.Equal(t, "UNKNOWN(0x0c)", DecodePowerState(0x0c).String())
	assert.Equal(t, "UNKNOWN(0xff)", DecodePowerState(0xff).String())
}

func TestParseCommand(t *testing.T) {
	for input, want := range map[string]Command{
		"scan":    CommandScan,
		"on":      CommandOn,
		"sleep":   CommandSleep,
		"standby": CommandStandby,
		"ON":      CommandOn,
		"Standby": CommandStandby,
	} {
		command, err := ParseCommand(input)
		require.NoError(t, err, "input `%s`", input)
		assert.Equal(t, want, command, "input `%s`", input)
	}

	_, err := ParseCommand("off")
	assert.Error(t, err)
}

func TestCommandTarget(t *testing.T) {
	_, ok := CommandScan.Target()
	assert.False(t, ok)

	for command, want := range map[Command]PowerMode{
		CommandOn:      ModeOn,
		CommandSleep:   ModeSleep,
		CommandStandby: ModeStandby,
	} {
		target, ok := command.Target()
		require.True(t, ok)
		assert.Equal(t, want, target.Mode)
	}
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "Scanning", StateScanning.String())
	assert.Equal(t, "Completed", StateCompleted.String())
	assert.Equal(t, "StreamExhausted", StateStreamExhausted.String())
	assert.Equal(t, "Failed", StateFailed.String())
}
