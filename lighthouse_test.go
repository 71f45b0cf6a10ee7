package btlighthouse

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runController(t *testing.T, central Central, command Command, names []string) (RunState, string, error) {
	t.Helper()

	var buf bytes.Buffer
	controller, err := New(central, WithOutput(&buf))
	require.NoError(t, err)

	state, err := controller.Run(command, NewFilter(names))
	return state, buf.String(), err
}

func TestRunScanUnrestricted(t *testing.T) {
	stations := map[string]*fakePeripheral{
		"id-1": baseStation("LHB-1", []byte{0x02}),
		"id-2": baseStation("LHB-2", []byte{0x0b}),
		"id-3": baseStation("LHB-3", []byte{0x42}),
	}
	central := newFakeCentral()
	for id, station := range stations {
		central.add(id, station)
	}
	central.push(EventDeviceDiscovered, "id-1")
	central.push(EventDeviceDiscovered, "id-2")
	central.push(EventDeviceDiscovered, "id-3")
	close(central.events)

	state, output, err := runController(t, central, CommandScan, nil)
	require.NoError(t, err)
	assert.Equal(t, StateStreamExhausted, state)
	assert.Equal(t, "LHB-1: STANDBY\nLHB-2: ON\nLHB-3: UNKNOWN(0x42)\n", output)

	for id, station := range stations {
		assert.Empty(t, station.writes, "scan must not write to %s", id)
	}
}

func TestRunCommandAlreadyInTargetMode(t *testing.T) {
	station := baseStation("LHB-1", []byte{0x02})
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")

	state, output, err := runController(t, central, CommandStandby, []string{"LHB-1"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, "LHB-1: STANDBY -> STANDBY\n", output)
	assert.Empty(t, station.writes, "no write when already in the target mode")
}

func TestRunCommandWritesTarget(t *testing.T) {
	station := baseStation("LHB-1", []byte{0x00})
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")

	state, output, err := runController(t, central, CommandOn, []string{"LHB-1"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, "LHB-1: SLEEP -> ON\n", output)
	require.Len(t, station.writes, 1)
	assert.Equal(t, []byte{0x01}, station.writes[0], "power up is requested via the boot command byte")
}

func TestRunSleepCommand(t *testing.T) {
	station := baseStation("LHB-1", []byte{0x0b})
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")

	state, output, err := runController(t, central, CommandSleep, []string{"LHB-1"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, "LHB-1: ON -> SLEEP\n", output)
	require.Len(t, station.writes, 1)
	assert.Equal(t, []byte{0x00}, station.writes[0])
}

func TestRunEmptyReadKeepsMatchOpen(t *testing.T) {
	station := baseStation("LHB-1", []byte{}, []byte{0x0b})
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")
	central.push(EventDeviceUpdated, "id-1")

	state, output, err := runController(t, central, CommandScan, []string{"LHB-1"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, "LHB-1: ON\n", output)
	assert.Equal(t, 2, station.reads, "the empty read must not consume the match")
}

func TestRunUnmatchedNamesSkipped(t *testing.T) {
	station := baseStation("LHB-2", []byte{0x0b})
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")
	close(central.events)

	state, output, err := runController(t, central, CommandScan, []string{"LHB-1"})
	require.NoError(t, err)
	assert.Equal(t, StateStreamExhausted, state)
	assert.Empty(t, output)
	assert.Zero(t, station.reads)
}

func TestRunNameMatchedOnce(t *testing.T) {
	first := baseStation("LHB-1", []byte{0x02})
	second := baseStation("LHB-2", []byte{0x02})
	central := newFakeCentral().add("id-1", first).add("id-2", second)
	central.push(EventDeviceDiscovered, "id-1")
	central.push(EventDeviceUpdated, "id-1")
	central.push(EventDeviceDiscovered, "id-2")

	state, output, err := runController(t, central, CommandScan, []string{"LHB-1", "LHB-2"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, "LHB-1: STANDBY\nLHB-2: STANDBY\n", output)
	assert.Equal(t, 1, first.reads, "re-advertisement of an already matched name is discarded")
}

func TestRunReadFailureAborts(t *testing.T) {
	station := baseStation("LHB-1")
	station.readErr = errors.New("link lost")
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")

	state, _, err := runController(t, central, CommandScan, []string{"LHB-1"})
	assert.Equal(t, StateFailed, state)
	assert.Error(t, err)
}

func TestRunWriteFailureAborts(t *testing.T) {
	station := baseStation("LHB-1", []byte{0x00})
	station.writeErr = errors.New("link lost")
	central := newFakeCentral().add("id-1", station)
	central.push(EventDeviceDiscovered, "id-1")

	state, _, err := runController(t, central, CommandOn, []string{"LHB-1"})
	assert.Equal(t, StateFailed, state)
	assert.Error(t, err)
}

func TestRunScanStartFailureAborts(t *testing.T) {
	central := newFakeCentral()
	central.scanErr = errors.New("radio off")

	state, _, err := runController(t, central, CommandScan, nil)
	assert.Equal(t, StateFailed, state)
	assert.Error(t, err)
}

func TestNewRequiresCentral(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
