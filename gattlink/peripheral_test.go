package gattlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalUUID(t *testing.T) {
	cases := map[string]string{
		"000015251212efde1523785feabcd124":      "00001525-1212-efde-1523-785feabcd124",
		"00001525-1212-efde-1523-785feabcd124":  "00001525-1212-efde-1523-785feabcd124",
		"000015251212EFDE1523785FEABCD124":      "00001525-1212-efde-1523-785feabcd124",
		"2a00":                                  "00002a00-0000-1000-8000-00805f9b34fb",
		"180a":                                  "0000180a-0000-1000-8000-00805f9b34fb",
		"0000180a":                              "0000180a-0000-1000-8000-00805f9b34fb",
		"a75cc7fcc956488fac2a2dbc08b63a04":      "a75cc7fc-c956-488f-ac2a-2dbc08b63a04",
	}

	for input, want := range cases {
		assert.Equal(t, want, canonicalUUID(input), "input `%s`", input)
	}
}

func TestParseManufacturerData(t *testing.T) {
	assert.Nil(t, parseManufacturerData(nil))
	assert.Nil(t, parseManufacturerData([]byte{0x5d}))

	// Company identifier is little-endian
	data := parseManufacturerData([]byte{0x5d, 0x05, 0x01, 0x02, 0x03})
	assert.Equal(t, map[uint16][]byte{0x055d: {0x01, 0x02, 0x03}}, data)

	empty := parseManufacturerData([]byte{0x5d, 0x05})
	assert.Contains(t, empty, uint16(0x055d))
	assert.Empty(t, empty[0x055d])
}
