//go:build linux

package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xinputListSample = `⎡ Virtual core pointer                    	id=2	[master pointer  (3)]
⎜   ↳ Virtual core XTEST pointer              	id=4	[slave  pointer  (2)]
⎜   ↳ SynPS/2 Synaptics TouchPad              	id=12	[slave  pointer  (2)]
⎜   ↳ Logitech USB Optical Mouse              	id=10	[slave  pointer  (2)]
⎣ Virtual core keyboard                   	id=3	[master keyboard (2)]
    ↳ Virtual core XTEST keyboard             	id=5	[slave  keyboard (3)]
    ↳ AT Translated Set 2 keyboard            	id=11	[slave  keyboard (3)]
`

func TestParseXinputList(t *testing.T) {
	devices := parseXinputList(xinputListSample)
	require.Len(t, devices, 3)
	assert.Equal(t, Device{InstanceID: "4", Name: "Virtual core XTEST pointer"}, devices[0])
	assert.Equal(t, Device{InstanceID: "12", Name: "SynPS/2 Synaptics TouchPad"}, devices[1])
	assert.Equal(t, "10", devices[2].InstanceID)
}

func TestParseXinputEnabled(t *testing.T) {
	on, err := parseXinputEnabled("Device 'SynPS/2 Synaptics TouchPad':\n\tDevice Enabled (185):\t1\n\tCoordinate Transformation Matrix (187):\t1.0\n")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = parseXinputEnabled("\tDevice Enabled (185):\t0\n")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = parseXinputEnabled("Device 'x':\n")
	assert.Error(t, err)
}
