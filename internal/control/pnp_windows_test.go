//go:build windows

package control

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePnpDevicesArray(t *testing.T) {
	out := `[{"InstanceId":"HID\\VID_06CB&PID_7E7E\\1","FriendlyName":"Synaptics HID TouchPad","Status":"OK"},` +
		`{"InstanceId":"HID\\VID_046D\\2","FriendlyName":"HID-compliant mouse","Status":"Error"}]`
	devices, err := parsePnpDevices(out)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, Device{InstanceID: `HID\VID_06CB&PID_7E7E\1`, Name: "Synaptics HID TouchPad", Enabled: true}, devices[0])
	assert.False(t, devices[1].Enabled)
}

func TestParsePnpDevicesSingleObject(t *testing.T) {
	devices, err := parsePnpDevices(`{"InstanceId":"HID\\X","FriendlyName":"ELAN Touchpad","Status":"Error"}`)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.False(t, devices[0].Enabled)

	devices, err = parsePnpDevices("  \r\n")
	require.NoError(t, err)
	assert.Empty(t, devices)

	_, err = parsePnpDevices("{not json")
	assert.Error(t, err)
}

func TestDecodeUTF16(t *testing.T) {
	units := utf16.Encode([]rune("\ufeffTouchPad"))
	b := make([]byte, 0, len(units)*2)
	for _, u := range units {
		b = append(b, byte(u), byte(u>>8))
	}
	assert.Equal(t, "TouchPad", decodeUTF16(b))
	assert.Equal(t, "plain", decodeUTF16([]byte("plain")))
}
