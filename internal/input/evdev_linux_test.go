//go:build linux

package input

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procSample = `I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
H: Handlers=sysrq kbd leds event3
B: EV=120013

I: Bus=0018 Vendor=06cb Product=ce26 Version=0100
N: Name="SYNA32B8:00 06CB:CE26 Touchpad"
H: Handlers=mouse1 event7

I: Bus=0003 Vendor=0000 Product=0000 Version=0000
N: Name="keybd_event"
H: Handlers=sysrq kbd event21
`

func TestParseProcDevices(t *testing.T) {
	devs := parseProcDevices(strings.NewReader(procSample))
	require.Len(t, devs, 2)
	assert.Equal(t, keyboardDevice{Name: "AT Translated Set 2 keyboard", Path: "/dev/input/event3"}, devs[0])
	assert.Equal(t, "/dev/input/event21", devs[1].Path)
}

func TestEvdevKeyName(t *testing.T) {
	cases := map[uint16]string{
		1: "ESC", 2: "1", 11: "0", 16: "Q", 25: "P", 30: "A", 38: "L",
		44: "Z", 50: "M", 59: "F1", 68: "F10", 87: "F11", 88: "F12",
		29: "CTRL", 100: "ALT", 125: "SUPER", 240: "KEY240",
	}
	for code, want := range cases {
		assert.Equal(t, want, evdevKeyName(code), "code %d", code)
	}
}

func encodeEvent(typ, code uint16, value int32) []byte {
	buf := make([]byte, eventSize)
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	return buf
}

func TestReadEvents(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(encodeEvent(evKey, 30, 1))
	stream.Write(encodeEvent(0x00, 0, 0)) // SYN_REPORT
	stream.Write(encodeEvent(evKey, 30, 2))
	stream.Write(encodeEvent(evKey, 30, 0))
	stream.Write([]byte{1, 2, 3}) // truncated tail ends the reader

	var got []KeyEvent
	readEvents(&stream, true, func(ev KeyEvent) { got = append(got, ev) })

	require.Len(t, got, 3)
	assert.True(t, got[0].Down)
	assert.True(t, got[1].Down, "auto-repeat counts as a press")
	assert.False(t, got[2].Down)
	for _, ev := range got {
		assert.Equal(t, "A", ev.Key)
		assert.True(t, ev.Injected)
	}
}
