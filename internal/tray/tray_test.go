package tray

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Touchpad: unknown", StatusLine(Status{}))
	assert.Equal(t, "Touchpad: disabled (key-simulation)", StatusLine(Status{State: "disabled", Strategy: "key-simulation"}))
}

func TestIconLayout(t *testing.T) {
	data := icon(true)
	require.Len(t, data, 6+16+40+16*16*4+16*4)
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[2:4]), "type icon")
	assert.Equal(t, uint32(len(data)-22), binary.LittleEndian.Uint32(data[14:18]))
	assert.Equal(t, uint32(22), binary.LittleEndian.Uint32(data[18:22]))
	assert.NotEqual(t, icon(true), icon(false))
}

func TestInside(t *testing.T) {
	assert.False(t, inside(0, 5))
	assert.False(t, inside(1, 1))
	assert.True(t, inside(2, 1))
	assert.True(t, inside(8, 8))
	assert.False(t, inside(15, 8))
}
