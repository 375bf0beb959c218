package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"persistent-setting": KindPersistentSetting,
		"Registry":           KindPersistentSetting,
		"pnp":                KindDeviceEnumeration,
		" xinput ":           KindDeviceEnumeration,
		"key-simulation":     KindKeySimulation,
		"shortcut":           KindKeySimulation,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("bluetooth")
	assert.Error(t, err)
}

func TestStateText(t *testing.T) {
	assert.Equal(t, StateEnabled, StateOf(true))
	assert.Equal(t, StateDisabled, StateOf(false))
	assert.False(t, StateUnknown.Known())

	b, err := StateDisabled.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "disabled", string(b))
}
