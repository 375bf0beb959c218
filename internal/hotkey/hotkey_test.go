package hotkey

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	parts, err := Parse("Control+Option+t")
	require.NoError(t, err)
	assert.Equal(t, []string{"CTRL", "ALT", "T"}, parts)

	parts, err = Parse("Cmd + Shift + F11")
	require.NoError(t, err)
	assert.Equal(t, []string{"SUPER", "SHIFT", "F11"}, parts)

	_, err = Parse("Ctrl++T")
	assert.Error(t, err)
	_, err = Parse("Ctrl+Control")
	assert.Error(t, err)
}

func TestHotkeyFiresOncePerChord(t *testing.T) {
	m := NewManager(nil)
	var hits atomic.Int32
	require.NoError(t, m.Register("Ctrl+Alt+T", func() { hits.Add(1) }))
	require.NoError(t, m.Register("", func() { t.Fatal("empty hotkey fired") }))
	assert.Equal(t, 1, m.Len())

	m.UpdateState("ctrl", true)
	m.UpdateState("alt", true)
	m.UpdateState("T", true)
	m.UpdateState("T", true) // auto-repeat
	assert.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)

	m.UpdateState("T", false)
	m.UpdateState("T", true)
	assert.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHotkeyPartialChordDoesNotFire(t *testing.T) {
	m := NewManager(nil)
	var hits atomic.Int32
	require.NoError(t, m.Register("Ctrl+Alt+Q", func() { hits.Add(1) }))

	m.UpdateState("CTRL", true)
	m.UpdateState("Q", true)
	m.UpdateState("CTRL", false)
	m.UpdateState("ALT", true)

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, hits.Load())
}

func TestResetAndClear(t *testing.T) {
	m := NewManager(nil)
	var hits atomic.Int32
	require.NoError(t, m.Register("Win+M", func() { hits.Add(1) }))

	m.UpdateState("SUPER", true)
	m.Reset()
	m.UpdateState("M", true)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, hits.Load())

	m.Clear()
	assert.Zero(t, m.Len())
}
