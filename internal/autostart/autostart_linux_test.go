//go:build linux

package autostart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinuxEnableDisable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.False(t, IsEnabled())
	require.NoError(t, Enable())
	assert.True(t, IsEnabled())

	data, err := os.ReadFile(filepath.Join(dir, "autostart", "palmguard.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "run --minimized")

	require.NoError(t, Sync(true))
	require.NoError(t, Disable())
	assert.False(t, IsEnabled())
	require.NoError(t, Disable(), "removing a missing entry is fine")
	require.NoError(t, Sync(false))
}
