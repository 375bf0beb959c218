package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palmguard/internal/control"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	policy := cfg.MonitorPolicy()
	assert.Equal(t, 5*time.Second, policy.IdleThreshold)
	assert.Equal(t, 500*time.Millisecond, policy.MinDisableDuration)
	assert.Equal(t, 200*time.Millisecond, policy.PreEnableDelay)
	assert.Equal(t, control.Combination{"F11"}, cfg.KeyCombination())
	assert.Nil(t, cfg.Strategies())
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.NoError(t, err)
	require.NoError(t, m.Load())
	assert.Equal(t, DefaultConfig(), m.Get())
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[monitor]
idle_threshold = 3.5
pre_enable_delay = "50ms"

[control]
use_keyboard_shortcut = true
key_combination = ["ctrl", "win", "F24"]
`), 0o644))

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	err = m.Load()
	require.Error(t, err, "F24 cannot be injected")

	require.NoError(t, os.WriteFile(path, []byte(`
[monitor]
idle_threshold = 3.5
pre_enable_delay = "50ms"

[control]
use_keyboard_shortcut = true
key_combination = ["ctrl", "win", "F8"]
`), 0o644))
	require.NoError(t, m.Load())

	cfg := m.Get()
	policy := cfg.MonitorPolicy()
	assert.Equal(t, 3500*time.Millisecond, policy.IdleThreshold)
	assert.Equal(t, 50*time.Millisecond, policy.PreEnableDelay)
	assert.Equal(t, 500*time.Millisecond, policy.MinDisableDuration, "absent keys keep defaults")
	assert.Equal(t, control.Combination{"CTRL", "SUPER", "F8"}, cfg.KeyCombination())
	assert.Equal(t, []control.Kind{control.KindKeySimulation}, cfg.Strategies())
	assert.Equal(t, "Ctrl+Alt+T", cfg.Hotkeys.ToggleTouchpad)
}

func TestMonitorPolicyClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Monitor.IdleThreshold = Duration(time.Hour)
	cfg.Monitor.PreEnableDelay = Duration(-time.Second)
	policy := cfg.MonitorPolicy()
	assert.Equal(t, 10*time.Second, policy.IdleThreshold)
	assert.Equal(t, time.Duration(0), policy.PreEnableDelay)
}

func TestStrategies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Control.CompatibilityMode = true
	assert.Equal(t, []control.Kind{control.KindDeviceEnumeration, control.KindKeySimulation}, cfg.Strategies())

	cfg.Control.UseKeyboardShortcut = true
	assert.Equal(t, []control.Kind{control.KindKeySimulation}, cfg.Strategies())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "verbose"
	cfg.Control.KeyCombination = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "key_combination is empty")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	m, err := NewManager(path, nil)
	require.NoError(t, err)

	cfg := m.Get()
	cfg.Monitor.IdleThreshold = Duration(7 * time.Second)
	cfg.API.Token = "secret"
	require.NoError(t, m.Set(cfg))
	require.NoError(t, m.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `idle_threshold = "7s"`)

	other, err := NewManager(path, nil)
	require.NoError(t, err)
	require.NoError(t, other.Load())
	assert.Equal(t, m.Get(), other.Get())
}

func TestSetNotifiesAndRejectsInvalid(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.NoError(t, err)

	var got []*Config
	m.RegisterChangeCallback(func(c *Config) { got = append(got, c) })

	bad := DefaultConfig()
	bad.Log.Format = "xml"
	assert.Error(t, m.Set(bad))
	assert.Empty(t, got)

	good := DefaultConfig()
	good.General.PlaySounds = false
	require.NoError(t, m.Set(good))
	require.Len(t, got, 1)
	assert.False(t, got[0].General.PlaySounds)

	// callers get copies
	got[0].Control.KeyCombination[0] = "F1"
	assert.Equal(t, []string{"F11"}, m.Get().Control.KeyCombination)
}

func TestCallbackRegisteredDuringNotification(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.NoError(t, err)

	var first, second int
	m.RegisterChangeCallback(func(c *Config) {
		first++
		if first == 1 {
			m.RegisterChangeCallback(func(c *Config) { second++ })
		}
	})

	require.NoError(t, m.Set(DefaultConfig()))
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "only callbacks registered before the change run")

	require.NoError(t, m.Set(DefaultConfig()))
	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

func TestWatchCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "palmguard", "config.toml")
	m, err := NewManager(path, nil)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	changes := make(chan *Config, 4)
	m.RegisterChangeCallback(func(c *Config) { changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))
	assert.DirExists(t, filepath.Dir(path))

	require.NoError(t, os.WriteFile(path, []byte("[monitor]\nidle_threshold = 3\n"), 0o644))
	select {
	case c := <-changes:
		assert.Equal(t, 3*time.Second, c.MonitorPolicy().IdleThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[monitor]\nidle_threshold = 5\n"), 0o644))

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	changes := make(chan *Config, 4)
	m.RegisterChangeCallback(func(c *Config) { changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	// invalid content is ignored
	require.NoError(t, os.WriteFile(path, []byte("[monitor\n"), 0o644))
	time.Sleep(3 * reloadDebounce)
	require.NoError(t, os.WriteFile(path, []byte("[monitor]\nidle_threshold = 2\n"), 0o644))

	select {
	case c := <-changes:
		assert.Equal(t, 2*time.Second, c.MonitorPolicy().IdleThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalTOML("1m30s"))
	assert.Equal(t, 90*time.Second, d.Duration())
	require.NoError(t, d.UnmarshalTOML(int64(2)))
	assert.Equal(t, 2*time.Second, d.Duration())
	require.NoError(t, d.UnmarshalTOML(0.25))
	assert.Equal(t, 250*time.Millisecond, d.Duration())
	assert.Error(t, d.UnmarshalTOML("soon"))
	assert.Error(t, d.UnmarshalTOML(true))
}
