// Package config provides configuration management for palmguard.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"palmguard/internal/control"
	"palmguard/internal/monitor"
)

const appName = "palmguard"

// Config represents the application configuration
type Config struct {
	// Monitor contains the idle policy
	Monitor MonitorConfig `toml:"monitor"`

	// Control selects and tunes the control strategies
	Control ControlConfig `toml:"control"`

	// Hotkeys contains the global shortcuts
	Hotkeys HotkeyConfig `toml:"hotkeys"`

	// General contains general application settings
	General GeneralConfig `toml:"general"`

	// API configures the local control server
	API APIConfig `toml:"api"`

	// Log configures logging
	Log LogConfig `toml:"log"`
}

// MonitorConfig is the idle policy as stored on disk
type MonitorConfig struct {
	IdleThreshold      Duration `toml:"idle_threshold"`
	MinDisableDuration Duration `toml:"min_disable_duration"`
	PreEnableDelay     Duration `toml:"pre_enable_delay"`
}

// ControlConfig selects the control strategies
type ControlConfig struct {
	// CompatibilityMode skips the persistent setting channel
	CompatibilityMode bool `toml:"compatibility_mode"`

	// UseKeyboardShortcut restricts control to key simulation
	UseKeyboardShortcut bool `toml:"use_keyboard_shortcut"`

	// KeyCombination is the firmware touchpad hotkey, main key last
	KeyCombination []string `toml:"key_combination"`

	// SettleDelay is the hold time of the main key
	SettleDelay Duration `toml:"settle_delay"`

	// DevicePatterns match touchpad device names
	DevicePatterns []string `toml:"device_patterns"`
}

// HotkeyConfig contains global shortcuts; empty disables a shortcut
type HotkeyConfig struct {
	ToggleTouchpad   string `toml:"toggle_touchpad"`
	ToggleMonitoring string `toml:"toggle_monitoring"`
	ExitApp          string `toml:"exit_app"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// StartOnBoot registers the app to start at login
	StartOnBoot bool `toml:"start_on_boot"`

	// StartMinimized starts the app in the tray
	StartMinimized bool `toml:"start_minimized"`

	// AutoStartMonitoring starts monitoring right after launch
	AutoStartMonitoring bool `toml:"auto_start_monitoring"`

	// PlaySounds plays a beep on every state change
	PlaySounds bool `toml:"play_sounds"`

	// ShowNotifications shows desktop notifications on state changes
	ShowNotifications bool `toml:"show_notifications"`
}

// APIConfig configures the local control server
type APIConfig struct {
	// Enabled starts the HTTP API
	Enabled bool `toml:"enabled"`

	// Listen is the listen address, loopback by default
	Listen string `toml:"listen"`

	// Token is an optional bearer token
	Token string `toml:"token,omitempty"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level"`

	// Format is text or json
	Format string `toml:"format"`

	// File additionally writes logs to this path when set
	File string `toml:"file,omitempty"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	mon := monitor.DefaultConfig()
	return &Config{
		Monitor: MonitorConfig{
			IdleThreshold:      Duration(mon.IdleThreshold),
			MinDisableDuration: Duration(mon.MinDisableDuration),
			PreEnableDelay:     Duration(mon.PreEnableDelay),
		},
		Control: ControlConfig{
			KeyCombination: []string{"F11"},
			SettleDelay:    Duration(control.DefaultSettleDelay),
			DevicePatterns: append([]string(nil), control.DefaultNamePatterns...),
		},
		Hotkeys: HotkeyConfig{
			ToggleTouchpad:   "Ctrl+Alt+T",
			ToggleMonitoring: "Ctrl+Alt+M",
			ExitApp:          "Ctrl+Alt+Q",
		},
		General: GeneralConfig{
			StartMinimized:      true,
			AutoStartMonitoring: true,
			PlaySounds:          true,
			ShowNotifications:   true,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:18090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks values that cannot be clamped
func (c *Config) Validate() error {
	var errs []error
	if len(c.Control.KeyCombination) == 0 {
		errs = append(errs, errors.New("control.key_combination is empty"))
	}
	for _, k := range c.KeyCombination() {
		if !control.SupportedKey(k) {
			errs = append(errs, fmt.Errorf("control.key_combination: unsupported key %q", k))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// MonitorPolicy returns the clamped idle policy
func (c *Config) MonitorPolicy() monitor.Config {
	return monitor.Config{
		IdleThreshold:      time.Duration(c.Monitor.IdleThreshold),
		MinDisableDuration: time.Duration(c.Monitor.MinDisableDuration),
		PreEnableDelay:     time.Duration(c.Monitor.PreEnableDelay),
	}.Clamp()
}

// KeyCombination returns the normalized firmware hotkey
func (c *Config) KeyCombination() control.Combination {
	return control.Combination(c.Control.KeyCombination).Normalize()
}

// Strategies returns the strategies allowed by the control options; nil
// allows all of them
func (c *Config) Strategies() []control.Kind {
	switch {
	case c.Control.UseKeyboardShortcut:
		return []control.Kind{control.KindKeySimulation}
	case c.Control.CompatibilityMode:
		return []control.Kind{control.KindDeviceEnumeration, control.KindKeySimulation}
	default:
		return nil
	}
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	out := *c
	out.Control.KeyCombination = append([]string(nil), c.Control.KeyCombination...)
	out.Control.DevicePatterns = append([]string(nil), c.Control.DevicePatterns...)
	return &out
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  []func(*Config)
	logger     *slog.Logger
}

// NewManager creates a configuration manager for path, or for the
// platform default location when path is empty
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
		logger:     logger.With("component", "config"),
	}, nil
}

// DefaultPath returns the platform configuration file path
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, appName)
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, appName)
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", appName)
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file leaves the defaults.
func (m *Manager) Load() error {
	cfg, err := loadFile(m.configPath, m.logger)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Info("no config file, using defaults", "path", m.configPath)
		return nil
	}
	if err != nil {
		return err
	}
	m.apply(cfg)
	return nil
}

// loadFile decodes path over the defaults so absent keys keep default values
func loadFile(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logger.Warn("unknown config keys ignored", "path", path, "keys", fmt.Sprint(undecoded))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	cfg := m.config.Clone()
	m.mu.Unlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return err
	}

	m.logger.Info("saving configuration", "path", m.configPath, "bytes", buf.Len())
	tmp := m.configPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.configPath)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Clone()
}

// Set updates the configuration and notifies listeners
func (m *Manager) Set(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.apply(cfg.Clone())
	return nil
}

func (m *Manager) apply(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	callbacks := slices.Clone(m.onChanged)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg.Clone())
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}
