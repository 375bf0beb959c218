// Package hotkey matches global shortcuts against the keyboard feed.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var aliases = map[string]string{
	"CONTROL": "CTRL",
	"CTL":     "CTRL",
	"OPTION":  "ALT",
	"OPT":     "ALT",
	"WIN":     "SUPER",
	"CMD":     "SUPER",
	"COMMAND": "SUPER",
	"META":    "SUPER",
	"RETURN":  "ENTER",
	"ESCAPE":  "ESC",
}

// Normalize upper-cases a key name and resolves aliases
func Normalize(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if a, ok := aliases[key]; ok {
		return a
	}
	return key
}

// Parse splits a shortcut like "Ctrl+Alt+T" into normalized key names
func Parse(s string) ([]string, error) {
	var parts []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(s, "+") {
		k := Normalize(p)
		if k == "" {
			return nil, fmt.Errorf("hotkey %q: empty key", s)
		}
		if seen[k] {
			return nil, fmt.Errorf("hotkey %q: duplicate key %s", s, k)
		}
		seen[k] = true
		parts = append(parts, k)
	}
	return parts, nil
}

// Manager handles global hotkey registration and matching
type Manager struct {
	mu           sync.Mutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // keys currently held
	logger       *slog.Logger
}

type registeredHotkey struct {
	parts    []string
	original string
	callback func()
	fired    bool // latched until one of the parts is released
}

// NewManager creates a new hotkey manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		currentState: make(map[string]bool),
		logger:       logger.With("component", "hotkey"),
	}
}

// Register registers a shortcut such as "Ctrl+Alt+T". An empty string is a no-op.
func (m *Manager) Register(hotkeyStr string, callback func()) error {
	if strings.TrimSpace(hotkeyStr) == "" {
		return nil
	}
	parts, err := Parse(hotkeyStr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})
	m.logger.Debug("hotkey registered", "hotkey", hotkeyStr)
	return nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// Len returns the number of registered hotkeys
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hotkeys)
}

// UpdateState records a press or release and fires completed shortcuts.
// Auto-repeat presses do not fire a shortcut again.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = Normalize(key)

	m.mu.Lock()
	var fire []*registeredHotkey
	if isDown {
		m.currentState[key] = true
		for _, hk := range m.hotkeys {
			if !hk.fired && m.held(hk.parts) {
				hk.fired = true
				fire = append(fire, hk)
			}
		}
	} else {
		delete(m.currentState, key)
		for _, hk := range m.hotkeys {
			if hk.fired && !m.held(hk.parts) {
				hk.fired = false
			}
		}
	}
	m.mu.Unlock()

	for _, hk := range fire {
		m.logger.Info("hotkey triggered", "hotkey", hk.original)
		go hk.callback()
	}
}

// Reset forgets held keys, e.g. after the keyboard source restarts
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = make(map[string]bool)
	for _, hk := range m.hotkeys {
		hk.fired = false
	}
}

func (m *Manager) held(parts []string) bool {
	for _, part := range parts {
		if !m.currentState[part] {
			return false
		}
	}
	return true
}
