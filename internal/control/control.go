// Package control provides the touchpad control channels: persistent
// setting writes, key combination simulation and device enumeration.
package control

import (
	"context"
	"fmt"
	"strings"
)

// State is the enabled state of the touchpad as seen by a channel.
type State int

const (
	StateUnknown State = iota
	StateEnabled
	StateDisabled
)

// StateOf converts a boolean enable flag into a State.
func StateOf(enabled bool) State {
	if enabled {
		return StateEnabled
	}
	return StateDisabled
}

// Known reports whether the state was confirmed by a channel.
func (s State) Known() bool {
	return s == StateEnabled || s == StateDisabled
}

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state for JSON/TOML consumers.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Kind identifies a control strategy.
type Kind string

const (
	KindNone              Kind = ""
	KindPersistentSetting Kind = "persistent-setting"
	KindDeviceEnumeration Kind = "device-enumeration"
	KindKeySimulation     Kind = "key-simulation"
)

// Priority is the fixed probing order.
var Priority = []Kind{KindPersistentSetting, KindDeviceEnumeration, KindKeySimulation}

// ParseKind accepts the canonical names and a few short aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "persistent-setting", "setting", "registry", "gsettings":
		return KindPersistentSetting, nil
	case "device-enumeration", "device", "pnp", "xinput", "compatibility":
		return KindDeviceEnumeration, nil
	case "key-simulation", "keys", "hotkey", "shortcut":
		return KindKeySimulation, nil
	default:
		return KindNone, fmt.Errorf("unknown strategy %q", s)
	}
}

// Channel is one mechanism for reading and changing the touchpad state.
type Channel interface {
	// Kind returns the strategy this channel implements
	Kind() Kind

	// Probe reports whether the channel can operate on this host
	Probe(ctx context.Context) bool

	// State returns the current state, StateUnknown when it cannot be observed
	State(ctx context.Context) (State, error)

	// SetState enables or disables the touchpad
	SetState(ctx context.Context, enable bool) error
}

// Toggler is implemented by channels that can only flip the state.
type Toggler interface {
	Channel
	SendCombination(ctx context.Context) error
}
