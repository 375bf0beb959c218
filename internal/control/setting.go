package control

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// ValueKind is the storage type of a persistent setting value.
type ValueKind int

const (
	// KindDWord is a 32-bit integer flag (Windows REG_DWORD)
	KindDWord ValueKind = iota
	// KindString is a textual flag such as gsettings "enabled"/"disabled"
	KindString
	// KindBool is a textual boolean such as gsettings "true"/"false"
	KindBool
	// KindNumericString is an integer flag stored as text (Windows REG_SZ)
	KindNumericString
)

func (k ValueKind) String() string {
	switch k {
	case KindDWord:
		return "dword"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumericString:
		return "numeric-string"
	default:
		return "unknown"
	}
}

// Descriptor is one known location of a touchpad enable or disable flag.
type Descriptor struct {
	// Location is the registry key path or gsettings schema
	Location string `json:"location"`

	// ValueName is the registry value name or gsettings key
	ValueName string `json:"value_name"`

	// Kind is the expected value type
	Kind ValueKind `json:"kind"`

	// InvertLogic is true for disable flags (1 = disabled)
	InvertLogic bool `json:"invert_logic"`
}

func (d Descriptor) String() string {
	return d.Location + `\` + d.ValueName
}

// decode converts a raw stored value into enable-flag semantics.
func (d Descriptor) decode(kind ValueKind, raw string) (bool, error) {
	raw = strings.Trim(strings.TrimSpace(raw), `'"`)
	var on bool
	switch kind {
	case KindDWord, KindNumericString:
		v, err := strconv.ParseUint(raw, 0, 32)
		if err != nil {
			return false, fmt.Errorf("parse %s value %q: %w", d, raw, err)
		}
		on = v != 0
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("parse %s value %q: %w", d, raw, err)
		}
		on = v
	case KindString:
		// "disabled-on-external-mouse" still leaves the touchpad usable
		on = raw != "disabled"
	default:
		return false, fmt.Errorf("unsupported value kind %d", kind)
	}
	if d.InvertLogic {
		on = !on
	}
	return on, nil
}

// encode converts an enable request into the raw value to store.
func (d Descriptor) encode(kind ValueKind, enable bool) string {
	on := enable
	if d.InvertLogic {
		on = !on
	}
	switch kind {
	case KindString:
		if on {
			return "enabled"
		}
		return "disabled"
	case KindBool:
		return strconv.FormatBool(on)
	default:
		if on {
			return "1"
		}
		return "0"
	}
}

// SettingStore reads and writes raw persistent setting values.
type SettingStore interface {
	// Read returns the raw value and its observed kind
	Read(ctx context.Context, d Descriptor) (string, ValueKind, error)

	// Write stores a raw value of the given kind
	Write(ctx context.Context, d Descriptor, kind ValueKind, raw string) error
}

// Broadcaster notifies the system that a setting changed.
type Broadcaster interface {
	Broadcast(ctx context.Context) error
}

// BroadcastFunc adapts a function to Broadcaster.
type BroadcastFunc func(ctx context.Context) error

// Broadcast calls f.
func (f BroadcastFunc) Broadcast(ctx context.Context) error { return f(ctx) }

// SettingChannel controls the touchpad through a persistent setting.
type SettingChannel struct {
	mu          sync.Mutex
	store       SettingStore
	broadcaster Broadcaster
	candidates  []Descriptor
	logger      *slog.Logger

	adopted     *Descriptor
	adoptedKind ValueKind
}

// NewSettingChannel creates a channel probing candidates in order.
func NewSettingChannel(store SettingStore, broadcaster Broadcaster, candidates []Descriptor, logger *slog.Logger) *SettingChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingChannel{
		store:       store,
		broadcaster: broadcaster,
		candidates:  candidates,
		logger:      logger.With("component", "setting_channel"),
	}
}

// Kind returns KindPersistentSetting.
func (c *SettingChannel) Kind() Kind { return KindPersistentSetting }

// Probe adopts the first readable candidate location.
func (c *SettingChannel) Probe(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.adopted = nil
	for _, d := range c.candidates {
		raw, kind, err := c.store.Read(ctx, d)
		if err != nil {
			c.logger.Debug("setting location not readable", "location", d.String(), "error", err)
			continue
		}
		d := d
		c.adopted = &d
		c.adoptedKind = kind
		c.logger.Info("adopted setting location",
			"location", d.String(), "kind", kind.String(), "invert", d.InvertLogic, "raw", raw)
		return true
	}
	return false
}

// Adopted returns the descriptor matched by the last probe.
func (c *SettingChannel) Adopted() (Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.adopted == nil {
		return Descriptor{}, false
	}
	return *c.adopted, true
}

// State reads the adopted value.
func (c *SettingChannel) State(ctx context.Context) (State, error) {
	c.mu.Lock()
	d, kind := c.adopted, c.adoptedKind
	c.mu.Unlock()
	if d == nil {
		return StateUnknown, ErrNotAdopted
	}

	raw, _, err := c.store.Read(ctx, *d)
	if err != nil {
		return StateUnknown, fmt.Errorf("%w: read %s: %v", ErrStateUnknown, d, err)
	}
	on, err := d.decode(kind, raw)
	if err != nil {
		return StateUnknown, fmt.Errorf("%w: %v", ErrStateUnknown, err)
	}
	return StateOf(on), nil
}

// SetState writes the adopted value and broadcasts the change.
func (c *SettingChannel) SetState(ctx context.Context, enable bool) error {
	c.mu.Lock()
	d, kind := c.adopted, c.adoptedKind
	c.mu.Unlock()
	if d == nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, ErrNotAdopted)
	}

	raw := d.encode(kind, enable)
	if err := c.store.Write(ctx, *d, kind, raw); err != nil {
		return fmt.Errorf("%w: %s=%s: %v", ErrWriteFailed, d, raw, err)
	}
	c.logger.Debug("setting written", "location", d.String(), "raw", raw, "enable", enable)

	if c.broadcaster != nil {
		if err := c.broadcaster.Broadcast(ctx); err != nil {
			c.logger.Warn("settings change broadcast failed", "error", err)
		}
	}
	return nil
}
