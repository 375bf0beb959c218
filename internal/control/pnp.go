package control

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultNamePatterns match touchpad display names case-insensitively.
var DefaultNamePatterns = []string{"touchpad", "touch pad"}

// Device is one system-recognized input device.
type Device struct {
	// InstanceID addresses the device in enable/disable commands
	InstanceID string `json:"instance_id"`

	// Name is the display name
	Name string `json:"name"`

	// Enabled is the operational status
	Enabled bool `json:"enabled"`
}

// Enumerator lists and switches devices of the target class.
type Enumerator interface {
	// Available reports whether the enumeration facility exists
	Available() bool

	// List returns devices of the target class
	List(ctx context.Context) ([]Device, error)

	// SetEnabled enables or disables one device
	SetEnabled(ctx context.Context, instanceID string, enable bool) error
}

// DeviceChannel controls the touchpad by enabling or disabling its device.
type DeviceChannel struct {
	enum     Enumerator
	patterns []string
	logger   *slog.Logger
}

// NewDeviceChannel creates a device enumeration channel.
func NewDeviceChannel(enum Enumerator, patterns []string, logger *slog.Logger) *DeviceChannel {
	if logger == nil {
		logger = slog.Default()
	}
	if len(patterns) == 0 {
		patterns = DefaultNamePatterns
	}
	lower := make([]string, len(patterns))
	for i, p := range patterns {
		lower[i] = strings.ToLower(p)
	}
	return &DeviceChannel{
		enum:     enum,
		patterns: lower,
		logger:   logger.With("component", "device_channel"),
	}
}

// Kind returns KindDeviceEnumeration.
func (c *DeviceChannel) Kind() Kind { return KindDeviceEnumeration }

// Probe reports whether the enumeration facility is present.
func (c *DeviceChannel) Probe(ctx context.Context) bool {
	return c.enum != nil && c.enum.Available()
}

// Matches returns the devices whose name contains one of the patterns.
func (c *DeviceChannel) Matches(ctx context.Context) ([]Device, error) {
	devices, err := c.enum.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched []Device
	for _, d := range devices {
		name := strings.ToLower(d.Name)
		for _, p := range c.patterns {
			if strings.Contains(name, p) {
				matched = append(matched, d)
				break
			}
		}
	}
	return matched, nil
}

// State reports the status of the single matching device.
func (c *DeviceChannel) State(ctx context.Context) (State, error) {
	matched, err := c.Matches(ctx)
	if err != nil {
		return StateUnknown, fmt.Errorf("%w: enumerate devices: %v", ErrStateUnknown, err)
	}
	if len(matched) != 1 {
		return StateUnknown, fmt.Errorf("%w: %d devices matched", ErrAmbiguousDevice, len(matched))
	}
	return StateOf(matched[0].Enabled), nil
}

// SetState enables or disables the single matching device. Nothing is
// touched when zero or several devices match.
func (c *DeviceChannel) SetState(ctx context.Context, enable bool) error {
	matched, err := c.Matches(ctx)
	if err != nil {
		return fmt.Errorf("%w: enumerate devices: %v", ErrWriteFailed, err)
	}
	if len(matched) != 1 {
		names := make([]string, len(matched))
		for i, d := range matched {
			names[i] = d.Name
		}
		c.logger.Warn("refusing to switch ambiguous device match", "count", len(matched), "names", names)
		return fmt.Errorf("%w: %d devices matched", ErrAmbiguousDevice, len(matched))
	}

	dev := matched[0]
	if err := c.enum.SetEnabled(ctx, dev.InstanceID, enable); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, dev.Name, err)
	}
	c.logger.Info("device switched", "name", dev.Name, "instance_id", dev.InstanceID, "enable", enable)
	return nil
}
