//go:build linux

package control

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultDescriptors returns the known GNOME-family touchpad settings.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Location: "org.gnome.desktop.peripherals.touchpad", ValueName: "send-events", Kind: KindString},
		{Location: "org.cinnamon.desktop.peripherals.touchpad", ValueName: "send-events", Kind: KindString},
		{Location: "org.mate.peripherals-touchpad", ValueName: "touchpad-enabled", Kind: KindBool},
	}
}

// gsettingsStore shells out to the gsettings tool
type gsettingsStore struct {
	toolPath string
}

// NewSettingStore returns a gsettings backed store
func NewSettingStore() SettingStore {
	path, _ := exec.LookPath("gsettings")
	return &gsettingsStore{toolPath: path}
}

func (s *gsettingsStore) Read(ctx context.Context, d Descriptor) (string, ValueKind, error) {
	if s.toolPath == "" {
		return "", d.Kind, ErrToolNotFound
	}
	out, err := exec.CommandContext(ctx, s.toolPath, "get", d.Location, d.ValueName).Output()
	if err != nil {
		return "", d.Kind, fmt.Errorf("gsettings get %s %s: %w", d.Location, d.ValueName, err)
	}
	return strings.TrimSpace(string(out)), d.Kind, nil
}

func (s *gsettingsStore) Write(ctx context.Context, d Descriptor, kind ValueKind, raw string) error {
	if s.toolPath == "" {
		return ErrToolNotFound
	}
	out, err := exec.CommandContext(ctx, s.toolPath, "set", d.Location, d.ValueName, raw).CombinedOutput()
	if err != nil {
		return fmt.Errorf("gsettings set %s %s %s: %w (%s)", d.Location, d.ValueName, raw, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NewBroadcaster returns nil: dconf notifies its own subscribers.
func NewBroadcaster() Broadcaster {
	return nil
}
