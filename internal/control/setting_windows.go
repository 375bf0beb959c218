//go:build windows

package control

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sys/windows/registry"

	"palmguard/internal/osutils"
)

// DefaultDescriptors returns the known touchpad registry flags under
// HKEY_CURRENT_USER, most specific first.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		// Precision TouchPad
		{Location: `Software\Microsoft\Windows\CurrentVersion\PrecisionTouchPad\Status`, ValueName: "Enabled", Kind: KindDWord},
		// Synaptics
		{Location: `Software\Synaptics\SynTP\TouchPadPS2`, ValueName: "DisableDevice", Kind: KindDWord, InvertLogic: true},
		{Location: `Software\Synaptics\SynTPEnh`, ValueName: "DisableTouchPad", Kind: KindDWord, InvertLogic: true},
		// ELAN
		{Location: `Software\Elantech\SmartPad`, ValueName: "Disable", Kind: KindDWord, InvertLogic: true},
		// Alps
		{Location: `Software\Alps\Apoint\TouchPad`, ValueName: "Disable", Kind: KindDWord, InvertLogic: true},
		{Location: `Software\Microsoft\Windows\CurrentVersion\Explorer`, ValueName: "DisableTouchPad", Kind: KindDWord, InvertLogic: true},
	}
}

// registryStore reads and writes HKEY_CURRENT_USER values
type registryStore struct{}

// NewSettingStore returns the registry backed store
func NewSettingStore() SettingStore {
	return registryStore{}
}

func (registryStore) Read(ctx context.Context, d Descriptor) (string, ValueKind, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, d.Location, registry.QUERY_VALUE)
	if err != nil {
		return "", d.Kind, err
	}
	defer key.Close()

	n, _, err := key.GetIntegerValue(d.ValueName)
	if err == nil {
		return strconv.FormatUint(n, 10), KindDWord, nil
	}
	if !errors.Is(err, registry.ErrUnexpectedType) {
		return "", d.Kind, err
	}

	s, _, err := key.GetStringValue(d.ValueName)
	if err != nil {
		return "", d.Kind, err
	}
	return s, KindNumericString, nil
}

func (registryStore) Write(ctx context.Context, d Descriptor, kind ValueKind, raw string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, d.Location, registry.SET_VALUE|registry.QUERY_VALUE)
	if err != nil {
		return err
	}
	defer key.Close()

	switch kind {
	case KindDWord:
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid dword %q: %w", raw, err)
		}
		return key.SetDWordValue(d.ValueName, uint32(v))
	default:
		return key.SetStringValue(d.ValueName, raw)
	}
}

// NewBroadcaster returns a broadcaster sending WM_SETTINGCHANGE to all windows
func NewBroadcaster() Broadcaster {
	return BroadcastFunc(func(ctx context.Context) error {
		return osutils.BroadcastSettingChange()
	})
}
