//go:build !windows && !linux

package control

import "context"

// DefaultDescriptors returns no locations on this platform
func DefaultDescriptors() []Descriptor {
	return nil
}

type unsupportedStore struct{}

// NewSettingStore returns a store that cannot read anything
func NewSettingStore() SettingStore {
	return unsupportedStore{}
}

func (unsupportedStore) Read(ctx context.Context, d Descriptor) (string, ValueKind, error) {
	return "", d.Kind, ErrUnsupported
}

func (unsupportedStore) Write(ctx context.Context, d Descriptor, kind ValueKind, raw string) error {
	return ErrUnsupported
}

// NewBroadcaster returns nil on this platform
func NewBroadcaster() Broadcaster {
	return nil
}
