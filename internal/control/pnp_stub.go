//go:build !windows && !linux

package control

import "context"

type unsupportedEnumerator struct{}

// NewEnumerator returns an enumerator that is never available
func NewEnumerator() Enumerator {
	return unsupportedEnumerator{}
}

func (unsupportedEnumerator) Available() bool { return false }

func (unsupportedEnumerator) List(ctx context.Context) ([]Device, error) {
	return nil, ErrUnsupported
}

func (unsupportedEnumerator) SetEnabled(ctx context.Context, instanceID string, enable bool) error {
	return ErrUnsupported
}
