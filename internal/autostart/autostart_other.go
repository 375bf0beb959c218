//go:build !darwin && !linux && !windows

package autostart

func enable(Entry) error { return ErrUnsupported }
func disable() error     { return ErrUnsupported }
func isEnabled() bool    { return false }
