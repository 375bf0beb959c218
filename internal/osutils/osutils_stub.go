//go:build !windows

// Package osutils wraps the few OS calls the control channels need.
package osutils

import (
	"fmt"
	"os"
	"runtime"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// BroadcastSettingChange is not needed outside Windows
func BroadcastSettingChange() error {
	return nil
}

// Beep is not supported on this platform
func Beep(frequency, durationMS uint32) error {
	return fmt.Errorf("beep not supported on %s", runtime.GOOS)
}
