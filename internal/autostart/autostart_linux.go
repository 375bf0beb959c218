//go:build linux

package autostart

import (
	"os"
	"path/filepath"
)

// desktopPath is under $XDG_CONFIG_HOME/autostart
func desktopPath() (string, error) {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		config = filepath.Join(home, ".config")
	}
	return filepath.Join(config, "autostart", appName+".desktop"), nil
}

func enable(e Entry) error {
	path, err := desktopPath()
	if err != nil {
		return err
	}
	data, err := render(xdgDesktopEntry, e)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func disable() error {
	path, err := desktopPath()
	if err != nil {
		return err
	}
	return removeFile(path)
}

func isEnabled() bool {
	path, err := desktopPath()
	return err == nil && fileExists(path)
}
