//go:build darwin

package autostart

import (
	"os"
	"path/filepath"
)

func plistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

func enable(e Entry) error {
	path, err := plistPath()
	if err != nil {
		return err
	}
	data, err := render(macLaunchAgentPlist, e)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func disable() error {
	path, err := plistPath()
	if err != nil {
		return err
	}
	return removeFile(path)
}

func isEnabled() bool {
	path, err := plistPath()
	return err == nil && fileExists(path)
}
