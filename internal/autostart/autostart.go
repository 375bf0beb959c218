// Package autostart registers palmguard to start at login.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	appName = "palmguard"
	label   = "com.palmguard.agent"
)

// ErrUnsupported is returned on platforms without a login item mechanism
var ErrUnsupported = errors.New("autostart not supported on this platform")

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>{{range .Args}}
        <string>{{.}}</string>{{end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=PalmGuard
Comment=Disable the touchpad while typing
Exec={{.CommandLine}}
Icon=input-touchpad
Terminal=false
Categories=Utility;
X-GNOME-Autostart-enabled=true
`

// Entry is the login item: the executable and its arguments
type Entry struct {
	Label string
	Exec  string
	Args  []string
}

// DefaultEntry launches the running executable minimized
func DefaultEntry() (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return Entry{Label: label, Exec: exe, Args: []string{"run", "--minimized"}}, nil
}

// CommandLine quotes the executable for Run keys and desktop files
func (e Entry) CommandLine() string {
	parts := []string{quote(e.Exec)}
	for _, a := range e.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

func render(text string, e Entry) ([]byte, error) {
	tmpl, err := template.New("autostart").Parse(text)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Enable registers the default entry
func Enable() error {
	e, err := DefaultEntry()
	if err != nil {
		return err
	}
	return enable(e)
}

// Disable removes the login item; a missing item is not an error
func Disable() error {
	return disable()
}

// IsEnabled reports whether the login item exists
func IsEnabled() bool {
	return isEnabled()
}

// Sync makes the login item match want
func Sync(want bool) error {
	if want == IsEnabled() {
		return nil
	}
	if want {
		return Enable()
	}
	return Disable()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
