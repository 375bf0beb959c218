//go:build linux

package control

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Format: ⎜   ↳ SynPS/2 Synaptics TouchPad    id=12   [slave  pointer  (2)]
	xinputDeviceRegex = regexp.MustCompile(`^\W*(.+?)\s+id=(\d+)\s+\[([^\]]*)\]`)
	// Format: 	Device Enabled (185):	1
	xinputEnabledRegex = regexp.MustCompile(`^\s*Device Enabled \(\d+\):\s*(\d)`)
)

// xinputEnumerator drives the X11 xinput tool
type xinputEnumerator struct {
	toolPath string
}

// NewEnumerator returns an xinput backed enumerator
func NewEnumerator() Enumerator {
	path, _ := exec.LookPath("xinput")
	return &xinputEnumerator{toolPath: path}
}

func (e *xinputEnumerator) Available() bool {
	return e.toolPath != "" && os.Getenv("DISPLAY") != ""
}

func (e *xinputEnumerator) List(ctx context.Context) ([]Device, error) {
	if e.toolPath == "" {
		return nil, ErrToolNotFound
	}
	out, err := exec.CommandContext(ctx, e.toolPath, "list").Output()
	if err != nil {
		return nil, fmt.Errorf("xinput list: %w", err)
	}

	devices := parseXinputList(string(out))
	for i := range devices {
		enabled, err := e.enabled(ctx, devices[i].InstanceID)
		if err != nil {
			return nil, err
		}
		devices[i].Enabled = enabled
	}
	return devices, nil
}

func (e *xinputEnumerator) enabled(ctx context.Context, id string) (bool, error) {
	out, err := exec.CommandContext(ctx, e.toolPath, "list-props", id).Output()
	if err != nil {
		return false, fmt.Errorf("xinput list-props %s: %w", id, err)
	}
	return parseXinputEnabled(string(out))
}

func (e *xinputEnumerator) SetEnabled(ctx context.Context, instanceID string, enable bool) error {
	if e.toolPath == "" {
		return ErrToolNotFound
	}
	verb := "disable"
	if enable {
		verb = "enable"
	}
	out, err := exec.CommandContext(ctx, e.toolPath, verb, instanceID).CombinedOutput()
	if err != nil {
		return fmt.Errorf("xinput %s %s: %w (%s)", verb, instanceID, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// parseXinputList keeps pointer devices only; master devices and keyboards
// are never touchpads
func parseXinputList(output string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		m := xinputDeviceRegex.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		role := m[3]
		if !strings.Contains(role, "pointer") || strings.Contains(role, "master") {
			continue
		}
		if _, err := strconv.Atoi(m[2]); err != nil {
			continue
		}
		devices = append(devices, Device{InstanceID: m[2], Name: strings.TrimSpace(m[1])})
	}
	return devices
}

func parseXinputEnabled(output string) (bool, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if m := xinputEnabledRegex.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1] == "1", nil
		}
	}
	return false, fmt.Errorf("no \"Device Enabled\" property")
}
