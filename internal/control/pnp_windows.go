//go:build windows

package control

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// pnpEnumerator drives the PnpDevice PowerShell cmdlets
type pnpEnumerator struct {
	toolPath string
	class    string
}

// NewEnumerator returns a PnP enumerator for HID class devices
func NewEnumerator() Enumerator {
	e := &pnpEnumerator{class: "HIDClass"}
	for _, p := range []string{"powershell.exe", "pwsh.exe"} {
		if path, err := exec.LookPath(p); err == nil {
			e.toolPath = path
			break
		}
	}
	return e
}

func (e *pnpEnumerator) Available() bool {
	return e.toolPath != ""
}

type pnpDevice struct {
	InstanceID   string `json:"InstanceId"`
	FriendlyName string `json:"FriendlyName"`
	Status       string `json:"Status"`
}

func (e *pnpEnumerator) List(ctx context.Context) ([]Device, error) {
	if e.toolPath == "" {
		return nil, ErrToolNotFound
	}
	script := fmt.Sprintf("Get-PnpDevice -Class %s -PresentOnly | Select-Object InstanceId,FriendlyName,Status | ConvertTo-Json -Compress", e.class)
	out, err := e.run(ctx, script)
	if err != nil {
		return nil, err
	}
	return parsePnpDevices(decodeUTF16(out))
}

func (e *pnpEnumerator) SetEnabled(ctx context.Context, instanceID string, enable bool) error {
	if e.toolPath == "" {
		return ErrToolNotFound
	}
	verb := "Disable-PnpDevice"
	if enable {
		verb = "Enable-PnpDevice"
	}
	id := strings.ReplaceAll(instanceID, "'", "''")
	_, err := e.run(ctx, fmt.Sprintf("%s -InstanceId '%s' -Confirm:$false", verb, id))
	return err
}

func (e *pnpEnumerator) run(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.toolPath, "-NoProfile", "-NonInteractive", "-Command", script)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("powershell exited %d: %s", ee.ExitCode(), strings.TrimSpace(decodeUTF16(ee.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// parsePnpDevices accepts ConvertTo-Json output, which is a bare object
// for a single device and an array otherwise
func parsePnpDevices(output string) ([]Device, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	var raw []pnpDevice
	if strings.HasPrefix(output, "{") {
		var one pnpDevice
		if err := json.Unmarshal([]byte(output), &one); err != nil {
			return nil, fmt.Errorf("parse pnp device: %w", err)
		}
		raw = append(raw, one)
	} else if err := json.Unmarshal([]byte(output), &raw); err != nil {
		return nil, fmt.Errorf("parse pnp devices: %w", err)
	}

	devices := make([]Device, 0, len(raw))
	for _, d := range raw {
		devices = append(devices, Device{
			InstanceID: d.InstanceID,
			Name:       d.FriendlyName,
			Enabled:    strings.EqualFold(d.Status, "OK"),
		})
	}
	return devices, nil
}

// decodeUTF16 converts UTF-16LE (potentially with BOM) to UTF-8 string
func decodeUTF16(b []byte) string {
	if len(b) < 2 {
		return string(b)
	}

	// UTF-16 output of ASCII text is roughly half null bytes
	if utf8.Valid(b) {
		nulls := 0
		for _, v := range b {
			if v == 0 {
				nulls++
			}
		}
		if nulls == 0 || nulls < len(b)/10 {
			return strings.TrimPrefix(string(b), "\ufeff")
		}
	}

	if b[0] == 0xFF && b[1] == 0xFE {
		b = b[2:]
	}

	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}
	return string(utf16.Decode(u16))
}
