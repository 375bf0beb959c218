//go:build linux

package input

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	procDevices   = "/proc/bus/input/devices"
	byIDDir       = "/dev/input/by-id"
	eventSize     = 24 // sizeof(struct input_event) on 64-bit
	evKey         = 0x01
	keyValueUp    = 0
	injectorName  = "keybd_event" // uinput device created by the key injector
	keyboardToken = "kbd"
)

// DefaultSources returns the evdev reader.
func DefaultSources() []Source {
	return []Source{&evdevSource{}}
}

// keyboardDevice is one /dev/input/event* node that reports keys
type keyboardDevice struct {
	Name string
	Path string
}

// evdevSource reads every keyboard event node; requires the input group
type evdevSource struct{}

func (s *evdevSource) Name() string { return "linux-evdev" }

func (s *evdevSource) Available() bool {
	devs, err := findKeyboardDevices()
	if err != nil {
		return false
	}
	for _, d := range devs {
		if f, err := os.Open(d.Path); err == nil {
			f.Close()
			return true
		}
	}
	return false
}

func (s *evdevSource) Run(ctx context.Context, h Handler) error {
	devs, err := findKeyboardDevices()
	if err != nil {
		return err
	}

	var (
		files []*os.File
		wg    sync.WaitGroup
		mu    sync.Mutex
	)
	for _, d := range devs {
		f, err := os.Open(d.Path)
		if err != nil {
			continue
		}
		files = append(files, f)
		injected := strings.Contains(d.Name, injectorName)
		wg.Add(1)
		go func() {
			defer wg.Done()
			readEvents(f, injected, func(ev KeyEvent) {
				mu.Lock()
				defer mu.Unlock()
				h(ev)
			})
		}()
	}
	if len(files) == 0 {
		return fmt.Errorf("no readable keyboard device among %d: %w", len(devs), ErrNoSource)
	}

	<-ctx.Done()
	// Closing unblocks the pending reads
	for _, f := range files {
		f.Close()
	}
	wg.Wait()
	return ctx.Err()
}

func readEvents(r io.Reader, injected bool, h Handler) {
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		typ := binary.LittleEndian.Uint16(buf[16:18])
		if typ != evKey {
			continue
		}
		code := binary.LittleEndian.Uint16(buf[18:20])
		value := int32(binary.LittleEndian.Uint32(buf[20:24]))
		h(KeyEvent{
			Key:      evdevKeyName(code),
			Down:     value != keyValueUp,
			Injected: injected,
			At:       time.Now(),
		})
	}
}

// findKeyboardDevices lists keyboard nodes from /proc, falling back to by-id
func findKeyboardDevices() ([]keyboardDevice, error) {
	f, err := os.Open(procDevices)
	if err == nil {
		defer f.Close()
		if devs := parseProcDevices(f); len(devs) > 0 {
			return devs, nil
		}
	}

	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return nil, fmt.Errorf("list keyboards: %w", err)
	}
	var devs []keyboardDevice
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, "-event-kbd") {
			devs = append(devs, keyboardDevice{Name: name, Path: filepath.Join(byIDDir, name)})
		}
	}
	if len(devs) == 0 {
		return nil, ErrNoSource
	}
	return devs, nil
}

// parseProcDevices picks the blocks whose handlers include kbd and an event node
func parseProcDevices(r io.Reader) []keyboardDevice {
	var (
		devs    []keyboardDevice
		name    string
		handler string
		isKbd   bool
	)
	flush := func() {
		if isKbd && handler != "" {
			devs = append(devs, keyboardDevice{Name: name, Path: "/dev/input/" + handler})
		}
		name, handler, isKbd = "", "", false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				if part == keyboardToken {
					isKbd = true
				}
				if strings.HasPrefix(part, "event") {
					handler = part
				}
			}
		}
	}
	flush()
	return devs
}

var evdevNames = map[uint16]string{
	1: "ESC", 14: "BACKSPACE", 15: "TAB", 28: "ENTER", 57: "SPACE",
	29: "CTRL", 97: "CTRL",
	42: "SHIFT", 54: "SHIFT",
	56: "ALT", 100: "ALT",
	125: "SUPER", 126: "SUPER",
	87: "F11", 88: "F12",
}

// Rows of the US layout by evdev code
var evdevRows = []struct {
	first uint16
	keys  string
}{
	{2, "1234567890"},
	{16, "QWERTYUIOP"},
	{30, "ASDFGHJKL"},
	{44, "ZXCVBNM"},
}

func evdevKeyName(code uint16) string {
	if name, ok := evdevNames[code]; ok {
		return name
	}
	if code >= 59 && code <= 68 {
		return fmt.Sprintf("F%d", code-58)
	}
	for _, row := range evdevRows {
		if code >= row.first && int(code-row.first) < len(row.keys) {
			return string(row.keys[code-row.first])
		}
	}
	return fmt.Sprintf("KEY%d", code)
}
