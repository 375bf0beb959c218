package control

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// uinput devices need a moment before the first event is delivered on Linux
const linuxInjectorWarmup = 2 * time.Second

var keybdCodes = map[string]int{
	"A": keybd_event.VK_A, "B": keybd_event.VK_B, "C": keybd_event.VK_C, "D": keybd_event.VK_D,
	"E": keybd_event.VK_E, "F": keybd_event.VK_F, "G": keybd_event.VK_G, "H": keybd_event.VK_H,
	"I": keybd_event.VK_I, "J": keybd_event.VK_J, "K": keybd_event.VK_K, "L": keybd_event.VK_L,
	"M": keybd_event.VK_M, "N": keybd_event.VK_N, "O": keybd_event.VK_O, "P": keybd_event.VK_P,
	"Q": keybd_event.VK_Q, "R": keybd_event.VK_R, "S": keybd_event.VK_S, "T": keybd_event.VK_T,
	"U": keybd_event.VK_U, "V": keybd_event.VK_V, "W": keybd_event.VK_W, "X": keybd_event.VK_X,
	"Y": keybd_event.VK_Y, "Z": keybd_event.VK_Z,
	"F1": keybd_event.VK_F1, "F2": keybd_event.VK_F2, "F3": keybd_event.VK_F3, "F4": keybd_event.VK_F4,
	"F5": keybd_event.VK_F5, "F6": keybd_event.VK_F6, "F7": keybd_event.VK_F7, "F8": keybd_event.VK_F8,
	"F9": keybd_event.VK_F9, "F10": keybd_event.VK_F10, "F11": keybd_event.VK_F11, "F12": keybd_event.VK_F12,
}

// keybdInjector drives keybd_event one key at a time
type keybdInjector struct {
	mu      sync.Mutex
	kb      keybd_event.KeyBonding
	readyAt time.Time
}

// OpenInjector opens the platform key injection facility.
func OpenInjector() (Injector, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("open key injector: %w", err)
	}
	inj := &keybdInjector{kb: kb, readyAt: time.Now()}
	if runtime.GOOS == "linux" {
		inj.readyAt = inj.readyAt.Add(linuxInjectorWarmup)
	}
	return inj, nil
}

// SupportedKey reports whether key can be injected.
func SupportedKey(key string) bool {
	switch key {
	case "CTRL", "ALT", "SHIFT", "SUPER":
		return true
	}
	_, ok := keybdCodes[key]
	return ok
}

func (i *keybdInjector) KeyDown(key string) error {
	return i.send(key, true)
}

func (i *keybdInjector) KeyUp(key string) error {
	return i.send(key, false)
}

func (i *keybdInjector) send(key string, down bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if wait := time.Until(i.readyAt); wait > 0 {
		time.Sleep(wait)
	}

	i.kb.Clear()
	switch key {
	case "CTRL":
		i.kb.HasCTRL(true)
	case "ALT":
		i.kb.HasALT(true)
	case "SHIFT":
		i.kb.HasSHIFT(true)
	case "SUPER":
		i.kb.HasSuper(true)
	default:
		code, ok := keybdCodes[key]
		if !ok {
			return fmt.Errorf("key %q cannot be injected", key)
		}
		i.kb.SetKeys(code)
	}

	if down {
		return i.kb.Press()
	}
	return i.kb.Release()
}
