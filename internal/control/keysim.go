package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultSettleDelay is the pause between pressing and releasing the main key.
// Shorter presses are coalesced away by some firmware hotkey handlers.
const DefaultSettleDelay = 80 * time.Millisecond

// Combination is an ordered key sequence; the last key is the main key and
// the ones before it are modifiers.
type Combination []string

// ParseCombination parses "ctrl+alt+f11" style strings.
func ParseCombination(s string) (Combination, error) {
	var combo Combination
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		combo = append(combo, part)
	}
	if len(combo) == 0 {
		return nil, fmt.Errorf("empty key combination %q", s)
	}
	return combo.Normalize(), nil
}

// Normalize upper-cases key names and maps common aliases.
func (c Combination) Normalize() Combination {
	out := make(Combination, 0, len(c))
	for _, k := range c {
		k = strings.ToUpper(strings.TrimSpace(k))
		switch k {
		case "CONTROL":
			k = "CTRL"
		case "MENU", "OPTION":
			k = "ALT"
		case "WIN", "WINDOWS", "META", "CMD", "COMMAND":
			k = "SUPER"
		}
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Main returns the main key.
func (c Combination) Main() string {
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1]
}

// Modifiers returns the keys held while the main key is tapped.
func (c Combination) Modifiers() []string {
	if len(c) < 2 {
		return nil
	}
	return c[:len(c)-1]
}

func (c Combination) String() string {
	return strings.Join(c, "+")
}

// Injector presses and releases single keys.
type Injector interface {
	KeyDown(key string) error
	KeyUp(key string) error
}

// InjectorFactory opens the platform key injection facility.
type InjectorFactory func() (Injector, error)

// KeySimChannel toggles the touchpad by simulating its firmware hotkey.
type KeySimChannel struct {
	mu       sync.Mutex
	open     InjectorFactory
	injector Injector
	combo    Combination
	settle   time.Duration
	logger   *slog.Logger
}

// NewKeySimChannel creates a key simulation channel for combo.
func NewKeySimChannel(open InjectorFactory, combo Combination, settle time.Duration, logger *slog.Logger) *KeySimChannel {
	if logger == nil {
		logger = slog.Default()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &KeySimChannel{
		open:   open,
		combo:  combo.Normalize(),
		settle: settle,
		logger: logger.With("component", "keysim_channel"),
	}
}

// Kind returns KindKeySimulation.
func (c *KeySimChannel) Kind() Kind { return KindKeySimulation }

// Combination returns the configured combination.
func (c *KeySimChannel) Combination() Combination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combo
}

// SetCombination replaces the combination, e.g. after calibration.
func (c *KeySimChannel) SetCombination(combo Combination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.combo = combo.Normalize()
}

// Probe reports whether key injection is available. It does not verify
// that the combination actually toggles the touchpad.
func (c *KeySimChannel) Probe(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.injector != nil {
		return true
	}
	if c.open == nil {
		return false
	}
	inj, err := c.open()
	if err != nil {
		c.logger.Debug("key injection unavailable", "error", err)
		return false
	}
	c.injector = inj
	return true
}

// State always returns StateUnknown: a hotkey leaves no readable trace.
func (c *KeySimChannel) State(ctx context.Context) (State, error) {
	return StateUnknown, nil
}

// SetState fires the combination. The combination is a toggle, so the
// caller decides whether firing is needed.
func (c *KeySimChannel) SetState(ctx context.Context, enable bool) error {
	return c.SendCombination(ctx)
}

// SendCombination presses modifiers in order, taps the main key and
// releases modifiers in reverse order.
func (c *KeySimChannel) SendCombination(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.injector == nil {
		return fmt.Errorf("%w: injector not open", ErrCombinationSendFailed)
	}
	if len(c.combo) == 0 {
		return fmt.Errorf("%w: empty combination", ErrCombinationSendFailed)
	}

	var pressed []string
	release := func() error {
		var errs []error
		for i := len(pressed) - 1; i >= 0; i-- {
			if err := c.injector.KeyUp(pressed[i]); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", pressed[i], err))
			}
		}
		pressed = nil
		return errors.Join(errs...)
	}

	for _, mod := range c.combo.Modifiers() {
		if err := c.injector.KeyDown(mod); err != nil {
			release()
			return fmt.Errorf("%w: press %s: %v", ErrCombinationSendFailed, mod, err)
		}
		pressed = append(pressed, mod)
	}

	mainKey := c.combo.Main()
	if err := c.injector.KeyDown(mainKey); err != nil {
		release()
		return fmt.Errorf("%w: press %s: %v", ErrCombinationSendFailed, mainKey, err)
	}

	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
	}

	// The main key is released even if ctx was cancelled during the settle
	if err := c.injector.KeyUp(mainKey); err != nil {
		release()
		return fmt.Errorf("%w: release %s: %v", ErrCombinationSendFailed, mainKey, err)
	}
	if err := release(); err != nil {
		return fmt.Errorf("%w: %v", ErrCombinationSendFailed, err)
	}

	c.logger.Info("key combination sent", "combination", c.combo.String())
	return nil
}
