package monitor

import "time"

// Limits applied by Config.Clamp.
const (
	MinIdleThreshold = 1 * time.Second
	MaxIdleThreshold = 10 * time.Second
	MaxGuardDelay    = 5 * time.Second
)

// Config holds the idle policy.
type Config struct {
	// IdleThreshold is how long the keyboard must be quiet before re-enabling
	IdleThreshold time.Duration `json:"idle_threshold"`

	// MinDisableDuration is the minimum time between a disable and the next enable
	MinDisableDuration time.Duration `json:"min_disable_duration"`

	// PreEnableDelay is waited right before re-enabling
	PreEnableDelay time.Duration `json:"pre_enable_delay"`
}

// DefaultConfig returns the stock idle policy.
func DefaultConfig() Config {
	return Config{
		IdleThreshold:      5 * time.Second,
		MinDisableDuration: 500 * time.Millisecond,
		PreEnableDelay:     200 * time.Millisecond,
	}
}

// Clamp returns c with every field forced into its allowed range.
func (c Config) Clamp() Config {
	c.IdleThreshold = clamp(c.IdleThreshold, MinIdleThreshold, MaxIdleThreshold)
	c.MinDisableDuration = clamp(c.MinDisableDuration, 0, MaxGuardDelay)
	c.PreEnableDelay = clamp(c.PreEnableDelay, 0, MaxGuardDelay)
	return c
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
