//go:build windows

package notify

import (
	"context"
	"log/slog"

	"palmguard/internal/osutils"
)

const (
	enableFreq  uint32 = 1000
	disableFreq uint32 = 500
	cueMillis   uint32 = 100
)

// DefaultProviders returns nothing; notifications fall back to the log.
func DefaultProviders(logger *slog.Logger) []Provider {
	return nil
}

// DefaultSounders returns the system speaker beep.
func DefaultSounders() []Sounder {
	return []Sounder{beepSounder{}}
}

type beepSounder struct{}

func (beepSounder) Name() string    { return "beep" }
func (beepSounder) Available() bool { return true }

func (beepSounder) Cue(ctx context.Context, enabled bool) error {
	freq := disableFreq
	if enabled {
		freq = enableFreq
	}
	return osutils.Beep(freq, cueMillis)
}
