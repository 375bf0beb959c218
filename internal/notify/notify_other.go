//go:build !linux && !windows

package notify

import "log/slog"

// DefaultProviders returns nothing; notifications fall back to the log.
func DefaultProviders(logger *slog.Logger) []Provider {
	return nil
}

// DefaultSounders returns nothing.
func DefaultSounders() []Sounder {
	return nil
}
