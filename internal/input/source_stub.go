//go:build !windows && !linux && !darwin

package input

// DefaultSources returns nothing; Feed.Run then reports ErrNoSource.
func DefaultSources() []Source {
	return nil
}
