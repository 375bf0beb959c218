// Package input provides the system-wide keyboard feed.
package input

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"palmguard/internal/metrics"
)

// ErrNoSource is returned when no keyboard source works on this host
var ErrNoSource = errors.New("no keyboard event source available")

// KeyEvent is one key press or release
type KeyEvent struct {
	// Key is the upper-case key name, e.g. "A", "F11", "CTRL"
	Key string `json:"key"`

	// Down is true for presses and auto-repeats
	Down bool `json:"down"`

	// Injected marks synthetic events, including our own key simulation
	Injected bool `json:"injected,omitempty"`

	At time.Time `json:"at"`
}

// Handler receives events on the source's dispatch path and must return quickly
type Handler func(KeyEvent)

// Source is a platform keyboard hook
type Source interface {
	Name() string
	Available() bool

	// Run delivers events to h until ctx is done
	Run(ctx context.Context, h Handler) error
}

// Select returns the first available source.
func Select(sources []Source) (Source, error) {
	for _, s := range sources {
		if s != nil && s.Available() {
			return s, nil
		}
	}
	return nil, ErrNoSource
}

// Feed fans keyboard events out to activity and hotkey consumers.
type Feed struct {
	mu       sync.RWMutex
	activity []func()
	keys     []func(key string, down bool)
	source   string
	logger   *slog.Logger
}

// NewFeed creates an empty feed.
func NewFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{source: "none", logger: logger.With("component", "input")}
}

// OnActivity registers fn for every physical key press.
func (f *Feed) OnActivity(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, fn)
}

// OnKey registers fn for every physical press and release.
func (f *Feed) OnKey(fn func(key string, down bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, fn)
}

// Handle is the Handler to pass to a Source.
func (f *Feed) Handle(ev KeyEvent) {
	// synthetic presses would re-trigger the disable we just simulated
	if ev.Injected {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	key := strings.ToUpper(ev.Key)
	for _, fn := range f.keys {
		fn(key, ev.Down)
	}
	if ev.Down {
		metrics.KeyEvents.WithLabelValues(f.source).Inc()
		for _, fn := range f.activity {
			fn()
		}
	}
}

// Run selects a source and feeds it until ctx is done.
func (f *Feed) Run(ctx context.Context, sources []Source) error {
	src, err := Select(sources)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.source = src.Name()
	f.mu.Unlock()
	f.logger.Info("keyboard source started", "source", src.Name())
	err = src.Run(ctx, f.Handle)
	if err != nil && ctx.Err() == nil {
		f.logger.Error("keyboard source stopped", "source", src.Name(), "error", err)
		return err
	}
	return nil
}
