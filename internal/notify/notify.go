// Package notify delivers desktop notifications and sound cues for
// touchpad state changes.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const appName = "palmguard"

// Provider shows a desktop notification.
type Provider interface {
	Name() string
	Available() bool
	Notify(ctx context.Context, title, body string) error
}

// Sounder plays a short cue for a state change.
type Sounder interface {
	Name() string
	Available() bool
	Cue(ctx context.Context, enabled bool) error
}

// Notifier picks the first available provider and sounder and runs them off
// the caller's goroutine.
type Notifier struct {
	provider Provider
	sounder  Sounder
	logger   *slog.Logger

	sounds        atomic.Bool
	notifications atomic.Bool

	queue    chan func(context.Context)
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a notifier from ranked candidates. Nil candidates select the
// platform defaults.
func New(providers []Provider, sounders []Sounder, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notify")
	if providers == nil {
		providers = DefaultProviders(logger)
	}
	if sounders == nil {
		sounders = DefaultSounders()
	}

	n := &Notifier{
		logger: logger,
		queue:  make(chan func(context.Context), 8),
		done:   make(chan struct{}),
	}
	for _, p := range providers {
		if p != nil && p.Available() {
			n.provider = p
			break
		}
	}
	for _, s := range sounders {
		if s != nil && s.Available() {
			n.sounder = s
			break
		}
	}
	if n.provider == nil {
		n.provider = NewLogProvider(logger)
	}
	n.sounds.Store(true)
	n.notifications.Store(true)

	sounder := "none"
	if n.sounder != nil {
		sounder = n.sounder.Name()
	}
	logger.Debug("notification providers selected", "provider", n.provider.Name(), "sounder", sounder)
	return n
}

// SetEnabled switches sounds and notifications on or off.
func (n *Notifier) SetEnabled(sounds, notifications bool) {
	n.sounds.Store(sounds)
	n.notifications.Store(notifications)
}

// Start runs the delivery worker until ctx is done or Close is called.
func (n *Notifier) Start(ctx context.Context) {
	n.startMu.Lock()
	defer n.startMu.Unlock()
	if n.started {
		return
	}
	n.started = true
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-n.done:
				return
			case job := <-n.queue:
				job(ctx)
			}
		}
	}()
}

// Close stops the worker; queued jobs are dropped.
func (n *Notifier) Close() {
	n.stopOnce.Do(func() { close(n.done) })
}

// StateChanged announces a touchpad transition.
func (n *Notifier) StateChanged(enabled bool) {
	if n.sounds.Load() && n.sounder != nil {
		n.enqueue(func(ctx context.Context) {
			if err := n.sounder.Cue(ctx, enabled); err != nil {
				n.logger.Debug("sound cue failed", "sounder", n.sounder.Name(), "error", err)
			}
		})
	}
	if enabled {
		n.Message("Touchpad enabled", "Keyboard idle, touchpad is back on")
	} else {
		n.Message("Touchpad disabled", "Typing detected, touchpad paused")
	}
}

// Message shows a notification.
func (n *Notifier) Message(title, body string) {
	if !n.notifications.Load() {
		return
	}
	n.enqueue(func(ctx context.Context) {
		if err := n.provider.Notify(ctx, title, body); err != nil {
			n.logger.Warn("notification failed", "provider", n.provider.Name(), "error", err)
		}
	})
}

func (n *Notifier) enqueue(job func(context.Context)) {
	select {
	case n.queue <- job:
	default:
		n.logger.Debug("notification queue full, dropping")
	}
}

// logProvider writes notifications to the log
type logProvider struct {
	logger *slog.Logger
}

// NewLogProvider returns a provider that only logs.
func NewLogProvider(logger *slog.Logger) Provider {
	return &logProvider{logger: logger}
}

func (p *logProvider) Name() string    { return "log" }
func (p *logProvider) Available() bool { return true }

func (p *logProvider) Notify(ctx context.Context, title, body string) error {
	p.logger.Info(title, "message", body)
	return nil
}
