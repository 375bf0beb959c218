// Package monitor disables the touchpad on keyboard activity and re-enables
// it once the keyboard has been idle long enough.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"palmguard/internal/control"
)

const (
	// TickInterval is the period of the idle check
	TickInterval = 300 * time.Millisecond

	panicBackoff = 1 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("monitor already running")
	ErrNotRunning     = errors.New("monitor not running")
)

// Controller is the state-changing side the monitor drives.
type Controller interface {
	State() control.State
	Refresh(ctx context.Context) (control.State, error)
	SetState(ctx context.Context, enable bool) error
	ForceState(ctx context.Context, enable bool) error
	ToggleOnly() bool
	LastDisableAt() time.Time
	MarkInput(at time.Time)
	MarkMonitoring(on bool, at time.Time)
}

// Monitor runs the idle loop.
type Monitor struct {
	ctrl   Controller
	logger *slog.Logger
	now    func() time.Time
	tick   time.Duration

	cfgMu sync.RWMutex
	cfg   Config

	// unix nanoseconds of the latest input; read on every tick
	lastInput atomic.Int64
	// bumped on every keystroke
	activity atomic.Uint64
	running  atomic.Bool
	// single slot; a pending request already covers new keystrokes
	disableReq chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped monitor.
func New(ctrl Controller, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		ctrl:       ctrl,
		logger:     logger.With("component", "monitor"),
		now:        time.Now,
		tick:       TickInterval,
		cfg:        cfg.Clamp(),
		disableReq: make(chan struct{}, 1),
	}
}

// Config returns the active policy.
func (m *Monitor) Config() Config {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg
}

// SetConfig replaces the policy; the next tick uses it.
func (m *Monitor) SetConfig(cfg Config) {
	cfg = cfg.Clamp()
	m.cfgMu.Lock()
	m.cfg = cfg
	m.cfgMu.Unlock()
	m.logger.Info("monitor config updated",
		"idle_threshold", cfg.IdleThreshold,
		"min_disable_duration", cfg.MinDisableDuration,
		"pre_enable_delay", cfg.PreEnableDelay)
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// Start establishes the device state and begins the loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return ErrAlreadyRunning
	}

	now := m.now()
	m.lastInput.Store(now.UnixNano())
	m.ctrl.MarkMonitoring(true, now)

	if st, err := m.ctrl.Refresh(ctx); err != nil {
		m.logger.Warn("initial touchpad state not confirmed", "state", st, "error", err)
	} else {
		m.logger.Info("initial touchpad state", "state", st)
	}

	// drop a request left over from a previous run
	select {
	case <-m.disableReq:
	default:
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running.Store(true)
	go m.run(loopCtx, m.done)

	m.logger.Info("monitoring started")
	return nil
}

// Stop ends the loop and re-enables the touchpad if it was left disabled.
// The device is enabled by the time Stop returns unless the enable failed.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return ErrNotRunning
	}

	m.running.Store(false)
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	var err error
	st := m.ctrl.State()
	if st == control.StateDisabled || (st == control.StateUnknown && !m.ctrl.ToggleOnly()) {
		if err = m.ctrl.ForceState(ctx, true); err != nil {
			m.logger.Error("failed to re-enable touchpad on stop", "error", err)
		}
	}

	m.ctrl.MarkMonitoring(false, m.now())
	m.logger.Info("monitoring stopped")
	return err
}

// RecordActivity notes a keystroke. It never blocks.
func (m *Monitor) RecordActivity() {
	now := m.now()
	m.lastInput.Store(now.UnixNano())
	m.activity.Add(1)
	m.ctrl.MarkInput(now)

	if !m.running.Load() || m.ctrl.State() != control.StateEnabled {
		return
	}
	select {
	case m.disableReq <- struct{}{}:
	default:
	}
}

// LastInput returns the time of the latest recorded keystroke.
func (m *Monitor) LastInput() time.Time {
	return time.Unix(0, m.lastInput.Load())
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.disableReq:
			m.guard(ctx, m.disableOnActivity)
		case <-ticker.C:
			m.guard(ctx, m.checkIdle)
		}
	}
}

// guard runs fn and turns a panic into a logged error plus a short pause.
func (m *Monitor) guard(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor loop panic recovered", "panic", r)
			select {
			case <-time.After(panicBackoff):
			case <-ctx.Done():
			}
		}
	}()
	fn(ctx)
}

func (m *Monitor) disableOnActivity(ctx context.Context) {
	if m.ctrl.State() != control.StateEnabled {
		return
	}
	if err := m.ctrl.SetState(ctx, false); err != nil {
		m.logger.Warn("disable on activity failed", "error", err)
	}
}

func (m *Monitor) checkIdle(ctx context.Context) {
	if m.ctrl.State() != control.StateDisabled {
		return
	}

	cfg := m.Config()
	now := m.now()
	mark := m.activity.Load()
	idle := now.Sub(m.LastInput())
	sinceDisable := now.Sub(m.ctrl.LastDisableAt())
	if idle < cfg.IdleThreshold || sinceDisable < cfg.MinDisableDuration {
		return
	}

	if cfg.PreEnableDelay > 0 {
		select {
		case <-time.After(cfg.PreEnableDelay):
		case <-ctx.Done():
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if m.activity.Load() != mark {
		m.logger.Debug("activity during pre-enable delay, staying disabled")
		return
	}

	m.logger.Debug("keyboard idle, re-enabling touchpad", "idle", idle)
	if err := m.ctrl.SetState(ctx, true); err != nil {
		m.logger.Warn("re-enable after idle failed", "error", err)
	}
}
