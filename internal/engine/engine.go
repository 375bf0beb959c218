// Package engine wires the strategy selector, the idle monitor and the
// side effects of state changes behind one facade.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"palmguard/internal/config"
	"palmguard/internal/control"
	"palmguard/internal/metrics"
	"palmguard/internal/monitor"
	"palmguard/internal/notify"
	"palmguard/internal/protocol"
	"palmguard/internal/selector"
)

// Options customizes New.
type Options struct {
	Logger *slog.Logger

	// Channels replaces DefaultChannels
	Channels []control.Channel

	// Notifier receives state changes; nil disables cues and notifications
	Notifier *notify.Notifier
}

// Engine is the touchpad guard.
type Engine struct {
	sel      *selector.Selector
	mon      *monitor.Monitor
	notifier *notify.Notifier
	keysim   *control.KeySimChannel
	logger   *slog.Logger

	mu          sync.Mutex
	strategies  []control.Kind
	subscribers map[int]func(protocol.Message)
	nextSub     int
}

// New probes the control channels and returns a stopped engine. It returns
// control.ErrUnsupported when no channel works on this host.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	channels := opts.Channels
	if channels == nil {
		channels = DefaultChannels(cfg, logger)
	}

	e := &Engine{
		sel:         selector.New(channels, logger),
		notifier:    opts.Notifier,
		logger:      logger.With("component", "engine"),
		strategies:  cfg.Strategies(),
		subscribers: make(map[int]func(protocol.Message)),
	}
	for _, ch := range channels {
		if ks, ok := ch.(*control.KeySimChannel); ok {
			e.keysim = ks
		}
	}
	e.mon = monitor.New(e.sel, cfg.MonitorPolicy(), logger)
	e.sel.SetOnTransition(e.onTransition)
	e.sel.SetOnError(e.onError)
	if e.notifier != nil {
		e.notifier.SetEnabled(cfg.General.PlaySounds, cfg.General.ShowNotifications)
	}

	kind, err := e.sel.Probe(ctx, e.strategies...)
	e.publishStrategy()
	if err != nil {
		return nil, err
	}
	if _, err := e.sel.Refresh(ctx); err != nil {
		e.logger.Debug("initial state not confirmed", "error", err)
	}
	e.updateStateGauge(e.sel.State())
	e.logger.Info("touchpad guard ready", "strategy", kind, "state", e.sel.State())
	return e, nil
}

// Start begins monitoring.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.mon.Start(ctx); err != nil {
		return err
	}
	metrics.Monitoring.Set(1)
	e.updateStateGauge(e.sel.State())
	e.publish(protocol.New(protocol.TypeMonitor, protocol.MonitorPayload{
		Running:   true,
		SessionID: e.sel.Stats().SessionID,
	}))
	return nil
}

// Stop ends monitoring; the touchpad is re-enabled if it was disabled.
func (e *Engine) Stop(ctx context.Context) error {
	sessionID := e.sel.Stats().SessionID
	err := e.mon.Stop(ctx)
	if errors.Is(err, monitor.ErrNotRunning) {
		return err
	}
	metrics.Monitoring.Set(0)
	e.publish(protocol.New(protocol.TypeMonitor, protocol.MonitorPayload{
		Running:   false,
		SessionID: sessionID,
	}))
	return err
}

// Running reports whether monitoring is active.
func (e *Engine) Running() bool {
	return e.mon.Running()
}

// ToggleMonitoring starts monitoring if stopped and stops it otherwise.
func (e *Engine) ToggleMonitoring(ctx context.Context) (bool, error) {
	if e.mon.Running() {
		return false, e.Stop(ctx)
	}
	return true, e.Start(ctx)
}

// ToggleNow flips the touchpad once, bypassing the idle policy. An unknown
// state is treated as disabled, so the toggle enables.
func (e *Engine) ToggleNow(ctx context.Context) error {
	st := e.sel.State()
	if st == control.StateUnknown {
		st, _ = e.sel.Refresh(ctx)
	}
	return e.sel.SetState(ctx, st != control.StateEnabled)
}

// SetEnabled requests a state through the pinned strategy.
func (e *Engine) SetEnabled(ctx context.Context, enable bool) error {
	return e.sel.SetState(ctx, enable)
}

// State returns the tracked touchpad state.
func (e *Engine) State() control.State {
	return e.sel.State()
}

// Refresh queries the touchpad state.
func (e *Engine) Refresh(ctx context.Context) (control.State, error) {
	st, err := e.sel.Refresh(ctx)
	e.updateStateGauge(st)
	return st, err
}

// Stats returns a snapshot of the runtime counters.
func (e *Engine) Stats() selector.Stats {
	return e.sel.Stats()
}

// Handle returns the pinned strategy.
func (e *Engine) Handle() selector.Handle {
	return e.sel.Handle()
}

// Reprobe selects a strategy again, restricted to allowed when non-empty.
func (e *Engine) Reprobe(ctx context.Context, allowed []control.Kind) (control.Kind, error) {
	kind, err := e.sel.Reprobe(ctx, allowed)
	e.publishStrategy()
	if err == nil {
		e.mu.Lock()
		e.strategies = slices.Clone(allowed)
		e.mu.Unlock()
		e.Refresh(ctx)
	}
	return kind, err
}

// SetMonitorConfig replaces the idle policy; the next tick uses it.
func (e *Engine) SetMonitorConfig(cfg monitor.Config) {
	e.mon.SetConfig(cfg)
}

// MonitorConfig returns the active idle policy.
func (e *Engine) MonitorConfig() monitor.Config {
	return e.mon.Config()
}

// RecordActivity feeds one keystroke. Safe to call from input hooks.
func (e *Engine) RecordActivity() {
	e.mon.RecordActivity()
}

// ApplyConfig hot-reloads everything that can change at runtime. A changed
// strategy restriction triggers a re-probe.
func (e *Engine) ApplyConfig(ctx context.Context, cfg *config.Config) {
	e.mon.SetConfig(cfg.MonitorPolicy())
	if e.notifier != nil {
		e.notifier.SetEnabled(cfg.General.PlaySounds, cfg.General.ShowNotifications)
	}
	if e.keysim != nil {
		e.keysim.SetCombination(cfg.KeyCombination())
	}

	e.mu.Lock()
	changed := !slices.Equal(e.strategies, cfg.Strategies())
	e.mu.Unlock()
	if changed {
		if _, err := e.Reprobe(ctx, cfg.Strategies()); err != nil {
			e.logger.Warn("re-probe after config change failed", "error", err)
		}
	}
}

// Close stops monitoring, restoring the touchpad.
func (e *Engine) Close(ctx context.Context) error {
	if !e.mon.Running() {
		return nil
	}
	return e.Stop(ctx)
}

// Subscribe registers fn for every pushed message and returns a function
// that removes it. fn must not block.
func (e *Engine) Subscribe(fn func(protocol.Message)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

func (e *Engine) publish(msg protocol.Message) {
	e.mu.Lock()
	subs := make([]func(protocol.Message), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	e.mu.Unlock()
	for _, fn := range subs {
		fn(msg)
	}
}

func (e *Engine) publishStrategy() {
	h := e.sel.Handle()
	inspectors := make([]string, len(h.Inspectors))
	for i, k := range h.Inspectors {
		inspectors[i] = string(k)
	}
	metrics.SetPinned(string(h.Kind))
	e.publish(protocol.New(protocol.TypeStrategy, protocol.StrategyPayload{
		Strategy:   string(h.Kind),
		Inspectors: inspectors,
		Supported:  e.sel.Status() == selector.StatusPinned,
	}))
}

func (e *Engine) onTransition(t selector.Transition) {
	metrics.Transitions.WithLabelValues(t.To.String(), string(t.Kind)).Inc()
	e.updateStateGauge(t.To)
	if t.To == control.StateEnabled {
		if since := e.sel.LastDisableAt(); !since.IsZero() {
			metrics.DisabledSeconds.Observe(t.At.Sub(since).Seconds())
		}
	}
	if e.notifier != nil {
		e.notifier.StateChanged(t.To == control.StateEnabled)
	}
	e.publish(protocol.New(protocol.TypeState, protocol.StatePayload{
		From:     t.From.String(),
		To:       t.To.String(),
		Strategy: string(t.Kind),
		Forced:   t.Forced,
	}))
}

func (e *Engine) onError(err error) {
	metrics.Failures.WithLabelValues(reason(err)).Inc()
	e.publish(protocol.New(protocol.TypeError, protocol.ErrorPayload{Error: err.Error()}))
}

func (e *Engine) updateStateGauge(st control.State) {
	switch st {
	case control.StateEnabled:
		metrics.TouchpadEnabled.Set(1)
	case control.StateDisabled:
		metrics.TouchpadEnabled.Set(0)
	default:
		metrics.TouchpadEnabled.Set(-1)
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, control.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, control.ErrAmbiguousDevice):
		return "ambiguous_device"
	case errors.Is(err, control.ErrCombinationSendFailed):
		return "combination_send_failed"
	case errors.Is(err, control.ErrStateUnknown):
		return "state_unknown"
	case errors.Is(err, control.ErrWriteFailed):
		return "write_failed"
	default:
		return "other"
	}
}
