// Package selector pins one touchpad control channel and routes every
// state change through it.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"palmguard/internal/control"
)

// Status is the probing state of the selector.
type Status int

const (
	StatusUnprobed Status = iota
	StatusPinned
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusPinned:
		return "pinned"
	case StatusUnsupported:
		return "unsupported"
	default:
		return "unprobed"
	}
}

// Handle describes the pinned strategy.
type Handle struct {
	Kind       control.Kind        `json:"kind"`
	Descriptor *control.Descriptor `json:"descriptor,omitempty"`
	Inspectors []control.Kind      `json:"inspectors,omitempty"`
}

// Transition is a successful state change.
type Transition struct {
	From   control.State `json:"from"`
	To     control.State `json:"to"`
	Kind   control.Kind  `json:"kind"`
	Forced bool          `json:"forced"`
	At     time.Time     `json:"at"`
}

// inspectorKinds are the strategies that may observe the state for a
// toggle-only strategy.
var inspectorKinds = []control.Kind{control.KindDeviceEnumeration}

// Selector probes control channels in priority order, pins the first
// supported one and serializes all state changes through it.
type Selector struct {
	// opMu serializes channel operations and (re-)probing
	opMu sync.Mutex

	// mu guards everything below; never held across channel calls
	mu         sync.Mutex
	channels   map[control.Kind]control.Channel
	status     Status
	handle     Handle
	inspectors []control.Channel
	state      control.State
	stats      Stats

	now    func() time.Time
	logger *slog.Logger

	onTransition func(Transition)
	onError      func(error)
}

// New creates a selector over the given channels. Channels are probed in
// control.Priority order regardless of argument order.
func New(channels []control.Channel, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{
		channels: make(map[control.Kind]control.Channel),
		now:      time.Now,
		logger:   logger.With("component", "selector"),
	}
	for _, ch := range channels {
		if ch != nil {
			s.channels[ch.Kind()] = ch
		}
	}
	return s
}

// SetClock replaces the time source.
func (s *Selector) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetOnTransition sets the callback for successful state changes
func (s *Selector) SetOnTransition(callback func(Transition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = callback
}

// SetOnError sets the callback for failed operations
func (s *Selector) SetOnError(callback func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = callback
}

// Probe selects a strategy. With allowed empty every strategy is a
// candidate; otherwise only the listed ones are, still in priority order.
func (s *Selector) Probe(ctx context.Context, allowed ...control.Kind) (control.Kind, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.probeLocked(ctx, allowed)
}

// Reprobe resets the pinned strategy and probes again. The touchpad is
// first enabled through the outgoing strategy; if that fails the old
// strategy stays pinned and the error is returned.
func (s *Selector) Reprobe(ctx context.Context, allowed []control.Kind) (control.Kind, error) {
	kind, t, restoreErr, err := s.reprobe(ctx, allowed)
	if restoreErr != nil {
		return kind, s.dispatch(nil, restoreErr)
	}
	s.dispatch(t, nil)
	return kind, err
}

func (s *Selector) reprobe(ctx context.Context, allowed []control.Kind) (control.Kind, *Transition, error, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	prev := s.handle.Kind
	s.mu.Unlock()

	t, err := s.restoreLocked(ctx)
	if err != nil {
		s.logger.Warn("could not enable touchpad before re-probe", "kind", prev, "error", err)
		return prev, nil, err, nil
	}

	s.mu.Lock()
	s.status = StatusUnprobed
	s.handle = Handle{}
	s.inspectors = nil
	s.mu.Unlock()

	kind, err := s.probeLocked(ctx, allowed)
	s.logger.Info("strategy re-probed", "previous", prev, "pinned", kind, "allowed", allowed)
	return kind, t, nil, err
}

// restoreLocked enables the touchpad through the pinned strategy unless it
// is already known to be enabled. A toggle-only strategy is left alone
// when its state is unknown, since a blind toggle could disable it.
func (s *Selector) restoreLocked(ctx context.Context) (*Transition, error) {
	s.mu.Lock()
	status, kind, current := s.status, s.handle.Kind, s.state
	s.mu.Unlock()

	if status != StatusPinned || current == control.StateEnabled {
		return nil, nil
	}
	if _, toggleOnly := s.channels[kind].(control.Toggler); toggleOnly && current != control.StateDisabled {
		return nil, nil
	}
	return s.applyLocked(ctx, true, true)
}

func (s *Selector) probeLocked(ctx context.Context, allowed []control.Kind) (control.Kind, error) {
	candidates := filterKinds(control.Priority, allowed)

	var pinned control.Channel
	tried := make(map[control.Kind]bool)
	for _, kind := range candidates {
		ch, ok := s.channels[kind]
		if !ok {
			continue
		}
		tried[kind] = true
		if ch.Probe(ctx) {
			pinned = ch
			break
		}
		s.logger.Debug("strategy not supported", "kind", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pinned == nil {
		s.status = StatusUnsupported
		s.handle = Handle{}
		s.stats.Strategy = control.KindNone
		s.logger.Warn("no supported control strategy", "candidates", candidates)
		return control.KindNone, control.ErrUnsupported
	}

	s.status = StatusPinned
	s.handle = Handle{Kind: pinned.Kind()}
	if sc, ok := pinned.(*control.SettingChannel); ok {
		if d, ok := sc.Adopted(); ok {
			s.handle.Descriptor = &d
		}
	}

	// A toggle-only channel cannot see the state; look for channels that can.
	// Only device enumeration reads the device itself, a persistent setting
	// is not changed by the toggle combination.
	s.inspectors = nil
	if _, toggleOnly := pinned.(control.Toggler); toggleOnly {
		for _, kind := range inspectorKinds {
			ch, ok := s.channels[kind]
			if !ok || kind == pinned.Kind() {
				continue
			}
			if tried[kind] {
				// Already failed its probe in this round
				continue
			}
			if ch.Probe(ctx) {
				s.inspectors = append(s.inspectors, ch)
				s.handle.Inspectors = append(s.handle.Inspectors, kind)
			}
		}
	}

	s.stats.Strategy = pinned.Kind()
	s.stats.Descriptor = s.handle.Descriptor
	s.logger.Info("strategy pinned", "kind", pinned.Kind(), "inspectors", s.handle.Inspectors)
	return pinned.Kind(), nil
}

// Status returns the probing state.
func (s *Selector) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Handle returns the pinned strategy.
func (s *Selector) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Pinned returns the pinned strategy kind, KindNone if nothing is pinned.
func (s *Selector) Pinned() control.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle.Kind
}

// ToggleOnly reports whether the pinned strategy can only flip the state.
func (s *Selector) ToggleOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPinned {
		return false
	}
	_, ok := s.channels[s.handle.Kind].(control.Toggler)
	return ok
}

// State returns the tracked device state without touching any channel.
func (s *Selector) State() control.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh queries the device state and updates the tracked state.
// A toggle-only strategy keeps its assumed state when nothing can observe it.
func (s *Selector) Refresh(ctx context.Context) (control.State, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	status, kind := s.status, s.handle.Kind
	s.mu.Unlock()
	if status != StatusPinned {
		return control.StateUnknown, control.ErrUnsupported
	}

	observed, err := s.observe(ctx, kind)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case observed.Known():
		s.state = observed
	case kind != control.KindKeySimulation:
		s.state = control.StateUnknown
	}
	s.stats.State = s.state
	if err != nil {
		s.logger.Debug("state refresh incomplete", "kind", kind, "error", err)
	}
	return s.state, err
}

// observe reads the state through the pinned channel, or through the
// inspection channels when the pinned one is toggle-only.
func (s *Selector) observe(ctx context.Context, kind control.Kind) (control.State, error) {
	ch := s.channels[kind]
	if _, toggleOnly := ch.(control.Toggler); !toggleOnly {
		return ch.State(ctx)
	}

	s.mu.Lock()
	inspectors := append([]control.Channel(nil), s.inspectors...)
	s.mu.Unlock()

	var errs []error
	for _, in := range inspectors {
		st, err := in.State(ctx)
		if st.Known() {
			return st, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return control.StateUnknown, errors.Join(append([]error{control.ErrStateUnknown}, errs...)...)
}

// SetState requests a state. It is a no-op when the tracked state already
// matches.
func (s *Selector) SetState(ctx context.Context, enable bool) error {
	return s.dispatch(s.apply(ctx, enable, false))
}

// ForceState requests a state even if the tracked state already matches.
func (s *Selector) ForceState(ctx context.Context, enable bool) error {
	return s.dispatch(s.apply(ctx, enable, true))
}

func (s *Selector) apply(ctx context.Context, enable, force bool) (*Transition, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.applyLocked(ctx, enable, force)
}

func (s *Selector) applyLocked(ctx context.Context, enable, force bool) (*Transition, error) {
	s.mu.Lock()
	status, kind, current := s.status, s.handle.Kind, s.state
	s.mu.Unlock()

	if status != StatusPinned {
		return nil, control.ErrUnsupported
	}

	desired := control.StateOf(enable)
	if !force && current == desired {
		return nil, nil
	}

	ch := s.channels[kind]
	var err error
	if toggler, ok := ch.(control.Toggler); ok {
		observed, _ := s.observe(ctx, kind)
		switch {
		case observed == desired:
			s.logger.Debug("touchpad already in requested state", "state", desired)
			s.mu.Lock()
			s.state = desired
			s.stats.State = desired
			s.mu.Unlock()
			return nil, nil
		case observed.Known():
			err = toggler.SendCombination(ctx)
		default:
			// Blind toggle: the result is assumed, not confirmed
			s.logger.Debug("state unobservable, sending blind toggle", "desired", desired)
			err = toggler.SendCombination(ctx)
		}
	} else {
		err = ch.SetState(ctx, enable)
	}
	if err != nil {
		return nil, classify(err)
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Transition{From: s.state, To: desired, Kind: kind, Forced: force, At: now}
	s.state = desired
	s.stats.State = desired
	if enable {
		s.stats.EnableCount++
		s.stats.LastEnableAt = now
	} else {
		s.stats.DisableCount++
		s.stats.LastDisableAt = now
	}
	return t, nil
}

func (s *Selector) dispatch(t *Transition, err error) error {
	s.mu.Lock()
	onTransition, onError := s.onTransition, s.onError
	if err != nil {
		s.stats.LastError = err.Error()
		s.stats.LastErrorAt = s.now()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("touchpad state change failed", "error", err)
		if onError != nil {
			onError(err)
		}
		return err
	}
	if t != nil {
		s.logger.Info("touchpad state changed", "from", t.From, "to", t.To, "kind", t.Kind, "forced", t.Forced)
		if onTransition != nil {
			onTransition(*t)
		}
	}
	return nil
}

// classify maps any channel error onto the error taxonomy.
func classify(err error) error {
	for _, known := range []error{
		control.ErrUnsupported,
		control.ErrAmbiguousDevice,
		control.ErrWriteFailed,
		control.ErrCombinationSendFailed,
		control.ErrStateUnknown,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", control.ErrWriteFailed, err)
}

func filterKinds(order, allowed []control.Kind) []control.Kind {
	if len(allowed) == 0 {
		return order
	}
	set := make(map[control.Kind]bool, len(allowed))
	for _, k := range allowed {
		set[k] = true
	}
	var out []control.Kind
	for _, k := range order {
		if set[k] {
			out = append(out, k)
		}
	}
	return out
}

// newSessionID tags one monitoring period in logs and stats
func newSessionID() string {
	return uuid.NewString()
}
