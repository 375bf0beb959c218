package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palmguard/internal/control"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeController mimics the selector: idempotent SetState, forced ForceState
type fakeController struct {
	mu          sync.Mutex
	clock       *fakeClock
	state       control.State
	toggleOnly  bool
	lastDisable time.Time
	calls       []bool
	setErr      error
	monitoring  bool
}

func (f *fakeController) State() control.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) Refresh(ctx context.Context) (control.State, error) {
	return f.State(), nil
}

func (f *fakeController) SetState(ctx context.Context, enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == control.StateOf(enable) {
		return nil
	}
	return f.applyLocked(enable)
}

func (f *fakeController) ForceState(ctx context.Context, enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyLocked(enable)
}

func (f *fakeController) applyLocked(enable bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.calls = append(f.calls, enable)
	f.state = control.StateOf(enable)
	if !enable {
		f.lastDisable = f.clock.Now()
	}
	return nil
}

func (f *fakeController) ToggleOnly() bool { return f.toggleOnly }

func (f *fakeController) LastDisableAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastDisable
}

func (f *fakeController) MarkInput(at time.Time) {}

func (f *fakeController) MarkMonitoring(on bool, at time.Time) {
	f.mu.Lock()
	f.monitoring = on
	f.mu.Unlock()
}

func (f *fakeController) Calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

func (f *fakeController) setStateErr(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

func newTestMonitor(t *testing.T, state control.State, cfg Config) (*Monitor, *fakeController, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	ctrl := &fakeController{clock: clock, state: state}
	m := New(ctrl, cfg, nil)
	m.now = clock.Now
	m.tick = 5 * time.Millisecond
	return m, ctrl, clock
}

func TestConfigClamp(t *testing.T) {
	got := Config{
		IdleThreshold:      200 * time.Millisecond,
		MinDisableDuration: -time.Second,
		PreEnableDelay:     time.Minute,
	}.Clamp()
	assert.Equal(t, MinIdleThreshold, got.IdleThreshold)
	assert.Equal(t, time.Duration(0), got.MinDisableDuration)
	assert.Equal(t, MaxGuardDelay, got.PreEnableDelay)

	got = Config{IdleThreshold: time.Hour}.Clamp()
	assert.Equal(t, MaxIdleThreshold, got.IdleThreshold)

	assert.Equal(t, DefaultConfig(), DefaultConfig().Clamp())
}

func TestStartStopStates(t *testing.T) {
	m, ctrl, _ := newTestMonitor(t, control.StateEnabled, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	assert.True(t, m.Running())
	assert.ErrorIs(t, m.Start(ctx), ErrAlreadyRunning)

	require.NoError(t, m.Stop(ctx))
	assert.False(t, m.Running())
	assert.ErrorIs(t, m.Stop(ctx), ErrNotRunning)
	assert.False(t, ctrl.monitoring)
}

// Scenario A: keystroke disables, idle past both guards re-enables
func TestDisableThenReenableAfterIdle(t *testing.T) {
	cfg := Config{IdleThreshold: 5 * time.Second, MinDisableDuration: 500 * time.Millisecond}
	m, ctrl, clock := newTestMonitor(t, control.StateEnabled, cfg)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	m.RecordActivity()
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateDisabled
	}, time.Second, time.Millisecond)

	clock.Advance(3 * time.Second)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, control.StateDisabled, ctrl.State(), "idle threshold not reached yet")

	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateEnabled
	}, time.Second, time.Millisecond)
	assert.Equal(t, []bool{false, true}, ctrl.Calls())
}

// Scenario B: keystrokes during the idle window keep the touchpad off
func TestContinuedTypingKeepsDisabled(t *testing.T) {
	cfg := Config{IdleThreshold: 2 * time.Second}
	m, ctrl, clock := newTestMonitor(t, control.StateEnabled, cfg)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	m.RecordActivity()
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateDisabled
	}, time.Second, time.Millisecond)

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		m.RecordActivity()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, control.StateDisabled, ctrl.State())
	assert.Equal(t, []bool{false}, ctrl.Calls())
}

func TestMinDisableDurationGuard(t *testing.T) {
	cfg := Config{IdleThreshold: time.Second, MinDisableDuration: 5 * time.Second}
	m, ctrl, clock := newTestMonitor(t, control.StateEnabled, cfg)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	m.RecordActivity()
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateDisabled
	}, time.Second, time.Millisecond)

	// idle threshold passed but the disable is too recent
	clock.Advance(2 * time.Second)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, control.StateDisabled, ctrl.State())

	clock.Advance(4 * time.Second)
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateEnabled
	}, time.Second, time.Millisecond)
}

func TestActivityDuringPreEnableDelayAborts(t *testing.T) {
	cfg := Config{IdleThreshold: time.Second, PreEnableDelay: 200 * time.Millisecond}
	m, ctrl, clock := newTestMonitor(t, control.StateDisabled, cfg)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	clock.Advance(2 * time.Second)
	time.Sleep(50 * time.Millisecond) // a tick is now inside the delay
	m.RecordActivity()
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, control.StateDisabled, ctrl.State())
	assert.Empty(t, ctrl.Calls())
}

func TestUnknownStateNeverDisables(t *testing.T) {
	m, ctrl, _ := newTestMonitor(t, control.StateUnknown, DefaultConfig())
	ctrl.toggleOnly = true
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	m.RecordActivity()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.Stop(ctx))
	assert.Empty(t, ctrl.Calls())
}

// Scenario C: stopping while disabled re-enables
func TestStopReenables(t *testing.T) {
	m, ctrl, _ := newTestMonitor(t, control.StateEnabled, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	m.RecordActivity()
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateDisabled
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, control.StateEnabled, ctrl.State())
	assert.Equal(t, []bool{false, true}, ctrl.Calls())
}

func TestStopReportsEnableFailure(t *testing.T) {
	m, ctrl, _ := newTestMonitor(t, control.StateDisabled, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	ctrl.setStateErr(control.ErrWriteFailed)
	err := m.Stop(ctx)
	assert.ErrorIs(t, err, control.ErrWriteFailed)
	assert.False(t, m.Running())
}

func TestFailedEnableRetriedNextTick(t *testing.T) {
	cfg := Config{IdleThreshold: time.Second}
	m, ctrl, clock := newTestMonitor(t, control.StateDisabled, cfg)
	ctrl.setStateErr(control.ErrWriteFailed)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	clock.Advance(2 * time.Second)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, control.StateDisabled, ctrl.State())

	ctrl.setStateErr(nil)
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateEnabled
	}, time.Second, time.Millisecond)
}

func TestSetConfigTakesEffect(t *testing.T) {
	m, ctrl, clock := newTestMonitor(t, control.StateDisabled, Config{IdleThreshold: 10 * time.Second})
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	clock.Advance(3 * time.Second)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, control.StateDisabled, ctrl.State())

	m.SetConfig(Config{IdleThreshold: 2 * time.Second})
	assert.Equal(t, 2*time.Second, m.Config().IdleThreshold)
	require.Eventually(t, func() bool {
		return ctrl.State() == control.StateEnabled
	}, time.Second, time.Millisecond)
}

func TestRecordActivityWhileStoppedOnlyTracks(t *testing.T) {
	m, ctrl, clock := newTestMonitor(t, control.StateEnabled, DefaultConfig())
	clock.Advance(time.Minute)
	m.RecordActivity()
	assert.WithinDuration(t, clock.Now(), m.LastInput(), 0)
	assert.Empty(t, ctrl.Calls())
}

func TestPanicRecovered(t *testing.T) {
	m, _, _ := newTestMonitor(t, control.StateEnabled, DefaultConfig())
	calls := 0
	assert.NotPanics(t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m.guard(ctx, func(context.Context) {
			calls++
			panic("boom")
		})
	})
	assert.Equal(t, 1, calls)
}
