// Package tray provides the system tray menu using getlantern/systray.
package tray

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

// Actions are the menu callbacks; each runs on its own goroutine
type Actions struct {
	ToggleTouchpad   func()
	ToggleMonitoring func()
	Quit             func()
}

// Status is what the tray displays
type Status struct {
	State      string
	Strategy   string
	Monitoring bool
	Enabled    bool
}

// Tray manages the system tray icon and menu
type Tray struct {
	actions Actions
	logger  *slog.Logger

	mu      sync.Mutex
	status  Status
	ready   bool
	mStatus *systray.MenuItem
	mToggle *systray.MenuItem
	mMon    *systray.MenuItem
	quitCh  chan struct{}
}

// New creates a new system tray
func New(actions Actions, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{
		actions: actions,
		logger:  logger.With("component", "tray"),
		quitCh:  make(chan struct{}),
	}
}

// Run starts the tray event loop and blocks; it must be called from the main goroutine
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// Update refreshes the icon and labels; safe before the tray is ready
func (t *Tray) Update(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	if t.ready {
		t.render()
	}
}

func (t *Tray) setupMenu() {
	systray.SetTitle("PalmGuard")
	systray.SetTooltip("PalmGuard: touchpad off while typing")

	t.mu.Lock()
	t.mStatus = systray.AddMenuItem("", "Current touchpad state")
	t.mStatus.Disable()
	systray.AddSeparator()
	t.mToggle = systray.AddMenuItem("Toggle touchpad", "Enable or disable the touchpad now")
	t.mMon = systray.AddMenuItem("", "Auto-disable the touchpad while typing")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Re-enable the touchpad and exit")
	t.ready = true
	t.render()
	t.mu.Unlock()

	go t.handle(t.mToggle, t.actions.ToggleTouchpad)
	go t.handle(t.mMon, t.actions.ToggleMonitoring)
	go t.handle(mQuit, t.actions.Quit)
	t.logger.Debug("tray ready")
}

func (t *Tray) handle(item *systray.MenuItem, fn func()) {
	for {
		select {
		case <-item.ClickedCh:
			if fn != nil {
				fn()
			}
		case <-t.quitCh:
			return
		}
	}
}

// render must be called with mu held
func (t *Tray) render() {
	s := t.status
	state := s.State
	if state == "" {
		state = "unknown"
	}
	t.mStatus.SetTitle(StatusLine(s))
	if s.Monitoring {
		t.mMon.SetTitle("Stop monitoring")
	} else {
		t.mMon.SetTitle("Start monitoring")
	}
	systray.SetTooltip("PalmGuard: touchpad " + state)
	systray.SetIcon(icon(s.Enabled))
}

// StatusLine formats the disabled status entry of the menu
func StatusLine(s Status) string {
	state := s.State
	if state == "" {
		state = "unknown"
	}
	line := fmt.Sprintf("Touchpad: %s", state)
	if s.Strategy != "" {
		line += fmt.Sprintf(" (%s)", s.Strategy)
	}
	return line
}
