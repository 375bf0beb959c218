//go:build linux

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsBus  = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod      = notificationsBus + ".Notify"
	expireMillis      = int32(3000)
)

// DefaultProviders returns the freedesktop notification service.
func DefaultProviders(logger *slog.Logger) []Provider {
	return []Provider{&dbusProvider{logger: logger}}
}

// DefaultSounders returns no sounders; the notification server plays its own.
func DefaultSounders() []Sounder {
	return nil
}

// dbusProvider talks to org.freedesktop.Notifications on the session bus
type dbusProvider struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	lastID uint32
	logger *slog.Logger
}

func (p *dbusProvider) Name() string { return "dbus" }

func (p *dbusProvider) Available() bool {
	conn, err := p.connect()
	if err != nil {
		return false
	}
	var owned bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, notificationsBus).Store(&owned)
	return err == nil && owned
}

func (p *dbusProvider) connect() (*dbus.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && p.conn.Connected() {
		return p.conn, nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Notify replaces the previous notification so state flips do not pile up.
func (p *dbusProvider) Notify(ctx context.Context, title, body string) error {
	conn, err := p.connect()
	if err != nil {
		return err
	}

	p.mu.Lock()
	replaces := p.lastID
	p.mu.Unlock()

	obj := conn.Object(notificationsBus, notificationsPath)
	call := obj.CallWithContext(ctx, notifyMethod, 0,
		appName, replaces, "input-touchpad", title, body,
		[]string{}, map[string]dbus.Variant{}, expireMillis)

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	p.mu.Lock()
	p.lastID = id
	p.mu.Unlock()
	return nil
}
