package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"screenrec/internal/config"
)

const (
	busName      = "org.freedesktop.Notifications"
	objectPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = busName + ".Notify"

	iconName      = "media-record"
	expireDefault = int32(-1)
)

// Service defines the notification surface used by the recorder and CLI.
type Service interface {
	Notify(ctx context.Context, summary, body string) error
	TestNotification(ctx context.Context) error
}

// Caller performs the Notify call and returns the server-assigned id.
type Caller interface {
	Notify(ctx context.Context, appName string, replacesID uint32, icon, summary, body string, hints map[string]dbus.Variant, timeout int32) (uint32, error)
}

// NewService builds a D-Bus backed service when notifications are enabled.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Notifications.Enabled {
		return noopService{}
	}
	return NewWithCaller(cfg.Notifications.AppName, sessionBusCaller{})
}

// NewWithCaller builds a service on top of a custom caller (primarily for tests).
func NewWithCaller(appName string, caller Caller) Service {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = "Screen Recorder"
	}
	return &desktopService{appName: appName, caller: caller}
}

type desktopService struct {
	appName string
	caller  Caller

	mu     sync.Mutex
	lastID uint32
}

// Notify shows summary and body, replacing the previous notification from
// this service so a recording produces a single updating bubble.
func (s *desktopService) Notify(ctx context.Context, summary, body string) error {
	if s == nil || s.caller == nil {
		return nil
	}
	s.mu.Lock()
	replaces := s.lastID
	s.mu.Unlock()

	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(byte(1)),
		"category": dbus.MakeVariant("transfer"),
	}
	id, err := s.caller.Notify(ctx, s.appName, replaces, iconName, summary, body, hints, expireDefault)
	if err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}

	s.mu.Lock()
	s.lastID = id
	s.mu.Unlock()
	return nil
}

func (s *desktopService) TestNotification(ctx context.Context) error {
	return s.Notify(ctx, "Screen recorder", "Notifications are working.")
}

type sessionBusCaller struct{}

func (sessionBusCaller) Notify(ctx context.Context, appName string, replacesID uint32, icon, summary, body string, hints map[string]dbus.Variant, timeout int32) (uint32, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(busName, objectPath)
	call := obj.CallWithContext(ctx, notifyMethod, 0,
		appName, replacesID, icon, summary, body, []string{}, hints, timeout)
	if call.Err != nil {
		return 0, call.Err
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("decode notification id: %w", err)
	}
	return id, nil
}

type noopService struct{}

func (noopService) Notify(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
