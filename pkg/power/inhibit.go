package power

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/godbus/dbus/v5"
)

const (
	screenSaverService = "org.freedesktop.ScreenSaver"
	screenSaverPath    = "/org/freedesktop/ScreenSaver"
	screenSaverIface   = "org.freedesktop.ScreenSaver"
)

// caller is the part of dbus.BusObject the inhibitor uses
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Inhibitor keeps the screen from blanking while an alarm rings
type Inhibitor struct {
	mu      sync.Mutex
	obj     caller
	appName string
	cookie  uint32
	held    bool
	logger  *slog.Logger
}

// NewInhibitor creates an Inhibitor on the session bus connection
func NewInhibitor(conn *dbus.Conn, appName string, logger *slog.Logger) *Inhibitor {
	return newInhibitor(conn.Object(screenSaverService, screenSaverPath), appName, logger)
}

func newInhibitor(obj caller, appName string, logger *slog.Logger) *Inhibitor {
	return &Inhibitor{
		obj:     obj,
		appName: appName,
		logger:  logging.OrDefault(logger).With("component", "power"),
	}
}

// Inhibit blocks the screensaver; calling it while held is a no-op
func (i *Inhibitor) Inhibit(reason string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.held {
		return nil
	}

	var cookie uint32
	if err := i.obj.Call(screenSaverIface+".Inhibit", 0, i.appName, reason).Store(&cookie); err != nil {
		return fmt.Errorf("inhibit screensaver: %w", err)
	}
	i.cookie = cookie
	i.held = true
	i.logger.Debug("screensaver inhibited", "cookie", cookie)
	return nil
}

// Release lifts the inhibition, if held
func (i *Inhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.held {
		return nil
	}
	i.held = false
	if err := i.obj.Call(screenSaverIface+".UnInhibit", 0, i.cookie).Err; err != nil {
		return fmt.Errorf("release screensaver inhibit: %w", err)
	}
	i.logger.Debug("screensaver released", "cookie", i.cookie)
	return nil
}
