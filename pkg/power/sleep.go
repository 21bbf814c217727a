// Package power integrates with the desktop's power management over D-Bus:
// resume notifications from logind and screensaver inhibition while an alarm
// rings.
package power

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/godbus/dbus/v5"
)

const (
	login1Path      = "/org/freedesktop/login1"
	login1Manager   = "org.freedesktop.login1.Manager"
	prepareForSleep = login1Manager + ".PrepareForSleep"
)

// SleepWatcher calls onResume each time the system wakes from suspend.
// In-process timers do not account for time spent suspended, so wake-ups
// are registered again on resume.
type SleepWatcher struct {
	onResume func()
	logger   *slog.Logger
}

// NewSleepWatcher creates a SleepWatcher
func NewSleepWatcher(onResume func(), logger *slog.Logger) *SleepWatcher {
	return &SleepWatcher{
		onResume: onResume,
		logger:   logging.OrDefault(logger).With("component", "power"),
	}
}

// Run listens on the system bus until ctx is done
func (w *SleepWatcher) Run(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(login1Path),
		dbus.WithMatchInterface(login1Manager),
		dbus.WithMatchMember("PrepareForSleep"),
	); err != nil {
		return fmt.Errorf("add match failed: %w", err)
	}

	c := make(chan *dbus.Signal, 10)
	conn.Signal(c)
	defer conn.RemoveSignal(c)

	w.logger.Info("watching for system resume")
	for {
		select {
		case sig, ok := <-c:
			if !ok {
				return nil
			}
			w.handle(sig)
		case <-ctx.Done():
			return nil
		}
	}
}

// handle reacts to one signal and reports whether it was a resume
func (w *SleepWatcher) handle(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != prepareForSleep || len(sig.Body) == 0 {
		return false
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return false
	}
	if sleeping {
		w.logger.Info("system is going to sleep")
		return false
	}

	w.logger.Info("system has woken up")
	if w.onResume != nil {
		w.onResume()
	}
	return true
}
