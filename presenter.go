package main

import (
	"fyne.io/fyne/v2"

	"github.com/altrise/clockapp/pkg/models"
)

// presenter is the ringing service's view of the desktop. It is called with
// the service locked, so it never calls back into the service and defers all
// UI work to the main goroutine.
type presenter struct {
	ca *ClockApp
}

// EnterForeground keeps the screen on and tells the user which alarm rings
func (p *presenter) EnterForeground(alarm models.Alarm) error {
	p.ca.app.SendNotification(fyne.NewNotification(appDisplayName, "Alarm: "+alarm.Summary(p.ca.currentConfig().Use24Hour)))
	p.ca.alarmsChanged()

	if p.ca.inhibitor == nil {
		return nil
	}
	return p.ca.inhibitor.Inhibit("Alarm ringing")
}

// ExitForeground undoes EnterForeground and closes a dismissal screen that
// is still open, for example after a stop from the command line
func (p *presenter) ExitForeground() {
	if p.ca.inhibitor != nil {
		if err := p.ca.inhibitor.Release(); err != nil {
			p.ca.logger.Warn("failed to release screensaver inhibit", "error", err)
		}
	}
	fyne.Do(p.ca.closeDismissWindow)
	p.ca.alarmsChanged()
}

// LaunchGate opens the dismissal screen for id
func (p *presenter) LaunchGate(id int) error {
	fyne.Do(func() {
		p.ca.showDismissWindow(id)
	})
	return nil
}

// Notice shows msg as a desktop notification
func (p *presenter) Notice(msg string) {
	p.ca.app.SendNotification(fyne.NewNotification(appDisplayName, msg))
}
