package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/altrise/clockapp/pkg/alarms"
)

func (ca *ClockApp) setupSystemTray() {
	ca.app.SetIcon(resourceIcon)
	ca.updateSystemTrayMenu()
}

// updateSystemTrayMenu rebuilds the tray menu. It reads the active flag
// rather than the ringing service so it is safe to call from the presenter.
func (ca *ClockApp) updateSystemTrayMenu() {
	desk, ok := ca.app.(desktop.App)
	if !ok {
		return
	}

	menuItems := []*fyne.MenuItem{}

	if id, ringing := ca.flag.Active(); ringing {
		menuItems = append(menuItems,
			fyne.NewMenuItem("Alarm ringing - Open", func() {
				ca.showDismissWindow(id)
			}),
			fyne.NewMenuItemSeparator(),
		)
	}

	use24 := ca.currentConfig().Use24Hour
	if next, ok := ca.manager.Upcoming(); ok {
		headerItem := fyne.NewMenuItem("Next Alarm:", nil)
		headerItem.Disabled = true
		alarmItem := fyne.NewMenuItem("  "+upcomingText(next, time.Now(), use24), nil)
		alarmItem.Disabled = true
		menuItems = append(menuItems, headerItem, alarmItem)
	} else {
		noneItem := fyne.NewMenuItem("No alarms set", nil)
		noneItem.Disabled = true
		menuItems = append(menuItems, noneItem)
	}

	menuItems = append(menuItems,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Alarms", func() {
			ca.showAlarmsWindow()
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() {
			ca.quit()
		}),
	)

	menu := fyne.NewMenu(appDisplayName, menuItems...)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(resourceIcon)
}

// upcomingText describes the next alarm relative to now, e.g.
// "Tomorrow 07:00 - Gym"
func upcomingText(next alarms.Upcoming, now time.Time, use24Hour bool) string {
	day := "Today"
	y, m, d := now.Date()
	if ny, nm, nd := next.At.Date(); ny != y || nm != m || nd != d {
		day = "Tomorrow"
	}

	text := fmt.Sprintf("%s %s", day, next.Alarm.TimeOfDay(use24Hour))
	if next.Alarm.Label != "" {
		text += " - " + truncateString(next.Alarm.Label, 35)
	}
	return text
}

// truncateString truncates a string to maxLen runes, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
