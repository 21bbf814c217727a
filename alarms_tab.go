package main

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/altrise/clockapp/pkg/models"
)

func (aw *AlarmsWindow) buildAlarmsTab() fyne.CanvasObject {
	aw.alarmData = aw.manager.List()

	aw.alarmList = widget.NewList(
		func() int {
			return len(aw.alarmData)
		},
		func() fyne.CanvasObject {
			check := widget.NewCheck("", nil)
			title := widget.NewLabel("00:00")
			title.TextStyle.Bold = true
			detail := widget.NewLabel("")
			detail.Truncation = fyne.TextTruncateEllipsis
			deleteButton := widget.NewButtonWithIcon("", theme.DeleteIcon(), nil)
			return container.NewBorder(nil, nil, container.NewHBox(check, title), deleteButton, detail)
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= len(aw.alarmData) {
				return
			}
			alarm := aw.alarmData[i]

			// Border keeps the center object first, then left, then right
			row := o.(*fyne.Container)
			detail := row.Objects[0].(*widget.Label)
			left := row.Objects[1].(*fyne.Container)
			deleteButton := row.Objects[2].(*widget.Button)
			check := left.Objects[0].(*widget.Check)
			title := left.Objects[1].(*widget.Label)

			check.OnChanged = nil
			check.SetChecked(alarm.IsEnabled)
			check.OnChanged = func(enabled bool) {
				aw.setEnabled(alarm.ID, enabled)
			}
			title.SetText(alarm.TimeOfDay(aw.config.Use24Hour))
			detail.SetText(aw.describeAlarm(alarm, time.Now()))
			deleteButton.OnTapped = func() {
				aw.confirmDelete(alarm)
			}
		},
	)

	aw.emptyLabel = widget.NewLabel("No alarms yet. Add one to get started.")
	aw.emptyLabel.Alignment = fyne.TextAlignCenter

	// Shown while exact wake-up is not permitted
	bannerText := widget.NewLabel("Exact wake-up is not permitted, so alarms may ring late after suspend.")
	bannerText.Wrapping = fyne.TextWrapWord
	bannerText.Importance = widget.WarningImportance
	fixButton := widget.NewButton("How to Fix", func() {
		dialog.ShowInformation("Exact Alarms", aw.exact.RequestExactPermission(), aw.window)
	})
	aw.exactBanner = container.NewBorder(nil, nil, widget.NewIcon(theme.WarningIcon()), fixButton, bannerText)

	addButton := widget.NewButtonWithIcon("Add Alarm", theme.ContentAddIcon(), func() {
		aw.showAddAlarmDialog()
	})
	addButton.Importance = widget.HighImportance

	refreshButton := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), func() {
		aw.refreshAlarms()
	})

	exportButton := widget.NewButtonWithIcon("Export .ics", theme.DocumentSaveIcon(), func() {
		aw.showExportDialog()
	})

	importButton := widget.NewButtonWithIcon("Import .ics", theme.FolderOpenIcon(), func() {
		aw.showImportDialog()
	})

	aw.refreshAlarms()

	return container.NewBorder(
		aw.exactBanner,
		container.NewHBox(addButton, refreshButton, exportButton, importButton),
		nil,
		nil,
		container.NewStack(aw.alarmList, container.NewCenter(aw.emptyLabel)),
	)
}

// refreshAlarms reloads the list from the store
func (aw *AlarmsWindow) refreshAlarms() {
	aw.alarmData = aw.manager.List()
	aw.alarmList.Refresh()

	if len(aw.alarmData) == 0 {
		aw.emptyLabel.Show()
	} else {
		aw.emptyLabel.Hide()
	}

	if aw.exact.CanScheduleExact() {
		aw.exactBanner.Hide()
	} else {
		aw.exactBanner.Show()
	}
}

// notifyChanged refreshes this window and the tray after an edit
func (aw *AlarmsWindow) notifyChanged() {
	if aw.onChanged != nil {
		aw.onChanged()
		return
	}
	aw.refreshAlarms()
}

func (aw *AlarmsWindow) setEnabled(id int, enabled bool) {
	if err := aw.manager.SetEnabled(id, enabled); err != nil {
		dialog.ShowError(err, aw.window)
	}
	aw.notifyChanged()
}

func (aw *AlarmsWindow) confirmDelete(alarm models.Alarm) {
	dialog.ShowConfirm("Delete Alarm",
		fmt.Sprintf("Delete the %s alarm?", alarm.TimeOfDay(aw.config.Use24Hour)),
		func(confirmed bool) {
			if !confirmed {
				return
			}
			aw.manager.Disarm(alarm.ID)
			aw.notifyChanged()
		}, aw.window)
}

// describeAlarm is the secondary text of a list row
func (aw *AlarmsWindow) describeAlarm(alarm models.Alarm, now time.Time) string {
	parts := []string{}
	if alarm.Label != "" {
		parts = append(parts, alarm.Label)
	}
	if alarm.HasEndTime {
		parts = append(parts, "stops at "+models.FormatTimeOfDay(alarm.EndHourOfDay, alarm.EndMinute, aw.config.Use24Hour))
	}

	switch next, ok := aw.exact.NextTrigger(alarm.ID); {
	case !alarm.IsEnabled:
		parts = append(parts, "off")
	case ok:
		parts = append(parts, "rings "+relativeDay(next, now)+" "+models.FormatTimeOfDay(next.Hour(), next.Minute(), aw.config.Use24Hour))
	}

	return strings.Join(parts, " · ")
}

// relativeDay names the day of t as seen from now
func relativeDay(t, now time.Time) string {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch days := int(t.Sub(today).Hours() / 24); {
	case days <= 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return t.Format("Mon")
	}
}
