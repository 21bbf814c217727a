package main

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/models"
)

// alarmManager is what the alarms window changes alarms through
type alarmManager interface {
	List() []models.Alarm
	Create(req alarms.Request) (models.Alarm, error)
	Disarm(id int) bool
	SetEnabled(id int, enabled bool) error
}

// exactScheduler reports on exact wake-up delivery
type exactScheduler interface {
	CanScheduleExact() bool
	RequestExactPermission() string
	NextTrigger(id int) (time.Time, bool)
}

type AlarmsWindow struct {
	window    fyne.Window
	app       fyne.App
	manager   alarmManager
	exact     exactScheduler
	config    *models.Config
	onSave    func(*models.Config) error
	onChanged func()

	// Alarms tab
	alarmList   *widget.List
	alarmData   []models.Alarm
	emptyLabel  *widget.Label
	exactBanner *fyne.Container

	// Settings tab
	autoStartCheck *widget.Check
	use24Check     *widget.Check
	ceilingSelect  *widget.Select
	holdTimeSelect *widget.Select
	graceSelect    *widget.Select
	soundEntry     *widget.Entry
	metricsEntry   *widget.Entry

	// UI state
	hasUnsavedChanges bool
	saveStatusLabel   *widget.Label
	saveButton        *widget.Button
}

func NewAlarmsWindow(app fyne.App, manager alarmManager, exact exactScheduler, config *models.Config, onSave func(*models.Config) error) *AlarmsWindow {
	aw := &AlarmsWindow{
		app:     app,
		manager: manager,
		exact:   exact,
		config:  config,
		onSave:  onSave,
	}

	aw.window = app.NewWindow(appDisplayName + " - Alarms")
	aw.buildUI()

	return aw
}

func (aw *AlarmsWindow) buildUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Alarms", aw.buildAlarmsTab()),
		container.NewTabItem("Settings", aw.buildSettingsTab()),
	)
	// Filling the settings form fires the change callbacks
	aw.hasUnsavedChanges = false

	aw.saveStatusLabel = widget.NewLabel("")
	aw.saveStatusLabel.Importance = widget.SuccessImportance

	aw.saveButton = widget.NewButton("Save Settings", aw.save)
	aw.saveButton.Importance = widget.HighImportance
	aw.saveButton.Disable() // Enabled once a setting changes

	closeButton := widget.NewButton("Close", func() {
		aw.handleClose()
	})

	buttonRow := container.NewBorder(
		nil,
		nil,
		container.NewHBox(aw.saveButton, aw.saveStatusLabel),
		closeButton,
		container.NewHBox(),
	)

	content := container.NewBorder(
		nil,
		container.NewPadded(buttonRow),
		nil,
		nil,
		tabs,
	)

	aw.window.SetContent(content)
	aw.window.Resize(fyne.NewSize(640, 520))
	aw.window.CenterOnScreen()

	aw.window.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		if key.Name == fyne.KeyEscape {
			aw.handleClose()
		}
	})
	aw.window.SetCloseIntercept(func() {
		aw.handleClose()
	})
}

func (aw *AlarmsWindow) Show() {
	aw.window.Show()
}

func (aw *AlarmsWindow) save() {
	aw.saveButton.Disable()
	aw.setStatus("Saving...", widget.MediumImportance)

	newConfig := aw.getConfigFromUI()
	go func() {
		if err := aw.onSave(newConfig); err != nil {
			fyne.Do(func() {
				aw.setStatus("Error: "+err.Error(), widget.DangerImportance)
				aw.updateSaveButtonState()
			})
			return
		}

		fyne.Do(func() {
			aw.config = newConfig
			aw.hasUnsavedChanges = false
			aw.refreshAlarms()
			aw.setStatus("Settings saved", widget.SuccessImportance)
			aw.updateSaveButtonState()

			go func() {
				time.Sleep(3 * time.Second)
				fyne.Do(func() {
					if aw.saveStatusLabel.Text == "Settings saved" {
						aw.setStatus("", widget.SuccessImportance)
					}
				})
			}()
		})
	}()
}

func (aw *AlarmsWindow) setStatus(text string, importance widget.Importance) {
	aw.saveStatusLabel.SetText(text)
	aw.saveStatusLabel.Importance = importance
	aw.saveStatusLabel.Refresh()
}

// markChanged marks the settings as having unsaved changes
func (aw *AlarmsWindow) markChanged() {
	aw.hasUnsavedChanges = true
	aw.updateSaveButtonState()
}

func (aw *AlarmsWindow) updateSaveButtonState() {
	if aw.saveButton == nil {
		return
	}
	if aw.hasUnsavedChanges {
		aw.saveButton.Enable()
	} else {
		aw.saveButton.Disable()
	}
}

// handleClose asks before dropping unsaved settings
func (aw *AlarmsWindow) handleClose() {
	if !aw.hasActualChanges() {
		aw.window.Close()
		return
	}
	dialog.ShowConfirm("Unsaved Changes",
		"You have unsaved settings. Are you sure you want to close?",
		func(confirmed bool) {
			if confirmed {
				aw.window.Close()
			}
		}, aw.window)
}

func (aw *AlarmsWindow) hasActualChanges() bool {
	if !aw.hasUnsavedChanges {
		return false
	}
	return *aw.getConfigFromUI() != *aw.config
}
