package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/altrise/clockapp/pkg/ical"
)

func (aw *AlarmsWindow) showAddAlarmDialog() {
	timeEntry := widget.NewEntry()
	timeEntry.SetPlaceHolder("07:30")
	labelEntry := widget.NewEntry()
	labelEntry.SetPlaceHolder("Optional")
	endEntry := widget.NewEntry()
	endEntry.SetPlaceHolder("08:00")
	endEntry.Disable()

	endCheck := widget.NewCheck("Stop automatically", func(checked bool) {
		if checked {
			endEntry.Enable()
		} else {
			endEntry.Disable()
		}
	})

	items := []*widget.FormItem{
		widget.NewFormItem("Time", timeEntry),
		widget.NewFormItem("Label", labelEntry),
		widget.NewFormItem("Auto-stop", endCheck),
		widget.NewFormItem("Stop at", endEntry),
	}

	dialog.ShowForm("Add Alarm", "Create", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}

		req, err := parseAlarmRequest(timeEntry.Text, labelEntry.Text, endCheck.Checked, endEntry.Text)
		if err != nil {
			dialog.ShowError(err, aw.window)
			return
		}

		if _, err := aw.manager.Create(req); err != nil {
			dialog.ShowError(fmt.Errorf("could not create alarm: %w", err), aw.window)
			return
		}
		aw.notifyChanged()
	}, aw.window)
}

func (aw *AlarmsWindow) showExportDialog() {
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, aw.window)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()

		if err := ical.Export(w, aw.manager.List(), time.Now()); err != nil {
			dialog.ShowError(fmt.Errorf("export failed: %w", err), aw.window)
		}
	}, aw.window)
	save.SetFileName("alarms.ics")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".ics"}))
	save.Show()
}

func (aw *AlarmsWindow) showImportDialog() {
	open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, aw.window)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()

		result, err := (&ical.Importer{}).Import(r, time.Now())
		if err != nil {
			dialog.ShowError(fmt.Errorf("import failed: %w", err), aw.window)
			return
		}

		added := 0
		for _, req := range result.Requests {
			if _, err := aw.manager.Create(req); err != nil {
				dialog.ShowError(fmt.Errorf("could not create alarm: %w", err), aw.window)
				break
			}
			added++
		}
		if added > 0 {
			aw.notifyChanged()
		}
		dialog.ShowInformation("Import",
			fmt.Sprintf("%d alarms added, %d events skipped", added, result.Skipped.Total()), aw.window)
	}, aw.window)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".ics"}))
	open.Show()
}
