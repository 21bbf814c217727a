package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/altrise/clockapp/pkg/models"
)

const holdTapOption = "Tap (no hold)"

var (
	ceilingOptions = []string{"10", "20", "50", "100", "200"}
	graceOptions   = []string{"250 ms", "500 ms", "1000 ms", "2000 ms"}
)

func (aw *AlarmsWindow) buildSettingsTab() fyne.CanvasObject {
	aw.autoStartCheck = widget.NewCheck("Start at login", func(bool) {
		aw.markChanged()
	})
	aw.autoStartCheck.SetChecked(aw.config.AutoStart)

	aw.use24Check = widget.NewCheck("Use 24-hour time", func(bool) {
		aw.markChanged()
	})
	aw.use24Check.SetChecked(aw.config.Use24Hour)

	ceiling := strconv.Itoa(aw.config.PuzzleCeiling)
	options := ceilingOptions
	if !slices.Contains(options, ceiling) {
		options = append(slices.Clone(options), ceiling)
	}
	aw.ceilingSelect = widget.NewSelect(options, func(string) {
		aw.markChanged()
	})
	aw.ceilingSelect.SetSelected(ceiling)

	holdOptions := []string{holdTapOption}
	for s := 1; s <= models.MaxHoldTimeSeconds; s++ {
		holdOptions = append(holdOptions, fmt.Sprintf("%d sec", s))
	}
	aw.holdTimeSelect = widget.NewSelect(holdOptions, func(string) {
		aw.markChanged()
	})
	if aw.config.HoldTimeSeconds == 0 {
		aw.holdTimeSelect.SetSelected(holdTapOption)
	} else {
		aw.holdTimeSelect.SetSelected(fmt.Sprintf("%d sec", aw.config.HoldTimeSeconds))
	}

	grace := fmt.Sprintf("%d ms", aw.config.AutoStopGraceMillis)
	graceChoices := graceOptions
	if !slices.Contains(graceChoices, grace) {
		graceChoices = append(slices.Clone(graceChoices), grace)
	}
	aw.graceSelect = widget.NewSelect(graceChoices, func(string) {
		aw.markChanged()
	})
	aw.graceSelect.SetSelected(grace)

	aw.soundEntry = widget.NewEntry()
	aw.soundEntry.SetPlaceHolder("Built-in beep")
	aw.soundEntry.SetText(aw.config.SoundPath)
	aw.soundEntry.OnChanged = func(string) {
		aw.markChanged()
	}
	browseButton := widget.NewButton("Browse...", func() {
		open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			defer r.Close()
			aw.soundEntry.SetText(r.URI().Path())
		}, aw.window)
		open.SetFilter(storage.NewExtensionFileFilter([]string{".wav"}))
		open.Show()
	})

	aw.metricsEntry = widget.NewEntry()
	aw.metricsEntry.SetPlaceHolder("Disabled, e.g. 127.0.0.1:9464")
	aw.metricsEntry.SetText(aw.config.MetricsAddr)
	aw.metricsEntry.OnChanged = func(string) {
		aw.markChanged()
	}

	storageURIEntry := widget.NewEntry()
	storageURIEntry.SetText(aw.app.Storage().RootURI().String())
	storageURIEntry.Disable()
	openStorageButton := widget.NewButton("Open in File Manager", func() {
		openInFileManager(aw.app.Storage().RootURI().Path())
	})

	general := container.New(layout.NewFormLayout(),
		widget.NewLabel("Auto Start:"), aw.autoStartCheck,
		widget.NewLabel("Time Format:"), aw.use24Check,
		helpLabel("Storage Location:", "Alarms and settings are stored here"),
		container.NewBorder(nil, container.NewPadded(openStorageButton), nil, nil, storageURIEntry),
	)

	ringing := container.New(layout.NewFormLayout(),
		helpLabel("Puzzle Difficulty:", "Largest possible answer"), aw.ceilingSelect,
		helpLabel("Dismiss Button:", "How long to hold after solving"), aw.holdTimeSelect,
		widget.NewLabel("Alarm Sound:"), container.NewBorder(nil, nil, nil, browseButton, aw.soundEntry),
		helpLabel("Auto-stop Delay:", "Applies after restart"), aw.graceSelect,
	)

	advanced := container.New(layout.NewFormLayout(),
		helpLabel("Metrics Address:", "Prometheus endpoint, applies after restart"), aw.metricsEntry,
	)

	content := container.NewVBox(
		widget.NewLabel("General"),
		widget.NewSeparator(),
		general,
		widget.NewLabel("Ringing"),
		widget.NewSeparator(),
		ringing,
		widget.NewLabel("Advanced"),
		widget.NewSeparator(),
		advanced,
	)

	return container.NewPadded(container.NewVScroll(content))
}

func helpLabel(label, help string) fyne.CanvasObject {
	helpText := widget.NewLabel(help)
	helpText.Wrapping = fyne.TextWrapWord
	helpText.Importance = widget.LowImportance
	return container.NewVBox(widget.NewLabel(label), helpText)
}

func (aw *AlarmsWindow) getConfigFromUI() *models.Config {
	cfg := *aw.config
	cfg.AutoStart = aw.autoStartCheck.Checked
	cfg.Use24Hour = aw.use24Check.Checked
	cfg.SoundPath = strings.TrimSpace(aw.soundEntry.Text)
	cfg.MetricsAddr = strings.TrimSpace(aw.metricsEntry.Text)

	if v, err := strconv.Atoi(aw.ceilingSelect.Selected); err == nil {
		cfg.PuzzleCeiling = v
	}

	if aw.holdTimeSelect.Selected == holdTapOption {
		cfg.HoldTimeSeconds = 0
	} else {
		var v int
		if _, err := fmt.Sscanf(aw.holdTimeSelect.Selected, "%d sec", &v); err == nil {
			cfg.HoldTimeSeconds = v
		}
	}

	var grace int
	if _, err := fmt.Sscanf(aw.graceSelect.Selected, "%d ms", &grace); err == nil {
		cfg.AutoStopGraceMillis = grace
	}

	cfg.Normalize()
	return &cfg
}

func openInFileManager(path string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		fyne.LogError("failed to open file manager", err)
	}
}
