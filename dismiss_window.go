package main

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"golang.design/x/hotkey"

	"github.com/altrise/clockapp/pkg/gate"
	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/altrise/clockapp/pkg/platform"
	"github.com/altrise/clockapp/pkg/ui/components"
)

// DismissOptions are the collaborators of a DismissWindow
type DismissOptions struct {
	Store    gate.AlarmStore
	Ringer   gate.Dismisser
	Bus      gate.Subscriber
	Metrics  *metrics.Metrics
	Config   models.Config
	Logger   *slog.Logger
	OnClosed func()
}

// DismissWindow is the full-screen puzzle shown while an alarm rings. It
// can only be left by solving the puzzle or by the alarm's auto-stop.
type DismissWindow struct {
	window   fyne.Window
	gate     *gate.Gate
	config   models.Config
	logger   *slog.Logger
	onClosed func()

	background    *canvas.Rectangle
	answerEntry   *widget.Entry
	checkButton   *widget.Button
	feedbackLabel *widget.Label
	dismissButton *components.HoldButton

	focus  *platform.FocusKeeper
	cancel context.CancelFunc
	closed bool

	hotkeyMu      sync.Mutex
	quitHotkey    *hotkey.Hotkey
	hotkeyStopped bool
}

// NewDismissWindow opens the gate for alarm id and builds its window. It
// must run on the main goroutine.
func NewDismissWindow(a fyne.App, id int, opts DismissOptions) (*DismissWindow, error) {
	dw := &DismissWindow{
		config:   opts.Config,
		logger:   logging.OrDefault(opts.Logger).With("component", "dismiss", "alarm_id", id),
		onClosed: opts.OnClosed,
	}

	g, err := gate.Open(id, gate.Deps{
		Store:   opts.Store,
		Ringer:  opts.Ringer,
		Metrics: opts.Metrics,
		Logger:  opts.Logger,
	}, gate.Options{
		Ceiling: opts.Config.PuzzleCeiling,
		OnClose: func() { fyne.Do(dw.Close) },
	})
	if err != nil {
		return nil, err
	}
	dw.gate = g

	dw.window = a.NewWindow("Alarm")
	dw.window.SetFullScreen(true)
	dw.buildUI()

	// Closing the window is the back gesture: it only shows the hint
	dw.window.SetCloseIntercept(func() {
		dw.showHint(dw.gate.Back())
	})
	dw.window.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		if key.Name == fyne.KeyEscape {
			dw.showHint(dw.gate.Back())
		}
	})
	dw.window.SetOnClosed(dw.cleanup)

	ctx, cancel := context.WithCancel(context.Background())
	dw.cancel = cancel
	go g.Listen(ctx, opts.Bus)

	dw.blockQuit()
	dw.focus = platform.NewFocusKeeper(func() { fyne.Do(dw.Show) }, dw.logger)
	dw.focus.OnLost = dw.unblockQuit
	dw.focus.OnGained = dw.blockQuit
	dw.focus.Start()

	return dw, nil
}

func (dw *DismissWindow) buildUI() {
	alarm := dw.gate.Alarm()

	clock := canvas.NewText(alarm.TimeOfDay(dw.config.Use24Hour), theme.Color(theme.ColorNameForeground))
	clock.TextSize = 72
	clock.TextStyle = fyne.TextStyle{Bold: true}
	clock.Alignment = fyne.TextAlignCenter

	labelText := alarm.Label
	if labelText == "" {
		labelText = "Alarm"
	}
	label := canvas.NewText(labelText, theme.Color(theme.ColorNameForeground))
	label.TextSize = 28
	label.Alignment = fyne.TextAlignCenter

	question := canvas.NewText(dw.gate.Puzzle().Question(), theme.Color(theme.ColorNameForeground))
	question.TextSize = 48
	question.Alignment = fyne.TextAlignCenter

	dw.answerEntry = widget.NewEntry()
	dw.answerEntry.SetPlaceHolder("Answer")
	dw.answerEntry.OnSubmitted = dw.check

	dw.checkButton = widget.NewButton("Check", func() {
		dw.check(dw.answerEntry.Text)
	})
	dw.checkButton.Importance = widget.HighImportance

	dw.feedbackLabel = widget.NewLabel("Solve the puzzle to turn the alarm off")
	dw.feedbackLabel.Alignment = fyne.TextAlignCenter

	holdTime := time.Duration(dw.config.HoldTimeSeconds) * time.Second
	buttonText := "Dismiss"
	if holdTime > 0 {
		buttonText = fmt.Sprintf("Dismiss (Hold %ds)", dw.config.HoldTimeSeconds)
	}
	dw.dismissButton = components.NewHoldButton(buttonText, holdTime, dw.dismiss)
	dw.dismissButton.Disable()

	answerRow := container.NewHBox(
		container.NewGridWrap(fyne.NewSize(200, dw.answerEntry.MinSize().Height), dw.answerEntry),
		dw.checkButton,
	)

	content := container.NewVBox(
		container.NewPadded(clock),
		label,
		widget.NewSeparator(),
		container.NewPadded(question),
		container.NewCenter(answerRow),
		dw.feedbackLabel,
		widget.NewSeparator(),
		container.NewCenter(dw.dismissButton),
	)

	dw.background = canvas.NewRectangle(theme.Color(theme.ColorNameBackground))
	dw.window.SetContent(container.NewStack(dw.background, container.NewCenter(content)))
}

// AlarmID returns the alarm this window dismisses
func (dw *DismissWindow) AlarmID() int {
	return dw.gate.Alarm().ID
}

func (dw *DismissWindow) Show() {
	if dw.closed {
		return
	}
	dw.window.Show()
	dw.window.RequestFocus()
	platform.SetKiosk(true)
}

// Close closes the window for good; it is safe to call more than once
func (dw *DismissWindow) Close() {
	if dw.closed {
		return
	}
	dw.closed = true
	dw.window.Close()
}

func (dw *DismissWindow) check(input string) {
	if !dw.gate.Check(input) {
		dw.feedbackLabel.SetText("Wrong answer, try again")
		dw.feedbackLabel.Importance = widget.DangerImportance
		dw.feedbackLabel.Refresh()
		dw.answerEntry.SetText("")
		return
	}

	dw.answerEntry.Disable()
	dw.checkButton.Disable()
	dw.dismissButton.Enable()
	text := "Correct! Press Dismiss"
	if dw.config.HoldTimeSeconds > 0 {
		text = "Correct! Hold Dismiss"
	}
	dw.feedbackLabel.SetText(text)
	dw.feedbackLabel.Importance = widget.SuccessImportance
	dw.feedbackLabel.Refresh()
}

// dismiss runs when the hold completes, off the main goroutine
func (dw *DismissWindow) dismiss() {
	if err := dw.gate.Dismiss(); err != nil {
		dw.logger.Warn("dismiss rejected", "error", err)
	}
}

func (dw *DismissWindow) showHint(hint string) {
	dw.feedbackLabel.SetText(hint)
	dw.feedbackLabel.Importance = widget.WarningImportance
	dw.feedbackLabel.Refresh()
}

// setPulse renders one vibration phase as a flash of the background
func (dw *DismissWindow) setPulse(on bool) {
	var fill color.Color = theme.Color(theme.ColorNameBackground)
	if on {
		fill = theme.Color(theme.ColorNameError)
	}
	dw.background.FillColor = fill
	dw.background.Refresh()
}

func (dw *DismissWindow) cleanup() {
	dw.closed = true
	platform.SetKiosk(false)
	dw.cancel()
	dw.focus.Stop()
	dw.unblockQuit()
	if dw.onClosed != nil {
		dw.onClosed()
	}
}

// blockQuit swallows the quit shortcut while the window has focus
func (dw *DismissWindow) blockQuit() {
	dw.hotkeyMu.Lock()
	if dw.quitHotkey != nil {
		dw.hotkeyMu.Unlock()
		return
	}
	dw.hotkeyStopped = false
	dw.hotkeyMu.Unlock()

	go func() {
		hk := hotkey.New(platform.QuitModifiers(), hotkey.KeyQ)
		if err := hk.Register(); err != nil {
			dw.logger.Warn("failed to block quit shortcut", "error", err)
			return
		}

		dw.hotkeyMu.Lock()
		if dw.hotkeyStopped || dw.quitHotkey != nil {
			dw.hotkeyMu.Unlock()
			hk.Unregister()
			return
		}
		dw.quitHotkey = hk
		dw.hotkeyMu.Unlock()

		for range hk.Keydown() {
			dw.logger.Info("quit shortcut blocked")
		}
	}()
}

func (dw *DismissWindow) unblockQuit() {
	dw.hotkeyMu.Lock()
	hk := dw.quitHotkey
	dw.quitHotkey = nil
	dw.hotkeyStopped = true
	dw.hotkeyMu.Unlock()

	if hk != nil {
		if err := hk.Unregister(); err != nil {
			dw.logger.Debug("failed to unregister quit shortcut", "error", err)
		}
	}
}
