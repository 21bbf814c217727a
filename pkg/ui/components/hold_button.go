package components

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const holdTick = 50 * time.Millisecond

// HoldButton is a button that confirms only after being held for HoldTime.
// A zero HoldTime makes it an ordinary tap button.
type HoldButton struct {
	widget.DisableableWidget
	Text      string
	HoldTime  time.Duration
	OnConfirm func()

	mu       sync.Mutex
	holding  bool
	hovered  bool
	progress float64
	ticker   *time.Ticker
}

// NewHoldButton creates a new HoldButton
func NewHoldButton(text string, holdTime time.Duration, onConfirm func()) *HoldButton {
	b := &HoldButton{
		Text:      text,
		HoldTime:  holdTime,
		OnConfirm: onConfirm,
	}
	b.ExtendBaseWidget(b)
	return b
}

// CreateRenderer implements fyne.Widget
func (b *HoldButton) CreateRenderer() fyne.WidgetRenderer {
	text := canvas.NewText(b.Text, theme.Color(theme.ColorNameForeground))
	text.Alignment = fyne.TextAlignCenter
	text.TextStyle = fyne.TextStyle{Bold: true}

	bg := canvas.NewRectangle(theme.Color(theme.ColorNameButton))
	progressBar := canvas.NewRectangle(theme.Color(theme.ColorNamePrimary))

	return &holdButtonRenderer{
		button:      b,
		text:        text,
		bg:          bg,
		progressBar: progressBar,
	}
}

// Progress returns how far the current hold has come, from 0 to 1
func (b *HoldButton) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *HoldButton) setProgress(progress float64) {
	b.mu.Lock()
	b.progress = progress
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

// Tapped implements fyne.Tappable
func (b *HoldButton) Tapped(*fyne.PointEvent) {
	if b.Disabled() || b.HoldTime > 0 {
		return
	}
	b.confirm()
}

// MouseIn implements desktop.Hoverable
func (b *HoldButton) MouseIn(*desktop.MouseEvent) {
	b.hovered = true
	b.Refresh()
}

// MouseMoved implements desktop.Hoverable
func (b *HoldButton) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable
func (b *HoldButton) MouseOut() {
	b.hovered = false
	// Stop holding when mouse leaves
	b.release()
	b.Refresh()
}

// MouseDown implements desktop.Mouseable
func (b *HoldButton) MouseDown(*desktop.MouseEvent) {
	if b.Disabled() || b.HoldTime <= 0 {
		return
	}

	b.mu.Lock()
	if b.holding {
		b.mu.Unlock()
		return
	}
	b.holding = true
	b.progress = 0
	ticker := time.NewTicker(holdTick)
	b.ticker = ticker
	b.mu.Unlock()

	increment := float64(holdTick) / float64(b.HoldTime)
	go b.track(ticker, increment)
}

// MouseUp implements desktop.Mouseable
func (b *HoldButton) MouseUp(*desktop.MouseEvent) {
	b.release()
}

// Disable stops any hold in progress and greys the button out
func (b *HoldButton) Disable() {
	b.release()
	b.DisableableWidget.Disable()
}

func (b *HoldButton) track(ticker *time.Ticker, increment float64) {
	for range ticker.C {
		b.mu.Lock()
		if !b.holding || b.ticker != ticker {
			b.mu.Unlock()
			return
		}
		b.progress += increment
		done := b.progress >= 1.0
		if done {
			b.holding = false
			b.ticker = nil
			ticker.Stop()
		}
		b.mu.Unlock()

		fyne.Do(b.Refresh)
		if done {
			b.confirm()
			return
		}
	}
}

func (b *HoldButton) release() {
	b.mu.Lock()
	wasHolding := b.holding
	b.holding = false
	if b.ticker != nil {
		b.ticker.Stop()
		b.ticker = nil
	}
	b.mu.Unlock()

	if wasHolding {
		b.setProgress(0)
	}
}

func (b *HoldButton) confirm() {
	if b.OnConfirm != nil {
		b.OnConfirm()
	}
}

type holdButtonRenderer struct {
	button      *HoldButton
	text        *canvas.Text
	bg          *canvas.Rectangle
	progressBar *canvas.Rectangle
}

func (r *holdButtonRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.text.Resize(size)

	// Progress bar fills from left to right
	progressWidth := size.Width * float32(r.button.Progress())
	r.progressBar.Resize(fyne.NewSize(progressWidth, size.Height))
	r.progressBar.Move(fyne.NewPos(0, 0))
}

func (r *holdButtonRenderer) MinSize() fyne.Size {
	textSize := r.text.MinSize()
	minWidth := textSize.Width + theme.Padding()*4
	minHeight := textSize.Height + theme.Padding()*2

	// Large enough to hit half asleep
	if minWidth < 300 {
		minWidth = 300
	}
	if minHeight < 80 {
		minHeight = 80
	}

	return fyne.NewSize(minWidth, minHeight)
}

func (r *holdButtonRenderer) Refresh() {
	r.text.Text = r.button.Text

	switch {
	case r.button.Disabled():
		r.bg.FillColor = theme.Color(theme.ColorNameDisabledButton)
		r.text.Color = theme.Color(theme.ColorNameDisabled)
	case r.button.hovered:
		r.bg.FillColor = theme.Color(theme.ColorNameHover)
		r.text.Color = theme.Color(theme.ColorNameForeground)
	default:
		r.bg.FillColor = theme.Color(theme.ColorNameButton)
		r.text.Color = theme.Color(theme.ColorNameForeground)
	}

	size := r.bg.Size()
	progressWidth := size.Width * float32(r.button.Progress())
	r.progressBar.Resize(fyne.NewSize(progressWidth, size.Height))

	r.bg.Refresh()
	r.progressBar.Refresh()
	r.text.Refresh()
}

func (r *holdButtonRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.progressBar, r.text}
}

func (r *holdButtonRenderer) Destroy() {}

func (r *holdButtonRenderer) BackgroundColor() color.Color {
	return theme.Color(theme.ColorNameButton)
}
