package platform

import (
	"log/slog"
	"sync"
	"time"

	"github.com/altrise/clockapp/pkg/logging"
)

// DefaultFocusInterval is how often the keeper polls for focus
const DefaultFocusInterval = 500 * time.Millisecond

// FocusKeeper keeps a window in front while it is open. Every poll it
// checks whether the app still has focus; on loss it calls OnLost and then
// Reclaim, on regain it calls OnGained.
type FocusKeeper struct {
	IsActive func() bool
	Reclaim  func()
	OnLost   func()
	OnGained func()
	Interval time.Duration
	Logger   *slog.Logger

	mu      sync.Mutex
	focused bool
	stop    chan struct{}
	done    chan struct{}
}

// NewFocusKeeper creates a keeper using the platform focus helpers.
// reclaim runs after ActivateApp, typically to show the window again.
func NewFocusKeeper(reclaim func(), logger *slog.Logger) *FocusKeeper {
	return &FocusKeeper{
		IsActive: IsAppActive,
		Reclaim: func() {
			ActivateApp()
			if reclaim != nil {
				reclaim()
			}
		},
		Interval: DefaultFocusInterval,
		Logger:   logger,
	}
}

// Start begins polling; calling Start twice has no effect
func (k *FocusKeeper) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stop != nil {
		return
	}
	if k.Interval <= 0 {
		k.Interval = DefaultFocusInterval
	}
	k.Logger = logging.OrDefault(k.Logger).With("component", "focus")
	k.focused = true
	k.stop = make(chan struct{})
	k.done = make(chan struct{})
	go k.run(k.stop, k.done)
}

// Stop ends polling and waits for the loop to exit
func (k *FocusKeeper) Stop() {
	k.mu.Lock()
	stop, done := k.stop, k.done
	k.stop, k.done = nil, nil
	k.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (k *FocusKeeper) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			k.Check()
		}
	}
}

// Check runs one poll
func (k *FocusKeeper) Check() {
	focused := k.IsActive()

	k.mu.Lock()
	was := k.focused
	k.focused = focused
	k.mu.Unlock()

	switch {
	case was && !focused:
		k.Logger.Debug("window lost focus")
		if k.OnLost != nil {
			k.OnLost()
		}
	case !was && focused:
		k.Logger.Debug("window regained focus")
		if k.OnGained != nil {
			k.OnGained()
		}
	}

	if !focused && k.Reclaim != nil {
		k.Reclaim()
	}
}
