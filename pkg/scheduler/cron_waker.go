package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/robfig/cron/v3"
)

// WakeAlarm arms a hardware wake-up, such as the RTC
type WakeAlarm interface {
	Arm(at time.Time) error
	Disarm() error
}

// once is a cron.Schedule that fires a single time
type once struct {
	at time.Time
}

// Next implements cron.Schedule
func (o once) Next(t time.Time) time.Time {
	if o.at.After(t) {
		return o.at
	}
	return time.Time{}
}

type registration struct {
	entry cron.EntryID
	gen   uint64
	at    time.Time
	exact bool
}

// CronWaker keeps one cron entry per alarm id and calls the fire handler
// when an entry is due. Exact registrations also arm the WakeAlarm for the
// earliest exact instant so a suspended machine resumes in time.
type CronWaker struct {
	mu      sync.Mutex
	cron    *cron.Cron
	wake    WakeAlarm
	entries map[int]registration
	gen     uint64
	fire    func(id int)
	logger  *slog.Logger
}

// NewCronWaker creates a CronWaker. wake may be nil.
func NewCronWaker(wake WakeAlarm, logger *slog.Logger) *CronWaker {
	logger = logging.OrDefault(logger).With("component", "waker")
	cl := cronLogger{logger}
	return &CronWaker{
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		wake:    wake,
		entries: make(map[int]registration),
		logger:  logger,
	}
}

// OnFire sets the handler invoked with the alarm id when a wake-up is due
func (w *CronWaker) OnFire(fire func(id int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fire = fire
}

// Start begins dispatching wake-ups
func (w *CronWaker) Start() {
	w.logger.Info("starting waker")
	w.cron.Start()
}

// Stop halts dispatching and waits for running handlers
func (w *CronWaker) Stop() context.Context {
	w.logger.Info("stopping waker")
	return w.cron.Stop()
}

// Register implements Waker
func (w *CronWaker) Register(id int, at time.Time, exact bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.removeLocked(id)

	w.gen++
	gen := w.gen
	reg := registration{gen: gen, at: at, exact: exact}
	if exact && w.wake != nil {
		if err := w.armLocked(at); err != nil {
			w.rearmLocked()
			return err
		}
	}

	// cron never runs a schedule whose first instant is not in the future
	if !at.After(time.Now()) {
		w.entries[id] = reg
		go w.dispatch(id, gen)
		return nil
	}

	reg.entry = w.cron.Schedule(once{at: at}, cron.FuncJob(func() {
		w.dispatch(id, gen)
	}))
	w.entries[id] = reg
	return nil
}

// Cancel implements Waker
func (w *CronWaker) Cancel(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.removeLocked(id) {
		w.rearmLocked()
	}
}

// Pending implements Waker
func (w *CronWaker) Pending(id int) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reg, ok := w.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return reg.at, true
}

// dispatch runs on the cron goroutine. A registration replaced or cancelled
// after the entry was started is not fired.
func (w *CronWaker) dispatch(id int, gen uint64) {
	w.mu.Lock()
	reg, ok := w.entries[id]
	if !ok || reg.gen != gen {
		w.mu.Unlock()
		return
	}
	w.removeLocked(id)
	w.rearmLocked()
	fire := w.fire
	w.mu.Unlock()

	w.logger.Info("wake-up fired", "alarm_id", id)
	if fire != nil {
		fire(id)
	}
}

// removeLocked drops the registration for id and reports whether one existed
func (w *CronWaker) removeLocked(id int) bool {
	reg, ok := w.entries[id]
	if !ok {
		return false
	}
	if reg.entry != 0 {
		w.cron.Remove(reg.entry)
	}
	delete(w.entries, id)
	return true
}

// armLocked points the wake alarm at the earlier of at and the current
// earliest exact registration
func (w *CronWaker) armLocked(at time.Time) error {
	earliest := at
	for _, reg := range w.entries {
		if reg.exact && reg.at.Before(earliest) {
			earliest = reg.at
		}
	}
	if err := w.wake.Arm(earliest); err != nil {
		return fmt.Errorf("arm wake alarm: %w", err)
	}
	return nil
}

// rearmLocked points the wake alarm at the earliest remaining exact
// registration, or disarms it
func (w *CronWaker) rearmLocked() {
	if w.wake == nil {
		return
	}

	var earliest time.Time
	for _, reg := range w.entries {
		if reg.exact && (earliest.IsZero() || reg.at.Before(earliest)) {
			earliest = reg.at
		}
	}

	var err error
	if earliest.IsZero() {
		err = w.wake.Disarm()
	} else {
		err = w.wake.Arm(earliest)
	}
	if err != nil {
		w.logger.Warn("failed to update wake alarm", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
