// Package scheduler turns enabled alarms into wake-up registrations.
//
// Each alarm id owns at most one registration. Registrations are requested
// as exact (the machine is woken from suspend in time) when the platform
// allows it and fall back to best-effort timers otherwise.
package scheduler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
)

// ErrExactDenied is returned by a Waker that may not register exact wake-ups
var ErrExactDenied = errors.New("exact wake-up not permitted")

// Waker registers one wake-up per alarm id
type Waker interface {
	// Register replaces any registration for id with one firing at at
	Register(id int, at time.Time, exact bool) error
	// Cancel removes the registration for id, if any
	Cancel(id int)
	// Pending returns the instant id is registered for
	Pending(id int) (time.Time, bool)
}

// Capability reports whether exact wake-ups are currently permitted
type Capability interface {
	CanScheduleExact() bool
	PermissionHint() string
}

// AlarmSource is the part of the alarm store the scheduler reads
type AlarmSource interface {
	GetAllAlarms() []models.Alarm
	GetEnabledAlarms() []models.Alarm
}

// Scheduler bridges alarms and the Waker
type Scheduler struct {
	alarms     AlarmSource
	waker      Waker
	capability Capability
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a Scheduler. A nil capability means exact wake-ups are always
// permitted.
func New(alarms AlarmSource, waker Waker, capability Capability, opts ...Option) *Scheduler {
	s := &Scheduler{
		alarms:     alarms,
		waker:      waker,
		capability: capability,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With("component", "scheduler")
	return s
}

// ScheduleAlarm registers the alarm's next trigger instant. Disabled alarms
// are ignored. Failures are logged, never returned.
func (s *Scheduler) ScheduleAlarm(alarm models.Alarm) {
	if !alarm.IsEnabled {
		s.logger.Debug("alarm disabled, not scheduling", "alarm_id", alarm.ID)
		return
	}

	s.register(alarm, alarm.TriggerTime(s.now()))
}

// DeferAlarm registers the alarm's first occurrence after the current minute.
// A wake-up that fired on time resolves to the next day, never to itself.
func (s *Scheduler) DeferAlarm(alarm models.Alarm) {
	if !alarm.IsEnabled {
		return
	}
	s.register(alarm, alarm.TriggerTime(s.now().Add(time.Minute)))
}

func (s *Scheduler) register(alarm models.Alarm, at time.Time) {
	exact := s.CanScheduleExact()

	err := s.waker.Register(alarm.ID, at, exact)
	if exact && errors.Is(err, ErrExactDenied) {
		s.logger.Warn("exact wake-up denied, falling back to inexact", "alarm_id", alarm.ID, "error", err)
		exact = false
		err = s.waker.Register(alarm.ID, at, false)
	}
	if err != nil {
		s.logger.Error("failed to register wake-up", "alarm_id", alarm.ID, "error", err)
		return
	}

	s.metrics.Registered(exact)
	s.logger.Info("alarm scheduled", "alarm_id", alarm.ID, "at", at.Format(time.RFC3339), "exact", exact)
}

// CancelAlarm removes the registration for id; unknown ids are ignored
func (s *Scheduler) CancelAlarm(id int) {
	s.waker.Cancel(id)
	s.logger.Debug("alarm cancelled", "alarm_id", id)
}

// CancelAllAlarms cancels the registration of every stored alarm
func (s *Scheduler) CancelAllAlarms() {
	alarms := s.alarms.GetAllAlarms()
	for _, alarm := range alarms {
		s.waker.Cancel(alarm.ID)
	}
	s.logger.Info("all alarms cancelled", "count", len(alarms))
}

// RescheduleAllAlarms registers every enabled stored alarm again. Called at
// startup and after resume, when earlier registrations are gone or stale.
// A registration whose instant passed while the machine was suspended is
// kept at that instant so it fires now instead of rolling to tomorrow.
func (s *Scheduler) RescheduleAllAlarms() {
	alarms := s.alarms.GetEnabledAlarms()
	now := s.now()
	s.logger.Info("rescheduling enabled alarms", "count", len(alarms))
	for _, alarm := range alarms {
		if at, ok := s.waker.Pending(alarm.ID); ok && !at.After(now) {
			s.logger.Info("wake-up came due while suspended", "alarm_id", alarm.ID, "due", at.Format(time.RFC3339))
			s.register(alarm, at)
			continue
		}
		s.ScheduleAlarm(alarm)
	}
}

// NextTrigger returns the registered instant for id
func (s *Scheduler) NextTrigger(id int) (time.Time, bool) {
	return s.waker.Pending(id)
}

// CanScheduleExact reports whether exact wake-ups are currently permitted
func (s *Scheduler) CanScheduleExact() bool {
	if s.capability == nil {
		return true
	}
	return s.capability.CanScheduleExact()
}

// RequestExactPermission returns instructions for granting exact wake-ups,
// or an empty string when they are already permitted
func (s *Scheduler) RequestExactPermission() string {
	if s.CanScheduleExact() {
		return ""
	}
	return s.capability.PermissionHint()
}
