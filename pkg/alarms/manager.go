// Package alarms is the arm/disarm facade the alarms window, tray and D-Bus
// API share. It keeps the store and the wake-up registrations in step.
package alarms

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/models"
)

// Store is the persistent alarm collection
type Store interface {
	GetAllAlarms() []models.Alarm
	GetEnabledAlarms() []models.Alarm
	GetAlarm(id int) (models.Alarm, bool)
	SaveAlarm(alarm models.Alarm) error
	DeleteAlarm(id int)
	SetAlarmEnabled(id int, enabled bool) bool
	NextAlarmID() int
}

// Scheduler registers wake-ups
type Scheduler interface {
	ScheduleAlarm(alarm models.Alarm)
	CancelAlarm(id int)
}

// Request describes a new alarm
type Request struct {
	Hour       int
	Minute     int
	Label      string
	HasEndTime bool
	EndHour    int
	EndMinute  int
}

// Upcoming is the next alarm to ring
type Upcoming struct {
	Alarm models.Alarm
	At    time.Time
}

// Manager creates, updates and removes alarms
type Manager struct {
	store     Store
	scheduler Scheduler
	now       func() time.Time
	logger    *slog.Logger
}

// NewManager creates a Manager
func NewManager(store Store, scheduler Scheduler, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		scheduler: scheduler,
		now:       time.Now,
		logger:    logging.OrDefault(logger).With("component", "alarms"),
	}
}

// Create validates req, stores a new enabled alarm and schedules it. No id
// is consumed when validation fails.
func (m *Manager) Create(req Request) (models.Alarm, error) {
	alarm := models.NewAlarm(0, req.Hour, req.Minute, req.Label)
	if req.HasEndTime {
		alarm = alarm.WithEndTime(req.EndHour, req.EndMinute)
	}
	if err := alarm.Validate(); err != nil {
		return models.Alarm{}, err
	}

	alarm.ID = m.store.NextAlarmID()
	if err := m.store.SaveAlarm(alarm); err != nil {
		return models.Alarm{}, fmt.Errorf("save alarm %d: %w", alarm.ID, err)
	}
	m.scheduler.ScheduleAlarm(alarm)

	m.logger.Info("alarm created", "alarm_id", alarm.ID, "time", alarm.TimeOfDay(true), "end", alarm.HasEndTime)
	return alarm, nil
}

// Update replaces a stored alarm and re-registers its wake-up
func (m *Manager) Update(alarm models.Alarm) error {
	if err := alarm.Validate(); err != nil {
		return err
	}
	if _, ok := m.store.GetAlarm(alarm.ID); !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, alarm.ID)
	}
	if err := m.store.SaveAlarm(alarm); err != nil {
		return fmt.Errorf("save alarm %d: %w", alarm.ID, err)
	}

	m.scheduler.CancelAlarm(alarm.ID)
	m.scheduler.ScheduleAlarm(alarm)
	m.logger.Info("alarm updated", "alarm_id", alarm.ID)
	return nil
}

// Disarm cancels the wake-up and deletes the alarm. It reports whether the
// alarm existed.
func (m *Manager) Disarm(id int) bool {
	_, ok := m.store.GetAlarm(id)
	m.scheduler.CancelAlarm(id)
	m.store.DeleteAlarm(id)
	if ok {
		m.logger.Info("alarm deleted", "alarm_id", id)
	}
	return ok
}

// SetEnabled toggles an alarm, registering or cancelling its wake-up
func (m *Manager) SetEnabled(id int, enabled bool) error {
	if !m.store.SetAlarmEnabled(id, enabled) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if !enabled {
		m.scheduler.CancelAlarm(id)
		return nil
	}
	alarm, _ := m.store.GetAlarm(id)
	m.scheduler.ScheduleAlarm(alarm)
	return nil
}

// List returns every alarm ordered by time of day
func (m *Manager) List() []models.Alarm {
	alarms := m.store.GetAllAlarms()
	sort.SliceStable(alarms, func(i, j int) bool {
		a, b := alarms[i], alarms[j]
		if a.HourOfDay != b.HourOfDay {
			return a.HourOfDay < b.HourOfDay
		}
		return a.Minute < b.Minute
	})
	return alarms
}

// Get returns one alarm
func (m *Manager) Get(id int) (models.Alarm, bool) {
	return m.store.GetAlarm(id)
}

// Upcoming returns the enabled alarm that rings soonest
func (m *Manager) Upcoming() (Upcoming, bool) {
	now := m.now()

	var next Upcoming
	found := false
	for _, alarm := range m.store.GetEnabledAlarms() {
		at := alarm.TriggerTime(now)
		if !found || at.Before(next.At) {
			next = Upcoming{Alarm: alarm, At: at}
			found = true
		}
	}
	return next, found
}
