// Package receiver handles fired wake-ups and decides whether they start a
// ringing lifecycle
package receiver

import (
	"errors"
	"log/slog"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/altrise/clockapp/pkg/ringing"
)

// AlarmGetter looks up stored alarms
type AlarmGetter interface {
	GetAlarm(id int) (models.Alarm, bool)
}

// Starter starts a ringing lifecycle
type Starter interface {
	Start(id int) error
}

// Rescheduler moves an alarm to its next occurrence after the current one
type Rescheduler interface {
	DeferAlarm(alarm models.Alarm)
}

// Receiver validates fired wake-ups
type Receiver struct {
	alarms    AlarmGetter
	ringer    Starter
	scheduler Rescheduler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Receiver
func New(alarms AlarmGetter, ringer Starter, scheduler Rescheduler, m *metrics.Metrics, logger *slog.Logger) *Receiver {
	return &Receiver{
		alarms:    alarms,
		ringer:    ringer,
		scheduler: scheduler,
		metrics:   m,
		logger:    logging.OrDefault(logger).With("component", "receiver"),
	}
}

// OnTrigger handles a fired wake-up for id and reports whether the alarm
// started ringing. Stale wake-ups (deleted or disabled alarms) are dropped.
// A wake-up arriving while another alarm rings is deferred to the alarm's
// next occurrence.
func (r *Receiver) OnTrigger(id int) bool {
	if id <= 0 {
		r.logger.Debug("wake-up without a valid alarm id", "alarm_id", id)
		r.metrics.Triggered(metrics.TriggerStale)
		return false
	}

	alarm, ok := r.alarms.GetAlarm(id)
	if !ok {
		r.logger.Debug("wake-up for a deleted alarm", "alarm_id", id)
		r.metrics.Triggered(metrics.TriggerStale)
		return false
	}
	if !alarm.IsEnabled {
		r.logger.Debug("wake-up for a disabled alarm", "alarm_id", id)
		r.metrics.Triggered(metrics.TriggerDisabled)
		return false
	}

	err := r.ringer.Start(id)
	switch {
	case err == nil:
		r.metrics.Triggered(metrics.TriggerStarted)
		return true
	case errors.Is(err, ringing.ErrBusy):
		r.logger.Info("another alarm is ringing, deferring", "alarm_id", id, "error", err)
		r.scheduler.DeferAlarm(alarm)
		r.metrics.Triggered(metrics.TriggerDeferred)
		return false
	default:
		r.logger.Error("failed to start ringing", "alarm_id", id, "error", err)
		r.metrics.Triggered(metrics.TriggerFailed)
		return false
	}
}
