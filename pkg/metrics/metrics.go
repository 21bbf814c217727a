// Package metrics defines the Prometheus instruments of the alarm lifecycle.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests and in the CLI.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clockapp"

// Trigger outcomes
const (
	TriggerStarted  = "started"
	TriggerStale    = "stale"
	TriggerDisabled = "disabled"
	TriggerDeferred = "deferred"
	TriggerFailed   = "failed"
)

// Stop reasons
const (
	StopDismissed   = "dismissed"
	StopAutoStopped = "auto_stopped"
	StopShutdown    = "shutdown"
)

// Metrics holds the counters shared by the scheduler, receiver, ringing
// service and dismissal gate
type Metrics struct {
	Registrations  *prometheus.CounterVec // by mode: exact, inexact
	Triggers       *prometheus.CounterVec // by outcome
	Stops          *prometheus.CounterVec // by reason
	PuzzleAttempts *prometheus.CounterVec // by result: correct, incorrect
	Ringing        prometheus.Gauge
}

// New creates the instruments and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "registrations_total",
			Help:      "Wake-up registrations by delivery mode",
		}, []string{"mode"}),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "triggers_total",
			Help:      "Fired wake-ups by outcome",
		}, []string{"outcome"}),
		Stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ringing",
			Name:      "stops_total",
			Help:      "Ended ringing lifecycles by reason",
		}, []string{"reason"}),
		PuzzleAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "puzzle_attempts_total",
			Help:      "Dismissal puzzle answers by result",
		}, []string{"result"}),
		Ringing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ringing",
			Name:      "active",
			Help:      "1 while an alarm is ringing",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Registrations, m.Triggers, m.Stops, m.PuzzleAttempts, m.Ringing)
	}
	return m
}

// Registered counts a wake-up registration
func (m *Metrics) Registered(exact bool) {
	if m == nil {
		return
	}
	mode := "inexact"
	if exact {
		mode = "exact"
	}
	m.Registrations.WithLabelValues(mode).Inc()
}

// Triggered counts a fired wake-up with its outcome
func (m *Metrics) Triggered(outcome string) {
	if m == nil {
		return
	}
	m.Triggers.WithLabelValues(outcome).Inc()
}

// RingingStarted marks the start of a ringing lifecycle
func (m *Metrics) RingingStarted() {
	if m == nil {
		return
	}
	m.Ringing.Set(1)
}

// Stopped counts the end of a ringing lifecycle
func (m *Metrics) Stopped(reason string) {
	if m == nil {
		return
	}
	m.Ringing.Set(0)
	m.Stops.WithLabelValues(reason).Inc()
}

// PuzzleAnswered counts a dismissal puzzle answer
func (m *Metrics) PuzzleAnswered(correct bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.PuzzleAttempts.WithLabelValues(result).Inc()
}
