// Package ringing owns the lifecycle of a ringing alarm: the foreground
// presence, looping sound, vibration pattern, the optional auto-stop deadline
// and the cleanup that ends it.
//
// At most one alarm rings at a time. The service moves Idle -> Ringing on
// Start, back to Idle on a manual stop, and through Stopping (a short grace
// window that lets the auto-stop broadcast land) when the deadline passes.
package ringing

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrAlarmNotFound is returned when starting an id the store does not hold
	ErrAlarmNotFound = errors.New("alarm not found")
	// ErrBusy is returned when a different alarm is already ringing
	ErrBusy = errors.New("another alarm is ringing")
)

// SoundFailureNotice is shown when the alarm sound cannot be played
const SoundFailureNotice = "Could not play alarm sound"

// DefaultGrace is the delay between an auto-stop and leaving the foreground
const DefaultGrace = 500 * time.Millisecond

// State of the service
type State int

const (
	Idle State = iota
	Ringing
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ringing:
		return "ringing"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// AlarmStore is the part of the alarm store the service uses
type AlarmStore interface {
	GetAlarm(id int) (models.Alarm, bool)
	DeleteAlarm(id int)
}

// ActiveFlag is the process-wide "an alarm is ringing" marker
type ActiveFlag interface {
	SetActive(id int)
	ClearActive()
	Active() (int, bool)
}

// Canceller removes an alarm's wake-up registration
type Canceller interface {
	CancelAlarm(id int)
}

// Sound is the looping alarm audio
type Sound interface {
	Start() error
	Stop()
}

// Vibrator plays a repeating on/off pattern
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
	Stop()
}

// Presenter is the user-facing side: the foreground presence (tray state,
// notification, screensaver inhibit), the dismissal screen and short notices.
// Implementations must not call back into the service synchronously.
type Presenter interface {
	EnterForeground(alarm models.Alarm) error
	ExitForeground()
	LaunchGate(id int) error
	Notice(msg string)
}

// Broadcaster announces that an alarm was auto-stopped
type Broadcaster interface {
	AutoStopped(id int)
}

// Timer is a pending AfterFunc
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the deadline and grace timers
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// Deps are the collaborators of a Service. Sound, Vibrator and Broadcaster
// may be nil.
type Deps struct {
	Store       AlarmStore
	Flag        ActiveFlag
	Scheduler   Canceller
	Sound       Sound
	Vibrator    Vibrator
	Presenter   Presenter
	Broadcaster Broadcaster
	Clock       Clock
	Grace       time.Duration
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Service is the ringing lifecycle
type Service struct {
	mu    sync.Mutex
	deps  Deps
	state State

	alarmID   int
	lifecycle string
	deadline  Timer
	grace     Timer

	logger *slog.Logger
}

// NewService creates an idle Service
func NewService(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Grace <= 0 {
		deps.Grace = DefaultGrace
	}
	return &Service{
		deps:   deps,
		logger: logging.OrDefault(deps.Logger).With("component", "ringing"),
	}
}

// Start begins ringing alarm id. Starting the alarm that is already ringing
// is a no-op.
func (s *Service) Start(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Ringing:
		if id == s.alarmID {
			s.logger.Debug("alarm already ringing", "alarm_id", id, "lifecycle", s.lifecycle)
			return nil
		}
		return fmt.Errorf("%w: alarm %d", ErrBusy, s.alarmID)
	case Stopping:
		return fmt.Errorf("%w: alarm %d is stopping", ErrBusy, s.alarmID)
	}

	alarm, ok := s.deps.Store.GetAlarm(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrAlarmNotFound, id)
	}

	lifecycle := uuid.NewString()
	s.state = Ringing
	s.alarmID = id
	s.lifecycle = lifecycle
	log := s.logger.With("alarm_id", id, "lifecycle", lifecycle)
	log.Info("alarm ringing", "label", alarm.Label)

	s.deps.Flag.SetActive(id)

	if err := s.deps.Presenter.EnterForeground(alarm); err != nil {
		log.Warn("failed to enter foreground", "error", err)
	}

	if err := s.startSound(); err != nil {
		log.Error("failed to start alarm sound", "error", err)
		s.deps.Presenter.Notice(SoundFailureNotice)
	}

	if err := s.startVibration(); err != nil {
		log.Warn("failed to start vibration", "error", err)
	}

	now := s.deps.Clock.Now()
	if end, ok := alarm.EndTime(now); ok {
		d := end.Sub(now)
		s.deadline = s.deps.Clock.AfterFunc(d, func() { s.autoStop(lifecycle) })
		log.Info("auto-stop armed", "end", end.Format(time.RFC3339), "in", d.String())
	}

	s.deps.Metrics.RingingStarted()

	if err := s.deps.Presenter.LaunchGate(id); err != nil {
		log.Error("failed to launch dismissal screen", "error", err)
	}
	return nil
}

// Stop ends the ringing alarm as a manual dismiss. It is a no-op unless an
// alarm is ringing, so a stop racing an auto-stop runs cleanup once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ringing {
		s.logger.Debug("stop ignored", "state", s.state.String())
		return
	}
	s.dismissLocked()
}

// Dismiss stops alarm id if it is the one ringing
func (s *Service) Dismiss(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ringing || s.alarmID != id {
		s.logger.Debug("dismiss ignored", "alarm_id", id, "state", s.state.String())
		return
	}
	s.dismissLocked()
}

func (s *Service) dismissLocked() {
	id := s.alarmID
	s.silenceLocked()
	s.finishLocked(id)
	s.deps.Presenter.ExitForeground()
	s.deps.Metrics.Stopped(metrics.StopDismissed)
	s.logger.Info("alarm dismissed", "alarm_id", id, "lifecycle", s.lifecycle)
	s.resetLocked()
}

// autoStop runs on the deadline timer
func (s *Service) autoStop(lifecycle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ringing || s.lifecycle != lifecycle {
		return
	}

	id := s.alarmID
	s.deadline = nil
	s.silenceLocked()
	s.finishLocked(id)
	s.state = Stopping

	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.AutoStopped(id)
	}
	s.deps.Metrics.Stopped(metrics.StopAutoStopped)
	s.logger.Info("alarm auto-stopped", "alarm_id", id, "lifecycle", lifecycle)

	s.grace = s.deps.Clock.AfterFunc(s.deps.Grace, func() { s.endGrace(lifecycle) })
}

func (s *Service) endGrace(lifecycle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Stopping || s.lifecycle != lifecycle {
		return
	}
	s.grace = nil
	s.deps.Presenter.ExitForeground()
	s.resetLocked()
}

// Shutdown tears everything down on process exit regardless of state. The
// alarm record is kept so it is rescheduled on the next start.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Ringing:
		s.silenceLocked()
		s.deps.Presenter.ExitForeground()
		s.deps.Metrics.Stopped(metrics.StopShutdown)
		s.logger.Info("ringing interrupted by shutdown", "alarm_id", s.alarmID, "lifecycle", s.lifecycle)
	case Stopping:
		if s.grace != nil {
			s.grace.Stop()
		}
		s.deps.Presenter.ExitForeground()
	}
	s.deps.Flag.ClearActive()
	s.resetLocked()
}

// Recover clears an active flag left behind by a process that died while
// ringing. It reports whether a stale flag was found.
func (s *Service) Recover() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return false
	}
	id, ok := s.deps.Flag.Active()
	if !ok {
		return false
	}
	s.logger.Warn("clearing stale active alarm flag", "alarm_id", id)
	s.deps.Flag.ClearActive()
	return true
}

// State returns the current state
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveAlarm returns the id of the alarm ringing or stopping
func (s *Service) ActiveAlarm() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return 0, false
	}
	return s.alarmID, true
}

func (s *Service) startSound() error {
	if s.deps.Sound == nil {
		return errors.New("no sound output")
	}
	return s.deps.Sound.Start()
}

func (s *Service) startVibration() error {
	if s.deps.Vibrator == nil {
		return errors.New("no vibrator")
	}
	return s.deps.Vibrator.Vibrate(VibrationPattern)
}

// silenceLocked cancels the deadline and stops sound and vibration
func (s *Service) silenceLocked() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
	if s.deps.Sound != nil {
		s.deps.Sound.Stop()
	}
	if s.deps.Vibrator != nil {
		s.deps.Vibrator.Stop()
	}
}

// finishLocked removes the one-time alarm and clears the active flag
func (s *Service) finishLocked(id int) {
	s.deps.Store.DeleteAlarm(id)
	s.deps.Scheduler.CancelAlarm(id)
	s.deps.Flag.ClearActive()
}

func (s *Service) resetLocked() {
	s.state = Idle
	s.alarmID = 0
	s.lifecycle = ""
	s.deadline = nil
	s.grace = nil
}
