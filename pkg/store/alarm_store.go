package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/models"
)

// Preference keys used by the alarm store
const (
	KeyAlarms        = "alarms"
	KeyNextAlarmID   = "next_alarm_id"
	KeyCorruptBackup = "alarms_corrupt_backup"
)

// Preferences is the subset of fyne.Preferences the stores rely on
type Preferences interface {
	String(key string) string
	SetString(key string, value string)
	IntWithFallback(key string, fallback int) int
	SetInt(key string, value int)
	RemoveValue(key string)
}

// AlarmStore persists alarms as a JSON array under a single preference key
type AlarmStore struct {
	mu     sync.Mutex
	prefs  Preferences
	logger *slog.Logger
}

// NewAlarmStore creates an AlarmStore backed by prefs
func NewAlarmStore(prefs Preferences, logger *slog.Logger) *AlarmStore {
	return &AlarmStore{
		prefs:  prefs,
		logger: logging.OrDefault(logger).With("component", "alarm_store"),
	}
}

// GetAllAlarms returns every stored alarm in serialization order.
// A corrupt payload is backed up and treated as an empty collection.
func (s *AlarmStore) GetAllAlarms() []models.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// GetEnabledAlarms returns the alarms with IsEnabled set
func (s *AlarmStore) GetEnabledAlarms() []models.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := []models.Alarm{}
	for _, alarm := range s.load() {
		if alarm.IsEnabled {
			enabled = append(enabled, alarm)
		}
	}
	return enabled
}

// GetAlarm returns the alarm with the given id
func (s *AlarmStore) GetAlarm(id int) (models.Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alarm := range s.load() {
		if alarm.ID == id {
			return alarm, true
		}
	}
	return models.Alarm{}, false
}

// SaveAlarm inserts the alarm or replaces the one with the same id
func (s *AlarmStore) SaveAlarm(alarm models.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alarms := removeID(s.load(), alarm.ID)
	alarms = append(alarms, alarm)
	return s.save(alarms)
}

// DeleteAlarm removes the alarm with the given id; unknown ids are ignored
func (s *AlarmStore) DeleteAlarm(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alarms := s.load()
	remaining := removeID(alarms, id)
	if len(remaining) == len(alarms) {
		return
	}
	if err := s.save(remaining); err != nil {
		s.logger.Error("failed to delete alarm", "alarm_id", id, "error", err)
	}
}

// DeleteAllAlarms removes every stored alarm. The id counter is kept.
func (s *AlarmStore) DeleteAllAlarms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.RemoveValue(KeyAlarms)
}

// SetAlarmEnabled replaces the enabled flag of a stored alarm.
// It reports whether the alarm exists.
func (s *AlarmStore) SetAlarmEnabled(id int, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alarms := s.load()
	for i := range alarms {
		if alarms[i].ID != id {
			continue
		}
		alarms[i].IsEnabled = enabled
		if err := s.save(alarms); err != nil {
			s.logger.Error("failed to update alarm", "alarm_id", id, "error", err)
			return false
		}
		return true
	}
	return false
}

// NextAlarmID returns a fresh id and persists the incremented counter
func (s *AlarmStore) NextAlarmID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.prefs.IntWithFallback(KeyNextAlarmID, 1)
	s.prefs.SetInt(KeyNextAlarmID, id+1)
	return id
}

// CorruptBackup returns the last payload that failed to decode, if any
func (s *AlarmStore) CorruptBackup() string {
	return s.prefs.String(KeyCorruptBackup)
}

// load must be called with s.mu held
func (s *AlarmStore) load() []models.Alarm {
	raw := s.prefs.String(KeyAlarms)
	if raw == "" {
		return []models.Alarm{}
	}

	var alarms []models.Alarm
	if err := json.Unmarshal([]byte(raw), &alarms); err != nil {
		s.logger.Error("stored alarms are corrupt, starting empty", "error", err, "backup_key", KeyCorruptBackup)
		s.prefs.SetString(KeyCorruptBackup, raw)
		return []models.Alarm{}
	}
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	return alarms
}

// save must be called with s.mu held
func (s *AlarmStore) save(alarms []models.Alarm) error {
	data, err := json.Marshal(alarms)
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}
	s.prefs.SetString(KeyAlarms, string(data))
	return nil
}

func removeID(alarms []models.Alarm, id int) []models.Alarm {
	out := make([]models.Alarm, 0, len(alarms))
	for _, alarm := range alarms {
		if alarm.ID != id {
			out = append(out, alarm)
		}
	}
	return out
}
