package store

import "sync"

// KeyActiveAlarmID holds the id of the alarm that is currently ringing
const KeyActiveAlarmID = "active_alarm_id"

const noActiveAlarm = -1

// ActiveAlarmStore records which alarm, if any, is ringing. The value lives
// in preferences so it survives a restart of the app.
type ActiveAlarmStore struct {
	mu    sync.Mutex
	prefs Preferences
}

// NewActiveAlarmStore creates an ActiveAlarmStore backed by prefs
func NewActiveAlarmStore(prefs Preferences) *ActiveAlarmStore {
	return &ActiveAlarmStore{prefs: prefs}
}

// SetActive marks id as the ringing alarm
func (s *ActiveAlarmStore) SetActive(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.SetInt(KeyActiveAlarmID, id)
}

// ClearActive records that no alarm is ringing
func (s *ActiveAlarmStore) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.RemoveValue(KeyActiveAlarmID)
}

// Active returns the ringing alarm id
func (s *ActiveAlarmStore) Active() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.prefs.IntWithFallback(KeyActiveAlarmID, noActiveAlarm)
	if id == noActiveAlarm {
		return 0, false
	}
	return id, true
}

// IsActive reports whether any alarm is ringing
func (s *ActiveAlarmStore) IsActive() bool {
	_, ok := s.Active()
	return ok
}
