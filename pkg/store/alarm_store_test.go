package store

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*AlarmStore, Preferences) {
	t.Helper()
	prefs := test.NewTempApp(t).Preferences()
	return NewAlarmStore(prefs, nil), prefs
}

func TestAlarmStore_EmptyByDefault(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Empty(t, s.GetAllAlarms())
	assert.NotNil(t, s.GetAllAlarms())
	_, ok := s.GetAlarm(1)
	assert.False(t, ok)
}

func TestAlarmStore_SaveAndGet(t *testing.T) {
	s, _ := newTestStore(t)

	alarm := models.NewAlarm(7, 7, 0, "work").WithEndTime(7, 30)
	require.NoError(t, s.SaveAlarm(alarm))

	got, ok := s.GetAlarm(7)
	require.True(t, ok)
	assert.Equal(t, alarm, got)
}

func TestAlarmStore_SaveIsUpsert(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveAlarm(models.NewAlarm(1, 6, 0, "")))
	require.NoError(t, s.SaveAlarm(models.NewAlarm(2, 7, 0, "")))
	require.Len(t, s.GetAllAlarms(), 2)

	updated := models.NewAlarm(1, 6, 30, "later")
	require.NoError(t, s.SaveAlarm(updated))

	assert.Len(t, s.GetAllAlarms(), 2)
	got, ok := s.GetAlarm(1)
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestAlarmStore_DeleteMissingIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SaveAlarm(models.NewAlarm(1, 6, 0, "")))

	s.DeleteAlarm(42)

	assert.Equal(t, []models.Alarm{models.NewAlarm(1, 6, 0, "")}, s.GetAllAlarms())
}

func TestAlarmStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SaveAlarm(models.NewAlarm(1, 6, 0, "")))
	require.NoError(t, s.SaveAlarm(models.NewAlarm(2, 7, 0, "")))

	s.DeleteAlarm(1)

	_, ok := s.GetAlarm(1)
	assert.False(t, ok)
	assert.Len(t, s.GetAllAlarms(), 1)
}

func TestAlarmStore_EnabledFilter(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SaveAlarm(models.NewAlarm(1, 6, 0, "")))
	require.NoError(t, s.SaveAlarm(models.Alarm{ID: 2, HourOfDay: 7}))

	enabled := s.GetEnabledAlarms()
	require.Len(t, enabled, 1)
	assert.Equal(t, 1, enabled[0].ID)

	assert.True(t, s.SetAlarmEnabled(2, true))
	assert.Len(t, s.GetEnabledAlarms(), 2)
	assert.False(t, s.SetAlarmEnabled(99, true))
}

func TestAlarmStore_DeleteAllKeepsCounter(t *testing.T) {
	s, _ := newTestStore(t)
	first := s.NextAlarmID()
	require.NoError(t, s.SaveAlarm(models.NewAlarm(first, 6, 0, "")))

	s.DeleteAllAlarms()

	assert.Empty(t, s.GetAllAlarms())
	assert.Equal(t, first+1, s.NextAlarmID())
}

func TestAlarmStore_NextAlarmIDAcrossRestarts(t *testing.T) {
	s, prefs := newTestStore(t)

	seen := map[int]bool{}
	last := 0
	for i := 0; i < 20; i++ {
		// A fresh store over the same preferences simulates a restart
		if i%5 == 0 {
			s = NewAlarmStore(prefs, nil)
		}
		id := s.NextAlarmID()
		require.Greater(t, id, last)
		require.False(t, seen[id])
		seen[id] = true
		last = id
	}
	assert.Len(t, seen, 20)
}

func TestAlarmStore_NextAlarmIDStartsAtOne(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, 1, s.NextAlarmID())
	assert.Equal(t, 2, s.NextAlarmID())
}

func TestAlarmStore_IDsNotReusedAfterDelete(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.NextAlarmID()
	require.NoError(t, s.SaveAlarm(models.NewAlarm(id, 6, 0, "")))
	s.DeleteAlarm(id)
	assert.NotEqual(t, id, s.NextAlarmID())
}

func TestAlarmStore_CorruptPayloadFailsSoft(t *testing.T) {
	s, prefs := newTestStore(t)
	prefs.SetString(KeyAlarms, `[{"id":1,`)

	assert.Empty(t, s.GetAllAlarms())
	assert.Equal(t, `[{"id":1,`, s.CorruptBackup())

	// The store keeps working and the backup survives the next write
	require.NoError(t, s.SaveAlarm(models.NewAlarm(2, 8, 0, "")))
	assert.Len(t, s.GetAllAlarms(), 1)
	assert.Equal(t, `[{"id":1,`, s.CorruptBackup())
}

func TestAlarmStore_ReadsPersistedLayout(t *testing.T) {
	s, prefs := newTestStore(t)
	prefs.SetString(KeyAlarms, `[{"id":3,"hourOfDay":6,"minute":15},{"id":4,"hourOfDay":9,"minute":0,"isEnabled":false,"label":"x","hasEndTime":true,"endHourOfDay":9,"endMinute":5}]`)

	assert.Equal(t, []models.Alarm{
		{ID: 3, HourOfDay: 6, Minute: 15, IsEnabled: true},
		{ID: 4, HourOfDay: 9, Minute: 0, Label: "x", HasEndTime: true, EndHourOfDay: 9, EndMinute: 5},
	}, s.GetAllAlarms())
}

func TestAlarmStore_ConcurrentSaves(t *testing.T) {
	s, _ := newTestStore(t)

	done := make(chan struct{})
	for i := 1; i <= 10; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			_ = s.SaveAlarm(models.NewAlarm(id, id, 0, ""))
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Len(t, s.GetAllAlarms(), 10)
}
