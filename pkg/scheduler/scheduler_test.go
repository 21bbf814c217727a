package scheduler

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWaker struct {
	mu          sync.Mutex
	pending     map[int]time.Time
	exact       map[int]bool
	denyExact   bool
	registerErr error
	calls       int
}

func newFakeWaker() *fakeWaker {
	return &fakeWaker{pending: map[int]time.Time{}, exact: map[int]bool{}}
}

func (f *fakeWaker) Register(id int, at time.Time, exact bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.registerErr != nil {
		return f.registerErr
	}
	if exact && f.denyExact {
		return ErrExactDenied
	}
	f.pending[id] = at
	f.exact[id] = exact
	return nil
}

func (f *fakeWaker) Cancel(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	delete(f.exact, id)
}

func (f *fakeWaker) Pending(id int) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.pending[id]
	return at, ok
}

type fakeCapability bool

func (c fakeCapability) CanScheduleExact() bool { return bool(c) }
func (c fakeCapability) PermissionHint() string { return "grant it" }

type alarmList []models.Alarm

func (l alarmList) GetAllAlarms() []models.Alarm { return l }

func (l alarmList) GetEnabledAlarms() []models.Alarm {
	var out []models.Alarm
	for _, a := range l {
		if a.IsEnabled {
			out = append(out, a)
		}
	}
	return out
}

var morning = time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)

func fixedClock() time.Time { return morning }

func TestScheduleAlarm_RegistersNextTrigger(t *testing.T) {
	waker := newFakeWaker()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(nil, waker, fakeCapability(true), WithClock(fixedClock), WithMetrics(m))

	s.ScheduleAlarm(models.NewAlarm(1, 7, 30, ""))
	s.ScheduleAlarm(models.NewAlarm(2, 5, 0, ""))

	at, ok := s.NextTrigger(1)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 10, 7, 30, 0, 0, time.Local), at)

	at, ok = s.NextTrigger(2)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 5, 0, 0, 0, time.Local), at, "passed time rolls to tomorrow")

	assert.True(t, waker.exact[1])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("exact")))
}

func TestScheduleAlarm_DisabledIsIgnored(t *testing.T) {
	waker := newFakeWaker()
	s := New(nil, waker, nil, WithClock(fixedClock))

	alarm := models.NewAlarm(3, 7, 0, "")
	alarm.IsEnabled = false
	s.ScheduleAlarm(alarm)

	_, ok := s.NextTrigger(3)
	assert.False(t, ok)
	assert.Zero(t, waker.calls)
}

func TestScheduleAlarm_ReplacesExistingRegistration(t *testing.T) {
	waker := newFakeWaker()
	s := New(nil, waker, nil, WithClock(fixedClock))

	s.ScheduleAlarm(models.NewAlarm(1, 7, 0, ""))
	s.ScheduleAlarm(models.NewAlarm(1, 8, 0, ""))

	at, ok := s.NextTrigger(1)
	require.True(t, ok)
	assert.Equal(t, 8, at.Hour())
	assert.Len(t, waker.pending, 1)
}

func TestScheduleAlarm_FallsBackToInexactWhenDenied(t *testing.T) {
	waker := newFakeWaker()
	waker.denyExact = true
	m := metrics.New(prometheus.NewRegistry())
	s := New(nil, waker, fakeCapability(true), WithClock(fixedClock), WithMetrics(m))

	s.ScheduleAlarm(models.NewAlarm(1, 7, 0, ""))

	_, ok := s.NextTrigger(1)
	require.True(t, ok)
	assert.False(t, waker.exact[1])
	assert.Equal(t, 2, waker.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("inexact")))
}

func TestScheduleAlarm_InexactWithoutCapability(t *testing.T) {
	waker := newFakeWaker()
	s := New(nil, waker, fakeCapability(false), WithClock(fixedClock))

	s.ScheduleAlarm(models.NewAlarm(1, 7, 0, ""))

	assert.False(t, waker.exact[1])
	assert.Equal(t, 1, waker.calls)
	assert.Equal(t, "grant it", s.RequestExactPermission())
}

func TestScheduleAlarm_RegisterErrorIsSwallowed(t *testing.T) {
	waker := newFakeWaker()
	waker.registerErr = os.ErrClosed
	s := New(nil, waker, nil, WithClock(fixedClock))

	assert.NotPanics(t, func() { s.ScheduleAlarm(models.NewAlarm(1, 7, 0, "")) })
	_, ok := s.NextTrigger(1)
	assert.False(t, ok)
}

func TestCancelAlarm_UnknownIsNoop(t *testing.T) {
	s := New(nil, newFakeWaker(), nil)
	assert.NotPanics(t, func() { s.CancelAlarm(99) })
}

func TestRescheduleAndCancelAll(t *testing.T) {
	off := models.NewAlarm(2, 9, 0, "")
	off.IsEnabled = false
	alarms := alarmList{models.NewAlarm(1, 7, 0, ""), off, models.NewAlarm(3, 22, 0, "")}

	waker := newFakeWaker()
	s := New(alarms, waker, nil, WithClock(fixedClock))

	s.RescheduleAllAlarms()
	assert.Len(t, waker.pending, 2)
	_, ok := s.NextTrigger(2)
	assert.False(t, ok)

	// Rescheduling is idempotent
	s.RescheduleAllAlarms()
	assert.Len(t, waker.pending, 2)

	s.CancelAllAlarms()
	assert.Empty(t, waker.pending)
}

func TestRescheduleAllAlarms_KeepsInstantThatCameDueWhileSuspended(t *testing.T) {
	alarms := alarmList{models.NewAlarm(7, 7, 0, ""), models.NewAlarm(8, 9, 0, "")}
	waker := newFakeWaker()
	now := morning
	s := New(alarms, waker, fakeCapability(true), WithClock(func() time.Time { return now }))

	s.RescheduleAllAlarms()
	due := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	at, ok := s.NextTrigger(7)
	require.True(t, ok)
	require.Equal(t, due, at)

	// The RTC resumes the machine at 07:00, logind reports it a little later
	now = due.Add(5 * time.Second)
	s.RescheduleAllAlarms()

	at, ok = s.NextTrigger(7)
	require.True(t, ok)
	assert.Equal(t, due, at, "due wake-up fires now, not tomorrow")
	assert.True(t, waker.exact[7])

	at, ok = s.NextTrigger(8)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local), at)
}

func TestRescheduleAllAlarms_WithoutRegistrationUsesNextTrigger(t *testing.T) {
	waker := newFakeWaker()
	late := time.Date(2026, 3, 10, 7, 0, 5, 0, time.Local)
	s := New(alarmList{models.NewAlarm(7, 7, 0, "")}, waker, nil, WithClock(func() time.Time { return late }))

	s.RescheduleAllAlarms()

	at, ok := s.NextTrigger(7)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.Local), at)
}

func TestDeferAlarm_MovesPastTheInstantThatFired(t *testing.T) {
	due := time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)
	alarm := models.NewAlarm(7, 7, 0, "")
	require.Equal(t, due, alarm.TriggerTime(due), "the firing instant still resolves to itself")

	waker := newFakeWaker()
	s := New(nil, waker, nil, WithClock(func() time.Time { return due }))

	s.DeferAlarm(alarm)
	at, ok := s.NextTrigger(7)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.Local), at)

	off := models.NewAlarm(9, 7, 0, "")
	off.IsEnabled = false
	s.DeferAlarm(off)
	_, ok = s.NextTrigger(9)
	assert.False(t, ok)
}

func TestRequestExactPermission_EmptyWhenPermitted(t *testing.T) {
	s := New(nil, newFakeWaker(), nil)
	assert.True(t, s.CanScheduleExact())
	assert.Empty(t, s.RequestExactPermission())
}

func TestRTCWakeAlarm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakealarm")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rtc := NewRTCWakeAlarm(path)
	assert.True(t, rtc.CanScheduleExact())

	at := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	require.NoError(t, rtc.Arm(at))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(at.Unix(), 10), string(data))

	require.NoError(t, rtc.Disarm())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0", string(data))
}

func TestRTCWakeAlarm_MissingIsDenied(t *testing.T) {
	rtc := NewRTCWakeAlarm(filepath.Join(t.TempDir(), "missing", "wakealarm"))

	assert.False(t, rtc.CanScheduleExact())
	assert.ErrorIs(t, rtc.Arm(morning), ErrExactDenied)
	assert.Contains(t, rtc.PermissionHint(), "udev")
}
