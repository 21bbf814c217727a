package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/events"
	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	alarms map[int]models.Alarm
	nextID int
}

func newFakeManager() *fakeManager {
	return &fakeManager{alarms: map[int]models.Alarm{}, nextID: 1}
}

func (m *fakeManager) List() []models.Alarm {
	var out []models.Alarm
	for id := 1; id < m.nextID; id++ {
		if a, ok := m.alarms[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (m *fakeManager) Create(req alarms.Request) (models.Alarm, error) {
	a := models.NewAlarm(0, req.Hour, req.Minute, req.Label)
	if req.HasEndTime {
		a = a.WithEndTime(req.EndHour, req.EndMinute)
	}
	if err := a.Validate(); err != nil {
		return models.Alarm{}, err
	}
	a.ID = m.nextID
	m.nextID++
	m.alarms[a.ID] = a
	return a, nil
}

func (m *fakeManager) Disarm(id int) bool {
	_, ok := m.alarms[id]
	delete(m.alarms, id)
	return ok
}

type fakeRinger struct {
	active  int
	stopped int
}

func (r *fakeRinger) Stop() {
	r.stopped++
	r.active = 0
}

func (r *fakeRinger) ActiveAlarm() (int, bool) { return r.active, r.active > 0 }

func TestAlarmService_AddListDelete(t *testing.T) {
	svc := NewAlarmService(newFakeManager(), &fakeRinger{}, nil)

	id, dErr := svc.Add(7, 0, "wake", true, 7, 30)
	require.Nil(t, dErr)
	assert.Equal(t, int32(1), id)

	payload, dErr := svc.List()
	require.Nil(t, dErr)
	var list []models.Alarm
	require.NoError(t, json.Unmarshal([]byte(payload), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "wake", list[0].Label)
	assert.True(t, list[0].HasEndTime)
	assert.Equal(t, 30, list[0].EndMinute)

	assert.Nil(t, svc.Delete(1))

	dErr = svc.Delete(1)
	require.NotNil(t, dErr)
	assert.Equal(t, ErrorNotFound, dErr.Name)
}

func TestAlarmService_AddInvalid(t *testing.T) {
	svc := NewAlarmService(newFakeManager(), &fakeRinger{}, nil)

	_, dErr := svc.Add(25, 0, "", false, 0, 0)
	require.NotNil(t, dErr)
	assert.Equal(t, ErrorInvalidAlarm, dErr.Name)
}

func TestAlarmService_StopAndActive(t *testing.T) {
	manager := newFakeManager()
	manager.alarms[7] = models.NewAlarm(7, 6, 0, "")
	manager.nextID = 8
	ringer := &fakeRinger{active: 7}
	svc := NewAlarmService(manager, ringer, nil)

	id, active, dErr := svc.Active()
	require.Nil(t, dErr)
	assert.True(t, active)
	assert.Equal(t, int32(7), id)

	assert.Nil(t, svc.Stop())
	assert.Equal(t, 1, ringer.stopped)
	assert.Empty(t, manager.List(), "stopped alarm is removed")

	_, active, _ = svc.Active()
	assert.False(t, active)

	assert.Nil(t, svc.Stop())
	assert.Equal(t, 2, ringer.stopped)
}

type emitted struct {
	path  dbus.ObjectPath
	name  string
	value interface{}
}

type fakeEmitter struct {
	mu   sync.Mutex
	sent []emitted
	err  error
}

func (f *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, emitted{path: path, name: name, value: values[0]})
	return nil
}

func (f *fakeEmitter) get() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.sent...)
}

func TestServer_RelaysAutoStopped(t *testing.T) {
	emitter := &fakeEmitter{}
	srv := &Server{emit: emitter, logger: logging.OrDefault(nil)}
	bus := events.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Relay(ctx, bus) }()
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	bus.AutoStopped(7)
	require.Eventually(t, func() bool { return len(emitter.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, emitted{path: ObjectPath, name: SignalAutoStopped, value: int32(7)}, emitter.get()[0])

	cancel()
	assert.NoError(t, <-done)
}

func TestServer_EmitFailureIsLogged(t *testing.T) {
	srv := &Server{emit: &fakeEmitter{err: errors.New("disconnected")}, logger: logging.OrDefault(nil)}
	assert.NotPanics(t, func() { srv.AutoStopped(3) })
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))

	err := mapError(dbus.Error{Name: ErrorNotFound, Body: []interface{}{"alarm 4 not found"}})
	assert.ErrorIs(t, err, alarms.ErrNotFound)
	assert.Contains(t, err.Error(), "alarm 4 not found")

	err = mapError(dbus.NewError(ErrorInvalidAlarm, []interface{}{"bad hour"}))
	assert.ErrorIs(t, err, models.ErrInvalidAlarm)

	err = mapError(dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"})
	assert.ErrorIs(t, err, ErrNotRunning)

	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, mapError(plain))
}
