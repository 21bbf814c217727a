package power

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepWatcher_Handle(t *testing.T) {
	resumes := 0
	w := NewSleepWatcher(func() { resumes++ }, nil)

	assert.False(t, w.handle(nil))
	assert.False(t, w.handle(&dbus.Signal{Name: prepareForSleep, Body: []interface{}{true}}))
	assert.False(t, w.handle(&dbus.Signal{Name: prepareForSleep}))
	assert.False(t, w.handle(&dbus.Signal{Name: prepareForSleep, Body: []interface{}{"no"}}))
	assert.False(t, w.handle(&dbus.Signal{Name: login1Manager + ".SessionNew", Body: []interface{}{false}}))
	assert.Zero(t, resumes)

	assert.True(t, w.handle(&dbus.Signal{Name: prepareForSleep, Body: []interface{}{false}}))
	assert.Equal(t, 1, resumes)
}

type call struct {
	method string
	args   []interface{}
}

type fakeObject struct {
	calls  []call
	cookie uint32
	err    error
}

func (f *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, call{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	return &dbus.Call{Body: []interface{}{f.cookie}}
}

func TestInhibitor_InhibitAndRelease(t *testing.T) {
	obj := &fakeObject{cookie: 42}
	inh := newInhibitor(obj, "ClockApp", nil)

	require.NoError(t, inh.Inhibit("Alarm ringing"))
	require.NoError(t, inh.Inhibit("Alarm ringing"))
	require.Len(t, obj.calls, 1)
	assert.Equal(t, screenSaverIface+".Inhibit", obj.calls[0].method)
	assert.Equal(t, []interface{}{"ClockApp", "Alarm ringing"}, obj.calls[0].args)

	require.NoError(t, inh.Release())
	require.NoError(t, inh.Release())
	require.Len(t, obj.calls, 2)
	assert.Equal(t, screenSaverIface+".UnInhibit", obj.calls[1].method)
	assert.Equal(t, []interface{}{uint32(42)}, obj.calls[1].args)
}

func TestInhibitor_Failure(t *testing.T) {
	obj := &fakeObject{err: errors.New("no screensaver")}
	inh := newInhibitor(obj, "ClockApp", nil)

	assert.Error(t, inh.Inhibit("Alarm ringing"))
	assert.NoError(t, inh.Release(), "nothing held")
}
