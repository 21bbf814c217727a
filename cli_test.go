package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/ipc"
	"github.com/altrise/clockapp/pkg/models"
)

type fakeRemote struct {
	alarms  []models.Alarm
	added   []alarms.Request
	deleted []int
	stopped bool
	active  int
	closed  bool
}

func (r *fakeRemote) List() ([]models.Alarm, error) { return r.alarms, nil }

func (r *fakeRemote) Add(req alarms.Request) (int, error) {
	r.added = append(r.added, req)
	return 42, nil
}

func (r *fakeRemote) Delete(id int) error {
	for _, a := range r.alarms {
		if a.ID == id {
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return alarms.ErrNotFound
}

func (r *fakeRemote) Stop() error {
	r.stopped = true
	return nil
}

func (r *fakeRemote) Active() (int, bool, error) { return r.active, r.active > 0, nil }

func (r *fakeRemote) Close() error {
	r.closed = true
	return nil
}

func runCLI(t *testing.T, r remote, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(func() (remote, error) { return r, nil }, func(*globalFlags) error {
		t.Fatal("tray app should not run for a subcommand")
		return nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Add(t *testing.T) {
	r := &fakeRemote{}
	out, err := runCLI(t, r, "add", "06:45", "--label", "run", "--end", "07:15")
	require.NoError(t, err)

	require.Len(t, r.added, 1)
	assert.Equal(t, alarms.Request{Hour: 6, Minute: 45, Label: "run", HasEndTime: true, EndHour: 7, EndMinute: 15}, r.added[0])
	assert.Contains(t, out, "Alarm 42 set for 06:45")
	assert.True(t, r.closed)
}

func TestCLI_AddRejectsBadTime(t *testing.T) {
	r := &fakeRemote{}
	_, err := runCLI(t, r, "add", "25:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidAlarm))
	assert.Empty(t, r.added)
}

func TestCLI_ListAndStatus(t *testing.T) {
	r := &fakeRemote{
		alarms: []models.Alarm{
			models.NewAlarm(1, 7, 0, "gym"),
			models.NewAlarm(2, 22, 30, "").WithEndTime(23, 0),
		},
		active: 2,
	}

	out, err := runCLI(t, r, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "07:00")
	assert.Contains(t, lines[1], "gym")
	assert.Contains(t, lines[2], "23:00")

	out, err = runCLI(t, r, "status")
	require.NoError(t, err)
	assert.Equal(t, "Alarm 2 is ringing\n", out)
}

func TestCLI_DeleteAndStop(t *testing.T) {
	r := &fakeRemote{alarms: []models.Alarm{models.NewAlarm(3, 8, 0, "")}}

	_, err := runCLI(t, r, "delete", "3")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, r.deleted)

	_, err = runCLI(t, r, "delete", "9")
	assert.ErrorIs(t, err, alarms.ErrNotFound)

	_, err = runCLI(t, r, "delete", "x")
	assert.Error(t, err)

	_, err = runCLI(t, r, "stop")
	require.NoError(t, err)
	assert.True(t, r.stopped)
}

func TestCLI_ExportToFile(t *testing.T) {
	r := &fakeRemote{alarms: []models.Alarm{models.NewAlarm(5, 9, 15, "standup")}}
	path := filepath.Join(t.TempDir(), "alarms.ics")

	_, err := runCLI(t, r, "export", "--out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
	assert.Contains(t, string(data), "alarm-5@clockapp")
}

func TestCLI_ImportFile(t *testing.T) {
	start := time.Now().Add(2 * time.Hour).Truncate(time.Minute)
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//Test//EN",
		"BEGIN:VEVENT",
		"UID:train@example.com",
		"DTSTAMP:20260101T000000Z",
		"SUMMARY:Train",
		"DTSTART:" + start.UTC().Format("20060102T150405Z"),
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:party@example.com",
		"DTSTAMP:20260101T000000Z",
		"SUMMARY:Party",
		"STATUS:CANCELLED",
		"DTSTART:" + start.UTC().Format("20060102T150405Z"),
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n") + "\r\n"
	path := filepath.Join(t.TempDir(), "events.ics")
	require.NoError(t, os.WriteFile(path, []byte(ics), 0o644))

	r := &fakeRemote{}
	out, err := runCLI(t, r, "import", "--dry-run", path)
	require.NoError(t, err)
	assert.Empty(t, r.added)
	assert.Contains(t, out, "Would set")

	out, err = runCLI(t, r, "import", path)
	require.NoError(t, err)
	local := start.Local()
	assert.Equal(t, []alarms.Request{{Hour: local.Hour(), Minute: local.Minute(), Label: "Train"}}, r.added)
	assert.Contains(t, out, "1 events imported, 1 skipped")

	_, err = runCLI(t, r, "import", filepath.Join(t.TempDir(), "missing.ics"))
	assert.Error(t, err)
}

func TestCLI_InvalidLogLevel(t *testing.T) {
	_, err := runCLI(t, &fakeRemote{}, "--log-level", "loud", "status")
	assert.Error(t, err)
}

func TestCLI_DialFailure(t *testing.T) {
	cmd := newRootCmdWith(func() (remote, error) { return nil, ipc.ErrNotRunning }, nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status"})
	assert.ErrorIs(t, cmd.Execute(), ipc.ErrNotRunning)
}

func TestParseAlarmRequest(t *testing.T) {
	req, err := parseAlarmRequest(" 7:05 ", "  wake  ", false, "garbage")
	require.NoError(t, err)
	assert.Equal(t, alarms.Request{Hour: 7, Minute: 5, Label: "wake"}, req)

	_, err = parseAlarmRequest("07:00", "", true, "")
	assert.ErrorIs(t, err, models.ErrInvalidAlarm)
}
