package ical

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/models"
)

func calendarText(events ...string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Test//Test//EN"}
	for _, e := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, strings.Split(e, "\n")...)
		lines = append(lines, "DTSTAMP:20260301T000000Z", "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func TestImport_FiltersAndConverts(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	text := calendarText(
		"UID:flight\nSUMMARY:Flight\nDTSTART:20260310T120000Z\nDTEND:20260310T123000Z",
		"UID:flight\nSUMMARY:Flight\nDTSTART:20260310T120000Z\nDTEND:20260310T123000Z",
		"UID:gone\nSUMMARY:Dentist\nSTATUS:CANCELLED\nDTSTART:20260310T140000Z",
		"UID:renamed\nSUMMARY:Cancelled: Standup\nDTSTART:20260310T150000Z",
		"UID:holiday\nSUMMARY:Holiday\nDTSTART;VALUE=DATE:20260311",
		"UID:later\nSUMMARY:Later\nDTSTART:20260312T090000Z",
		"UID:past\nSUMMARY:Past\nDTSTART:20260310T070000Z",
		"UID:run\nSUMMARY:Run\nDTSTART:20260301T063000Z\nRRULE:FREQ=DAILY",
		"UID:call\nSUMMARY:Call\nDTSTART;TZID=Eastern Standard Time:20260310T090000",
		"UID:notime\nSUMMARY:No time",
	)

	im := &Importer{Location: time.UTC}
	result, err := im.Import(strings.NewReader(text), now)
	require.NoError(t, err)

	assert.Equal(t, []alarms.Request{
		{Hour: 12, Minute: 0, Label: "Flight", HasEndTime: true, EndHour: 12, EndMinute: 30},
		{Hour: 6, Minute: 30, Label: "Run"},
		{Hour: 13, Minute: 0, Label: "Call"},
	}, result.Requests)

	assert.Equal(t, Skipped{
		MissingTime:   1,
		Cancelled:     2,
		AllDay:        1,
		OutsideWindow: 2,
		Duplicates:    1,
	}, result.Skipped)
	assert.Equal(t, 7, result.Skipped.Total())
}

func TestImport_ExportRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	list := []models.Alarm{
		models.NewAlarm(1, 7, 0, "gym"),
		models.NewAlarm(2, 22, 15, "").WithEndTime(22, 45),
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, list, now))

	result, err := (&Importer{}).Import(&buf, now)
	require.NoError(t, err)
	assert.Equal(t, []alarms.Request{
		{Hour: 7, Minute: 0, Label: "gym"},
		{Hour: 22, Minute: 15, Label: "Alarm", HasEndTime: true, EndHour: 22, EndMinute: 45},
	}, result.Requests)
}

func TestImport_RejectsGarbage(t *testing.T) {
	_, err := (&Importer{}).Import(strings.NewReader("BEGIN:VCALENDAR\r\nnot a property\r\n"), time.Now())
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	feed := calendarText("UID:a\nSUMMARY:A\nDTSTART:20260310T120000Z")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.ics":
			w.Header().Set("Content-Type", "text/calendar")
			_, _ = w.Write([]byte(feed))
		case "/login":
			_, _ = w.Write([]byte("<!DOCTYPE html><html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	im := &Importer{Client: srv.Client()}

	body, err := im.Fetch(context.Background(), srv.URL+"/feed.ics")
	require.NoError(t, err)
	assert.Equal(t, feed, string(body))

	_, err = im.Fetch(context.Background(), srv.URL+"/login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTML")

	_, err = im.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
