package ical

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/logging"
)

// ImportWindow is how far ahead an event may start and still become an alarm
const ImportWindow = 24 * time.Hour

// maxFeedSize bounds how much of a remote feed is read
const maxFeedSize = 4 << 20

// Map of common Windows timezone names to IANA timezone names
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"Central Standard Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"Alaskan Standard Time":        "America/Anchorage",
	"Hawaiian Standard Time":       "Pacific/Honolulu",
	"GMT Standard Time":            "Europe/London",
	"Central Europe Standard Time": "Europe/Paris",
	"W. Europe Standard Time":      "Europe/Berlin",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"India Standard Time":          "Asia/Kolkata",
	"AUS Eastern Standard Time":    "Australia/Sydney",
}

// Skipped counts the events an import left out, by reason
type Skipped struct {
	MissingTime   int
	Cancelled     int
	AllDay        int
	OutsideWindow int
	Duplicates    int
}

// Total is the number of events left out
func (s Skipped) Total() int {
	return s.MissingTime + s.Cancelled + s.AllDay + s.OutsideWindow + s.Duplicates
}

// ImportResult holds the alarm requests read from a calendar
type ImportResult struct {
	Requests []alarms.Request
	Skipped  Skipped
}

// Importer turns calendar events starting within the next day into one-shot
// alarm requests. Recurring events contribute their next occurrence.
type Importer struct {
	Logger *slog.Logger
	Client *http.Client
	// Location is the zone alarm times are expressed in; nil means local
	Location *time.Location
}

func (im *Importer) logger() *slog.Logger {
	return logging.OrDefault(im.Logger).With("component", "ical-import")
}

func (im *Importer) location() *time.Location {
	if im.Location != nil {
		return im.Location
	}
	return time.Local
}

// Import decodes every calendar in r
func (im *Importer) Import(r io.Reader, now time.Time) (*ImportResult, error) {
	logger := im.logger()
	loc := im.location()
	now = now.In(loc)
	until := now.Add(ImportWindow)

	result := &ImportResult{}
	seenUIDs := make(map[string]bool)
	seenKeys := make(map[string]bool) // key: summary + start time

	decoder := goical.NewDecoder(r)
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}

		for _, event := range cal.Events() {
			normalizeTimezones(event.Component)

			start, req, ok := im.eventRequest(event, now, until, loc, &result.Skipped)
			if !ok {
				continue
			}

			uid, _ := event.Props.Text(goical.PropUID)
			key := req.Label + "|" + start.Format(time.RFC3339)
			if (uid != "" && seenUIDs[uid]) || seenKeys[key] {
				result.Skipped.Duplicates++
				logger.Debug("duplicate event", "summary", req.Label, "start", start)
				continue
			}
			if uid != "" {
				seenUIDs[uid] = true
			}
			seenKeys[key] = true

			logger.Debug("event included", "summary", req.Label, "start", start)
			result.Requests = append(result.Requests, req)
		}
	}

	logger.Info("calendar imported",
		"included", len(result.Requests),
		"skipped", result.Skipped.Total(),
		"cancelled", result.Skipped.Cancelled,
		"all_day", result.Skipped.AllDay,
		"outside_window", result.Skipped.OutsideWindow)
	return result, nil
}

func (im *Importer) eventRequest(event goical.Event, now, until time.Time, loc *time.Location, skipped *Skipped) (time.Time, alarms.Request, bool) {
	summary, _ := event.Props.Text(goical.PropSummary)
	summary = strings.TrimSpace(summary)

	startProp := event.Props.Get(goical.PropDateTimeStart)
	if startProp == nil {
		skipped.MissingTime++
		return time.Time{}, alarms.Request{}, false
	}
	if startProp.ValueType() == goical.ValueDate {
		skipped.AllDay++
		return time.Time{}, alarms.Request{}, false
	}
	if isCancelled(event, summary) {
		skipped.Cancelled++
		return time.Time{}, alarms.Request{}, false
	}

	start, err := event.DateTimeStart(loc)
	if err != nil || start.IsZero() {
		skipped.MissingTime++
		return time.Time{}, alarms.Request{}, false
	}
	var duration time.Duration
	if end, err := event.DateTimeEnd(loc); err == nil && end.After(start) {
		duration = end.Sub(start)
	}
	if duration >= 24*time.Hour {
		skipped.AllDay++
		return time.Time{}, alarms.Request{}, false
	}

	set, err := event.RecurrenceSet(loc)
	if err != nil {
		im.logger().Warn("ignoring unreadable recurrence rule", "summary", summary, "error", err)
	} else if set != nil {
		start = nextOccurrence(set, now)
	}

	if start.IsZero() || !start.After(now) || start.After(until) {
		skipped.OutsideWindow++
		return time.Time{}, alarms.Request{}, false
	}

	start = start.In(loc)
	req := alarms.Request{
		Hour:   start.Hour(),
		Minute: start.Minute(),
		Label:  summary,
	}
	if duration > 0 {
		end := start.Add(duration)
		if end.Hour() != start.Hour() || end.Minute() != start.Minute() {
			req.HasEndTime = true
			req.EndHour = end.Hour()
			req.EndMinute = end.Minute()
		}
	}
	return start, req, true
}

// nextOccurrence returns the first recurrence strictly after now, or the
// zero time when the rule has ended
func nextOccurrence(set *rrule.Set, now time.Time) time.Time {
	return set.After(now, false)
}

func isCancelled(event goical.Event, summary string) bool {
	if status := event.Props.Get(goical.PropStatus); status != nil && strings.EqualFold(status.Value, "CANCELLED") {
		return true
	}
	// Some servers only rename cancelled events
	clean := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.ToLower(summary))
	return strings.HasPrefix(clean, "canceled") || strings.HasPrefix(clean, "cancelled")
}

// normalizeTimezones rewrites Windows timezone names to IANA names
func normalizeTimezones(comp *goical.Component) {
	for _, name := range []string{
		goical.PropDateTimeStart,
		goical.PropDateTimeEnd,
		goical.PropExceptionDates,
		goical.PropRecurrenceDates,
	} {
		for i := range comp.Props[name] {
			prop := &comp.Props[name][i]
			if tzid := prop.Params.Get(goical.ParamTimezoneID); tzid != "" {
				if iana, ok := windowsToIANA[tzid]; ok {
					prop.Params.Set(goical.ParamTimezoneID, iana)
				}
			}
		}
	}
}

// Fetch downloads a calendar feed and checks that it is iCalendar data
func (im *Importer) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := im.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch calendar: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if err := validateFormat(string(body)); err != nil {
		return nil, err
	}
	return body, nil
}

func validateFormat(body string) error {
	trimmed := strings.TrimSpace(body)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data - check if URL requires authentication")
	}
	if !strings.HasPrefix(trimmed, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format - expected BEGIN:VCALENDAR, got: %s", preview)
	}
	return nil
}
