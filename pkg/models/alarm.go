package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAlarm is returned by Validate for out-of-range fields
var ErrInvalidAlarm = errors.New("invalid alarm")

// Alarm represents a single one-shot alarm
type Alarm struct {
	ID           int    // Store-allocated identifier, never reused
	HourOfDay    int    // 0-23
	Minute       int    // 0-59
	IsEnabled    bool   // Whether the alarm should be scheduled
	Label        string // Optional label
	HasEndTime   bool   // Whether the alarm stops itself at EndHourOfDay:EndMinute
	EndHourOfDay int    // 0-23, only meaningful when HasEndTime
	EndMinute    int    // 0-59, only meaningful when HasEndTime
}

// alarmJSON is the persisted layout. End fields are pointers so they are
// omitted entirely when the alarm has no end time.
type alarmJSON struct {
	ID           int     `json:"id"`
	HourOfDay    int     `json:"hourOfDay"`
	Minute       int     `json:"minute"`
	IsEnabled    *bool   `json:"isEnabled,omitempty"`
	Label        *string `json:"label,omitempty"`
	HasEndTime   *bool   `json:"hasEndTime,omitempty"`
	EndHourOfDay *int    `json:"endHourOfDay,omitempty"`
	EndMinute    *int    `json:"endMinute,omitempty"`
}

// NewAlarm creates an enabled alarm without an end time
func NewAlarm(id, hourOfDay, minute int, label string) Alarm {
	return Alarm{
		ID:        id,
		HourOfDay: hourOfDay,
		Minute:    minute,
		IsEnabled: true,
		Label:     label,
	}
}

// WithEndTime returns a copy of the alarm that auto-stops at endHour:endMinute
func (a Alarm) WithEndTime(endHour, endMinute int) Alarm {
	a.HasEndTime = true
	a.EndHourOfDay = endHour
	a.EndMinute = endMinute
	return a
}

// WithoutEndTime returns a copy of the alarm with the end time cleared
func (a Alarm) WithoutEndTime() Alarm {
	a.HasEndTime = false
	a.EndHourOfDay = 0
	a.EndMinute = 0
	return a
}

// Validate checks that all time fields are in range
func (a Alarm) Validate() error {
	if a.HourOfDay < 0 || a.HourOfDay > 23 {
		return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidAlarm, a.HourOfDay)
	}
	if a.Minute < 0 || a.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidAlarm, a.Minute)
	}
	if !a.HasEndTime {
		return nil
	}
	if a.EndHourOfDay < 0 || a.EndHourOfDay > 23 {
		return fmt.Errorf("%w: end hour %d out of range 0-23", ErrInvalidAlarm, a.EndHourOfDay)
	}
	if a.EndMinute < 0 || a.EndMinute > 59 {
		return fmt.Errorf("%w: end minute %d out of range 0-59", ErrInvalidAlarm, a.EndMinute)
	}
	return nil
}

// atTimeOfDay returns hour:minute:00.000 on now's calendar date in now's location
func atTimeOfDay(now time.Time, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
}

// TriggerTime returns the next occurrence of HourOfDay:Minute at or after now.
// If the time of day has already passed today it resolves to tomorrow.
func (a Alarm) TriggerTime(now time.Time) time.Time {
	trigger := atTimeOfDay(now, a.HourOfDay, a.Minute)
	if trigger.Before(now) {
		trigger = trigger.AddDate(0, 0, 1)
	}
	return trigger
}

// EndTime returns the auto-stop deadline for a ringing alarm, relative to now.
// The second return value is false when the alarm has no end time.
func (a Alarm) EndTime(now time.Time) (time.Time, bool) {
	if !a.HasEndTime {
		return time.Time{}, false
	}

	end := atTimeOfDay(now, a.EndHourOfDay, a.EndMinute)
	start := atTimeOfDay(now, a.HourOfDay, a.Minute)

	// End must lag start by time of day; equal times never give a zero window
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	// Still behind the current moment: the alarm started yesterday
	if !end.After(now) {
		end = end.AddDate(0, 0, 1)
	}

	return end, true
}

// TimeOfDay formats the alarm time for display
func (a Alarm) TimeOfDay(use24Hour bool) string {
	return FormatTimeOfDay(a.HourOfDay, a.Minute, use24Hour)
}

// Summary returns a one-line description used by the tray and the CLI
func (a Alarm) Summary(use24Hour bool) string {
	s := a.TimeOfDay(use24Hour)
	if a.HasEndTime {
		s += " - " + FormatTimeOfDay(a.EndHourOfDay, a.EndMinute, use24Hour)
	}
	if a.Label != "" {
		s += " " + a.Label
	}
	if !a.IsEnabled {
		s += " (off)"
	}
	return s
}

// FormatTimeOfDay formats an hour and minute as 07:05 or 7:05 AM
func FormatTimeOfDay(hour, minute int, use24Hour bool) string {
	t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
	if use24Hour {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}

// ParseTimeOfDay parses "HH:MM" in 24-hour format
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidAlarm, s)
	}
	return t.Hour(), t.Minute(), nil
}

// MarshalJSON writes the persisted layout; end fields only when HasEndTime
func (a Alarm) MarshalJSON() ([]byte, error) {
	enabled := a.IsEnabled
	label := a.Label
	hasEnd := a.HasEndTime
	out := alarmJSON{
		ID:         a.ID,
		HourOfDay:  a.HourOfDay,
		Minute:     a.Minute,
		IsEnabled:  &enabled,
		Label:      &label,
		HasEndTime: &hasEnd,
	}
	if a.HasEndTime {
		endHour := a.EndHourOfDay
		endMinute := a.EndMinute
		out.EndHourOfDay = &endHour
		out.EndMinute = &endMinute
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the persisted layout, applying defaults for absent keys
func (a *Alarm) UnmarshalJSON(data []byte) error {
	var in alarmJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*a = Alarm{
		ID:        in.ID,
		HourOfDay: in.HourOfDay,
		Minute:    in.Minute,
		IsEnabled: true,
	}
	if in.IsEnabled != nil {
		a.IsEnabled = *in.IsEnabled
	}
	if in.Label != nil {
		a.Label = *in.Label
	}
	if in.HasEndTime != nil {
		a.HasEndTime = *in.HasEndTime
	}

	// An end time is only kept when both halves are present
	if a.HasEndTime {
		if in.EndHourOfDay == nil || in.EndMinute == nil {
			a.HasEndTime = false
		} else {
			a.EndHourOfDay = *in.EndHourOfDay
			a.EndMinute = *in.EndMinute
		}
	}

	return nil
}
