// Package ical exports alarms as an iCalendar feed so the next occurrences
// can be shown in a calendar application, and imports upcoming calendar
// events back as alarms
package ical

import (
	"fmt"
	"io"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/altrise/clockapp/pkg/models"
)

// ProductID identifies the exporter in the PRODID property
const ProductID = "-//AltRise//ClockApp//EN"

// EventUID returns the stable UID of an alarm's event
func EventUID(id int) string {
	return fmt.Sprintf("alarm-%d@clockapp", id)
}

// Calendar builds a calendar with one event per enabled alarm at its next
// trigger instant. Each event carries an audio VALARM firing at its start.
func Calendar(alarms []models.Alarm, now time.Time) *goical.Calendar {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, ProductID)

	for _, alarm := range alarms {
		if !alarm.IsEnabled {
			continue
		}
		cal.Children = append(cal.Children, alarmEvent(alarm, now).Component)
	}
	return cal
}

// Export writes the calendar for alarms to w
func Export(w io.Writer, alarms []models.Alarm, now time.Time) error {
	if err := goical.NewEncoder(w).Encode(Calendar(alarms, now)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func alarmEvent(alarm models.Alarm, now time.Time) *goical.Event {
	event := goical.NewEvent()
	event.Props.SetText(goical.PropUID, EventUID(alarm.ID))
	event.Props.SetDateTime(goical.PropDateTimeStamp, now.UTC())

	summary := alarm.Label
	if summary == "" {
		summary = "Alarm"
	}
	event.Props.SetText(goical.PropSummary, summary)

	start := alarm.TriggerTime(now)
	event.Props.SetDateTime(goical.PropDateTimeStart, start.UTC())
	if end, ok := alarm.EndTime(now); ok {
		event.Props.SetDateTime(goical.PropDateTimeEnd, end.UTC())
		event.Props.SetText(goical.PropDescription, "Stops ringing automatically at "+alarm.Summary(true))
	}

	valarm := goical.NewComponent(goical.CompAlarm)
	valarm.Props.SetText(goical.PropAction, "AUDIO")
	trigger := goical.NewProp(goical.PropTrigger)
	trigger.SetValueType(goical.ValueDuration)
	trigger.Value = "PT0S"
	valarm.Props.Set(trigger)
	event.Children = append(event.Children, valarm)

	return event
}
