// Package ics reads show runs from an iCalendar subscription and writes
// projected cells back out as an all-day calendar.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "madcal/internal/log"
	"madcal/internal/model"
)

// ParseEvents turns every VEVENT of body into show runs: SUMMARY is the
// show name, UID the id, and DTSTART/DTEND the inclusive day range.
//
//   - All-day events have an exclusive DTEND, so the last day is DTEND-1.
//   - Timed events cover the days they touch in their own timezone; an
//     end at exactly midnight does not count the following day.
//   - RRULE/EXDATE are expanded and consecutive days merged into runs, so
//     one recurring VEVENT may yield several events.
func ParseEvents(body []byte) ([]model.SourceEvent, error) {
	return ParseEventsWith(body, ExpandOptions{})
}

// ParseEventsWith is ParseEvents with explicit recurrence bounds.
func ParseEventsWith(body []byte, opts ExpandOptions) ([]model.SourceEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]model.SourceEvent, 0)
	for _, ve := range cal.Events() {
		ev, a, perr := parseVEvent(ve)
		if perr != nil {
			// Skip this event, keep the others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}

		rule := ve.GetProperty(ical.ComponentPropertyRrule)
		if rule == nil || strings.TrimSpace(rule.Value) == "" {
			events = append(events, ev)
			continue
		}
		runs, xerr := expandRuns(ev, a, rule.Value, exceptionDays(ve), opts)
		if xerr != nil {
			appLog.Error("ics rrule expand failed, using DTSTART only", xerr, "uid", ev.ID, "rrule", rule.Value)
			events = append(events, ev)
			continue
		}
		events = append(events, runs...)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.SourceEvent, anchor, error) {
	var out model.SourceEvent
	var a anchor

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, a, errors.New("missing UID")
	}
	out.ID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Name = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		out.URL = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, a, errors.New("missing DTSTART")
	}

	if isAllDay(startProp) {
		start, err := dateValue(startProp.Value)
		if err != nil {
			return out, a, err
		}
		out.Start, out.End = start, start
		if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			if end, err := dateValue(endProp.Value); err == nil && end.After(start) {
				out.End = end.AddDays(-1)
			}
		}
		a = anchor{allDay: true, start: start.Time(), spanDays: daysBetween(out.Start, out.End)}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, a, err
		}
		a = anchor{start: start}
		if end, err := ve.GetEndAt(); err == nil && end.After(start) {
			a.duration = end.Sub(start)
		}
		out.Start, out.End = a.days(start)
	}
	return out, a, nil
}

// isAllDay reports VALUE=DATE or a value without a time part.
func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// dateValue reads a YYYYMMDD value as a calendar day, with no zone math.
func dateValue(v string) (model.Day, error) {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		v = v[:i]
	}
	t, err := time.Parse("20060102", v)
	if err != nil {
		return model.Day{}, err
	}
	return model.DayOf(t), nil
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
