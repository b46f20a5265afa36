package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "madcal/internal/log"
	"madcal/internal/model"
)

const (
	defaultMaxOccurrences = 5000
	defaultHorizonDays    = 2 * 366
)

// ExpandOptions bounds recurrence expansion.
type ExpandOptions struct {
	// Horizon is the last day (inclusive) an open-ended RRULE is expanded
	// to. If zero, defaultHorizonDays after the event's start is used.
	Horizon model.Day

	// MaxOccurrences caps a single rule. If zero, defaultMaxOccurrences is
	// used.
	MaxOccurrences int
}

// anchor is the first occurrence of a VEVENT, which RRULE repeats.
type anchor struct {
	allDay bool
	start  time.Time

	// spanDays is the number of extra days an all-day occurrence covers.
	spanDays int
	// duration is DTEND-DTSTART of a timed occurrence.
	duration time.Duration
}

// days returns the first and last calendar day of the occurrence at occ.
func (a anchor) days(occ time.Time) (model.Day, model.Day) {
	if a.allDay {
		first := model.NewDay(occ.Year(), occ.Month(), occ.Day())
		return first, first.AddDays(a.spanDays)
	}
	first := model.DayOf(occ)
	if a.duration <= 0 {
		return first, first
	}
	end := occ.Add(a.duration)
	last := model.DayOf(end)
	if isMidnight(end) && last.After(first) {
		last = last.AddDays(-1)
	}
	return first, last
}

// expandRuns expands raw (an RRULE value) from a, drops EXDATE days and
// merges overlapping or adjacent occurrences into runs. The first run keeps
// the event id; later ones get "#2", "#3", ...
func expandRuns(base model.SourceEvent, a anchor, raw string, exDays model.DaySet, opts ExpandOptions) ([]model.SourceEvent, error) {
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	r, err := rrule.StrToRRule(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	r.DTStart(a.start)

	horizon := opts.Horizon
	if horizon.IsZero() {
		horizon = base.Start.AddDays(defaultHorizonDays)
	}
	if horizon.Before(base.Start) {
		return nil, nil
	}
	loc := a.start.Location()
	rangeEnd := time.Date(horizon.Time().Year(), horizon.Time().Month(), horizon.Time().Day(), 23, 59, 59, 0, loc)

	var set rrule.Set
	set.RRule(r)
	occs := set.Between(a.start, rangeEnd, true)
	if len(occs) > opts.MaxOccurrences {
		occs = occs[:opts.MaxOccurrences]
		appLog.Error("ics: truncated occurrences due to cap",
			errors.New("max occurrences reached"),
			"uid", base.ID,
			"cap", opts.MaxOccurrences,
		)
	}

	var runs []model.SourceEvent
	for _, occ := range occs {
		first, last := a.days(occ)
		if exDays.Has(first) {
			continue
		}
		if n := len(runs); n > 0 && !first.After(runs[n-1].End.AddDays(1)) {
			if last.After(runs[n-1].End) {
				runs[n-1].End = last
			}
			continue
		}
		run := base
		run.Start, run.End = first, last
		if len(runs) > 0 {
			run.ID = fmt.Sprintf("%s#%d", base.ID, len(runs)+1)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// exceptionDays collects the EXDATE days of ve. Values are compared by day.
func exceptionDays(ve *ical.VEvent) model.DaySet {
	set := model.NewDaySet()
	for _, p := range ve.Properties {
		if p.IANAToken != string(ical.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(p.Value, ",") {
			if d, err := dateValue(v); err == nil {
				set.Add(d.String())
			}
		}
	}
	return set
}

func daysBetween(a, b model.Day) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}
