// Package projection expands date-range show runs into one calendar cell
// per performance day.
package projection

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"madcal/internal/exclusion"
	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/ordering"
	"madcal/internal/palette"
	"madcal/internal/showkey"
)

// Blackout is the weekday on which theaters are dark. No cell is ever
// produced on it.
const Blackout = time.Monday

const defaultMaxDaysPerEvent = 5000

// showWeekdays are the weekdays cells may fall on.
var showWeekdays = []rrule.Weekday{rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Options narrows a projection pass. The zero value projects everything.
type Options struct {
	// Only restricts output to these raw show names. Empty means all.
	Only []string

	// HideEndedBefore drops events whose last day is before this day.
	HideEndedBefore model.Day

	// MinDay / MaxDay clamp the visible window (inclusive).
	MinDay model.Day
	MaxDay model.Day
}

// Projector turns source events into calendar cells. Its only state is the
// color memo, which is reset at the start of every pass.
type Projector struct {
	colors *palette.Assigner
	order  *ordering.Orderer

	// MaxDaysPerEvent caps a single event's expansion. If zero,
	// defaultMaxDaysPerEvent is used.
	MaxDaysPerEvent int
}

// New returns a Projector. Nil collaborators are replaced with defaults.
func New(colors *palette.Assigner, order *ordering.Orderer) *Projector {
	if colors == nil {
		colors = palette.NewAssigner(nil)
	}
	if order == nil {
		order = ordering.New(ordering.DefaultPreferred)
	}
	return &Projector{colors: colors, order: order}
}

// Colors exposes the assigner so callers can color legends consistently
// with the last pass.
func (p *Projector) Colors() *palette.Assigner { return p.colors }

// Project expands events into cells sorted by day and, within a day, by
// show order. Events with a zero start are skipped; a zero end means a
// single-day event.
func (p *Projector) Project(events []model.SourceEvent, table exclusion.Table, opts Options) []model.ProjectedCell {
	p.colors.Reset()

	only := make(map[string]struct{}, len(opts.Only))
	for _, n := range opts.Only {
		only[strings.TrimSpace(n)] = struct{}{}
	}

	cells := make([]model.ProjectedCell, 0, len(events))
	for _, ev := range events {
		if len(only) > 0 {
			if _, ok := only[strings.TrimSpace(ev.Name)]; !ok {
				continue
			}
		}
		cells = append(cells, p.projectEvent(ev, table, opts)...)
	}

	// Nothing upstream should have produced a dark-day cell; drop any anyway.
	final := cells[:0]
	for _, c := range cells {
		if c.Day.IsZero() || c.Day.Weekday() == Blackout {
			continue
		}
		final = append(final, c)
	}

	p.order.Rank(final)

	appLog.Debug("projection completed", "events", len(events), "cells", len(final), "exclusion_keys", table.Len())
	return final
}

func (p *Projector) projectEvent(ev model.SourceEvent, table exclusion.Table, opts Options) []model.ProjectedCell {
	if ev.Start.IsZero() {
		appLog.Debug("projection: event without start dropped", "id", ev.ID, "name", ev.Name)
		return nil
	}
	start, end := ev.Start, ev.End
	if end.IsZero() {
		end = start
	}
	if !opts.HideEndedBefore.IsZero() && end.Before(opts.HideEndedBefore) {
		return nil
	}
	if !opts.MinDay.IsZero() && start.Before(opts.MinDay) {
		start = opts.MinDay
	}
	if !opts.MaxDay.IsZero() && end.After(opts.MaxDay) {
		end = opts.MaxDay
	}
	if end.Before(start) {
		return nil
	}

	key := showkey.Normalize(ev.Name)
	excluded, matched, ok := table.Match(key)
	if ok && matched != key {
		appLog.Debug("exclusion matched by containment", "exclusion_key", matched, "event_key", key)
	}

	days, truncated := p.performanceDays(start, end)
	if truncated {
		appLog.Warn("projection: event truncated", "id", ev.ID, "name", ev.Name, "cap", p.maxDays())
	}

	out := make([]model.ProjectedCell, 0, len(days))
	for _, d := range days {
		if excluded.Has(d) {
			continue
		}
		colors := p.colors.ColorFor(ev.Name)
		out = append(out, model.ProjectedCell{
			ID:              ev.ID + ":" + d.String(),
			SourceEventID:   ev.ID,
			Day:             d,
			DisplayName:     ev.Name,
			BackgroundColor: colors.Background,
			ForegroundColor: colors.Foreground,
			URL:             ev.URL,
			Image:           ev.Image,
			Description:     ev.Description,
			Location:        ev.Location,
		})
	}
	return out
}

// performanceDays enumerates start..end inclusive, skipping the blackout
// weekday, and reports whether the cap cut the range short.
func (p *Projector) performanceDays(start, end model.Day) ([]model.Day, bool) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   start.Time(),
		Until:     end.Time(),
		Byweekday: showWeekdays,
	})
	if err != nil {
		appLog.Error("projection: failed to build day rule", err, "start", start, "end", end)
		return nil, false
	}

	limit := p.maxDays()
	days := make([]model.Day, 0)
	next := r.Iterator()
	for {
		t, ok := next()
		if !ok {
			return days, false
		}
		if len(days) >= limit {
			return days, true
		}
		days = append(days, model.DayOf(t))
	}
}

func (p *Projector) maxDays() int {
	if p.MaxDaysPerEvent <= 0 {
		return defaultMaxDaysPerEvent
	}
	return p.MaxDaysPerEvent
}
