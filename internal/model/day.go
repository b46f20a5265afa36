package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLayout is the wire form of a calendar day.
const DayLayout = "2006-01-02"

// Day is a calendar day with no time and no zone. It is stored as midnight
// UTC so that arithmetic never crosses a DST boundary.
type Day struct {
	t time.Time
}

// NewDay builds a Day from numeric components. Out-of-range values roll
// over the way the calendar does (Feb 30 -> Mar 2).
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day of t as seen in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses "YYYY-MM-DD" from its numeric parts. Unpadded parts are
// accepted; anything after the day (e.g. a "T10:00" suffix) is ignored.
func ParseDay(s string) (Day, error) {
	y, m, d, err := dayParts(s)
	if err != nil {
		return Day{}, err
	}
	return NewDay(y, m, d), nil
}

func dayParts(s string) (int, time.Month, int, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("parse day %q: want YYYY-MM-DD", s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse day %q: year: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, 0, fmt.Errorf("parse day %q: bad month", s)
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil || d < 1 || d > 31 {
		return 0, 0, 0, fmt.Errorf("parse day %q: bad day", s)
	}
	return y, time.Month(m), d, nil
}

// MustParseDay is ParseDay for literals in tests and defaults.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) IsZero() bool          { return d.t.IsZero() }
func (d Day) Time() time.Time       { return d.t }
func (d Day) Weekday() time.Weekday { return d.t.Weekday() }
func (d Day) AddDays(n int) Day     { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) Before(o Day) bool     { return d.t.Before(o.t) }
func (d Day) After(o Day) bool      { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool      { return d.t.Equal(o.t) }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaySet is a set of day strings ("YYYY-MM-DD").
type DaySet map[string]struct{}

// NewDaySet builds a set from day strings. Each entry is re-parsed so that
// "2025-3-4" and "2025-03-04" land on the same key. Entries that are not a
// real calendar day ("2025-02-30") are kept verbatim and never match.
func NewDaySet(days ...string) DaySet {
	set := make(DaySet, len(days))
	for _, s := range days {
		set.Add(s)
	}
	return set
}

func (s DaySet) Add(day string) {
	if y, m, d, err := dayParts(day); err == nil {
		if parsed := NewDay(y, m, d); parsed.t.Day() == d {
			day = parsed.String()
		}
	}
	s[day] = struct{}{}
}

func (s DaySet) Has(d Day) bool {
	_, ok := s[d.String()]
	return ok
}

func (s DaySet) Len() int { return len(s) }
