package ics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madcal/internal/ics"
	"madcal/internal/model"
)

func calendar(events ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, e := range events {
		b.WriteString(e)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func vevent(lines ...string) string {
	return "BEGIN:VEVENT\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

func TestParseAllDayEndIsExclusive(t *testing.T) {
	body := calendar(vevent(
		"UID:wicked-2025",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Wicked",
		"LOCATION:Teatro Lope de Vega",
		"DTSTART;VALUE=DATE:20250304",
		"DTEND;VALUE=DATE:20250310",
	))

	events, err := ics.ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "wicked-2025", ev.ID)
	assert.Equal(t, "Wicked", ev.Name)
	assert.Equal(t, "Teatro Lope de Vega", ev.Location)
	assert.Equal(t, "2025-03-04", ev.Start.String())
	assert.Equal(t, "2025-03-09", ev.End.String())
}

func TestParseSingleAllDayWithoutEnd(t *testing.T) {
	events, err := ics.ParseEvents(calendar(vevent(
		"UID:a",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Aladdin",
		"DTSTART;VALUE=DATE:20250305",
	)))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, events[0].Start, events[0].End)
}

func TestParseTimedEvents(t *testing.T) {
	events, err := ics.ParseEvents(calendar(
		vevent(
			"UID:timed",
			"DTSTAMP:20250101T000000Z",
			"SUMMARY:Matilda",
			"DTSTART:20250304T190000Z",
			"DTEND:20250306T000000Z",
		),
		vevent(
			"DTSTAMP:20250101T000000Z",
			"SUMMARY:No uid",
			"DTSTART;VALUE=DATE:20250305",
		),
	))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-03-04", events[0].Start.String())
	assert.Equal(t, "2025-03-05", events[0].End.String())
}

func TestParseEmptyBody(t *testing.T) {
	_, err := ics.ParseEvents([]byte("  "))
	assert.Error(t, err)
}

func TestExportRoundTripsDays(t *testing.T) {
	cells := []model.ProjectedCell{
		{
			ID:              "w:2025-03-04",
			SourceEventID:   "w",
			Day:             model.MustParseDay("2025-03-04"),
			DisplayName:     "Wicked",
			BackgroundColor: "#FF6B6B",
			ForegroundColor: "#ffffff",
			Location:        "Teatro Lope de Vega",
		},
	}

	out := ics.Export(cells, "Musicales Madrid", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Wicked")
	assert.Contains(t, out, "COLOR:#FF6B6B")
	assert.Contains(t, out, "X-WR-CALNAME:Musicales Madrid")

	events, err := ics.ParseEvents([]byte(out))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-03-04", events[0].Start.String())
	assert.Equal(t, "2025-03-04", events[0].End.String())
	assert.Equal(t, "w:2025-03-04@madcal", events[0].ID)
}

func TestParseDailyRuleBecomesOneRun(t *testing.T) {
	events, err := ics.ParseEvents(calendar(vevent(
		"UID:wicked-run",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Wicked",
		"DTSTART;VALUE=DATE:20250304",
		"RRULE:FREQ=DAILY;UNTIL=20250330",
	)))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "wicked-run", events[0].ID)
	assert.Equal(t, "2025-03-04", events[0].Start.String())
	assert.Equal(t, "2025-03-30", events[0].End.String())
}

func TestParseWeeklyRuleSplitsRuns(t *testing.T) {
	events, err := ics.ParseEvents(calendar(vevent(
		"UID:matilda",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Matilda",
		"DTSTART;VALUE=DATE:20250304",
		"DTEND;VALUE=DATE:20250306",
		"RRULE:FREQ=WEEKLY;COUNT=3",
		"EXDATE;VALUE=DATE:20250311",
	)))
	require.NoError(t, err)

	var got []string
	for _, ev := range events {
		got = append(got, ev.ID+" "+ev.Start.String()+".."+ev.End.String())
	}
	// Two-day runs each week; the second week is cancelled.
	assert.Equal(t, []string{
		"matilda 2025-03-04..2025-03-05",
		"matilda#2 2025-03-18..2025-03-19",
	}, got)
}

func TestParseOpenEndedRuleStopsAtHorizon(t *testing.T) {
	body := calendar(vevent(
		"UID:lion",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:El Rey León",
		"DTSTART:20250304T200000Z",
		"DTEND:20250304T223000Z",
		"RRULE:FREQ=DAILY",
	))

	events, err := ics.ParseEventsWith(body, ics.ExpandOptions{Horizon: model.MustParseDay("2025-03-10")})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-03-04", events[0].Start.String())
	assert.Equal(t, "2025-03-10", events[0].End.String())

	events, err = ics.ParseEventsWith(body, ics.ExpandOptions{MaxOccurrences: 3})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-03-06", events[0].End.String())
}

func TestParseBadRuleKeepsFirstOccurrence(t *testing.T) {
	events, err := ics.ParseEvents(calendar(vevent(
		"UID:x",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Houdini",
		"DTSTART;VALUE=DATE:20250304",
		"RRULE:FREQ=SOMETIMES",
	)))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, events[0].Start, events[0].End)
}
