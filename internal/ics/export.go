package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"madcal/internal/model"
)

const productID = "-//madcal//Madrid musicals//ES"

// propertyColor is the RFC 7986 COLOR property.
const propertyColor = ical.ComponentProperty("COLOR")

// Export renders cells as an all-day VCALENDAR, one VEVENT per cell. The
// cell id becomes the UID so re-exports update rather than duplicate.
func Export(cells []model.ProjectedCell, name string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := now.UTC()
	for _, c := range cells {
		ev := cal.AddEvent(c.ID + "@madcal")
		ev.SetDtStampTime(stamp)
		ev.SetSummary(c.DisplayName)
		ev.SetAllDayStartAt(c.Day.Time())
		ev.SetAllDayEndAt(c.Day.AddDays(1).Time())
		if c.BackgroundColor != "" {
			ev.SetProperty(propertyColor, c.BackgroundColor)
		}
		if c.URL != "" {
			ev.SetURL(c.URL)
		}
		if c.Location != "" {
			ev.SetLocation(c.Location)
		}
		if c.Description != "" {
			ev.SetDescription(c.Description)
		}
	}
	return cal.Serialize()
}
