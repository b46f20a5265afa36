// Package feed loads the raw inputs of the calendar and the change tracker:
// it fetches them (HTTP with a disk cache, or local files) and decodes the
// JSON arrays into model types.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	appLog "madcal/internal/log"
	"madcal/internal/model"
)

// rawID accepts a JSON string or number.
type rawID string

func (r *rawID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = rawID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*r = rawID(n.String())
	return nil
}

type rawEvent struct {
	ID          rawID  `json:"id"`
	Musical     string `json:"musical"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type rawItem struct {
	ID      rawID    `json:"id"`
	Musical string   `json:"musical"`
	Name    string   `json:"name"`
	URLs    []string `json:"urls"`
}

// DecodeEvents decodes the events array. The show name is "musical",
// falling back to "title". Records that do not decode or whose start or end
// day cannot be parsed are dropped and logged; a missing end means a
// single-day run. Only a document that is not a JSON array is an error.
func DecodeEvents(data []byte) ([]model.SourceEvent, error) {
	records, err := decodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}

	events := make([]model.SourceEvent, 0, len(records))
	for i, rec := range records {
		var raw rawEvent
		if err := json.Unmarshal(rec, &raw); err != nil {
			appLog.Debug("events: record dropped", "index", i, "err", err)
			continue
		}

		start, err := model.ParseDay(raw.Start)
		if err != nil {
			appLog.Debug("events: bad start dropped", "index", i, "start", raw.Start, "err", err)
			continue
		}
		var end model.Day
		if strings.TrimSpace(raw.End) != "" {
			if end, err = model.ParseDay(raw.End); err != nil {
				appLog.Debug("events: bad end dropped", "index", i, "end", raw.End, "err", err)
				continue
			}
		}

		name := raw.Musical
		if strings.TrimSpace(name) == "" {
			name = raw.Title
		}
		id := string(raw.ID)
		if id == "" {
			id = "evt-" + strconv.Itoa(i)
		}

		events = append(events, model.SourceEvent{
			ID:          id,
			Name:        name,
			Start:       start,
			End:         end,
			URL:         raw.URL,
			Image:       raw.Image,
			Description: raw.Description,
			Location:    raw.Location,
		})
	}

	appLog.Debug("events decoded", "records", len(records), "events", len(events))
	return events, nil
}

// DecodeItems decodes the tracked items array. The key is "id", then
// "musical", then "name". Items without a key are dropped.
func DecodeItems(data []byte) ([]model.TrackedItem, error) {
	records, err := decodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}

	items := make([]model.TrackedItem, 0, len(records))
	for i, rec := range records {
		var raw rawItem
		if err := json.Unmarshal(rec, &raw); err != nil {
			appLog.Debug("items: record dropped", "index", i, "err", err)
			continue
		}
		key := firstNonBlank(string(raw.ID), raw.Musical, raw.Name)
		if key == "" {
			appLog.Debug("items: record without key dropped", "index", i)
			continue
		}
		items = append(items, model.NewTrackedItem(key, raw.URLs))
	}
	return items, nil
}

func decodeArray(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("document must be a JSON array: %w", err)
	}
	return records, nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
