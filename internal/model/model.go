package model

import (
	"sort"
	"strings"
)

// SourceEvent is one show run as delivered by the events source: a raw
// display name and an inclusive range of calendar days.
type SourceEvent struct {
	ID   string
	Name string // raw show name, as displayed

	Start Day
	End   Day // inclusive

	// Display extras carried through to every projected cell.
	URL         string
	Image       string
	Description string
	Location    string
}

// ShowName implements ordering.Named.
func (e SourceEvent) ShowName() string { return e.Name }

// ProjectedCell is one calendar-day occurrence of one SourceEvent after
// blackout and exclusion filtering.
type ProjectedCell struct {
	// ID is "<SourceEventID>:<YYYY-MM-DD>", unique per (event, day).
	ID            string `json:"id"`
	SourceEventID string `json:"source_event_id"`
	Day           Day    `json:"day"`
	DisplayName   string `json:"title"`

	BackgroundColor string `json:"background_color"`
	ForegroundColor string `json:"text_color"`

	// OrderRank is the cell's position among the cells of the same day.
	OrderRank int `json:"order_rank"`

	URL         string `json:"url,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ShowName implements ordering.Named.
func (c ProjectedCell) ShowName() string { return c.DisplayName }

// TrackedItem is one monitored musical and its current set of ticket URLs.
type TrackedItem struct {
	Key  string   `json:"key"`
	URLs []string `json:"urls"`
}

// NewTrackedItem builds an item whose URL list is a sorted set: blanks are
// dropped and duplicates collapsed.
func NewTrackedItem(key string, urls []string) TrackedItem {
	return TrackedItem{Key: key, URLs: URLSet(urls)}
}

// Clone returns a deep copy of the item.
func (t TrackedItem) Clone() TrackedItem {
	urls := make([]string, len(t.URLs))
	copy(urls, t.URLs)
	return TrackedItem{Key: t.Key, URLs: urls}
}

// URLSet normalizes a URL list into a sorted set without blanks.
func URLSet(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ChangeRecord counts how an item's URL set moved relative to the baseline.
type ChangeRecord struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}
