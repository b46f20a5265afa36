// Package exclusion resolves per-show excluded days.
//
// The table comes from a JSON object mapping free-text show names to lists
// of "YYYY-MM-DD" days. Keys are normalized on load and their order of
// appearance in the document is kept: when several keys are substrings of
// an event key, the earliest one wins.
package exclusion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"madcal/internal/model"
	"madcal/internal/showkey"
)

type entry struct {
	key  string
	days model.DaySet
}

// Table maps normalized show keys to excluded days. The zero value is an
// empty table. A Table is never mutated after Parse returns it.
type Table struct {
	entries []entry
	index   map[string]int
}

// Parse reads an exclusions document. A null or empty document is an empty
// table.
func Parse(data []byte) (Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Table{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return Table{}, fmt.Errorf("exclusions: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Table{}, errors.New("exclusions: document must be a JSON object")
	}

	var t Table
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Table{}, fmt.Errorf("exclusions: %w", err)
		}
		name, _ := tok.(string)

		var days []string
		if err := dec.Decode(&days); err != nil {
			return Table{}, fmt.Errorf("exclusions: days for %q: %w", name, err)
		}
		t.add(showkey.Normalize(name), days)
	}
	if _, err := dec.Token(); err != nil {
		return Table{}, fmt.Errorf("exclusions: %w", err)
	}
	return t, nil
}

// FromMap builds a table from an ordered list of names and their days; it
// is the programmatic counterpart of Parse.
func FromMap(names []string, days map[string][]string) Table {
	var t Table
	for _, n := range names {
		t.add(showkey.Normalize(n), days[n])
	}
	return t
}

func (t *Table) add(key string, days []string) {
	if key == "" {
		return
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	i, ok := t.index[key]
	if !ok {
		t.entries = append(t.entries, entry{key: key, days: model.NewDaySet()})
		i = len(t.entries) - 1
		t.index[key] = i
	}
	for _, d := range days {
		t.entries[i].days.Add(d)
	}
}

// ExcludedDays returns the excluded days for a normalized event key: the
// exact entry if present, else the first entry (in document order) whose
// key is contained in eventKey, else an empty set. The returned set must
// not be modified.
func (t Table) ExcludedDays(eventKey string) model.DaySet {
	if set, _, ok := t.Match(eventKey); ok {
		return set
	}
	return model.DaySet{}
}

// Match is ExcludedDays that also reports which table key matched.
func (t Table) Match(eventKey string) (model.DaySet, string, bool) {
	if i, ok := t.index[eventKey]; ok {
		return t.entries[i].days, t.entries[i].key, true
	}
	if eventKey == "" {
		return nil, "", false
	}
	for _, e := range t.entries {
		if strings.Contains(eventKey, e.key) {
			return e.days, e.key, true
		}
	}
	return nil, "", false
}

// Keys lists the normalized keys in document order.
func (t Table) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.key
	}
	return keys
}

// Len reports the number of keys.
func (t Table) Len() int { return len(t.entries) }
