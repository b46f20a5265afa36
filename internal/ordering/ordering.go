// Package ordering defines the render order of shows that share a day:
// a short preferred list first, in its configured sequence, then the rest
// alphabetically by normalized key.
package ordering

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"madcal/internal/model"
	"madcal/internal/showkey"
)

// DefaultPreferred is the preferred sequence used when none is configured.
var DefaultPreferred = []string{"wicked", "the book of mormon"}

// Named is anything that carries a raw show name.
type Named interface {
	ShowName() string
}

// Orderer compares shows. The zero value is not usable; use New.
type Orderer struct {
	preferred map[string]int

	mu  sync.Mutex // collate.Collator is not safe for concurrent use
	col *collate.Collator
}

// New returns an Orderer for the given preferred sequence. Entries are
// normalized; duplicates keep their first position.
func New(preferred []string) *Orderer {
	o := &Orderer{
		preferred: make(map[string]int, len(preferred)),
		col:       collate.New(language.Spanish),
	}
	for _, p := range preferred {
		k := showkey.Normalize(p)
		if k == "" {
			continue
		}
		if _, ok := o.preferred[k]; !ok {
			o.preferred[k] = len(o.preferred)
		}
	}
	return o
}

type sortKey struct {
	zone int
	rank int
	key  string
}

func (o *Orderer) keyFor(name string) sortKey {
	k := showkey.Normalize(name)
	if idx, ok := o.preferred[k]; ok {
		return sortKey{zone: 0, rank: idx, key: k}
	}
	return sortKey{zone: 1, key: k}
}

// CompareNames is the three-way comparison over raw show names.
func (o *Orderer) CompareNames(a, b string) int {
	ka, kb := o.keyFor(a), o.keyFor(b)
	if ka.zone != kb.zone {
		return ka.zone - kb.zone
	}
	if ka.zone == 0 {
		return ka.rank - kb.rank
	}

	o.mu.Lock()
	c := o.col.CompareString(ka.key, kb.key)
	o.mu.Unlock()
	if c != 0 {
		return c
	}
	return strings.Compare(ka.key, kb.key)
}

// Compare is CompareNames for Named values.
func (o *Orderer) Compare(a, b Named) int {
	return o.CompareNames(a.ShowName(), b.ShowName())
}

// Sort orders items in place; equal keys keep their input order.
func Sort[T Named](o *Orderer, items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return o.Compare(items[i], items[j]) < 0
	})
}

// Rank sorts cells by day and, within a day, by show order, and sets each
// cell's OrderRank to its position among the cells of that day.
func (o *Orderer) Rank(cells []model.ProjectedCell) {
	sort.SliceStable(cells, func(i, j int) bool {
		if !cells[i].Day.Equal(cells[j].Day) {
			return cells[i].Day.Before(cells[j].Day)
		}
		return o.Compare(cells[i], cells[j]) < 0
	})

	rank := 0
	for i := range cells {
		if i > 0 && !cells[i].Day.Equal(cells[i-1].Day) {
			rank = 0
		}
		cells[i].OrderRank = rank
		rank++
	}
}
