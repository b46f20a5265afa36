// Package tracker compares the current ticket URLs of each monitored
// musical against a per-session baseline and reports what changed.
package tracker

import (
	"encoding/json"
	"fmt"

	appLog "madcal/internal/log"
	"madcal/internal/model"
)

// Result is the outcome of one refresh.
type Result struct {
	// Changes holds only the items whose URL set moved.
	Changes map[string]model.ChangeRecord
	// NewKeys are keys that started changing since the previous refresh.
	NewKeys []string
	// Notify is true when NewKeys is not empty.
	Notify bool
}

// Tracker owns one session's baseline.
type Tracker struct {
	store    Store
	notifier *Notifier
}

// New returns a Tracker over store. A nil notifier starts a fresh one, so
// the first Refresh never notifies.
func New(store Store, notifier *Notifier) *Tracker {
	if store == nil {
		store = NewMemoryStore(nil)
	}
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &Tracker{store: store, notifier: notifier}
}

// Notifier returns the notifier used by Refresh.
func (t *Tracker) Notifier() *Notifier { return t.notifier }

// Baseline returns the stored baseline, or nil when there is none or it
// cannot be decoded.
func (t *Tracker) Baseline() []model.TrackedItem {
	items, _ := t.load()
	return items
}

// EnsureBaseline captures current as the baseline if none exists yet.
// Calling it again is a no-op.
func (t *Tracker) EnsureBaseline(current []model.TrackedItem) error {
	if _, ok := t.load(); ok {
		return nil
	}
	snapshot := dedupe(current)
	if err := t.save(snapshot); err != nil {
		return err
	}
	appLog.Debug("tracker: baseline captured", "items", len(snapshot))
	return nil
}

// Diff reports, per current item, how many URLs were added and removed
// relative to the baseline. Unchanged items are left out. Items with no
// baseline entry count every URL as added.
func (t *Tracker) Diff(current []model.TrackedItem) map[string]model.ChangeRecord {
	base, _ := t.load()
	baseURLs := make(map[string]map[string]struct{}, len(base))
	for _, it := range base {
		baseURLs[it.Key] = toSet(it.URLs)
	}

	changes := make(map[string]model.ChangeRecord)
	for _, it := range dedupe(current) {
		cur := toSet(it.URLs)
		prev := baseURLs[it.Key]

		var rec model.ChangeRecord
		for u := range cur {
			if _, ok := prev[u]; !ok {
				rec.Added++
			}
		}
		for u := range prev {
			if _, ok := cur[u]; !ok {
				rec.Removed++
			}
		}
		if rec.Added+rec.Removed == 0 {
			continue
		}
		rec.Total = len(cur)
		changes[it.Key] = rec
	}
	return changes
}

// MarkSeen makes item's current URLs part of the baseline, replacing any
// previous entry for the same key.
func (t *Tracker) MarkSeen(item model.TrackedItem) error {
	if item.Key == "" {
		return nil
	}
	base, _ := t.load()
	item = model.NewTrackedItem(item.Key, item.URLs)

	replaced := false
	for i := range base {
		if base[i].Key == item.Key {
			base[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		base = append(base, item)
	}
	return t.save(base)
}

// Refresh runs EnsureBaseline, Diff and the notifier in one step.
func (t *Tracker) Refresh(current []model.TrackedItem) (Result, error) {
	if err := t.EnsureBaseline(current); err != nil {
		return Result{}, err
	}
	changes := t.Diff(current)
	fresh := t.notifier.Observe(changes)
	return Result{
		Changes: changes,
		NewKeys: fresh,
		Notify:  len(fresh) > 0,
	}, nil
}

// load decodes the stored baseline. ok is false when there is none or the
// blob is unreadable; an unreadable blob is treated as absent.
func (t *Tracker) load() ([]model.TrackedItem, bool) {
	data, err := t.store.Load()
	if err != nil {
		appLog.Error("tracker: load baseline failed", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var items []model.TrackedItem
	if err := json.Unmarshal(data, &items); err != nil {
		appLog.Warn("tracker: discarding unreadable baseline", "err", err, "bytes", len(data))
		return nil, false
	}
	if items == nil {
		// "null" is not a baseline.
		return nil, false
	}
	return dedupe(items), true
}

func (t *Tracker) save(items []model.TrackedItem) error {
	if items == nil {
		items = []model.TrackedItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("tracker: encode baseline: %w", err)
	}
	if err := t.store.Save(data); err != nil {
		return fmt.Errorf("tracker: save baseline: %w", err)
	}
	return nil
}

// dedupe deep-copies items, normalizing URL sets and keeping one entry per
// key. A later entry for a key replaces the earlier one in place.
func dedupe(items []model.TrackedItem) []model.TrackedItem {
	out := make([]model.TrackedItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.Key == "" {
			continue
		}
		norm := model.NewTrackedItem(it.Key, it.URLs)
		if i, ok := index[it.Key]; ok {
			out[i] = norm
			continue
		}
		index[it.Key] = len(out)
		out = append(out, norm)
	}
	return out
}

func toSet(urls []string) map[string]struct{} {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}
