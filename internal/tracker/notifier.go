package tracker

import (
	"sort"
	"sync"

	"madcal/internal/model"
)

// Notifier turns successive diffs into edge-triggered alerts: a key fires
// when it shows up in a diff after being absent from the previous one.
// The very first diff observed only primes the notifier.
type Notifier struct {
	mu     sync.Mutex
	primed bool
	prev   map[string]struct{}
}

// NewNotifier returns an unprimed notifier.
func NewNotifier() *Notifier {
	return &Notifier{prev: map[string]struct{}{}}
}

// RestoreNotifier returns a primed notifier whose previous key set is keys,
// as saved by a client between requests.
func RestoreNotifier(keys []string) *Notifier {
	n := NewNotifier()
	n.primed = true
	for _, k := range keys {
		n.prev[k] = struct{}{}
	}
	return n
}

// Observe records diff as the latest one and returns the keys that are new
// relative to the previous call, sorted. It returns nil on the first call.
func (n *Notifier) Observe(diff map[string]model.ChangeRecord) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var fresh []string
	if n.primed {
		for k := range diff {
			if _, ok := n.prev[k]; !ok {
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
	}

	n.prev = make(map[string]struct{}, len(diff))
	for k := range diff {
		n.prev[k] = struct{}{}
	}
	n.primed = true
	return fresh
}

// Keys returns the key set of the last observed diff, sorted.
func (n *Notifier) Keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, 0, len(n.prev))
	for k := range n.prev {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Primed reports whether a diff has been observed (or restored).
func (n *Notifier) Primed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.primed
}
