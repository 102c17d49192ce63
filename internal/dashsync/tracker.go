// Package dashsync is a polling client for the admin API. It detects newly
// registered fingerprint users and new security log entries by diffing each
// full-list fetch against the identifiers seen on the previous one.
package dashsync

import "sync"

// Tracker holds the identifier set from the last observation of one
// collection. Until the first observation it is baseline-empty: that
// observation seeds the set and reports nothing. After it the tracker is
// tracking and every Observe reports identifiers absent from the previous set.
type Tracker[K comparable] struct {
	mu       sync.Mutex
	seen     map[K]struct{}
	tracking bool
}

func NewTracker[K comparable]() *Tracker[K] {
	return &Tracker[K]{seen: make(map[K]struct{})}
}

// Observe replaces the remembered set with ids and returns the ids that were
// not in the previous set, in input order.
func (t *Tracker[K]) Observe(ids []K) []K {
	next := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var added []K
	if t.tracking {
		reported := make(map[K]struct{})
		for _, id := range ids {
			if _, ok := t.seen[id]; ok {
				continue
			}
			if _, ok := reported[id]; ok {
				continue
			}
			reported[id] = struct{}{}
			added = append(added, id)
		}
	}
	t.seen = next
	t.tracking = true
	return added
}

func (t *Tracker[K]) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// Len is the size of the remembered set.
func (t *Tracker[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// NewItems observes the keys of items and returns the items whose key is new.
func NewItems[T any, K comparable](t *Tracker[K], items []T, key func(T) K) []T {
	ids := make([]K, len(items))
	for i, it := range items {
		ids[i] = key(it)
	}
	added := t.Observe(ids)
	if len(added) == 0 {
		return nil
	}
	want := make(map[K]struct{}, len(added))
	for _, id := range added {
		want[id] = struct{}{}
	}
	out := make([]T, 0, len(added))
	for _, it := range items {
		k := key(it)
		if _, ok := want[k]; ok {
			out = append(out, it)
			delete(want, k)
		}
	}
	return out
}
