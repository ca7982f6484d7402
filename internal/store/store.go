// store.go — the event store (C2). Owns one ring per event tag and the
// session registry snapshot join for getSessionInfo. Ingestion takes the
// store lock for the duration of one append; queries copy the relevant
// ring slice under lock and filter after releasing it (§5).
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/devlens/devlens/internal/ring"
	"github.com/devlens/devlens/internal/types"
)

// DefaultCapacity is the default per-tag ring capacity (§3 "default 10,000").
const DefaultCapacity = 10000

// Store is the collection of per-type ring logs plus per-type eventId
// dedup sets, guarded by a single mutex (§4.2, §5).
type Store struct {
	mu sync.RWMutex

	capacity int
	rings    map[types.Tag]*ring.Ring[types.Event]
	seen     map[types.Tag]map[string]struct{} // eventId dedup, per ring (§4.4 "producers own eventId")

	// recon_* tags share one ring keyed by the literal tag string rather
	// than one ring per distinct recon_* event, since the core treats them
	// opaquely (§3) and there is no bounded enumeration of them.
	reconRings map[types.Tag]*ring.Ring[types.Event]

	invalidCount int64
}

// New creates an empty Store with the given per-tag ring capacity.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	s := &Store{
		capacity:   capacity,
		rings:      map[types.Tag]*ring.Ring[types.Event]{},
		seen:       map[types.Tag]map[string]struct{}{},
		reconRings: map[types.Tag]*ring.Ring[types.Event]{},
	}
	for tag := range types.KnownTags {
		s.rings[tag] = ring.New[types.Event](capacity)
		s.seen[tag] = map[string]struct{}{}
	}
	return s
}

// Add classifies an event by tag and appends it to the matching ring,
// rejecting invalid events and deduplicating by eventId within the ring
// (§4.2, §4.4).
func (s *Store) Add(evt types.Event) error {
	if err := evt.Valid(); err != nil {
		s.mu.Lock()
		s.invalidCount++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, seen := s.ringFor(evt.Tag)
	if _, dup := seen[evt.EventID]; dup && evt.EventID != "" {
		return nil
	}
	r.Append(evt)
	if evt.EventID != "" {
		seen[evt.EventID] = struct{}{}
	}
	return nil
}

// ringFor returns the ring and dedup set for tag, creating a recon ring on
// first use. Must be called with s.mu held.
func (s *Store) ringFor(tag types.Tag) (*ring.Ring[types.Event], map[string]struct{}) {
	if r, ok := s.rings[tag]; ok {
		return r, s.seen[tag]
	}
	r, ok := s.reconRings[tag]
	if !ok {
		r = ring.New[types.Event](s.capacity)
		s.reconRings[tag] = r
		s.seen[tag] = map[string]struct{}{}
	}
	return r, s.seen[tag]
}

// snapshot copies a ring's retained entries under lock, oldest-first.
func (s *Store) snapshot(tag types.Tag) []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rings[tag]
	if !ok {
		r, ok = s.reconRings[tag]
		if !ok {
			return nil
		}
	}
	return r.Items()
}

// EventCount returns the sum of sizes across every ring (§4.2, invariant 2).
func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, r := range s.rings {
		total += r.Size()
	}
	for _, r := range s.reconRings {
		total += r.Size()
	}
	return total
}

// InvalidCount returns the number of events rejected since the last Clear.
func (s *Store) InvalidCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalidCount
}

// Clear resets every ring (§4.2).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag := range s.rings {
		s.rings[tag] = ring.New[types.Event](s.capacity)
	}
	s.reconRings = map[types.Tag]*ring.Ring[types.Event]{}
	s.seen = map[types.Tag]map[string]struct{}{}
	for tag := range types.KnownTags {
		s.seen[tag] = map[string]struct{}{}
	}
	s.invalidCount = 0
}

// AllEvents returns every retained event across every ring, oldest-first
// within each ring but with no cross-ring ordering guarantee. Used only to
// verify invariant 2 (store.getAllEvents().length == sum of ring sizes);
// callers that need causal order should use Timeline.
func (s *Store) AllEvents() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []types.Event
	for _, r := range s.rings {
		all = append(all, r.Items()...)
	}
	for _, r := range s.reconRings {
		all = append(all, r.Items()...)
	}
	return all
}

// Timeline merges all rings (or only the given tags, if non-empty) into a
// single stream sorted ascending by timestamp (§4.2 getEventTimeline,
// invariant 6).
func (s *Store) Timeline(tags ...types.Tag) []types.Event {
	var sources []types.Tag
	if len(tags) > 0 {
		sources = tags
	} else {
		s.mu.RLock()
		for tag := range s.rings {
			sources = append(sources, tag)
		}
		for tag := range s.reconRings {
			sources = append(sources, tag)
		}
		s.mu.RUnlock()
	}

	var merged []types.Event
	for _, tag := range sources {
		merged = append(merged, s.snapshot(tag)...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// matchesTimeFilter reports whether evt passes f, given "now" in producer
// wall-clock milliseconds.
func matchesTimeFilter(f types.TimeFilter, evt types.Event, nowMs int64) bool {
	if f.SinceSeconds <= 0 {
		return true
	}
	return evt.Timestamp >= nowMs-int64(f.SinceSeconds)*1000
}

// errInvalidFilter is returned by query accessors when the filter
// references a concept the store doesn't model (defensive, should not
// occur given typed filter records).
var errInvalidFilter = fmt.Errorf("invalid filter")
