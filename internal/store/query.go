// query.go — one typed accessor per event tag (§4.2). Each accessor takes
// an optional filter record; filters compose by conjunction. Results are
// newest-first per spec.md §4.2, except Timeline (store.go) which is
// oldest-first.
package store

import (
	"strings"
	"time"

	"github.com/devlens/devlens/internal/types"
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ConsoleMessages returns console events matching f, newest-first.
func (s *Store) ConsoleMessages(f types.ConsoleFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagConsole) {
		if evt.Console == nil || !matchesTimeFilter(f.TimeFilter, evt, now) {
			continue
		}
		if f.Level != "" && evt.Console.Level != f.Level {
			continue
		}
		if !containsFold(evt.Console.Message, f.Search) {
			continue
		}
		out = append(out, evt)
	}
	return reverse(out)
}

// NetworkRequests returns network events matching f, newest-first.
func (s *Store) NetworkRequests(f types.NetworkFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagNetwork) {
		if evt.Network == nil || !matchesTimeFilter(f.TimeFilter, evt, now) {
			continue
		}
		n := evt.Network
		if f.Method != "" && !strings.EqualFold(n.Method, f.Method) {
			continue
		}
		if !containsFold(n.URL, f.URLSearch) {
			continue
		}
		if f.StatusMin != 0 && n.Status < f.StatusMin {
			continue
		}
		if f.StatusMax != 0 && n.Status > f.StatusMax {
			continue
		}
		if f.MinDuration != 0 && n.DurationMs < f.MinDuration {
			continue
		}
		out = append(out, evt)
	}
	return reverse(out)
}

// DatabaseQueries returns database events matching f, newest-first.
func (s *Store) DatabaseQueries(f types.DatabaseFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagDatabase) {
		if evt.Database == nil || !matchesTimeFilter(f.TimeFilter, evt, now) {
			continue
		}
		d := evt.Database
		if f.Operation != "" && d.Operation != f.Operation {
			continue
		}
		if !containsFold(d.Query, f.Search) {
			continue
		}
		if f.MinDuration != 0 && d.DurationMs < f.MinDuration {
			continue
		}
		out = append(out, evt)
	}
	return reverse(out)
}

// RenderProfiles returns render events matching f, newest-first.
func (s *Store) RenderProfiles(f types.RenderFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagRender) {
		if evt.Render == nil || !matchesTimeFilter(f.TimeFilter, evt, now) {
			continue
		}
		if f.ComponentSearch == "" {
			out = append(out, evt)
			continue
		}
		for _, p := range evt.Render.Profiles {
			if containsFold(p.ComponentName, f.ComponentSearch) {
				out = append(out, evt)
				break
			}
		}
	}
	return reverse(out)
}

// StateEvents returns state events matching f, newest-first.
func (s *Store) StateEvents(f types.StateFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagState) {
		if evt.State == nil || !matchesTimeFilter(f.TimeFilter, evt, now) {
			continue
		}
		if f.StoreID != "" && evt.State.StoreID != f.StoreID {
			continue
		}
		if f.Library != "" && evt.State.Library != f.Library {
			continue
		}
		out = append(out, evt)
	}
	return reverse(out)
}

// PerformanceMetrics returns performance events matching f, newest-first.
func (s *Store) PerformanceMetrics(f types.PerformanceFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagPerformance) {
		if evt.Performance == nil || !matchesTimeFilter(f.TimeFilter, evt, now) {
			continue
		}
		if f.MetricName != "" && evt.Performance.MetricName != f.MetricName {
			continue
		}
		out = append(out, evt)
	}
	return reverse(out)
}

// DOMSnapshots returns stored dom_snapshot events, newest-first.
func (s *Store) DOMSnapshots(f types.TimeFilter) []types.Event {
	now := nowMillis()
	var out []types.Event
	for _, evt := range s.snapshot(types.TagDOMSnapshot) {
		if evt.DOMSnapshot == nil || !matchesTimeFilter(f, evt, now) {
			continue
		}
		out = append(out, evt)
	}
	return reverse(out)
}

// reverse returns a newest-first copy of an oldest-first slice.
func reverse(in []types.Event) []types.Event {
	out := make([]types.Event, len(in))
	for i, evt := range in {
		out[len(in)-1-i] = evt
	}
	return out
}
