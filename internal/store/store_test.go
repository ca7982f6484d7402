package store

import (
	"testing"

	"github.com/devlens/devlens/internal/types"
)

func networkEvent(id, session string, ts int64, status int) types.Event {
	return types.Event{
		Header:  types.Header{EventID: id, SessionID: session, Timestamp: ts},
		Tag:     types.TagNetwork,
		Network: &types.NetworkBody{Method: "GET", URL: "/x", Status: status, DurationMs: 10},
	}
}

func TestStoreAddRejectsInvalid(t *testing.T) {
	s := New(10)
	if err := s.Add(types.Event{Tag: types.TagNetwork}); err == nil {
		t.Fatal("expected invalid-event error for missing session id")
	}
	if s.EventCount() != 0 {
		t.Fatalf("EventCount() = %d, want 0", s.EventCount())
	}
	if s.InvalidCount() != 1 {
		t.Fatalf("InvalidCount() = %d, want 1", s.InvalidCount())
	}
}

func TestStoreDedupByEventID(t *testing.T) {
	s := New(10)
	evt := networkEvent("e1", "s1", 100, 200)
	if err := s.Add(evt); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(evt); err != nil {
		t.Fatal(err)
	}
	if s.EventCount() != 1 {
		t.Fatalf("EventCount() = %d, want 1 (duplicate eventId must be deduped)", s.EventCount())
	}
}

// TestEventCountInvariant is invariant 2 from spec.md §8:
// store.getAllEvents().length == sum over rings of ring.size.
func TestEventCountInvariant(t *testing.T) {
	s := New(10)
	for i, tag := range []types.Event{
		networkEvent("n1", "s1", 1, 200),
		{Header: types.Header{EventID: "c1", SessionID: "s1", Timestamp: 2}, Tag: types.TagConsole, Console: &types.ConsoleBody{Level: types.ConsoleError, Message: "x"}},
		{Header: types.Header{EventID: "r1", SessionID: "s1", Timestamp: 3}, Tag: types.Tag("recon_scan")},
	} {
		if err := s.Add(tag); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if got, want := len(s.AllEvents()), s.EventCount(); got != want {
		t.Fatalf("len(AllEvents())=%d, EventCount()=%d, want equal", got, want)
	}
	if s.EventCount() != 3 {
		t.Fatalf("EventCount() = %d, want 3", s.EventCount())
	}
}

func TestStoreClear(t *testing.T) {
	s := New(10)
	_ = s.Add(networkEvent("n1", "s1", 1, 200))
	s.Clear()
	if s.EventCount() != 0 {
		t.Fatalf("EventCount() after Clear() = %d, want 0", s.EventCount())
	}
}

func TestTimelineSortedByTimestamp(t *testing.T) {
	s := New(10)
	_ = s.Add(networkEvent("n1", "s1", 300, 200))
	_ = s.Add(networkEvent("n2", "s1", 100, 200))
	_ = s.Add(networkEvent("n3", "s1", 200, 200))

	tl := s.Timeline()
	for i := 1; i < len(tl); i++ {
		if tl[i-1].Timestamp > tl[i].Timestamp {
			t.Fatalf("Timeline() not sorted ascending: %+v", tl)
		}
	}
}

func TestNetworkRequestsFilterAndOrder(t *testing.T) {
	s := New(10)
	_ = s.Add(networkEvent("n1", "s1", 1, 200))
	_ = s.Add(networkEvent("n2", "s1", 2, 500))
	_ = s.Add(networkEvent("n3", "s1", 3, 404))

	res := s.NetworkRequests(types.NetworkFilter{StatusMin: 400})
	if len(res) != 2 {
		t.Fatalf("len(res) = %d, want 2", len(res))
	}
	// newest-first
	if res[0].EventID != "n3" || res[1].EventID != "n2" {
		t.Fatalf("unexpected order: %+v", res)
	}
}

func TestConsoleMessagesSearch(t *testing.T) {
	s := New(10)
	mk := func(id, msg string, level types.ConsoleLevel) types.Event {
		return types.Event{
			Header:  types.Header{EventID: id, SessionID: "s1", Timestamp: 1},
			Tag:     types.TagConsole,
			Console: &types.ConsoleBody{Level: level, Message: msg},
		}
	}
	_ = s.Add(mk("c1", "Failed to fetch", types.ConsoleError))
	_ = s.Add(mk("c2", "ok", types.ConsoleLog))

	res := s.ConsoleMessages(types.ConsoleFilter{Search: "failed"})
	if len(res) != 1 || res[0].EventID != "c1" {
		t.Fatalf("unexpected search result: %+v", res)
	}

	res = s.ConsoleMessages(types.ConsoleFilter{Level: types.ConsoleError})
	if len(res) != 1 || res[0].EventID != "c1" {
		t.Fatalf("unexpected level filter result: %+v", res)
	}
}
