package detect

import (
	"fmt"
	"testing"

	"github.com/devlens/devlens/internal/types"
)

func dbEvent(id string, ts int64) types.Event {
	return types.Event{
		Header: types.Header{EventID: id, SessionID: "s1", Timestamp: ts},
		Tag:    types.TagDatabase,
		Database: &types.DatabaseBody{
			Query:           "SELECT * FROM users WHERE id = 1",
			NormalizedQuery: "SELECT * FROM users WHERE id = ?",
			DurationMs:      5,
			Operation:       types.OpSelect,
		},
	}
}

// TestNPlusOneDetection is scenario S4 from spec.md §8.
func TestNPlusOneDetection(t *testing.T) {
	var events []types.Event
	for i := 0; i < 12; i++ {
		events = append(events, dbEvent(fmt.Sprintf("q%d", i), int64(i*50))) // spans 550ms < 1s
	}

	issues := Detect(events)
	var found *types.Issue
	for i := range issues {
		if issues[i].Pattern == types.PatternNPlusOne {
			found = &issues[i]
		}
	}
	if found == nil {
		t.Fatalf("expected exactly one n-plus-one issue, got none in %+v", issues)
	}
	if found.Severity != types.SeverityHigh {
		t.Fatalf("severity = %v, want high", found.Severity)
	}
	if found.Evidence.Count != 12 {
		t.Fatalf("evidence count = %d, want 12", found.Evidence.Count)
	}
}

func TestDetectIsPure(t *testing.T) {
	events := []types.Event{
		{Header: types.Header{EventID: "n1", SessionID: "s1", Timestamp: 1}, Tag: types.TagNetwork,
			Network: &types.NetworkBody{Method: "GET", URL: "/x", Status: 500, DurationMs: 10}},
	}
	a := Detect(events)
	b := Detect(events)
	if len(a) != len(b) || len(a) != 1 {
		t.Fatalf("Detect not deterministic or wrong count: %v vs %v", a, b)
	}
	if a[0].Pattern != b[0].Pattern || a[0].Severity != b[0].Severity {
		t.Fatalf("Detect not deterministic: %+v vs %+v", a[0], b[0])
	}
}

func TestFailedRequestSeverity(t *testing.T) {
	events := []types.Event{
		{Header: types.Header{EventID: "n1", SessionID: "s1", Timestamp: 1}, Tag: types.TagNetwork,
			Network: &types.NetworkBody{Method: "GET", URL: "/x", Status: 500}},
		{Header: types.Header{EventID: "n2", SessionID: "s1", Timestamp: 2}, Tag: types.TagNetwork,
			Network: &types.NetworkBody{Method: "GET", URL: "/y", Status: 404}},
	}
	issues := Detect(events)
	if len(issues) != 2 {
		t.Fatalf("len(issues) = %d, want 2", len(issues))
	}
	// severity descending: the 500 (high) must sort before the 404 (medium)
	if issues[0].Severity != types.SeverityHigh || issues[1].Severity != types.SeverityMedium {
		t.Fatalf("unexpected severity order: %+v", issues)
	}
}

func TestSlowRequest(t *testing.T) {
	events := []types.Event{
		{Header: types.Header{EventID: "n1", SessionID: "s1", Timestamp: 1}, Tag: types.TagNetwork,
			Network: &types.NetworkBody{Method: "GET", URL: "/x", Status: 200, DurationMs: 3500}},
	}
	issues := Detect(events)
	if len(issues) != 1 || issues[0].Pattern != types.PatternSlowRequest {
		t.Fatalf("expected one slow-request issue, got %+v", issues)
	}
}

func TestHighErrorRateRequiresMinimumSamples(t *testing.T) {
	var events []types.Event
	for i := 0; i < 10; i++ {
		events = append(events, types.Event{
			Header: types.Header{EventID: fmt.Sprintf("c%d", i), SessionID: "s1", Timestamp: int64(i)},
			Tag:    types.TagConsole,
			Console: &types.ConsoleBody{Level: types.ConsoleError, Message: "x"},
		})
	}
	// Only 10 samples (< 20): high-error-rate must not fire even at 100% errors.
	issues := Detect(events)
	for _, iss := range issues {
		if iss.Pattern == types.PatternHighErrorRate {
			t.Fatalf("high-error-rate fired below the minimum sample threshold: %+v", iss)
		}
	}
}
