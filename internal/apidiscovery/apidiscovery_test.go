package apidiscovery

import (
	"fmt"
	"testing"

	"github.com/devlens/devlens/internal/types"
)

func networkEvent(id string, ts int64, url string, status, durationMs int) types.Event {
	return types.Event{
		Header:  types.Header{EventID: id, SessionID: "s1", Timestamp: ts},
		Tag:     types.TagNetwork,
		Network: &types.NetworkBody{Method: "GET", URL: url, Status: status, DurationMs: durationMs},
	}
}

func TestStatsNormalizesPathAndComputesPercentiles(t *testing.T) {
	var events []types.Event
	for i := 0; i < 10; i++ {
		events = append(events, networkEvent(fmt.Sprintf("n%d", i), int64(i), "/api/users/123", 200, 50+i))
	}
	stats := Stats(events)
	if len(stats) != 1 {
		t.Fatalf("len(stats) = %d, want 1", len(stats))
	}
	ep := stats[0]
	if ep.PathTemplate != "/api/users/:id" {
		t.Fatalf("PathTemplate = %q, want /api/users/:id", ep.PathTemplate)
	}
	if ep.Key() != "GET /api/users/:id" {
		t.Fatalf("Key() = %q", ep.Key())
	}
	if ep.SampleCount != 10 {
		t.Fatalf("SampleCount = %d, want 10", ep.SampleCount)
	}
}

// TestAPIDegradation is scenario S5 from spec.md §8.
func TestAPIDegradation(t *testing.T) {
	var events []types.Event
	ts := int64(0)
	for i := 0; i < 20; i++ {
		events = append(events, networkEvent(fmt.Sprintf("a%d", i), ts, "/api/users/123", 200, 50))
		ts++
	}
	for i := 0; i < 20; i++ {
		events = append(events, networkEvent(fmt.Sprintf("b%d", i), ts, "/api/users/123", 200, 500))
		ts++
	}

	issues := Regressions(events)
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, want 1: %+v", len(issues), issues)
	}
	if issues[0].Pattern != types.PatternAPIDegradation {
		t.Fatalf("Pattern = %v, want api-degradation", issues[0].Pattern)
	}
	if issues[0].Severity != types.SeverityHigh {
		t.Fatalf("Severity = %v, want high", issues[0].Severity)
	}
}

func TestRegressionsRequireMinimumSamples(t *testing.T) {
	var events []types.Event
	for i := 0; i < 10; i++ {
		events = append(events, networkEvent(fmt.Sprintf("a%d", i), int64(i), "/x", 200, 50))
	}
	for i := 0; i < 10; i++ {
		events = append(events, networkEvent(fmt.Sprintf("b%d", i), int64(10+i), "/x", 200, 5000))
	}
	// Only 20 total samples is exactly at the threshold; drop to 19 here.
	events = events[:19]
	issues := Regressions(events)
	if len(issues) != 0 {
		t.Fatalf("expected no regression below the minimum sample threshold, got %+v", issues)
	}
}
