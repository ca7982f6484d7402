package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEventsIngestedCounts(t *testing.T) {
	r := New()
	r.EventsIngested.WithLabelValues("network").Inc()
	r.EventsIngested.WithLabelValues("network").Inc()
	r.EventsIngested.WithLabelValues("console").Inc()

	if got := testutil.ToFloat64(r.EventsIngested.WithLabelValues("network")); got != 2 {
		t.Fatalf("network count = %v, want 2", got)
	}
}

func TestGatherer(t *testing.T) {
	r := New()
	r.SessionsConnected.Set(3)
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family")
	}
}
