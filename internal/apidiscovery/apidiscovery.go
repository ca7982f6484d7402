// Package apidiscovery folds the network ring into per-endpoint stats (C7,
// §4.7): count, duration percentiles, per-status counts, last-seen
// timestamp, and GraphQL operation names, keyed by endpointKey = method +
// " " + pathTemplate. Schema inference is explicitly out of scope (§4.7).
package apidiscovery

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/devlens/devlens/internal/types"
	"github.com/devlens/devlens/internal/urltemplate"
)

// sampleCap bounds the per-endpoint duration sample (§4.7 "cap 1,000").
const sampleCap = 1000

// regressionMinSamples is the minimum sample count before the regression
// rule considers an endpoint (§4.7).
const regressionMinSamples = 20

const (
	regressionRatio  = 1.5
	regressionFloor  = 200.0 // ms
)

// accumulator is the mutable per-endpoint state built while folding events.
// valueSorted is kept sorted ascending for percentile lookups; timeOrdered
// keeps the most recent sampleCap durations in arrival order so the
// regression rule can split them into baseline/recent halves.
type accumulator struct {
	method       string
	pathTemplate string
	total        int
	valueSorted  []int
	timeOrdered  []int
	statuses     types.StatusCounts
	lastSeenAt   int64
	graphqlSeen  map[string]bool
	durationSum  float64
}

func newAccumulator(method, pathTemplate string) *accumulator {
	return &accumulator{
		method:       method,
		pathTemplate: pathTemplate,
		statuses:     types.StatusCounts{},
		graphqlSeen:  map[string]bool{},
	}
}

func (a *accumulator) add(status, durationMs int, ts int64, graphqlOp string) {
	a.total++
	a.statuses[status]++
	a.durationSum += float64(durationMs)
	if ts > a.lastSeenAt {
		a.lastSeenAt = ts
	}
	if graphqlOp != "" {
		a.graphqlSeen[graphqlOp] = true
	}

	a.insertSorted(durationMs)

	a.timeOrdered = append(a.timeOrdered, durationMs)
	if len(a.timeOrdered) > sampleCap {
		a.timeOrdered = a.timeOrdered[len(a.timeOrdered)-sampleCap:]
	}
}

// insertSorted keeps valueSorted ascending, capped at sampleCap via
// reservoir-style replacement once full (§4.7 "insertion-sorted bounded
// sample... reservoir-style replacement thereafter").
func (a *accumulator) insertSorted(d int) {
	if len(a.valueSorted) < sampleCap {
		i := sort.SearchInts(a.valueSorted, d)
		a.valueSorted = append(a.valueSorted, 0)
		copy(a.valueSorted[i+1:], a.valueSorted[i:])
		a.valueSorted[i] = d
		return
	}
	if rand.Intn(a.total) >= sampleCap {
		return
	}
	victim := rand.Intn(len(a.valueSorted))
	a.valueSorted = append(a.valueSorted[:victim], a.valueSorted[victim+1:]...)
	i := sort.SearchInts(a.valueSorted, d)
	a.valueSorted = append(a.valueSorted, 0)
	copy(a.valueSorted[i+1:], a.valueSorted[i:])
	a.valueSorted[i] = d
}

func percentile(sorted []int, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return float64(sorted[rank])
}

func percentileOf(values []int, p float64) float64 {
	cp := append([]int(nil), values...)
	sort.Ints(cp)
	return percentile(cp, p)
}

func (a *accumulator) toEndpoint() types.Endpoint {
	ops := make([]string, 0, len(a.graphqlSeen))
	for op := range a.graphqlSeen {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	errorCount := 0
	for status, n := range a.statuses {
		if status >= 400 {
			errorCount += n
		}
	}

	return types.Endpoint{
		Method:       a.method,
		PathTemplate: a.pathTemplate,
		SampleCount:  a.total,
		AvgDuration:  a.durationSum / float64(a.total),
		P50:          percentile(a.valueSorted, 0.50),
		P95:          percentile(a.valueSorted, 0.95),
		P99:          percentile(a.valueSorted, 0.99),
		ErrorRate:    float64(errorCount) / float64(a.total),
		LastSeenAt:   a.lastSeenAt,
		Statuses:     a.statuses,
		GraphQLOps:   ops,
	}
}

// fold walks events in timestamp order and returns one accumulator per
// endpointKey.
func fold(events []types.Event) map[string]*accumulator {
	ordered := make([]types.Event, 0, len(events))
	for _, evt := range events {
		if evt.Tag == types.TagNetwork && evt.Network != nil {
			ordered = append(ordered, evt)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp < ordered[j].Timestamp })

	byKey := map[string]*accumulator{}
	for _, evt := range ordered {
		n := evt.Network
		path := urltemplate.Normalize(n.URL)
		key := n.Method + " " + path
		acc, ok := byKey[key]
		if !ok {
			acc = newAccumulator(n.Method, path)
			byKey[key] = acc
		}
		op := ""
		if n.GraphQL != nil {
			op = n.GraphQL.Name
		}
		acc.add(n.Status, n.DurationMs, evt.Timestamp, op)
	}
	return byKey
}

// Stats returns every observed endpoint's aggregate, sorted by endpointKey
// (§3 "Endpoint aggregate").
func Stats(events []types.Event) []types.Endpoint {
	byKey := fold(events)
	out := make([]types.Endpoint, 0, len(byKey))
	for _, acc := range byKey {
		out = append(out, acc.toEndpoint())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Regressions implements the §4.7 regression rule: split an endpoint's
// time-ordered samples into an older baseline half and a recent half; flag
// an api-degradation issue when recent.p95 outgrows baseline.p95 by more
// than 1.5x and exceeds a 200ms floor.
func Regressions(events []types.Event) []types.Issue {
	byKey := fold(events)
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []types.Issue
	for _, key := range keys {
		acc := byKey[key]
		if len(acc.timeOrdered) < regressionMinSamples {
			continue
		}
		mid := len(acc.timeOrdered) / 2
		baselineP95 := percentileOf(acc.timeOrdered[:mid], 0.95)
		recentP95 := percentileOf(acc.timeOrdered[mid:], 0.95)

		if baselineP95 <= 0 {
			continue
		}
		if recentP95 > baselineP95*regressionRatio && recentP95 > regressionFloor {
			out = append(out, types.Issue{
				Severity:    types.SeverityHigh,
				Pattern:     types.PatternAPIDegradation,
				Title:       fmt.Sprintf("%s regressed: p95 %.0fms -> %.0fms", key, baselineP95, recentP95),
				Description: "Recent p95 latency exceeds baseline p95 by more than 1.5x and 200ms.",
				Evidence: types.Evidence{
					Count: len(acc.timeOrdered),
				},
				FirstTimestamp: acc.lastSeenAt,
				Suggestion:     "Compare recent deploys or upstream dependency health for this endpoint.",
			})
		}
	}
	return out
}
