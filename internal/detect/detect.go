// detect.go — the issue detector (C6): a pure function from an event
// window to a ranked issue list (§4.6, invariant 5). Nothing here touches
// the store or a clock other than event timestamps already in the window.
package detect

import (
	"fmt"
	"sort"

	"github.com/devlens/devlens/internal/apidiscovery"
	"github.com/devlens/devlens/internal/types"
	"github.com/devlens/devlens/internal/urltemplate"
)

const (
	slowRequestMs   = 3000
	requestStormN   = 10
	requestStormMs  = 5000
	errorSpamN      = 5
	errorSpamMs     = 10000
	highErrorRateMin = 20
	highErrorRateRatio = 0.2
	slowQueryMs     = 500
	nPlusOneN       = 10
	nPlusOneMs      = 2000
)

// Detect runs every rule in spec.md §4.6 over events and returns the
// resulting issues sorted by severity descending, then by first-occurrence
// timestamp (§4.6). Detect is deterministic: the same window always
// produces the same output (invariant 5).
func Detect(events []types.Event) []types.Issue {
	var issues []types.Issue
	issues = append(issues, failedAndSlowRequests(events)...)
	issues = append(issues, requestStorms(events)...)
	issues = append(issues, errorSpam(events)...)
	issues = append(issues, highErrorRate(events)...)
	issues = append(issues, slowQueries(events)...)
	issues = append(issues, nPlusOne(events)...)
	issues = append(issues, renderSuspicion(events)...)
	issues = append(issues, poorWebVitals(events)...)
	issues = append(issues, apidiscovery.Regressions(events)...)

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return types.SeverityLess(issues[i].Severity, issues[j].Severity)
		}
		return issues[i].FirstTimestamp < issues[j].FirstTimestamp
	})
	return issues
}

func failedAndSlowRequests(events []types.Event) []types.Issue {
	var out []types.Issue
	for _, evt := range events {
		if evt.Tag != types.TagNetwork || evt.Network == nil {
			continue
		}
		n := evt.Network
		switch {
		case n.Status >= 500:
			out = append(out, types.Issue{
				Severity: types.SeverityHigh, Pattern: types.PatternFailedRequest,
				Title:       fmt.Sprintf("%s %s returned %d", n.Method, n.URL, n.Status),
				Description: "Server error response observed.",
				Evidence:    types.Evidence{FirstEventID: evt.EventID, LastEventID: evt.EventID, Count: 1},
				FirstTimestamp: evt.Timestamp,
			})
		case n.Status >= 400:
			out = append(out, types.Issue{
				Severity: types.SeverityMedium, Pattern: types.PatternFailedRequest,
				Title:       fmt.Sprintf("%s %s returned %d", n.Method, n.URL, n.Status),
				Description: "Client error response observed.",
				Evidence:    types.Evidence{FirstEventID: evt.EventID, LastEventID: evt.EventID, Count: 1},
				FirstTimestamp: evt.Timestamp,
			})
		}
		if n.DurationMs > slowRequestMs {
			out = append(out, types.Issue{
				Severity: types.SeverityMedium, Pattern: types.PatternSlowRequest,
				Title:       fmt.Sprintf("%s %s took %dms", n.Method, n.URL, n.DurationMs),
				Description: "Request exceeded the slow-request threshold.",
				Evidence:    types.Evidence{FirstEventID: evt.EventID, LastEventID: evt.EventID, Count: 1},
				FirstTimestamp: evt.Timestamp,
				Suggestion:  "Profile the endpoint or add caching.",
			})
		}
	}
	return out
}

// requestStorms flags >10 calls to the same {method, normalized url} within
// a 5s span (§4.6). Uses a sliding window per key over events sorted by
// timestamp.
func requestStorms(events []types.Event) []types.Issue {
	byKey := map[string][]types.Event{}
	for _, evt := range events {
		if evt.Tag != types.TagNetwork || evt.Network == nil {
			continue
		}
		key := evt.Network.Method + " " + urltemplate.Normalize(evt.Network.URL)
		byKey[key] = append(byKey[key], evt)
	}

	var out []types.Issue
	for key, group := range byKey {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Timestamp < group[j].Timestamp })
		for i := 0; i < len(group); i++ {
			j := i
			for j < len(group) && group[j].Timestamp-group[i].Timestamp <= requestStormMs {
				j++
			}
			count := j - i
			if count > requestStormN {
				out = append(out, types.Issue{
					Severity: types.SeverityMedium, Pattern: types.PatternRequestStorm,
					Title:       fmt.Sprintf("Request storm: %s called %d times", key, count),
					Description: "Same endpoint called more than 10 times within 5 seconds.",
					Evidence:    types.Evidence{FirstEventID: group[i].EventID, LastEventID: group[j-1].EventID, Count: count},
					FirstTimestamp: group[i].Timestamp,
				})
				break // one issue per key is enough; avoid overlapping duplicates
			}
		}
	}
	return out
}

func errorSpam(events []types.Event) []types.Issue {
	byMessage := map[string][]types.Event{}
	for _, evt := range events {
		if evt.Tag != types.TagConsole || evt.Console == nil || evt.Console.Level != types.ConsoleError {
			continue
		}
		byMessage[evt.Console.Message] = append(byMessage[evt.Console.Message], evt)
	}

	var out []types.Issue
	for msg, group := range byMessage {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Timestamp < group[j].Timestamp })
		for i := 0; i < len(group); i++ {
			j := i
			for j < len(group) && group[j].Timestamp-group[i].Timestamp <= errorSpamMs {
				j++
			}
			count := j - i
			if count > errorSpamN {
				out = append(out, types.Issue{
					Severity: types.SeverityMedium, Pattern: types.PatternErrorSpam,
					Title:       fmt.Sprintf("Repeated console error: %q", msg),
					Description: "Same error message logged more than 5 times within 10 seconds.",
					Evidence:    types.Evidence{FirstEventID: group[i].EventID, LastEventID: group[j-1].EventID, Count: count},
					FirstTimestamp: group[i].Timestamp,
				})
				break
			}
		}
	}
	return out
}

func highErrorRate(events []types.Event) []types.Issue {
	var total, errors int
	var first, last types.Event
	haveFirst := false
	for _, evt := range events {
		if evt.Tag != types.TagConsole || evt.Console == nil {
			continue
		}
		total++
		if !haveFirst {
			first = evt
			haveFirst = true
		}
		last = evt
		if evt.Console.Level == types.ConsoleError {
			errors++
		}
	}
	if total < highErrorRateMin {
		return nil
	}
	if float64(errors)/float64(total) <= highErrorRateRatio {
		return nil
	}
	return []types.Issue{{
		Severity: types.SeverityHigh, Pattern: types.PatternHighErrorRate,
		Title:       fmt.Sprintf("%.0f%% of console messages are errors", 100*float64(errors)/float64(total)),
		Description: "Error rate across console output exceeds 20% of at least 20 samples.",
		Evidence:    types.Evidence{FirstEventID: first.EventID, LastEventID: last.EventID, Count: errors},
		FirstTimestamp: first.Timestamp,
	}}
}

func slowQueries(events []types.Event) []types.Issue {
	var out []types.Issue
	for _, evt := range events {
		if evt.Tag != types.TagDatabase || evt.Database == nil {
			continue
		}
		if evt.Database.DurationMs > slowQueryMs {
			out = append(out, types.Issue{
				Severity: types.SeverityMedium, Pattern: types.PatternSlowQuery,
				Title:       fmt.Sprintf("Slow query (%dms): %s", evt.Database.DurationMs, evt.Database.NormalizedQuery),
				Description: "Query exceeded 500ms.",
				Evidence:    types.Evidence{FirstEventID: evt.EventID, LastEventID: evt.EventID, Count: 1},
				FirstTimestamp: evt.Timestamp,
			})
		}
	}
	return out
}

// nPlusOne flags the same normalizedQuery executed >10 times within 2s
// from one session (§4.6).
func nPlusOne(events []types.Event) []types.Issue {
	type key struct {
		session, query string
	}
	byKey := map[key][]types.Event{}
	for _, evt := range events {
		if evt.Tag != types.TagDatabase || evt.Database == nil {
			continue
		}
		k := key{evt.SessionID, evt.Database.NormalizedQuery}
		byKey[k] = append(byKey[k], evt)
	}

	var out []types.Issue
	for k, group := range byKey {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Timestamp < group[j].Timestamp })
		for i := 0; i < len(group); i++ {
			j := i
			for j < len(group) && group[j].Timestamp-group[i].Timestamp <= nPlusOneMs {
				j++
			}
			count := j - i
			if count > nPlusOneN {
				out = append(out, types.Issue{
					Severity: types.SeverityHigh, Pattern: types.PatternNPlusOne,
					Title:       fmt.Sprintf("Likely N+1 query: %q executed %d times", k.query, count),
					Description: "Same query executed more than 10 times within 2 seconds from one session.",
					Evidence:    types.Evidence{FirstEventID: group[i].EventID, LastEventID: group[j-1].EventID, Count: count},
					FirstTimestamp: group[i].Timestamp,
					Suggestion:  "Batch these reads or add eager loading.",
				})
				break
			}
		}
	}
	return out
}

func renderSuspicion(events []types.Event) []types.Issue {
	var out []types.Issue
	for _, evt := range events {
		if evt.Tag != types.TagRender || evt.Render == nil {
			continue
		}
		if len(evt.Render.SuspiciousComponents) > 0 {
			out = append(out, types.Issue{
				Severity: types.SeverityMedium, Pattern: types.PatternRenderSuspicion,
				Title:       fmt.Sprintf("Suspicious re-renders: %v", evt.Render.SuspiciousComponents),
				Description: "One or more components show an abnormal render velocity.",
				Evidence:    types.Evidence{FirstEventID: evt.EventID, LastEventID: evt.EventID, Count: len(evt.Render.SuspiciousComponents)},
				FirstTimestamp: evt.Timestamp,
			})
		}
	}
	return out
}

func poorWebVitals(events []types.Event) []types.Issue {
	var out []types.Issue
	for _, evt := range events {
		if evt.Tag != types.TagPerformance || evt.Performance == nil {
			continue
		}
		if evt.Performance.Rating == types.RatingPoor {
			out = append(out, types.Issue{
				Severity: types.SeverityMedium, Pattern: types.PatternPoorWebVital,
				Title:       fmt.Sprintf("Poor %s: %.0f%s", evt.Performance.MetricName, evt.Performance.Value, evt.Performance.Unit),
				Description: "Web Vital rated poor by the producer.",
				Evidence:    types.Evidence{FirstEventID: evt.EventID, LastEventID: evt.EventID, Count: 1},
				FirstTimestamp: evt.Timestamp,
			})
		}
	}
	return out
}
