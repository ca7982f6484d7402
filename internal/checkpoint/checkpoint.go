// Package checkpoint lets a caller snapshot the derived view (current
// endpoint aggregates plus detected issues) under a name, and later diff two
// named checkpoints (SPEC_FULL.md §4.8). This generalizes the teacher's
// named browser-state snapshot/diff tool (internal/session) from raw
// browser state to the derived API/issue view this module produces. It is
// read-only over the store, detector, and API-discovery engine — not a new
// storage tier.
package checkpoint

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devlens/devlens/internal/apidiscovery"
	"github.com/devlens/devlens/internal/detect"
	"github.com/devlens/devlens/internal/types"
)

// DefaultMaxCheckpoints bounds how many named checkpoints are retained
// before the oldest is evicted, mirroring the teacher's snapshot manager.
const DefaultMaxCheckpoints = 20

// Checkpoint is one named snapshot of the derived view at CapturedAt.
type Checkpoint struct {
	Name       string
	CapturedAt time.Time
	Endpoints  []types.Endpoint
	Issues     []types.Issue
}

// Summary is the listing shape for List (§4.8), analogous to the teacher's
// SnapshotListEntry.
type Summary struct {
	Name       string
	CapturedAt time.Time
	IssueCount int
	EndpointCount int
}

// EndpointDelta reports a p95 latency change for one endpoint between two
// checkpoints.
type EndpointDelta struct {
	Key      string
	BeforeP95 float64
	AfterP95  float64
}

// Diff is the result of comparing two named checkpoints (§4.8).
type Diff struct {
	Before, After string

	RegressedEndpoints []EndpointDelta
	RecoveredEndpoints []EndpointDelta
	NewEndpoints       []types.Endpoint
	RemovedEndpoints   []types.Endpoint

	NewIssues     []types.Issue
	ClearedIssues []types.Issue
}

// Manager stores named checkpoints with bounded capacity, evicting the
// oldest on overflow (grounded on the teacher's SessionManager).
type Manager struct {
	mu      sync.RWMutex
	points  map[string]*Checkpoint
	order   []string
	maxSize int
}

// New creates a Manager retaining at most maxSize checkpoints.
func New(maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxCheckpoints
	}
	return &Manager{points: map[string]*Checkpoint{}, maxSize: maxSize}
}

// Capture folds events into endpoint stats and detected issues and stores
// the result under name, overwriting any existing checkpoint of that name.
func (m *Manager) Capture(name string, events []types.Event) (*Checkpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("checkpoint name must not be empty")
	}

	cp := &Checkpoint{
		Name:       name,
		CapturedAt: time.Now(),
		Endpoints:  apidiscovery.Stats(events),
		Issues:     detect.Detect(events),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.points[name]; exists {
		m.removeFromOrder(name)
	} else {
		for len(m.order) >= m.maxSize {
			oldest := m.order[0]
			delete(m.points, oldest)
			m.order = m.order[1:]
		}
	}
	m.points[name] = cp
	m.order = append(m.order, name)
	return cp, nil
}

func (m *Manager) removeFromOrder(name string) {
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// List returns every stored checkpoint's summary in capture order.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.order))
	for _, name := range m.order {
		cp := m.points[name]
		out = append(out, Summary{
			Name:          cp.Name,
			CapturedAt:    cp.CapturedAt,
			IssueCount:    len(cp.Issues),
			EndpointCount: len(cp.Endpoints),
		})
	}
	return out
}

// Get returns a stored checkpoint by name.
func (m *Manager) Get(name string) (*Checkpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.points[name]
	return cp, ok
}

// Delete removes a named checkpoint.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.points[name]; !exists {
		return fmt.Errorf("checkpoint %q not found", name)
	}
	delete(m.points, name)
	m.removeFromOrder(name)
	return nil
}

// regressionRatio/regressionFloor mirror apidiscovery's within-window
// regression thresholds, applied here across two checkpoints instead of
// across one window's two halves.
const (
	regressionRatio = 1.5
	regressionFloor = 200.0
)

// Diff compares the before and after checkpoints by name (§4.8): endpoints
// whose p95 latency moved by more than the regression threshold in either
// direction, endpoints that appeared or disappeared, and issues that newly
// fired or cleared.
func (m *Manager) Diff(before, after string) (*Diff, error) {
	b, ok := m.Get(before)
	if !ok {
		return nil, fmt.Errorf("checkpoint %q not found", before)
	}
	a, ok := m.Get(after)
	if !ok {
		return nil, fmt.Errorf("checkpoint %q not found", after)
	}

	beforeEP := map[string]types.Endpoint{}
	for _, ep := range b.Endpoints {
		beforeEP[ep.Key()] = ep
	}
	afterEP := map[string]types.Endpoint{}
	for _, ep := range a.Endpoints {
		afterEP[ep.Key()] = ep
	}

	d := &Diff{Before: before, After: after}

	for key, bep := range beforeEP {
		aep, ok := afterEP[key]
		if !ok {
			d.RemovedEndpoints = append(d.RemovedEndpoints, bep)
			continue
		}
		switch {
		case bep.P95 > 0 && aep.P95 > bep.P95*regressionRatio && aep.P95 > regressionFloor:
			d.RegressedEndpoints = append(d.RegressedEndpoints, EndpointDelta{Key: key, BeforeP95: bep.P95, AfterP95: aep.P95})
		case aep.P95 > 0 && bep.P95 > aep.P95*regressionRatio && bep.P95 > regressionFloor:
			d.RecoveredEndpoints = append(d.RecoveredEndpoints, EndpointDelta{Key: key, BeforeP95: bep.P95, AfterP95: aep.P95})
		}
	}
	for key, aep := range afterEP {
		if _, ok := beforeEP[key]; !ok {
			d.NewEndpoints = append(d.NewEndpoints, aep)
		}
	}

	beforeIssues := map[string]bool{}
	for _, iss := range b.Issues {
		beforeIssues[issueKey(iss)] = true
	}
	afterIssues := map[string]bool{}
	for _, iss := range a.Issues {
		afterIssues[issueKey(iss)] = true
	}
	for _, iss := range a.Issues {
		if !beforeIssues[issueKey(iss)] {
			d.NewIssues = append(d.NewIssues, iss)
		}
	}
	for _, iss := range b.Issues {
		if !afterIssues[issueKey(iss)] {
			d.ClearedIssues = append(d.ClearedIssues, iss)
		}
	}

	sortEndpointDeltas(d.RegressedEndpoints)
	sortEndpointDeltas(d.RecoveredEndpoints)
	sort.Slice(d.NewEndpoints, func(i, j int) bool { return d.NewEndpoints[i].Key() < d.NewEndpoints[j].Key() })
	sort.Slice(d.RemovedEndpoints, func(i, j int) bool { return d.RemovedEndpoints[i].Key() < d.RemovedEndpoints[j].Key() })

	return d, nil
}

func sortEndpointDeltas(deltas []EndpointDelta) {
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Key < deltas[j].Key })
}

// issueKey identifies an issue across checkpoints by rule and title, since
// evidence (event ids, counts) is expected to differ between captures.
func issueKey(iss types.Issue) string {
	return string(iss.Pattern) + "|" + iss.Title
}
