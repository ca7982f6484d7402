// event.go — the Event tagged union. One struct carries every event tag;
// only the body fields for Tag are meaningful. Events are immutable once
// stored: nothing in this package mutates an Event after construction.
package types

import (
	"encoding/json"
	"fmt"
)

// Tag identifies which body fields of an Event are populated.
type Tag string

const (
	TagSession     Tag = "session"
	TagNetwork     Tag = "network"
	TagConsole     Tag = "console"
	TagState       Tag = "state"
	TagRender      Tag = "render"
	TagPerformance Tag = "performance"
	TagDatabase    Tag = "database"
	TagDOMSnapshot Tag = "dom_snapshot"
)

// IsReconTag reports whether tag is one of the opaque recon_* family
// (§3: "recon_* — see §6 payloads (treated opaquely by the core)").
func IsReconTag(tag Tag) bool {
	return len(tag) > 6 && tag[:6] == "recon_"
}

// KnownTags lists every tag the store can classify without consulting
// IsReconTag. Unknown, non-recon tags are soft errors (§7 invalid-event).
var KnownTags = map[Tag]bool{
	TagSession: true, TagNetwork: true, TagConsole: true, TagState: true,
	TagRender: true, TagPerformance: true, TagDatabase: true, TagDOMSnapshot: true,
}

// Header fields are common to every stored Event (§3).
type Header struct {
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

// Event is the tagged union stored by the event store. Exactly one of the
// body pointers matching Tag is non-nil for typed tags; Recon carries the
// raw body for every recon_* tag, which the core never interprets.
type Event struct {
	Header
	Tag Tag `json:"-"`

	Session     *SessionBody     `json:"-"`
	Network     *NetworkBody     `json:"-"`
	Console     *ConsoleBody     `json:"-"`
	State       *StateBody       `json:"-"`
	Render      *RenderBody      `json:"-"`
	Performance *PerformanceBody `json:"-"`
	Database    *DatabaseBody    `json:"-"`
	DOMSnapshot *DOMSnapshotBody `json:"-"`
	Recon       json.RawMessage  `json:"-"`

	// Tags carries free-form producer metadata. Never interpreted by the
	// core; stored and returned verbatim.
	Tags map[string]string `json:"-"`
}

// Valid reports whether the event satisfies the store's ingestion
// invariants: non-empty session id, known or recon tag, and a body present
// for typed tags (§4.2 "rejects with invalid-event").
func (e *Event) Valid() error {
	if e.SessionID == "" {
		return fmt.Errorf("invalid-event: missing sessionId")
	}
	if IsReconTag(e.Tag) {
		return nil
	}
	if !KnownTags[e.Tag] {
		return fmt.Errorf("invalid-event: unknown tag %q", e.Tag)
	}
	if e.body() == nil {
		return fmt.Errorf("invalid-event: tag %q missing body", e.Tag)
	}
	return nil
}

// body returns the populated body for a typed tag, or nil if absent.
func (e *Event) body() any {
	switch e.Tag {
	case TagSession:
		return e.Session
	case TagNetwork:
		return e.Network
	case TagConsole:
		return e.Console
	case TagState:
		return e.State
	case TagRender:
		return e.Render
	case TagPerformance:
		return e.Performance
	case TagDatabase:
		return e.Database
	case TagDOMSnapshot:
		return e.DOMSnapshot
	default:
		return nil
	}
}

// SessionBody is the body of a "session" event (§3).
type SessionBody struct {
	AppName     string `json:"appName"`
	ConnectedAt int64  `json:"connectedAt"`
	SDKVersion  string `json:"sdkVersion"`
}

// GraphQLInfo is the optional GraphQL envelope carried on a network event.
type GraphQLInfo struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// NetworkBody is the body of a "network" event (§3).
type NetworkBody struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Status          int               `json:"status"`
	DurationMs      int               `json:"duration"`
	RequestHeaders  map[string]string `json:"requestHeaders,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	RequestSize     int64             `json:"requestSize,omitempty"`
	ResponseSize    int64             `json:"responseSize,omitempty"`
	GraphQL         *GraphQLInfo      `json:"graphql,omitempty"`
}

// ConsoleLevel enumerates the levels a console event can carry.
type ConsoleLevel string

const (
	ConsoleLog   ConsoleLevel = "log"
	ConsoleWarn  ConsoleLevel = "warn"
	ConsoleError ConsoleLevel = "error"
	ConsoleInfo  ConsoleLevel = "info"
	ConsoleDebug ConsoleLevel = "debug"
	ConsoleTrace ConsoleLevel = "trace"
)

// ConsoleBody is the body of a "console" event (§3).
type ConsoleBody struct {
	Level      ConsoleLevel `json:"level"`
	Message    string       `json:"message"`
	Args       []string     `json:"args,omitempty"`
	StackTrace string       `json:"stackTrace,omitempty"`
	SourceFile string       `json:"sourceFile,omitempty"`
}

// StateBody is the body of a "state" event (§3) — a store mutation in a
// client-side state management library (Redux, Zustand, Pinia, ...).
type StateBody struct {
	StoreID string          `json:"storeId"`
	Library string          `json:"library"`
	Phase   string          `json:"phase"`
	Action  string          `json:"action,omitempty"`
	Diff    json.RawMessage `json:"diff,omitempty"`
}

// ComponentRenderProfile is one component's entry in a render event's profiles.
type ComponentRenderProfile struct {
	ComponentName   string  `json:"componentName"`
	RenderCount     int     `json:"renderCount"`
	TotalDuration   float64 `json:"totalDuration"`
	AvgDuration     float64 `json:"avgDuration"`
	RenderVelocity  float64 `json:"renderVelocity"`
	Suspicious      bool    `json:"suspicious"`
}

// RenderBody is the body of a "render" event (§3) — a window of component
// render activity from a React/Vue/Svelte profiler hook.
type RenderBody struct {
	Profiles             []ComponentRenderProfile `json:"profiles"`
	TotalRenders          int                      `json:"totalRenders"`
	SuspiciousComponents  []string                 `json:"suspiciousComponents,omitempty"`
	SnapshotWindowMs      int                      `json:"snapshotWindowMs"`
}

// PerformanceRating enumerates the Web Vitals rating buckets. Absent for
// server-originated metrics (design note §9.2): the detector must tolerate
// either a set rating or the zero value.
type PerformanceRating string

const (
	RatingGood               PerformanceRating = "good"
	RatingNeedsImprovement    PerformanceRating = "needs-improvement"
	RatingPoor               PerformanceRating = "poor"
)

// PerformanceBody is the body of a "performance" event (§3).
type PerformanceBody struct {
	MetricName string            `json:"metricName"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit"`
	Rating     PerformanceRating `json:"rating,omitempty"`
	Element    string            `json:"element,omitempty"`
}

// DBOperation enumerates the normalized SQL operation kinds.
type DBOperation string

const (
	OpSelect DBOperation = "SELECT"
	OpInsert DBOperation = "INSERT"
	OpUpdate DBOperation = "UPDATE"
	OpDelete DBOperation = "DELETE"
	OpOther  DBOperation = "OTHER"
)

// DatabaseBody is the body of a "database" event (§3) — one query
// observation from an instrumented driver wrapper.
type DatabaseBody struct {
	Query           string      `json:"query"`
	NormalizedQuery string      `json:"normalizedQuery"`
	DurationMs      int         `json:"duration"`
	Operation       DBOperation `json:"operation"`
	TablesAccessed  []string    `json:"tablesAccessed,omitempty"`
	RowsReturned    *int        `json:"rowsReturned,omitempty"`
	RowsAffected    *int        `json:"rowsAffected,omitempty"`
	Source          string      `json:"source,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Viewport describes a captured DOM snapshot's viewport size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScrollPosition describes a captured DOM snapshot's scroll offset.
type ScrollPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DOMSnapshotBody is the body of a "dom_snapshot" event (§3) — also the
// stored shape of a capture_dom_snapshot command reply (§4.5).
type DOMSnapshotBody struct {
	URL            string         `json:"url"`
	HTML           string         `json:"html"`
	Viewport       Viewport       `json:"viewport"`
	ScrollPosition ScrollPosition `json:"scrollPosition"`
	ElementCount   int            `json:"elementCount"`
	Truncated      bool           `json:"truncated"`
}
