// registry.go — the session registry (C3): a sessionId -> transport map
// guarded by one mutex. The registry owns the Transport value; nothing
// holds a back-pointer from a transport to its connection task (design
// note §9, "resolve cyclic references by making the registry the owner").
package registry

import (
	"sync"
	"time"

	"github.com/devlens/devlens/internal/types"
)

// Transport is whatever a connection task hands the registry to represent
// a live, writable socket. The collector server implements this over a
// websocket connection; tests can supply a fake.
type Transport interface {
	// Send writes an outbound frame. Returns an error if the socket is
	// already closed.
	Send(frame []byte) error
	// Closed reports whether the underlying socket has been closed.
	Closed() bool
}

// entry is the registry's internal bookkeeping for one session.
type entry struct {
	session   types.Session
	transport Transport
}

// Registry maps sessionId to transport and tracks session lifecycle
// (§4.3). Re-registering an existing session id replaces the transport and
// leaves prior history untouched — history lives in the store, not here.
type Registry struct {
	mu      sync.Mutex
	byID    map[string]*entry
	order   []string // first-registration order, for firstConnected()
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byID: map[string]*entry{}}
}

// Register inserts or replaces the transport for sessionId (§4.3, invariant 4).
func (r *Registry) Register(sessionID, appName string, transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if e, exists := r.byID[sessionID]; exists {
		e.transport = transport
		e.session.IsConnected = true
		e.session.LastSeenAt = now
		if appName != "" {
			e.session.AppName = appName
		}
		return
	}
	r.byID[sessionID] = &entry{
		session: types.Session{
			SessionID:   sessionID,
			AppName:     appName,
			ConnectedAt: now,
			LastSeenAt:  now,
			IsConnected: true,
		},
		transport: transport,
	}
	r.order = append(r.order, sessionID)
}

// Touch updates lastSeenAt for sessionID, if registered.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[sessionID]; ok {
		e.session.LastSeenAt = time.Now()
	}
}

// Unregister marks a session disconnected. The record and its event
// history remain queryable (§3 "Lifecycle").
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[sessionID]; ok {
		e.session.IsConnected = false
		e.transport = nil
	}
}

// Lookup returns the transport for a connected session, or (nil, false) if
// the session is unknown or disconnected (§4.5 "no-session").
func (r *Registry) Lookup(sessionID string) (Transport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[sessionID]
	if !ok || !e.session.IsConnected || e.transport == nil {
		return nil, false
	}
	return e.transport, true
}

// FirstConnected returns the session id of the earliest-registered session
// still known to the registry, or "" if none.
func (r *Registry) FirstConnected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if _, ok := r.byID[id]; ok {
			return id
		}
	}
	return ""
}

// All returns a snapshot of every known session, in registration order.
func (r *Registry) All() []types.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Session, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.byID[id]; ok {
			out = append(out, e.session)
		}
	}
	return out
}

// Evict removes sessionID's record entirely. Called by the retention
// sweep once a disconnected session's ring entries are all evicted
// (§3 "Lifecycle").
func (r *Registry) Evict(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, sessionID)
}

// Disconnected reports sessions currently marked not connected, for use by
// the retention sweep.
func (r *Registry) Disconnected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, id := range r.order {
		if e, ok := r.byID[id]; ok && !e.session.IsConnected {
			out = append(out, id)
		}
	}
	return out
}
