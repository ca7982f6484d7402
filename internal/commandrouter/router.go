// router.go — the command router (C5). Sends an outbound command down a
// session's transport and waits for a correlated command_reply, a timeout,
// a disconnect, or a shutdown — whichever comes first (§4.5, invariant 3).
//
// Pending-reply correlation (design note §9): a map of requestId -> one-shot
// resolver guarded by a mutex. Each resolver enforces "resolve exactly
// once" via a buffered channel and sync.Once, so the race between
// timer-fire and reply-arrival can never double-resolve or panic on a
// closed channel.
package commandrouter

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/devlens/devlens/internal/registry"
	"github.com/devlens/devlens/internal/types"
)

// Outcome names how a sendCommand call resolved (§7).
type Outcome string

const (
	OutcomeReply        Outcome = "reply"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeDisconnected Outcome = "disconnected"
	OutcomeShutdown     Outcome = "shutdown"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeNoSession    Outcome = "no-session"
)

// Result is what sendCommand resolves with.
type Result struct {
	Outcome Outcome
	Data    json.RawMessage
	Err     string
}

// DefaultTimeout matches spec.md §4.5 "default 10 s".
const DefaultTimeout = 10 * time.Second

// resolver is a one-shot channel: the first of SendCommand, the timer, or
// a disconnect/shutdown sweep to call resolve() wins; later calls are
// no-ops (§9 "resolve exactly once").
type resolver struct {
	once sync.Once
	ch   chan Result
}

func newResolver() *resolver {
	return &resolver{ch: make(chan Result, 1)}
}

func (r *resolver) resolve(res Result) {
	r.once.Do(func() {
		r.ch <- res
	})
}

// sessionKey groups pending requests by session so disconnect/shutdown can
// resolve every outstanding waiter for a session in one pass.
type pending struct {
	sessionID string
	command   string
	resolver  *resolver
}

// Router implements sendCommand against a session registry.
type Router struct {
	mu      sync.Mutex
	waiters map[string]*pending // requestId -> pending
}

// New creates an empty Router.
func New() *Router {
	return &Router{waiters: map[string]*pending{}}
}

// SendCommand writes frame down sessionID's transport and blocks until a
// matching command_reply arrives, timeout expires, the session
// disconnects, the router shuts down, or ctx is cancelled — exactly one of
// these (invariant 3).
func (rt *Router) SendCommand(reg *registry.Registry, sessionID string, frame types.CommandFrame, timeout time.Duration, cancel <-chan struct{}) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport, ok := reg.Lookup(sessionID)
	if !ok {
		return Result{Outcome: OutcomeNoSession}
	}

	res := newResolver()
	rt.mu.Lock()
	rt.waiters[frame.RequestID] = &pending{sessionID: sessionID, command: frame.Command, resolver: res}
	rt.mu.Unlock()
	defer rt.forget(frame.RequestID)

	payload, err := json.Marshal(frame)
	if err != nil {
		return Result{Outcome: OutcomeDisconnected, Err: fmt.Sprintf("encode command: %v", err)}
	}
	if err := transport.Send(payload); err != nil {
		return Result{Outcome: OutcomeDisconnected, Err: err.Error()}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-res.ch:
		return r
	case <-timer.C:
		res.resolve(Result{Outcome: OutcomeTimeout})
		return <-res.ch
	case <-cancel:
		res.resolve(Result{Outcome: OutcomeCancelled})
		return <-res.ch
	}
}

// forget removes requestId's waiter once SendCommand returns. Late replies
// for a forgotten requestId are discarded by Resolve's map lookup.
func (rt *Router) forget(requestID string) {
	rt.mu.Lock()
	delete(rt.waiters, requestID)
	rt.mu.Unlock()
}

// Resolve is called by the connection reader on an inbound command_reply
// frame. A requestId with no matching waiter (already timed out, or never
// existed) is a no-op (§4.5 "late replies are discarded").
func (rt *Router) Resolve(reply types.CommandReply) {
	rt.mu.Lock()
	p, ok := rt.waiters[reply.RequestID]
	rt.mu.Unlock()
	if !ok {
		return
	}
	p.resolver.resolve(Result{Outcome: OutcomeReply, Data: reply.Data, Err: reply.Error})
}

// DisconnectSession resolves every outstanding waiter for sessionID with
// OutcomeDisconnected (§4.4 "Disconnect").
func (rt *Router) DisconnectSession(sessionID string) {
	rt.mu.Lock()
	var matched []*pending
	for _, p := range rt.waiters {
		if p.sessionID == sessionID {
			matched = append(matched, p)
		}
	}
	rt.mu.Unlock()
	for _, p := range matched {
		p.resolver.resolve(Result{Outcome: OutcomeDisconnected})
	}
}

// Shutdown resolves every outstanding waiter with OutcomeShutdown (§5
// "Server shutdown cancels all waiters with shutdown").
func (rt *Router) Shutdown() {
	rt.mu.Lock()
	var all []*pending
	for _, p := range rt.waiters {
		all = append(all, p)
	}
	rt.mu.Unlock()
	for _, p := range all {
		p.resolver.resolve(Result{Outcome: OutcomeShutdown})
	}
}

// PeekCommand reports the command name of an in-flight requestId, or "" if
// no waiter is registered for it. Used by the collector to decide whether a
// reply must also be stored as an event (§4.5).
func (rt *Router) PeekCommand(requestID string) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	p, ok := rt.waiters[requestID]
	if !ok {
		return ""
	}
	return p.command
}

// SessionForRequest reports the session id a still-pending requestId was
// issued against, or "" if unknown.
func (rt *Router) SessionForRequest(requestID string) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	p, ok := rt.waiters[requestID]
	if !ok {
		return ""
	}
	return p.sessionID
}

// PendingCount reports the number of in-flight commands, for tests and metrics.
func (rt *Router) PendingCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.waiters)
}
