// session.go — the Session record (§3). The registry (package registry)
// owns the mutable isConnected/lastSeenAt/transport fields; this struct is
// the value type handed back from read queries.
package types

import "time"

// Session is a snapshot of one logical instrumented-process connection.
type Session struct {
	SessionID   string    `json:"sessionId"`
	AppName     string    `json:"appName"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	IsConnected bool      `json:"isConnected"`
}

// SessionInfo is getSessionInfo's per-session result: the registry snapshot
// joined with a per-session event count (§4.2).
type SessionInfo struct {
	Session
	EventCount int `json:"eventCount"`
}
