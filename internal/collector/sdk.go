// sdk.go — the /sdk bidirectional endpoint (§4.4). Applies the first-frame
// session contract, stores inbound events, routes command_reply frames to
// the command router, and tears the session down cleanly on disconnect.
package collector

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"net/http"

	"github.com/devlens/devlens/internal/types"
)

const connWriteTimeout = 5 * time.Second

func (c *Collector) handleSDK(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.WithError(err).Warn("sdk upgrade failed")
		return
	}

	transport := newWSTransport(conn, c.cfg.ConnWriteQueueSize, connWriteTimeout)
	defer transport.Close()

	sess := &sdkSession{
		collector: c,
		transport: transport,
		pending:   make([]types.Event, 0, c.cfg.SessionBufferCap),
	}
	sess.run(conn)
}

// sdkSession tracks the pre-session-frame event buffer and the resolved
// session id for one /sdk connection (§4.4 "First-frame contract").
type sdkSession struct {
	collector *Collector
	transport *wsTransport

	sessionID string
	pending   []types.Event
}

func (s *sdkSession) run(conn *websocket.Conn) {
	c := s.collector
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.disconnect()
			return
		}

		var frame types.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.metrics.FramesDecodeFail.Inc()
			continue // invalid-frame: discarded, connection retained (§4.4, §7)
		}

		switch {
		case frame.CommandReply != nil:
			c.handleCommandReply(*frame.CommandReply)
		case frame.Event != nil:
			s.handleEvent(*frame.Event)
		}
	}
}

func (s *sdkSession) handleEvent(evt types.Event) {
	c := s.collector

	if s.sessionID == "" {
		if evt.Tag != types.TagSession {
			if len(s.pending) < c.cfg.SessionBufferCap {
				s.pending = append(s.pending, evt)
			}
			return
		}
		s.sessionID = evt.SessionID
		c.reg.Register(evt.SessionID, bodyAppName(evt), s.transport)
		c.metrics.SessionsConnected.Set(float64(len(c.reg.All())))
		c.storeEvent(evt)
		for _, buffered := range s.pending {
			c.storeEvent(buffered)
		}
		s.pending = nil
		return
	}

	c.reg.Touch(s.sessionID)
	c.storeEvent(evt)
}

func (s *sdkSession) disconnect() {
	if s.sessionID == "" {
		return
	}
	c := s.collector
	c.reg.Unregister(s.sessionID)
	c.router.DisconnectSession(s.sessionID)
	c.metrics.SessionsConnected.Set(float64(len(c.reg.All())))
}

func bodyAppName(evt types.Event) string {
	if evt.Session != nil {
		return evt.Session.AppName
	}
	return ""
}

// storeEvent classifies and appends evt, counting invalid-event rejections
// rather than surfacing them to the producer (§7 "a failure to store is
// silently counted").
func (c *Collector) storeEvent(evt types.Event) {
	c.redactor.ScrubEvent(&evt)
	if err := c.store.Add(evt); err != nil {
		c.metrics.FramesInvalid.Inc()
		return
	}
	c.metrics.EventsIngested.WithLabelValues(string(evt.Tag)).Inc()
	c.broadcast.publish(evt)
}

// handleCommandReply resolves the waiting sendCommand call and, for
// snapshot-shaped commands, also stores the reply as an event (§4.5 "the
// reply is NOT stored as an event unless the command's semantics require
// it... snapshot commands store the reply as a dom_snapshot / recon_*
// event in addition to resolving the waiter").
func (c *Collector) handleCommandReply(reply types.CommandReply) {
	kind := c.router.PeekCommand(reply.RequestID)
	c.router.Resolve(reply)
	if reply.Error != "" {
		return
	}

	switch kind {
	case "capture_dom_snapshot":
		var body types.DOMSnapshotBody
		if err := json.Unmarshal(reply.Data, &body); err != nil {
			return
		}
		c.storeEvent(types.Event{
			Header:      types.Header{EventID: uuid.NewString(), SessionID: c.sessionForRequest(reply.RequestID), Timestamp: nowMillis()},
			Tag:         types.TagDOMSnapshot,
			DOMSnapshot: &body,
		})
	case "recon_element_snapshot":
		c.storeEvent(types.Event{
			Header: types.Header{EventID: uuid.NewString(), SessionID: c.sessionForRequest(reply.RequestID), Timestamp: nowMillis()},
			Tag:    types.Tag("recon_element_snapshot"),
			Recon:  reply.Data,
		})
	}
}

func (c *Collector) sessionForRequest(requestID string) string {
	return c.router.SessionForRequest(requestID)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
