// events.go — the /events broadcast endpoint (§4.4): a one-to-many
// read-only feed of stored events. No history replay; slow subscribers are
// dropped once their backpressure queue overflows (§4.4, §4.9).
package collector

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/metrics"
	"github.com/devlens/devlens/internal/types"
)

type broadcastHub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	queueSize   int
	metrics     *metrics.Registry
	log         *logrus.Entry
}

type subscriber struct {
	ch     chan []byte
	closed bool
}

func newBroadcastHub(queueSize int, m *metrics.Registry, log *logrus.Entry) *broadcastHub {
	return &broadcastHub{
		subscribers: map[*subscriber]struct{}{},
		queueSize:   queueSize,
		metrics:     m,
		log:         log,
	}
}

func (h *broadcastHub) add() *subscriber {
	sub := &subscriber{ch: make(chan []byte, h.queueSize)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.BroadcastSubscribers.Set(float64(len(h.subscribers)))
	return sub
}

func (h *broadcastHub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()
	h.metrics.BroadcastSubscribers.Set(float64(count))
}

// publish fans evt out to every subscriber. A subscriber whose queue is
// full is dropped entirely rather than blocking the publisher or silently
// losing only the newest frame (§4.4 "slow subscribers are dropped").
func (h *broadcastHub) publish(evt types.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- data:
		default:
			h.metrics.BroadcastDropped.Inc()
			h.drop(sub)
		}
	}
}

func (h *broadcastHub) drop(sub *subscriber) {
	h.mu.Lock()
	if sub.closed {
		h.mu.Unlock()
		return
	}
	sub.closed = true
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()
	h.metrics.BroadcastSubscribers.Set(float64(count))
	close(sub.ch)
}

func (c *Collector) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.WithError(err).Warn("events upgrade failed")
		return
	}
	defer conn.Close()

	sub := c.broadcast.add()
	defer c.broadcast.remove(sub)

	// A subscriber is read-only from the server's perspective, but the
	// reader must still drain inbound control/close frames to notice the
	// client going away.
	readErr := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(readErr)
				return
			}
		}
	}()

	for {
		select {
		case data, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-readErr:
			return
		}
	}
}
