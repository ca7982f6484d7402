// transport.go — the per-connection outbound writer (§5 "Outbound writes
// are serialized per connection by a single writer task fed from a bounded
// per-connection send queue... overflow drops the oldest unsent
// non-command frame, never a command frame"). Implements
// registry.Transport so the command router can address a live /sdk socket.
package collector

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type queuedFrame struct {
	data      []byte
	isCommand bool
}

// wsTransport owns one websocket connection's outbound side: a bounded
// queue plus a single writer goroutine draining it in FIFO order.
type wsTransport struct {
	conn *websocket.Conn

	mu       sync.Mutex
	queue    []queuedFrame
	capacity int
	closed   bool
	notify   chan struct{}

	writeTimeout time.Duration
}

func newWSTransport(conn *websocket.Conn, capacity int, writeTimeout time.Duration) *wsTransport {
	t := &wsTransport{
		conn:         conn,
		capacity:     capacity,
		notify:       make(chan struct{}, 1),
		writeTimeout: writeTimeout,
	}
	go t.writeLoop()
	return t
}

// Send enqueues a command frame. Commands are never dropped for queue
// pressure (§5) — only non-command frames may be evicted to make room.
func (t *wsTransport) Send(frame []byte) error {
	return t.enqueue(frame, true)
}

// sendEvent enqueues a non-command frame (reserved for future outbound
// event acks over /sdk); eligible for eviction under backpressure.
func (t *wsTransport) sendEvent(frame []byte) error {
	return t.enqueue(frame, false)
}

func (t *wsTransport) enqueue(data []byte, isCommand bool) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errClosedTransport
	}
	if len(t.queue) >= t.capacity {
		for i := range t.queue {
			if !t.queue[i].isCommand {
				t.queue = append(t.queue[:i], t.queue[i+1:]...)
				break
			}
		}
	}
	t.queue = append(t.queue, queuedFrame{data: data, isCommand: isCommand})
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}

func (t *wsTransport) writeLoop() {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		if len(t.queue) == 0 {
			t.mu.Unlock()
			<-t.notify
			continue
		}
		next := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		if t.writeTimeout > 0 {
			_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		}
		if err := t.conn.WriteMessage(websocket.TextMessage, next.data); err != nil {
			t.Close()
			return
		}
	}
}

// Closed reports whether the transport has been torn down.
func (t *wsTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops the writer loop and closes the underlying connection. Safe
// to call more than once.
func (t *wsTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
	_ = t.conn.Close()
}

type transportError string

func (e transportError) Error() string { return string(e) }

const errClosedTransport = transportError("transport closed")
