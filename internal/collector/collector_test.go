package collector

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/commandrouter"
	"github.com/devlens/devlens/internal/metrics"
	"github.com/devlens/devlens/internal/registry"
	"github.com/devlens/devlens/internal/store"
	"github.com/devlens/devlens/internal/types"
)

func newTestCollector(t *testing.T) (*Collector, *httptest.Server) {
	t.Helper()
	st := store.New(1000)
	reg := registry.New()
	router := commandrouter.New()
	m := metrics.New()
	log := logrus.New()
	log.SetOutput(strings.NewReader(""))

	cfg := DefaultConfig()
	c := New(cfg, st, reg, router, m, log.WithField("component", "test"))
	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)
	return c, srv
}

func dialSDK(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sdk"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial /sdk: %v", err)
	}
	return conn
}

func TestHealthz(t *testing.T) {
	_, srv := newTestCollector(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestCollector(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSDKSessionFrameRegistersAndStores(t *testing.T) {
	c, srv := newTestCollector(t)
	conn := dialSDK(t, srv)
	defer conn.Close()

	mustSend(t, conn, `{"eventId":"e1","sessionId":"s1","timestamp":1,"eventType":"session","appName":"app","connectedAt":1,"sdkVersion":"1.0"}`)
	mustSend(t, conn, `{"eventId":"e2","sessionId":"s1","timestamp":2,"eventType":"network","method":"GET","url":"/x","status":200,"duration":10}`)

	waitFor(t, func() bool { return c.store.EventCount() == 2 })

	sessions := c.reg.All()
	if len(sessions) != 1 || sessions[0].SessionID != "s1" {
		t.Fatalf("sessions = %+v", sessions)
	}
}

// TestReconnectPreservesHistory is scenario S6 from spec.md §8.
func TestReconnectPreservesHistory(t *testing.T) {
	c, srv := newTestCollector(t)

	conn1 := dialSDK(t, srv)
	mustSend(t, conn1, `{"eventId":"e1","sessionId":"s1","timestamp":1,"eventType":"session","appName":"app","connectedAt":1,"sdkVersion":"1.0"}`)
	mustSend(t, conn1, `{"eventId":"e2","sessionId":"s1","timestamp":2,"eventType":"network","method":"GET","url":"/x","status":200,"duration":10}`)
	waitFor(t, func() bool { return c.store.EventCount() == 2 })
	conn1.Close()
	waitFor(t, func() bool {
		for _, s := range c.reg.All() {
			if s.SessionID == "s1" {
				return !s.IsConnected
			}
		}
		return false
	})

	conn2 := dialSDK(t, srv)
	defer conn2.Close()
	mustSend(t, conn2, `{"eventId":"e3","sessionId":"s1","timestamp":3,"eventType":"session","appName":"app","connectedAt":3,"sdkVersion":"1.0"}`)
	waitFor(t, func() bool {
		for _, s := range c.reg.All() {
			if s.SessionID == "s1" {
				return s.IsConnected
			}
		}
		return false
	})

	if c.store.EventCount() != 3 {
		t.Fatalf("EventCount() = %d, want 3 (history preserved across reconnect)", c.store.EventCount())
	}
	nr := c.store.NetworkRequests(types.NetworkFilter{})
	if len(nr) != 1 {
		t.Fatalf("NetworkRequests() = %+v, want the original network event preserved", nr)
	}
}

func TestStoreEventRedactsSecrets(t *testing.T) {
	c, srv := newTestCollector(t)
	conn := dialSDK(t, srv)
	defer conn.Close()

	mustSend(t, conn, `{"eventId":"e1","sessionId":"s1","timestamp":1,"eventType":"session","appName":"app","connectedAt":1,"sdkVersion":"1.0"}`)
	mustSend(t, conn, `{"eventId":"e2","sessionId":"s1","timestamp":2,"eventType":"network","method":"GET","url":"/x","status":200,"duration":10,"requestHeaders":{"Authorization":"Bearer secrettoken"}}`)
	waitFor(t, func() bool { return c.store.EventCount() == 2 })

	nr := c.store.NetworkRequests(types.NetworkFilter{})
	if len(nr) != 1 {
		t.Fatalf("NetworkRequests() = %+v", nr)
	}
	if nr[0].Network.RequestHeaders["Authorization"] != "[redacted]" {
		t.Fatalf("Authorization header = %q, want redacted", nr[0].Network.RequestHeaders["Authorization"])
	}
}

func TestInvalidFrameDoesNotKillConnection(t *testing.T) {
	_, srv := newTestCollector(t)
	conn := dialSDK(t, srv)
	defer conn.Close()

	mustSend(t, conn, `not json`)
	mustSend(t, conn, `{"eventId":"e1","sessionId":"s1","timestamp":1,"eventType":"session","appName":"app"}`)

	// The connection must still be usable after the malformed frame.
	if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		t.Fatalf("connection died after invalid frame: %v", err)
	}
}

func mustSend(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
