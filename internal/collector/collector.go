// Package collector implements the collector server (C4, §4.4): HTTP
// upgrade endpoints for the bidirectional /sdk transport and the
// broadcast-only /events transport, plus /healthz and /metrics. Grounded on
// the teacher's cmd/dev-console/main.go HTTP server setup (flag-configured
// bind address, JSON request/response handlers) and generalized from its
// single-process text-log server to a session-multiplexed websocket
// collector. The websocket transport itself has no teacher precedent
// (brennhill-gasoline long-polls a flat file) and is instead grounded on
// github.com/gorilla/websocket as used elsewhere in the retrieval pack
// (see DESIGN.md).
package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/commandrouter"
	"github.com/devlens/devlens/internal/metrics"
	"github.com/devlens/devlens/internal/redaction"
	"github.com/devlens/devlens/internal/registry"
	"github.com/devlens/devlens/internal/store"
)

// Config tunes the parts of the collector that aren't wired from the
// component constructors directly (§4.4, §5).
type Config struct {
	Host               string
	Port               int
	MaxPortRetries      int
	SessionBufferCap    int
	ConnWriteQueueSize  int
	BroadcastQueueSize  int
	CommandTimeout      time.Duration
	ShutdownGracePeriod time.Duration
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{
		Host:                "127.0.0.1",
		Port:                8711,
		MaxPortRetries:      10,
		SessionBufferCap:    64,
		ConnWriteQueueSize:  256,
		BroadcastQueueSize:  1024,
		CommandTimeout:      commandrouter.DefaultTimeout,
		ShutdownGracePeriod: 2 * time.Second,
	}
}

// Collector wires the store, registry, and command router behind the HTTP
// transport described in §6.
type Collector struct {
	cfg     Config
	store   *store.Store
	reg     *registry.Registry
	router  *commandrouter.Router
	metrics *metrics.Registry
	log     *logrus.Entry

	upgrader websocket.Upgrader
	redactor *redaction.Engine

	broadcast *broadcastHub

	httpServer *http.Server
	boundAddr  string
}

// New builds a Collector over the given components. Callers construct
// store/registry/router themselves so the daemon can wire the retention
// sweep and checkpoint manager against the same instances.
func New(cfg Config, st *store.Store, reg *registry.Registry, router *commandrouter.Router, m *metrics.Registry, log *logrus.Entry) *Collector {
	return &Collector{
		cfg:     cfg,
		store:   st,
		reg:     reg,
		router:  router,
		metrics: m,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Loopback-only binding (§1 non-goals) stands in for origin
			// checking: every accepted connection is already local.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		redactor:  redaction.New(),
		broadcast: newBroadcastHub(cfg.BroadcastQueueSize, m, log),
	}
}

// Handler returns the collector's http.Handler, exposed separately from
// ListenAndServe so tests can drive it with httptest.Server.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sdk", c.handleSDK)
	mux.HandleFunc("/events", c.handleEvents)
	mux.HandleFunc("/healthz", c.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(c.metrics.Gatherer(), promhttp.HandlerOpts{}))
	return mux
}

func (c *Collector) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// ListenAndServe binds the configured host:port, retrying successor ports
// on failure up to MaxPortRetries (§4.4 "port-binding algorithm"), then
// serves until ctx is cancelled. On cancellation the server is shut down
// with ShutdownGracePeriod (§5 "joins all tasks within a 2 s grace period").
func (c *Collector) ListenAndServe(ctx context.Context) error {
	listener, boundPort, err := bindWithRetry(c.cfg.Host, c.cfg.Port, c.cfg.MaxPortRetries)
	if err != nil {
		return fmt.Errorf("port-in-use: %w", err)
	}
	c.boundAddr = listener.Addr().String()
	c.log.WithField("addr", c.boundAddr).WithField("requestedPort", c.cfg.Port).WithField("boundPort", boundPort).Info("collector listening")

	c.httpServer = &http.Server{Handler: c.Handler()}

	serveErr := make(chan error, 1)
	go func() { serveErr <- c.httpServer.Serve(listener) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.router.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownGracePeriod)
		defer cancel()
		if err := c.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// BoundAddr reports the address actually bound, for tests and devlensctl.
func (c *Collector) BoundAddr() string {
	return c.boundAddr
}

func bindWithRetry(host string, port, maxRetries int) (net.Listener, int, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		candidate := port + attempt
		addr := fmt.Sprintf("%s:%d", host, candidate)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return listener, candidate, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no port available in [%d, %d]: %w", port, port+maxRetries, lastErr)
}
