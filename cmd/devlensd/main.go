// Command devlensd runs the collector daemon: the event store, session
// registry, command router, API-discovery engine, and issue detector
// exposed over the /sdk and /events transports (spec.md §1, §4.4).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devlens/devlens/internal/checkpoint"
	"github.com/devlens/devlens/internal/collector"
	"github.com/devlens/devlens/internal/commandrouter"
	"github.com/devlens/devlens/internal/config"
	"github.com/devlens/devlens/internal/logging"
	"github.com/devlens/devlens/internal/metrics"
	"github.com/devlens/devlens/internal/registry"
	"github.com/devlens/devlens/internal/retention"
	"github.com/devlens/devlens/internal/store"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		fmt.Printf("devlensd v%s\n", version)
		return
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "devlensd: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	entry := logging.Component(log, "devlensd")

	st := store.New(cfg.RingCapacity)
	reg := registry.New()
	router := commandrouter.New()
	m := metrics.New()
	_ = checkpoint.New(cfg.CheckpointMax) // wired for future tool-surface use; not yet exposed over HTTP

	sweeper, err := retention.New(fmt.Sprintf("@every %s", cfg.RetentionSweepInterval), st, reg, logging.Component(log, "retention"))
	if err != nil {
		entry.WithError(err).Fatal("invalid retention sweep interval")
	}
	sweeper.Start()
	defer sweeper.Stop()

	collectorCfg := collector.Config{
		Host:                cfg.Host,
		Port:                cfg.Port,
		MaxPortRetries:      cfg.MaxPortRetries,
		SessionBufferCap:    cfg.SessionBufferCap,
		ConnWriteQueueSize:  cfg.ConnWriteQueueSize,
		BroadcastQueueSize:  cfg.BroadcastQueueSize,
		CommandTimeout:      cfg.CommandTimeout,
		ShutdownGracePeriod: collector.DefaultConfig().ShutdownGracePeriod,
	}
	col := collector.New(collectorCfg, st, reg, router, m, logging.Component(log, "collector"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entry.WithField("version", version).Info("starting devlensd")
	if err := col.ListenAndServe(ctx); err != nil {
		entry.WithError(err).Fatal("collector exited with error")
	}
	entry.Info("devlensd stopped")
}
