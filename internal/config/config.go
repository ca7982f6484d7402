// Package config resolves devlensd's runtime settings: flags override
// environment variables, which override built-in defaults. Grounded on the
// teacher's flag-based cmd/dev-console/main.go startup and generalized from
// its internal/state/paths.go root-directory resolution (env override ->
// XDG_STATE_HOME -> os.UserConfigDir()).
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// StateDirEnv overrides the default runtime state root, mirroring the
// teacher's GASOLINE_STATE_DIR.
const StateDirEnv = "DEVLENS_STATE_DIR"

const xdgStateHomeEnv = "XDG_STATE_HOME"
const appName = "devlens"

// Config holds every tunable of the collector daemon (SPEC_FULL.md §2).
type Config struct {
	Host           string
	Port           int
	MaxPortRetries int

	RingCapacity       int
	CommandTimeout     time.Duration
	BroadcastQueueSize int
	ConnWriteQueueSize int
	SessionBufferCap   int

	RetentionSweepInterval time.Duration
	CheckpointMax          int

	LogLevel  string
	LogFormat string
}

// Defaults mirrors spec.md's defaults: port 7890-ish range is the teacher's
// convention; ring capacity 10,000 (§3 "Lifecycle"); command timeout 10s
// (§4.5); broadcast queue 1,024 (§4.4); connection write queue 256 (§5).
func Defaults() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           8711,
		MaxPortRetries: 10,

		RingCapacity:       10000,
		CommandTimeout:     10 * time.Second,
		BroadcastQueueSize: 1024,
		ConnWriteQueueSize: 256,
		SessionBufferCap:   64,

		RetentionSweepInterval: 5 * time.Minute,
		CheckpointMax:          20,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load parses args over environment-provided defaults. Flags always win
// over env vars, which always win over Defaults().
func Load(args []string) (*Config, error) {
	cfg := Defaults()
	applyEnv(&cfg)

	fs := flag.NewFlagSet("devlensd", flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "bind address (loopback only)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "bind port")
	fs.IntVar(&cfg.MaxPortRetries, "max-port-retries", cfg.MaxPortRetries, "successor ports to try if bind fails")
	fs.IntVar(&cfg.RingCapacity, "ring-capacity", cfg.RingCapacity, "per-tag ring capacity")
	fs.DurationVar(&cfg.CommandTimeout, "command-timeout", cfg.CommandTimeout, "default sendCommand timeout")
	fs.IntVar(&cfg.BroadcastQueueSize, "broadcast-queue", cfg.BroadcastQueueSize, "per-subscriber broadcast backpressure queue")
	fs.IntVar(&cfg.ConnWriteQueueSize, "conn-write-queue", cfg.ConnWriteQueueSize, "per-connection outbound write queue")
	fs.IntVar(&cfg.SessionBufferCap, "session-buffer-cap", cfg.SessionBufferCap, "pre-session-frame event buffer cap")
	fs.DurationVar(&cfg.RetentionSweepInterval, "retention-sweep-interval", cfg.RetentionSweepInterval, "disconnected-session sweep cadence")
	fs.IntVar(&cfg.CheckpointMax, "checkpoint-max", cfg.CheckpointMax, "maximum retained checkpoints")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "panic|fatal|error|warn|info|debug|trace")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEVLENS_HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("DEVLENS_PORT"); ok {
		cfg.Port = v
	}
	if v, ok := envInt("DEVLENS_RING_CAPACITY"); ok {
		cfg.RingCapacity = v
	}
	if v, ok := envDuration("DEVLENS_COMMAND_TIMEOUT"); ok {
		cfg.CommandTimeout = v
	}
	if v := os.Getenv("DEVLENS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DEVLENS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (c *Config) validate() error {
	if c.Host != "127.0.0.1" && c.Host != "localhost" && c.Host != "::1" {
		return fmt.Errorf("host must be loopback, got %q (§1 non-goals: no non-loopback authentication)", c.Host)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RingCapacity <= 0 {
		return fmt.Errorf("ring-capacity must be positive")
	}
	return nil
}

// RootDir returns the runtime state root for devlens: DEVLENS_STATE_DIR,
// else XDG_STATE_HOME/devlens, else os.UserConfigDir()/devlens.
func RootDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(StateDirEnv)); override != "" {
		return normalizePath(override)
	}
	if xdg := strings.TrimSpace(os.Getenv(xdgStateHomeEnv)); xdg != "" {
		root, err := normalizePath(xdg)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, appName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	root, err := normalizePath(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appName), nil
}

func normalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
