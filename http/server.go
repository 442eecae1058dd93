package http

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Mode selects how accepted connections are driven to completion.
type Mode uint8

const (
	// ModeWorkerPool hands each accepted socket to a worker, which runs
	// the whole blocking read/route/respond/close cycle for it.
	ModeWorkerPool Mode = iota

	// ModeReactor keeps every socket under the epoll loop and advances
	// its framing state on readiness events.
	ModeReactor
)

func (m Mode) String() string {
	if m == ModeReactor {
		return "reactor"
	}
	return "workerpool"
}

var (
	ErrServerStarted = errors.New("http: server already started")
)

// Config is the construction surface of a Server. Zero values resolve to
// the package defaults; only Port is required.
type Config struct {
	Port int

	Mode Mode

	// Workers sizes the pool in ModeWorkerPool. 0 auto-detects.
	Workers int

	// MaxRequestSize bounds the bytes buffered per request.
	MaxRequestSize int

	// MaxEvents caps readiness events per epoll wait.
	MaxEvents int

	// ReadBufferSize is the per-read chunk size.
	ReadBufferSize int

	// Logger receives per-connection diagnostics. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// Meter records connection and request counters. Defaults to the
	// global otel meter, a no-op unless a provider is installed.
	Meter metric.Meter
}

func (cfg *Config) fillDefaults() {
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = MaxRequestSize
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}
