package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/pokecache/pkg/metrics"
	"github.com/Sternrassler/pokecache/pkg/pipeline"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pipeline is the work behind the creature routes. *pipeline.Coordinator
// implements it.
type Pipeline interface {
	Ingest(ctx context.Context, name string) (json.RawMessage, error)
	CompareHeights(ctx context.Context, name string) (*pipeline.Result, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server settings.
type Config struct {
	// Addr is the listen address (host:port).
	Addr string

	// StrictStatusCodes returns 404 instead of 200 for the not-found messages.
	StrictStatusCodes bool

	// RateLimit is the sustained request rate per second.
	RateLimit rate.Limit

	// RateLimitBurst is the token bucket size.
	RateLimitBurst int

	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// ReadyTimeout bounds the backend ping in /ready.
	ReadyTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:8000",
		RateLimit:         100, // 100 req/s
		RateLimitBurst:    200, // burst of 200
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		ReadyTimeout:      2 * time.Second,
	}
}

// Server is the HTTP front end.
type Server struct {
	config      Config
	pipeline    Pipeline
	pinger      Pinger
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	logger      zerolog.Logger

	mu    sync.RWMutex
	ready bool
}

// New creates a server. pinger may be nil, in which case /ready only
// reflects the lifecycle state.
func New(cfg Config, p Pipeline, pinger Pinger, logger zerolog.Logger) *Server {
	if p == nil {
		panic("pipeline cannot be nil")
	}
	defaults := DefaultConfig()
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaults.RateLimitBurst
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaults.ReadyTimeout
	}

	s := &Server{
		config:      cfg,
		pipeline:    p,
		pinger:      pinger,
		rateLimiter: rate.NewLimiter(cfg.RateLimit, cfg.RateLimitBurst),
		logger:      logger.With().Str("component", "server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	// API endpoints with middleware
	mux.HandleFunc("GET /{$}", s.withMiddleware("/", s.handleWelcome))
	mux.HandleFunc("GET /pokemon/{name}", s.withMiddleware("/pokemon/{name}", s.handleIngest))
	mux.HandleFunc("GET /pokemon/{name}/height_comparison",
		s.withMiddleware("/pokemon/{name}/height_comparison", s.handleCompare))

	return mux
}

// SetReady marks the server as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.SetReady(true)
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Server listening")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.SetReady(false)
		s.logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info().Msg("Server stopped gracefully")
	return nil
}
