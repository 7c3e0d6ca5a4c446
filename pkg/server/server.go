package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/fabrica-cultura/senhas/internal/clock"
	"github.com/fabrica-cultura/senhas/internal/metrics"
	"github.com/fabrica-cultura/senhas/pkg/bus"
	"github.com/fabrica-cultura/senhas/pkg/logo"
	"github.com/fabrica-cultura/senhas/pkg/middleware"
	"github.com/fabrica-cultura/senhas/pkg/state"
	"github.com/fabrica-cultura/senhas/pkg/storage"
)

// Server is the HTTP/WebSocket front of one panel process.
type Server struct {
	config    *Config
	store     storage.Store
	hub       *bus.Hub
	logos     logo.Store
	diskLogos *logo.DiskStore
	metrics   *metrics.Metrics
	clock     clock.Clock
	tracerP   trace.TracerProvider
	logger    *slog.Logger

	operator *state.Manager
	router   chi.Router
	upgrader websocket.Upgrader

	// ctx is canceled on Shutdown and parents every session context.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	sessions   map[*session]struct{}
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the collectors. Default: a fresh metrics.New().
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogos sets the logo store. Default: logo.DataURLStore.
func WithLogos(store logo.Store) Option {
	return func(s *Server) {
		s.logos = store
	}
}

// WithDiskLogos serves uploaded logos from d under its URL prefix.
func WithDiskLogos(d *logo.DiskStore) Option {
	return func(s *Server) {
		s.diskLogos = d
	}
}

// WithClock sets the clock used for ticket stamps and alert dwell.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithTracerProvider overrides the global OpenTelemetry provider for the
// HTTP middleware.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerP = tp
	}
}

// New creates a server on store and hub and opens the operator context.
// A nil config uses DefaultConfig.
func New(ctx context.Context, store storage.Store, hub *bus.Hub, config *Config, opts ...Option) (*Server, error) {
	if store == nil || hub == nil {
		return nil, fmt.Errorf("server: store and hub are required")
	}
	s := &Server{
		config:   config.withDefaults(),
		store:    store,
		hub:      hub,
		clock:    clock.Real(),
		logger:   slog.Default().With("component", "server"),
		sessions: make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logos == nil {
		s.logos = logo.DataURLStore{}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.config.CheckOrigin,
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	operator, err := s.openManager(ctx, s.logger.With("context", "operator"))
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.operator = operator
	s.router = s.routes()
	return s, nil
}

// openManager creates a context joined to the shared hub.
func (s *Server) openManager(ctx context.Context, logger *slog.Logger) (*state.Manager, error) {
	return state.New(ctx, s.store, s.hub.Open(s.config.Channel),
		state.WithClock(s.clock),
		state.WithLogger(logger),
		state.WithRecorder(s.metrics),
	)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	otelOpts := []middleware.OTelOption{
		middleware.WithRequestFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		}),
	}
	if s.tracerP != nil {
		otelOpts = append(otelOpts, middleware.WithTracerProvider(s.tracerP))
	}

	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.OpenTelemetry(otelOpts...))
	r.Use(middleware.Prometheus(middleware.WithRegistry(s.metrics.Registry())))
	r.Use(middleware.Logger(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.config.Metrics {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Put("/config", s.handlePutConfig)
		r.Post("/tickets/reset", s.handleResetAll)
		r.Post("/tickets/{type}/next", s.handleAdjust(state.Next))
		r.Post("/tickets/{type}/prev", s.handleAdjust(state.Prev))
		r.Post("/tickets/{type}/reset", s.handleResetToMin)
		r.Post("/logo", s.handleLogoUpload)
		r.Delete("/logo", s.handleLogoClear)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/transmit-link", s.handleTransmitLink)
	})

	r.Get("/ws", s.handleWebSocket)

	if s.diskLogos != nil {
		r.Handle(s.diskLogos.Prefix()+"*", s.diskLogos.Handler())
	}
	return r
}

// Handler returns the server's http.Handler for mounting in other routers
// or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Operator returns the operator context's manager.
func (s *Server) Operator() *state.Manager {
	return s.operator
}

// Sessions returns the number of open websocket contexts.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every websocket context, stops the HTTP server and
// closes the operator context. The store and hub are left open.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.cancel()

	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}
	s.operator.Close()
	s.logger.Info("server shutdown complete")
	return err
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}
