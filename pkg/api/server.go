// Package api serves the current build over HTTP: the graph artifact, build
// stats and status, a manual build trigger, a server-sent-events stream of
// build notices, GraphQL, health probes and prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodeatlas/nodeatlas/pkg/atlas"
	"github.com/nodeatlas/nodeatlas/pkg/health"
	"github.com/nodeatlas/nodeatlas/pkg/logging"
	"github.com/nodeatlas/nodeatlas/pkg/metrics"
	"github.com/nodeatlas/nodeatlas/pkg/pubsub"
)

// Config tunes the HTTP server.
type Config struct {
	ListenAddr string
}

// Deps are the server's collaborators. GraphQL, Bus, Checker and Metrics
// are optional; their endpoints answer 503 or are omitted when nil.
type Deps struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	Checker *health.Checker
	Bus     *pubsub.PubSub
	GraphQL http.Handler
	// Trigger starts a build (crawl included). POST /api/build calls it;
	// atlas.ErrBuildInProgress maps to 409.
	Trigger func() error
}

// Server is the HTTP API front of the atlas service.
type Server struct {
	cfg     Config
	builder *atlas.Builder
	logger  logging.Logger
	reg     *metrics.Registry
	checker *health.Checker
	bus     *pubsub.PubSub
	gql     http.Handler
	trigger func() error

	httpServer *http.Server
}

// NewServer wires the server. The builder is required.
func NewServer(cfg Config, builder *atlas.Builder, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		cfg:     cfg,
		builder: builder,
		logger:  logger.With(logging.Component("api")),
		reg:     deps.Metrics,
		checker: deps.Checker,
		bus:     deps.Bus,
		gql:     deps.GraphQL,
		trigger: deps.Trigger,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the route table wrapped in the middleware chain. Exposed
// for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/graph/stats", s.handleStats)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/build", s.handleBuild)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("/graphql", s.handleGraphQL)

	if s.checker != nil {
		mux.HandleFunc("GET /health", s.checker.HTTPHandler())
		mux.HandleFunc("GET /health/live", s.checker.LivenessHandler())
		mux.HandleFunc("GET /health/ready", s.checker.ReadinessHandler())
	}
	if s.reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg.Prometheus(), promhttp.HandlerOpts{}))
	}

	return s.recoveryMiddleware(s.loggingMiddleware(s.metricsMiddleware(s.corsMiddleware(mux))))
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.String("addr", s.cfg.ListenAddr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
