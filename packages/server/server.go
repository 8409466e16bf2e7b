// Package server exposes the relay over HTTP: POST /api, POST /graphql,
// POST /flow and GET /health, plus /stats and GET /metrics when a collector
// is attached. CORS is open to any origin.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/hitrelay/packages/flow"
	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
	"github.com/abdul-hamid-achik/hitrelay/packages/stats"
)

const (
	// DefaultAddr is where the relay listens unless configured otherwise
	DefaultAddr = "0.0.0.0:8080"
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout = 5 * time.Second
	// maxPayloadBytes bounds the inbound /api body
	maxPayloadBytes = 64 << 20
)

// Server is the HTTP front of the relay
type Server struct {
	relay          *relay.Relay
	flow           *flow.Runner
	stats          *stats.Collector
	logger         logrus.FieldLogger
	addr           string
	allowedHeaders []string
}

// Option is a functional option for Server
type Option func(*Server)

// WithAddr sets the listen address
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStats exposes collector at GET /stats and GET /metrics. DELETE /stats
// resets it.
func WithStats(collector *stats.Collector) Option {
	return func(s *Server) {
		s.stats = collector
	}
}

// WithFlowRunner sets the runner behind POST /flow. Without it the server
// runs flows through its relay with internal addresses refused.
func WithFlowRunner(runner *flow.Runner) Option {
	return func(s *Server) {
		s.flow = runner
	}
}

// WithAllowedHeaders sets the CORS request header allow-list
func WithAllowedHeaders(headers []string) Option {
	return func(s *Server) {
		s.allowedHeaders = headers
	}
}

// NewServer creates a server in front of r
func NewServer(r *relay.Relay, opts ...Option) *Server {
	s := &Server{
		relay:  r,
		logger: logrus.StandardLogger(),
		addr:   DefaultAddr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.flow == nil {
		s.flow = flow.NewRunner(r, flow.WithLogger(s.logger))
	}
	return s
}

// Handler returns the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api", s.handleAPI).Methods(http.MethodPost)
	router.HandleFunc("/graphql", s.handleGraphQL).Methods(http.MethodPost)
	router.HandleFunc("/flow", s.handleFlow).Methods(http.MethodPost)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.stats != nil {
		router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
		router.HandleFunc("/stats", s.handleResetStats).Methods(http.MethodDelete)
		router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	}

	var h http.Handler = router
	h = corsMiddleware(s.allowedHeaders)(h)
	h = recoverMiddleware(s.logger)(h)
	h = loggingMiddleware(s.logger)(h)
	return h
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.addr
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	s.logger.WithField("addr", l.Addr().String()).Info("relay listening")

	err := server.Serve(l)
	close(stop)
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartWithContext listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) StartWithContext(ctx context.Context) error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}
