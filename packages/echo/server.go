// Package echo provides a target server that reflects every request back to
// the caller. It is the counterpart used to exercise the relay end to end.
package echo

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// HeaderPrefix is prepended to every reflected request header
const HeaderPrefix = "X-Echo-"

const shutdownTimeout = 5 * time.Second

// Server is an HTTP server that echoes requests
type Server struct {
	port    int
	delay   time.Duration
	verbose bool
	logger  logrus.FieldLogger
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose logs every request at info level
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new echo server
func NewServer(opts ...Option) *Server {
	s := &Server{
		port:   3000,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the echo handler. It answers every path and method.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// StartWithContext starts the server and shuts it down when ctx is done
func (s *Server) StartWithContext(ctx context.Context) error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done and returns once shutdown completes
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("addr", l.Addr().String()).Info("echo server listening")

	err := server.Serve(l)
	close(stop)
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err = strconv.Atoi(raw)
		if err != nil || status < 200 || status > 599 {
			http.Error(w, fmt.Sprintf("invalid status %q", raw), http.StatusBadRequest)
			return
		}
	}

	reflectHeaders(w.Header(), r)

	if ct := r.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	if r.URL.Query().Get("gzip") == "1" {
		compressed, err := gzipBytes(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		body = compressed
		w.Header().Set("Content-Encoding", "gzip")
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)

	if s.verbose {
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"bytes":    len(body),
			"duration": time.Since(start),
		}).Info("echoed")
	}
}

// reflectHeaders copies request metadata onto the response under HeaderPrefix.
func reflectHeaders(dst http.Header, r *http.Request) {
	dst.Set(HeaderPrefix+"Method", r.Method)
	dst.Set(HeaderPrefix+"Path", r.URL.Path)
	if r.URL.RawQuery != "" {
		dst.Set(HeaderPrefix+"Query", r.URL.RawQuery)
	}

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dst.Set(HeaderPrefix+k, strings.Join(r.Header[k], ", "))
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
