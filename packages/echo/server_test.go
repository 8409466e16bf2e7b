package echo

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietServer(opts ...Option) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(append([]Option{WithLogger(logger)}, opts...)...)
}

func TestEcho_ReflectsBodyAndHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/things/1?x=y", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "1")

	quietServer().Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"a":1}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PUT", rec.Header().Get("X-Echo-Method"))
	assert.Equal(t, "/things/1", rec.Header().Get("X-Echo-Path"))
	assert.Equal(t, "x=y", rec.Header().Get("X-Echo-Query"))
	assert.Equal(t, "1", rec.Header().Get("X-Echo-X-Test"))
}

func TestEcho_DefaultContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	quietServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Body.String())
}

func TestEcho_Status(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{query: "status=201", want: http.StatusCreated},
		{query: "status=503", want: http.StatusServiceUnavailable},
		{query: "status=abc", want: http.StatusBadRequest},
		{query: "status=99", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			quietServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/?"+tt.query, strings.NewReader("x")))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestEcho_Gzip(t *testing.T) {
	rec := httptest.NewRecorder()
	quietServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/?gzip=1", strings.NewReader("hello")))

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEcho_Delay(t *testing.T) {
	rec := httptest.NewRecorder()
	start := time.Now()
	quietServer(WithDelay(50*time.Millisecond)).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEcho_Serve(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- quietServer(WithVerbose(true)).Serve(ctx, l)
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Post("http://"+l.Addr().String()+"/ping", "text/plain", strings.NewReader("pong"))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("echo server did not stop")
	}
}

func TestEcho_ServeReturnsListenerError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	errCh := make(chan error, 1)
	go func() {
		errCh <- quietServer().Serve(context.Background(), l)
	}()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.NotErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the listener failed")
	}
}
