package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, c *Client, url string) *http.Response {
	t.Helper()
	req, err := NewRequest(context.Background(), http.MethodGet, url)
	require.NoError(t, err)
	resp, err := c.Send(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp := ReadResponse(get(t, client, server.URL+"/test"), 0)

	require.NoError(t, resp.BodyErr)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Contains(t, resp.BodyString(), "hello")
}

func TestClient_DefaultHeadersDoNotOverrideCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "caller-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAcceptEncoding, r.Header.Get("Accept-Encoding"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithUserAgent("hitrelay/test"),
		WithDefaultHeaders(map[string]string{"Authorization": "test-token"}),
	)
	req, err := NewRequest(context.Background(), http.MethodGet, server.URL)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "caller-agent")

	resp, err := client.Send(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_WithUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hitrelay/test", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp := get(t, NewClient(WithUserAgent("hitrelay/test")), server.URL)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	req, err := NewRequest(context.Background(), http.MethodGet, server.URL)
	require.NoError(t, err)
	_, err = client.Send(req)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Client.Timeout exceeded")
}

func TestClient_FollowRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`final`))
			return
		}
		redirectCount++
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(true))
	resp := ReadResponse(get(t, client, server.URL+"/redirect"), 0)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "final", resp.BodyString())
	assert.Equal(t, 1, redirectCount)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(false))
	resp := get(t, client, server.URL+"/redirect")

	assert.Equal(t, 302, resp.StatusCode)
}

func TestClient_MaxRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount++
		// Infinite redirect loop
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithMaxRedirects(3))
	resp := get(t, client, server.URL+"/redirect")

	// Should stop after max redirects and return the redirect response
	assert.Equal(t, 302, resp.StatusCode)
	assert.LessOrEqual(t, redirectCount, 4)
}

func TestClient_ValidateSSL(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := NewRequest(context.Background(), http.MethodGet, server.URL)
	require.NoError(t, err)
	_, err = NewClient().Send(req)
	assert.Error(t, err, "self-signed certificate must be rejected by default")

	resp := get(t, NewClient(WithValidateSSL(false)), server.URL)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_DoesNotRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp := get(t, NewClient(), server.URL)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "http", url: "http://example.test/echo"},
		{name: "https", url: "https://example.test"},
		{name: "ftp scheme", url: "ftp://example.test", wantErr: "unsupported URL scheme"},
		{name: "no scheme", url: "example.test/path", wantErr: "unsupported URL scheme"},
		{name: "no host", url: "http:///path", wantErr: "URL must have a host"},
		{name: "unparsable", url: "http://[::1", wantErr: "invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetBody(t *testing.T) {
	req, err := NewRequest(context.Background(), http.MethodPost, "http://example.test")
	require.NoError(t, err)

	SetBody(req, []byte("a=1&b=2"), "application/x-www-form-urlencoded")

	assert.Equal(t, int64(7), req.ContentLength)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", string(data))

	replay, err := req.GetBody()
	require.NoError(t, err)
	data, err = io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", string(data))
}

func TestSetBody_Empty(t *testing.T) {
	req, err := NewRequest(context.Background(), http.MethodPost, "http://example.test")
	require.NoError(t, err)

	SetBody(req, nil, "text/plain")

	assert.Equal(t, http.NoBody, req.Body)
	assert.Equal(t, int64(0), req.ContentLength)
	assert.Equal(t, "text/plain", req.Header.Get("Content-Type"))
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		code   int
		status string
		want   string
	}{
		{code: 200, status: "200 OK", want: "200 OK"},
		{code: 404, status: "404 Nope", want: "404 Not Found"},
		{code: 599, status: "599 Custom Reason", want: "599 Custom Reason"},
		{code: 599, status: "599", want: "599 <unknown status code>"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusLine(&http.Response{StatusCode: tt.code, Status: tt.status}))
		})
	}
}

func TestCollapseHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("X-Test", "1")
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h["X-Binary"] = []string{"ok\xff"}

	got := CollapseHeaders(h)

	assert.Equal(t, "1", got["x-test"])
	assert.Equal(t, "b=2", got["set-cookie"])
	assert.Equal(t, "ok�", got["x-binary"])
	for k := range got {
		assert.Equal(t, strings.ToLower(k), k)
	}
}

func TestClient_WithDialControl(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var dialed string
	refuse := errors.New("refused by control")
	c := NewClient(WithDialControl(func(network, address string, _ syscall.RawConn) error {
		dialed = address
		return refuse
	}))

	req, err := NewRequest(context.Background(), http.MethodGet, server.URL)
	require.NoError(t, err)
	_, err = c.Send(req)

	require.Error(t, err)
	assert.ErrorIs(t, err, refuse)
	assert.Equal(t, strings.TrimPrefix(server.URL, "http://"), dialed)
}
