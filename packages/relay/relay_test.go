package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) Record(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRelay_EchoScenario(t *testing.T) {
	var gotHeader, gotContentType, gotBody string
	sender := senderFunc(func(req *http.Request) (*http.Response, error) {
		gotHeader = req.Header.Get("X-Test")
		gotContentType = req.Header.Get("Content-Type")
		data, _ := io.ReadAll(req.Body)
		gotBody = string(data)
		return &http.Response{
			StatusCode: 200,
			Status:     "200 OK",
			Header:     http.Header{"X-Test": {"1"}},
			Body:       io.NopCloser(strings.NewReader(`{"a":1}`)),
		}, nil
	})

	rec := &outcomeRecorder{}
	r := New(sender, WithLogger(quietLogger()), WithRecorder(rec))

	req := Request{
		URL:     "http://example.test/echo",
		Method:  "POST",
		Headers: `[{"key":"X-Test","value":"1"}]`,
		Body:    `{"a":1}`,
		Request: "application/json",
	}
	out, err := r.Handle(context.Background(), req.Spec())
	require.NoError(t, err)

	assert.Equal(t, "1", gotHeader)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"a":1}`, gotBody)

	inner := gjson.GetBytes(out, "body")
	require.Equal(t, gjson.String, inner.Type)
	assert.Equal(t, `{"headers":{"x-test":"1"},"status":"200 OK","body":"{\"a\":1}"}`, inner.String())
	assert.Equal(t, []string{OutcomeSuccess}, rec.outcomes)
}

func TestRelay_RoundTripThroughEchoServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		_, _ = io.Copy(w, r.Body)
	}))
	defer server.Close()

	r := New(relayhttp.NewClient(), WithLogger(quietLogger()))

	bodies := []string{
		`{"a":1}`,
		`{"nested":{"list":[1,2,3],"text":"héllo <world> & \"friends\""}}`,
		`[]`,
		`not even json`,
	}
	for _, body := range bodies {
		env, err := r.Do(context.Background(), OutboundRequestSpec{
			URL:         server.URL,
			Method:      "PUT",
			Body:        body,
			ContentType: "application/json",
		})
		require.NoError(t, err)
		assert.Equal(t, body, env.Body)
		assert.Equal(t, "200 OK", env.Status)
		assert.Equal(t, "application/json", env.Headers["content-type"])
	}
}

func TestRelay_MalformedHeaders(t *testing.T) {
	rec := &outcomeRecorder{}
	r := New(senderFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("nothing must be sent")
		return nil, nil
	}), WithLogger(quietLogger()), WithRecorder(rec))

	_, err := r.Handle(context.Background(), OutboundRequestSpec{
		URL:     "http://example.test",
		Method:  "GET",
		Headers: "this is not json",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedHeaders))
	assert.Contains(t, err.Error(), "headers")
	assert.Equal(t, []string{KindMalformedHeaders.String()}, rec.outcomes)
}

func TestRelay_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	r := New(relayhttp.NewClient(), WithLogger(quietLogger()))
	_, err := r.Handle(context.Background(), OutboundRequestSpec{URL: url, Method: "GET"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Contains(t, err.Error(), "network error")
}

func TestRelay_ConcurrentRequestsAreIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(w, r.Body)
	}))
	defer server.Close()

	r := New(relayhttp.NewClient(), WithLogger(quietLogger()))

	var wg sync.WaitGroup
	bodies := []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}
	results := make([]string, len(bodies))
	for i, body := range bodies {
		wg.Add(1)
		go func(i int, body string) {
			defer wg.Done()
			env, err := r.Do(context.Background(), OutboundRequestSpec{
				URL:         server.URL,
				Method:      "POST",
				Body:        body,
				ContentType: "text/plain",
			})
			if err == nil {
				results[i] = env.Body
			}
		}(i, body)
	}
	wg.Wait()

	assert.Equal(t, bodies, results)
}
