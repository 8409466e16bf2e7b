package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
)

type senderFunc func(*http.Request) (*http.Response, error)

func (f senderFunc) Send(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestNormalizeMethod(t *testing.T) {
	tests := map[string]string{
		"GET":     "GET",
		"POST":    "POST",
		"PUT":     "PUT",
		"DELETE":  "DELETE",
		"PATCH":   "PATCH",
		"HEAD":    "GET",
		"OPTIONS": "GET",
		"post":    "GET",
		"":        "GET",
		"FETCH":   "GET",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeMethod(in))
		})
	}
}

func TestDispatcher_UnknownMethodIsSentAsGet(t *testing.T) {
	var gotMethod string
	sender := senderFunc(func(req *http.Request) (*http.Response, error) {
		gotMethod = req.Method
		return fakeResponse(200, nil, strings.NewReader("")), nil
	})

	resp, err := NewDispatcher(sender, Encoders{}).Dispatch(context.Background(), OutboundRequestSpec{
		URL:    "http://example.test/",
		Method: "PURGE",
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestDispatcher_Prepare(t *testing.T) {
	d := NewDispatcher(nil, Encoders{})

	req, err := d.Prepare(context.Background(), OutboundRequestSpec{
		URL:         "http://example.test/echo",
		Method:      "POST",
		Headers:     `[{"key":"X-Test","value":"1"},{"key":"Content-Type","value":"text/html"}]`,
		Body:        `{"a":1}`,
		ContentType: "application/json",
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "1", req.Header.Get("X-Test"))
	// the encoder's Content-Type wins over the caller's
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestDispatcher_Prepare_CaseVariantHeadersAreDeterministic(t *testing.T) {
	d := NewDispatcher(nil, Encoders{})
	spec := OutboundRequestSpec{
		URL:     "http://example.test/",
		Method:  "GET",
		Headers: `[{"key":"X-Test","value":"first"},{"key":"x-test","value":"last"}]`,
	}

	for i := 0; i < 200; i++ {
		req, err := d.Prepare(context.Background(), spec)
		require.NoError(t, err)
		require.Equal(t, []string{"last"}, req.Header.Values("X-Test"))
	}
}

func TestDispatcher_UnknownContentTypeSendsNoBody(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewDispatcher(relayhttp.NewClient(), Encoders{}).Dispatch(context.Background(), OutboundRequestSpec{
		URL:         server.URL,
		Method:      "POST",
		Body:        "payload that must not be sent",
		ContentType: "unknown/type",
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotBody)
	assert.Empty(t, gotContentType)
}

func TestDispatcher_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec OutboundRequestSpec
		kind Kind
	}{
		{
			name: "malformed headers",
			spec: OutboundRequestSpec{URL: "http://example.test", Method: "GET", Headers: "nope"},
			kind: KindMalformedHeaders,
		},
		{
			name: "bad multipart body",
			spec: OutboundRequestSpec{URL: "http://example.test", Method: "POST", Body: "a=1", ContentType: "multipart/form-data"},
			kind: KindEncoding,
		},
		{
			name: "bad url",
			spec: OutboundRequestSpec{URL: "not a url", Method: "GET"},
			kind: KindNetwork,
		},
	}

	sender := senderFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("nothing must be sent")
		return nil, nil
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher(sender, Encoders{}).Dispatch(context.Background(), tt.spec)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestDispatcher_NetworkErrorIsNotRetried(t *testing.T) {
	calls := 0
	sender := senderFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	})

	_, err := NewDispatcher(sender, Encoders{}).Dispatch(context.Background(), OutboundRequestSpec{
		URL:    "http://127.0.0.1:1",
		Method: "GET",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, calls)
}
