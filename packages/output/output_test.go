package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

func sampleCall() *Call {
	return &Call{
		Method: "POST",
		URL:    "http://localhost:3000/echo",
		Envelope: &relay.Envelope{
			Headers: map[string]string{"x-test": "1", "content-type": "application/json"},
			Status:  "201 Created",
			Body:    `{"a":1}`,
		},
		Duration: 42 * time.Millisecond,
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 200, StatusCode("200 OK"))
	assert.Equal(t, 599, StatusCode("599 <unknown status code>"))
	assert.Equal(t, 0, StatusCode(""))
	assert.Equal(t, 0, StatusCode("OK"))
}

func TestConsoleFormatter_FormatCall(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	require.NoError(t, f.FormatCall(sampleCall()))

	out := buf.String()
	assert.Contains(t, out, "POST http://localhost:3000/echo")
	assert.Contains(t, out, "201 Created (42ms)")
	assert.Contains(t, out, "content-type: application/json")
	assert.Contains(t, out, "x-test: 1")
	assert.Contains(t, out, `{"a":1}`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("content-type")), bytes.Index(buf.Bytes(), []byte("x-test")))
}

func TestConsoleFormatter_HeadersOnlyWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	require.NoError(t, f.FormatCall(sampleCall()))
	assert.NotContains(t, buf.String(), "x-test")
}

func TestConsoleFormatter_MaxBody(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithMaxBody(3))

	require.NoError(t, f.FormatCall(sampleCall()))
	assert.Contains(t, buf.String(), `{"a...`)
}

func TestConsoleFormatter_FormatError(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleFormatter(WithWriter(&buf), WithNoColor(true)).FormatError(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestConsoleFormatter_FormatBanner(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatBanner("1.0.0", "0.0.0.0:8080", []string{"POST /api", "GET /health"})

	out := buf.String()
	assert.Contains(t, out, "hitrelay 1.0.0")
	assert.Contains(t, out, "http://0.0.0.0:8080")
	assert.Contains(t, out, "POST /api")
}

func TestJSONFormatter_FormatCall(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(WithJSONWriter(&buf)).FormatCall(sampleCall()))

	var got JSONCall
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 201, got.StatusCode)
	assert.Equal(t, "201 Created", got.Status)
	assert.Equal(t, `{"a":1}`, got.Body)
	assert.Equal(t, "1", got.Headers["x-test"])
	assert.InDelta(t, 42.0, got.Duration, 0.001)
}

func TestJSONFormatter_FormatError(t *testing.T) {
	var buf bytes.Buffer
	NewJSONFormatter(WithJSONWriter(&buf)).FormatError(errors.New("boom"))
	assert.JSONEq(t, `{"error":"boom"}`, buf.String())
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	f, err := New("json", &buf, false, true)
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = New("", &buf, false, true)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleFormatter{}, f)

	_, err = New("xml", &buf, false, true)
	assert.Error(t, err)
}
