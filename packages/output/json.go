package output

import (
	"encoding/json"
	"io"
	"os"
)

// JSONCall is the JSON form of a Call
type JSONCall struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Duration   float64           `json:"duration"`
}

// JSONError is written in place of a call that failed
type JSONError struct {
	Error string `json:"error"`
}

// JSONFormatter writes each call as an indented JSON document
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatCall(call *Call) error {
	headers := call.Envelope.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return f.write(JSONCall{
		Method:     call.Method,
		URL:        call.URL,
		StatusCode: StatusCode(call.Envelope.Status),
		Status:     call.Envelope.Status,
		Headers:    headers,
		Body:       call.Envelope.Body,
		Duration:   float64(call.Duration.Microseconds()) / 1000,
	})
}

func (f *JSONFormatter) FormatError(err error) {
	_ = f.write(JSONError{Error: err.Error()})
}

func (f *JSONFormatter) write(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
