package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Response is a fully read remote response. Body holds the decompressed
// bytes; BodyErr records why the body could not be read or decompressed, in
// which case Body is nil.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	BodyErr    error
	Duration   time.Duration
}

// ReadResponse drains and closes resp.Body. It never fails: read and
// decompression problems are reported through BodyErr.
func ReadResponse(resp *http.Response, duration time.Duration) *Response {
	r := &Response{
		StatusCode: resp.StatusCode,
		Status:     StatusLine(resp),
		Headers:    CollapseHeaders(resp.Header),
		Duration:   duration,
	}

	if resp.Body == nil {
		return r
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		r.BodyErr = fmt.Errorf("error reading response body: %w", err)
		return r
	}

	body, err := Decompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		r.BodyErr = fmt.Errorf("error decoding response body: %w", err)
		return r
	}
	r.Body = body
	return r
}

// StatusLine renders the status as "<code> <reason>". The canonical reason
// wins over whatever phrase the server sent.
func StatusLine(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := http.StatusText(resp.StatusCode); text != "" {
		return code + " " + text
	}
	if phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); phrase != "" {
		return code + " " + phrase
	}
	return code + " <unknown status code>"
}

// CollapseHeaders keeps one value per header with lower-cased names. When a
// header repeats, the last value wins. Values that are not valid UTF-8 are
// decoded lossily instead of being dropped.
func CollapseHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, values := range h {
		if len(values) == 0 {
			continue
		}
		v := values[len(values)-1]
		if !utf8.ValidString(v) {
			v = strings.ToValidUTF8(v, string(utf8.RuneError))
		}
		headers[strings.ToLower(k)] = v
	}
	return headers
}

// BodyString returns the body bytes as-is
func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}
