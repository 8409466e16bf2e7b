package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// NewRequest builds an outbound request without a body. The URL is checked
// with ValidateURL first so malformed targets fail before any I/O.
func NewRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return http.NewRequestWithContext(ctx, method, rawURL, nil)
}

// SetBody attaches body to req with the given Content-Type. GetBody is set so
// the body can be replayed on redirects that keep the method.
func SetBody(req *http.Request, body []byte, contentType string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if len(body) == 0 {
		req.Body = http.NoBody
		req.ContentLength = 0
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
