package http

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Decompress reverses a Content-Encoding header value. Codings are listed in
// the order they were applied, so they are undone from last to first.
// "identity" and an empty value leave the body untouched.
func Decompress(contentEncoding string, body []byte) ([]byte, error) {
	codings := parseCodings(contentEncoding)
	for i := len(codings) - 1; i >= 0; i-- {
		if len(body) == 0 {
			return body, nil
		}
		out, err := decode(codings[i], body)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", codings[i], err)
		}
		body = out
	}
	return body, nil
}

func parseCodings(header string) []string {
	var codings []string
	for _, c := range strings.Split(header, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || c == "identity" {
			continue
		}
		codings = append(codings, c)
	}
	return codings
}

func decode(coding string, body []byte) ([]byte, error) {
	switch coding {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		return inflate(body)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", coding)
	}
}

// inflate handles both zlib-wrapped deflate (what RFC 9110 means) and the raw
// deflate streams some servers send instead.
func inflate(body []byte) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(body))
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header) {
		r, err := zlib.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	return io.ReadAll(r)
}

func isZlibHeader(b []byte) bool {
	cmf, flg := b[0], b[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
