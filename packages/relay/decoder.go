package relay

import (
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
)

// bodyErrorPrefix marks a body field that carries a decode failure instead
// of the remote body.
const bodyErrorPrefix = "Error: "

// DecodeResponse reads resp into an Envelope and closes its body. Read and
// decompression failures end up in the body text; only a missing response is
// an error.
func DecodeResponse(resp *http.Response, duration time.Duration) (*Envelope, error) {
	if resp == nil {
		return nil, newError(KindResponseDecode, "no response to decode")
	}

	r := relayhttp.ReadResponse(resp, duration)
	return &Envelope{
		Headers: r.Headers,
		Status:  r.Status,
		Body:    BodyText(r),
	}, nil
}

// BodyText renders the body as UTF-8. A declared non-UTF-8 charset is
// transcoded; otherwise invalid sequences become U+FFFD.
func BodyText(r *relayhttp.Response) string {
	if r.BodyErr != nil {
		return bodyErrorPrefix + r.BodyErr.Error()
	}
	if len(r.Body) == 0 {
		return ""
	}

	if name := declaredCharset(r.ContentType()); name != "" {
		if enc, canonical := charset.Lookup(name); enc != nil && canonical != "utf-8" {
			if out, err := enc.NewDecoder().Bytes(r.Body); err == nil {
				return string(out)
			}
		}
	}

	text := r.BodyString()
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, string(utf8.RuneError))
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
