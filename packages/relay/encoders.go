package relay

import (
	"net/http"

	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
)

// ContentType is the caller-declared tag that selects a body encoder. It is
// not the Content-Type header itself; the encoder sets that.
type ContentType string

const (
	ContentTypeJSON      ContentType = "application/json"
	ContentTypeForm      ContentType = "application/x-www-form-urlencoded"
	ContentTypeMultipart ContentType = "multipart/form-data"
	ContentTypeText      ContentType = "text/plain"
)

// BodyEncoder attaches a raw body string to an outbound request using the
// wire encoding of one content-type tag.
type BodyEncoder interface {
	Encode(req *http.Request, body string) error
}

// RawEncoder sends the body bytes untouched with a fixed Content-Type. It
// backs the JSON, URL-encoded and text tags; none of them validate or
// re-escape the body.
type RawEncoder struct {
	ContentType string
}

func (e RawEncoder) Encode(req *http.Request, body string) error {
	relayhttp.SetBody(req, []byte(body), e.ContentType)
	return nil
}

// NoBodyEncoder leaves the request without a body or body headers.
type NoBodyEncoder struct{}

func (NoBodyEncoder) Encode(*http.Request, string) error {
	return nil
}

// Encoders selects body encoders by tag.
type Encoders struct {
	// FileRoot, when set, confines multipart file parts read from disk to
	// this directory.
	FileRoot string
}

// For returns the encoder for tag. Selection looks only at the tag, never at
// the body. Unknown tags get NoBodyEncoder, which is not an error.
func (e Encoders) For(tag string) BodyEncoder {
	switch ContentType(tag) {
	case ContentTypeJSON:
		return RawEncoder{ContentType: string(ContentTypeJSON)}
	case ContentTypeForm:
		return RawEncoder{ContentType: string(ContentTypeForm)}
	case ContentTypeMultipart:
		return MultipartEncoder{FileRoot: e.FileRoot}
	case ContentTypeText:
		return RawEncoder{ContentType: string(ContentTypeText)}
	default:
		return NoBodyEncoder{}
	}
}
