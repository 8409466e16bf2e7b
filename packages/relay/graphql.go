package relay

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// GraphQLRequest is the inbound payload of POST /graphql. Body is the
// GraphQL document, {"query":...,"variables":...}, given either as a JSON
// value or as a string holding one. Only the application/json content type
// sends a body; any other is relayed without one.
type GraphQLRequest struct {
	URL         string          `json:"url"`
	Method      string          `json:"method"`
	Headers     string          `json:"headers"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"contentType"`
}

// Spec converts the payload into an OutboundRequestSpec sent through the
// JSON encoder. A body that is not valid JSON is a KindEncoding error.
func (g GraphQLRequest) Spec() (OutboundRequestSpec, error) {
	spec := OutboundRequestSpec{
		URL:     g.URL,
		Method:  g.Method,
		Headers: g.Headers,
	}
	if ContentType(g.ContentType) != ContentTypeJSON {
		return spec, nil
	}

	body, err := graphQLBody(g.Body)
	if err != nil {
		return OutboundRequestSpec{}, err
	}
	spec.Body = body
	spec.ContentType = string(ContentTypeJSON)
	return spec, nil
}

func graphQLBody(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	doc := gjson.ParseBytes(raw)
	if doc.Type != gjson.String {
		return string(raw), nil
	}

	text := doc.String()
	if !gjson.Valid(text) {
		return "", newError(KindEncoding, "graphql body is not valid JSON")
	}
	return text, nil
}
