package flow

import (
	"encoding/json"
	"mime"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

// ChainPrefix marks a reference to an earlier node, e.g.
// $$login.response.body.token.
const ChainPrefix = "$$"

// Response body kinds reported per node
const (
	BodyJSON       = "JSON"
	BodyXML        = "XML"
	BodyHTML       = "HTML"
	BodyText       = "Text"
	BodyJavaScript = "JavaScript"
	BodyImage      = "Image"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeName turns a request or block name into a reference name
func sanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Chain keeps the request and response of every executed node as JSON.
// Later nodes reach into it with gjson paths.
type Chain struct {
	entries map[string]json.RawMessage
}

func newChain() *Chain {
	return &Chain{entries: make(map[string]json.RawMessage)}
}

type chainEntry struct {
	Response chainResponse `json:"response"`
	Request  chainRequest  `json:"request"`
}

type chainResponse struct {
	Body    any               `json:"body"`
	Headers map[string]string `json:"headers"`
}

type chainRequest struct {
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
	Parameters map[string]string `json:"parameters"`
}

// Lookup resolves a reference of the form $$name.path. A bare $$name yields
// the whole entry.
func (c *Chain) Lookup(ref string) (gjson.Result, bool) {
	ref = strings.TrimSpace(ref)
	if c == nil || !strings.HasPrefix(ref, ChainPrefix) {
		return gjson.Result{}, false
	}

	name, path, _ := strings.Cut(ref[len(ChainPrefix):], ".")
	doc, ok := c.entries[name]
	if !ok {
		return gjson.Result{}, false
	}
	if path == "" {
		return gjson.ParseBytes(doc), true
	}

	result := gjson.GetBytes(doc, path)
	if !result.Exists() {
		return gjson.Result{}, false
	}
	return result, true
}

// record stores the exchange of one node under each of names
func (c *Chain) record(names []string, sent *sentRequest, env *relay.Envelope) error {
	entry := chainEntry{
		Response: chainResponse{
			Body:    responseBody(env),
			Headers: env.Headers,
		},
		Request: chainRequest{
			Headers:    sent.headerMap(),
			Body:       sent.bodyValue(),
			Parameters: queryParameters(sent.spec.URL),
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name != "" {
			c.entries[sanitizeName(name)] = data
		}
	}
	return nil
}

// Snapshot returns the entries keyed the way they are referenced
func (c *Chain) Snapshot() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(c.entries))
	for name, data := range c.entries {
		out[ChainPrefix+name] = data
	}
	return out
}

// responseBody is the parsed JSON body when the response declares JSON,
// otherwise the body text.
func responseBody(env *relay.Envelope) any {
	if bodyKind(env.Headers["content-type"]) == BodyJSON && gjson.Valid(env.Body) {
		return json.RawMessage(env.Body)
	}
	return env.Body
}

// bodyKind classifies a response Content-Type
func bodyKind(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return BodyText
	}

	switch {
	case mediaType == "text/html":
		return BodyHTML
	case mediaType == "application/json", mediaType == "application/hal+json", strings.HasSuffix(mediaType, "+json"):
		return BodyJSON
	case mediaType == "application/xml", mediaType == "text/xml":
		return BodyXML
	case mediaType == "application/javascript", mediaType == "text/javascript":
		return BodyJavaScript
	case strings.HasPrefix(mediaType, "image/"):
		return BodyImage
	default:
		return BodyText
	}
}

func queryParameters(rawURL string) map[string]string {
	params := map[string]string{}
	u, err := url.Parse(rawURL)
	if err != nil {
		return params
	}
	for key, values := range u.Query() {
		if len(values) > 0 {
			params[key] = values[len(values)-1]
		}
	}
	return params
}
