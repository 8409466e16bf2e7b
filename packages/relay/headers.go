package relay

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/http/httpguts"
)

// HeaderEntry is one caller-supplied header. Checked is caller metadata; it
// is kept for round-tripping and has no effect on what is sent.
type HeaderEntry struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Checked *bool  `json:"checked,omitempty"`
}

// ParseHeaderEntries parses the serialized header list. An empty string and
// JSON null both mean "no headers".
func ParseHeaderEntries(raw string) ([]HeaderEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, newError(KindMalformedHeaders, "headers are not valid JSON")
	}

	list := gjson.Parse(raw)
	if !list.IsArray() {
		return nil, newError(KindMalformedHeaders, "headers must be a JSON array, got %s", list.Type)
	}

	var shapeErr *Error
	list.ForEach(func(i, item gjson.Result) bool {
		if !item.IsObject() {
			shapeErr = newError(KindMalformedHeaders, "header %d is not an object", i.Int())
			return false
		}
		for _, field := range []string{"key", "value"} {
			if f := item.Get(field); !f.Exists() || f.Type != gjson.String {
				shapeErr = newError(KindMalformedHeaders, "header %d: %q must be a string", i.Int(), field)
				return false
			}
		}
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}

	var entries []HeaderEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &Error{Kind: KindMalformedHeaders, Err: err}
	}
	return entries, nil
}

// ParseHeaders materializes the header list into a map keyed by canonical
// header name. When a name repeats in any letter case, the last entry wins.
func ParseHeaders(raw string) (map[string]string, error) {
	entries, err := ParseHeaderEntries(raw)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(entries))
	for _, e := range entries {
		headers[http.CanonicalHeaderKey(e.Key)] = e.Value
	}
	return headers, nil
}

// ApplyHeaders sets headers on req, rejecting names and values that cannot
// be sent on the wire.
func ApplyHeaders(req *http.Request, headers map[string]string) error {
	for k, v := range headers {
		if !httpguts.ValidHeaderFieldName(k) {
			return newError(KindMalformedHeaders, "invalid header name %q", k)
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return newError(KindMalformedHeaders, "invalid value for header %q", k)
		}
		if strings.EqualFold(k, "Host") {
			// net/http ignores a Host entry in the header map
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	return nil
}
