package flow

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

// sentRequest is a node's request after substitution
type sentRequest struct {
	spec    relay.OutboundRequestSpec
	headers []relay.HeaderEntry
	fields  []relay.FormField
}

// decode turns a node's request data into the spec the relay sends.
func decode(data *RequestData, res *Resolver) (*sentRequest, error) {
	sent := &sentRequest{
		headers: decodeHeaders(data, res),
	}

	headerJSON, err := json.Marshal(sent.headers)
	if err != nil {
		return nil, err
	}

	tag := contentTypeTag(data.SelectedRequestBodyType)
	body, err := sent.decodeBody(data, tag, res)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(data.Method))
	if method == "" {
		method = http.MethodGet
	}

	sent.spec = relay.OutboundRequestSpec{
		URL:         decodeURL(data, res),
		Method:      method,
		Headers:     string(headerJSON),
		Body:        body,
		ContentType: tag,
	}
	return sent, nil
}

// contentTypeTag maps a body mode to the relay's content-type tag. A value
// that already is a media type passes through; "none" sends no body.
func contentTypeTag(selected string) string {
	if strings.Contains(selected, "/") {
		return selected
	}
	switch selected {
	case "raw":
		return string(relay.ContentTypeJSON)
	case "urlencoded":
		return string(relay.ContentTypeForm)
	case "formdata":
		return string(relay.ContentTypeMultipart)
	default:
		return ""
	}
}

func checked(pairs []KeyValue) []KeyValue {
	var out []KeyValue
	for _, p := range pairs {
		if p.Checked && p.Key != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeURL(data *RequestData, res *Resolver) string {
	target := res.Text(strings.TrimSpace(data.URL))

	var query []string
	for _, p := range checked(data.QueryParams) {
		query = append(query, url.QueryEscape(res.Text(p.Key))+"="+url.QueryEscape(res.Text(p.Value)))
	}
	if key := apiKey(data); key != nil && (key.AddTo == AddToQuery || key.AddTo == "Query") {
		query = append(query, url.QueryEscape(res.Text(key.AuthKey))+"="+url.QueryEscape(res.Text(key.AuthValue)))
	}

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + strings.Join(query, "&")
	}

	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return target
	case strings.HasPrefix(target, "//"):
		return "http:" + target
	default:
		return "http://" + target
	}
}

func apiKey(data *RequestData) *APIKey {
	if data.SelectedRequestAuthType != AuthAPIKey || data.Auth == nil || data.Auth.APIKey == nil {
		return nil
	}
	if data.Auth.APIKey.AuthKey == "" || data.Auth.APIKey.AuthValue == "" {
		return nil
	}
	return data.Auth.APIKey
}

// decodeHeaders puts the auth header first, then the checked headers. The
// first occurrence of a name wins and Content-Length is left to the
// transport.
func decodeHeaders(data *RequestData, res *Resolver) []relay.HeaderEntry {
	var entries []relay.HeaderEntry
	if h, ok := authHeader(data, res); ok {
		entries = append(entries, h)
	}
	for _, h := range checked(data.Headers) {
		entries = append(entries, relay.HeaderEntry{Key: res.Text(h.Key), Value: res.Text(h.Value)})
	}

	seen := make(map[string]bool, len(entries))
	out := make([]relay.HeaderEntry, 0, len(entries))
	for _, e := range entries {
		name := http.CanonicalHeaderKey(strings.TrimSpace(e.Key))
		if name == "" || name == "Content-Length" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, relay.HeaderEntry{Key: name, Value: e.Value})
	}
	return out
}

func authHeader(data *RequestData, res *Resolver) (relay.HeaderEntry, bool) {
	auth := data.Auth
	if auth == nil {
		return relay.HeaderEntry{}, false
	}

	switch data.SelectedRequestAuthType {
	case AuthNone:
		return relay.HeaderEntry{}, false
	case AuthBearer:
		if auth.BearerToken != "" {
			return relay.HeaderEntry{Key: "Authorization", Value: "Bearer " + res.Text(auth.BearerToken)}, true
		}
	case AuthBasic:
		if b := auth.BasicAuth; b != nil && b.Username != "" && b.Password != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(res.Text(b.Username) + ":" + res.Text(b.Password)))
			return relay.HeaderEntry{Key: "Authorization", Value: "Basic " + credentials}, true
		}
	case AuthAPIKey:
		if key := apiKey(data); key != nil && key.AddTo == AddToHeader {
			return relay.HeaderEntry{Key: res.Text(key.AuthKey), Value: res.Text(key.AuthValue)}, true
		}
	}
	return relay.HeaderEntry{}, false
}

func (s *sentRequest) decodeBody(data *RequestData, tag string, res *Resolver) (string, error) {
	body := data.Body
	if body == nil || tag == "" {
		return "", nil
	}

	switch relay.ContentType(tag) {
	case relay.ContentTypeForm:
		values := url.Values{}
		for _, p := range checked(body.URLEncoded) {
			values.Add(res.Text(p.Key), res.Text(p.Value))
		}
		return values.Encode(), nil

	case relay.ContentTypeMultipart:
		if body.FormData == nil {
			return "", nil
		}
		for _, p := range checked(body.FormData.Text) {
			s.fields = append(s.fields, relay.FormField{Key: res.Text(p.Key), Value: res.Text(p.Value)})
		}
		for _, f := range body.FormData.File {
			if f.Checked != nil && !*f.Checked {
				continue
			}
			s.fields = append(s.fields, relay.FormField{Key: res.Text(f.Key), Value: f.Value, Type: "file", Base: f.Base})
		}
		encoded, err := json.Marshal(s.fields)
		if err != nil {
			return "", err
		}
		return string(encoded), nil

	case relay.ContentTypeJSON:
		raw := res.JSON(body.Raw)
		if strings.TrimSpace(raw) == "" {
			return "{}", nil
		}
		return raw, nil

	default:
		return res.Text(body.Raw), nil
	}
}

func (s *sentRequest) headerMap() map[string]string {
	m := make(map[string]string, len(s.headers))
	for _, h := range s.headers {
		m[h.Key] = h.Value
	}
	return m
}

// bodyValue is the request body as later nodes see it: parsed JSON, a map of
// form fields, or the raw text.
func (s *sentRequest) bodyValue() any {
	switch relay.ContentType(s.spec.ContentType) {
	case relay.ContentTypeJSON:
		if gjson.Valid(s.spec.Body) {
			return json.RawMessage(s.spec.Body)
		}
		return map[string]string{}
	case relay.ContentTypeForm:
		fields := map[string]string{}
		values, _ := url.ParseQuery(s.spec.Body)
		for k, v := range values {
			fields[k] = v[len(v)-1]
		}
		return fields
	case relay.ContentTypeMultipart:
		fields := map[string]string{}
		for _, f := range s.fields {
			fields[f.Key] = f.Value
		}
		return fields
	default:
		return s.spec.Body
	}
}
