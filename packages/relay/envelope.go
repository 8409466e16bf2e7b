package relay

import (
	"bytes"
	"encoding/json"
)

// Envelope is the normalized summary of a remote response. Headers are the
// remote target's, one value per lower-cased name.
type Envelope struct {
	Headers map[string]string `json:"headers"`
	Status  string            `json:"status"`
	Body    string            `json:"body"`
}

// payload is the transport object; Body holds the serialized Envelope.
type payload struct {
	Body string `json:"body"`
}

// Encode serializes the envelope and wraps that string as the body field of
// an outer object: {"body":"{\"headers\":...,\"status\":...,\"body\":...}"}.
// Callers that only read one string field still get the whole result.
func (e *Envelope) Encode() ([]byte, error) {
	inner := *e
	if inner.Headers == nil {
		inner.Headers = map[string]string{}
	}

	data, err := marshal(inner)
	if err != nil {
		return nil, &Error{Kind: KindSerialization, Err: err}
	}

	out, err := marshal(payload{Body: string(data)})
	if err != nil {
		return nil, &Error{Kind: KindSerialization, Err: err}
	}
	return out, nil
}

// marshal is json.Marshal without HTML escaping, so bodies keep their
// literal '<', '>' and '&'.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
