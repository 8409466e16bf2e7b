package relay

import (
	"context"
	"net/http"

	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
)

// OutboundRequestSpec describes the one request to send on the caller's behalf.
type OutboundRequestSpec struct {
	URL         string
	Method      string
	Headers     string // JSON array of HeaderEntry
	Body        string
	ContentType string
}

// Sender executes a prepared request exactly once.
// *relayhttp.Client satisfies it.
type Sender interface {
	Send(req *http.Request) (*http.Response, error)
}

// Dispatcher turns an OutboundRequestSpec into one network call.
type Dispatcher struct {
	sender   Sender
	encoders Encoders
}

func NewDispatcher(sender Sender, encoders Encoders) *Dispatcher {
	return &Dispatcher{sender: sender, encoders: encoders}
}

// Prepare builds the outbound request without sending it. Caller headers are
// applied first; the body encoder then sets its own Content-Type, so the
// result does not depend on which header the caller sent.
func (d *Dispatcher) Prepare(ctx context.Context, spec OutboundRequestSpec) (*http.Request, error) {
	headers, err := ParseHeaders(spec.Headers)
	if err != nil {
		return nil, err
	}

	req, err := relayhttp.NewRequest(ctx, NormalizeMethod(spec.Method), spec.URL)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	if err := ApplyHeaders(req, headers); err != nil {
		return nil, err
	}

	if err := d.encoders.For(spec.ContentType).Encode(req, spec.Body); err != nil {
		if KindOf(err) == KindUnknown {
			err = &Error{Kind: KindEncoding, Err: err}
		}
		return nil, err
	}

	return req, nil
}

// Dispatch prepares and sends the request. There is no retry: a transport
// failure is returned as a KindNetwork error.
func (d *Dispatcher) Dispatch(ctx context.Context, spec OutboundRequestSpec) (*http.Response, error) {
	req, err := d.Prepare(ctx, spec)
	if err != nil {
		return nil, err
	}

	resp, err := d.sender.Send(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	return resp, nil
}
