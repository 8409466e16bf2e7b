package relay

import (
	"errors"
	"fmt"
)

// Kind classifies a relay failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMalformedHeaders means the header list is not JSON or has the wrong shape.
	KindMalformedHeaders
	// KindEncoding means the body does not match its declared content-type.
	KindEncoding
	// KindNetwork covers DNS, connect, TLS and timeout failures of the outbound call.
	KindNetwork
	// KindResponseDecode means the remote response could not be turned into text at all.
	KindResponseDecode
	// KindSerialization means the final envelope could not be serialized.
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindMalformedHeaders:
		return "malformed headers"
	case KindEncoding:
		return "encoding error"
	case KindNetwork:
		return "network error"
	case KindResponseDecode:
		return "response decode error"
	case KindSerialization:
		return "serialization error"
	default:
		return "unknown error"
	}
}

// Error is a relay failure of a given Kind.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinels for errors.Is. They carry no cause and match any Error of the same Kind.
var (
	ErrMalformedHeaders = &Error{Kind: KindMalformedHeaders}
	ErrEncoding         = &Error{Kind: KindEncoding}
	ErrNetwork          = &Error{Kind: KindNetwork}
	ErrResponseDecode   = &Error{Kind: KindResponseDecode}
	ErrSerialization    = &Error{Kind: KindSerialization}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// KindOf reports the Kind of err, or KindUnknown when err is not a relay error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
