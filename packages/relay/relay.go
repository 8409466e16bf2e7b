package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Request is the inbound payload of POST /api. The content-type tag travels
// in the field named "request".
type Request struct {
	URL     string `json:"url"`
	Method  string `json:"method"`
	Headers string `json:"headers"`
	Body    string `json:"body"`
	Request string `json:"request"`
}

// Spec converts the wire payload into an OutboundRequestSpec.
func (r Request) Spec() OutboundRequestSpec {
	return OutboundRequestSpec{
		URL:         r.URL,
		Method:      r.Method,
		Headers:     r.Headers,
		Body:        r.Body,
		ContentType: r.Request,
	}
}

// OutcomeSuccess is the outcome reported to a Recorder for a relayed call
// that produced an envelope.
const OutcomeSuccess = "success"

// Recorder observes the outcome and latency of each relayed call. Outcome is
// OutcomeSuccess or the failing Kind's name.
type Recorder interface {
	Record(outcome string, duration time.Duration)
}

// Relay runs the whole pipeline: headers, body encoding, dispatch, response
// decoding and envelope encoding. It holds no per-request state and is safe
// for concurrent use.
type Relay struct {
	sender   Sender
	encoders Encoders
	logger   logrus.FieldLogger
	recorder Recorder
}

type Option func(*Relay)

// WithLogger sets the logger. Defaults to logrus' standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithRecorder sets where call outcomes are reported
func WithRecorder(rec Recorder) Option {
	return func(r *Relay) {
		r.recorder = rec
	}
}

// WithFileRoot confines multipart file parts read from disk to dir
func WithFileRoot(dir string) Option {
	return func(r *Relay) {
		r.encoders.FileRoot = dir
	}
}

func New(sender Sender, opts ...Option) *Relay {
	r := &Relay{
		sender: sender,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do relays spec and returns the decoded envelope.
func (r *Relay) Do(ctx context.Context, spec OutboundRequestSpec) (*Envelope, error) {
	log := r.logger.WithFields(logrus.Fields{
		"target":       spec.URL,
		"method":       NormalizeMethod(spec.Method),
		"content_type": spec.ContentType,
	})

	start := time.Now()
	resp, err := NewDispatcher(r.sender, r.encoders).Dispatch(ctx, spec)
	if err != nil {
		r.finish(log, start, err)
		return nil, err
	}
	duration := time.Since(start)

	env, err := DecodeResponse(resp, duration)
	if err != nil {
		r.finish(log, start, err)
		return nil, err
	}

	r.finish(log.WithField("status", env.Status), start, nil)
	return env, nil
}

// Handle relays spec and returns the double-encoded transport payload.
func (r *Relay) Handle(ctx context.Context, spec OutboundRequestSpec) ([]byte, error) {
	env, err := r.Do(ctx, spec)
	if err != nil {
		return nil, err
	}

	out, err := env.Encode()
	if err != nil {
		r.logger.WithError(err).Error("envelope serialization failed")
		return nil, err
	}
	return out, nil
}

func (r *Relay) finish(log logrus.FieldLogger, start time.Time, err error) {
	duration := time.Since(start)
	log = log.WithField("duration", duration)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = KindOf(err).String()
		log.WithError(err).WithField("kind", outcome).Warn("relay failed")
	} else {
		log.Debug("relayed")
	}

	if r.recorder != nil {
		r.recorder.Record(outcome, duration)
	}
}
