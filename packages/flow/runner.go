package flow

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

// Doer relays one request. *relay.Relay satisfies it.
type Doer interface {
	Do(ctx context.Context, spec relay.OutboundRequestSpec) (*relay.Envelope, error)
}

// Runner executes flows one node at a time. Each run has its own variables
// and chain, so a Runner is safe for concurrent use.
type Runner struct {
	relay  Doer
	guard  *AddressGuard
	logger logrus.FieldLogger
}

type Option func(*Runner)

// WithLogger sets the logger. Defaults to logrus' standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithAddressGuard checks every node's target before it is sent. A nil guard
// lets flows reach internal addresses.
func WithAddressGuard(guard *AddressGuard) Option {
	return func(r *Runner) {
		r.guard = guard
	}
}

// NewRunner creates a runner that sends through d. Internal addresses are
// refused unless WithAddressGuard(nil) is given.
func NewRunner(d Doer, opts ...Option) *Runner {
	r := &Runner{
		relay:  d,
		guard:  NewAddressGuard(nil),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// nodeRun is the outcome of one request node
type nodeRun struct {
	result   NodeResult
	summary  RequestSummary
	passed   bool
	duration time.Duration
}

// Run walks the flow from StartNodeID and sends every request node in turn.
// Variables and earlier responses are substituted into each request before
// it is sent. A node passes on a 2xx status; anything else, including a
// failure to send, counts against the run but does not stop it. Cancelling
// ctx stops the run after the node in flight.
func (r *Runner) Run(ctx context.Context, run *Run) *Result {
	chain := newChain()
	res := NewResolver(run.Variables, chain, func(format string, args ...any) {
		r.logger.Debugf(format, args...)
	})

	result := &Result{
		History: History{Requests: []RequestSummary{}},
		Nodes:   []NodeResult{},
	}

	var total time.Duration
	for _, node := range order(run.Nodes, run.Edges) {
		if node.Type != RequestBlock || node.Data == nil || node.Data.RequestData == nil {
			continue
		}
		if ctx.Err() != nil {
			r.logger.WithField("node", node.ID).Warn("flow cancelled")
			break
		}

		n := r.runNode(ctx, node, res, chain)
		total += n.duration
		if n.passed {
			result.History.SuccessRequests++
		} else {
			result.History.FailedRequests++
		}
		result.History.Requests = append(result.History.Requests, n.summary)
		result.Nodes = append(result.Nodes, n.result)
	}

	result.History.TotalTime = formatDuration(total)
	result.History.TotalTimeMs = total.Milliseconds()
	result.History.Status = StatusPass
	if result.History.FailedRequests > 0 {
		result.History.Status = StatusFail
	}
	result.Chain = chain.Snapshot()

	r.logger.WithFields(logrus.Fields{
		"status":  result.History.Status,
		"success": result.History.SuccessRequests,
		"failed":  result.History.FailedRequests,
		"total":   total,
	}).Info("flow finished")

	return result
}

func (r *Runner) runNode(ctx context.Context, node Node, res *Resolver, chain *Chain) nodeRun {
	data := node.Data.RequestData
	log := r.logger.WithFields(logrus.Fields{"node": node.ID, "request": data.Name})

	method := strings.ToUpper(data.Method)
	if method == "" {
		method = http.MethodGet
	}

	fail := func(err error, duration time.Duration) nodeRun {
		log.WithError(err).Warn("flow node failed")
		return nodeRun{
			result: NodeResult{
				ID:       node.ID,
				Response: NodeResponse{Body: err.Error(), Headers: []relay.HeaderEntry{}, Status: StatusError, TimeMs: duration.Milliseconds()},
				Request:  data,
			},
			summary: RequestSummary{
				Method:       method,
				Name:         data.Name,
				Status:       StatusError,
				Time:         formatDuration(duration),
				ErrorMessage: err.Error(),
			},
			duration: duration,
		}
	}

	sent, err := decode(data, res)
	if err != nil {
		return fail(err, 0)
	}

	if r.guard != nil {
		if err := r.guard.Check(ctx, sent.spec.URL); err != nil {
			return fail(err, 0)
		}
	}

	start := time.Now()
	env, err := r.relay.Do(ctx, sent.spec)
	duration := time.Since(start)
	if err != nil {
		return fail(err, duration)
	}

	code := statusCode(env.Status)
	passed := code >= 200 && code < 300

	summary := RequestSummary{
		Method: method,
		Name:   data.Name,
		Status: env.Status,
		Time:   formatDuration(duration),
	}
	if !passed {
		summary.ErrorMessage = gjson.Get(env.Body, "message").String()
		summary.Error = gjson.Get(env.Body, "error").String()
	}

	blockName := node.Data.BlockName
	if blockName == "" {
		blockName = node.ID
	}
	if err := chain.record([]string{data.Name, blockName}, sent, env); err != nil {
		log.WithError(err).Warn("failed to record response for chaining")
	}

	log.WithFields(logrus.Fields{"status": env.Status, "duration": duration}).Debug("flow node sent")

	return nodeRun{
		result: NodeResult{
			ID: node.ID,
			Response: NodeResponse{
				Body:        env.Body,
				Headers:     headerEntries(env.Headers),
				Status:      env.Status,
				TimeMs:      duration.Milliseconds(),
				SizeKB:      float64(len(env.Body)) / 1024,
				ContentType: bodyKind(env.Headers["content-type"]),
			},
			Request: data,
		},
		summary:  summary,
		passed:   passed,
		duration: duration,
	}
}

// statusCode reads the code from a "<code> <reason>" status line
func statusCode(status string) int {
	code, _, _ := strings.Cut(status, " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}

func headerEntries(headers map[string]string) []relay.HeaderEntry {
	entries := make([]relay.HeaderEntry, 0, len(headers))
	for k, v := range headers {
		entries = append(entries, relay.HeaderEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}
