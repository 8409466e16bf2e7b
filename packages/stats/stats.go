// Package stats keeps latency and outcome counters for relayed calls.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

const (
	// Latencies are recorded in microseconds between 1us and 10 minutes.
	minLatencyUs = 1
	maxLatencyUs = 600_000_000
)

// Collector aggregates outcomes and latencies. It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	byOutcome map[string]int64

	total   atomic.Int64
	success atomic.Int64

	startTime time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		// 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		byOutcome: make(map[string]int64),
		startTime: time.Now(),
	}
}

// Record counts one relayed call. relay.OutcomeSuccess is counted as a
// success; every other outcome is an error of that kind.
func (c *Collector) Record(outcome string, duration time.Duration) {
	c.total.Add(1)
	if outcome == relay.OutcomeSuccess {
		c.success.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.histogram.RecordValue(latencyUs)
	c.byOutcome[outcome]++
}

// Summary is a point-in-time view of the collector.
type Summary struct {
	Uptime  string           `json:"uptime"`
	Total   int64            `json:"total"`
	Success int64            `json:"success"`
	Errors  int64            `json:"errors"`
	ByKind  map[string]int64 `json:"byKind"`
	P50Ms   float64          `json:"p50Ms"`
	P95Ms   float64          `json:"p95Ms"`
	P99Ms   float64          `json:"p99Ms"`
	MaxMs   float64          `json:"maxMs"`
}

// Summary returns the current totals and latency percentiles.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.total.Load()
	success := c.success.Load()

	byKind := make(map[string]int64)
	for outcome, n := range c.byOutcome {
		if outcome != relay.OutcomeSuccess {
			byKind[outcome] = n
		}
	}

	s := Summary{
		Uptime:  time.Since(c.startTime).Round(time.Second).String(),
		Total:   total,
		Success: success,
		Errors:  total - success,
		ByKind:  byKind,
	}
	if c.histogram.TotalCount() > 0 {
		s.P50Ms = usToMs(c.histogram.ValueAtQuantile(50))
		s.P95Ms = usToMs(c.histogram.ValueAtQuantile(95))
		s.P99Ms = usToMs(c.histogram.ValueAtQuantile(99))
		s.MaxMs = usToMs(c.histogram.Max())
	}
	return s
}

// Reset clears all counters and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histogram.Reset()
	c.byOutcome = make(map[string]int64)
	c.total.Store(0)
	c.success.Store(0)
	c.startTime = time.Now()
}

func usToMs(us int64) float64 {
	return float64(us) / 1000
}
