package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrometheusContentType is the content type of WritePrometheus output
const PrometheusContentType = "text/plain; version=0.0.4; charset=utf-8"

// WritePrometheus writes s in the Prometheus text exposition format
func WritePrometheus(w io.Writer, s Summary) {
	fmt.Fprintf(w, "# HELP hitrelay_requests_total Total number of relayed requests\n")
	fmt.Fprintf(w, "# TYPE hitrelay_requests_total counter\n")
	fmt.Fprintf(w, "hitrelay_requests_total %d\n", s.Total)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP hitrelay_requests_success_total Relayed requests that produced an envelope\n")
	fmt.Fprintf(w, "# TYPE hitrelay_requests_success_total counter\n")
	fmt.Fprintf(w, "hitrelay_requests_success_total %d\n", s.Success)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP hitrelay_requests_failed_total Relayed requests that failed, by error kind\n")
	fmt.Fprintf(w, "# TYPE hitrelay_requests_failed_total counter\n")
	kinds := make([]string, 0, len(s.ByKind))
	for kind := range s.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "hitrelay_requests_failed_total{kind=\"%s\"} %d\n", sanitizeLabel(kind), s.ByKind[kind])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP hitrelay_request_duration_ms Relayed request duration in milliseconds\n")
	fmt.Fprintf(w, "# TYPE hitrelay_request_duration_ms summary\n")
	fmt.Fprintf(w, "hitrelay_request_duration_ms{quantile=\"0.5\"} %.3f\n", s.P50Ms)
	fmt.Fprintf(w, "hitrelay_request_duration_ms{quantile=\"0.95\"} %.3f\n", s.P95Ms)
	fmt.Fprintf(w, "hitrelay_request_duration_ms{quantile=\"0.99\"} %.3f\n", s.P99Ms)
	fmt.Fprintf(w, "hitrelay_request_duration_ms{quantile=\"1\"} %.3f\n", s.MaxMs)
	fmt.Fprintf(w, "hitrelay_request_duration_ms_count %d\n", s.Total)
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
