package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

// Call describes one relayed request and what came back.
type Call struct {
	Method   string
	URL      string
	Envelope *relay.Envelope
	Duration time.Duration
}

// Formatter renders calls and errors.
type Formatter interface {
	FormatCall(call *Call) error
	FormatError(err error)
}

// New returns the formatter for format ("console" or "json").
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(WithJSONWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// StatusCode returns the numeric code at the start of an envelope status,
// or 0 when there is none.
func StatusCode(status string) int {
	code, _, _ := strings.Cut(status, " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}
