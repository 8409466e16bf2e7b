package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
)

// formatValue truncates long values for display
func formatValue(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	maxBody int
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithMaxBody truncates printed bodies longer than n bytes. 0 prints everything.
func WithMaxBody(n int) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.maxBody = n
	}
}

// statusColor picks a colour by status class
func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow, color.Bold)
	case code >= 300:
		return color.New(color.FgCyan, color.Bold)
	case code >= 200:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.Bold)
	}
}

func (f *ConsoleFormatter) FormatCall(call *Call) error {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	env := call.Envelope
	status := statusColor(StatusCode(env.Status)).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold(call.Method), call.URL)
	fmt.Fprintf(f.writer, "%s %s\n", status(env.Status), cyan(fmt.Sprintf("(%dms)", call.Duration.Milliseconds())))

	if f.verbose && len(env.Headers) > 0 {
		keys := make([]string, 0, len(env.Headers))
		for k := range env.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(f.writer, "%s %s\n", faint(k+":"), env.Headers[k])
		}
	}

	if env.Body != "" {
		fmt.Fprintf(f.writer, "\n%s\n", formatValue(env.Body, f.maxBody))
	}
	return nil
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

// FormatHeader prints the name and version line
func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitrelay"), version)
}

// FormatBanner prints the serve startup banner
func (f *ConsoleFormatter) FormatBanner(version, addr string, routes []string) {
	f.FormatHeader(version)
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(f.writer, "Listening on %s\n", green("http://"+addr))
	for _, r := range routes {
		fmt.Fprintf(f.writer, "  %s\n", r)
	}
	fmt.Fprintln(f.writer)
}
