package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitrelay/packages/output"
	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	urlFlag     string
	methodFlag  string
	headerFlags []string
	bodyFlag    string
	typeFlag    string
	fileFlag    string
	rawFlag     bool
	queryFlag   string
	watchFlag   bool
	outputFlag  string
	verboseFlag bool
	maxBodyFlag int
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Relay a single request and print the result",
	Long: `Run one request through the relay pipeline in-process and print the
decoded response.

The request comes from flags, or from a JSON file in the same shape as the
POST /api payload ({url, method, headers, body, request}). Flags given on the
command line override the file.

Examples:
  hitrelay send --url https://httpbin.org/get
  hitrelay send -X POST --url http://localhost:3000/echo -H 'X-Test: 1' -d '{"a":1}' -t application/json
  hitrelay send --file request.json --query data.items.#.id
  hitrelay send --file request.json --watch
  hitrelay send --url http://localhost:3000/echo --raw`,
	Args: cobra.NoArgs,
	RunE: sendCommand,
}

func init() {
	sendCmd.Flags().StringVarP(&urlFlag, "url", "u", "", "Target URL")
	sendCmd.Flags().StringVarP(&methodFlag, "method", "X", "GET", "HTTP method: GET, POST, PUT, DELETE, PATCH")
	sendCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	sendCmd.Flags().StringVarP(&bodyFlag, "body", "d", "", "Request body")
	sendCmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Body content type: application/json, application/x-www-form-urlencoded, multipart/form-data, text/plain")
	sendCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read the request from a JSON file")
	sendCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the transport payload exactly as POST /api returns it")
	sendCmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Print only this gjson path from the response body")
	sendCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-send whenever --file changes")
	sendCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITRELAY_OUTPUT", "console"), "Output format: console, json (env: HITRELAY_OUTPUT)")
	sendCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print response headers")
	sendCmd.Flags().IntVar(&maxBodyFlag, "max-body", 0, "Truncate printed bodies to this many bytes (0 = no limit)")
	addClientFlags(sendCmd)
}

func sendCommand(cmd *cobra.Command, args []string) error {
	if watchFlag && fileFlag == "" {
		return withExitCode(ExitUsageError, fmt.Errorf("--watch requires --file"))
	}
	if fileFlag == "" && urlFlag == "" {
		return withExitCode(ExitUsageError, fmt.Errorf("either --url or --file is required"))
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if logLevelFlag == "" && cfg.LogLevel == "info" {
		// quiet unless asked; relay lines go to stderr next to the output
		cfg.LogLevel = "warn"
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	r := relay.New(newClient(cfg), relay.WithLogger(logger), relay.WithFileRoot(cfg.FileRoot))

	formatter, err := output.New(outputFlag, cmd.OutOrStdout(), verboseFlag, noColorFlag)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if console, ok := formatter.(*output.ConsoleFormatter); ok && maxBodyFlag > 0 {
		output.WithMaxBody(maxBodyFlag)(console)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sendErr := sendOnce(ctx, cmd, r, formatter)
	if !watchFlag {
		return sendErr
	}
	return watchAndSend(ctx, cmd, r, formatter)
}

// sendOnce builds the request, relays it and prints the outcome
func sendOnce(ctx context.Context, cmd *cobra.Command, r *relay.Relay, formatter output.Formatter) error {
	req, err := buildRequest(cmd)
	if err != nil {
		formatter.FormatError(err)
		return reported(ExitUsageError, err)
	}

	start := time.Now()
	env, err := r.Do(ctx, req.Spec())
	if err != nil {
		formatter.FormatError(err)
		return reported(exitCodeForKind(relay.KindOf(err)), err)
	}

	return printEnvelope(cmd.OutOrStdout(), formatter, &output.Call{
		Method:   relay.NormalizeMethod(req.Method),
		URL:      req.URL,
		Envelope: env,
		Duration: time.Since(start),
	})
}

func printEnvelope(w io.Writer, formatter output.Formatter, call *output.Call) error {
	switch {
	case rawFlag:
		payload, err := call.Envelope.Encode()
		if err != nil {
			formatter.FormatError(err)
			return reported(ExitRelayError, err)
		}
		fmt.Fprintln(w, string(payload))
		return nil
	case queryFlag != "":
		result := gjson.Get(call.Envelope.Body, queryFlag)
		if !result.Exists() {
			err := fmt.Errorf("query %q matched nothing in the response body", queryFlag)
			formatter.FormatError(err)
			return reported(ExitRelayError, err)
		}
		fmt.Fprintln(w, result.String())
		return nil
	default:
		return formatter.FormatCall(call)
	}
}

// buildRequest assembles the relay request from --file and the flags that
// were set explicitly.
func buildRequest(cmd *cobra.Command) (*relay.Request, error) {
	req := &relay.Request{Method: "GET"}

	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		if err := json.Unmarshal(data, req); err != nil {
			return nil, fmt.Errorf("failed to parse request file %s: %w", fileFlag, err)
		}
	}

	flags := cmd.Flags()
	if fileFlag == "" || flags.Changed("url") {
		req.URL = urlFlag
	}
	if fileFlag == "" || flags.Changed("method") {
		req.Method = strings.ToUpper(methodFlag)
	}
	if fileFlag == "" || flags.Changed("body") {
		req.Body = bodyFlag
	}
	if fileFlag == "" || flags.Changed("type") {
		req.Request = typeFlag
	}
	if fileFlag == "" || flags.Changed("header") {
		headers, err := headerEntries(headerFlags)
		if err != nil {
			return nil, err
		}
		req.Headers = headers
	}

	if req.URL == "" {
		return nil, fmt.Errorf("request has no url")
	}
	return req, nil
}

// headerEntries converts 'Name: value' flags into the serialized header list
func headerEntries(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}

	entries := make([]relay.HeaderEntry, 0, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return "", fmt.Errorf("invalid header %q, expected 'Name: value'", v)
		}
		entries = append(entries, relay.HeaderEntry{Key: name, Value: strings.TrimSpace(value)})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func exitCodeForKind(kind relay.Kind) int {
	switch kind {
	case relay.KindNetwork:
		return ExitNetworkError
	case relay.KindMalformedHeaders, relay.KindEncoding:
		return ExitUsageError
	default:
		return ExitRelayError
	}
}

// watchAndSend re-sends whenever the request file is written
func watchAndSend(ctx context.Context, cmd *cobra.Command, r *relay.Relay, formatter output.Formatter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(fileFlag)
	if err != nil {
		return err
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fileFlag, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", fileFlag)

	return watchLoop(ctx, watcher.Events, watcher.Errors, target, func(name string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-sending...\n\n", name)
		_ = sendOnce(ctx, cmd, r, formatter)
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	}, func(err error) {
		formatter.FormatError(fmt.Errorf("watcher error: %w", err))
	})
}

// watchLoop calls resend once per debounced burst of writes to target. The
// debounce timer only signals; resend runs on this goroutine, so sends never
// overlap and a change seen mid-send is handled after it finishes.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, target string, resend func(name string), onError func(error)) error {
	changed := make(chan string, 1)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case changed <- name:
				default:
				}
			})

		case name := <-changed:
			resend(name)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}
