package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitrelay/packages/echo"
	"github.com/abdul-hamid-achik/hitrelay/packages/logging"
)

var (
	echoPortFlag    int
	echoDelayFlag   string
	echoVerboseFlag bool
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Start a server that echoes requests back",
	Long: `Start an HTTP server that answers every request with its own body.

The echo server:
- Mirrors the request Content-Type and body
- Reflects method, path, query and request headers as X-Echo-* headers
- Forces a status with ?status=201
- Gzip-compresses the response with ?gzip=1
- Can add artificial delays to simulate network latency

Examples:
  hitrelay echo
  hitrelay echo --port 3000 --delay 100ms
  hitrelay send --url 'http://localhost:3000/anything?gzip=1' -X POST -d hi -t text/plain`,
	Args: cobra.NoArgs,
	RunE: echoCommand,
}

func init() {
	echoCmd.Flags().IntVarP(&echoPortFlag, "port", "p", getEnvInt("HITRELAY_ECHO_PORT", 3000), "Port to run the echo server on (env: HITRELAY_ECHO_PORT)")
	echoCmd.Flags().StringVarP(&echoDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	echoCmd.Flags().BoolVarP(&echoVerboseFlag, "verbose", "v", false, "Log every echoed request")
}

func echoCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if echoDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(echoDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", echoDelayFlag, err))
		}
	}

	logger, err := logging.New(logging.Config{Level: logLevelFlag, Format: logFormatFlag})
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	server := echo.NewServer(
		echo.WithPort(echoPortFlag),
		echo.WithDelay(delay),
		echo.WithVerbose(echoVerboseFlag),
		echo.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.StartWithContext(ctx); err != nil {
		return withExitCode(ExitNetworkError, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nEcho server stopped")
	return nil
}
