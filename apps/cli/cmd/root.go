package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	noColorFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "hitrelay",
	Short: "A local relay for browser-built HTTP requests.",
	Long: `hitrelay accepts a description of an HTTP request over POST /api, sends it
to the target on the caller's behalf and returns the status, headers and body
wrapped in a JSON envelope. Browser clients use it to reach APIs that would
otherwise be blocked by CORS.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries the process exit code for a failed command. A silent
// error has already been printed by the command.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// reported is withExitCode for an error the command already printed
func reported(code int, err error) error {
	return &exitError{code: code, err: err, silent: true}
}

// exitCodeOf returns the exit code for err
func exitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || !ee.silent {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCodeOf(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITRELAY_CONFIG", ""), "Path to config file (env: HITRELAY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("HITRELAY_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HITRELAY_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", getEnvString("HITRELAY_LOG_FORMAT", ""), "Log format: text, json (env: HITRELAY_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITRELAY_NO_COLOR", false), "Disable colored output (env: HITRELAY_NO_COLOR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}
