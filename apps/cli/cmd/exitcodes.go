package cmd

// Exit codes for hitrelay CLI
const (
	// ExitSuccess indicates the command completed
	ExitSuccess = 0

	// ExitFailure indicates an error not covered by a more specific code
	ExitFailure = 1

	// ExitRelayError indicates the relayed call or its output failed
	ExitRelayError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
