// Package cmd implements the hitrelay CLI commands using Cobra.
//
// Available commands:
//   - serve: Run the relay (POST /api, GET /health, GET /stats)
//   - send: Relay a single request in-process and print the result
//   - echo: Run a target server that reflects requests back
//   - init: Write a default .hitrelay.yaml
//   - version: Show hitrelay version information
//
// Settings come from the config file, then HITRELAY_* environment
// variables, then flags.
package cmd
