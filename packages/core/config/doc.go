// Package config handles configuration loading and management for hitrelay.
//
// It provides functionality for:
//   - Loading configuration from .hitrelay.yaml or .hitrelay.json files
//   - Default configuration values
//   - Merging file values with command-line overrides
//
// The relay pipeline itself reads no configuration; the serve command turns
// a Config into a client and a server.
package config
