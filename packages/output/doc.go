// Package output renders relayed responses for the command line.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: The envelope as indented JSON, one document per call
//
// Both formatters implement the Formatter interface.
package output
