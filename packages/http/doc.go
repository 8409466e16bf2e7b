// Package http provides the outbound HTTP client used by the relay.
//
// It wraps the standard library's http package with:
//   - A single pooled transport shared by all requests
//   - Redirect, proxy and TLS verification options
//   - Default headers that never override caller headers
//   - Response reading with gzip, deflate, brotli and zstd decompression
package http
