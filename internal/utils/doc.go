// Package utils provides shared low-level helpers used throughout the
// agentspace internals: HTTP request helpers for the agent backend, both
// synchronous and streaming, and string truncation for log-safe previews.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips, and
// [DoPostStream] together with [SSEScanner] for decoding the backend's
// Server-Sent Events into [Frame] values.
package utils
