package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed. It wraps the last underlying error, so errors.Is and errors.As
// still reach the root cause.
var ErrRetryExhausted = errors.New("agentspace: all retry attempts exhausted")
