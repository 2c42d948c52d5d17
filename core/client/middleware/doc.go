// Package middleware provides the built-in middlewares for the client
// package. Each is built by a New* function returning a
// [client.MiddlewareConfig] ready for [client.WithMiddleware].
//
//   - [NewRetryMiddleware] retries failed non-streaming calls with
//     exponential backoff and jitter. Streams are never retried.
//   - [NewTimeoutMiddleware] bounds the whole lifetime of a call or a
//     stream with context.WithTimeout.
//   - [NewLoggingMiddleware] logs every call through an observability
//     logger at one of three verbosity levels.
//
// Middlewares execute outermost-first:
//
//	c, err := client.New(backendClient,
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(2*time.Minute),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 2}),
//	        middleware.NewLoggingMiddleware(observer, middleware.LogLevelStandard),
//	    ),
//	)
//
// A request travels Timeout → Retry → Logging → backend, so every retry
// attempt is logged and all of them share one deadline.
package middleware
