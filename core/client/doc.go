// Package client wraps an ai.Provider with a middleware chain. Every
// StreamAnswer and SendMessage call travels through the configured
// middlewares (see the middleware subpackage) before it reaches the
// provider.
//
// The primary entry point is [New]:
//
//	c, err := client.New(backendClient,
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(2*time.Minute),
//	        middleware.NewLoggingMiddleware(observer, middleware.LogLevelStandard),
//	    ),
//	)
//
// A Client is itself an ai.Provider, so it can be handed to a session in
// place of the raw backend. Providers without a streaming endpoint are
// streamed through their non-streaming endpoint as a single snapshot.
package client
