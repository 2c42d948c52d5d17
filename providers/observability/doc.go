// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging throughout agentspace.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. Callers propagate an
// active [Provider] and [Span] through a [context.Context] using
// [ContextWithObserver] and [ContextWithSpan]; they can be retrieved with
// [ObserverFromContext] and [SpanFromContext]. Every consumer treats a nil
// observer or span as "observability disabled".
//
// semconv.go holds the attribute keys, span names, event names and metric
// names shared by the decoder, the backend client and the session.
package observability
