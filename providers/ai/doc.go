// Package ai defines the provider-agnostic types shared by every component
// that talks to the agent backend: the wire request and response bodies,
// the [StructuredAnswer] document each provider's stream accumulates into,
// the [Delta] values a stream frame is interpreted as, and the [Apply]
// reducer that folds them.
//
// Streaming responses are exposed as an [AnswerStream]: each value yielded
// by its iterator is an immutable snapshot of the document after one applied
// delta. Backends implement [Streamer] (and optionally [Provider] for the
// non-streaming endpoints).
package ai
