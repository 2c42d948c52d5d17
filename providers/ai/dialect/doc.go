// Package dialect maps decoded SSE frames to [ai.Delta] values.
//
// The agent backend speaks two wire dialects. The typed dialect names every
// frame (token, sources, usage, final, done, error). The untyped dialect
// sends every frame as the default "message" event and the payload shape
// alone says what it means. [Interpret] handles both, so one stream loop
// serves every provider; the per-provider differences live in a
// [Descriptor] looked up from a [Registry].
package dialect
