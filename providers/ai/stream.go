package ai

import (
	"iter"
)

// AnswerStream wraps a streaming iterator of document snapshots. Every value
// it yields is a snapshot taken after one applied delta and is never
// modified afterwards. The iterator ending normally means the provider
// completed; a yielded error (a *ProviderError or a transport error) is
// terminal.
//
// Important: callers must consume the stream, either by iterating with Iter()
// (including breaking out of the loop early) or by calling Collect(). The
// underlying backend may hold open resources (such as an HTTP response body)
// that are only released when the iterator completes or is abandoned via a
// loop break.
type AnswerStream struct {
	iterator iter.Seq2[*StructuredAnswer, error]
}

// NewAnswerStream creates an AnswerStream from a raw snapshot iterator.
func NewAnswerStream(iterator iter.Seq2[*StructuredAnswer, error]) *AnswerStream {
	return &AnswerStream{iterator: iterator}
}

// NewSingleAnswerStream wraps a complete answer as a one-snapshot stream.
// It is used when the answer came from the non-streaming endpoint.
func NewSingleAnswerStream(answer *StructuredAnswer) *AnswerStream {
	snapshot := answer.Clone()
	return NewAnswerStream(func(yield func(*StructuredAnswer, error) bool) {
		if snapshot != nil {
			yield(snapshot, nil)
		}
	})
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for snapshot, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    render(snapshot)
//	}
func (stream *AnswerStream) Iter() iter.Seq2[*StructuredAnswer, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the last snapshot. A stream
// that completes without yielding anything returns an empty document. Any
// mid-stream error terminates collection and returns the last snapshot seen
// together with the error.
func (stream *AnswerStream) Collect() (*StructuredAnswer, error) {
	last := &StructuredAnswer{}
	for snapshot, err := range stream.iterator {
		if err != nil {
			return last, err
		}
		if snapshot != nil {
			last = snapshot
		}
	}
	return last, nil
}
