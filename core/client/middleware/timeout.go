package middleware

import (
	"context"
	"time"

	"github.com/leofalp/agentspace/core/client"
	"github.com/leofalp/agentspace/providers/ai"
)

// NewTimeoutMiddleware enforces a deadline on both non-streaming calls and
// streams.
//
// For streams the deadline covers the whole stream, not just the time to
// the first byte: the cancel function runs once the iterator finished,
// failed or was abandoned. A shorter deadline already on the caller's
// context still wins.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
	}
}

func buildSendTimeout(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, provider, request)
		}
	}
}

func buildStreamTimeout(timeout time.Duration) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, provider, request)
			if err != nil {
				cancel()
				return nil, err
			}
			return wrapStreamWithCancel(stream, cancel), nil
		}
	}
}

// wrapStreamWithCancel calls cancel when the stream ends, fails, or the
// caller breaks out of the loop.
func wrapStreamWithCancel(stream *ai.AnswerStream, cancel context.CancelFunc) *ai.AnswerStream {
	return ai.NewAnswerStream(func(yield func(*ai.StructuredAnswer, error) bool) {
		defer cancel()

		for snapshot, err := range stream.Iter() {
			if !yield(snapshot, err) || err != nil {
				return
			}
		}
	})
}
