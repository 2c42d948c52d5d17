package client

import (
	"context"
	"errors"

	"github.com/leofalp/agentspace/providers/ai"
)

// SendFunc sends one non-streaming request for provider and returns the
// parsed answer. It is the base unit threaded through the send middleware
// chain.
type SendFunc func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error)

// StreamFunc opens one answer stream for provider. It is the base unit
// threaded through the stream middleware chain.
type StreamFunc func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error)

// Middleware intercepts send requests. Middlewares are applied
// outermost-first: the first middleware in the slice is the outermost
// wrapper.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware is the streaming counterpart of Middleware. It may wrap
// the returned AnswerStream to observe the snapshot sequence.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs a send middleware with its optional streaming
// counterpart. Send is required. A nil Stream means streaming calls bypass
// this entry.
type MiddlewareConfig struct {
	Send   Middleware
	Stream StreamMiddleware
}

// buildSendChain applies middlewares in reverse so that middlewares[0] is
// outermost.
func buildSendChain(provider ai.Provider, middlewares []MiddlewareConfig) SendFunc {
	var chain SendFunc = provider.SendMessage

	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i].Send(chain)
	}
	return chain
}

// buildStreamChain builds the stream chain. The base function streams
// natively and falls back to the non-streaming endpoint, wrapped as a
// single-snapshot stream, for chat-only providers. Entries with a nil
// Stream are skipped.
func buildStreamChain(provider ai.Provider, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc = func(ctx context.Context, name string, request ai.ChatRequest) (*ai.AnswerStream, error) {
		stream, err := provider.StreamAnswer(ctx, name, request)
		if !errors.Is(err, ai.ErrStreamingUnsupported) {
			return stream, err
		}

		answer, err := provider.SendMessage(ctx, name, request)
		if err != nil {
			return nil, err
		}
		return ai.NewSingleAnswerStream(answer), nil
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}
	return chain
}
