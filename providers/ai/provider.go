package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrStreamingUnsupported is returned by StreamAnswer for a provider that
// only has a non-streaming endpoint.
var ErrStreamingUnsupported = errors.New("provider has no streaming endpoint")

// Streamer opens one streaming answer for a provider. Pre-stream failures
// (unknown provider, connection refused, non-2xx status) are returned as a
// normal error; failures after the stream opened are yielded by the
// iterator.
type Streamer interface {
	StreamAnswer(ctx context.Context, provider string, request ChatRequest) (*AnswerStream, error)
}

// Provider is the non-streaming surface of the agent backend.
type Provider interface {
	Streamer

	// SendMessage performs one request/response chat call.
	SendMessage(ctx context.Context, provider string, request ChatRequest) (*StructuredAnswer, error)

	// Providers lists the provider names the backend can be asked for, in
	// display order.
	Providers() []string
}

// ProviderError is a failure reported by the provider itself, through an
// error frame or an error payload, as opposed to a transport failure.
type ProviderError struct {
	Provider string
	Message  string
}

func (err *ProviderError) Error() string {
	if err.Provider == "" {
		return err.Message
	}
	return fmt.Sprintf("%s: %s", err.Provider, err.Message)
}
