package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/ai/dialect"
)

// Client is an ai.Provider whose calls pass through a middleware chain.
type Client struct {
	provider    ai.Provider
	middlewares []MiddlewareConfig
	send        SendFunc
	stream      StreamFunc
}

var _ ai.Provider = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithMiddleware appends middlewares to the chain. The first one given is
// the outermost wrapper.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// New wraps provider. It fails when provider is nil or a middleware has no
// Send function.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("provider must not be nil")
	}

	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}

	for i, middleware := range c.middlewares {
		if middleware.Send == nil {
			return nil, fmt.Errorf("middleware #%d: Send must not be nil", i)
		}
	}

	c.send = buildSendChain(provider, c.middlewares)
	c.stream = buildStreamChain(provider, c.middlewares)
	return c, nil
}

// SendMessage runs a non-streaming call through the chain.
func (c *Client) SendMessage(ctx context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error) {
	return c.send(ctx, provider, request)
}

// StreamAnswer opens a stream through the chain.
func (c *Client) StreamAnswer(ctx context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error) {
	return c.stream(ctx, provider, request)
}

// Providers lists the wrapped provider's names.
func (c *Client) Providers() []string {
	return c.provider.Providers()
}

// Registry returns the wrapped provider's table when it exposes one, so
// that a session validates selections against it.
func (c *Client) Registry() *dialect.Registry {
	if source, ok := c.provider.(interface{ Registry() *dialect.Registry }); ok {
		return source.Registry()
	}
	return nil
}
