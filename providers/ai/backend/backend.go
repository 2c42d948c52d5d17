package backend

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/ai/dialect"
	"github.com/leofalp/agentspace/providers/observability"
)

const (
	defaultBaseURL = "http://localhost:8000"

	multiAgentPath = "/chat/multi_agent"
	feedbackPath   = "/api/feedback"
)

// Client talks to one agent backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	registry    *dialect.Registry
	observer    observability.Provider
	idleTimeout time.Duration
}

// Ensure Client implements ai.Provider
var _ ai.Provider = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHttpClient sets the HTTP client used for outbound requests. Streaming
// requests stay open for the whole answer, so the client should not carry a
// short overall Timeout; use WithIdleTimeout instead.
func WithHttpClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// WithRegistry replaces the built-in provider table.
func WithRegistry(registry *dialect.Registry) Option {
	return func(client *Client) {
		client.registry = registry
	}
}

// WithObserver sets the observability provider. Without one the client
// falls back to an observer carried on the request context, if any.
func WithObserver(observer observability.Provider) Option {
	return func(client *Client) {
		client.observer = observer
	}
}

// WithIdleTimeout fails a stream with ErrIdleTimeout when no frame arrives
// for the given duration. Zero (the default) waits forever.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		client.idleTimeout = timeout
	}
}

// New creates a Client. Environment variables:
//   - AGENTSPACE_BASE_URL: backend base URL (optional, defaults to http://localhost:8000)
func New(opts ...Option) *Client {
	baseURL := os.Getenv("AGENTSPACE_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		registry:   dialect.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.registry == nil {
		client.registry = dialect.DefaultRegistry()
	}
	return client
}

// BaseURL returns the configured backend base URL.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// Registry returns the provider table the client resolves names against.
func (client *Client) Registry() *dialect.Registry {
	return client.registry
}

// Providers lists the registered provider names in display order.
func (client *Client) Providers() []string {
	return client.registry.Names()
}

func (client *Client) observerFor(ctx context.Context) observability.Provider {
	if client.observer != nil {
		return client.observer
	}
	return observability.ObserverFromContext(ctx)
}
