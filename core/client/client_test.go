package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/leofalp/agentspace/providers/ai"
)

// stubProvider answers "<provider>: <message>"; providers listed in chatOnly
// report ErrStreamingUnsupported.
type stubProvider struct {
	chatOnly map[string]bool
	sendErr  error
	sends    int
	streams  int
}

func (s *stubProvider) SendMessage(_ context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error) {
	s.sends++
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &ai.StructuredAnswer{Answer: provider + ": " + request.Message}, nil
}

func (s *stubProvider) StreamAnswer(_ context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error) {
	s.streams++
	if s.chatOnly[provider] {
		return nil, fmt.Errorf("%s: %w", provider, ai.ErrStreamingUnsupported)
	}
	return ai.NewAnswerStream(func(yield func(*ai.StructuredAnswer, error) bool) {
		if !yield(&ai.StructuredAnswer{Answer: "streamed"}, nil) {
			return
		}
		yield(&ai.StructuredAnswer{Answer: "streamed " + request.Message}, nil)
	}), nil
}

func (s *stubProvider) Providers() []string { return []string{"A", "B"} }

// recorder returns a middleware that appends name to calls on the way in.
func recorder(name string, calls *[]string) MiddlewareConfig {
	return MiddlewareConfig{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error) {
				*calls = append(*calls, "send:"+name)
				return next(ctx, provider, request)
			}
		},
		Stream: func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error) {
				*calls = append(*calls, "stream:"+name)
				return next(ctx, provider, request)
			}
		},
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil provider")
	}

	_, err := New(&stubProvider{}, WithMiddleware(MiddlewareConfig{}))
	if err == nil {
		t.Error("expected error for middleware without Send")
	}
}

func TestClient_MiddlewareOrder(t *testing.T) {
	var calls []string
	c, err := New(&stubProvider{}, WithMiddleware(recorder("outer", &calls), recorder("inner", &calls)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answer, err := c.SendMessage(context.Background(), "A", ai.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Answer != "A: hi" {
		t.Errorf("expected 'A: hi', got %q", answer.Answer)
	}

	stream, err := c.StreamAnswer(context.Background(), "A", ai.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last.Answer != "streamed hi" {
		t.Errorf("expected 'streamed hi', got %q", last.Answer)
	}

	expected := []string{"send:outer", "send:inner", "stream:outer", "stream:inner"}
	if !reflect.DeepEqual(calls, expected) {
		t.Errorf("expected %v, got %v", expected, calls)
	}
}

func TestClient_SendOnlyMiddlewareSkippedForStreams(t *testing.T) {
	var calls []string
	sendOnly := recorder("send-only", &calls)
	sendOnly.Stream = nil

	c, err := New(&stubProvider{}, WithMiddleware(sendOnly))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.StreamAnswer(context.Background(), "A", ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("expected no middleware calls, got %v", calls)
	}
}

func TestClient_ChatOnlyFallsBackToSend(t *testing.T) {
	provider := &stubProvider{chatOnly: map[string]bool{"B": true}}
	c, err := New(provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stream, err := c.StreamAnswer(context.Background(), "B", ai.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snapshots []string
	for snapshot, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		snapshots = append(snapshots, snapshot.Answer)
	}
	if !reflect.DeepEqual(snapshots, []string{"B: hi"}) {
		t.Errorf("expected one snapshot 'B: hi', got %v", snapshots)
	}
	if provider.streams != 1 || provider.sends != 1 {
		t.Errorf("expected 1 stream and 1 send call, got %d and %d", provider.streams, provider.sends)
	}
}

func TestClient_ChatOnlyFallbackError(t *testing.T) {
	sendErr := errors.New("non-2xx status 500")
	c, err := New(&stubProvider{chatOnly: map[string]bool{"B": true}, sendErr: sendErr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.StreamAnswer(context.Background(), "B", ai.ChatRequest{}); !errors.Is(err, sendErr) {
		t.Errorf("expected send error, got %v", err)
	}
}

func TestClient_Forwarding(t *testing.T) {
	c, err := New(&stubProvider{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(c.Providers(), []string{"A", "B"}) {
		t.Errorf("unexpected providers %v", c.Providers())
	}
	if c.Registry() != nil {
		t.Error("expected nil registry for a provider without one")
	}
}
