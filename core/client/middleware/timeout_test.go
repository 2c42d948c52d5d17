package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leofalp/agentspace/providers/ai"
)

func TestTimeout_SendHasDeadline(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	next := func(ctx context.Context, _ string, _ ai.ChatRequest) (*ai.StructuredAnswer, error) {
		deadline, hasDeadline = ctx.Deadline()
		return &ai.StructuredAnswer{Answer: "ok"}, nil
	}

	send := NewTimeoutMiddleware(time.Minute).Send(next)
	if _, err := send(context.Background(), "Sonar", ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasDeadline {
		t.Fatal("expected a deadline on the context")
	}
	if time.Until(deadline) > time.Minute {
		t.Errorf("deadline too far away: %v", deadline)
	}
}

func TestTimeout_SendExpires(t *testing.T) {
	next := func(ctx context.Context, _ string, _ ai.ChatRequest) (*ai.StructuredAnswer, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	send := NewTimeoutMiddleware(10 * time.Millisecond).Send(next)
	_, err := send(context.Background(), "Sonar", ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_StreamContextLivesUntilConsumed(t *testing.T) {
	var streamCtx context.Context
	next := func(ctx context.Context, _ string, _ ai.ChatRequest) (*ai.AnswerStream, error) {
		streamCtx = ctx
		return ai.NewAnswerStream(func(yield func(*ai.StructuredAnswer, error) bool) {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			yield(&ai.StructuredAnswer{Answer: "p"}, nil)
		}), nil
	}

	stream, err := NewTimeoutMiddleware(time.Minute).Stream(next)(context.Background(), "Sonar", ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if streamCtx.Err() != nil {
		t.Fatal("context cancelled before the stream was consumed")
	}

	answer, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if answer.Answer != "p" {
		t.Errorf("expected 'p', got %q", answer.Answer)
	}
	if !errors.Is(streamCtx.Err(), context.Canceled) {
		t.Errorf("expected the context to be cancelled after consumption, got %v", streamCtx.Err())
	}
}

func TestTimeout_StreamCancelledOnEarlyBreak(t *testing.T) {
	var streamCtx context.Context
	next := func(ctx context.Context, _ string, _ ai.ChatRequest) (*ai.AnswerStream, error) {
		streamCtx = ctx
		return ai.NewAnswerStream(func(yield func(*ai.StructuredAnswer, error) bool) {
			for _, text := range []string{"a", "ab", "abc"} {
				if !yield(&ai.StructuredAnswer{Answer: text}, nil) {
					return
				}
			}
		}), nil
	}

	stream, err := NewTimeoutMiddleware(time.Minute).Stream(next)(context.Background(), "Sonar", ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range stream.Iter() {
		break
	}
	if streamCtx.Err() == nil {
		t.Error("expected the context to be cancelled after an early break")
	}
}

func TestTimeout_StreamOpenErrorCancels(t *testing.T) {
	var streamCtx context.Context
	openErr := errors.New("connection refused")
	next := func(ctx context.Context, _ string, _ ai.ChatRequest) (*ai.AnswerStream, error) {
		streamCtx = ctx
		return nil, openErr
	}

	_, err := NewTimeoutMiddleware(time.Minute).Stream(next)(context.Background(), "Sonar", ai.ChatRequest{})
	if !errors.Is(err, openErr) {
		t.Fatalf("expected the open error, got %v", err)
	}
	if streamCtx.Err() == nil {
		t.Error("expected the context to be cancelled")
	}
}
