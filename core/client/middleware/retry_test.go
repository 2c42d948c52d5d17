package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leofalp/agentspace/providers/ai"
)

// sendSequence returns the configured errors in order, then a default answer.
type sendSequence struct {
	errors    []error
	callCount int
}

func (s *sendSequence) send(_ context.Context, _ string, _ ai.ChatRequest) (*ai.StructuredAnswer, error) {
	index := s.callCount
	s.callCount++

	if index < len(s.errors) && s.errors[index] != nil {
		return nil, s.errors[index]
	}
	return &ai.StructuredAnswer{Answer: "ok"}, nil
}

// fastRetryConfig keeps backoffs short so the tests run quickly.
func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func statusErr(code int) error {
	return fmt.Errorf("Sonar: non-2xx status %d: upstream", code)
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	seq := &sendSequence{}
	send := NewRetryMiddleware(fastRetryConfig(3)).Send(seq.send)

	answer, err := send(context.Background(), "Sonar", ai.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Answer != "ok" {
		t.Errorf("expected answer 'ok', got %q", answer.Answer)
	}
	if seq.callCount != 1 {
		t.Errorf("expected 1 call, got %d", seq.callCount)
	}
}

func TestRetry_RecoversAfterTransientErrors(t *testing.T) {
	seq := &sendSequence{errors: []error{statusErr(503), statusErr(429)}}
	send := NewRetryMiddleware(fastRetryConfig(3)).Send(seq.send)

	if _, err := send(context.Background(), "Sonar", ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", seq.callCount)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	last := statusErr(502)
	seq := &sendSequence{errors: []error{statusErr(500), statusErr(500), last}}
	send := NewRetryMiddleware(fastRetryConfig(2)).Send(seq.send)

	_, err := send(context.Background(), "Sonar", ai.ChatRequest{})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("expected the last error to be wrapped, got %v", err)
	}
	if seq.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", seq.callCount)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad request", statusErr(400)},
		{"provider error", &ai.ProviderError{Provider: "Sonar", Message: "status 503 from model"}},
		{"deadline", fmt.Errorf("Sonar: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := &sendSequence{errors: []error{tt.err}}
			send := NewRetryMiddleware(fastRetryConfig(3)).Send(seq.send)

			_, err := send(context.Background(), "Sonar", ai.ChatRequest{})
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected the original error, got %v", err)
			}
			if errors.Is(err, ErrRetryExhausted) {
				t.Error("non-retryable error must not be reported as exhausted")
			}
			if seq.callCount != 1 {
				t.Errorf("expected 1 call, got %d", seq.callCount)
			}
		})
	}
}

func TestRetry_CustomRetryableFunc(t *testing.T) {
	flaky := errors.New("flaky")
	seq := &sendSequence{errors: []error{flaky}}
	config := fastRetryConfig(1)
	config.RetryableFunc = func(err error) bool { return errors.Is(err, flaky) }

	if _, err := NewRetryMiddleware(config).Send(seq.send)(context.Background(), "Sonar", ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", seq.callCount)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	seq := &sendSequence{errors: []error{statusErr(503), statusErr(503)}}
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	send := NewRetryMiddleware(config).Send(seq.send)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := send(ctx, "Sonar", ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if seq.callCount != 1 {
		t.Errorf("expected 1 call before the backoff, got %d", seq.callCount)
	}
}

func TestRetry_StreamIsNotWrapped(t *testing.T) {
	if NewRetryMiddleware(RetryConfig{}).Stream != nil {
		t.Error("expected no stream middleware")
	}
}

func TestApplyRetryDefaults(t *testing.T) {
	var config RetryConfig
	applyRetryDefaults(&config)

	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", config.MaxRetries)
	}
	if config.InitialBackoff != time.Second {
		t.Errorf("expected InitialBackoff=1s, got %v", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("expected MaxBackoff=30s, got %v", config.MaxBackoff)
	}
	if config.BackoffFactor != 2.0 {
		t.Errorf("expected BackoffFactor=2, got %v", config.BackoffFactor)
	}
	if config.RetryableFunc == nil {
		t.Error("expected a default RetryableFunc")
	}
}

func TestComputeBackoff(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2,
		JitterFraction: 0.1,
	}

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{5, time.Second},
	}

	for _, tt := range tests {
		got := computeBackoff(config, tt.attempt)
		maxWithJitter := tt.base + tt.base/10
		if got < tt.base || got > maxWithJitter {
			t.Errorf("attempt %d: expected backoff in [%v, %v], got %v", tt.attempt, tt.base, maxWithJitter, got)
		}
	}
}

func TestDefaultRetryableFunc(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{statusErr(429), true},
		{statusErr(500), true},
		{statusErr(502), true},
		{statusErr(503), true},
		{statusErr(529), true},
		{statusErr(404), false},
		{errors.New("connection refused"), false},
		{context.Canceled, false},
	}

	for _, tt := range tests {
		if got := defaultRetryableFunc(tt.err); got != tt.want {
			t.Errorf("defaultRetryableFunc(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
