package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/leofalp/agentspace/internal/utils"
	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/ai/dialect"
	"github.com/leofalp/agentspace/providers/observability"
)

// ErrIdleTimeout is yielded when a stream stays silent longer than the
// configured idle timeout.
var ErrIdleTimeout = errors.New("stream idle timeout")

// StreamAnswer opens the provider's streaming endpoint.
//
// Pre-stream failures (unknown provider, connection error, non-2xx status)
// are returned directly. Once the stream is open, every applied delta yields
// a snapshot; a done frame or the [DONE] sentinel ends iteration normally,
// an error frame yields an *ai.ProviderError, and a read failure yields the
// transport error. A body that ends without any terminal frame is treated as
// completed.
func (client *Client) StreamAnswer(ctx context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error) {
	descriptor, err := client.registry.Lookup(provider)
	if err != nil {
		return nil, err
	}
	if descriptor.StreamPath == "" {
		return nil, fmt.Errorf("%s: %w", descriptor.Name, ai.ErrStreamingUnsupported)
	}

	observer := client.observerFor(ctx)
	attrs := []observability.Attribute{
		observability.String(observability.AttrProvider, descriptor.Name),
		observability.String(observability.AttrMode, string(request.Mode)),
		observability.Int(observability.AttrHistoryLength, len(request.History)),
	}

	var span observability.Span
	if observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanProviderStream, attrs...)
		observer.Trace(ctx, "Opening provider stream", attrs...)
	}

	streamCtx, cancel := context.WithCancelCause(ctx)
	started := time.Now()

	httpResponse, err := utils.DoPostStream(streamCtx, client.httpClient, client.baseURL+descriptor.StreamPath, normalizeRequest(request))
	if err != nil {
		cancel(nil)
		client.finish(ctx, observer, span, descriptor.Name, started, err)
		return nil, fmt.Errorf("%s: %w", descriptor.Name, err)
	}
	if span != nil {
		span.AddEvent(observability.EventStreamOpened)
	}

	var idle *time.Timer
	if client.idleTimeout > 0 {
		idle = time.AfterFunc(client.idleTimeout, func() { cancel(ErrIdleTimeout) })
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(*ai.StructuredAnswer, error) bool) {
		var streamErr error
		defer func() {
			if idle != nil {
				idle.Stop()
			}
			cancel(nil)
			utils.CloseWithLog(httpResponse.Body)
			client.recordSkipped(ctx, observer, descriptor.Name, sseScanner.Skipped())
			client.finish(ctx, observer, span, descriptor.Name, started, streamErr)
		}()

		var document *ai.StructuredAnswer
		for {
			frame, scanErr := sseScanner.Next()
			if idle != nil {
				idle.Reset(client.idleTimeout)
			}

			if errors.Is(scanErr, io.EOF) {
				if observer != nil {
					observer.Warn(ctx, "Stream ended without a terminal frame",
						observability.String(observability.AttrProvider, descriptor.Name))
				}
				return
			}
			if scanErr != nil {
				streamErr = readError(streamCtx, ctx, scanErr)
				yield(nil, streamErr)
				return
			}

			delta := dialect.Interpret(frame, document, descriptor)
			switch delta.Kind {
			case ai.DeltaComplete:
				return
			case ai.DeltaFail:
				streamErr = &ai.ProviderError{Provider: descriptor.Name, Message: delta.Message}
				yield(nil, streamErr)
				return
			case ai.DeltaNone:
				continue
			}

			if document == nil && span != nil {
				span.AddEvent(observability.EventStreamFirstByte)
			}
			document = ai.Apply(document, delta)
			if !yield(document, nil) {
				return
			}
		}
	}

	return ai.NewAnswerStream(iteratorFunc), nil
}

// readError tells an idle timeout and a caller cancellation apart from a
// plain transport failure.
func readError(streamCtx, parentCtx context.Context, scanErr error) error {
	if errors.Is(context.Cause(streamCtx), ErrIdleTimeout) {
		return ErrIdleTimeout
	}
	if parentCtx.Err() != nil {
		return parentCtx.Err()
	}
	return fmt.Errorf("SSE read error: %w", scanErr)
}

// normalizeRequest sends an empty history as [] rather than null.
func normalizeRequest(request ai.ChatRequest) ai.ChatRequest {
	if request.History == nil {
		request.History = []ai.Message{}
	}
	if request.Mode == "" {
		request.Mode = ai.ModeOneLiner
	}
	return request
}

func (client *Client) recordSkipped(ctx context.Context, observer observability.Provider, provider string, skipped int) {
	if observer == nil || skipped == 0 {
		return
	}
	observer.Counter(observability.MetricFramesSkipped).Add(ctx, int64(skipped),
		observability.String(observability.AttrProvider, provider))
	observer.Debug(ctx, "Skipped malformed frames",
		observability.String(observability.AttrProvider, provider),
		observability.Int(observability.AttrFramesSkipped, skipped))
}

func (client *Client) finish(ctx context.Context, observer observability.Provider, span observability.Span, provider string, started time.Time, err error) {
	if observer == nil {
		return
	}
	elapsed := time.Since(started)
	providerAttr := observability.String(observability.AttrProvider, provider)

	observer.Histogram(observability.MetricProviderDuration).Record(ctx, float64(elapsed.Milliseconds()), providerAttr)
	if err != nil {
		observer.Counter(observability.MetricProviderFailures).Add(ctx, 1, providerAttr)
		observer.Warn(ctx, "Provider stream failed", providerAttr, observability.Error(err))
	} else {
		observer.Debug(ctx, "Provider stream completed", providerAttr, observability.Duration(observability.AttrDuration, elapsed))
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		} else {
			span.SetStatus(observability.StatusOK, "")
		}
		span.AddEvent(observability.EventStreamSettled)
		span.End()
	}
}
