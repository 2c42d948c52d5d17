package middleware

import (
	"context"
	"time"

	"github.com/leofalp/agentspace/core/client"
	"github.com/leofalp/agentspace/internal/utils"
	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/observability"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs the provider and the duration.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds mode, history length, snapshot count and answer
	// length. Recommended default.
	LogLevelStandard

	// LogLevelVerbose adds the question and the answer, each truncated to
	// 500 characters.
	//
	// WARNING: do not use in production. It logs raw user text.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose output.
const truncateLen = 500

// NewLoggingMiddleware logs every call through logger. For streams the
// completion entry is written once the iterator is consumed.
func NewLoggingMiddleware(logger observability.Logger, level LogLevel) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildSendLogging(logger observability.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error) {
			logger.Info(ctx, "provider send", requestAttrs(provider, request, level)...)

			start := time.Now()
			answer, err := next(ctx, provider, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error(ctx, "provider send failed",
					observability.String(observability.AttrProvider, provider),
					observability.Duration(observability.AttrDuration, elapsed),
					observability.Error(err),
				)
				return nil, err
			}

			logger.Info(ctx, "provider send completed", answerAttrs(provider, answer, elapsed, level)...)
			return answer, nil
		}
	}
}

func buildStreamLogging(logger observability.Logger, level LogLevel) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, provider string, request ai.ChatRequest) (*ai.AnswerStream, error) {
			logger.Info(ctx, "provider stream", requestAttrs(provider, request, level)...)

			start := time.Now()
			stream, err := next(ctx, provider, request)
			if err != nil {
				logger.Error(ctx, "provider stream failed",
					observability.String(observability.AttrProvider, provider),
					observability.Duration(observability.AttrDuration, time.Since(start)),
					observability.Error(err),
				)
				return nil, err
			}

			return wrapStreamWithLogging(ctx, stream, logger, provider, level, start), nil
		}
	}
}

// wrapStreamWithLogging logs a completion entry when the stream ends, an
// error entry when it fails, and an abandoned entry when the caller stops
// early.
func wrapStreamWithLogging(
	ctx context.Context,
	stream *ai.AnswerStream,
	logger observability.Logger,
	provider string,
	level LogLevel,
	start time.Time,
) *ai.AnswerStream {
	return ai.NewAnswerStream(func(yield func(*ai.StructuredAnswer, error) bool) {
		var (
			last      *ai.StructuredAnswer
			snapshots int
		)

		for snapshot, err := range stream.Iter() {
			if err != nil {
				logger.Error(ctx, "provider stream failed",
					observability.String(observability.AttrProvider, provider),
					observability.Duration(observability.AttrDuration, time.Since(start)),
					observability.Int("snapshots", snapshots),
					observability.Error(err),
				)
				yield(snapshot, err)
				return
			}

			last = snapshot
			snapshots++

			if !yield(snapshot, nil) {
				logger.Info(ctx, "provider stream abandoned",
					observability.String(observability.AttrProvider, provider),
					observability.Duration(observability.AttrDuration, time.Since(start)),
				)
				return
			}
		}

		attrs := answerAttrs(provider, last, time.Since(start), level)
		if level >= LogLevelStandard {
			attrs = append(attrs, observability.Int("snapshots", snapshots))
		}
		logger.Info(ctx, "provider stream completed", attrs...)
	})
}

func requestAttrs(provider string, request ai.ChatRequest, level LogLevel) []observability.Attribute {
	attrs := []observability.Attribute{
		observability.String(observability.AttrProvider, provider),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			observability.String(observability.AttrMode, string(request.Mode)),
			observability.Int(observability.AttrHistoryLength, len(request.History)),
		)
	}

	if level >= LogLevelVerbose {
		attrs = append(attrs, observability.String("question", utils.TruncateString(request.Message, truncateLen)))
	}
	return attrs
}

func answerAttrs(provider string, answer *ai.StructuredAnswer, elapsed time.Duration, level LogLevel) []observability.Attribute {
	attrs := []observability.Attribute{
		observability.String(observability.AttrProvider, provider),
		observability.Duration(observability.AttrDuration, elapsed),
	}
	if answer == nil {
		return attrs
	}

	if level >= LogLevelStandard {
		attrs = append(attrs, observability.Int(observability.AttrAnswerLength, len(answer.Answer)))
	}

	if level >= LogLevelVerbose && answer.Answer != "" {
		attrs = append(attrs, observability.String("answer", utils.TruncateString(answer.Answer, truncateLen)))
	}
	return attrs
}
