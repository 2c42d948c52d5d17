package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/agentspace/core/parse"
	"github.com/leofalp/agentspace/internal/utils"
	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/observability"
)

// AgentAnswer is one provider's answer from the multi-agent endpoint.
type AgentAnswer struct {
	Provider string
	Answer   *ai.StructuredAnswer
}

// SendMessage calls the provider's non-streaming endpoint. The response
// field is decoded leniently (see parse.ParseAnswer).
func (client *Client) SendMessage(ctx context.Context, provider string, request ai.ChatRequest) (*ai.StructuredAnswer, error) {
	descriptor, err := client.registry.Lookup(provider)
	if err != nil {
		return nil, err
	}
	if descriptor.ChatPath == "" {
		return nil, fmt.Errorf("%s: provider has no chat endpoint", descriptor.Name)
	}

	ctx, span := client.startRequestSpan(ctx, descriptor.Name)
	if span != nil {
		defer span.End()
	}

	httpResponse, response, err := utils.DoPostSync[ai.ChatResponse](ctx, client.httpClient, client.baseURL+descriptor.ChatPath, normalizeRequest(request))
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("%s: %w", descriptor.Name, err)
	}
	if response == nil {
		err = fmt.Errorf("%s: empty response from backend: %s", descriptor.Name, httpResponse.Status)
		recordSpanError(span, err)
		return nil, err
	}

	answer, err := parse.ParseAnswer(response.Response)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("%s: %w", descriptor.Name, err)
	}

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrAnswerLength, len(answer.Answer)))
		span.SetStatus(observability.StatusOK, "")
	}
	return answer, nil
}

// SendMultiAgent asks the backend to answer message with every agent in
// agents server side. Entries whose response cannot be decoded carry a
// Failure document instead of failing the whole call.
func (client *Client) SendMultiAgent(ctx context.Context, message string, agents []string) ([]AgentAnswer, error) {
	if len(agents) == 0 {
		return nil, errors.New("no agents requested")
	}

	ctx, span := client.startRequestSpan(ctx, "multi_agent")
	if span != nil {
		defer span.End()
		span.SetAttributes(observability.Strings(observability.AttrProviders, agents))
	}

	request := ai.MultiAgentRequest{Message: message, Agents: agents}
	httpResponse, responses, err := utils.DoPostSync[[]ai.AgentResponse](ctx, client.httpClient, client.baseURL+multiAgentPath, request)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("multi agent: %w", err)
	}
	if responses == nil {
		err = fmt.Errorf("multi agent: empty response from backend: %s", httpResponse.Status)
		recordSpanError(span, err)
		return nil, err
	}

	answers := make([]AgentAnswer, 0, len(*responses))
	for _, entry := range *responses {
		answer, parseErr := parse.ParseAnswer(entry.Response)
		if parseErr != nil {
			answer = ai.Failure(parseErr.Error())
		}
		answers = append(answers, AgentAnswer{Provider: entry.Provider, Answer: answer})
	}
	return answers, nil
}

// SendFeedback posts a free-text feedback message. The message is validated
// locally against the backend's length bounds first.
func (client *Client) SendFeedback(ctx context.Context, message string) error {
	request := ai.FeedbackRequest{Message: message}
	if err := request.Validate(); err != nil {
		return err
	}

	ctx, span := client.startRequestSpan(ctx, "feedback")
	if span != nil {
		defer span.End()
	}

	if _, _, err := utils.DoPostSync[map[string]any](ctx, client.httpClient, client.baseURL+feedbackPath, request); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("feedback: %w", err)
	}
	if span != nil {
		span.SetStatus(observability.StatusOK, "")
	}
	return nil
}

func (client *Client) startRequestSpan(ctx context.Context, target string) (context.Context, observability.Span) {
	observer := client.observerFor(ctx)
	if observer == nil {
		return ctx, nil
	}
	ctx, span := observer.StartSpan(ctx, observability.SpanChatRequest,
		observability.String(observability.AttrProvider, target))
	return ctx, span
}

func recordSpanError(span observability.Span, err error) {
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(observability.StatusError, err.Error())
}
