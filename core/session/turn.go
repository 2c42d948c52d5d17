package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/memory"
	"github.com/leofalp/agentspace/providers/observability"
)

// turn is one submission and the provider streams it spawned.
type turn struct {
	id        string
	question  string
	mode      ai.Mode
	epoch     uint64
	providers []string
	states    map[string]*ProviderState
	// pending holds providers that have not reached a terminal phase yet.
	pending map[string]struct{}
	cancel  context.CancelFunc
	span    observability.Span
	started time.Time
}

// SubmitTurn runs one turn and blocks until every provider settled or the
// turn was superseded by a newer submit.
//
// Blank text is a no-op. An empty selection returns ErrNoProviderSelected
// without touching state. Provider failures are recorded in that provider's
// state and never returned.
func (session *Session) SubmitTurn(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	current, request, turnCtx, err := session.startTurn(ctx, text)
	if err != nil {
		return err
	}

	var group errgroup.Group
	if session.maxConcurrency > 0 {
		group.SetLimit(session.maxConcurrency)
	}
	for _, provider := range current.providers {
		group.Go(func() error {
			session.runProvider(turnCtx, current, provider, request)
			return nil
		})
	}
	return group.Wait()
}

// startTurn supersedes the running turn, installs the new one and publishes
// its Loading state.
func (session *Session) startTurn(ctx context.Context, text string) (*turn, ai.ChatRequest, context.Context, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if len(session.selected) == 0 {
		return nil, ai.ChatRequest{}, nil, ErrNoProviderSelected
	}

	history, err := session.history.AllMessages(ctx)
	if err != nil {
		return nil, ai.ChatRequest{}, nil, fmt.Errorf("error reading history: %w", err)
	}

	if previous := session.current; previous != nil && len(previous.pending) > 0 {
		session.endTurnLocked(previous, observability.EventTurnSuperseded)
	}

	current := &turn{
		id:        uuid.NewString(),
		question:  text,
		mode:      session.mode,
		epoch:     session.historyEpoch,
		providers: slices.Clone(session.selected),
		states:    make(map[string]*ProviderState, len(session.selected)),
		pending:   make(map[string]struct{}, len(session.selected)),
		started:   time.Now(),
	}
	for _, provider := range current.providers {
		current.states[provider] = &ProviderState{Provider: provider, Phase: PhaseLoading}
		current.pending[provider] = struct{}{}
	}

	turnCtx, cancel := context.WithCancel(ctx)
	current.cancel = cancel
	if session.observer != nil {
		turnCtx = observability.ContextWithObserver(turnCtx, session.observer)
		turnCtx, current.span = session.observer.StartSpan(turnCtx, observability.SpanTurn,
			observability.String(observability.AttrTurnID, current.id),
			observability.Strings(observability.AttrProviders, current.providers),
			observability.String(observability.AttrMode, string(current.mode)),
		)
		session.observer.Counter(observability.MetricTurns).Add(turnCtx, 1,
			observability.String(observability.AttrMode, string(current.mode)))
	}

	request := ai.ChatRequest{
		Message: text,
		History: memory.Sanitize(append(history, memory.UserMessage(text))),
		Mode:    current.mode,
	}

	session.current = current
	session.input = ""
	session.hasStartedChat = true
	session.publishLocked(turnCtx)

	return current, request, turnCtx, nil
}

// runProvider consumes one provider's stream. A panic in the streamer is
// contained and recorded as that provider's failure.
func (session *Session) runProvider(ctx context.Context, current *turn, provider string, request ai.ChatRequest) {
	var last *ai.StructuredAnswer
	defer func() {
		if recovered := recover(); recovered != nil {
			session.settle(ctx, current, provider, last, fmt.Errorf("provider panicked: %v", recovered))
		}
	}()

	stream, err := session.streamer.StreamAnswer(ctx, provider, request)
	if err != nil {
		session.settle(ctx, current, provider, nil, err)
		return
	}

	for snapshot, streamErr := range stream.Iter() {
		if streamErr != nil {
			session.settle(ctx, current, provider, last, streamErr)
			return
		}
		last = snapshot
		if !session.update(ctx, current, provider, snapshot) {
			// superseded, the turn context is already cancelled
			return
		}
	}
	session.settle(ctx, current, provider, last, nil)
}

// update records a streamed snapshot. It reports false when the turn is no
// longer current.
func (session *Session) update(ctx context.Context, current *turn, provider string, snapshot *ai.StructuredAnswer) bool {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.current != current {
		return false
	}
	state := current.states[provider]
	if state.Phase.IsTerminal() {
		return false
	}
	if state.Phase == PhaseLoading && current.span != nil {
		current.span.AddEvent(observability.EventStreamFirstByte,
			observability.String(observability.AttrProvider, provider))
	}
	state.Phase = PhaseStreaming
	state.Document = snapshot
	session.publishLocked(ctx)
	return true
}

// settle moves provider to its terminal phase. The last provider to settle
// folds the turn into the history.
func (session *Session) settle(ctx context.Context, current *turn, provider string, last *ai.StructuredAnswer, err error) {
	session.mu.Lock()

	if session.current != current || current.states[provider].Phase.IsTerminal() {
		session.mu.Unlock()
		return
	}

	state := current.states[provider]
	if err != nil {
		message := failureMessage(err)
		state.Phase = PhaseErrored
		state.Document = ai.Failure(message)
		state.ErrorMessage = message
	} else {
		state.Phase = PhaseCompleted
		if last == nil {
			last = &ai.StructuredAnswer{}
		}
		state.Document = last
	}

	// branch on the live pending set: providers finish in any order
	delete(current.pending, provider)
	if len(current.pending) == 0 {
		session.foldLocked(ctx, current)
		session.endTurnLocked(current, observability.EventTurnSettled)
	}
	session.publishLocked(ctx)
	settled := state.clone()
	session.mu.Unlock()

	if session.observer != nil {
		session.observer.Debug(ctx, "Provider settled",
			observability.String(observability.AttrTurnID, current.id),
			observability.String(observability.AttrProvider, provider),
			observability.String(observability.AttrPhase, string(settled.Phase)),
		)
	}
	if session.onSettled != nil {
		session.onSettled(provider, settled)
	}
}

// foldLocked writes the settled turn into the history. Conversation mode
// with one provider appends the question and, if it has content, the
// answer; every other turn clears the history. A turn started before the
// history was reset (a mode or selection change mid-turn) is not folded.
func (session *Session) foldLocked(ctx context.Context, current *turn) {
	if current.epoch != session.historyEpoch || current.mode != session.mode {
		return
	}
	if current.mode != ai.ModeConversation || len(current.providers) != 1 {
		session.history.ClearMessages(ctx)
		return
	}

	provider := current.providers[0]
	user := memory.UserMessage(current.question)
	session.history.AppendMessage(ctx, &user)

	if document := current.states[provider].Document; document.HasContent() {
		assistant := memory.AssistantMessage(provider, document)
		session.history.AppendMessage(ctx, &assistant)
	}

	if session.observer != nil {
		if count, err := session.history.Count(ctx); err == nil {
			session.observer.Debug(ctx, "History folded",
				observability.String(observability.AttrTurnID, current.id),
				observability.Int(observability.AttrMemoryTotalMessages, count),
			)
		}
	}
}

// endTurnLocked cancels the turn's remaining streams and closes its span.
func (session *Session) endTurnLocked(current *turn, event string) {
	current.cancel()
	if current.span != nil {
		current.span.AddEvent(event, observability.Int("pending", len(current.pending)))
		current.span.SetAttributes(observability.Duration(observability.AttrDuration, time.Since(current.started)))
		current.span.End()
		current.span = nil
	}
}

func failureMessage(err error) string {
	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Message
	}
	return err.Error()
}
