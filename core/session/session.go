package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/ai/dialect"
	"github.com/leofalp/agentspace/providers/memory"
	"github.com/leofalp/agentspace/providers/memory/inmemory"
	"github.com/leofalp/agentspace/providers/observability"
)

var (
	// ErrNoProviderSelected is returned by SubmitTurn when the selection is empty.
	ErrNoProviderSelected = errors.New("no provider selected")
	// ErrInvalidMode is returned by SetMode for an unknown mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrTooManyProviders is returned when selecting several providers in
	// conversation mode.
	ErrTooManyProviders = errors.New("conversation mode takes exactly one provider")
	// ErrUnknownProvider is returned when selecting a provider the registry
	// does not know.
	ErrUnknownProvider = dialect.ErrUnknownProvider
)

// SettledFunc is called once per provider when it reaches a terminal phase
// in the current turn.
type SettledFunc func(provider string, state ProviderState)

// Option is a functional option for configuring a Session.
type Option func(*Session)

// WithHistory sets the history store. Defaults to an inmemory.ArrayMemory.
func WithHistory(history memory.Provider) Option {
	return func(session *Session) {
		session.history = history
	}
}

// WithRegistry sets the provider table used to validate selections. When
// unset, the streamer's registry is used if it exposes one, else the
// built-in table.
func WithRegistry(registry *dialect.Registry) Option {
	return func(session *Session) {
		session.registry = registry
	}
}

// WithObserver sets the observability provider.
func WithObserver(observer observability.Provider) Option {
	return func(session *Session) {
		session.observer = observer
	}
}

// WithOnProviderSettled registers a callback run after each provider
// settles, outside the session lock.
func WithOnProviderSettled(callback SettledFunc) Option {
	return func(session *Session) {
		session.onSettled = callback
	}
}

// WithMaxConcurrency limits how many provider streams of one turn run at
// the same time. A value of 0 (default) means unlimited.
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(session *Session) {
		session.maxConcurrency = maxConcurrency
	}
}

// Session owns all turn, selection and history state. It is safe for
// concurrent use.
type Session struct {
	streamer       ai.Streamer
	registry       *dialect.Registry
	history        memory.Provider
	observer       observability.Provider
	onSettled      SettledFunc
	maxConcurrency int

	mu             sync.Mutex
	input          string
	selected       []string
	mode           ai.Mode
	hasStartedChat bool
	current        *turn
	// historyEpoch counts user-driven history resets. A turn started
	// before a reset is not folded into the cleared history.
	historyEpoch   uint64
	version        uint64
	subscribers    map[int]chan Snapshot
	nextSubscriber int
}

// New creates a session in one-liner mode with the first registered
// provider selected.
func New(streamer ai.Streamer, opts ...Option) *Session {
	session := &Session{
		streamer:    streamer,
		mode:        ai.ModeOneLiner,
		subscribers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(session)
	}

	if session.registry == nil {
		if source, ok := streamer.(interface{ Registry() *dialect.Registry }); ok {
			session.registry = source.Registry()
		}
	}
	if session.registry == nil {
		session.registry = dialect.DefaultRegistry()
	}
	if session.history == nil {
		session.history = inmemory.New()
	}
	if names := session.registry.Names(); len(names) > 0 {
		session.selected = []string{names[0]}
	}
	return session
}

// Providers lists every provider that can be selected.
func (session *Session) Providers() []string {
	return session.registry.Names()
}

// SetInput replaces the pending input text.
func (session *Session) SetInput(text string) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.input == text {
		return
	}
	session.input = text
	session.publishLocked(context.Background())
}

// SubmitInput submits the pending input text as a turn.
func (session *Session) SubmitInput(ctx context.Context) error {
	session.mu.Lock()
	text := session.input
	session.mu.Unlock()
	return session.SubmitTurn(ctx, text)
}

// SetSelectedModels replaces the provider selection. Names are validated
// and de-duplicated, keeping the first occurrence. In conversation mode at
// most one provider may be selected, and changing it resets the history.
func (session *Session) SetSelectedModels(providers []string) error {
	selection := make([]string, 0, len(providers))
	for _, provider := range providers {
		provider = strings.TrimSpace(provider)
		if !session.registry.Has(provider) {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
		}
		if !slices.Contains(selection, provider) {
			selection = append(selection, provider)
		}
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.mode == ai.ModeConversation && len(selection) > 1 {
		return ErrTooManyProviders
	}
	if slices.Equal(session.selected, selection) {
		return nil
	}

	ctx := context.Background()
	session.selected = selection
	if session.mode == ai.ModeConversation {
		session.resetHistoryLocked(ctx)
	}
	session.publishLocked(ctx)
	return nil
}

// SetMode switches between one-liner and conversation mode. Switching
// always discards the history. Switching to conversation mode with a
// selection other than exactly one provider clears the selection, so the
// user has to pick one before the next submit.
func (session *Session) SetMode(mode ai.Mode) error {
	if mode != ai.ModeOneLiner && mode != ai.ModeConversation {
		return ErrInvalidMode
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.mode == mode {
		return nil
	}

	ctx := context.Background()
	if mode == ai.ModeConversation && len(session.selected) != 1 {
		session.selected = []string{}
	}
	session.mode = mode
	session.resetHistoryLocked(ctx)
	session.publishLocked(ctx)

	if session.observer != nil {
		session.observer.Debug(ctx, "Mode changed", observability.String(observability.AttrMode, string(mode)))
	}
	return nil
}

// Mode returns the current mode.
func (session *Session) Mode() ai.Mode {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.mode
}

// SelectedModels returns a copy of the current selection.
func (session *Session) SelectedModels() []string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return slices.Clone(session.selected)
}

// RecentHistory returns at most n of the newest history entries, oldest
// first.
func (session *Session) RecentHistory(ctx context.Context, n int) ([]memory.Message, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.history.LastMessages(ctx, n)
}

// resetHistoryLocked clears the history and starts a new epoch.
func (session *Session) resetHistoryLocked(ctx context.Context) {
	session.history.ClearMessages(ctx)
	session.historyEpoch++
}

// Snapshot returns a deep copy of the current state.
func (session *Session) Snapshot() Snapshot {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshotLocked(context.Background())
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one. Delivery is latest-wins: a slow reader skips
// intermediate snapshots instead of blocking the session. The returned
// function unsubscribes and closes the channel.
func (session *Session) Subscribe() (<-chan Snapshot, func()) {
	session.mu.Lock()
	defer session.mu.Unlock()

	id := session.nextSubscriber
	session.nextSubscriber++
	channel := make(chan Snapshot, 1)
	channel <- session.snapshotLocked(context.Background())
	session.subscribers[id] = channel

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			session.mu.Lock()
			defer session.mu.Unlock()
			delete(session.subscribers, id)
			close(channel)
		})
	}
}

// snapshotLocked must be called with mu held.
func (session *Session) snapshotLocked(ctx context.Context) Snapshot {
	history, err := session.history.AllMessages(ctx)
	if err != nil && session.observer != nil {
		session.observer.Error(ctx, "Reading history failed", observability.Error(err))
	}
	if history == nil {
		history = []memory.Message{}
	}

	snapshot := Snapshot{
		Version:           session.version,
		Input:             session.input,
		Mode:              session.mode,
		SelectedProviders: slices.Clone(session.selected),
		Responses:         []ProviderState{},
		Loading:           []string{},
		HasStartedChat:    session.hasStartedChat,
		History:           history,
	}
	if snapshot.SelectedProviders == nil {
		snapshot.SelectedProviders = []string{}
	}

	if current := session.current; current != nil {
		snapshot.TurnID = current.id
		snapshot.LastQuestion = current.question
		snapshot.IsStreaming = len(current.pending) > 0
		for _, provider := range current.providers {
			state := current.states[provider]
			snapshot.Responses = append(snapshot.Responses, state.clone())
			if !state.Phase.IsTerminal() {
				snapshot.Loading = append(snapshot.Loading, provider)
			}
		}
	}

	if !snapshot.IsStreaming {
		snapshot.ToShow = memory.ToShow(session.mode, history)
	}
	snapshot.ViewMode = viewModeFor(snapshot.Responses, snapshot.History, snapshot.Loading)
	return snapshot
}

// publishLocked bumps the version and hands the new snapshot to every
// subscriber without blocking. Must be called with mu held; only this
// function sends on subscriber channels, so after draining the one-slot
// buffer the send cannot block.
func (session *Session) publishLocked(ctx context.Context) {
	session.version++
	if len(session.subscribers) == 0 {
		return
	}
	for _, channel := range session.subscribers {
		select {
		case <-channel:
		default:
		}
		channel <- session.snapshotLocked(ctx)
	}
}
