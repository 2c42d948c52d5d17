package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/agentspace/providers/memory"
	"github.com/leofalp/agentspace/providers/observability"
)

// ArrayMemory is a simple, concurrency-safe in-memory history log.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
// Messages are deep-copied on the way in and on the way out, so callers can
// never mutate stored structured answers.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []memory.Message
}

// New returns a new, empty [ArrayMemory] ready for immediate use.
func New() *ArrayMemory {
	return &ArrayMemory{
		messages: []memory.Message{},
	}
}

// Ensure ArrayMemory implements memory.Provider at compile time.
var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message at the end of the history.
// It is a no-op when message is nil.
// When an observability span is present in ctx, an event is recorded with the
// message role and text length, and the running total message count is set
// as a span attribute so callers can track history growth through tracing.
func (m *ArrayMemory) AppendMessage(ctx context.Context, message *memory.Message) {
	if message == nil {
		return
	}

	span := observability.SpanFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len(message.Text())),
		)
	}

	m.mu.Lock()
	m.messages = append(m.messages, message.Clone())
	totalMessages := len(m.messages)
	m.mu.Unlock()

	if span != nil {
		span.SetAttributes(
			observability.Int(observability.AttrMemoryTotalMessages, totalMessages),
		)
	}
}

// Count returns the number of messages stored. The returned error is always nil.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	n := len(m.messages)
	m.mu.RUnlock()
	return n, nil
}

// AllMessages returns a deep copy of all messages. The returned error is
// always nil.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]memory.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneMessages(m.messages), nil
}

// LastMessages returns up to the last n messages as a new, independent slice.
// If n exceeds the total number of stored messages, all messages are returned.
// Returns an empty, non-nil slice when n is zero or negative, or when the
// store is empty.
func (m *ArrayMemory) LastMessages(_ context.Context, n int) ([]memory.Message, error) {
	if n <= 0 {
		return []memory.Message{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > len(m.messages) {
		n = len(m.messages)
	}
	return cloneMessages(m.messages[len(m.messages)-n:]), nil
}

// ClearMessages removes all messages while retaining the underlying slice capacity,
// so subsequent appends do not immediately trigger a reallocation.
// When an observability span is present in ctx, a clear event is recorded before
// the store is reset.
func (m *ArrayMemory) ClearMessages(ctx context.Context) {
	span := observability.SpanFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	m.mu.Lock()
	clear(m.messages)
	m.messages = m.messages[:0]
	m.mu.Unlock()
}

func cloneMessages(messages []memory.Message) []memory.Message {
	out := make([]memory.Message, len(messages))
	for i, message := range messages {
		out[i] = message.Clone()
	}
	return out
}
