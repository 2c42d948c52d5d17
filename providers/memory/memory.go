package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/leofalp/agentspace/providers/ai"
)

// Provider stores the ordered conversation log. Read methods return errors
// so that storage-backed implementations can surface failures.
type Provider interface {
	AppendMessage(ctx context.Context, message *Message)
	AllMessages(ctx context.Context) ([]Message, error)
	LastMessages(ctx context.Context, n int) ([]Message, error)
	Count(ctx context.Context) (int, error)
	ClearMessages(ctx context.Context)
}

// Message is one history entry. Content holds plain text; Answer, when set,
// holds an assistant's structured answer and takes precedence. On the wire
// "content" is either a string or the answer object.
type Message struct {
	Role     ai.MessageRole
	Content  string
	Answer   *ai.StructuredAnswer
	Provider string
}

// UserMessage builds a plain-text user entry.
func UserMessage(text string) Message {
	return Message{Role: ai.RoleUser, Content: text}
}

// AssistantMessage builds an assistant entry holding a copy of answer.
func AssistantMessage(provider string, answer *ai.StructuredAnswer) Message {
	return Message{Role: ai.RoleAssistant, Answer: answer.Clone(), Provider: provider}
}

// Text returns the entry's plain text: the answer text for structured
// entries, Content otherwise.
func (message Message) Text() string {
	if message.Answer != nil {
		return message.Answer.Answer
	}
	return message.Content
}

// Clone returns a copy that shares no memory with message.
func (message Message) Clone() Message {
	message.Answer = message.Answer.Clone()
	return message
}

type wireMessage struct {
	Role     ai.MessageRole  `json:"role"`
	Content  json.RawMessage `json:"content"`
	Provider string          `json:"provider,omitempty"`
}

// MarshalJSON renders content as the answer object when present.
func (message Message) MarshalJSON() ([]byte, error) {
	var content any = message.Content
	if message.Answer != nil {
		content = message.Answer
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: message.Role, Content: encoded, Provider: message.Provider})
}

// UnmarshalJSON accepts content as a string, an answer object or null.
func (message *Message) UnmarshalJSON(data []byte) error {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	decoded := Message{Role: wire.Role, Provider: wire.Provider}
	content := bytes.TrimSpace(wire.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
	case content[0] == '{':
		decoded.Answer = &ai.StructuredAnswer{}
		if err := json.Unmarshal(content, decoded.Answer); err != nil {
			return fmt.Errorf("error decoding structured content: %w", err)
		}
	case content[0] == '"':
		if err := json.Unmarshal(content, &decoded.Content); err != nil {
			return err
		}
	default:
		decoded.Content = string(content)
	}

	*message = decoded
	return nil
}
