package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

/*
	##### REQUEST #####
*/

// Mode selects whether the backend should treat a turn as stateless or as
// part of an ongoing conversation.
type Mode string

const (
	ModeOneLiner     Mode = "one-liner"    // No cross-turn memory, any number of providers
	ModeConversation Mode = "conversation" // Exactly one provider, history replayed each turn
)

// ParseMode converts a user supplied string to a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeOneLiner:
		return ModeOneLiner, nil
	case ModeConversation:
		return ModeConversation, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", value, ModeOneLiner, ModeConversation)
	}
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Provider response
)

// Message is one sanitized history entry as sent over the wire.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest is the body of both the streaming and the non-streaming chat
// endpoints.
type ChatRequest struct {
	Message string    `json:"message"`
	History []Message `json:"history"`
	Mode    Mode      `json:"mode"`
}

// MultiAgentRequest asks the backend to answer one message with several
// agents server side.
type MultiAgentRequest struct {
	Message string   `json:"message"`
	Agents  []string `json:"agents"`
}

// FeedbackMaxLength is the longest feedback message the backend accepts.
const FeedbackMaxLength = 5000

// FeedbackRequest is the body of the feedback endpoint.
type FeedbackRequest struct {
	Message string `json:"message"`
}

// Validate enforces the backend's 1..FeedbackMaxLength character bound.
func (request FeedbackRequest) Validate() error {
	length := len([]rune(strings.TrimSpace(request.Message)))
	if length == 0 {
		return fmt.Errorf("feedback message is empty")
	}
	if len([]rune(request.Message)) > FeedbackMaxLength {
		return fmt.Errorf("feedback message is %d characters, max %d", len([]rune(request.Message)), FeedbackMaxLength)
	}
	return nil
}

/*
	##### RESPONSE #####
*/

// ChatResponse is the body of the non-streaming chat endpoint. Response is
// usually a StructuredAnswer object but some backends send it as a JSON
// encoded string or plain text.
type ChatResponse struct {
	Response json.RawMessage `json:"response"`
}

// AgentResponse is one entry of the multi-agent endpoint's reply.
type AgentResponse struct {
	Provider string          `json:"provider"`
	Response json.RawMessage `json:"response"`
}

// Source is a citation attached to an answer.
type Source struct {
	URL   string  `json:"url"`
	Title *string `json:"title"`
}

// Action records one tool invocation the provider performed.
type Action struct {
	Tool       string   `json:"tool"`
	Parameters []string `json:"parameters"`
	Result     *string  `json:"result"`
}

// KeyValue is one entry of the free-form telemetry list.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StructuredAnswer is the document one provider's response accumulates
// into during a turn. Nil pointers and slices render as JSON null.
type StructuredAnswer struct {
	Answer      string     `json:"answer"`
	Code        *string    `json:"code"`
	Language    *string    `json:"language"`
	Explanation *string    `json:"explanation"`
	Sources     []Source   `json:"sources"`
	Facts       []string   `json:"facts"`
	Actions     []Action   `json:"actions"`
	NerdStats   []KeyValue `json:"nerd_stats"`
}

// Failure builds the document shown in place of an answer when a provider
// fails.
func Failure(message string) *StructuredAnswer {
	return &StructuredAnswer{Answer: "Error: " + message}
}

// HasContent reports whether the answer carries anything worth keeping in
// conversation history: answer text, sources or facts.
func (answer *StructuredAnswer) HasContent() bool {
	if answer == nil {
		return false
	}
	return answer.Answer != "" || len(answer.Sources) > 0 || len(answer.Facts) > 0
}

// Clone returns a deep copy. Cloning nil returns nil.
func (answer *StructuredAnswer) Clone() *StructuredAnswer {
	if answer == nil {
		return nil
	}
	return &StructuredAnswer{
		Answer:      answer.Answer,
		Code:        clonePointer(answer.Code),
		Language:    clonePointer(answer.Language),
		Explanation: clonePointer(answer.Explanation),
		Sources:     cloneSources(answer.Sources),
		Facts:       cloneSlice(answer.Facts),
		Actions:     cloneActions(answer.Actions),
		NerdStats:   cloneSlice(answer.NerdStats),
	}
}

func cloneSources(sources []Source) []Source {
	if sources == nil {
		return nil
	}
	copied := make([]Source, len(sources))
	for i, source := range sources {
		copied[i] = Source{URL: source.URL, Title: clonePointer(source.Title)}
	}
	return copied
}

func cloneActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}
	copied := make([]Action, len(actions))
	for i, action := range actions {
		copied[i] = Action{
			Tool:       action.Tool,
			Parameters: cloneSlice(action.Parameters),
			Result:     clonePointer(action.Result),
		}
	}
	return copied
}

func clonePointer[T any](value *T) *T {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

// cloneSlice keeps the nil / empty distinction, which JSON renders as
// null / [].
func cloneSlice[T any](values []T) []T {
	if values == nil {
		return nil
	}
	copied := make([]T, len(values))
	copy(copied, values)
	return copied
}
