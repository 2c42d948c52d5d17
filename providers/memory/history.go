package memory

import (
	"strings"

	"github.com/leofalp/agentspace/providers/ai"
)

// Sanitize converts history entries to the wire form: content is coerced to
// trimmed plain text (a structured answer contributes its answer text), and
// entries with empty text or no role are dropped.
func Sanitize(messages []Message) []ai.Message {
	sanitized := make([]ai.Message, 0, len(messages))
	for _, message := range messages {
		text := strings.TrimSpace(message.Text())
		if text == "" || message.Role == "" {
			continue
		}
		sanitized = append(sanitized, ai.Message{Role: message.Role, Content: text})
	}
	return sanitized
}

// DisplayEntry is one provider response prepared for rendering.
type DisplayEntry struct {
	Provider string               `json:"provider"`
	Response *ai.StructuredAnswer `json:"response"`
}

// ToShow returns the most recent assistant entry as a single display entry
// in conversation mode, so a UI can show where the conversation left off.
// It returns nil in one-liner mode or when there is no assistant entry.
func ToShow(mode ai.Mode, history []Message) []DisplayEntry {
	if mode != ai.ModeConversation {
		return nil
	}
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		if entry.Role != ai.RoleAssistant {
			continue
		}
		response := entry.Answer.Clone()
		if response == nil {
			response = &ai.StructuredAnswer{Answer: entry.Content}
		}
		return []DisplayEntry{{Provider: entry.Provider, Response: response}}
	}
	return nil
}
