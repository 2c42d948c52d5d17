package dialect

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/leofalp/agentspace/internal/utils"
	"github.com/leofalp/agentspace/providers/ai"
)

// Typed-dialect event names.
const (
	EventToken   = "token"
	EventSources = "sources"
	EventUsage   = "usage"
	EventFinal   = "final"
	EventDone    = "done"
	EventError   = "error"
)

// fallbackErrorMessage is used when an error frame carries no message.
const fallbackErrorMessage = "provider reported an error"

// Interpret maps one decoded frame to the delta it represents. current is
// the document accumulated so far (nil before the first delta) and is only
// read by the cumulative-token guard.
//
// Typed event names are handled directly. The default "message" event and
// any unknown name go through the payload-shape heuristic, because some
// providers send token deltas without naming them.
//
// The [DONE] sentinel means success only for the default event and typed
// "done" frames. An "error" frame carrying it still fails the stream.
func Interpret(frame utils.Frame, current *ai.StructuredAnswer, descriptor Descriptor) ai.Delta {
	if frame.Done {
		switch frame.Event {
		case EventError:
			return ai.Fail(fallbackErrorMessage)
		case EventToken, EventSources, EventFinal, EventUsage:
			return ai.None()
		}
		return ai.Complete()
	}

	switch frame.Event {
	case EventToken:
		var payload struct {
			Answer string `json:"answer"`
		}
		if !decode(frame.Data, &payload) {
			return ai.None()
		}
		// typed tokens are always incremental
		return ai.AppendToken(payload.Answer)

	case EventSources, EventFinal:
		var metadata ai.Metadata
		if !decode(frame.Data, &metadata) {
			return ai.None()
		}
		return ai.MergeMetadata(metadata)

	case EventUsage:
		stats, err := decodeUsage([]byte(frame.Data))
		if err != nil {
			return ai.None()
		}
		return ai.ReplaceUsageStats(stats)

	case EventDone:
		return ai.Complete()

	case EventError:
		return ai.Fail(errorMessage(json.RawMessage(frame.Data)))
	}

	return interpretUntyped(frame.Data, current, descriptor)
}

func interpretUntyped(data string, current *ai.StructuredAnswer, descriptor Descriptor) ai.Delta {
	var payload map[string]json.RawMessage
	if !decode(data, &payload) || payload == nil {
		return ai.None()
	}

	if raw, ok := payload["error"]; ok && !isNull(raw) {
		return ai.Fail(errorMessage(raw))
	}

	if hasAny(payload, "sources", "facts", "explanation") {
		var metadata ai.Metadata
		if err := json.Unmarshal([]byte(data), &metadata); err != nil {
			return ai.None()
		}
		return ai.MergeMetadata(metadata)
	}

	if raw, ok := payload["answer"]; ok {
		var incoming string
		if err := json.Unmarshal(raw, &incoming); err != nil {
			return ai.None()
		}
		return ai.AppendToken(tokenDelta(incoming, current, descriptor))
	}

	return ai.None()
}

// tokenDelta returns the part of incoming not yet in the answer. A backend
// that resends the full text so far produces a value prefixed by the
// accumulated answer; only the suffix is new. This is a heuristic: an
// incremental token that happens to repeat the whole answer is truncated.
func tokenDelta(incoming string, current *ai.StructuredAnswer, descriptor Descriptor) string {
	if !descriptor.CumulativeGuard || current == nil || current.Answer == "" {
		return incoming
	}
	if suffix, ok := strings.CutPrefix(incoming, current.Answer); ok {
		return suffix
	}
	return incoming
}

// errorMessage accepts a bare string, an object with a message (or error)
// field, or anything else rendered as compact JSON.
func errorMessage(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fallbackErrorMessage
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return fallbackErrorMessage
		}
		return text
	}

	var object struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &object); err == nil {
		if object.Message != "" {
			return object.Message
		}
		if object.Error != "" {
			return object.Error
		}
	}

	return compact(raw)
}

func decode(data string, target any) bool {
	if strings.TrimSpace(data) == "" {
		return false
	}
	return json.Unmarshal([]byte(data), target) == nil
}

func hasAny(payload map[string]json.RawMessage, keys ...string) bool {
	for _, key := range keys {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
