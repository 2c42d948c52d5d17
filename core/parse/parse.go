package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/agentspace/providers/ai"
)

// ErrEmptyResponse is returned when the response field is missing or null.
var ErrEmptyResponse = errors.New("empty response")

// ParseObjectAs unmarshals content into T. When plain unmarshaling fails the
// JSON is repaired with jsonrepair and retried; if that still fails,
// schema-like {"type": ..., "value": ...} envelopes are unwrapped as a last
// attempt.
//
// Example usage:
//
//	answer, err := ParseObjectAs[ai.StructuredAnswer](`{answer: 'hi', facts: ['a',]}`)
func ParseObjectAs[T any](content string) (T, error) {
	var result T

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	err = json.Unmarshal([]byte(repairedJSON), &result)
	if err == nil {
		return result, nil
	}

	// Some models echo a JSON schema instead of data
	if unwrapped, unwrapErr := unwrapSchemaValues(repairedJSON); unwrapErr == nil {
		var unwrappedResult T
		if json.Unmarshal([]byte(unwrapped), &unwrappedResult) == nil {
			return unwrappedResult, nil
		}
	}

	return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (repaired: %s)", result, err, repairedJSON)
}

// ParseAnswer decodes the "response" field of a chat response.
//
//   - an object is decoded as a StructuredAnswer (repairing it if needed)
//   - a string goes through AnswerFromText
//   - null or an absent field is ErrEmptyResponse
//   - any other JSON value becomes the answer text verbatim
func ParseAnswer(raw json.RawMessage) (*ai.StructuredAnswer, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyResponse
	}

	switch trimmed[0] {
	case '{':
		answer, err := ParseObjectAs[ai.StructuredAnswer](string(trimmed))
		if err != nil {
			return nil, err
		}
		return &answer, nil

	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("error decoding response string: %w", err)
		}
		return AnswerFromText(text), nil

	default:
		return &ai.StructuredAnswer{Answer: string(trimmed)}, nil
	}
}

// AnswerFromText interprets text that may contain an answer object, possibly
// inside a markdown code fence. Text that is not an object, or that does not
// decode to one with any recognised field, is returned as the answer itself.
func AnswerFromText(text string) *ai.StructuredAnswer {
	candidate := stripCodeFence(strings.TrimSpace(text))
	if !strings.HasPrefix(candidate, "{") {
		return &ai.StructuredAnswer{Answer: text}
	}

	fields, err := ParseObjectAs[map[string]json.RawMessage](candidate)
	if err != nil || !hasAnswerField(fields) {
		return &ai.StructuredAnswer{Answer: text}
	}

	answer, err := ParseObjectAs[ai.StructuredAnswer](candidate)
	if err != nil {
		return &ai.StructuredAnswer{Answer: text}
	}
	return &answer
}

var answerFields = []string{"answer", "code", "language", "explanation", "sources", "facts", "actions", "nerd_stats"}

func hasAnswerField(fields map[string]json.RawMessage) bool {
	for _, name := range answerFields {
		if _, ok := fields[name]; ok {
			return true
		}
	}
	return false
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	if newline := strings.IndexByte(inner, '\n'); newline >= 0 {
		// drop the info string, e.g. "json"
		if info := strings.TrimSpace(inner[:newline]); !strings.ContainsAny(info, "{[") {
			inner = inner[newline+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// unwrapSchemaValues replaces every {"type": ..., "value": X} object with X.
//
// Example input:
//
//	{"answer": {"type": "string", "value": "42"}}
//
// Example output:
//
//	{"answer": "42"}
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	result, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
