package dialect

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/leofalp/agentspace/providers/ai"
)

// decodeUsage converts a flat usage object into key/value pairs in wire
// order. A map would lose that order, so the object is walked token by
// token. String values are kept as is; every other value is rendered as its
// compact JSON text (12, 0.5, true, null, [1,2]).
func decodeUsage(data []byte) ([]ai.KeyValue, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("usage payload is not an object")
	}

	stats := []ai.KeyValue{}
	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected usage key %v", token)
		}

		var raw json.RawMessage
		if err = decoder.Decode(&raw); err != nil {
			return nil, err
		}
		stats = append(stats, ai.KeyValue{Key: key, Value: stringify(raw)})
	}
	return stats, nil
}

func stringify(raw json.RawMessage) string {
	if isNull(raw) {
		return "null"
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return compact(raw)
}

func compact(raw json.RawMessage) string {
	var buffer bytes.Buffer
	if err := json.Compact(&buffer, raw); err != nil {
		return string(bytes.TrimSpace(raw))
	}
	return buffer.String()
}
