package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeJSON unmarshals oracle output into v. Providers without native
// structured output often wrap JSON in markdown fences or surround it with
// prose, so the outermost JSON object is located before decoding.
func DecodeJSON(raw json.RawMessage, v any) error {
	body := extractJSONObject(stripCodeFences(raw))
	if len(body) == 0 {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("no JSON object in response")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

func stripCodeFences(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	switch {
	case bytes.HasPrefix(s, []byte("```json")):
		s = bytes.TrimSpace(s[len("```json"):])
	case bytes.HasPrefix(s, []byte("```")):
		s = bytes.TrimSpace(s[len("```"):])
	}
	s = bytes.TrimSuffix(s, []byte("```"))
	return bytes.TrimSpace(s)
}

// extractJSONObject returns the span between the first '{' and the last '}'.
// A response that is a JSON string (raw text wrapped by a provider) is
// unquoted first.
func extractJSONObject(s []byte) []byte {
	if len(s) > 0 && s[0] == '"' {
		var inner string
		if err := json.Unmarshal(s, &inner); err == nil {
			s = stripCodeFences([]byte(inner))
		}
	}
	start := bytes.IndexByte(s, '{')
	end := bytes.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil
	}
	return s[start : end+1]
}
