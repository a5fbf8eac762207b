package logging

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

var secretKeys = map[string]bool{
	"api_key":         true,
	"apikey":          true,
	"authorization":   true,
	"typerra_api_key": true,
	"token":           true,
	"secret":          true,
}

// Keys carrying the user's own writing. Only a short prefix reaches the logs.
var contentKeys = map[string]bool{
	"text":           true,
	"prompt":         true,
	"context":        true,
	"corrected":      true,
	"correctedinput": true,
}

const contentPreviewRunes = 24

func RedactValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "bearer ") {
		return "Bearer " + mask(trimmed[7:])
	}
	return mask(trimmed)
}

// Preview shortens user text to a fixed prefix plus its rune length.
func Preview(value string) string {
	n := utf8.RuneCountInString(value)
	if n <= contentPreviewRunes {
		return value
	}
	runes := []rune(value)
	return fmt.Sprintf("%s… (%d chars)", string(runes[:contentPreviewRunes]), n)
}

func RedactAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			switch {
			case isSecretKey(key):
				out[key] = RedactValue(fmt.Sprint(val))
			case isContentKey(key):
				if s, ok := val.(string); ok {
					out[key] = Preview(s)
					continue
				}
				out[key] = RedactAny(val)
			default:
				out[key] = RedactAny(val)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(typed))
		for key, val := range typed {
			switch {
			case isSecretKey(key):
				out[key] = RedactValue(val)
			case isContentKey(key):
				out[key] = Preview(val)
			default:
				out[key] = val
			}
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = RedactAny(val)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	default:
		return value
	}
}

func RedactJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Preview(strings.TrimSpace(string(raw)))
	}
	return RedactAny(payload)
}

func isSecretKey(key string) bool {
	return secretKeys[strings.ToLower(strings.TrimSpace(key))]
}

func isContentKey(key string) bool {
	return contentKeys[strings.ToLower(strings.TrimSpace(key))]
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
