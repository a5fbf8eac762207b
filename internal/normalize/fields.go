package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type spanStrategy func(obj map[string]any) (int, int, bool)

func pair(startKey, endKey string) spanStrategy {
	return func(obj map[string]any) (int, int, bool) {
		start, ok := number(obj[startKey])
		if !ok {
			return 0, 0, false
		}
		end, ok := number(obj[endKey])
		if !ok {
			return 0, 0, false
		}
		return start, end, true
	}
}

func offsetLength(obj map[string]any) (int, int, bool) {
	offset, ok := number(obj["offset"])
	if !ok {
		return 0, 0, false
	}
	length, ok := number(obj["length"])
	if !ok {
		return 0, 0, false
	}
	return offset, addSaturating(offset, length), true
}

func addSaturating(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

func nested(key string) spanStrategy {
	return func(obj map[string]any) (int, int, bool) {
		inner, ok := obj[key].(map[string]any)
		if !ok {
			return 0, 0, false
		}
		return pair("start", "end")(inner)
	}
}

// spanStrategies is tried in order; the first that resolves both ends wins.
var spanStrategies = []spanStrategy{
	pair("startIndex", "endIndex"),
	pair("start", "end"),
	offsetLength,
	nested("range"),
	nested("span"),
	pair("from", "to"),
	pair("startOffset", "endOffset"),
	pair("begin", "end"),
}

func resolveSpan(obj map[string]any) (int, int, bool) {
	for _, strategy := range spanStrategies {
		if start, end, ok := strategy(obj); ok {
			return start, end, true
		}
	}
	return 0, 0, false
}

var (
	replacementKeys = []string{"replacement", "correction", "suggestion", "replace", "corrected", "value"}
	candidateKeys   = []string{"suggestions", "candidates", "replacements"}
)

func resolveReplacement(obj map[string]any) (string, bool) {
	for _, key := range replacementKeys {
		if text, ok := obj[key].(string); ok {
			return text, true
		}
	}
	for _, key := range candidateKeys {
		list, ok := obj[key].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		switch first := list[0].(type) {
		case string:
			return first, true
		case map[string]any:
			if text, ok := first["replacement"].(string); ok {
				return text, true
			}
			if text, ok := first["text"].(string); ok {
				return text, true
			}
		}
	}
	return "", false
}

// number accepts JSON numbers, Go integers and numeric strings.
func number(value any) (int, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt:
		return math.MaxInt, true
	case f <= math.MinInt:
		return math.MinInt, true
	}
	return int(math.Trunc(f)), true
}
