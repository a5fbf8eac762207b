// Package normalize reconciles the many shapes a correction engine may answer
// with into one payload: corrected text plus sorted, non-overlapping ranges
// expressed as rune offsets into the proofread text.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/dev-razz/Typerra/internal/diff"
	"github.com/dev-razz/Typerra/internal/logging"
)

type Range struct {
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Replacement *string `json:"replacement,omitempty"`
}

// Payload is the proofread result shipped to the host. When Cancelled is set,
// Corrected equals the input and Ranges is empty.
type Payload struct {
	Corrected   string  `json:"corrected"`
	Corrections []any   `json:"corrections"`
	Ranges      []Range `json:"ranges"`
	Cancelled   bool    `json:"cancelled"`
}

func Empty(base string) Payload {
	return Payload{Corrected: base, Corrections: []any{}, Ranges: []Range{}}
}

func Cancelled(base string) Payload {
	p := Empty(base)
	p.Cancelled = true
	return p
}

var (
	listKeys      = []string{"corrections", "errors", "edits", "issues"}
	correctedKeys = []string{"correctedInput", "corrected", "correctedText", "result"}
)

type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Normalizer{logger: logger}
}

// Normalize never fails: any malformed input degrades to an unmodified,
// range-free payload.
func Normalize(base string, raw any) Payload {
	return New(nil).Normalize(base, raw)
}

func (n *Normalizer) Normalize(base string, raw any) (payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("normalize.failed", "panic", fmt.Sprint(r))
			payload = Empty(base)
		}
	}()

	raw = generic(raw)
	records, corrected, hasCorrected := split(raw)
	limit := utf8.RuneCountInString(base)

	ranges := make([]Range, 0, len(records))
	for _, record := range records {
		obj, ok := record.(map[string]any)
		if !ok {
			continue
		}
		start, end, ok := resolveSpan(obj)
		if !ok {
			n.logger.Debug("normalize.record_dropped", "record", logging.RedactAny(obj))
			continue
		}
		start, end = clamp(start, limit), clamp(end, limit)
		if start > end {
			start, end = end, start
		}
		r := Range{Start: start, End: end}
		if replacement, ok := resolveReplacement(obj); ok {
			r.Replacement = &replacement
		}
		ranges = append(ranges, r)
	}
	ranges = arrange(ranges)

	if len(ranges) == 0 && hasCorrected && corrected != base {
		ranges = fromDiff(base, corrected)
	}
	if !hasCorrected {
		corrected = synthesize(base, ranges)
	}
	if records == nil {
		records = []any{}
	}
	return Payload{Corrected: corrected, Corrections: records, Ranges: ranges}
}

// generic turns typed values into the map/slice form JSON decoding produces.
func generic(raw any) any {
	switch v := raw.(type) {
	case nil, string, map[string]any, []any:
		return v
	case json.RawMessage:
		return decode(v)
	case []byte:
		return decode(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return decode(data)
	}
}

func decode(data []byte) any {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func split(raw any) (records []any, corrected string, hasCorrected bool) {
	switch v := raw.(type) {
	case string:
		return nil, v, true
	case []any:
		return v, "", false
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				records = list
				break
			}
		}
		for _, key := range correctedKeys {
			if text, ok := v[key].(string); ok {
				return records, text, true
			}
		}
		return records, "", false
	}
	return nil, "", false
}

func clamp(value, limit int) int {
	if value < 0 {
		return 0
	}
	if value > limit {
		return limit
	}
	return value
}

// arrange sorts ranges by start and drops any range overlapping an earlier
// one. Two ranges sharing a start also count as overlapping.
func arrange(ranges []Range) []Range {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})
	kept := ranges[:0]
	for _, r := range ranges {
		if len(kept) > 0 {
			prev := kept[len(kept)-1]
			if r.Start < prev.End || r.Start == prev.Start {
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept
}

// synthesize splices replacements right to left so earlier offsets stay valid.
func synthesize(base string, ranges []Range) string {
	out := []rune(base)
	for i := len(ranges) - 1; i >= 0; i-- {
		r := ranges[i]
		if r.Replacement == nil {
			continue
		}
		spliced := make([]rune, 0, len(out)-(r.End-r.Start)+len(*r.Replacement))
		spliced = append(spliced, out[:r.Start]...)
		spliced = append(spliced, []rune(*r.Replacement)...)
		spliced = append(spliced, out[r.End:]...)
		out = spliced
	}
	return string(out)
}

func fromDiff(base, corrected string) []Range {
	edits := diff.Edits(base, corrected)
	ranges := make([]Range, 0, len(edits))
	for _, e := range edits {
		replacement := e.Replacement
		ranges = append(ranges, Range{Start: e.Start, End: e.End, Replacement: &replacement})
	}
	return arrange(ranges)
}
