package realtime

import (
	"unicode/utf8"

	"github.com/dev-razz/Typerra/internal/normalize"
)

// Hint is the suggestion offered at the caret.
type Hint struct {
	Start       int
	End         int
	Original    string
	Replacement string
}

// HintAt returns the first range containing caret (inclusive at both ends)
// that carries a replacement.
func HintAt(text string, ranges []normalize.Range, caret int) *Hint {
	for _, r := range ranges {
		if r.Replacement == nil || caret < r.Start || caret > r.End {
			continue
		}
		return &Hint{
			Start:       r.Start,
			End:         r.End,
			Original:    runeSlice(text, r.Start, r.End),
			Replacement: *r.Replacement,
		}
	}
	return nil
}

func runeSlice(text string, start, end int) string {
	if start < 0 || end < start || end > utf8.RuneCountInString(text) {
		return ""
	}
	runes := []rune(text)
	return string(runes[start:end])
}
