package diff

import (
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Edit replaces the runes [Start, End) of the original text. Start == End is
// a pure insertion.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// Edits derives word-granular edits that turn before into after. Offsets are
// rune offsets into before.
func Edits(before, after string) []Edit {
	if before == after {
		return nil
	}
	dmp := diffmatchpatch.New()
	a, b, table := tokensToRunes(before, after)
	diffs := dmp.DiffMainRunes(a, b, false)

	var (
		edits []Edit
		cur   *Edit
		pos   int
	)
	flush := func() {
		if cur != nil {
			edits = append(edits, *cur)
			cur = nil
		}
	}
	for _, d := range diffs {
		text := expandTokens(d.Text, table)
		n := utf8.RuneCountInString(text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			pos += n
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &Edit{Start: pos, End: pos}
			}
			cur.End += n
			pos += n
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &Edit{Start: pos, End: pos}
			}
			cur.Replacement += text
		}
	}
	flush()
	return edits
}

// tokensToRunes maps each word, whitespace run or punctuation rune to a
// private rune so the diff runs over tokens instead of characters.
func tokensToRunes(before, after string) ([]rune, []rune, []string) {
	index := make(map[string]rune)
	var table []string
	encode := func(s string) []rune {
		tokens := tokenize(s)
		out := make([]rune, 0, len(tokens))
		for _, tok := range tokens {
			r, ok := index[tok]
			if !ok {
				r = tokenRune(len(table))
				index[tok] = r
				table = append(table, tok)
			}
			out = append(out, r)
		}
		return out
	}
	return encode(before), encode(after), table
}

// tokenRune skips the surrogate block, which does not survive a string round trip.
func tokenRune(i int) rune {
	r := rune(i)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}

func tokenIndex(r rune) int {
	if r >= 0xE000 {
		r -= 0x800
	}
	return int(r)
}

func expandTokens(encoded string, table []string) string {
	var out []byte
	for _, r := range encoded {
		idx := tokenIndex(r)
		if idx >= 0 && idx < len(table) {
			out = append(out, table[idx]...)
		}
	}
	return string(out)
}

func tokenize(s string) []string {
	var tokens []string
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i + 1
		switch {
		case isWordRune(runes[i]):
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
		case unicode.IsSpace(runes[i]):
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
		}
		tokens = append(tokens, string(runes[i:j]))
		i = j
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '_'
}
