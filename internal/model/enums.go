package model

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	ToneFormal  = "formal"
	ToneNeutral = "neutral"
	ToneCasual  = "casual"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"

	RewriteToneMoreFormal = "more-formal"
	RewriteToneAsIs       = "as-is"
	RewriteToneMoreCasual = "more-casual"

	RewriteLengthShorter = "shorter"
	RewriteLengthAsIs    = "as-is"
	RewriteLengthLonger  = "longer"
)

var (
	writeTones     = []string{ToneFormal, ToneNeutral, ToneCasual}
	writeLengths   = []string{LengthShort, LengthMedium, LengthLong}
	rewriteTones   = []string{RewriteToneMoreFormal, RewriteToneAsIs, RewriteToneMoreCasual}
	rewriteLengths = []string{RewriteLengthShorter, RewriteLengthAsIs, RewriteLengthLonger}
)

// WriteTone returns the canonical generation tone, or "" (engine default)
// for anything outside the enumeration.
func WriteTone(value string) string { return pick(value, writeTones) }

func WriteLength(value string) string { return pick(value, writeLengths) }

func RewriteTone(value string) string { return pick(value, rewriteTones) }

func RewriteLength(value string) string { return pick(value, rewriteLengths) }

// WriteTones is the enumeration offered to settings and the editor.
func WriteTones() []string { return append([]string(nil), writeTones...) }

func RewriteTones() []string { return append([]string(nil), rewriteTones...) }

func pick(value string, allowed []string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return a
		}
	}
	return ""
}

// Languages canonicalizes BCP 47 tags, dropping invalid entries and
// duplicates while keeping the caller's order.
func Languages(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, raw := range tags {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil || tag == language.Und {
			continue
		}
		canonical := tag.String()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

// LanguageName renders a tag for prompts, e.g. "en-GB" -> "British English".
func LanguageName(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return parsed.String()
}
