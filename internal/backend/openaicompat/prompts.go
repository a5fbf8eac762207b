package openaicompat

import (
	"fmt"
	"strings"

	"github.com/dev-razz/Typerra/internal/model"
)

func proofreadPrompt(languages []string) string {
	var b strings.Builder
	b.WriteString("You are a proofreader. Fix spelling, grammar and punctuation mistakes in the user's text. ")
	b.WriteString("Do not change meaning, tone or formatting, and do not rephrase correct sentences. ")
	if len(languages) > 0 {
		names := make([]string, 0, len(languages))
		for _, tag := range languages {
			names = append(names, model.LanguageName(tag))
		}
		fmt.Fprintf(&b, "The text is written in %s. ", strings.Join(names, " or "))
	}
	b.WriteString(`Reply with JSON only: {"correctedInput": "<the full corrected text>"}.`)
	return b.String()
}

var rewriteTone = map[string]string{
	model.RewriteToneMoreFormal: "Make the tone more formal.",
	model.RewriteToneMoreCasual: "Make the tone more casual.",
	model.RewriteToneAsIs:       "Keep the tone as it is.",
}

var rewriteLength = map[string]string{
	model.RewriteLengthShorter: "Make it shorter.",
	model.RewriteLengthLonger:  "Make it longer.",
	model.RewriteLengthAsIs:    "Keep roughly the same length.",
}

func rewritePrompt(tone, length, shared string) string {
	parts := []string{
		"Rewrite the user's text.",
		rewriteTone[tone],
		rewriteLength[length],
		"Reply with the rewritten text only.",
	}
	if strings.TrimSpace(shared) != "" {
		parts = append(parts, "Context: "+shared)
	}
	return strings.Join(parts, " ")
}

var writeLength = map[string]string{
	model.LengthShort:  "one short paragraph",
	model.LengthMedium: "two or three paragraphs",
	model.LengthLong:   "several paragraphs",
}

func writePrompt(tone, length, shared string) string {
	prompt := fmt.Sprintf("Write %s in a %s tone for the user's request. Reply with the text only.", writeLength[length], tone)
	if strings.TrimSpace(shared) != "" {
		prompt += " Context: " + shared
	}
	return prompt
}
