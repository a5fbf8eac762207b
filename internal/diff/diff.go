package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op marks how a line of a rewrite relates to the text it replaced.
type Op byte

const (
	OpKeep   Op = ' '
	OpRemove Op = '-'
	OpAdd    Op = '+'
)

type Line struct {
	Op   Op
	Text string
}

// MaxLines caps the combined input size Lines will compare.
const MaxLines = 2000

// Lines compares before and after line by line. ok is false when the inputs
// together exceed maxLines; maxLines <= 0 means MaxLines.
func Lines(before, after string, maxLines int) (lines []Line, ok bool) {
	if maxLines <= 0 {
		maxLines = MaxLines
	}
	if countLines(before)+countLines(after) > maxLines {
		return nil, false
	}
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToRunes(withNewline(before), withNewline(after))
	for _, d := range dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), table) {
		op := OpKeep
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpRemove
		case diffmatchpatch.DiffInsert:
			op = OpAdd
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			lines = append(lines, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return lines, true
}

// Changed reports whether any line was added or removed.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Op != OpKeep {
			return true
		}
	}
	return false
}

func (l Line) String() string {
	return string(l.Op) + " " + l.Text
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}
