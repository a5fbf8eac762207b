package diff

import "testing"

func TestLinesMarksRewrittenLines(t *testing.T) {
	lines, ok := Lines("alpha\nbeta\ngamma", "alpha\nBETA\ngamma\n", 0)
	if !ok {
		t.Fatalf("expected inputs within the limit")
	}
	want := []Line{
		{Op: OpKeep, Text: "alpha"},
		{Op: OpRemove, Text: "beta"},
		{Op: OpAdd, Text: "BETA"},
		{Op: OpKeep, Text: "gamma"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %+v, got %+v", i, want[i], lines[i])
		}
	}
	if !Changed(lines) {
		t.Fatalf("expected a change")
	}
	if got := lines[1].String(); got != "- beta" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestLinesUnchangedAndLimit(t *testing.T) {
	lines, ok := Lines("same\ntext", "same\ntext", 0)
	if !ok || Changed(lines) || len(lines) != 2 {
		t.Fatalf("expected two kept lines, got %+v", lines)
	}
	if _, ok := Lines("a\nb\nc", "a\nb", 4); ok {
		t.Fatalf("expected five lines to exceed a limit of four")
	}
}

func TestEditsWordGranular(t *testing.T) {
	cases := []struct {
		name   string
		before string
		after  string
		want   []Edit
	}{
		{"identical", "same text", "same text", nil},
		{"typo", "Teh cat sat", "The cat sat", []Edit{{Start: 0, End: 3, Replacement: "The"}}},
		{"two words", "I has teh cat", "I have the cat", []Edit{{Start: 2, End: 5, Replacement: "have"}, {Start: 6, End: 9, Replacement: "the"}}},
		{"insertion", "Hello world", "Hello, world", []Edit{{Start: 5, End: 5, Replacement: ","}}},
		{"deletion", "the the end", "the end", []Edit{{Start: 4, End: 8, Replacement: ""}}},
		{"runes", "café teh", "café the", []Edit{{Start: 5, End: 8, Replacement: "the"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Edits(tc.before, tc.after)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d edits, got %d: %+v", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("edit %d: expected %+v, got %+v", i, tc.want[i], got[i])
				}
			}
		})
	}
}

