package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/registry"
)

func ptr(s string) *string { return &s }

func rangesEqual(got, want []Range) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Start != want[i].Start || got[i].End != want[i].End {
			return false
		}
		if (got[i].Replacement == nil) != (want[i].Replacement == nil) {
			return false
		}
		if got[i].Replacement != nil && *got[i].Replacement != *want[i].Replacement {
			return false
		}
	}
	return true
}

func format(ranges []Range) string {
	out := "["
	for _, r := range ranges {
		rep := "<nil>"
		if r.Replacement != nil {
			rep = *r.Replacement
		}
		out += fmt.Sprintf("{%d %d %q}", r.Start, r.End, rep)
	}
	return out + "]"
}

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestSynthesizesCorrectedText(t *testing.T) {
	raw := mustJSON(t, `{"corrections":[{"start":0,"end":3,"replacement":"The"}]}`)
	got := Normalize("Teh cat sat", raw)
	if got.Corrected != "The cat sat" {
		t.Fatalf("expected synthesized text, got %q", got.Corrected)
	}
	if !rangesEqual(got.Ranges, []Range{{Start: 0, End: 3, Replacement: ptr("The")}}) {
		t.Fatalf("unexpected ranges %s", format(got.Ranges))
	}
	if len(got.Corrections) != 1 || got.Cancelled {
		t.Fatalf("expected raw record forwarded, got %+v", got)
	}
}

func TestSpanStrategies(t *testing.T) {
	base := "0123456789"
	cases := []struct {
		name   string
		record string
		start  int
		end    int
	}{
		{"startIndex", `{"startIndex":1,"endIndex":2,"start":5,"end":6}`, 1, 2},
		{"start end", `{"start":2,"end":4}`, 2, 4},
		{"offset length", `{"offset":3,"length":2}`, 3, 5},
		{"range", `{"range":{"start":4,"end":6}}`, 4, 6},
		{"span", `{"span":{"start":"5","end":"7"}}`, 5, 7},
		{"from to", `{"from":1,"to":9}`, 1, 9},
		{"startOffset", `{"startOffset":0,"endOffset":1}`, 0, 1},
		{"begin", `{"begin":6,"end":8}`, 6, 8},
		{"numeric strings", `{"start":"2","end":" 3 "}`, 2, 3},
		{"partial pair falls through", `{"startIndex":1,"offset":4,"length":1}`, 4, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := mustJSON(t, `{"errors":[`+tc.record+`]}`)
			got := Normalize(base, raw)
			if len(got.Ranges) != 1 || got.Ranges[0].Start != tc.start || got.Ranges[0].End != tc.end {
				t.Fatalf("expected [%d,%d), got %s", tc.start, tc.end, format(got.Ranges))
			}
		})
	}
}

func TestUnresolvableRecordsAreDropped(t *testing.T) {
	raw := mustJSON(t, `{"edits":[{"start":"x","end":2},{"word":"teh"},"nope",{"start":1,"end":2}]}`)
	got := Normalize("abc", raw)
	if len(got.Ranges) != 1 || got.Ranges[0].Start != 1 {
		t.Fatalf("unexpected ranges %s", format(got.Ranges))
	}
	if len(got.Corrections) != 4 {
		t.Fatalf("raw records must be forwarded untouched")
	}
}

func TestReplacementResolution(t *testing.T) {
	cases := []struct {
		name   string
		record string
		want   *string
	}{
		{"replacement", `{"replacement":"a","correction":"b"}`, ptr("a")},
		{"correction", `{"correction":"b"}`, ptr("b")},
		{"suggestion", `{"suggestion":"c"}`, ptr("c")},
		{"replace", `{"replace":"d"}`, ptr("d")},
		{"corrected", `{"corrected":"e"}`, ptr("e")},
		{"value", `{"value":"f"}`, ptr("f")},
		{"suggestions string", `{"suggestions":["g","h"]}`, ptr("g")},
		{"candidates object", `{"candidates":[{"text":"i"}]}`, ptr("i")},
		{"replacements object", `{"replacements":[{"replacement":"j"}]}`, ptr("j")},
		{"empty string deletes", `{"replacement":""}`, ptr("")},
		{"none", `{"message":"spelling"}`, nil},
		{"empty list", `{"suggestions":[]}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var record map[string]any
			if err := json.Unmarshal([]byte(tc.record), &record); err != nil {
				t.Fatalf("fixture: %v", err)
			}
			record["start"] = 0
			record["end"] = 1
			got := Normalize("x", []any{record})
			if len(got.Ranges) != 1 {
				t.Fatalf("expected one range")
			}
			want := []Range{{Start: 0, End: 1, Replacement: tc.want}}
			if !rangesEqual(got.Ranges, want) {
				t.Fatalf("expected %s, got %s", format(want), format(got.Ranges))
			}
		})
	}
}

func TestClampSortAndOverlap(t *testing.T) {
	raw := mustJSON(t, `{"issues":[
		{"start":8,"end":20,"replacement":"tail"},
		{"start":3,"end":1,"replacement":"swap"},
		{"start":-4,"end":2,"replacement":"head"},
		{"start":5,"end":6,"replacement":"mid"},
		{"start":5,"end":7,"replacement":"dup"}
	]}`)
	got := Normalize("abcdefghij", raw)
	want := []Range{
		{Start: 0, End: 2, Replacement: ptr("head")},
		{Start: 5, End: 6, Replacement: ptr("mid")},
		{Start: 8, End: 10, Replacement: ptr("tail")},
	}
	if !rangesEqual(got.Ranges, want) {
		t.Fatalf("expected %s, got %s", format(want), format(got.Ranges))
	}
	for _, r := range got.Ranges {
		if r.Start < 0 || r.End > 10 || r.Start > r.End {
			t.Fatalf("range out of bounds: %+v", r)
		}
	}
	if got.Corrected != "headcdemidghtail" {
		t.Fatalf("unexpected synthesis %q", got.Corrected)
	}
}

func TestHugeOffsetsSaturateBeforeClamping(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		want      Range
		corrected string
	}{
		{"end beyond int range", `{"corrections":[{"start":2,"end":1e20,"replacement":"X"}]}`, Range{Start: 2, End: 6}, "abX"},
		{"end as numeric string", `{"corrections":[{"start":"2","end":"-1e30","replacement":"X"}]}`, Range{Start: 0, End: 2}, "Xcdef"},
		{"offset plus length overflows", `{"corrections":[{"offset":3,"length":9223372036854775807,"replacement":"X"}]}`, Range{Start: 3, End: 6}, "abcX"},
		{"negative length underflows", `{"corrections":[{"offset":-3,"length":-9223372036854775807,"replacement":"X"}]}`, Range{Start: 0, End: 0}, "Xabcdef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize("abcdef", mustJSON(t, tc.raw))
			tc.want.Replacement = ptr("X")
			if !rangesEqual(got.Ranges, []Range{tc.want}) {
				t.Fatalf("expected %s, got %s", format([]Range{tc.want}), format(got.Ranges))
			}
			if got.Corrected != tc.corrected {
				t.Fatalf("expected %q, got %q", tc.corrected, got.Corrected)
			}
		})
	}
}

func TestRuneOffsets(t *testing.T) {
	raw := []any{map[string]any{"start": 5, "end": 8, "replacement": "the"}}
	got := Normalize("café teh", raw)
	if got.Corrected != "café the" {
		t.Fatalf("expected rune-based splice, got %q", got.Corrected)
	}
}

func TestSuppliedCorrectedTextWins(t *testing.T) {
	raw := mustJSON(t, `{"correctedInput":"The cat sat.","corrections":[{"startIndex":0,"endIndex":3,"correction":"The"}]}`)
	got := Normalize("Teh cat sat", raw)
	if got.Corrected != "The cat sat." {
		t.Fatalf("expected engine text, got %q", got.Corrected)
	}
	if len(got.Ranges) != 1 {
		t.Fatalf("records must still drive ranges, got %s", format(got.Ranges))
	}
}

func TestRangesDerivedFromCorrectedText(t *testing.T) {
	for _, raw := range []any{
		"The cat sat",
		map[string]any{"corrected": "The cat sat"},
		struct {
			CorrectedText string `json:"correctedText"`
		}{"The cat sat"},
		json.RawMessage(`{"result":"The cat sat"}`),
	} {
		got := Normalize("Teh cat sat", raw)
		want := []Range{{Start: 0, End: 3, Replacement: ptr("The")}}
		if got.Corrected != "The cat sat" || !rangesEqual(got.Ranges, want) {
			t.Fatalf("raw %T: expected diff-derived range, got %q %s", raw, got.Corrected, format(got.Ranges))
		}
	}
}

func TestMalformedInputDegrades(t *testing.T) {
	for _, raw := range []any{nil, 42, true, json.RawMessage(`{not json`), map[string]any{"corrections": "nope"}} {
		got := Normalize("keep me", raw)
		if got.Corrected != "keep me" || len(got.Ranges) != 0 || got.Cancelled {
			t.Fatalf("raw %v: expected passthrough, got %+v", raw, got)
		}
		if got.Ranges == nil || got.Corrections == nil {
			t.Fatalf("slices must encode as empty arrays")
		}
	}
}

type exploding struct{}

func (exploding) MarshalJSON() ([]byte, error) { panic("engine output exploded") }

func TestPanicDegrades(t *testing.T) {
	got := Normalize("safe", exploding{})
	if got.Corrected != "safe" || len(got.Ranges) != 0 {
		t.Fatalf("expected degraded payload, got %+v", got)
	}
}

func TestCancelledPayload(t *testing.T) {
	got := Cancelled("Teh")
	if !got.Cancelled || got.Corrected != "Teh" || len(got.Ranges) != 0 || len(got.Corrections) != 0 {
		t.Fatalf("unexpected cancelled payload %+v", got)
	}
	data, _ := json.Marshal(got)
	if string(data) != `{"corrected":"Teh","corrections":[],"ranges":[],"cancelled":true}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestIsCancellation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{context.Canceled, true},
		{fmt.Errorf("proofread: %w", context.Canceled), true},
		{registry.ErrDisposed, true},
		{&model.AbortError{Cause: errors.New("stop")}, true},
		{errors.New("The user aborted a request."), true},
		{errors.New("request was cancelled"), true},
		{context.DeadlineExceeded, false},
		{errors.New("model unavailable"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsCancellation(tc.err); got != tc.want {
			t.Fatalf("IsCancellation(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
