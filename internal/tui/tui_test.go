package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/realtime"
)

type stubHost struct {
	mu       sync.Mutex
	visible  []bool
	realtime bool
	rewrites []string
	writeErr error
	sheds    int
}

func (h *stubHost) SetVisible(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = append(h.visible, v)
}

func (h *stubHost) Realtime() bool { return h.realtime }

func (h *stubHost) SetRealtime(_ context.Context, enabled bool) error {
	h.realtime = enabled
	return nil
}

func (h *stubHost) Write(_ context.Context, prompt, _, _ string) (string, error) {
	if h.writeErr != nil {
		return "", h.writeErr
	}
	return "Draft about " + prompt + ".", nil
}

func (h *stubHost) Rewrite(_ context.Context, text, tone, _, _ string) (string, error) {
	h.mu.Lock()
	h.rewrites = append(h.rewrites, tone)
	h.mu.Unlock()
	return strings.ToUpper(text), nil
}

func (h *stubHost) DisposeNonCorrector(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sheds++
	return nil
}

// stubPipeline records input and applies a fixed hint on Accept.
type stubPipeline struct {
	buffer     *realtime.Buffer
	inputs     []string
	selections []int
	accept     *realtime.Hint
}

func (p *stubPipeline) Input(key string)    { p.inputs = append(p.inputs, key) }
func (p *stubPipeline) Selection(caret int) { p.selections = append(p.selections, caret) }
func (p *stubPipeline) Accept() bool {
	if p.accept == nil {
		return false
	}
	p.buffer.ReplaceRange(p.accept.Start, p.accept.End, p.accept.Replacement)
	return true
}

func newTestEditor(text string) (editor, *stubHost, *stubPipeline) {
	buf := realtime.NewBuffer(text)
	h := &stubHost{realtime: true}
	p := &stubPipeline{buffer: buf}
	return newEditor(h, p, buf, "", nil), h, p
}

func update(t *testing.T, m editor, msg tea.Msg) (editor, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(editor), cmd
}

func TestTypingMirrorsBufferAndSchedules(t *testing.T) {
	m, _, p := newTestEditor("")
	for _, r := range "Teh" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if got := m.buffer.Text(); got != "Teh " {
		t.Fatalf("buffer not mirrored, got %q", got)
	}
	if start, end := m.buffer.Selection(); start != 4 || end != 4 {
		t.Fatalf("caret not mirrored, got %d,%d", start, end)
	}
	want := []string{"T", "e", "h", "space"}
	if strings.Join(p.inputs, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected input keys %v", p.inputs)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if len(p.selections) != 1 || p.selections[0] != 3 {
		t.Fatalf("cursor movement must report the caret, got %v", p.selections)
	}
}

func TestAcceptReloadsTextarea(t *testing.T) {
	m, _, p := newTestEditor("Teh cat")
	p.accept = &realtime.Hint{Start: 0, End: 3, Original: "Teh", Replacement: "The"}
	m.hint = p.accept
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if got := m.textarea.Value(); got != "The cat" {
		t.Fatalf("textarea not reloaded, got %q", got)
	}
	if got := caretOffset(m.textarea); got != 3 {
		t.Fatalf("caret should follow the replacement, got %d", got)
	}
	if m.hint != nil {
		t.Fatalf("hint must clear after accept")
	}
}

func TestAnnotationsIgnoreOutOfOrderMessages(t *testing.T) {
	m, _, _ := newTestEditor("Teh cat")
	the := "The"
	m, _ = update(t, m, annotationsMsg{seq: 2, text: "Teh cat", ranges: []normalize.Range{{Start: 0, End: 3, Replacement: &the}}})
	m, _ = update(t, m, annotationsMsg{seq: 1, clear: true})
	if len(m.ranges) != 1 {
		t.Fatalf("older clear must not win over a newer render")
	}
	m, _ = update(t, m, annotationsMsg{seq: 3, clear: true})
	if len(m.ranges) != 0 {
		t.Fatalf("newer clear must apply")
	}
}

func TestFocusDrivesVisibility(t *testing.T) {
	m, h, _ := newTestEditor("")
	m, _ = update(t, m, tea.BlurMsg{})
	_, _ = update(t, m, tea.FocusMsg{})
	if len(h.visible) != 2 || h.visible[0] || !h.visible[1] {
		t.Fatalf("unexpected visibility reports %v", h.visible)
	}
}

func TestBlurShedsHeavyEnginesAfterRewrite(t *testing.T) {
	m, h, _ := newTestEditor("first line")
	m, cmd := update(t, m, tea.BlurMsg{})
	if cmd != nil {
		t.Fatalf("nothing to shed before a rewrite")
	}
	m, _ = update(t, m, tea.FocusMsg{})

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, _ = update(t, m, cmd())
	m, cmd = update(t, m, tea.BlurMsg{})
	if cmd == nil {
		t.Fatalf("expected blur to shed the rewriter and generator")
	}
	m, _ = update(t, m, cmd())
	if h.sheds != 1 {
		t.Fatalf("expected one shed, got %d", h.sheds)
	}
	_, cmd = update(t, m, tea.BlurMsg{})
	if cmd != nil {
		t.Fatalf("a second blur must not shed again")
	}
}

func TestRewriteCyclesToneAndReplacesLine(t *testing.T) {
	m, h, p := newTestEditor("first line\nsecond")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatalf("expected a rewrite command")
	}
	m, _ = update(t, m, cmd())
	if got := m.textarea.Value(); got != "first line\nSECOND" {
		t.Fatalf("unexpected value %q", got)
	}
	if got := m.buffer.Text(); got != "first line\nSECOND" {
		t.Fatalf("buffer not updated, got %q", got)
	}
	if p.inputs[len(p.inputs)-1] != "enter" {
		t.Fatalf("rewrite must schedule an immediate check")
	}
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	_, _ = update(t, m, cmd())
	if len(h.rewrites) != 2 || h.rewrites[0] == h.rewrites[1] {
		t.Fatalf("tone must cycle, got %v", h.rewrites)
	}
}

func TestDraftFailureShowsError(t *testing.T) {
	m, h, _ := newTestEditor("a note on testing")
	h.writeErr = errors.New("engine down")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	m, _ = update(t, m, cmd())
	if !m.statusErr || !strings.Contains(m.status, "engine down") {
		t.Fatalf("expected error status, got %q", m.status)
	}
	if m.textarea.Value() != "a note on testing" {
		t.Fatalf("failed draft must leave text unchanged")
	}
}

func TestReplaceLineRejectsChangedLine(t *testing.T) {
	if _, ok := replaceLine("a\nb", 1, "x", "y"); ok {
		t.Fatalf("changed line must be rejected")
	}
	got, ok := replaceLine("a\nb", 0, "a", "z\n")
	if !ok || got != "z\nb" {
		t.Fatalf("got %q %v", got, ok)
	}
}

func TestRenderAnnotationsKeepsText(t *testing.T) {
	out := renderAnnotations("Teh cat sat", []normalize.Range{{Start: 0, End: 3}, {Start: 8, End: 11}})
	for _, part := range []string{"Teh", " cat ", "sat"} {
		if !strings.Contains(out, part) {
			t.Fatalf("annotation output lost %q: %q", part, out)
		}
	}
}
