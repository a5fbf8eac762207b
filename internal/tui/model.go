// Package tui is the terminal editor: a textarea surface with realtime
// proofreading underlines, caret suggestions, and rewrite and draft commands.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dev-razz/Typerra/internal/host"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/protocol"
	"github.com/dev-razz/Typerra/internal/realtime"
)

const commandTimeout = 90 * time.Second

// Host is the engine-facing half of the editor.
type Host interface {
	SetVisible(visible bool)
	Realtime() bool
	SetRealtime(ctx context.Context, enabled bool) error
	Write(ctx context.Context, prompt, tone, length string) (string, error)
	Rewrite(ctx context.Context, text, tone, length, shared string) (string, error)
	DisposeNonCorrector(ctx context.Context) error
}

// Pipeline is the realtime proofreader as driven by key events.
type Pipeline interface {
	Input(key string)
	Selection(caret int)
	Accept() bool
}

type rewriteDoneMsg struct {
	line     int
	original string
	text     string
	draft    bool
	err      error
}

type realtimeToggledMsg struct {
	enabled bool
	err     error
}

type progressMsg protocol.ProgressParams

type shedMsg struct{ err error }

type savedMsg struct {
	path string
	err  error
}

type editor struct {
	host     Host
	pipeline Pipeline
	buffer   *realtime.Buffer
	keys     keyMap
	logger   *slog.Logger

	textarea textarea.Model
	path     string
	width    int
	height   int

	layerSeq uint64
	hintSeq  uint64
	checked  string
	ranges   []normalize.Range
	hint     *realtime.Hint

	toneIndex int
	// heavy is set once a rewrite or draft has loaded the larger engines.
	heavy     bool
	busy      string
	status    string
	statusErr bool
	realtime  bool
}

func newEditor(h Host, p Pipeline, buffer *realtime.Buffer, path string, logger *slog.Logger) editor {
	if logger == nil {
		logger = logging.Nop()
	}
	ta := textarea.New()
	ta.Placeholder = "Start typing..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetValue(buffer.Text())
	ta.Focus()
	return editor{
		host:     h,
		pipeline: p,
		buffer:   buffer,
		keys:     defaultKeys(),
		logger:   logger,
		textarea: ta,
		path:     path,
		realtime: h.Realtime(),
	}
}

func (m editor) Init() tea.Cmd {
	return textarea.Blink
}

func (m editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(max(20, msg.Width-2))
		m.textarea.SetHeight(max(3, msg.Height/2))
		return m, nil
	case tea.FocusMsg:
		m.host.SetVisible(true)
		return m, nil
	case tea.BlurMsg:
		m.host.SetVisible(false)
		if !m.heavy || m.busy != "" {
			return m, nil
		}
		m.heavy = false
		return m, shedCmd(m.host)
	case shedMsg:
		if msg.err != nil {
			m.logger.Debug("tui.shed_failed", "error", msg.err)
		}
		return m, nil
	case annotationsMsg:
		if msg.seq < m.layerSeq {
			return m, nil
		}
		m.layerSeq = msg.seq
		if msg.clear {
			m.checked, m.ranges = "", nil
		} else {
			m.checked, m.ranges = msg.text, msg.ranges
		}
		return m, nil
	case hintMsg:
		if msg.seq < m.hintSeq {
			return m, nil
		}
		m.hintSeq = msg.seq
		m.hint = msg.hint
		return m, nil
	case rewriteDoneMsg:
		return m.handleRewriteDone(msg)
	case realtimeToggledMsg:
		m.busy = ""
		if msg.err != nil {
			m.setError(fmt.Sprintf("Realtime toggle failed: %v", msg.err))
			return m, nil
		}
		m.realtime = msg.enabled
		m.setStatus(fmt.Sprintf("Realtime proofreading %s.", onOff(msg.enabled)))
		return m, nil
	case progressMsg:
		if msg.Total > 0 {
			m.setStatus(fmt.Sprintf("Downloading %s model: %d%%", msg.Model, msg.Completed*100/msg.Total))
		}
		return m, nil
	case savedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Save failed: %v", msg.err))
			return m, nil
		}
		m.setStatus("Saved " + msg.path)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m editor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Accept):
		if m.pipeline.Accept() {
			m.loadBuffer()
			m.hint = nil
		}
		return m, nil
	case key.Matches(msg, m.keys.Rewrite):
		return m.startRewrite()
	case key.Matches(msg, m.keys.Draft):
		return m.startDraft()
	case key.Matches(msg, m.keys.Realtime):
		if m.busy != "" {
			return m, nil
		}
		m.busy = "realtime"
		return m, toggleRealtimeCmd(m.host, !m.realtime)
	case key.Matches(msg, m.keys.Save):
		if m.path == "" {
			m.setError("No file to save to.")
			return m, nil
		}
		return m, saveCmd(m.path, m.textarea.Value())
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	after := m.textarea.Value()
	caret := caretOffset(m.textarea)
	if after != before {
		m.buffer.ReplaceAll(after)
		m.buffer.SetSelection(caret, caret)
		m.pipeline.Input(keyName(msg))
	} else {
		m.buffer.SetSelection(caret, caret)
		m.pipeline.Selection(caret)
	}
	return m, cmd
}

func (m editor) startRewrite() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	row := m.textarea.Line()
	line := currentLine(m.textarea.Value(), row)
	if strings.TrimSpace(line) == "" {
		m.setError("Nothing to rewrite on this line.")
		return m, nil
	}
	tones := model.RewriteTones()
	tone := tones[m.toneIndex%len(tones)]
	m.toneIndex++
	m.busy = "rewrite"
	m.setStatus(fmt.Sprintf("Rewriting (%s)...", tone))
	shared := m.textarea.Value()
	h := m.host
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		text, err := h.Rewrite(ctx, line, tone, model.RewriteLengthAsIs, shared)
		return rewriteDoneMsg{line: row, original: line, text: text, err: err}
	}
}

func (m editor) startDraft() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	row := m.textarea.Line()
	prompt := currentLine(m.textarea.Value(), row)
	if strings.TrimSpace(prompt) == "" {
		m.setError("Type a prompt on the current line first.")
		return m, nil
	}
	m.busy = "draft"
	m.setStatus("Drafting...")
	h := m.host
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		text, err := h.Write(ctx, prompt, "", model.LengthMedium)
		return rewriteDoneMsg{line: row, original: prompt, text: text, draft: true, err: err}
	}
}

func (m editor) handleRewriteDone(msg rewriteDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	m.heavy = true
	if msg.err != nil {
		m.setError(describeError(msg.err))
		return m, nil
	}
	value, ok := replaceLine(m.textarea.Value(), msg.line, msg.original, msg.text)
	if !ok {
		m.setError("Line changed while the engine was working; result discarded.")
		return m, nil
	}
	m.buffer.ReplaceAll(value)
	m.loadBuffer()
	m.pipeline.Input("enter")
	if msg.draft {
		m.setStatus("Draft inserted.")
	} else {
		m.setStatus("Line rewritten.")
	}
	return m, nil
}

// loadBuffer copies the buffer's text and caret into the textarea.
func (m *editor) loadBuffer() {
	text := m.buffer.Text()
	_, caret := m.buffer.Selection()
	m.textarea.SetValue(text)
	moveCaret(&m.textarea, caret)
}

func (m *editor) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *editor) setError(text string) {
	m.status = text
	m.statusErr = true
}

func (m editor) View() string {
	var b strings.Builder
	title := "Typerra"
	if m.path != "" {
		title += "  " + m.path
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render("realtime " + onOff(m.realtime)))
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n")

	if m.realtime && len(m.ranges) > 0 {
		width := max(20, m.width-4)
		b.WriteString(layerStyle.Width(width).Render(renderAnnotations(m.checked, m.ranges)))
		b.WriteString("\n")
	}
	if m.hint != nil {
		b.WriteString(hintStyle.Render(fmt.Sprintf("tab: %q -> %q", m.hint.Original, m.hint.Replacement)))
		b.WriteString("\n")
	}
	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(helpLine(m.keys)))
	return b.String()
}

// renderAnnotations underlines every range of text.
func renderAnnotations(text string, ranges []normalize.Range) string {
	runes := []rune(text)
	var b strings.Builder
	pos := 0
	for _, r := range ranges {
		if r.Start < pos || r.End > len(runes) || r.Start > r.End {
			continue
		}
		b.WriteString(string(runes[pos:r.Start]))
		span := string(runes[r.Start:r.End])
		if span == "" {
			span = "^"
		}
		b.WriteString(underlineStyle.Render(span))
		pos = r.End
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

func helpLine(k keyMap) string {
	parts := make([]string, 0, len(k.help()))
	for _, binding := range k.help() {
		h := binding.Help()
		parts = append(parts, lipgloss.NewStyle().Bold(true).Render(h.Key)+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

func describeError(err error) string {
	if info := host.ErrorInfo(err); info != nil {
		msg := info.Error()
		if info.Retryable {
			msg += " (retry)"
		}
		return msg
	}
	return err.Error()
}

func toggleRealtimeCmd(h Host, enabled bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return realtimeToggledMsg{enabled: enabled, err: h.SetRealtime(ctx, enabled)}
	}
}

// shedCmd drops the rewriter and generator while the editor is in the
// background; the corrector stays loaded for realtime checks.
func shedCmd(h Host) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shedMsg{err: h.DisposeNonCorrector(ctx)}
	}
}

func saveCmd(path, text string) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{path: path, err: os.WriteFile(path, []byte(text), 0o644)}
	}
}

func keyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyEnter:
		return "enter"
	case tea.KeySpace:
		return "space"
	case tea.KeyRunes:
		return string(msg.Runes)
	}
	return msg.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
