package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// caretOffset converts the textarea cursor to a rune offset into its value.
func caretOffset(ta textarea.Model) int {
	lines := strings.Split(ta.Value(), "\n")
	row := min(ta.Line(), len(lines)-1)
	offset := 0
	for i := 0; i < row; i++ {
		offset += utf8.RuneCountInString(lines[i]) + 1
	}
	info := ta.LineInfo()
	col := min(info.StartColumn+info.ColumnOffset, utf8.RuneCountInString(lines[row]))
	return offset + col
}

// moveCaret places the cursor at a rune offset. SetValue leaves the cursor at
// the end, so it walks left from there.
func moveCaret(ta *textarea.Model, caret int) {
	total := utf8.RuneCountInString(ta.Value())
	caret = max(0, min(caret, total))
	left := tea.KeyMsg{Type: tea.KeyLeft}
	for i := 0; i < total-caret; i++ {
		*ta, _ = ta.Update(left)
	}
}

func currentLine(value string, row int) string {
	lines := strings.Split(value, "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return lines[row]
}

// replaceLine swaps line row for text if it still reads original. The caret
// is not touched.
func replaceLine(value string, row int, original, text string) (string, bool) {
	lines := strings.Split(value, "\n")
	if row < 0 || row >= len(lines) || lines[row] != original {
		return value, false
	}
	lines[row] = strings.TrimRight(text, "\n")
	return strings.Join(lines, "\n"), true
}
