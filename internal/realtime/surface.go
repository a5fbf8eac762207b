package realtime

import (
	"context"
	"sync"

	"github.com/dev-razz/Typerra/internal/normalize"
)

// Surface is an editable text field. Offsets are rune offsets.
type Surface interface {
	Text() string
	Selection() (start, end int)
	SetSelection(start, end int)
	ReplaceRange(start, end int, text string)
	ReplaceAll(text string)
}

// Renderer draws correction ranges over a surface without mutating it.
type Renderer interface {
	Render(text string, ranges []normalize.Range)
	Clear()
}

// HintSink receives the suggestion under the caret; nil clears it.
type HintSink interface {
	Hint(h *Hint)
}

type Proofreader interface {
	Proofread(ctx context.Context, text string) (normalize.Payload, error)
}

// Buffer is an in-memory Surface.
type Buffer struct {
	mu       sync.Mutex
	text     []rune
	selStart int
	selEnd   int
}

func NewBuffer(text string) *Buffer {
	b := &Buffer{text: []rune(text)}
	b.selStart = len(b.text)
	b.selEnd = len(b.text)
	return b
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

func (b *Buffer) Selection() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selStart, b.selEnd
}

func (b *Buffer) SetSelection(start, end int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selStart, b.selEnd = b.clamp(start, end)
}

func (b *Buffer) ReplaceRange(start, end int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start, end = b.clamp(start, end)
	insert := []rune(text)
	next := make([]rune, 0, len(b.text)-(end-start)+len(insert))
	next = append(next, b.text[:start]...)
	next = append(next, insert...)
	next = append(next, b.text[end:]...)
	b.text = next
	caret := start + len(insert)
	b.selStart, b.selEnd = caret, caret
}

func (b *Buffer) ReplaceAll(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = []rune(text)
	b.selStart, b.selEnd = len(b.text), len(b.text)
}

// Type inserts text at the caret, replacing any selection.
func (b *Buffer) Type(text string) {
	start, end := b.Selection()
	b.ReplaceRange(start, end, text)
}

func (b *Buffer) clamp(start, end int) (int, int) {
	if start > end {
		start, end = end, start
	}
	start = max(0, min(start, len(b.text)))
	end = max(0, min(end, len(b.text)))
	return start, end
}
