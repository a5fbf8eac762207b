package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/realtime"
)

// annotationsMsg replaces the annotation layer. A nil text clears it.
type annotationsMsg struct {
	seq    uint64
	text   string
	ranges []normalize.Range
	clear  bool
}

type hintMsg struct {
	seq  uint64
	hint *realtime.Hint
}

// bridge is the pipeline's Renderer and HintSink. Pipeline callbacks may run
// inside Update, so messages are posted asynchronously and carry a sequence
// number; the model drops any that arrive out of order.
type bridge struct {
	seq  atomic.Uint64
	send atomic.Pointer[func(tea.Msg)]
}

func (b *bridge) bind(send func(tea.Msg)) {
	b.send.Store(&send)
}

func (b *bridge) post(msg tea.Msg) {
	send := b.send.Load()
	if send == nil {
		return
	}
	go (*send)(msg)
}

func (b *bridge) Render(text string, ranges []normalize.Range) {
	b.post(annotationsMsg{seq: b.seq.Add(1), text: text, ranges: ranges})
}

func (b *bridge) Clear() {
	b.post(annotationsMsg{seq: b.seq.Add(1), clear: true})
}

func (b *bridge) Hint(h *realtime.Hint) {
	b.post(hintMsg{seq: b.seq.Add(1), hint: h})
}
