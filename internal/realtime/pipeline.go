// Package realtime proofreads a focused text surface as the user types:
// debounced and throttled engine calls, stale-response rejection, and caret
// suggestions.
package realtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/normalize"
)

type Config struct {
	Debounce    time.Duration
	MinInterval time.Duration
	MaxChars    int
}

func DefaultConfig() Config {
	return Config{
		Debounce:    350 * time.Millisecond,
		MinInterval: 800 * time.Millisecond,
		MaxChars:    10000,
	}
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithClock(clock Clock) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithHintSink(sink HintSink) Option {
	return func(p *Pipeline) {
		p.hints = sink
	}
}

// session is the state bound to one attached surface.
type session struct {
	id       string
	surface  Surface
	lastText string
	ranges   []normalize.Range
	hint     *Hint
	timer    Timer
	lastDone time.Time
}

type Pipeline struct {
	proofreader Proofreader
	renderer    Renderer
	hints       HintSink
	clock       Clock
	cfg         Config
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session *session
	token   uint64
}

func New(proofreader Proofreader, renderer Renderer, cfg Config, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if cfg.Debounce < 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = def.MaxChars
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		proofreader: proofreader,
		renderer:    renderer,
		clock:       systemClock{},
		cfg:         cfg,
		logger:      logging.Nop(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "realtime")
	return p
}

// Attach starts a new session on surface, replacing any current one, and
// schedules an immediate check of its existing text.
func (p *Pipeline) Attach(surface Surface) string {
	p.mu.Lock()
	p.teardownLocked()
	s := &session{id: uuid.NewString(), surface: surface}
	p.session = s
	p.scheduleLocked(s, 0)
	p.mu.Unlock()
	p.clear()
	p.logger.Debug("realtime.attach", "session", s.id)
	return s.id
}

func (p *Pipeline) Detach() {
	p.mu.Lock()
	had := p.session != nil
	p.teardownLocked()
	p.mu.Unlock()
	if had {
		p.clear()
	}
}

// Close detaches and abandons any call still running.
func (p *Pipeline) Close() {
	p.Detach()
	p.cancel()
}

func (p *Pipeline) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ""
	}
	return p.session.id
}

// Input reports a mutation of the attached surface. key names the key that
// produced it ("enter", "space", or the typed text); only the last character
// typed decides whether the check runs without debounce.
func (p *Pipeline) Input(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.session
	if s == nil {
		return
	}
	delay := p.cfg.Debounce
	if isBoundary(key) {
		delay = 0
	}
	p.scheduleLocked(s, delay)
}

// Selection recomputes the caret hint from the current ranges.
func (p *Pipeline) Selection(caret int) {
	p.mu.Lock()
	s := p.session
	if s == nil {
		p.mu.Unlock()
		return
	}
	s.hint = HintAt(s.lastText, s.ranges, caret)
	hint := s.hint
	p.mu.Unlock()
	p.emitHint(hint)
}

// Accept applies the current hint to the surface and schedules an
// immediate re-check. It reports whether a hint was applied.
func (p *Pipeline) Accept() bool {
	p.mu.Lock()
	s := p.session
	if s == nil || s.hint == nil {
		p.mu.Unlock()
		return false
	}
	h := *s.hint
	if s.surface.Text() != s.lastText {
		s.hint = nil
		p.mu.Unlock()
		p.emitHint(nil)
		return false
	}
	s.surface.ReplaceRange(h.Start, h.End, h.Replacement)
	caret := h.Start + utf8.RuneCountInString(h.Replacement)
	s.surface.SetSelection(caret, caret)
	s.ranges = nil
	s.hint = nil
	s.lastText = s.surface.Text()
	p.scheduleLocked(s, 0)
	p.mu.Unlock()

	p.clear()
	p.logger.Debug("realtime.accept", "session", s.id, "start", h.Start, "end", h.End)
	return true
}

func (p *Pipeline) scheduleLocked(s *session, delay time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = p.clock.AfterFunc(delay, func() { p.fire(s) })
}

func (p *Pipeline) fire(s *session) {
	p.mu.Lock()
	if p.session != s {
		p.mu.Unlock()
		return
	}
	s.timer = nil
	text := s.surface.Text()
	if utf8.RuneCountInString(text) > p.cfg.MaxChars || strings.TrimSpace(text) == "" {
		s.ranges = nil
		s.hint = nil
		s.lastText = text
		p.mu.Unlock()
		p.clear()
		return
	}
	if !s.lastDone.IsZero() {
		if wait := p.cfg.MinInterval - p.clock.Now().Sub(s.lastDone); wait > 0 {
			p.scheduleLocked(s, wait)
			p.mu.Unlock()
			return
		}
	}
	p.token++
	token := p.token
	p.mu.Unlock()

	payload, err := p.proofreader.Proofread(p.ctx, text)
	p.complete(s, token, text, payload, err)
}

func (p *Pipeline) complete(s *session, token uint64, text string, payload normalize.Payload, err error) {
	p.mu.Lock()
	if p.session == s {
		s.lastDone = p.clock.Now()
	}
	if p.session != s || token != p.token {
		p.mu.Unlock()
		p.logger.Debug("realtime.superseded", "session", s.id, "token", token)
		return
	}
	if err != nil {
		p.mu.Unlock()
		if normalize.IsCancellation(err) {
			p.logger.Debug("realtime.cancelled", "session", s.id, "error", err)
		} else {
			p.logger.Warn("realtime.proofread_failed", "session", s.id, "error", err)
		}
		return
	}
	if payload.Cancelled || s.surface.Text() != text {
		p.mu.Unlock()
		p.logger.Debug("realtime.superseded", "session", s.id, "token", token, "cancelled", payload.Cancelled)
		return
	}
	s.lastText = text
	s.ranges = append([]normalize.Range(nil), payload.Ranges...)
	_, caret := s.surface.Selection()
	s.hint = HintAt(text, s.ranges, caret)
	ranges := s.ranges
	hint := s.hint
	p.mu.Unlock()

	if p.renderer != nil {
		p.renderer.Render(text, ranges)
	}
	p.emitHint(hint)
	p.logger.Debug("realtime.applied", "session", s.id, "ranges", len(ranges))
}

func (p *Pipeline) teardownLocked() {
	p.token++
	if p.session == nil {
		return
	}
	if p.session.timer != nil {
		p.session.timer.Stop()
	}
	p.logger.Debug("realtime.detach", "session", p.session.id)
	p.session = nil
}

func (p *Pipeline) clear() {
	if p.renderer != nil {
		p.renderer.Clear()
	}
	p.emitHint(nil)
}

func (p *Pipeline) emitHint(h *Hint) {
	if p.hints != nil {
		p.hints.Hint(h)
	}
}

// isBoundary reports whether key ends a word: enter, space, or typed text
// whose last character is whitespace or punctuation.
func isBoundary(key string) bool {
	switch key {
	case "enter", "space":
		return true
	}
	last, size := utf8.DecodeLastRuneInString(key)
	if size == 0 {
		return false
	}
	return unicode.IsSpace(last) || strings.ContainsRune(".!?,;:", last)
}
