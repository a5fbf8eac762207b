// Package fake provides deterministic offline engines for tests and for
// running the editor without a model server.
package fake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dev-razz/Typerra/internal/model"
)

const (
	SlowMarker    = "[slow]"
	FailMarker    = "[fail]"
	NetworkMarker = "[network-error]"
)

type netErr struct{}

func (netErr) Error() string   { return "network unavailable" }
func (netErr) Timeout() bool   { return true }
func (netErr) Temporary() bool { return true }

var errFailMarker = errors.New("fake engine failure")

type Option func(*Backend)

func WithAvailability(kind model.Kind, availability model.Availability) Option {
	return func(b *Backend) {
		b.availability[kind] = availability
	}
}

// WithSlowDelay sets how long a call carrying SlowMarker takes.
func WithSlowDelay(d time.Duration) Option {
	return func(b *Backend) {
		b.slowDelay = d
	}
}

// WithDownload sets the number of progress steps reported while a
// downloadable engine is created.
func WithDownload(steps int, stepDelay time.Duration) Option {
	return func(b *Backend) {
		b.downloadSteps = steps
		b.downloadDelay = stepDelay
	}
}

type Backend struct {
	availability  map[model.Kind]model.Availability
	slowDelay     time.Duration
	downloadSteps int
	downloadDelay time.Duration

	mu      sync.Mutex
	created map[model.Kind]int
}

func New(opts ...Option) *Backend {
	b := &Backend{
		availability:  make(map[model.Kind]model.Availability),
		slowDelay:     2 * time.Second,
		downloadSteps: 4,
		created:       make(map[model.Kind]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Availability(ctx context.Context, kind model.Kind, opts model.Options) (model.Availability, error) {
	if a, ok := b.availability[kind]; ok {
		return a, nil
	}
	return model.Available, nil
}

func (b *Backend) Create(ctx context.Context, kind model.Kind, opts model.Options) (model.Engine, error) {
	if b.availability[kind] == model.Downloadable {
		const total = int64(1 << 20)
		for step := 0; step <= b.downloadSteps; step++ {
			if opts.Progress != nil {
				opts.Progress(kind, total*int64(step)/int64(max(b.downloadSteps, 1)), total)
			}
			if err := sleep(ctx, b.downloadDelay); err != nil {
				return nil, err
			}
		}
	}

	b.mu.Lock()
	b.created[kind]++
	b.mu.Unlock()

	base := engine{slowDelay: b.slowDelay, opts: opts}
	switch kind {
	case model.KindCorrector:
		c := &Corrector{engine: base}
		c.Handle = model.NewHandle(kind, nil)
		return c, nil
	case model.KindRewriter:
		r := &Rewriter{engine: base}
		r.Handle = model.NewHandle(kind, nil)
		return r, nil
	case model.KindGenerator:
		g := &Generator{engine: base}
		g.Handle = model.NewHandle(kind, nil)
		return g, nil
	}
	return nil, fmt.Errorf("unknown model kind %q", kind)
}

// Created reports how many engines of kind were instantiated.
func (b *Backend) Created(kind model.Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created[kind]
}

type engine struct {
	*model.Handle
	slowDelay time.Duration
	opts      model.Options
}

// enter applies the markers shared by every engine.
func (e *engine) enter(ctx context.Context, text string) (context.Context, context.CancelFunc, error) {
	callCtx, release := e.Bind(ctx)
	if strings.Contains(text, NetworkMarker) {
		release()
		return nil, nil, netErr{}
	}
	if strings.Contains(text, SlowMarker) {
		if err := sleep(callCtx, e.slowDelay); err != nil {
			err = model.Aborted(callCtx, err)
			release()
			return nil, nil, err
		}
	}
	if strings.Contains(text, FailMarker) {
		release()
		return nil, nil, errFailMarker
	}
	return callCtx, release, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Corrector struct{ engine }

// Proofread answers with Chrome-style records and no corrected text, so the
// normalizer has to synthesize it.
func (c *Corrector) Proofread(ctx context.Context, text string) (any, error) {
	_, release, err := c.enter(ctx, text)
	if err != nil {
		return nil, err
	}
	defer release()

	records := []any{}
	for _, w := range words(text) {
		fix, ok := typos[strings.ToLower(w.text)]
		if !ok {
			continue
		}
		records = append(records, map[string]any{
			"startIndex": w.start,
			"endIndex":   w.end,
			"correction": matchCase(w.text, fix),
			"type":       "spelling",
		})
	}
	return map[string]any{"corrections": records}, nil
}

type Rewriter struct{ engine }

func (r *Rewriter) Rewrite(ctx context.Context, text string, opts model.RewriteOptions) (string, error) {
	_, release, err := r.enter(ctx, text)
	if err != nil {
		return "", err
	}
	defer release()

	tone := model.RewriteTone(opts.Tone)
	if tone == "" {
		tone = model.RewriteTone(r.opts.Tone)
	}
	out := text
	switch tone {
	case model.RewriteToneMoreFormal:
		out = replaceAll(out, formal)
	case model.RewriteToneMoreCasual:
		out = replaceAll(out, casual)
	}
	switch model.RewriteLength(opts.Length) {
	case model.RewriteLengthShorter:
		out = firstSentence(out)
	case model.RewriteLengthLonger:
		out = strings.TrimSpace(out) + " Let me know if anything is unclear."
	}
	return out, nil
}

type Generator struct{ engine }

func (g *Generator) Write(ctx context.Context, prompt string, opts model.WriteOptions) (string, error) {
	_, release, err := g.enter(ctx, prompt)
	if err != nil {
		return "", err
	}
	defer release()

	tone := model.WriteTone(opts.Tone)
	if tone == "" {
		tone = model.ToneNeutral
	}
	opening := map[string]string{
		model.ToneFormal:  "Dear reader,",
		model.ToneNeutral: "Hello,",
		model.ToneCasual:  "Hey there!",
	}[tone]
	topic := strings.TrimSpace(strings.ReplaceAll(prompt, SlowMarker, ""))
	sentences := []string{opening, fmt.Sprintf("This is a draft about %s.", topic)}
	switch model.WriteLength(opts.Length) {
	case model.LengthShort:
	case model.LengthLong:
		sentences = append(sentences, "It covers the main points in some detail.", "It closes with a short summary.")
	default:
		sentences = append(sentences, "It covers the main points.")
	}
	return strings.Join(sentences, " "), nil
}

var typos = map[string]string{
	"teh":        "the",
	"adn":        "and",
	"recieve":    "receive",
	"adress":     "address",
	"seperate":   "separate",
	"definately": "definitely",
	"occured":    "occurred",
	"untill":     "until",
	"wich":       "which",
	"becuase":    "because",
	"thier":      "their",
	"alot":       "a lot",
}

var formal = [][2]string{
	{"don't", "do not"},
	{"can't", "cannot"},
	{"won't", "will not"},
	{"I'm", "I am"},
	{"it's", "it is"},
	{"Hey", "Hello"},
	{"thanks", "thank you"},
}

var casual = [][2]string{
	{"do not", "don't"},
	{"cannot", "can't"},
	{"will not", "won't"},
	{"I am", "I'm"},
	{"it is", "it's"},
	{"Hello", "Hey"},
	{"thank you", "thanks"},
}

func replaceAll(text string, pairs [][2]string) string {
	for _, p := range pairs {
		text = strings.ReplaceAll(text, p[0], p[1])
	}
	return text
}

func firstSentence(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.IndexAny(trimmed, ".!?"); idx >= 0 {
		return trimmed[:idx+1]
	}
	return trimmed
}

type word struct {
	text       string
	start, end int
}

// words splits text into letter runs with rune offsets.
func words(text string) []word {
	var out []word
	start := -1
	pos := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = pos
			}
		} else if start >= 0 {
			out = append(out, word{start: start, end: pos})
			start = -1
		}
		pos++
	}
	if start >= 0 {
		out = append(out, word{start: start, end: pos})
	}
	runes := []rune(text)
	for i := range out {
		out[i].text = string(runes[out[i].start:out[i].end])
	}
	return out
}

func matchCase(original, fix string) string {
	r, size := utf8.DecodeRuneInString(original)
	if size == 0 || !unicode.IsUpper(r) {
		return fix
	}
	f, fsize := utf8.DecodeRuneInString(fix)
	return string(unicode.ToUpper(f)) + fix[fsize:]
}
