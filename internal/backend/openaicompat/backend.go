// Package openaicompat runs the three engines against an OpenAI-compatible
// chat-completions server, typically a local model runner.
package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dev-razz/Typerra/internal/egress"
	"github.com/dev-razz/Typerra/internal/llm"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/model"
)

const defaultTimeout = 120 * time.Second

type Config struct {
	BaseURL     string
	APIKey      string
	Models      map[model.Kind]string
	PullMissing bool
	Timeout     time.Duration
}

type Option func(*Backend)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTransport swaps the underlying transport. The egress allowlist still
// wraps it.
func WithTransport(rt http.RoundTripper) Option {
	return func(b *Backend) {
		b.transport = rt
	}
}

type Backend struct {
	cfg       Config
	host      string
	transport http.RoundTripper
	client    *client
	logger    *slog.Logger
}

func New(cfg Config, opts ...Option) (*Backend, error) {
	parsed, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	b := &Backend{
		cfg:       cfg,
		host:      parsed.Hostname(),
		transport: http.DefaultTransport,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.client = &client{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: egress.NewAllowlistRoundTripper(b.transport, []string{b.host}),
		},
	}
	return b, nil
}

func (b *Backend) modelName(kind model.Kind) string {
	return strings.TrimSpace(b.cfg.Models[kind])
}

func (b *Backend) Availability(ctx context.Context, kind model.Kind, opts model.Options) (model.Availability, error) {
	name := b.modelName(kind)
	if name == "" {
		return model.Unavailable, nil
	}
	listed, err := b.client.models(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case listed[name]:
		return model.Available, nil
	case b.cfg.PullMissing:
		return model.Downloadable, nil
	default:
		return model.Unavailable, nil
	}
}

func (b *Backend) Create(ctx context.Context, kind model.Kind, opts model.Options) (model.Engine, error) {
	name := b.modelName(kind)
	if name == "" {
		return nil, fmt.Errorf("no model configured for %s", kind)
	}
	listed, err := b.client.models(ctx)
	if err != nil {
		return nil, err
	}
	if !listed[name] {
		if !b.cfg.PullMissing {
			return nil, llm.ErrUnavailable
		}
		b.logger.Info("openaicompat.pull_started", "model", kind, "name", name)
		err := b.client.pull(ctx, name, func(p llm.Progress) {
			if opts.Progress != nil {
				opts.Progress(kind, p.Completed, p.Total)
			}
		})
		if err != nil {
			return nil, err
		}
		b.logger.Info("openaicompat.pull_finished", "model", kind, "name", name)
	}

	base := engine{client: b.client, name: name, opts: opts, logger: b.logger.With("model", string(kind))}
	switch kind {
	case model.KindCorrector:
		c := &corrector{engine: base}
		c.Handle = model.NewHandle(kind, nil)
		return c, nil
	case model.KindRewriter:
		r := &rewriter{engine: base}
		r.Handle = model.NewHandle(kind, nil)
		return r, nil
	case model.KindGenerator:
		g := &generator{engine: base}
		g.Handle = model.NewHandle(kind, nil)
		return g, nil
	}
	return nil, fmt.Errorf("unknown model kind %q", kind)
}

type engine struct {
	*model.Handle
	client *client
	name   string
	opts   model.Options
	logger *slog.Logger
}

func (e *engine) complete(ctx context.Context, system, user string, temperature float64, jsonOutput bool) (string, error) {
	callCtx, release := e.Bind(ctx)
	defer release()
	started := time.Now()
	out, err := e.client.chat(callCtx, llm.ChatRequest{
		Model: e.name,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: &temperature,
		JSONOutput:  jsonOutput,
	})
	if err != nil {
		return "", model.Aborted(callCtx, err)
	}
	e.logger.Debug("openaicompat.completed", "elapsed", time.Since(started).String(), "output", logging.Preview(out))
	return out, nil
}

type corrector struct{ engine }

// Proofread returns the decoded JSON object when the model honours the
// requested format, or the raw text otherwise. Both shapes normalize.
func (c *corrector) Proofread(ctx context.Context, text string) (any, error) {
	out, err := c.complete(ctx, proofreadPrompt(c.opts.Languages), text, 0, true)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(stripFence(out)), &decoded); err == nil {
		return decoded, nil
	}
	c.logger.Debug("openaicompat.proofread_not_json")
	return strings.TrimSpace(out), nil
}

type rewriter struct{ engine }

func (r *rewriter) Rewrite(ctx context.Context, text string, opts model.RewriteOptions) (string, error) {
	tone := firstNonEmpty(model.RewriteTone(opts.Tone), model.RewriteTone(r.opts.Tone), model.RewriteToneAsIs)
	length := firstNonEmpty(model.RewriteLength(opts.Length), model.RewriteLength(r.opts.Length), model.RewriteLengthAsIs)
	shared := firstNonEmpty(opts.Context, r.opts.SharedContext)
	out, err := r.complete(ctx, rewritePrompt(tone, length, shared), text, 0.4, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

type generator struct{ engine }

func (g *generator) Write(ctx context.Context, prompt string, opts model.WriteOptions) (string, error) {
	tone := firstNonEmpty(model.WriteTone(opts.Tone), model.WriteTone(g.opts.Tone), model.ToneNeutral)
	length := firstNonEmpty(model.WriteLength(opts.Length), model.WriteLength(g.opts.Length), model.LengthMedium)
	shared := firstNonEmpty(opts.Context, g.opts.SharedContext)
	out, err := g.complete(ctx, writePrompt(tone, length, shared), prompt, 0.7, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(out string) string {
	trimmed := strings.TrimSpace(out)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
