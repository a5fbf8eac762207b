// Package engine is the engine process's request surface: it resolves
// engines through the registry, records liveness activity, and turns engine
// output into wire payloads.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dev-razz/Typerra/internal/errinfo"
	"github.com/dev-razz/Typerra/internal/liveness"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/protocol"
)

type Notifier func(method string, params any)

// Models is the registry as seen by the request handlers.
type Models interface {
	Acquire(ctx context.Context, kind model.Kind, opts model.Options) (model.Engine, error)
	DisposeAll()
	DisposeExceptCorrector()
	Loaded() []model.Kind
}

type Activity interface {
	Touch()
	Ping(visible bool)
	Snapshot() liveness.Snapshot
}

type Engine struct {
	models     Models
	activity   Activity
	normalizer *normalize.Normalizer
	defaults   model.Options
	notify     Notifier
	logger     *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaults sets the creation options every engine starts with.
func WithDefaults(opts model.Options) Option {
	return func(e *Engine) {
		e.defaults = opts
	}
}

func New(models Models, activity Activity, opts ...Option) *Engine {
	e := &Engine{models: models, activity: activity, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	e.defaults.Languages = model.Languages(e.defaults.Languages)
	e.normalizer = normalize.New(e.logger.With("component", "normalize"))
	return e
}

func (e *Engine) SetNotifier(notify Notifier) {
	e.notify = notify
}

func (e *Engine) options() model.Options {
	opts := e.defaults
	opts.Progress = func(kind model.Kind, completed, total int64) {
		if e.notify == nil {
			return
		}
		e.notify(protocol.NotifyModelProgress, protocol.ProgressParams{
			Model:     string(kind),
			Status:    "downloading",
			Completed: completed,
			Total:     total,
		})
	}
	return opts
}

func (e *Engine) acquire(ctx context.Context, phase string, kind model.Kind) (model.Engine, *errinfo.ErrorInfo) {
	e.activity.Touch()
	eng, err := e.models.Acquire(ctx, kind, e.options())
	if err != nil {
		e.logFailure(phase, kind, err)
		return nil, acquireError(phase, kind, err)
	}
	return eng, nil
}

func (e *Engine) logFailure(phase string, kind model.Kind, err error) {
	if normalize.IsCancellation(err) {
		e.logger.Debug("engine.call_cancelled", "phase", phase, "model", kind, "error", err.Error())
		return
	}
	e.logger.Warn("engine.call_failed", "phase", phase, "model", kind, "error", err.Error())
}

func decode(phase string, params json.RawMessage, target any) *errinfo.ErrorInfo {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return errinfo.ValidationFailed(phase, "invalid params: "+err.Error())
	}
	return nil
}

func (e *Engine) Ping(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p protocol.PingParams
	p.Visible = true
	if errInfo := decode(protocol.MethodPing, params, &p); errInfo != nil {
		return nil, errInfo
	}
	e.activity.Ping(p.Visible)
	return nil, nil
}

func (e *Engine) Status(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	snap := e.activity.Snapshot()
	loaded := []string{}
	for _, kind := range e.models.Loaded() {
		loaded = append(loaded, string(kind))
	}
	return protocol.StatusResult{
		Loaded:         loaded,
		State:          string(snap.State),
		LastActivityAt: snap.LastActivityAt,
		LastPingAt:     snap.LastPingAt,
		Visible:        snap.Visible,
	}, nil
}

func (e *Engine) Warmup(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	if _, errInfo := e.acquire(ctx, errinfo.PhaseWarmup, model.KindCorrector); errInfo != nil {
		return nil, errInfo
	}
	return protocol.OKResult{OK: true, Model: string(model.KindCorrector)}, nil
}

func (e *Engine) Ensure(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p protocol.EnsureParams
	if errInfo := decode(errinfo.PhaseEnsure, params, &p); errInfo != nil {
		return nil, errInfo
	}
	kind, ok := model.ParseKind(p.Model)
	if !ok {
		return nil, errinfo.ValidationFailed(errinfo.PhaseEnsure, "unknown model "+strings.TrimSpace(p.Model))
	}
	if _, errInfo := e.acquire(ctx, errinfo.PhaseEnsure, kind); errInfo != nil {
		return nil, errInfo
	}
	return protocol.OKResult{OK: true, Model: string(kind)}, nil
}

func (e *Engine) Dispose(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	e.models.DisposeAll()
	return protocol.OKResult{OK: true}, nil
}

func (e *Engine) DisposeNonCorrector(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	e.models.DisposeExceptCorrector()
	return protocol.OKResult{OK: true}, nil
}

func (e *Engine) Write(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p protocol.WriteParams
	if errInfo := decode(errinfo.PhaseWrite, params, &p); errInfo != nil {
		return nil, errInfo
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseWrite, "prompt is required")
	}
	eng, errInfo := e.acquire(ctx, errinfo.PhaseWrite, model.KindGenerator)
	if errInfo != nil {
		return nil, errInfo
	}
	generator, ok := eng.(model.Generator)
	if !ok {
		return nil, errinfo.Internal(errinfo.PhaseWrite, "generator engine has the wrong type")
	}
	text, err := generator.Write(ctx, p.Prompt, model.WriteOptions{
		Tone:   model.WriteTone(p.Tone),
		Length: model.WriteLength(p.Length),
	})
	if err != nil {
		e.logFailure(errinfo.PhaseWrite, model.KindGenerator, err)
		return nil, callError(errinfo.PhaseWrite, model.KindGenerator, err)
	}
	return protocol.TextResult{Text: text}, nil
}

func (e *Engine) Rewrite(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p protocol.RewriteParams
	if errInfo := decode(errinfo.PhaseRewrite, params, &p); errInfo != nil {
		return nil, errInfo
	}
	if strings.TrimSpace(p.Text) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseRewrite, "text is required")
	}
	eng, errInfo := e.acquire(ctx, errinfo.PhaseRewrite, model.KindRewriter)
	if errInfo != nil {
		return nil, errInfo
	}
	rewriter, ok := eng.(model.Rewriter)
	if !ok {
		return nil, errinfo.Internal(errinfo.PhaseRewrite, "rewriter engine has the wrong type")
	}
	text, err := rewriter.Rewrite(ctx, p.Text, model.RewriteOptions{
		Tone:    model.RewriteTone(p.Tone),
		Length:  model.RewriteLength(p.Length),
		Context: p.Context,
	})
	if err != nil {
		e.logFailure(errinfo.PhaseRewrite, model.KindRewriter, err)
		return nil, callError(errinfo.PhaseRewrite, model.KindRewriter, err)
	}
	return protocol.TextResult{Text: text}, nil
}

// Proofread answers cancellations with a cancelled payload instead of an
// error; the host treats that as a superseded call.
func (e *Engine) Proofread(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p protocol.ProofreadParams
	if errInfo := decode(errinfo.PhaseProofread, params, &p); errInfo != nil {
		return nil, errInfo
	}
	if p.Text == "" {
		return normalize.Empty(""), nil
	}
	e.activity.Touch()
	eng, err := e.models.Acquire(ctx, model.KindCorrector, e.options())
	if err != nil {
		e.logFailure(errinfo.PhaseProofread, model.KindCorrector, err)
		if normalize.IsCancellation(err) {
			return normalize.Cancelled(p.Text), nil
		}
		return nil, acquireError(errinfo.PhaseProofread, model.KindCorrector, err)
	}
	corrector, ok := eng.(model.Corrector)
	if !ok {
		return nil, errinfo.Internal(errinfo.PhaseProofread, "corrector engine has the wrong type")
	}
	raw, err := corrector.Proofread(ctx, p.Text)
	if err != nil {
		e.logFailure(errinfo.PhaseProofread, model.KindCorrector, err)
		if normalize.IsCancellation(err) {
			return normalize.Cancelled(p.Text), nil
		}
		return nil, callError(errinfo.PhaseProofread, model.KindCorrector, err)
	}
	payload := e.normalizer.Normalize(p.Text, raw)
	e.logger.Debug("engine.proofread", "text", logging.Preview(p.Text), "ranges", len(payload.Ranges))
	return payload, nil
}
