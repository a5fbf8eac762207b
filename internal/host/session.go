// Package host is the editor side of the engine bridge. It owns the engine
// process, exposes the model operations as Go calls, emits the heartbeat and
// applies the user's settings to the realtime pipeline.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dev-razz/Typerra/internal/errinfo"
	"github.com/dev-razz/Typerra/internal/liveness"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/protocol"
	"github.com/dev-razz/Typerra/internal/realtime"
	"github.com/dev-razz/Typerra/internal/rpc"
	"github.com/dev-razz/Typerra/internal/settings"
	"github.com/dev-razz/Typerra/internal/worker"
)

const teardownTimeout = 2 * time.Second

var ErrInvalidTone = errors.New("invalid tone")

type ProgressFunc func(protocol.ProgressParams)

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Session) {
		s.heartbeatInterval = d
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(s *Session) {
		s.progress = fn
	}
}

// WithWorkerOptions configures how the engine process is started.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(s *Session) {
		s.workerOpts = append(s.workerOpts, opts...)
	}
}

type Session struct {
	worker    *worker.Manager
	heartbeat *liveness.Heartbeat
	settings  *settings.Store
	logger    *slog.Logger

	heartbeatInterval time.Duration
	workerOpts        []worker.Option

	mu       sync.Mutex
	progress ProgressFunc
	pipeline *realtime.Pipeline
	surface  realtime.Surface
	realtime bool

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func New(store *settings.Store, opts ...Option) (*Session, error) {
	s := &Session{settings: store, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	current, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	s.realtime = current.Realtime()

	workerOpts := append([]worker.Option{
		worker.WithLogger(s.logger.With("component", "worker")),
	}, s.workerOpts...)
	workerOpts = append(workerOpts, worker.WithNotifyHandler(s.handleNotification))
	s.worker = worker.New(workerOpts...)
	s.heartbeat = liveness.NewHeartbeat(s.worker, s.heartbeatInterval, s.logger.With("component", "heartbeat"))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.heartbeat.Run(ctx)
	return s, nil
}

// SetPipeline installs the realtime pipeline driven by this session.
func (s *Session) SetPipeline(p *realtime.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = p
}

func (s *Session) SetProgress(fn ProgressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = fn
}

// Attach focuses surface. Realtime proofreading starts on it when enabled.
func (s *Session) Attach(surface realtime.Surface) {
	s.mu.Lock()
	s.surface = surface
	p, enabled := s.pipeline, s.realtime
	s.mu.Unlock()
	if p != nil && enabled {
		p.Attach(surface)
	}
}

func (s *Session) Detach() {
	s.mu.Lock()
	s.surface = nil
	p := s.pipeline
	s.mu.Unlock()
	if p != nil {
		p.Detach()
	}
}

// SetVisible reports whether the editor has focus.
func (s *Session) SetVisible(visible bool) {
	s.heartbeat.SetVisible(visible)
}

func (s *Session) Realtime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.realtime
}

// SetRealtime persists the realtime flag. Turning it off detaches the
// pipeline and releases every engine.
func (s *Session) SetRealtime(ctx context.Context, enabled bool) error {
	if _, err := s.settings.Update(func(st *settings.Settings) { st.SetRealtime(enabled) }); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.mu.Lock()
	s.realtime = enabled
	p, surface := s.pipeline, s.surface
	s.mu.Unlock()

	if !enabled {
		if p != nil {
			p.Detach()
		}
		s.disposeBestEffort(ctx)
		return nil
	}
	if p != nil && surface != nil {
		p.Attach(surface)
	}
	return nil
}

func (s *Session) DefaultTone() string {
	current, err := s.settings.Load()
	if err != nil {
		return model.ToneNeutral
	}
	return current.DefaultTone
}

func (s *Session) SetDefaultTone(tone string) error {
	canonical := model.WriteTone(tone)
	if canonical == "" {
		return fmt.Errorf("%w %q: expected one of %s", ErrInvalidTone, tone, strings.Join(model.WriteTones(), ", "))
	}
	if _, err := s.settings.Update(func(st *settings.Settings) { st.DefaultTone = canonical }); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Session) Proofread(ctx context.Context, text string) (normalize.Payload, error) {
	var result protocol.ProofreadResult
	if err := s.call(ctx, protocol.MethodProofread, protocol.ProofreadParams{Text: text}, &result); err != nil {
		return normalize.Payload{}, err
	}
	return result, nil
}

// Write drafts text from prompt. An empty tone uses the saved default.
func (s *Session) Write(ctx context.Context, prompt, tone, length string) (string, error) {
	if strings.TrimSpace(tone) == "" {
		tone = s.DefaultTone()
	}
	var result protocol.TextResult
	params := protocol.WriteParams{Prompt: prompt, Tone: tone, Length: length}
	if err := s.call(ctx, protocol.MethodWrite, params, &result); err != nil {
		return "", err
	}
	return result.Text, nil
}

func (s *Session) Rewrite(ctx context.Context, text, tone, length, shared string) (string, error) {
	var result protocol.TextResult
	params := protocol.RewriteParams{Text: text, Tone: tone, Length: length, Context: shared}
	if err := s.call(ctx, protocol.MethodRewrite, params, &result); err != nil {
		return "", err
	}
	return result.Text, nil
}

func (s *Session) Ensure(ctx context.Context, kind model.Kind) error {
	var result protocol.OKResult
	return s.call(ctx, protocol.MethodEnsure, protocol.EnsureParams{Model: string(kind)}, &result)
}

func (s *Session) Warmup(ctx context.Context) error {
	var result protocol.OKResult
	return s.call(ctx, protocol.MethodWarmup, struct{}{}, &result)
}

func (s *Session) Dispose(ctx context.Context) error {
	var result protocol.OKResult
	return s.call(ctx, protocol.MethodDispose, struct{}{}, &result)
}

func (s *Session) DisposeNonCorrector(ctx context.Context) error {
	var result protocol.OKResult
	return s.call(ctx, protocol.MethodDisposeNonCorrector, struct{}{}, &result)
}

func (s *Session) Status(ctx context.Context) (protocol.StatusResult, error) {
	var result protocol.StatusResult
	err := s.call(ctx, protocol.MethodStatus, struct{}{}, &result)
	return result, err
}

func (s *Session) EngineRunning() bool {
	return s.worker.Running()
}

// Beat sends one heartbeat immediately.
func (s *Session) Beat() bool {
	return s.heartbeat.Beat()
}

// Close disposes every engine once, best-effort, and stops the engine
// process.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		p := s.pipeline
		s.mu.Unlock()
		if p != nil {
			p.Close()
		}
		if s.worker.Running() {
			ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
			s.disposeBestEffort(ctx)
			cancel()
		}
		err = s.worker.Close()
	})
	return err
}

func (s *Session) call(ctx context.Context, method string, params any, result any) error {
	err := s.worker.Call(ctx, method, params, result)
	if err != nil && !rpc.IsCancellation(err) {
		s.logger.Debug("host.call_failed", "method", method, "error", err.Error())
	}
	return err
}

// disposeBestEffort never starts the engine and never reports failure.
func (s *Session) disposeBestEffort(ctx context.Context) {
	if !s.worker.Running() {
		return
	}
	if err := s.Dispose(ctx); err != nil {
		s.logger.Debug("host.dispose_failed", "error", err.Error())
	}
}

func (s *Session) handleNotification(method string, params json.RawMessage) {
	if method != protocol.NotifyModelProgress {
		s.logger.Debug("host.unknown_notification", "method", method)
		return
	}
	var progress protocol.ProgressParams
	if err := json.Unmarshal(params, &progress); err != nil {
		s.logger.Warn("host.bad_progress", "error", err.Error())
		return
	}
	s.mu.Lock()
	fn := s.progress
	s.mu.Unlock()
	if fn != nil {
		fn(progress)
	}
}

// ErrorInfo extracts the structured engine error carried by err, if any.
func ErrorInfo(err error) *errinfo.ErrorInfo {
	var remote *rpc.RemoteError
	if !errors.As(err, &remote) || len(remote.Data) == 0 {
		return nil
	}
	var info errinfo.ErrorInfo
	if json.Unmarshal(remote.Data, &info) != nil || info.ErrorCode == "" {
		return nil
	}
	return &info
}
