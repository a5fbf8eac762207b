// Package registry owns the engine instances of the engine process. It
// creates each kind lazily, coalesces concurrent creations, and tears engines
// down when the host or the liveness evaluator asks for it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/model"
)

// ErrDisposed fails creations that a disposal superseded.
var ErrDisposed = errors.New("engine creation cancelled by disposal")

type UnavailableError struct {
	Kind model.Kind
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s model is unavailable on this device", e.Kind)
}

type flight struct {
	done   chan struct{}
	engine model.Engine
	err    error
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type Registry struct {
	backend model.Backend
	logger  *slog.Logger

	mu        sync.Mutex
	cache     map[model.Kind]model.Engine
	inflight  map[model.Kind]*flight
	epoch     map[model.Kind]uint64
	genCtx    context.Context
	cancelGen context.CancelFunc
}

func New(backend model.Backend, opts ...Option) *Registry {
	r := &Registry{
		backend:  backend,
		logger:   logging.Nop(),
		cache:    make(map[model.Kind]model.Engine),
		inflight: make(map[model.Kind]*flight),
		epoch:    make(map[model.Kind]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.genCtx, r.cancelGen = context.WithCancel(context.Background())
	return r
}

// Acquire returns the cached engine for kind, joins an in-flight creation, or
// starts one. Creation runs detached from ctx: a caller that gives up only
// stops waiting.
func (r *Registry) Acquire(ctx context.Context, kind model.Kind, opts model.Options) (model.Engine, error) {
	r.mu.Lock()
	if eng, ok := r.cache[kind]; ok {
		r.mu.Unlock()
		return eng, nil
	}
	f, ok := r.inflight[kind]
	if !ok {
		f = &flight{done: make(chan struct{})}
		r.inflight[kind] = f
		go r.create(r.genCtx, r.epoch[kind], kind, opts, f)
	}
	r.mu.Unlock()

	select {
	case <-f.done:
		return f.engine, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) create(ctx context.Context, epoch uint64, kind model.Kind, opts model.Options, f *flight) {
	eng, err := r.instantiate(ctx, kind, opts)

	r.mu.Lock()
	if r.inflight[kind] == f {
		delete(r.inflight, kind)
	}
	superseded := r.epoch[kind] != epoch
	if err == nil && !superseded {
		r.cache[kind] = eng
	}
	r.mu.Unlock()

	switch {
	case superseded && err == nil:
		r.logger.Info("registry.create_superseded", "model", kind)
		r.destroy(kind, eng)
		eng, err = nil, ErrDisposed
	case superseded:
		eng, err = nil, ErrDisposed
	case err != nil:
		r.logger.Warn("registry.create_failed", "model", kind, "error", err.Error())
	default:
		r.logger.Info("registry.created", "model", kind, "id", eng.ID())
	}
	f.engine, f.err = eng, err
	close(f.done)
}

func (r *Registry) instantiate(ctx context.Context, kind model.Kind, opts model.Options) (model.Engine, error) {
	availability, err := r.backend.Availability(ctx, kind, opts)
	if err != nil {
		return nil, fmt.Errorf("probe %s availability: %w", kind, err)
	}
	switch availability {
	case model.Available:
	case model.Downloadable:
		r.logger.Info("registry.downloading", "model", kind)
	default:
		return nil, &UnavailableError{Kind: kind}
	}
	eng, err := r.backend.Create(ctx, kind, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrDisposed
		}
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	if eng == nil {
		return nil, fmt.Errorf("create %s: backend returned no engine", kind)
	}
	return eng, nil
}

// DisposeAll destroys every cached engine and supersedes in-flight creations.
// Failures are logged, never returned.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	r.cancelGen()
	r.genCtx, r.cancelGen = context.WithCancel(context.Background())
	engines := r.evictLocked(model.Kinds())
	r.mu.Unlock()

	for _, kind := range model.Kinds() {
		if eng, ok := engines[kind]; ok {
			r.destroy(kind, eng)
		}
	}
	r.logger.Debug("registry.disposed_all", "destroyed", len(engines))
}

// DisposeExceptCorrector destroys the Rewriter and Generator only.
func (r *Registry) DisposeExceptCorrector() {
	kinds := []model.Kind{model.KindRewriter, model.KindGenerator}
	r.mu.Lock()
	engines := r.evictLocked(kinds)
	r.mu.Unlock()

	for _, kind := range kinds {
		if eng, ok := engines[kind]; ok {
			r.destroy(kind, eng)
		}
	}
	r.logger.Debug("registry.disposed_non_corrector", "destroyed", len(engines))
}

func (r *Registry) evictLocked(kinds []model.Kind) map[model.Kind]model.Engine {
	engines := make(map[model.Kind]model.Engine, len(kinds))
	for _, kind := range kinds {
		if eng, ok := r.cache[kind]; ok {
			engines[kind] = eng
			delete(r.cache, kind)
		}
		delete(r.inflight, kind)
		r.epoch[kind]++
	}
	return engines
}

func (r *Registry) destroy(kind model.Kind, eng model.Engine) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("registry.destroy_panicked", "model", kind, "panic", fmt.Sprint(rec))
		}
	}()
	if err := eng.Destroy(); err != nil {
		r.logger.Warn("registry.destroy_failed", "model", kind, "error", err.Error())
	}
}

// Loaded lists the cached kinds in disposal order.
func (r *Registry) Loaded() []model.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	loaded := make([]model.Kind, 0, len(r.cache))
	for _, kind := range model.Kinds() {
		if _, ok := r.cache[kind]; ok {
			loaded = append(loaded, kind)
		}
	}
	return loaded
}
