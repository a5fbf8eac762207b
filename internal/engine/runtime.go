package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dev-razz/Typerra/internal/backend/fake"
	"github.com/dev-razz/Typerra/internal/backend/openaicompat"
	"github.com/dev-razz/Typerra/internal/config"
	"github.com/dev-razz/Typerra/internal/liveness"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/registry"
	"github.com/dev-razz/Typerra/internal/rpc"
)

// Runtime is a fully assembled engine side: backend, registry, liveness
// evaluator and request handlers.
type Runtime struct {
	Engine    *Engine
	Registry  *registry.Registry
	Evaluator *liveness.Evaluator
	logger    *slog.Logger
}

func NewBackend(cfg config.Config, apiKey string, logger *slog.Logger) (model.Backend, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	switch cfg.Backend.Kind {
	case config.BackendFake, "":
		return fake.New(), nil
	case config.BackendOpenAICompat:
		backend, err := openaicompat.New(openaicompat.Config{
			BaseURL:     cfg.Backend.BaseURL,
			APIKey:      apiKey,
			Models:      cfg.ModelNames(),
			PullMissing: cfg.Backend.PullMissing,
			Timeout:     cfg.Backend.Timeout,
		}, openaicompat.WithLogger(logger.With("component", "openaicompat")))
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

func NewRuntime(cfg config.Config, backend model.Backend, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = logging.Nop()
	}
	reg := registry.New(backend, registry.WithLogger(logger.With("component", "registry")))
	evaluator := liveness.NewEvaluator(reg, cfg.LivenessConfig(), liveness.WithLogger(logger.With("component", "liveness")))
	eng := New(reg, evaluator,
		WithLogger(logger.With("component", "engine")),
		WithDefaults(model.Options{Languages: cfg.Models.Languages}),
	)
	return &Runtime{Engine: eng, Registry: reg, Evaluator: evaluator, logger: logger}
}

// Serve answers bridge requests on r/w until r reaches EOF, then disposes
// every engine. ctx bounds the handlers and the liveness loop.
func (rt *Runtime) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := rpc.NewServer(r, w, rt.logger.With("component", "rpc"))
	rt.Engine.Register(server)
	go rt.Evaluator.Run(ctx)

	err := server.Serve(ctx)
	rt.logger.Info("engine.shutdown")
	rt.Registry.DisposeAll()
	server.Wait()
	return err
}
