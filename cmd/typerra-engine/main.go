package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dev-razz/Typerra/internal/appdirs"
	"github.com/dev-razz/Typerra/internal/config"
	"github.com/dev-razz/Typerra/internal/engine"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	logFormat := flag.String("log-format", cfg.Log.Format, "stderr log format: text or json")
	logLevel := flag.String("log-level", cfg.Log.Level, "minimum log level")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	if cfg.Debug {
		level = min(level, slog.LevelDebug)
	}
	logger := logging.NewStream(os.Stderr, *logFormat, level).With("process", "engine")

	apiKey := cfg.APIKey()
	if apiKey == "" {
		secretsPath, keyPath := appdirs.SecretsPaths(cfg.DataDir)
		stored, err := secrets.NewStore(secretsPath, keyPath).APIKey()
		if err != nil {
			logger.Warn("engine.secrets_unreadable", "error", err.Error())
		}
		apiKey = stored
	}

	backend, err := engine.NewBackend(cfg, apiKey, logger)
	if err != nil {
		logger.Error("engine.init_failed", "error", err.Error())
		os.Exit(1)
	}
	runtime := engine.NewRuntime(cfg, backend, logger)
	logger.Info("engine.started", "backend", cfg.Backend.Kind, "languages", cfg.Models.Languages)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("engine.signal")
		runtime.Registry.DisposeAll()
		os.Exit(0)
	}()

	if err := runtime.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "engine stopped: %v\n", err)
		os.Exit(1)
	}
}
