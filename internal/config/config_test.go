package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dev-razz/Typerra/internal/model"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TYPERRA_DATA_DIR", dir)
	t.Setenv("TYPERRA_CONFIG", "")
	t.Setenv("TYPERRA_ENV_PATH", filepath.Join(dir, "none.env"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != dir {
		t.Fatalf("expected data dir %q, got %q", dir, cfg.DataDir)
	}
	if cfg.Backend.Kind != BackendFake {
		t.Fatalf("expected fake backend by default, got %q", cfg.Backend.Kind)
	}
	if cfg.Bridge.Timeout != 60*time.Second {
		t.Fatalf("expected 60s bridge timeout, got %s", cfg.Bridge.Timeout)
	}
	if cfg.Realtime.Debounce != 350*time.Millisecond || cfg.Realtime.MinInterval != 800*time.Millisecond || cfg.Realtime.MaxChars != 10000 {
		t.Fatalf("unexpected realtime defaults: %+v", cfg.Realtime)
	}
	live := cfg.LivenessConfig()
	if live.Interval != 15*time.Second || live.ActivityVisible != 10*time.Minute || live.ActivityHidden != 3*time.Minute || live.PingMiss != time.Minute {
		t.Fatalf("unexpected liveness defaults: %+v", live)
	}
	if cfg.ModelNames()[model.KindCorrector] == "" {
		t.Fatalf("expected a default corrector model")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	content := `
[backend]
kind = "openaicompat"
base_url = "http://localhost:8080"
pull_missing = true

[models]
corrector = "tiny-fixer"
languages = ["en", "fr"]

[realtime]
debounce = "200ms"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TYPERRA_CONFIG", path)
	t.Setenv("TYPERRA_BRIDGE_TIMEOUT", "5s")
	t.Setenv("TYPERRA_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Kind != BackendOpenAICompat || cfg.Backend.BaseURL != "http://localhost:8080" || !cfg.Backend.PullMissing {
		t.Fatalf("unexpected backend: %+v", cfg.Backend)
	}
	if cfg.Models.Corrector != "tiny-fixer" || len(cfg.Models.Languages) != 2 {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
	if cfg.Realtime.Debounce != 200*time.Millisecond {
		t.Fatalf("expected file debounce, got %s", cfg.Realtime.Debounce)
	}
	if cfg.Bridge.Timeout != 5*time.Second {
		t.Fatalf("expected env bridge timeout, got %s", cfg.Bridge.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected lowercased level, got %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("TYPERRA_BACKEND_KIND", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend kind to fail validation")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TYPERRA_API_KEY", " sk-env ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey() != "sk-env" {
		t.Fatalf("expected key from env, got %q", cfg.APIKey())
	}
}
