package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dev-razz/Typerra/internal/model"
)

func TestSettingsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.SchemaVersion != schemaVersion {
		t.Fatalf("expected schema version %d, got %d", schemaVersion, settings.SchemaVersion)
	}
	if !settings.Realtime() {
		t.Fatalf("expected realtime proofreading on by default")
	}
	if settings.DefaultTone != model.ToneNeutral {
		t.Fatalf("expected neutral default tone, got %q", settings.DefaultTone)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "nested", "settings.json"))
	updated, err := store.Update(func(s *Settings) {
		s.SetRealtime(false)
		s.DefaultTone = "Formal"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DefaultTone != model.ToneFormal {
		t.Fatalf("expected tone canonicalised on save, got %q", updated.DefaultTone)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Realtime() {
		t.Fatalf("expected realtime disabled after reload")
	}
	if loaded.DefaultTone != model.ToneFormal {
		t.Fatalf("expected formal tone, got %q", loaded.DefaultTone)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 settings file, got %v", info.Mode().Perm())
	}
}

func TestSettingsBackfillsUnknownTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"default_tone":"sarcastic"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	settings, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.DefaultTone != model.ToneNeutral || !settings.Realtime() || settings.SchemaVersion != schemaVersion {
		t.Fatalf("expected backfilled settings, got %+v", settings)
	}
}
