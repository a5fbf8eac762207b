package appdirs

import (
	"path/filepath"
	"testing"
)

func TestDataDirOverride(t *testing.T) {
	t.Setenv("TYPERRA_DATA_DIR", "/tmp/typerra-test")
	path, err := DataDir()
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if path != "/tmp/typerra-test" {
		t.Fatalf("expected override path, got %s", path)
	}

	if logs := LogsDir(path); logs != filepath.Join("/tmp/typerra-test", "logs") {
		t.Fatalf("expected logs dir, got %s", logs)
	}
	secretsPath, keyPath := SecretsPaths(path)
	if filepath.Base(secretsPath) != "secrets.enc" || filepath.Base(keyPath) != "master.key" {
		t.Fatalf("unexpected secrets paths %s %s", secretsPath, keyPath)
	}
	if filepath.Base(SettingsPath(path)) != "settings.json" {
		t.Fatalf("unexpected settings path")
	}
}
