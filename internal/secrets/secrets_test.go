package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	return NewStore(filepath.Join(root, "secrets.enc"), filepath.Join(root, "master.key")), root
}

func TestSecretsRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	key, err := store.APIKey()
	if err != nil || key != "" {
		t.Fatalf("expected empty key before first save, got %q err=%v", key, err)
	}
	if err := store.SetAPIKey("  sk-test \n"); err != nil {
		t.Fatalf("set key: %v", err)
	}
	key, err = store.APIKey()
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key != "sk-test" {
		t.Fatalf("expected trimmed key roundtrip, got %q", key)
	}
	if err := store.ClearAPIKey(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if key, _ := store.APIKey(); key != "" {
		t.Fatalf("expected cleared key, got %q", key)
	}
}

func TestSecretsAreEncryptedOnDisk(t *testing.T) {
	store, root := newTestStore(t)
	if err := store.SetAPIKey("sk-plaintext-marker"); err != nil {
		t.Fatalf("set key: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "secrets.enc"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(data, []byte("sk-plaintext-marker")) {
		t.Fatalf("key must not be stored in plaintext")
	}
	info, err := os.Stat(filepath.Join(root, "master.key"))
	if err != nil {
		t.Fatalf("stat master key: %v", err)
	}
	if info.Size() != masterKeySize {
		t.Fatalf("expected %d byte master key, got %d", masterKeySize, info.Size())
	}
}

func TestSecretsRejectForeignMasterKey(t *testing.T) {
	store, root := newTestStore(t)
	if err := store.SetAPIKey("sk-test"); err != nil {
		t.Fatalf("set key: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "master.key"), bytes.Repeat([]byte{7}, masterKeySize), 0o600); err != nil {
		t.Fatalf("rewrite key: %v", err)
	}
	if _, err := store.APIKey(); err == nil {
		t.Fatalf("expected decrypt failure with a different master key")
	}
	if err := os.WriteFile(filepath.Join(root, "master.key"), []byte("short"), 0o600); err != nil {
		t.Fatalf("rewrite key: %v", err)
	}
	if _, err := store.APIKey(); !errors.Is(err, ErrInvalidMasterKey) {
		t.Fatalf("expected ErrInvalidMasterKey, got %v", err)
	}
}
