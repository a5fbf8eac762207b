package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dev-razz/Typerra/internal/normalize"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TYPERRA_DATA_DIR", dir)
	t.Setenv("TYPERRA_CONFIG", "")
	t.Setenv("TYPERRA_ENV_PATH", filepath.Join(dir, "none.env"))
	t.Setenv("TYPERRA_BACKEND_KIND", "fake")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestProofreadInProcess(t *testing.T) {
	isolate(t)
	out, err := run(t, "Teh cat sat\n", "--in-process", "proofread", "-")
	if err != nil {
		t.Fatalf("proofread: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "The cat sat" {
		t.Fatalf("unexpected corrected line %q", lines[0])
	}
	if len(lines) != 2 || !strings.Contains(lines[1], `0-3 "Teh" -> "The"`) {
		t.Fatalf("unexpected range output %q", out)
	}
}

func TestProofreadJSON(t *testing.T) {
	isolate(t)
	out, err := run(t, "teh end", "--in-process", "proofread", "--json", "-")
	if err != nil {
		t.Fatalf("proofread: %v", err)
	}
	var payload normalize.Payload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if payload.Corrected != "the end" || len(payload.Ranges) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestWriteAndRewriteInProcess(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "--in-process", "write", "--length", "short", "garden", "update")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "garden update") {
		t.Fatalf("expected the prompt topic in the draft, got %q", out)
	}
	out, err = run(t, "hello there", "--in-process", "rewrite", "--tone", "more-formal", "-")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatalf("expected rewritten text")
	}
	out, err = run(t, "hello there\nsee you\n", "--in-process", "rewrite", "--length", "longer", "--diff", "-")
	if err != nil {
		t.Fatalf("rewrite --diff: %v", err)
	}
	if !strings.Contains(out, "- see you") || !strings.Contains(out, "+ ") {
		t.Fatalf("expected a line diff, got %q", out)
	}
}

func TestSettingsCommands(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "settings", "get")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, "realtime: on") || !strings.Contains(out, "tone: neutral") {
		t.Fatalf("unexpected defaults %q", out)
	}
	if _, err := run(t, "", "--in-process", "settings", "set", "realtime", "off"); err != nil {
		t.Fatalf("set realtime: %v", err)
	}
	if _, err := run(t, "", "settings", "set", "tone", "casual"); err != nil {
		t.Fatalf("set tone: %v", err)
	}
	if _, err := run(t, "", "settings", "set", "tone", "grumpy"); err == nil {
		t.Fatalf("expected invalid tone to fail")
	}
	out, _ = run(t, "", "settings")
	if !strings.Contains(out, "realtime: off") || !strings.Contains(out, "tone: casual") {
		t.Fatalf("settings not persisted: %q", out)
	}
}

func TestKeyCommands(t *testing.T) {
	dir := isolate(t)
	if _, err := run(t, "sk-from-stdin\n", "key", "set", "-"); err != nil {
		t.Fatalf("key set: %v", err)
	}
	g := &globals{}
	g.cfg.DataDir = dir
	key, err := g.secretsStore().APIKey()
	if err != nil || key != "sk-from-stdin" {
		t.Fatalf("expected stored key, got %q err=%v", key, err)
	}
	if _, err := run(t, "", "key", "clear"); err != nil {
		t.Fatalf("key clear: %v", err)
	}
	if key, _ := g.secretsStore().APIKey(); key != "" {
		t.Fatalf("expected cleared key")
	}
	if _, err := run(t, "", "key", "set", "   "); err == nil {
		t.Fatalf("empty key must be rejected")
	}
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)
	if _, err := run(t, "", "frobnicate"); err == nil {
		t.Fatalf("expected an error for an unknown command")
	}
}
