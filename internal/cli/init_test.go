package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solvix/draftgate/internal/config"
)

func initInTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldPath, oldForce := configPath, initForce
	configPath = filepath.Join(dir, "config.yaml")
	initForce = false
	t.Cleanup(func() { configPath, initForce = oldPath, oldForce })

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return dir
}

func TestInitCreatesConfigTree(t *testing.T) {
	dir := initInTemp(t)

	for _, path := range []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "allowlist.txt"),
		filepath.Join(dir, "state", "parties", "ACME-0042.yaml.example"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}
	for _, d := range []string{"inbox", "outbox", "state"} {
		info, err := os.Stat(filepath.Join(dir, d))
		if err != nil || !info.IsDir() {
			t.Errorf("missing directory %s", d)
		}
	}
}

func TestInitConfigIsLoadable(t *testing.T) {
	dir := initInTemp(t)

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Daemon.Inbox != filepath.Join(dir, "inbox") {
		t.Errorf("inbox = %q", cfg.Daemon.Inbox)
	}
	if cfg.Maildrop.AllowlistFile != filepath.Join(dir, "allowlist.txt") {
		t.Errorf("allowlist = %q", cfg.Maildrop.AllowlistFile)
	}
	if !cfg.Guardrails.FailFast {
		t.Error("expected fail_fast default true")
	}
}

func TestInitDoesNotOverwrite(t *testing.T) {
	dir := initInTemp(t)

	allowlist := filepath.Join(dir, "allowlist.txt")
	if err := os.WriteFile(allowlist, []byte("@acmetrading.co.uk\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("second init failed: %v", err)
	}

	data, err := os.ReadFile(allowlist)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "@acmetrading.co.uk\n" {
		t.Error("init overwrote allowlist without --force")
	}
}

func TestInitForceOverwrites(t *testing.T) {
	dir := initInTemp(t)

	allowlist := filepath.Join(dir, "allowlist.txt")
	if err := os.WriteFile(allowlist, []byte("@acmetrading.co.uk\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	initForce = true
	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}

	data, err := os.ReadFile(allowlist)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Senders allowed") {
		t.Error("expected --force to restore the template")
	}
}
