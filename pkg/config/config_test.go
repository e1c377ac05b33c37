package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func chdirTemp(t *testing.T, yaml string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "default.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		viper.Reset()
	})
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t, `
kura:
  block_store_path: ./blocks
torii:
  url: http://127.0.0.1:8080
`)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kura.InitMode != "fast" {
		t.Fatalf("InitMode = %q, want default fast", cfg.Kura.InitMode)
	}
	if cfg.Queue.Capacity != 100 {
		t.Fatalf("Queue.Capacity = %d, want default 100", cfg.Queue.Capacity)
	}
	if cfg.Torii.URL != "http://127.0.0.1:8080" {
		t.Fatalf("Torii.URL = %q", cfg.Torii.URL)
	}
}

func TestLoadRejectsInvalidInitMode(t *testing.T) {
	chdirTemp(t, `
kura:
  init_mode: bogus
`)
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid kura.init_mode")
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	chdirTemp(t, `
kura:
  init_mode: fast
`)
	t.Setenv("KURA_INIT_MODE", "strict")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kura.InitMode != "strict" {
		t.Fatalf("InitMode = %q, want environment override strict", cfg.Kura.InitMode)
	}
}
