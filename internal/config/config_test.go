package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Policy.Version != "2.0.0" {
		t.Errorf("version = %q, want 2.0.0", cfg.Policy.Version)
	}
	if cfg.Policy.CLSMax != 0.25 {
		t.Errorf("cls_max = %v, want 0.25", cfg.Policy.CLSMax)
	}
	if cfg.Quota.Window != time.Minute {
		t.Errorf("window = %v, want 1m", cfg.Quota.Window)
	}
	if cfg.Quota.MaxBurst != 120 {
		t.Errorf("max_burst = %d, want 120", cfg.Quota.MaxBurst)
	}
	if !cfg.Policy.BlockPIIStrict {
		t.Error("block_pii_strict default should be true")
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sup.yaml")
	doc := `
server:
  addr: ":9090"
policy:
  version: "3.1.0"
  cls_max: 0.1
  gates:
    /act/compose: strict
    /review: "off"
quota:
  max_burst: 30
  window: 30s
proof:
  secret: "file-secret"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Policy.Version != "3.1.0" {
		t.Errorf("version = %q", cfg.Policy.Version)
	}
	if cfg.Policy.CLSMax != 0.1 {
		t.Errorf("cls_max = %v", cfg.Policy.CLSMax)
	}
	if cfg.Policy.Gates["/act/compose"] != "strict" {
		t.Errorf("gates = %v", cfg.Policy.Gates)
	}
	if cfg.Quota.MaxBurst != 30 {
		t.Errorf("max_burst = %d", cfg.Quota.MaxBurst)
	}
	if cfg.Quota.Window != 30*time.Second {
		t.Errorf("window = %v", cfg.Quota.Window)
	}
	if cfg.Proof.Secret != "file-secret" {
		t.Errorf("secret = %q", cfg.Proof.Secret)
	}
	// Untouched keys keep their defaults.
	if cfg.Quota.Decay != 5*time.Minute {
		t.Errorf("decay = %v, want 5m", cfg.Quota.Decay)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sup.yaml")
	if err := os.WriteFile(path, []byte("policy:\n  version: \"3.0.0\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("SUP_POLICY_VERSION", "9.9.9")
	t.Setenv("SUP_HMAC_SECRET", "env-secret")
	t.Setenv("SUP_MAX_RPM", "77")
	t.Setenv("SUP_WINDOW_MS", "5000")
	t.Setenv("SUP_BLOCK_PII_STRICT", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Policy.Version != "9.9.9" {
		t.Errorf("version = %q, want env override", cfg.Policy.Version)
	}
	if cfg.Proof.Secret != "env-secret" {
		t.Errorf("secret = %q, want env override", cfg.Proof.Secret)
	}
	if cfg.Quota.MaxBurst != 77 {
		t.Errorf("max_burst = %d, want 77", cfg.Quota.MaxBurst)
	}
	if cfg.Quota.Window != 5*time.Second {
		t.Errorf("window = %v, want 5s", cfg.Quota.Window)
	}
	if cfg.Policy.BlockPIIStrict {
		t.Error("block_pii_strict should be disabled by env")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sup.yaml")
	if err := os.WriteFile(path, []byte("policy: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed YAML loaded without error")
	}
}
