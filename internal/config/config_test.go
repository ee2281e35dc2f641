package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Bridge.TransientBackoff != 5*time.Second {
		t.Errorf("transient_backoff = %s, want 5s", cfg.Bridge.TransientBackoff)
	}
	if cfg.Bridge.StartupBackoff != 10*time.Second {
		t.Errorf("startup_backoff = %s, want 10s", cfg.Bridge.StartupBackoff)
	}
	if cfg.Bridge.PingInterval != 30*time.Second {
		t.Errorf("ping_interval = %s, want 30s", cfg.Bridge.PingInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9000
  auth_token: secret
  allowed_origins:
    - https://bridge.example.com
bridge:
  transient_backoff: 2s
  ping_interval: 10s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.AuthToken != "secret" {
		t.Errorf("auth_token = %q, want secret", cfg.Server.AuthToken)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://bridge.example.com" {
		t.Errorf("allowed_origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Bridge.TransientBackoff != 2*time.Second {
		t.Errorf("transient_backoff = %s, want 2s", cfg.Bridge.TransientBackoff)
	}
	// Untouched fields keep defaults.
	if cfg.Bridge.TerminalBackoff != time.Second {
		t.Errorf("terminal_backoff = %s, want 1s", cfg.Bridge.TerminalBackoff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not a map")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
