package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8085"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":8085" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Logging.Service != "presence-service" || cfg.Logging.Env != "dev" || cfg.Logging.Backend != "std" {
		t.Fatalf("logging defaults not applied: %+v", cfg.Logging)
	}
	if got := cfg.WS.PingEvery(); got != 15*time.Second {
		t.Fatalf("ping interval default = %v", got)
	}
	if got := cfg.Auth.Skew(); got != 30*time.Second {
		t.Fatalf("clock skew default = %v", got)
	}
}

func TestLoadConfigParsesDurations(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8085"
  allowedOrigin: "https://app.example.com"
ws:
  pingInterval: 5s
  messageRps: 2
logging:
  env: prod
  backend: zap
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.WS.PingEvery(); got != 5*time.Second {
		t.Fatalf("ping interval = %v, want 5s", got)
	}
	if cfg.WS.MessageBurst != 10 {
		t.Fatalf("burst default = %d, want 10 when rps is set", cfg.WS.MessageBurst)
	}
	if cfg.HTTP.AllowedOrigin != "https://app.example.com" {
		t.Fatalf("allowed origin = %q", cfg.HTTP.AllowedOrigin)
	}
}

func TestLoadConfigRequiresAddr(t *testing.T) {
	writeConfig(t, `
logging:
  env: dev
`)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("config without http.addr must be rejected")
	}
}

func TestLoadConfigBadDurationFallsBack(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8085"
ws:
  pingInterval: nonsense
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.WS.PingEvery(); got != 15*time.Second {
		t.Fatalf("bad duration must fall back to default, got %v", got)
	}
}
