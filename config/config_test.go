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
  addr: ":8080"
grpc:
  addr: ":9090"
postgres:
  dsn: "postgres://localhost:5432/realtime"
auth:
  jwtSecret: "s3cret"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Service != "realtime-service" || cfg.Logging.Env != "dev" || cfg.Logging.Backend != "std" {
		t.Fatalf("logging defaults not applied: %#v", cfg.Logging)
	}
	if cfg.WS.PingInterval != 15*time.Second {
		t.Fatalf("pingInterval default: %v", cfg.WS.PingInterval)
	}
	if cfg.WS.SendBuffer != 256 || cfg.WS.HistoryLimit != 50 {
		t.Fatalf("ws defaults: %#v", cfg.WS)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("redis must default to empty, got %q", cfg.Redis.Addr)
	}
}

func TestLoadConfigRequired(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing http", "grpc:\n  addr: \":9090\"\npostgres:\n  dsn: \"x\"\nauth:\n  jwtSecret: \"s\"\n"},
		{"missing grpc", "http:\n  addr: \":8080\"\npostgres:\n  dsn: \"x\"\nauth:\n  jwtSecret: \"s\"\n"},
		{"missing dsn", "http:\n  addr: \":8080\"\ngrpc:\n  addr: \":9090\"\nauth:\n  jwtSecret: \"s\"\n"},
		{"missing secret", "http:\n  addr: \":8080\"\ngrpc:\n  addr: \":9090\"\npostgres:\n  dsn: \"x\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, tc.body)
			if _, err := LoadConfig(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing file")
	}
}
