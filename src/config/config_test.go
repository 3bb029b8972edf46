package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	t.Setenv("ONION_WATCH_PORT", "")
	path := writeConfig(t, "name: test\n")

	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Push.IntervalMs != DefaultPushIntervalMs {
		t.Errorf("Push.IntervalMs = %d", cfg.Push.IntervalMs)
	}
	if cfg.History.Capacity != MaxHistoryCapacity {
		t.Errorf("History.Capacity = %d", cfg.History.Capacity)
	}
	if cfg.Storage.DBType != "memory" {
		t.Errorf("Storage.DBType = %q", cfg.Storage.DBType)
	}
	if cfg.Client.URL != "ws://127.0.0.1:3001/ws" {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
	if cfg.Client.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.Client.MaxReconnectAttempts)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ONION_WATCH_PORT":       "4000",
		"ONION_WATCH_LOG_LEVEL":  "debug",
		"ONION_WATCH_REDIS_ADDR": "redis:6379",
		"ONION_WATCH_WS_URL":     "wss://example.org/ws",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Port != 4000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if !cfg.Relay.Enabled || cfg.Relay.RedisAddr != "redis:6379" {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if cfg.Client.URL != "wss://example.org/ws" {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"low port", func(c *Config) { c.Port = 80 }, "invalid server port"},
		{"history too large", func(c *Config) { c.History.Capacity = 1001 }, "history capacity"},
		{"push too fast", func(c *Config) { c.Push.IntervalMs = 10 }, "push interval"},
		{"sqlite without path", func(c *Config) { c.Storage.DBType = "sqlite"; c.Storage.DBPath = "" }, "database path"},
		{"unknown db", func(c *Config) { c.Storage.DBType = "mongo" }, "unsupported database type"},
		{"relay without addr", func(c *Config) { c.Relay.Enabled = true; c.Relay.RedisAddr = "" }, "redis address"},
		{"http client url", func(c *Config) { c.Client.URL = "http://x" }, "ws://"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Port = 3100
	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if loaded.Port != 3100 {
		t.Fatalf("Port = %d, want 3100", loaded.Port)
	}
}
