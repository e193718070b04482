package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Address == "" {
		t.Fatal("default address missing")
	}
	if cfg.Marketplace != "https://www.amazon.com" {
		t.Fatalf("unexpected default marketplace: %s", cfg.Marketplace)
	}
	if cfg.Summarizer.Model != "" {
		t.Fatal("summarizer should be disabled by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: ":9100"
agent:
  url: "http://bridge:9800"
  timeout_seconds: 120
marketplace: "https://www.amazon.de"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9100" {
		t.Fatalf("address not loaded: %s", cfg.Server.Address)
	}
	if cfg.Agent.URL != "http://bridge:9800" || cfg.Agent.TimeoutSeconds != 120 {
		t.Fatalf("agent config not loaded: %+v", cfg.Agent)
	}
	if cfg.Marketplace != "https://www.amazon.de" {
		t.Fatalf("marketplace not loaded: %s", cfg.Marketplace)
	}
	// untouched fields keep their defaults
	if cfg.Server.ReadTimeout != 30 {
		t.Fatalf("defaults lost on partial file: %+v", cfg.Server)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BROWSERBOT_CDP_URL", "http://10.0.0.5:9222")
	t.Setenv("BROWSERBOT_MARKETPLACE", "https://www.amazon.co.uk")
	t.Setenv("AMAZON_LOGIN_EMAIL", "scout@example.com")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.CDPURL != "http://10.0.0.5:9222" {
		t.Fatalf("cdp url override missing: %s", cfg.Agent.CDPURL)
	}
	if cfg.Marketplace != "https://www.amazon.co.uk" {
		t.Fatalf("marketplace override missing: %s", cfg.Marketplace)
	}
	if cfg.Amazon.LoginEmail != "scout@example.com" {
		t.Fatalf("login email override missing: %s", cfg.Amazon.LoginEmail)
	}
}
