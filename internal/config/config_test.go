package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL || cfg.Keys.Add != "a" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != cfg {
		t.Fatalf("round trip changed config:\n%#v\n%#v", again, cfg)
	}
}

func TestLoadOrCreateKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "api_url = \"https://tasks.example.com\"\n\n[server]\ndue_soon_days = 7\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://tasks.example.com" || cfg.Server.DueSoonDays != 7 {
		t.Fatalf("overrides lost: %#v", cfg)
	}
	if cfg.Server.Addr != ":5000" || cfg.Keys.Quit != "q" || cfg.RequestTimeoutSeconds != 10 {
		t.Fatalf("defaults lost: %#v", cfg)
	}
}

func TestLoadOrCreateRejectsBadURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api_url = \"localhost:5000\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.toml")
	if got := ResolveConfigPath(); got != "/tmp/custom.toml" {
		t.Fatalf("env override ignored: %q", got)
	}
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ResolveConfigPath(); got != filepath.Join("/xdg", AppName, DefaultConfigFileName) {
		t.Fatalf("unexpected path: %q", got)
	}
}
