package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MIRADOR_ROI_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverMemory || cfg.Server.Address != ":50051" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	window, err := cfg.Window()
	if err != nil || window != 30*24*time.Hour {
		t.Fatalf("expected 30 day window, got %v %v", window, err)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`server:
  address: ":6000"
  gracefulTimeout: 3s
store:
  driver: http
  http:
    baseURL: http://warehouse:8090
analysis:
  defaultWindow: 2w
cache:
  ttl: 30s
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MIRADOR_ROI_SERVER_ADDRESS", ":7000")
	t.Setenv("MIRADOR_ROI_CACHE_ENABLED", "true")
	t.Setenv("MIRADOR_ROI_CACHE_ADDR", "localhost:6379")
	t.Setenv("MIRADOR_ROI_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":7000" {
		t.Fatalf("expected env override, got %s", cfg.Server.Address)
	}
	if cfg.Server.GracefulTimeout != 3*time.Second {
		t.Fatalf("expected graceful timeout from file, got %v", cfg.Server.GracefulTimeout)
	}
	if cfg.Store.HTTP.BaseURL != "http://warehouse:8090" || cfg.Store.HTTP.RowsPath != "/rows" {
		t.Fatalf("expected file values merged with defaults, got %+v", cfg.Store.HTTP)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 30*time.Second || !cfg.Logging.JSON {
		t.Fatalf("unexpected cache/logging config %+v %+v", cfg.Cache, cfg.Logging)
	}
	if window, _ := cfg.Window(); window != 14*24*time.Hour {
		t.Fatalf("expected two week window, got %v", window)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"postgres without dsn": "MIRADOR_ROI_STORE_DRIVER=postgres",
		"unknown driver":       "MIRADOR_ROI_STORE_DRIVER=mongo",
		"bad window":           "MIRADOR_ROI_DEFAULT_WINDOW=soon",
		"overflowing window":   "MIRADOR_ROI_DEFAULT_WINDOW=200000d",
		"cache without addr":   "MIRADOR_ROI_CACHE_ENABLED=1",
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("MIRADOR_ROI_CONFIG", "")
			key, value, _ := strings.Cut(env, "=")
			t.Setenv(key, value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
