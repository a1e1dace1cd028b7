package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.yml")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Base.Name != "whisperd" {
		t.Errorf("base.name = %q, want whisperd", cfg.Base.Name)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("server.port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Pool.Workers != 1 {
		t.Errorf("pool.workers = %d, want single inference slot", cfg.Pool.Workers)
	}
	if cfg.Model.CacheDir != filepath.Join("data", ".whisper_cache") {
		t.Errorf("model.cache_dir = %q, want data/.whisper_cache", cfg.Model.CacheDir)
	}
	if got := cfg.Server.CORS.AllowedOrigins; len(got) != 1 || got[0] != "*" {
		t.Errorf("cors.allowed_origins = %v, want [*]", got)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
base:
  name: whisperd
  environment: production
server:
  port: 9090
pool:
  workers: 2
model:
  cache_dir: /var/cache/whisper
`)

	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Base.Environment != "production" {
		t.Errorf("environment = %q, want production", cfg.Base.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Pool.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Pool.Workers)
	}
	if cfg.Model.CacheDir != "/var/cache/whisper" {
		t.Errorf("cache_dir = %q, want /var/cache/whisper", cfg.Model.CacheDir)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
}

func TestLoad_InvalidEnvironmentRejected(t *testing.T) {
	path := writeConfigFile(t, `
base:
  environment: sandbox
`)

	_, err := Load(WithConfigFile(path))
	if err == nil {
		t.Fatal("expected validation error for unknown environment")
	}
	if !strings.Contains(err.Error(), "environment") {
		t.Errorf("error %q should mention environment", err)
	}
}

func TestLoad_InvalidPoolRejected(t *testing.T) {
	path := writeConfigFile(t, `
pool:
  workers: 9999
`)

	_, err := Load(WithConfigFile(path))
	if err == nil {
		t.Fatal("expected validation error for oversized pool")
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("SERVER_MAX_BODY_SIZE")

	want := map[string]bool{
		"server_max_body_size": false,
		"server.max.body.size": false,
		"server.max_body_size": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("variant %q missing from %v", k, variants)
		}
	}
}
