package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Server.Addr != ":8114" {
		t.Errorf("unexpected default addr: %s", cfg.Server.Addr)
	}
	if cfg.TopK != 4 {
		t.Errorf("unexpected default top_k: %d", cfg.TopK)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("unexpected default session backend: %s", cfg.Session.Backend)
	}
}

func TestLoad_ReadsFileAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9000"
session:
  backend: redis
top_k: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr not read from file: %s", cfg.Server.Addr)
	}
	if cfg.TopK != 2 {
		t.Errorf("top_k not read from file: %d", cfg.TopK)
	}
	if cfg.Session.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr default not applied: %s", cfg.Session.RedisAddr)
	}
	if cfg.LLM.Model == "" {
		t.Error("llm model default not applied")
	}
}

func TestLoad_InvalidYAMLIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("server: [not a map"), 0o644)

	if _, err := Load(path); err == nil {
		t.Error("invalid YAML should be an error")
	}
}
