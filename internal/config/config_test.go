package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"recordlinker/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCatalog := filepath.Join(tempHome, ".local", "share", "recordlinker", "catalog.db")
	if cfg.Catalog.Path != wantCatalog {
		t.Fatalf("unexpected catalog path: got %q want %q", cfg.Catalog.Path, wantCatalog)
	}
	if cfg.Hashing.BufferSize != config.Default().Hashing.BufferSize {
		t.Fatalf("unexpected buffer size: %d", cfg.Hashing.BufferSize)
	}
	if cfg.Hashing.SuffixLength != 6 {
		t.Fatalf("unexpected suffix length: %d", cfg.Hashing.SuffixLength)
	}
	if !cfg.Dedup.SkipOutputInInputs {
		t.Fatal("expected dedup to skip output in inputs by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.LogFile() != "" {
		t.Fatalf("expected file logging disabled by default, got %q", cfg.LogFile())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(cfg.Catalog.Path)); err != nil || !info.IsDir() {
		t.Fatalf("expected catalog directory to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "recordlinker.toml")

	type payload struct {
		Paths struct {
			LogDir string `toml:"log_dir"`
		} `toml:"paths"`
		Hashing struct {
			BufferSize   int `toml:"buffer_size"`
			SuffixLength int `toml:"suffix_length"`
		} `toml:"hashing"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Hashing.BufferSize = 1024
	custom.Hashing.SuffixLength = 8
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "Debug"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Hashing.BufferSize != 1024 || cfg.Hashing.SuffixLength != 8 {
		t.Fatalf("unexpected hashing config: %+v", cfg.Hashing)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
	if cfg.LogFile() != filepath.Join(tempDir, "logs", "recordlinker.log") {
		t.Fatalf("unexpected log file: %q", cfg.LogFile())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "negative buffer", body: "[hashing]\nbuffer_size = -1\n", wantErr: "hashing.buffer_size"},
		{name: "short suffix", body: "[hashing]\nsuffix_length = 2\n", wantErr: "hashing.suffix_length"},
		{name: "unknown level", body: "[logging]\nlevel = \"loud\"\n", wantErr: "logging.level"},
		{name: "unknown field", body: "[hashing]\nchunk = 4\n", wantErr: "parse config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLogLevelEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RECORDLINKER_LOG_LEVEL", "WARN")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env override, got %q", cfg.Logging.Level)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Hashing.BufferSize != 65536 {
		t.Fatalf("unexpected sample buffer size: %d", cfg.Hashing.BufferSize)
	}
}
