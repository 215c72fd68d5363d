package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/pebble/internal/filter"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, DefaultFile, `# empty`)

	result, err := Load(configPath, LoadOptions{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}

	want := Plan{
		DataDir:         filepath.Join(tempDir, "data"),
		Backend:         BackendJSON,
		CacheTTL:        time.Hour,
		CleanupInterval: time.Minute,
		FlushInterval:   5 * time.Minute,
		ObjectSizeLimit: 200000,
		Flag:            filter.CaseInsensitive,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
	}
	if diff := cmp.Diff(want, result.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, Default(tempDir)); diff != "" {
		t.Fatalf("Default mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, DefaultFile, `
data_dir = "store"

[cache]
max_size = 128
time_to_live = 10
cleanup_interval = 0

[storage]
backend = "sqlite"
flush_interval = 0
object_size_limit = 50

[query]
flag = "case_sensitive"
scope = "none"

[logging]
level = "debug"
format = "JSON"
`)

	result, err := Load(configPath, LoadOptions{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Plan{
		DataDir:         filepath.Join(tempDir, "store"),
		Backend:         BackendSQLite,
		CacheMaxSize:    128,
		CacheTTL:        10 * time.Second,
		ObjectSizeLimit: 50,
		Flag:            filter.CaseSensitive,
		Scope:           filter.ScopeNone,
		LogLevel:        slog.LevelDebug,
		LogFormat:       "json",
	}
	if diff := cmp.Diff(want, result.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	absData := filepath.Join(tempDir, "elsewhere")
	configPath := writeConfig(t, tempDir, "pebble.yaml", `
data_dir: `+absData+`
cache:
  max_size: 4
storage:
  backend: json
`)

	result, err := Load(configPath, LoadOptions{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Plan.DataDir != absData {
		t.Fatalf("DataDir = %q, want %q", result.Plan.DataDir, absData)
	}
	if result.Plan.CacheMaxSize != 4 {
		t.Fatalf("CacheMaxSize = %d", result.Plan.CacheMaxSize)
	}
	if result.Plan.CacheTTL != time.Hour {
		t.Fatalf("CacheTTL = %s, want default", result.Plan.CacheTTL)
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), "pebble.yml", ``)
	if _, err := Load(configPath, LoadOptions{Strict: true}); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
}

func TestLoadNonStrictUnknownKeysWarning(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), DefaultFile, `
extra = "value"

[cache]
size = 3
`)

	result, err := Load(configPath, LoadOptions{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	warning := result.Warnings[0]
	if !strings.Contains(warning, "cache.size, extra") {
		t.Fatalf("warning should list offending keys in order, got: %s", warning)
	}
}

func TestLoadStrictUnknownKeys(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), "pebble.yaml", `
logging:
  colour: true
`)

	_, err := Load(configPath, LoadOptions{Strict: true})
	if err == nil {
		t.Fatal("expected strict mode to reject unknown keys")
	}
	if !strings.Contains(err.Error(), "unknown configuration keys") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "logging.colour") {
		t.Fatalf("error should mention offending key, got: %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "unknown backend",
			contents: "[storage]\nbackend = \"postgres\"",
			wantErr:  `unsupported storage.backend "postgres"`,
		},
		{
			name:     "negative max size",
			contents: "[cache]\nmax_size = -1",
			wantErr:  "cache.max_size must not be negative",
		},
		{
			name:     "zero ttl",
			contents: "[cache]\ntime_to_live = 0",
			wantErr:  "cache.time_to_live must be positive",
		},
		{
			name:     "zero size limit",
			contents: "[storage]\nobject_size_limit = 0",
			wantErr:  "storage.object_size_limit must be positive",
		},
		{
			name:     "bad flag",
			contents: "[query]\nflag = \"loud\"",
			wantErr:  "query.flag",
		},
		{
			name:     "bad scope",
			contents: "[query]\nscope = \"SOME\"",
			wantErr:  "query.scope",
		},
		{
			name:     "bad level",
			contents: "[logging]\nlevel = \"trace\"",
			wantErr:  "logging.level",
		},
		{
			name:     "bad format",
			contents: "[logging]\nformat = \"xml\"",
			wantErr:  `unsupported logging.format "xml"`,
		},
		{
			name:     "empty data dir",
			contents: `data_dir = " "`,
			wantErr:  "data_dir is required",
		},
		{
			name:     "malformed toml",
			contents: "[cache\n",
			wantErr:  DefaultFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			configPath := writeConfig(t, t.TempDir(), DefaultFile, tt.contents)
			_, err := Load(configPath, LoadOptions{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), LoadOptions{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func writeConfig(tb testing.TB, dir, name, contents string) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	clean := strings.TrimSpace(contents) + "\n"
	if err := os.WriteFile(path, []byte(clean), 0o600); err != nil {
		tb.Fatalf("write config: %v", err)
	}
	return path
}
