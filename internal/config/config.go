// Package config loads and validates the pebble configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/logging"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "pebble.toml"

// Backend identifies the document store implementation.
type Backend string

const (
	// BackendJSON keeps one JSON file per table.
	BackendJSON Backend = "json"
	// BackendSQLite keeps every table in one SQLite database file.
	BackendSQLite Backend = "sqlite"
)

var validBackends = map[Backend]struct{}{
	BackendJSON:   {},
	BackendSQLite: {},
}

// CacheConfig captures the [cache] table. Durations are in seconds.
type CacheConfig struct {
	MaxSize         int `toml:"max_size" yaml:"max_size"`
	TimeToLive      int `toml:"time_to_live" yaml:"time_to_live"`
	CleanupInterval int `toml:"cleanup_interval" yaml:"cleanup_interval"`
}

// StorageConfig captures the [storage] table.
type StorageConfig struct {
	Backend         Backend `toml:"backend" yaml:"backend"`
	FlushInterval   int     `toml:"flush_interval" yaml:"flush_interval"`
	ObjectSizeLimit int     `toml:"object_size_limit" yaml:"object_size_limit"`
}

// QueryConfig captures the [query] table.
type QueryConfig struct {
	Flag  string `toml:"flag" yaml:"flag"`
	Scope string `toml:"scope" yaml:"scope"`
}

// LoggingConfig captures the [logging] table.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Config mirrors the pebble configuration file.
type Config struct {
	DataDir string        `toml:"data_dir" yaml:"data_dir"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Query   QueryConfig   `toml:"query" yaml:"query"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// Defaults returns the configuration used for keys a file leaves out.
func Defaults() Config {
	return Config{
		DataDir: "data",
		Cache: CacheConfig{
			TimeToLive:      3600,
			CleanupInterval: 60,
		},
		Storage: StorageConfig{
			Backend:         BackendJSON,
			FlushInterval:   300,
			ObjectSizeLimit: 200000,
		},
		Query: QueryConfig{
			Flag: string(filter.CaseInsensitive),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Plan is the validated configuration used by the rest of pebble.
type Plan struct {
	DataDir         string
	Backend         Backend
	CacheMaxSize    int
	CacheTTL        time.Duration
	CleanupInterval time.Duration
	FlushInterval   time.Duration
	ObjectSizeLimit int
	Flag            filter.Flag
	Scope           filter.Scope
	LogLevel        slog.Level
	LogFormat       string
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	Strict bool
}

// Result wraps a loaded plan alongside any non-fatal warnings.
type Result struct {
	Plan     Plan
	Warnings []string
}

// Default returns the plan for the default configuration with data_dir
// resolved against baseDir.
func Default(baseDir string) Plan {
	plan, err := resolve(baseDir, Defaults())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return plan
}

// Load reads, validates, and resolves a pebble configuration file. Files
// ending in .yaml or .yml are read as YAML, anything else as TOML.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	format := formatOf(path)
	cfg := Defaults()
	if err := format.unmarshal(data, &cfg); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	var raw map[string]any
	if err := format.unmarshal(data, &raw); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	unknown := collectUnknownKeys(raw)
	if len(unknown) > 0 {
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	plan, err := resolve(filepath.Dir(path), cfg)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	res.Plan = plan
	return res, nil
}

type fileFormat int

const (
	formatTOML fileFormat = iota
	formatYAML
)

func formatOf(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatTOML
	}
}

func (f fileFormat) unmarshal(data []byte, v any) error {
	if f == formatYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	return toml.Unmarshal(data, v)
}

var knownKeys = map[string]map[string]struct{}{
	"data_dir": nil,
	"cache": {
		"max_size":         {},
		"time_to_live":     {},
		"cleanup_interval": {},
	},
	"storage": {
		"backend":           {},
		"flush_interval":    {},
		"object_size_limit": {},
	},
	"query": {
		"flag":  {},
		"scope": {},
	},
	"logging": {
		"level":  {},
		"format": {},
	},
}

// collectUnknownKeys returns unknown top-level keys and unknown keys of the
// known sections as "section.key", sorted.
func collectUnknownKeys(raw map[string]any) []string {
	unknown := make([]string, 0)
	for key, value := range raw {
		section, ok := knownKeys[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		record, ok := value.(map[string]any)
		if !ok || section == nil {
			continue
		}
		for sub := range record {
			if _, ok := section[sub]; !ok {
				unknown = append(unknown, key+"."+sub)
			}
		}
	}
	slices.Sort(unknown)
	return unknown
}

func resolve(baseDir string, cfg Config) (Plan, error) {
	var plan Plan

	dataDir, err := resolveDataDir(baseDir, cfg.DataDir)
	if err != nil {
		return plan, err
	}

	backend := cfg.Storage.Backend
	if _, ok := validBackends[backend]; !ok {
		return plan, fmt.Errorf("unsupported storage.backend %q", backend)
	}

	for _, field := range []struct {
		name  string
		value int
	}{
		{"cache.max_size", cfg.Cache.MaxSize},
		{"cache.time_to_live", cfg.Cache.TimeToLive},
		{"cache.cleanup_interval", cfg.Cache.CleanupInterval},
		{"storage.flush_interval", cfg.Storage.FlushInterval},
		{"storage.object_size_limit", cfg.Storage.ObjectSizeLimit},
	} {
		if field.value < 0 {
			return plan, fmt.Errorf("%s must not be negative, got %d", field.name, field.value)
		}
	}
	if cfg.Cache.TimeToLive == 0 {
		return plan, errors.New("cache.time_to_live must be positive")
	}
	if cfg.Storage.ObjectSizeLimit == 0 {
		return plan, errors.New("storage.object_size_limit must be positive")
	}

	flag, err := filter.ParseFlag(cfg.Query.Flag)
	if err != nil {
		return plan, fmt.Errorf("query.flag: %w", err)
	}
	// An empty scope keeps the scope written in each clause.
	var scope filter.Scope
	if strings.TrimSpace(cfg.Query.Scope) != "" {
		scope, err = filter.ParseScope(cfg.Query.Scope)
		if err != nil {
			return plan, fmt.Errorf("query.scope: %w", err)
		}
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return plan, fmt.Errorf("logging.level: %w", err)
	}
	format := strings.ToLower(cfg.Logging.Format)
	if format != logging.FormatText && format != logging.FormatJSON {
		return plan, fmt.Errorf("unsupported logging.format %q", cfg.Logging.Format)
	}

	return Plan{
		DataDir:         dataDir,
		Backend:         backend,
		CacheMaxSize:    cfg.Cache.MaxSize,
		CacheTTL:        seconds(cfg.Cache.TimeToLive),
		CleanupInterval: seconds(cfg.Cache.CleanupInterval),
		FlushInterval:   seconds(cfg.Storage.FlushInterval),
		ObjectSizeLimit: cfg.Storage.ObjectSizeLimit,
		Flag:            flag,
		Scope:           scope,
		LogLevel:        level,
		LogFormat:       format,
	}, nil
}

func resolveDataDir(baseDir, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("data_dir is required")
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	return filepath.Join(baseDir, filepath.Clean(dir)), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
