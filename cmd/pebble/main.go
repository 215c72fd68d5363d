// Package main implements the pebble CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/electwix/pebble/internal/cache"
	"github.com/electwix/pebble/internal/cli"
	"github.com/electwix/pebble/internal/config"
	"github.com/electwix/pebble/internal/db"
	"github.com/electwix/pebble/internal/diagnostics"
	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/logging"
	"github.com/electwix/pebble/internal/query"
	"github.com/electwix/pebble/internal/store"
)

// sqliteFile is the database file name used by the sqlite backend.
const sqliteFile = "pebble.db"

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// usageError marks mistakes in the command line itself.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if len(opts.Args) == 0 {
		_, _ = fmt.Fprintln(stderr, cli.Usage())
		return 1
	}

	plan, warnings, err := loadPlan(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger := logging.NewSlogAdapter(logging.New(logging.Options{
		Level:   plan.LogLevel.String(),
		Verbose: opts.Verbose,
		Format:  plan.LogFormat,
		Writer:  stderr,
	}))
	for _, warning := range warnings {
		logger.Warn(warning)
	}

	st, err := openStore(ctx, plan)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}
	database, err := db.Open(ctx, st,
		db.WithLogger(logger),
		db.WithSizeLimit(plan.ObjectSizeLimit),
		db.WithFlag(plan.Flag),
		db.WithScope(plan.Scope),
		db.WithCacheOptions(
			cache.WithMaxSize(plan.CacheMaxSize),
			cache.WithTTL(plan.CacheTTL),
			cache.WithCleanupInterval(plan.CleanupInterval),
		),
	)
	if err != nil {
		_ = st.Close()
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}
	logger.Debug("opened data directory", "dir", plan.DataDir, "backend", plan.Backend, "tables", len(database.Tables()))

	var report diagnostics.Collection
	formatter := &diagnostics.Formatter{ShowSource: opts.Verbose}
	out, cmdErr := dispatch(database, opts.Args[0], opts.Args[1:], &report)
	closeErr := database.Close(ctx)
	if cmdErr != nil {
		report.Add(diagnostics.FromError(cmdErr))
	}
	_ = formatter.Write(stderr, &report)
	if cmdErr != nil {
		var usage usageError
		if errors.As(cmdErr, &usage) {
			_, _ = fmt.Fprintln(stderr, cli.Usage())
		}
		return 1
	}
	if closeErr != nil {
		_, _ = fmt.Fprintln(stderr, closeErr.Error())
		return 2
	}
	if err := writeJSON(stdout, out); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}
	return 0
}

// loadPlan reads the configuration named by --config, or pebble.toml in the
// working directory when it exists, and applies flag overrides.
func loadPlan(opts cli.Options) (config.Plan, []string, error) {
	var (
		plan     config.Plan
		warnings []string
	)
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return plan, nil, err
		}
	}
	if path != "" {
		res, err := config.Load(path, config.LoadOptions{Strict: opts.StrictConfig})
		if err != nil {
			return plan, nil, err
		}
		plan, warnings = res.Plan, res.Warnings
	} else {
		plan = config.Default(".")
	}

	if opts.DataDir != "" {
		plan.DataDir = filepath.Clean(opts.DataDir)
	}
	if opts.Backend != "" {
		switch backend := config.Backend(opts.Backend); backend {
		case config.BackendJSON, config.BackendSQLite:
			plan.Backend = backend
		default:
			return plan, nil, fmt.Errorf("unsupported backend %q", opts.Backend)
		}
	}
	if opts.Scope != "" {
		scope, err := filter.ParseScope(opts.Scope)
		if err != nil {
			return plan, nil, err
		}
		plan.Scope = scope
	}
	if opts.CaseSensitive {
		plan.Flag = filter.CaseSensitive
	}
	return plan, warnings, nil
}

func openStore(ctx context.Context, plan config.Plan) (store.Store, error) {
	switch plan.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(plan.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return store.OpenSQLite(ctx, filepath.Join(plan.DataDir, sqliteFile))
	default:
		return store.NewJSONStore(plan.DataDir)
	}
}

type tableInfo struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Total      int    `json:"total"`
}

func dispatch(database *db.Database, command string, args []string, report *diagnostics.Collection) (any, error) {
	switch command {
	case "tables":
		infos := make([]tableInfo, 0)
		for _, name := range database.Tables() {
			t, err := database.Table(name)
			if err != nil {
				return nil, err
			}
			infos = append(infos, tableInfo{Name: name, Identifier: t.Identifier(), Total: t.Len()})
		}
		return infos, nil

	case "get":
		if len(args) < 1 {
			return nil, usageError{"get: missing table name"}
		}
		t, err := database.Table(args[0])
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return t.All(), nil
		}
		return t.GetMany(args[1:]), nil

	case "put":
		if len(args) < 2 || len(args) > 3 {
			return nil, usageError{"put: want <table> <json> [id]"}
		}
		record, err := decodeRecord(args[1])
		if err != nil {
			return nil, err
		}
		t, err := database.GetOrCreateTable(args[0])
		if err != nil {
			return nil, err
		}
		id := ""
		if len(args) == 3 {
			id = args[2]
			err = t.Put(id, record)
		} else {
			id, err = t.Set(record)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil

	case "remove":
		if len(args) < 2 {
			return nil, usageError{"remove: want <table> <id...>"}
		}
		t, err := database.Table(args[0])
		if err != nil {
			return nil, err
		}
		return map[string]bool{"removed": t.BulkRemove(args[1:])}, nil

	case "filter":
		if len(args) < 2 {
			return nil, usageError{"filter: want <table> <clause...>"}
		}
		t, err := database.Table(args[0])
		if err != nil {
			return nil, err
		}
		return t.Filter(args[1:]...)

	case "query":
		if len(args) < 1 {
			return nil, usageError{"query: missing query string"}
		}
		for _, raw := range args {
			if expr, err := query.Parse(raw); err == nil {
				report.Add(diagnostics.FromQuery(expr)...)
			}
		}
		return database.Query(args...)

	default:
		return nil, usageError{fmt.Sprintf("unknown command %q", command)}
	}
}

func decodeRecord(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record == nil {
		return nil, errors.New("decode record: expected a JSON object")
	}
	return record, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
