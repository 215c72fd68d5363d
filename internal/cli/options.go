// Package cli parses the pebble command line.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Options holds the parsed global flags and the remaining arguments, the
// first of which is the subcommand.
type Options struct {
	ConfigPath    string
	DataDir       string
	Backend       string
	Scope         string
	CaseSensitive bool
	StrictConfig  bool
	Verbose       bool
	Args          []string
}

// ErrHelp is returned when -h or --help is given.
var ErrHelp = pflag.ErrHelp

func newFlagSet(opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pebble", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default pebble.toml when present)")
	fs.StringVar(&opts.DataDir, "data-dir", "", "Override the data directory; relative paths are resolved against the working directory")
	fs.StringVar(&opts.Backend, "backend", "", "Override the storage backend (json or sqlite)")
	fs.StringVar(&opts.Scope, "scope", "", "Override the scope of every clause (*, ALL, ANY or NONE)")
	fs.BoolVar(&opts.CaseSensitive, "case-sensitive", false, "Compare strings case-sensitively")
	fs.BoolVar(&opts.StrictConfig, "strict-config", false, "Treat configuration warnings as errors")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	return fs
}

// Parse parses args, not including the program name.
func Parse(args []string) (Options, error) {
	var opts Options
	fs := newFlagSet(&opts)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Options{}, fmt.Errorf("%w\n\n%s", err, Usage())
		}
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage())
	}
	opts.Args = fs.Args()
	return opts, nil
}

// Usage renders the command synopsis and flag defaults.
func Usage() string {
	var opts Options
	fs := newFlagSet(&opts)
	return `Usage: pebble [flags] <command> [arguments]

Commands:
  tables                     list tables
  get <table> [id...]        print records, all of them when no id is given
  put <table> <json> [id]    store a JSON object, under id when given
  remove <table> <id...>     delete records
  filter <table> <clause...> records of one table matching every clause
  query <query...>           run queries across tables

Flags:
` + fs.FlagUsages()
}
