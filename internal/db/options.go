package db

import (
	"time"

	"github.com/electwix/pebble/internal/cache"
	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/logging"
	"github.com/electwix/pebble/internal/query"
)

// DefaultSizeLimit is the number of records a table may hold.
const DefaultSizeLimit = 200000

// Option configures tables and databases.
type Option func(*settings)

type settings struct {
	logger    logging.Logger
	sizeLimit int
	cacheOpts []cache.Option
	flag      filter.Flag
	scope     filter.Scope
	clock     cache.Clock
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:    logging.NewNopLogger(),
		sizeLimit: DefaultSizeLimit,
		flag:      filter.CaseInsensitive,
		clock:     cache.SystemClock,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) queryOptions() []query.Option {
	opts := []query.Option{query.WithFlag(s.flag), query.WithLogger(s.logger)}
	if s.scope != "" {
		opts = append(opts, query.WithScope(s.scope))
	}
	return opts
}

// WithLogger sets the logger used for flush and query reports.
func WithLogger(logger logging.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSizeLimit sets the maximum number of records per table. Values below
// one keep the default.
func WithSizeLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.sizeLimit = n
		}
	}
}

// WithCacheOptions configures the read cache of every table.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(s *settings) {
		s.cacheOpts = append(s.cacheOpts, opts...)
	}
}

// WithFlag sets the case-sensitivity flag used by Filter and Query.
func WithFlag(flag filter.Flag) Option {
	return func(s *settings) {
		s.flag = flag
	}
}

// WithScope overrides the scope of every clause run by Filter and Query.
func WithScope(scope filter.Scope) Option {
	return func(s *settings) {
		s.scope = scope
	}
}

// WithClock sets the clock used for flush times and by the table caches.
func WithClock(clock cache.Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func (s settings) newCache() *cache.Cache {
	opts := append([]cache.Option{cache.WithClock(s.clock), cache.WithLogger(s.logger)}, s.cacheOpts...)
	return cache.New(opts...)
}

// flushSpec renders an interval as a cron "@every" schedule.
func flushSpec(interval time.Duration) string {
	return "@every " + interval.String()
}
