package cache

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrKeyNotFound is returned by Cache.Get for keys that are not cached.
	ErrKeyNotFound = errors.New("cache: key not found")
	// ErrNotEntry is returned by Cache.SetEntry when the value is not an *Entry.
	ErrNotEntry = errors.New("cache: value is not a cache entry")
)

// KeyNotFoundError names the missing key.
type KeyNotFoundError struct {
	Key string
}

// Error implements the error interface.
func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("cache: key %q not found", e.Key)
}

// Unwrap returns ErrKeyNotFound.
func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Defaults applied by New.
const (
	DefaultTTL             = time.Hour
	DefaultCleanupInterval = time.Minute
)

// isStale reports whether more than interval has passed since ts.
func isStale(ts, now time.Time, interval time.Duration) bool {
	return now.Sub(ts) > interval
}
