// Package cache is the time-aware record cache that sits between pebble
// tables and their persisted documents.
//
// A Cache maps string keys to Entry values. Each Entry holds one record, a
// dirty flag and the time it was last accessed. Writes through Cache.Set run
// an expiry sweep (at most once per cleanup interval) and a capacity check
// before applying the write; the capacity check evicts the least recently
// accessed entries so the cache never exceeds its maximum size. Reads
// through Cache.Get refresh the access time.
//
// Usage:
//
//	c := cache.New(cache.WithMaxSize(1000), cache.WithTTL(time.Hour))
//	c.Set("42", map[string]any{"name": "Alice"})
//	rec, err := c.Get("42")
//	if errors.Is(err, cache.ErrKeyNotFound) {
//	    // not cached
//	}
//
// Time is read from a Clock so expiry and eviction can be tested without
// sleeping.
package cache
