package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/logging"
)

// Option configures a Cache.
type Option func(*Cache)

// WithMaxSize bounds the number of entries. Zero or less means unbounded.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		if n < 0 {
			n = 0
		}
		c.maxSize = n
	}
}

// WithTTL sets how long an entry may go without access before it expires.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithCleanupInterval sets the minimum time between expiry sweeps.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.cleanupInterval = d
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger used for eviction and sweep reports.
func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Item is a key with its entry.
type Item struct {
	Key   string
	Entry *Entry
}

// Cache maps keys to entries under a single lock.
type Cache struct {
	mu              sync.Mutex
	entries         map[string]*Entry
	maxSize         int
	ttl             time.Duration
	cleanupInterval time.Duration
	lastCleanedAt   time.Time
	clock           Clock
	logger          logging.Logger
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:         make(map[string]*Entry),
		ttl:             DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		clock:           SystemClock,
		logger:          logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxSize returns the capacity bound; zero means unbounded.
func (c *Cache) MaxSize() int { return c.maxSize }

// TTL returns the expiry duration.
func (c *Cache) TTL() time.Duration { return c.ttl }

// CleanupInterval returns the minimum time between sweeps.
func (c *Cache) CleanupInterval() time.Duration { return c.cleanupInterval }

// Set writes value under key. Before the write it sweeps expired entries if
// the last sweep is older than the cleanup interval, and evicts the least
// recently accessed entries if the cache is full. A new key gets a fresh
// dirty entry (or adopts value if it is an *Entry); an existing key has
// value merged into its entry. The entry's access time is refreshed.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.maybeCleanup(now)
	c.maybeEvict()

	entry, data := adapt(value)
	if existing, ok := c.entries[key]; ok {
		if entry != nil {
			existing.Merge(entry)
		} else {
			existing.Update(data)
		}
		entry = existing
	} else {
		if entry == nil {
			entry = NewEntry(data)
			entry.MarkDirty()
		}
		c.entries[key] = entry
	}
	entry.Touch(now)
}

// Add merges value into the entry under key, or inserts a clean entry. It
// skips maintenance and does not refresh the access time, which makes it the
// path for bulk loading persisted records.
func (c *Cache) Add(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, data := adapt(value)
	if existing, ok := c.entries[key]; ok {
		if entry != nil {
			existing.Merge(entry)
		} else {
			existing.Update(data)
		}
		return
	}
	if entry == nil {
		entry = NewEntry(data)
	}
	c.entries[key] = entry
}

// SetEntry replaces the entry under key with value, which must be an
// *Entry. Anything else yields ErrNotEntry.
func (c *Cache) SetEntry(key string, value any) error {
	entry, ok := value.(*Entry)
	if !ok || entry == nil {
		return ErrNotEntry
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Get returns a copy of the record under key and refreshes its access time.
func (c *Cache) Get(key string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	entry.Touch(c.clock.Now())
	return entry.Data(), nil
}

// Lookup returns the entry under key without touching it.
func (c *Cache) Lookup(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Has reports whether key is cached, expired or not.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Delete removes key. Missing keys are ignored.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Size returns the number of entries, expired ones included.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// IsEmpty reports whether the cache holds no entries.
func (c *Cache) IsEmpty() bool { return c.Size() == 0 }

// IsFull reports whether a bounded cache has reached its maximum size.
func (c *Cache) IsFull() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isFull()
}

func (c *Cache) isFull() bool {
	return c.maxSize > 0 && len(c.entries) >= c.maxSize
}

// Items returns the non-expired entries in natural key order.
func (c *Cache) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !e.IsExpired(c.ttl, now) {
			keys = append(keys, k)
		}
	}
	filter.SortKeys(keys)
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, Item{Key: k, Entry: c.entries[k]})
	}
	return items
}

// Keys returns the non-expired keys in natural order.
func (c *Cache) Keys() []string {
	items := c.Items()
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

// Values returns the non-expired entries in natural key order.
func (c *Cache) Values() []*Entry {
	items := c.Items()
	values := make([]*Entry, len(items))
	for i, it := range items {
		values[i] = it.Entry
	}
	return values
}

// Records returns copies of the non-expired records, so a Cache can be
// filtered directly.
func (c *Cache) Records() []filter.Record {
	items := c.Items()
	out := make([]filter.Record, len(items))
	for i, it := range items {
		out[i] = it.Entry.Data()
	}
	return out
}

// FlushDirty returns the dirty entries. Their flags are left set; callers
// clear them once the records are persisted.
func (c *Cache) FlushDirty() map[string]*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirty := make(map[string]*Entry)
	for k, e := range c.entries {
		if e.IsDirty() {
			dirty[k] = e
		}
	}
	return dirty
}

// Cleanup removes every expired entry now and returns how many went.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep(c.clock.Now())
}

// LastCleanedAt returns the time of the last sweep; ok is false before the
// first one.
func (c *Cache) LastCleanedAt() (t time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCleanedAt, !c.lastCleanedAt.IsZero()
}

// Filter evaluates one filter string against the non-expired records.
func (c *Cache) Filter(expr string, flag filter.Flag, scope filter.Scope) (filter.Result, error) {
	clause, err := filter.ParseClause(expr, filter.WithFlag(flag))
	if err != nil {
		return filter.Result{}, err
	}
	return filter.NewEngine(c).SetFilter(clause, scope).Filter()
}

// Snapshot captures every entry, expired ones included.
func (c *Cache) Snapshot() map[string]Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Snapshot, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.Snapshot()
	}
	return out
}

// Restore replaces the cache contents with snapshots. On error the cache is
// left unchanged.
func (c *Cache) Restore(snapshots map[string]Snapshot) error {
	entries := make(map[string]*Entry, len(snapshots))
	for k, s := range snapshots {
		e, err := FromSnapshot(s)
		if err != nil {
			return err
		}
		entries[k] = e
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// maybeCleanup sweeps when the last sweep is older than the cleanup
// interval. c.mu must be held.
func (c *Cache) maybeCleanup(now time.Time) {
	if len(c.entries) == 0 {
		return
	}
	if !c.lastCleanedAt.IsZero() && !isStale(c.lastCleanedAt, now, c.cleanupInterval) {
		return
	}
	if n := c.sweep(now); n > 0 {
		c.logger.Debug("cache sweep removed expired entries", "count", n)
	}
}

// sweep removes expired entries and stamps the sweep time. c.mu must be held.
func (c *Cache) sweep(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if e.IsExpired(c.ttl, now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.lastCleanedAt = now
	return removed
}

// maybeEvict removes the oldest entries until maxSize-1 remain, leaving room
// for one write. Entries never accessed go first; ties break by key. c.mu
// must be held.
func (c *Cache) maybeEvict() {
	if !c.isFull() {
		return
	}
	type candidate struct {
		key string
		at  time.Time
	}
	candidates := make([]candidate, 0, len(c.entries))
	for k, e := range c.entries {
		at, _ := e.LastAccessed()
		candidates = append(candidates, candidate{key: k, at: at})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].at.Before(candidates[j].at)
		}
		return candidates[i].key < candidates[j].key
	})
	n := len(candidates) - c.maxSize + 1
	for _, cand := range candidates[:n] {
		delete(c.entries, cand.key)
	}
	c.logger.Debug("cache evicted entries", "count", n, "max_size", c.maxSize)
}
