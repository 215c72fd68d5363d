package cache

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Entry is one cached record with its dirty flag and last access time.
// Every method takes the entry's own lock; an Entry is safe for concurrent
// use.
type Entry struct {
	mu           sync.Mutex
	data         map[string]any
	dirty        bool
	lastAccessed time.Time
}

// NewEntry returns a clean, never accessed entry holding a shallow copy of
// data.
func NewEntry(data map[string]any) *Entry {
	cp := make(map[string]any, len(data))
	maps.Copy(cp, data)
	return &Entry{data: cp}
}

// NewTouchedEntry is NewEntry with the access time set to clock.Now().
func NewTouchedEntry(data map[string]any, clock Clock) *Entry {
	if clock == nil {
		clock = SystemClock
	}
	e := NewEntry(data)
	e.lastAccessed = clock.Now()
	return e
}

// Get returns the value stored under key, or def.
func (e *Entry) Get(key string, def any) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.data[key]; ok {
		return v
	}
	return def
}

// Set stores value under key and marks the entry dirty.
func (e *Entry) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data[key] = value
	e.dirty = true
}

// Contains reports whether key is present.
func (e *Entry) Contains(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.data[key]
	return ok
}

// Len returns the number of fields.
func (e *Entry) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.data)
}

// Keys returns the field names in sorted order.
func (e *Entry) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.data))
	for k := range e.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every field and marks the entry dirty.
func (e *Entry) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.data)
	e.dirty = true
}

// Update shallow-merges other into the entry and marks it dirty.
func (e *Entry) Update(other map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	maps.Copy(e.data, other)
	e.dirty = true
}

// Merge is Update with another entry's fields.
func (e *Entry) Merge(other *Entry) {
	if other == nil || other == e {
		return
	}
	e.Update(other.Data())
}

// Pop removes key and returns its value, or def when absent. The entry is
// marked dirty either way.
func (e *Entry) Pop(key string, def any) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = true
	v, ok := e.data[key]
	if !ok {
		return def
	}
	delete(e.data, key)
	return v
}

// MarkDirty flags the entry as changed since the last persist.
func (e *Entry) MarkDirty() {
	e.mu.Lock()
	e.dirty = true
	e.mu.Unlock()
}

// MarkClean clears the dirty flag, typically after a successful persist.
func (e *Entry) MarkClean() {
	e.mu.Lock()
	e.dirty = false
	e.mu.Unlock()
}

// IsDirty reports the dirty flag.
func (e *Entry) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// LastAccessed returns the last access time; ok is false if the entry was
// never accessed.
func (e *Entry) LastAccessed() (t time.Time, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccessed, !e.lastAccessed.IsZero()
}

// Touch records an access at now. The access time never moves backwards.
func (e *Entry) Touch(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.After(e.lastAccessed) {
		e.lastAccessed = now
	}
}

// IsExpired reports whether more than ttl has elapsed since the last access.
// A never accessed entry does not expire.
func (e *Entry) IsExpired(ttl time.Duration, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastAccessed.IsZero() {
		return false
	}
	return isStale(e.lastAccessed, now, ttl)
}

// Data returns a shallow copy of the record.
func (e *Entry) Data() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[string]any, len(e.data))
	maps.Copy(cp, e.data)
	return cp
}

// Clone returns a clean, never accessed entry with a shallow copy of the
// record.
func (e *Entry) Clone() *Entry {
	return NewEntry(e.Data())
}

// Equal compares record contents only.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	return reflect.DeepEqual(e.Data(), other.Data())
}

// String implements fmt.Stringer.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry(%v)", e.Data())
}

// Snapshot is the serialized form of an Entry.
type Snapshot struct {
	Data         map[string]any `json:"data"`
	Dirty        bool           `json:"dirty"`
	LastAccessed *string        `json:"last_accessed"`
}

// snapshotLayouts are accepted when restoring; the first one is written.
var snapshotLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Snapshot captures the entry's record, dirty flag and access time.
func (e *Entry) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	data := make(map[string]any, len(e.data))
	maps.Copy(data, e.data)
	s := Snapshot{Data: data, Dirty: e.dirty}
	if !e.lastAccessed.IsZero() {
		ts := e.lastAccessed.Format(snapshotLayouts[0])
		s.LastAccessed = &ts
	}
	return s
}

// FromSnapshot rebuilds an entry from s.
func FromSnapshot(s Snapshot) (*Entry, error) {
	e := NewEntry(s.Data)
	e.dirty = s.Dirty
	if s.LastAccessed != nil && *s.LastAccessed != "" {
		ts, err := parseTimestamp(*s.LastAccessed)
		if err != nil {
			return nil, err
		}
		e.lastAccessed = ts
	}
	return e, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range snapshotLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cache: invalid last_accessed timestamp %q", s)
}
