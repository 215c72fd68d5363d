package db

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/electwix/pebble/internal/cache"
	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/store"
)

// DefaultDefinition returns the empty table definition written for new
// tables.
func DefaultDefinition() map[string]any {
	return map[string]any{
		"constraints": map[string]any{},
		"fields":      map[string]any{},
		"indexes":     []any{},
		"primary_key": "",
		"references":  map[string]any{},
		"required":    []any{},
		"unique":      []any{},
	}
}

// Table is a set of records keyed by string identifier. Reads go through a
// cache that is invalidated on every write.
type Table struct {
	mu            sync.RWMutex
	name          string
	identifier    string
	definition    map[string]any
	values        map[string]map[string]any
	path          string
	dirty         bool
	version       uint64
	lastFlushedAt time.Time

	cache    *cache.Cache
	store    store.Store
	settings settings
}

// NewTable returns an empty table. st may be nil for a table that is never
// committed.
func NewTable(name string, st store.Store, opts ...Option) (*Table, error) {
	return newTable(name, st, newSettings(opts))
}

func newTable(name string, st store.Store, s settings) (*Table, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return &Table{
		name:       name,
		identifier: uuid.NewString(),
		definition: DefaultDefinition(),
		values:     make(map[string]map[string]any),
		cache:      s.newCache(),
		store:      st,
		settings:   s,
	}, nil
}

func tableFromDocument(doc *store.Document, st store.Store, s settings) (*Table, error) {
	t, err := newTable(doc.Name, st, s)
	if err != nil {
		return nil, err
	}
	if doc.Identifier != "" {
		id, err := uuid.Parse(doc.Identifier)
		if err != nil {
			return nil, fmt.Errorf("table %q: invalid identifier %q: %w", doc.Name, doc.Identifier, err)
		}
		t.identifier = id.String()
	}
	if len(doc.Definition) > 0 {
		t.definition = maps.Clone(doc.Definition)
	}
	for id, rec := range doc.Entries.Values {
		t.values[id] = maps.Clone(rec)
	}
	t.path = doc.Path
	return t, nil
}

// ValidName reports whether name can be addressed by a filter clause.
func ValidName(name string) bool {
	tokens, err := filter.Tokenize(name)
	return err == nil && len(tokens) == 1 && tokens[0].Kind == filter.TokenIdent
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Identifier returns the table's UUID.
func (t *Table) Identifier() string { return t.identifier }

// Path returns where the table was last saved, if known.
func (t *Table) Path() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.path
}

// Definition returns a copy of the table definition.
func (t *Table) Definition() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.definition)
}

// Cache returns the table's read cache.
func (t *Table) Cache() *cache.Cache { return t.cache }

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// IsEmpty reports whether the table has no records.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// Set inserts record under the next free identifier and returns it.
// Identifiers count up from the number of records: "0", "1", ...
func (t *Table) Set(record map[string]any) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID()
	if err := t.put(id, record); err != nil {
		return "", err
	}
	return id, nil
}

// Put writes record under id, replacing any record already there.
func (t *Table) Put(id string, record map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.put(id, record)
}

// BulkSet inserts every record and returns their identifiers. It stops at
// the first record that does not fit.
func (t *Table) BulkSet(records []map[string]any) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		id := t.nextID()
		if err := t.put(id, rec); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *Table) nextID() string {
	n := len(t.values)
	for {
		id := strconv.Itoa(n)
		if _, taken := t.values[id]; !taken {
			return id
		}
		n++
	}
}

func (t *Table) put(id string, record map[string]any) error {
	if _, exists := t.values[id]; !exists && len(t.values)+1 > t.settings.sizeLimit {
		return &SizeExceededError{Name: t.name, Limit: t.settings.sizeLimit}
	}
	t.values[id] = maps.Clone(record)
	if t.values[id] == nil {
		t.values[id] = make(map[string]any)
	}
	t.cache.Delete(id)
	t.markDirty()
	return nil
}

// Get returns a copy of the record under id.
func (t *Table) Get(id string) (map[string]any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rec, err := t.cache.Get(id); err == nil {
		return rec, nil
	}
	rec, ok := t.values[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q in table %q", ErrRecordNotFound, id, t.name)
	}
	t.cache.Set(id, rec)
	return maps.Clone(rec), nil
}

// GetMany returns the records found under ids. Unknown identifiers are
// left out.
func (t *Table) GetMany(ids []string) map[string]map[string]any {
	out := make(map[string]map[string]any, len(ids))
	for _, id := range ids {
		if rec, err := t.Get(id); err == nil {
			out[id] = rec
		}
	}
	return out
}

// Has reports whether a record exists under id.
func (t *Table) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.values[id]
	return ok
}

// Remove deletes the record under id and reports whether it existed.
func (t *Table) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove(id)
}

// BulkRemove deletes every record in ids and reports whether all of them
// existed.
func (t *Table) BulkRemove(ids []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := true
	for _, id := range ids {
		if !t.remove(id) {
			all = false
		}
	}
	return all
}

func (t *Table) remove(id string) bool {
	if _, ok := t.values[id]; !ok {
		return false
	}
	delete(t.values, id)
	t.cache.Delete(id)
	t.markDirty()
	return true
}

// All returns a copy of every record keyed by identifier.
func (t *Table) All() map[string]map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]map[string]any, len(t.values))
	for id, rec := range t.values {
		out[id] = maps.Clone(rec)
	}
	return out
}

// Records returns copies of the records in identifier order. It makes a
// Table a filter.Source.
func (t *Table) Records() []filter.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.values))
	for id := range t.values {
		ids = append(ids, id)
	}
	filter.SortKeys(ids)
	out := make([]filter.Record, len(ids))
	for i, id := range ids {
		out[i] = maps.Clone(t.values[id])
	}
	return out
}

// Filter returns the records matching every clause. The table segment of
// each clause is not checked against the table name.
func (t *Table) Filter(exprs ...string) (filter.Result, error) {
	clauses := make([]*filter.Clause, 0, len(exprs))
	for _, expr := range exprs {
		c, err := filter.ParseClause(expr, filter.WithFlag(t.settings.flag))
		if err != nil {
			return filter.Result{}, err
		}
		clauses = append(clauses, c)
	}
	engine := filter.NewEngine(t)
	engine.SetFilters(clauses, filter.And, t.settings.scope)
	return engine.Filter()
}

// CheckForSize returns a *SizeExceededError if the table holds more records
// than its limit.
func (t *Table) CheckForSize() error {
	if t.Len() > t.settings.sizeLimit {
		return &SizeExceededError{Name: t.name, Limit: t.settings.sizeLimit}
	}
	return nil
}

// IsDirty reports whether the table changed since it was last committed.
func (t *Table) IsDirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dirty
}

// MarkDirty flags the table for the next commit.
func (t *Table) MarkDirty() {
	t.mu.Lock()
	t.markDirty()
	t.mu.Unlock()
}

// MarkClean clears the dirty flag.
func (t *Table) MarkClean() {
	t.mu.Lock()
	t.dirty = false
	t.mu.Unlock()
}

func (t *Table) markDirty() {
	t.dirty = true
	t.version++
}

// LastFlushedAt returns when the table was last committed.
func (t *Table) LastFlushedAt() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastFlushedAt, !t.lastFlushedAt.IsZero()
}

// Document returns the persisted form of the table.
func (t *Table) Document() *store.Document {
	doc, _ := t.document()
	return doc
}

func (t *Table) document() (*store.Document, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	values := make(map[string]map[string]any, len(t.values))
	for id, rec := range t.values {
		values[id] = maps.Clone(rec)
	}
	return &store.Document{
		Name:       t.name,
		Identifier: t.identifier,
		Definition: maps.Clone(t.definition),
		Entries:    store.Entries{Total: len(values), Values: values},
		Path:       t.path,
	}, t.version
}

// Commit saves the table through its store. The table stays dirty if it
// was written to while the save ran.
func (t *Table) Commit(ctx context.Context) error {
	if t.store == nil {
		return fmt.Errorf("%w: %q", ErrNoStore, t.name)
	}
	doc, version := t.document()
	if err := t.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("commit table %q: %w", t.name, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.path = doc.Path
	t.lastFlushedAt = t.settings.clock.Now()
	if t.version == version {
		t.dirty = false
	}
	return nil
}

// String returns a short description of the table.
func (t *Table) String() string {
	n := t.Len()
	noun := "entries"
	if n == 1 {
		noun = "entry"
	}
	return fmt.Sprintf("Table(name=%s, identifier=%s, %d %s)", t.name, t.identifier, n, noun)
}
