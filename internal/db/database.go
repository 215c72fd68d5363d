package db

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/query"
	"github.com/electwix/pebble/internal/store"
)

// Database is a set of tables persisted through one store.
type Database struct {
	mu            sync.RWMutex
	identifier    string
	store         store.Store
	tables        map[string]*Table
	settings      settings
	scheduler     *cron.Cron
	stopped       chan struct{}
	lastFlushedAt time.Time
}

// Open loads every table document from st.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Database, error) {
	d := &Database{
		identifier: uuid.NewString(),
		store:      st,
		tables:     make(map[string]*Table),
		settings:   newSettings(opts),
	}
	names, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	for _, name := range names {
		if !ValidName(name) {
			d.settings.logger.Warn("skipping document with invalid table name", "name", name)
			continue
		}
		doc, err := st.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load table %q: %w", name, err)
		}
		doc.Name = name
		t, err := tableFromDocument(doc, st, d.settings)
		if err != nil {
			return nil, err
		}
		d.tables[name] = t
	}
	d.settings.logger.Debug("database opened", "tables", len(d.tables))
	return d, nil
}

// Identifier returns the database's UUID.
func (d *Database) Identifier() string { return d.identifier }

// CreateTable adds an empty table. definition may be nil.
func (d *Database) CreateTable(name string, definition map[string]any) (*Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrTableExists, name)
	}
	t, err := newTable(name, d.store, d.settings)
	if err != nil {
		return nil, err
	}
	if definition != nil {
		t.definition = maps.Clone(definition)
	}
	t.markDirty()
	d.tables[name] = t
	return t, nil
}

// Table returns the table called name.
func (d *Database) Table(name string) (*Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	if !ok {
		return nil, tableNotFound(name)
	}
	return t, nil
}

// GetOrCreateTable returns the table called name, creating it if needed.
func (d *Database) GetOrCreateTable(name string) (*Table, error) {
	t, err := d.CreateTable(name, nil)
	if errors.Is(err, ErrTableExists) {
		return d.Table(name)
	}
	return t, err
}

// DropTable removes a table and its stored document.
func (d *Database) DropTable(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; !ok {
		return tableNotFound(name)
	}
	if err := d.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	delete(d.tables, name)
	return nil
}

// Tables returns the table names in sorted order.
func (d *Database) Tables() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.tables))
}

// Query runs each query string over the database's tables.
func (d *Database) Query(exprs ...string) (query.Result, error) {
	d.mu.RLock()
	data := make(map[string]filter.Source, len(d.tables))
	for name, t := range d.tables {
		data[name] = t
	}
	d.mu.RUnlock()

	engine := query.NewEngine(data)
	if err := engine.SetQueries(exprs, d.settings.queryOptions()...); err != nil {
		return query.Result{}, err
	}
	return engine.Query()
}

// Commit saves every dirty table. Tables that fail to save stay dirty; their
// errors are joined.
func (d *Database) Commit(ctx context.Context) error {
	d.mu.RLock()
	tables := make([]*Table, 0, len(d.tables))
	for _, name := range slices.Sorted(maps.Keys(d.tables)) {
		tables = append(tables, d.tables[name])
	}
	d.mu.RUnlock()

	var errs []error
	flushed := 0
	for _, t := range tables {
		if !t.IsDirty() {
			continue
		}
		if err := t.Commit(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		flushed++
	}

	d.mu.Lock()
	d.lastFlushedAt = d.settings.clock.Now()
	d.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		d.settings.logger.Error("flush failed", "flushed", flushed, "failed", len(errs), "err", err)
		return err
	}
	if flushed > 0 {
		d.settings.logger.Info("flushed tables", "count", flushed)
	}
	return nil
}

// LastFlushedAt returns when Commit last ran.
func (d *Database) LastFlushedAt() (time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastFlushedAt, !d.lastFlushedAt.IsZero()
}

// Start commits dirty tables every interval until Stop is called or ctx is
// done. A non-positive interval disables scheduled flushing.
func (d *Database) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	d.Stop()

	logger := cronLogger{d.settings.logger}
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := scheduler.AddFunc(flushSpec(interval), func() {
		if ctx.Err() != nil {
			return
		}
		_ = d.Commit(ctx)
	}); err != nil {
		return fmt.Errorf("schedule flush every %s: %w", interval, err)
	}

	stopped := make(chan struct{})
	d.mu.Lock()
	d.scheduler = scheduler
	d.stopped = stopped
	d.mu.Unlock()
	scheduler.Start()
	d.settings.logger.Debug("scheduled flushing", "interval", interval)

	go func() {
		select {
		case <-ctx.Done():
			d.stop(scheduler)
		case <-stopped:
		}
	}()
	return nil
}

// Stop halts scheduled flushing and waits for a running flush to finish.
func (d *Database) Stop() {
	d.stop(nil)
}

// stop halts the running scheduler. A non-nil owner only stops the scheduler
// if it is still the one installed.
func (d *Database) stop(owner *cron.Cron) {
	d.mu.Lock()
	scheduler, stopped := d.scheduler, d.stopped
	if scheduler == nil || (owner != nil && owner != scheduler) {
		d.mu.Unlock()
		return
	}
	d.scheduler, d.stopped = nil, nil
	d.mu.Unlock()
	close(stopped)
	<-scheduler.Stop().Done()
}

// Scheduled reports whether scheduled flushing is running.
func (d *Database) Scheduled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scheduler != nil
}

// Close stops scheduled flushing, commits dirty tables and closes the store.
func (d *Database) Close(ctx context.Context) error {
	d.Stop()
	return errors.Join(d.Commit(ctx), d.store.Close())
}
