// Package db holds pebble tables and databases.
//
// A Table is a set of records keyed by identifier, backed by a read cache
// and persisted through a store.Store. A Database is a named set of tables
// opened from one store; it runs multi-table queries and can flush dirty
// tables on a schedule.
package db
