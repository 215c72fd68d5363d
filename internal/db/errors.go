package db

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeExceeded is returned when a table would hold more records than
	// its size limit.
	ErrSizeExceeded = errors.New("db: size limit exceeded")
	// ErrTableExists is returned by CreateTable for a name already in use.
	ErrTableExists = errors.New("db: table already exists")
	// ErrTableNotFound is returned when no table has the requested name.
	ErrTableNotFound = errors.New("db: table not found")
	// ErrInvalidName is returned for table names a clause could not address.
	ErrInvalidName = errors.New("db: invalid table name")
	// ErrRecordNotFound is returned by Get for an unknown identifier.
	ErrRecordNotFound = errors.New("db: record not found")
	// ErrNoStore is returned by Commit on a table that has no store.
	ErrNoStore = errors.New("db: table has no store")
)

// SizeExceededError names the table whose size limit was hit.
type SizeExceededError struct {
	Name  string
	Limit int
}

// Error implements the error interface.
func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("table %q exceeds the size limit of %d records", e.Name, e.Limit)
}

// Unwrap returns ErrSizeExceeded.
func (e *SizeExceededError) Unwrap() error { return ErrSizeExceeded }

func tableNotFound(name string) error {
	return fmt.Errorf("%w: %q", ErrTableNotFound, name)
}
