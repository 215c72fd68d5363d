package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/electwix/pebble/internal/fileset"
)

// File permission constants for stored documents.
const (
	dirPerm  = 0o750 // rwxr-x---
	filePerm = 0o600 // rw-------
)

const documentExt = ".json"

// JSONStore keeps each document in <dir>/<name>.json. Writes go to a
// temporary file that is renamed over the target, so a crash never leaves a
// half-written document behind.
type JSONStore struct {
	dir string
}

// NewJSONStore creates dir if needed and returns a store rooted there.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *JSONStore) Dir() string { return s.dir }

// Path returns the file a document with the given name is stored in.
func (s *JSONStore) Path(name string) string {
	return filepath.Join(s.dir, sanitizeName(name)+documentExt)
}

// Load reads the document stored under name.
func (s *JSONStore) Load(ctx context.Context, name string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(s.Path(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", name, err)
	}
	return decode(name, data)
}

// Save writes doc atomically and records the file path on it.
func (s *JSONStore) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(doc.Name)
	doc.Path = path
	data, err := encode(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, sanitizeName(doc.Name)+documentExt+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write document %q: %w", doc.Name, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod document %q: %w", doc.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document %q: %w", doc.Name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace document %q: %w", doc.Name, err)
	}
	return nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (s *JSONStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document %q: %w", name, err)
	}
	return nil
}

// List returns the stored document names in sorted order.
func (s *JSONStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolver, err := fileset.NewOSResolver(s.dir)
	if err != nil {
		return nil, err
	}
	return resolver.Documents(documentExt)
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// sanitizeName makes a table name safe for use as a file name.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

var _ Store = (*JSONStore)(nil)
