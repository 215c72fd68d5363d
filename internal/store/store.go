// Package store persists pebble table documents.
//
// A Document is the serialized form of one table. Two backends implement
// Store: JSONStore keeps one <name>.json file per table and SQLiteStore keeps
// every document as a row of a single SQLite database.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when no document exists under the name.
var ErrNotFound = errors.New("store: document not found")

// Entries holds a table's records keyed by identifier.
type Entries struct {
	Total  int                       `json:"total"`
	Values map[string]map[string]any `json:"values"`
}

// Document is the persisted form of a table.
type Document struct {
	Name       string         `json:"name"`
	Identifier string         `json:"identifier"`
	Definition map[string]any `json:"definition"`
	Entries    Entries        `json:"entries"`
	Path       string         `json:"path,omitempty"`
}

// Store loads and saves documents by table name.
type Store interface {
	Load(ctx context.Context, name string) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

func notFound(name string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

func encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document %q: %w", doc.Name, err)
	}
	return data, nil
}

// decode keeps numbers as json.Number so integer identifiers and large
// values survive a round trip unchanged.
func decode(name string, data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", name, err)
	}
	if doc.Entries.Values == nil {
		doc.Entries.Values = make(map[string]map[string]any)
	}
	if doc.Definition == nil {
		doc.Definition = make(map[string]any)
	}
	return &doc, nil
}
