// Package fileset discovers persisted table documents on disk.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Resolver lists the documents stored in the root of a filesystem.
type Resolver struct {
	fsys fs.FS
}

// NewResolver returns a Resolver over fsys.
func NewResolver(fsys fs.FS) Resolver {
	return Resolver{fsys: fsys}
}

// NewOSResolver returns a Resolver over the directory base, which must
// exist.
func NewOSResolver(base string) (Resolver, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return Resolver{}, fmt.Errorf("resolve base %q: %w", base, err)
	}
	info, err := os.Stat(absBase)
	if err != nil {
		return Resolver{}, fmt.Errorf("stat base %q: %w", absBase, err)
	}
	if !info.IsDir() {
		return Resolver{}, fmt.Errorf("base %q is not a directory", absBase)
	}
	return Resolver{fsys: os.DirFS(absBase)}, nil
}

// Documents returns the names of the regular files in the root that end in
// ext, with ext removed, sorted. Subdirectories are not searched.
func (r Resolver) Documents(ext string) ([]string, error) {
	files, err := r.files(ext)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(f, ext)
	}
	return names, nil
}

func (r Resolver) files(ext string) ([]string, error) {
	if r.fsys == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	if ext == "" || strings.ContainsAny(ext, `/*?[\`) {
		return nil, fmt.Errorf("fileset: invalid document extension %q", ext)
	}
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("fileset: list documents: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, ext) || name == ext {
			continue
		}
		files = append(files, name)
	}
	slices.Sort(files)
	return files, nil
}
