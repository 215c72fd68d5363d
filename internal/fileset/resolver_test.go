package fileset

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestResolverDocuments(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"users.json":                &fstest.MapFile{Mode: fs.ModePerm},
		"orders.json":               &fstest.MapFile{Mode: fs.ModePerm},
		"orders.json.1234.tmp":      &fstest.MapFile{Mode: fs.ModePerm},
		"nested/more.json":          &fstest.MapFile{Mode: fs.ModePerm},
		"dir.json":                  &fstest.MapFile{Mode: fs.ModeDir | fs.ModePerm},
		".json":                     &fstest.MapFile{Mode: fs.ModePerm},
		"pebble.toml":               &fstest.MapFile{Mode: fs.ModePerm},
		"kunden_straße.json":        &fstest.MapFile{Mode: fs.ModePerm},
		"snapshots/users.json.bak":  &fstest.MapFile{Mode: fs.ModePerm},
		"archive/2024/orders.json":  &fstest.MapFile{Mode: fs.ModePerm},
		"archive/2024/readme.md":    &fstest.MapFile{Mode: fs.ModePerm},
		"archive/2024/users.json":   &fstest.MapFile{Mode: fs.ModePerm},
		"archive/2024/vendors.json": &fstest.MapFile{Mode: fs.ModePerm},
	}
	names, err := NewResolver(fsys).Documents(".json")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if diff := cmp.Diff([]string{"kunden_straße", "orders", "users"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	empty, err := NewResolver(fstest.MapFS{}).Documents(".json")
	if err != nil || len(empty) != 0 {
		t.Fatalf("Documents on empty fs = %v, %v", empty, err)
	}
}

func TestResolverDocumentsErrors(t *testing.T) {
	t.Parallel()

	r := NewResolver(fstest.MapFS{})
	for _, ext := range []string{"", "*.json", "a/b", "[x]"} {
		if _, err := r.Documents(ext); err == nil {
			t.Errorf("Documents(%q): expected error", ext)
		}
	}
	if _, err := (Resolver{}).Documents(".json"); err == nil {
		t.Fatal("expected error for a resolver without a filesystem")
	}
}

func TestNewOSResolver(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := NewOSResolver(dir)
	if err != nil {
		t.Fatalf("NewOSResolver: %v", err)
	}
	names, err := r.Documents(".json")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if diff := cmp.Diff([]string{"users"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewOSResolver(filepath.Join(dir, "users.json")); err == nil {
		t.Fatal("expected error for a file base")
	}
	if _, err := NewOSResolver(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for a missing base")
	}
}
