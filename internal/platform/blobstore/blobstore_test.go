package blobstore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return map[string]Store{"fs": fs, "memory": NewMemory()}
}

func TestPersistAndOpen(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path, err := store.Persist(ctx, "report.pdf", strings.NewReader("dummy pdf bytes"))
			if err != nil {
				t.Fatalf("Persist: %v", err)
			}
			if filepath.Ext(path) != ".pdf" {
				t.Errorf("stored path should keep the extension, got %s", path)
			}

			rc, err := store.Open(ctx, path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != "dummy pdf bytes" {
				t.Errorf("content mismatch: %q", data)
			}
		})
	}
}

func TestPersistRequiresName(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Persist(context.Background(), "", strings.NewReader("x"))
			if !errors.Is(err, ErrMissingName) {
				t.Errorf("expected ErrMissingName, got %v", err)
			}
		})
	}
}

func TestPersistGeneratesUniquePaths(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, err := store.Persist(ctx, "scan.png", strings.NewReader("a"))
			if err != nil {
				t.Fatalf("Persist a: %v", err)
			}
			b, err := store.Persist(ctx, "scan.png", strings.NewReader("b"))
			if err != nil {
				t.Fatalf("Persist b: %v", err)
			}
			if a == b {
				t.Error("same upload name must not collide")
			}
		})
	}
}

func TestRemove(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path, err := store.Persist(ctx, "note.txt", strings.NewReader("x"))
			if err != nil {
				t.Fatalf("Persist: %v", err)
			}
			if err := store.Remove(ctx, path); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, err := store.Open(ctx, path); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after remove, got %v", err)
			}
			if err := store.Remove(ctx, path); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on double remove, got %v", err)
			}
		})
	}
}

func TestFSRejectsPathsOutsideDir(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if _, err := fs.Open(context.Background(), "/etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for path outside dir, got %v", err)
	}
	if err := fs.Remove(context.Background(), "../elsewhere.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for traversal path, got %v", err)
	}
}
