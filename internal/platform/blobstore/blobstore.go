// Package blobstore persists uploaded record documents. The sharing flow
// stores the document first and keeps the returned path in the share row;
// the two steps are not transactional, so a failed row insert can leave an
// orphaned blob behind for the caller to log.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrMissingName  = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed document size in bytes (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// Store is the contract for document storage backends.
type Store interface {
	// Persist writes the content under a generated name and returns the path
	// to record alongside the share row.
	Persist(ctx context.Context, name string, content io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// FS stores documents as files under a single upload directory. Stored names
// are generated UUIDs with the original extension, so callers cannot collide
// or traverse outside the directory.
type FS struct {
	dir string
}

func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &FS{dir: dir}, nil
}

func (s *FS) Persist(_ context.Context, name string, content io.Reader) (string, error) {
	if name == "" {
		return "", ErrMissingName
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	stored := uuid.New().String() + strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.dir, stored)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", stored, err)
	}
	return path, nil
}

func (s *FS) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if !s.contains(path) {
		return nil, ErrNotFound
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", path, err)
	}
	return f, nil
}

func (s *FS) Remove(_ context.Context, path string) error {
	if !s.contains(path) {
		return ErrNotFound
	}
	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("remove blob %s: %w", path, err)
	}
	return nil
}

// contains reports whether path points inside the upload directory.
func (s *FS) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Memory is a thread-safe in-memory Store for tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (s *Memory) Persist(_ context.Context, name string, content io.Reader) (string, error) {
	if name == "" {
		return "", ErrMissingName
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	path := "mem/" + uuid.New().String() + strings.ToLower(filepath.Ext(name))
	s.mu.Lock()
	s.blobs[path] = data
	s.mu.Unlock()
	return path, nil
}

func (s *Memory) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Memory) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, path)
	return nil
}

// Len reports the number of stored blobs. Test helper.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
