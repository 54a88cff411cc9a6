package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps one pretty-printed JSON array per collection in dir.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and initialises any missing
// collection file to an empty array.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	b := &FileBackend{dir: dir}
	for _, c := range Collections {
		if _, err := os.Stat(b.path(c)); errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(b.path(c), []byte("[]"), 0o644); err != nil {
				return nil, fmt.Errorf("failed to initialise %s: %w", c, err)
			}
		}
	}
	return b, nil
}

func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(c Collection) string {
	return filepath.Join(b.dir, string(c)+".json")
}

func (b *FileBackend) Read(_ context.Context, c Collection) ([]byte, error) {
	data, err := os.ReadFile(b.path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Write goes through a temp file and rename so readers never observe a
// partially written collection.
func (b *FileBackend) Write(_ context.Context, c Collection, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, string(c)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path(c))
}

func (b *FileBackend) Ping(_ context.Context) error {
	_, err := os.Stat(b.dir)
	return err
}
