package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// File stores each key as its own file under a directory. Keys are
// path-escaped so any string is a valid key.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file storage: create %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *File) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set writes through a temp file and rename so readers never see a torn record.
func (f *File) Set(key, value string) error {
	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (f *File) Remove(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
