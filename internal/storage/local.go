package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalImageStore writes face crops under a base directory, one file per
// key. Writes go to a temp file first and are renamed into place, so readers
// never observe a partial image.
type LocalImageStore struct {
	dir string
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalImageStore{dir: dir}, nil
}

func (s *LocalImageStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *LocalImageStore) Save(_ context.Context, key string, data []byte) error {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("save image %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".img-*")
	if err != nil {
		return fmt.Errorf("save image %s: %w", key, err)
	}
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("save image %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("save image %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save image %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("save image %s: %w", key, err)
	}
	tmp = nil
	return nil
}

func (s *LocalImageStore) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load image %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("load image %s: %w", key, err)
	}
	return data, nil
}
