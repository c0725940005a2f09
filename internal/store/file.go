// internal/store/file.go
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileStore keeps one file per key under a directory.
type FileStore struct {
	fs  afero.Fs
	dir string
	log *zap.Logger
}

var _ KV = (*FileStore)(nil)

// NewFileStore creates dir on fs if needed.
func NewFileStore(fs afero.Fs, dir string, logger *zap.Logger) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &FileStore{fs: fs, dir: dir, log: logger.Named("store")}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// Get implements KV.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, nil
}

// Put implements KV. The value is written to a temporary file and renamed
// into place so readers never observe a partial write.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	final := s.path(key)
	tmp := final + "." + uuid.NewString() + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		if rmErr := s.fs.Remove(tmp); rmErr != nil {
			s.log.Debug("Failed to remove temp file.", zap.String("path", tmp), zap.Error(rmErr))
		}
		return fmt.Errorf("failed to commit %q: %w", key, err)
	}
	return nil
}

// Delete implements KV. Deleting a missing key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
