// internal/store/file_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMemFileStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(fs, "/data/store", zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, fs
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, fs := newMemFileStore(t)

	_, err := s.Get(ctx, GainsKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, GainsKey, []byte(`{"dragGain":1.2}`)))
	got, err := s.Get(ctx, GainsKey)
	require.NoError(t, err)
	assert.Equal(t, `{"dragGain":1.2}`, string(got))

	require.NoError(t, s.Put(ctx, GainsKey, []byte(`{"dragGain":0.4}`)))
	got, err = s.Get(ctx, GainsKey)
	require.NoError(t, err)
	assert.Equal(t, `{"dragGain":0.4}`, string(got))

	// Keys with separators map to a single escaped file and no temp files linger.
	entries, err := afero.ReadDir(fs, "/data/store")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scrolllab:gains.json", entries[0].Name())
}

func TestFileStore_EscapesKeys(t *testing.T) {
	s, _ := newMemFileStore(t)
	p := s.path("scrolllab:part1:progress:../../etc")
	assert.Equal(t, "/data/store", filepath.Dir(p))
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemFileStore(t)
	require.NoError(t, s.Delete(ctx, "never-written"))
	require.NoError(t, s.Put(ctx, "k", []byte("{}")))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_ReadOnlyFs(t *testing.T) {
	ctx := context.Background()
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/ro", 0o755))

	_, err := NewFileStore(afero.NewReadOnlyFs(base), "/ro", zaptest.NewLogger(t))
	assert.Error(t, err)

	s := &FileStore{fs: afero.NewReadOnlyFs(base), dir: "/ro", log: zaptest.NewLogger(t)}
	assert.Error(t, s.Put(ctx, "k", []byte("{}")))
}
