package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "ledger.json"))
	require.NoError(t, err)
	exerciseBlobStore(t, s)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ctx := context.Background()

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, map[string][]byte{"ecoscan_points": []byte("30")}))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := second.Load(ctx, "ecoscan_points")
	require.NoError(t, err)
	assert.Equal(t, "30", string(got["ecoscan_points"]))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "ecoscan_history")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorruptState))

	// the next save replaces the corrupt document
	require.NoError(t, s.Save(context.Background(), map[string][]byte{"ecoscan_points": []byte("10")}))
	got, err := s.Load(context.Background(), "ecoscan_points")
	require.NoError(t, err)
	assert.Equal(t, "10", string(got["ecoscan_points"]))
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := s.Load(context.Background(), "ecoscan_history")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
