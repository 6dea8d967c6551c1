package store

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/EcoScan/config"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(context.Background(), config.RedisConfig{
		URL:       "redis://" + mr.Addr(),
		KeyPrefix: "ecoscan:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newMiniredisStore(t)
	exerciseBlobStore(t, s)
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	s, mr := newMiniredisStore(t)

	require.NoError(t, s.Save(context.Background(), map[string][]byte{"ecoscan_points": []byte("70")}))

	v, err := mr.Get("ecoscan:ecoscan_points")
	require.NoError(t, err)
	assert.Equal(t, "70", v)
	assert.False(t, mr.Exists("ecoscan_points"))
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), config.RedisConfig{URL: "redis://" + addr})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestRedisStore_ServerGoneIsUnavailable(t *testing.T) {
	s, mr := newMiniredisStore(t)
	mr.Close()

	_, err := s.Load(context.Background(), "ecoscan_points")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	err = s.Save(context.Background(), map[string][]byte{"ecoscan_points": []byte("10")})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	assert.ErrorIs(t, s.Health(context.Background()), apperrors.ErrStoreUnavailable)
}

func TestRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), config.RedisConfig{URL: "not-a-url"})
	assert.Error(t, err)
}
