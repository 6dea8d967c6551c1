package store

import (
	"context"
	"sync"

	"github.com/rajasatyajit/EcoScan/config"
)

// MemoryStore implements BlobStore in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Name() string { return config.BackendMemory }

// Load returns copies of the stored blobs
func (s *MemoryStore) Load(ctx context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.blobs[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Save swaps in a new map so readers never see a partial write
func (s *MemoryStore) Save(ctx context.Context, blobs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string][]byte, len(s.blobs)+len(blobs))
	for k, v := range s.blobs {
		next[k] = v
	}
	for k, v := range blobs {
		next[k] = append([]byte(nil), v...)
	}
	s.blobs = next
	return nil
}

// Health always succeeds for memory store
func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error { return nil }
