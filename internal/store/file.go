package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rajasatyajit/EcoScan/config"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

// FileStore keeps every blob in one JSON document. Writes go to a temp file
// that is renamed over the document, so a crash leaves the old or the new
// document and never a torn one.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file store, creating its directory if needed
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Name() string { return config.BackendFile }

// Path returns the document location
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			out[k] = []byte(v)
		}
	}
	return out, nil
}

func (s *FileStore) Save(ctx context.Context, blobs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		if !errors.Is(err, apperrors.ErrCorruptState) {
			return err
		}
		// a corrupt document is replaced wholesale
		doc = map[string]string{}
	}
	for k, v := range blobs {
		doc[k] = string(v)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("commit store document: %w", err)
	}
	return nil
}

// Health checks that the document directory is writable
func (s *FileStore) Health(ctx context.Context) error {
	f, err := os.CreateTemp(filepath.Dir(s.path), ".health-*")
	if err != nil {
		return fmt.Errorf("store dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *FileStore) Close() error { return nil }

// read returns the current document; a missing file is an empty document
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store document: %w", err)
	}

	doc := map[string]string{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrCorruptState, s.path, err)
	}
	return doc, nil
}
