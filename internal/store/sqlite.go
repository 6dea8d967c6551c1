package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

const sqlUpsertBlob = `INSERT INTO ledger_blobs (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLStore implements BlobStore on a database/sql handle with ?-style
// placeholders. It backs the sqlite backend.
type SQLStore struct {
	db      *sql.DB
	backend string
	now     func() time.Time
}

// NewSQLStore wraps an already migrated database
func NewSQLStore(db *sql.DB, backend string) *SQLStore {
	return &SQLStore{db: db, backend: backend, now: time.Now}
}

func (s *SQLStore) Name() string { return s.backend }

func (s *SQLStore) Load(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := "SELECT key, value FROM ledger_blobs WHERE key IN (" + placeholders(len(keys)) + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load blobs: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan blob: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blobs: %w", err)
	}
	return out, nil
}

// Save upserts every blob in one transaction
func (s *SQLStore) Save(ctx context.Context, blobs map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w: %w", apperrors.ErrStoreUnavailable, err)
	}

	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, k := range sortedKeys(blobs) {
		if _, err := tx.ExecContext(ctx, sqlUpsertBlob, k, blobs[k], updatedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save blob %s: %w: %w", k, apperrors.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit blobs: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error { return s.db.Close() }

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
