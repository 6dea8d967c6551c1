package store

import (
	"context"
	"fmt"

	"github.com/rajasatyajit/EcoScan/config"
	"github.com/rajasatyajit/EcoScan/internal/database"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

const (
	pgSelectBlobs = `SELECT key, value FROM ledger_blobs WHERE key = ANY($1)`
	pgUpsertBlob  = `
		INSERT INTO ledger_blobs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
)

// PostgresStore implements BlobStore using PostgreSQL
type PostgresStore struct {
	db    Database
	close func()
}

// NewPostgresStore creates a new PostgreSQL store. closeFn releases the
// underlying pool and may be nil.
func NewPostgresStore(db Database, closeFn func()) *PostgresStore {
	return &PostgresStore{db: db, close: closeFn}
}

func (s *PostgresStore) Name() string { return config.BackendPostgres }

func (s *PostgresStore) Load(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, pgSelectBlobs, keys)
	if err != nil {
		return nil, fmt.Errorf("load blobs: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

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
func (s *PostgresStore) Save(ctx context.Context, blobs map[string][]byte) error {
	stmts := make([]database.Statement, 0, len(blobs))
	for _, k := range sortedKeys(blobs) {
		stmts = append(stmts, database.Statement{SQL: pgUpsertBlob, Args: []any{k, blobs[k]}})
	}
	if len(stmts) == 0 {
		return nil
	}
	if err := s.db.ExecTx(ctx, stmts...); err != nil {
		return fmt.Errorf("save blobs: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
