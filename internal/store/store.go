package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	pgx "github.com/jackc/pgx/v5"

	"github.com/rajasatyajit/EcoScan/config"
	"github.com/rajasatyajit/EcoScan/internal/database"
	"github.com/rajasatyajit/EcoScan/internal/logger"
)

// BlobStore persists independently keyed blobs. Save writes every given key
// or none of them; Load omits keys that were never saved.
type BlobStore interface {
	Name() string
	Load(ctx context.Context, keys ...string) (map[string][]byte, error)
	Save(ctx context.Context, blobs map[string][]byte) error
	Health(ctx context.Context) error
	Close() error
}

// Database interface for dependency injection
type Database interface {
	ExecTx(ctx context.Context, stmts ...database.Statement) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New opens the backend selected by cfg.Store.Backend
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil

	case config.BackendFile:
		return NewFileStore(cfg.Store.Path)

	case config.BackendSQLite:
		return OpenSQLiteStore(ctx, cfg.Store.SQLitePath)

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return NewPostgresStore(db, db.Close), nil

	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenSQLiteStore opens (creating if needed) a SQLite database file and
// applies the schema migrations
func OpenSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := database.Migrate(ctx, db, database.DialectSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	logger.Info("SQLite store opened", "path", path)
	return NewSQLStore(db, config.BackendSQLite), nil
}

// sortedKeys returns the keys of blobs in a stable order
func sortedKeys(blobs map[string][]byte) []string {
	keys := make([]string, 0, len(blobs))
	for k := range blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
