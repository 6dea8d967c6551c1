package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/rajasatyajit/EcoScan/internal/logger"
)

//go:embed migrations
var migrations embed.FS

// Migration dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Migrate applies the embedded schema migrations for dialect to db.
// It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	var gooseDialect goose.Dialect
	switch dialect {
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	fsys, err := fs.Sub(migrations, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply %s migrations: %w", dialect, err)
	}

	for _, r := range results {
		logger.Info("Applied migration",
			"dialect", dialect,
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return nil
}
