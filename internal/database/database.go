package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/rajasatyajit/EcoScan/config"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/metrics"
)

// ErrNotConfigured is returned by every operation on a DB without a pool
var ErrNotConfigured = errors.New("database not configured")

// DB represents a database connection
type DB struct {
	pool *pgxpool.Pool
	cfg  config.DatabaseConfig
}

// Statement is one SQL statement with its arguments
type Statement struct {
	SQL  string
	Args []any
}

// New creates a new database connection
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		logger.Info("DATABASE_URL not set; database disabled")
		return &DB{pool: nil, cfg: cfg}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug("Database connection established")
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{pool: pool, cfg: cfg}

	go db.collectMetrics(ctx)

	logger.Info("Database connection established",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
		logger.Info("Database connection closed")
	}
}

// collectMetrics periodically collects database metrics
func (d *DB) collectMetrics(ctx context.Context) {
	if d.pool == nil {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := d.pool.Stat()
			metrics.SetDBConnectionsActive(float64(stat.AcquiredConns()))
		}
	}
}

// Migrate applies the embedded postgres migrations through a database/sql
// handle sharing this pool
func (d *DB) Migrate(ctx context.Context) error {
	if d.pool == nil {
		return ErrNotConfigured
	}
	sqlDB := stdlib.OpenDBFromPool(d.pool)
	defer sqlDB.Close()
	return Migrate(ctx, sqlDB, DialectPostgres)
}

// Exec executes a statement
func (d *DB) Exec(ctx context.Context, sql string, args ...any) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	start := time.Now()
	defer func() {
		logger.Debug("Database exec",
			"sql", sql,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := d.pool.Exec(ctx, sql, args...)
	recordQuery("exec", err)
	if err != nil {
		logger.Error("Database exec failed", "error", err, "sql", sql)
	}
	return err
}

// ExecTx runs statements in one transaction, rolling back on the first failure
func (d *DB) ExecTx(ctx context.Context, stmts ...Statement) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil
	})
	recordQuery("tx", err)
	if err != nil {
		logger.Error("Database transaction failed", "error", err, "statements", len(stmts))
	}
	return err
}

// Query executes a query and returns rows. The caller closes them.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if d.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := d.pool.Query(ctx, sql, args...)
	recordQuery("query", err)
	if err != nil {
		logger.Error("Database query failed", "error", err, "sql", sql)
	}
	return rows, err
}

// QueryRow executes a query that returns a single row
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.pool == nil {
		return nil
	}
	return d.pool.QueryRow(ctx, sql, args...)
}

// Health checks database connectivity
func (d *DB) Health(ctx context.Context) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return d.pool.Ping(ctx)
}

// IsConfigured returns true if database is configured
func (d *DB) IsConfigured() bool {
	return d.pool != nil
}

func recordQuery(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDBQuery(operation, status)
}
