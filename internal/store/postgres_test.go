package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rajasatyajit/EcoScan/internal/database"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

type mockDB struct {
	ExecTxFn       func(ctx context.Context, stmts ...database.Statement) error
	QueryFn        func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	HealthFn       func(ctx context.Context) error
	IsConfiguredFn func() bool
}

func (m *mockDB) ExecTx(ctx context.Context, stmts ...database.Statement) error {
	if m.ExecTxFn != nil {
		return m.ExecTxFn(ctx, stmts...)
	}
	return nil
}
func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}
func (m *mockDB) Health(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn(ctx)
	}
	return nil
}
func (m *mockDB) IsConfigured() bool {
	if m.IsConfiguredFn != nil {
		return m.IsConfiguredFn()
	}
	return true
}

// fakeRows serves key/value pairs through the pgx.Rows interface
type fakeRows struct {
	data    [][2]any
	pos     int
	scanErr error
	err     error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1][:], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.pos-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*[]byte) = row[1].([]byte)
	return nil
}

func TestPostgresStore_Load(t *testing.T) {
	var gotSQL string
	var gotKeys []string
	rows := &fakeRows{data: [][2]any{
		{"ecoscan_history", []byte("[]")},
		{"ecoscan_points", []byte("10")},
	}}
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		gotSQL = sql
		gotKeys = args[0].([]string)
		return rows, nil
	}}

	got, err := NewPostgresStore(db, nil).Load(context.Background(), "ecoscan_history", "ecoscan_points")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if !strings.Contains(gotSQL, "ANY($1)") || len(gotKeys) != 2 {
		t.Errorf("unexpected query %q with %v", gotSQL, gotKeys)
	}
	if string(got["ecoscan_points"]) != "10" || string(got["ecoscan_history"]) != "[]" {
		t.Errorf("unexpected blobs %v", got)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestPostgresStore_Load_Errors(t *testing.T) {
	tests := []struct {
		name string
		db   *mockDB
		want string
	}{
		{
			name: "query error",
			db: &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return nil, errors.New("db error")
			}},
			want: "load blobs",
		},
		{
			name: "scan error",
			db: &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return &fakeRows{data: [][2]any{{"k", []byte("v")}}, scanErr: errors.New("bad column")}, nil
			}},
			want: "scan blob",
		},
		{
			name: "iteration error",
			db: &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return &fakeRows{err: errors.New("conn reset")}, nil
			}},
			want: "iterate blobs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPostgresStore(tt.db, nil).Load(context.Background(), "k")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestPostgresStore_Save_OneTransaction(t *testing.T) {
	var got []database.Statement
	db := &mockDB{ExecTxFn: func(ctx context.Context, stmts ...database.Statement) error {
		got = stmts
		return nil
	}}

	err := NewPostgresStore(db, nil).Save(context.Background(), map[string][]byte{
		"ecoscan_points":  []byte("20"),
		"ecoscan_history": []byte("[]"),
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 statements in one transaction, got %d", len(got))
	}
	if got[0].Args[0] != "ecoscan_history" || got[1].Args[0] != "ecoscan_points" {
		t.Errorf("statements not in key order: %v, %v", got[0].Args[0], got[1].Args[0])
	}
	if !strings.Contains(got[0].SQL, "ON CONFLICT (key)") {
		t.Errorf("unexpected SQL: %s", got[0].SQL)
	}
}

func TestPostgresStore_Save_PropagatesError(t *testing.T) {
	db := &mockDB{ExecTxFn: func(ctx context.Context, stmts ...database.Statement) error {
		return errors.New("serialization failure")
	}}
	err := NewPostgresStore(db, nil).Save(context.Background(), map[string][]byte{"k": []byte("v")})
	if err == nil || !strings.Contains(err.Error(), "save blobs") {
		t.Errorf("expected wrapped error, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestPostgresStore_HealthAndClose(t *testing.T) {
	closed := false
	db := &mockDB{HealthFn: func(ctx context.Context) error { return errors.New("down") }}
	s := NewPostgresStore(db, func() { closed = true })

	if err := s.Health(context.Background()); err == nil {
		t.Error("expected health error")
	}
	if err := s.Close(); err != nil || !closed {
		t.Errorf("expected close callback, err=%v closed=%v", err, closed)
	}
	if s.Name() != "postgres" {
		t.Errorf("unexpected name %s", s.Name())
	}
}
