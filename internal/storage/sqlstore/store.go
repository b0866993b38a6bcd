// Package sqlstore implements storage.Storage on top of database/sql.
//
// Every query uses ? placeholders, which both supported drivers (sqlite3 and
// mysql) accept. What differs between engines (DDL, upsert syntax, how a
// constraint violation is reported) is supplied by a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/membership-api/internal/storage"
)

// Dialect describes one SQL engine.
type Dialect struct {
	Name string

	// Schema is executed statement by statement on startup. Every statement
	// must be idempotent (CREATE ... IF NOT EXISTS).
	Schema []string

	// UpsertIECMapping inserts or replaces one iec_mappings row. Arguments:
	// entity_type, code, iec_id, name, synced_at.
	UpsertIECMapping string

	// BackupInto copies the live database to the file named by its one
	// argument. Empty when the engine has no such statement; backups then
	// yield storage.ErrUnsupported.
	BackupInto string

	IsUniqueViolation     func(error) bool
	IsForeignKeyViolation func(error) bool
}

// querier is the subset of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store is the database/sql implementation of storage.Storage.
// A Store built by New talks to the pool; the Store handed to a WithTx
// callback talks to that transaction only.
type Store struct {
	db      *sql.DB
	q       querier
	inTx    bool
	dialect Dialect
}

var _ storage.Storage = (*Store)(nil)

// New runs the dialect's schema against db and returns a ready Store.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	for _, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("sqlstore.New: create schema (%s): %w", d.Name, err)
		}
	}
	return &Store{db: db, q: db, dialect: d}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

func (s *Store) WithTx(ctx context.Context, fn func(storage.Storage) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithTx: begin: %w", err)
	}

	txStore := &Store{db: s.db, q: tx, inTx: true, dialect: s.dialect}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("WithTx: rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WithTx: commit: %w", err)
	}
	return nil
}

// wrap maps driver errors onto the storage sentinels.
func (s *Store) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w (%v)", op, storage.ErrConflict, err)
	case s.dialect.IsForeignKeyViolation != nil && s.dialect.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w (%v)", op, storage.ErrReference, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// insert executes an INSERT and returns the generated primary key.
func (s *Store) insert(ctx context.Context, op, query string, args ...any) (int64, error) {
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.wrap(op+": exec", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return id, nil
}

// execOne executes a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return s.wrap(op+": exec", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// limitOr returns limit when it is positive and def otherwise.
func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
