// Package sqlite opens a SQLite database file and returns a storage.Storage
// backed by it.
//
// SQLite stores everything in a single file on disk: no network, no server
// process, nothing to install beyond the driver. It is the default backend
// for development and the one the tests run against.
//
// The blank import registers the "sqlite3" driver with database/sql. The
// named import gives access to sqlite3.Error so constraint violations can be
// told apart from other failures.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/membership-api/internal/storage/sqlstore"
)

// New opens the SQLite file at path, creates the schema if it does not
// already exist, and returns a ready-to-use store.
//
// Foreign keys are off by default in SQLite; the _foreign_keys DSN option
// turns them on for every pooled connection.
func New(ctx context.Context, path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}
	return store, nil
}

// dsn adds the connection options every pooled connection needs:
//   - _foreign_keys: enforce REFERENCES clauses;
//   - _busy_timeout: wait up to 5s for a lock instead of failing at once;
//   - _txlock=immediate: BEGIN takes the write lock up front. A deferred
//     transaction that reads and then writes cannot wait for a concurrent
//     writer and fails with "database is locked" regardless of the timeout.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// Dialect is the SQLite flavour of the schema and error classification.
var Dialect = sqlstore.Dialect{
	Name:   "sqlite3",
	Schema: schema,
	UpsertIECMapping: `
		INSERT INTO iec_mappings (entity_type, code, iec_id, name, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, code) DO UPDATE SET
			iec_id = excluded.iec_id, name = excluded.name, synced_at = excluded.synced_at`,
	BackupInto:            "VACUUM INTO ?",
	IsUniqueViolation:     isUniqueViolation,
	IsForeignKeyViolation: isForeignKeyViolation,
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// DATETIME/DATE column types matter: go-sqlite3 only converts values back
// into time.Time for columns declared with one of those types.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS provinces (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS municipalities (
		code          TEXT PRIMARY KEY,
		province_code TEXT NOT NULL REFERENCES provinces(code),
		name          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wards (
		code              TEXT PRIMARY KEY,
		municipality_code TEXT    NOT NULL REFERENCES municipalities(code),
		number            INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS voting_districts (
		code      TEXT PRIMARY KEY,
		ward_code TEXT NOT NULL REFERENCES wards(code),
		name      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		id_number            TEXT     NOT NULL UNIQUE,
		first_name           TEXT     NOT NULL,
		surname              TEXT     NOT NULL,
		date_of_birth        DATE     NOT NULL,
		gender               TEXT     NOT NULL,
		cellphone            TEXT     NOT NULL DEFAULT '',
		email                TEXT     NOT NULL DEFAULT '',
		ward_code            TEXT     NOT NULL REFERENCES wards(code),
		voting_district_code TEXT     NOT NULL DEFAULT '',
		status               TEXT     NOT NULL DEFAULT 'active',
		membership_expiry    DATETIME,
		created_at           DATETIME NOT NULL,
		updated_at           DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_members_ward ON members(ward_code)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		id_number            TEXT     NOT NULL,
		first_name           TEXT     NOT NULL,
		surname              TEXT     NOT NULL,
		cellphone            TEXT     NOT NULL DEFAULT '',
		email                TEXT     NOT NULL DEFAULT '',
		ward_code            TEXT     NOT NULL,
		voting_district_code TEXT     NOT NULL DEFAULT '',
		status               TEXT     NOT NULL,
		reason               TEXT     NOT NULL DEFAULT '',
		member_id            INTEGER  REFERENCES members(id) ON DELETE SET NULL,
		submitted_at         DATETIME NOT NULL,
		reviewed_at          DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS elections (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT     NOT NULL,
		scope_level TEXT     NOT NULL,
		scope_code  TEXT     NOT NULL DEFAULT '',
		starts_at   DATETIME NOT NULL,
		ends_at     DATETIME NOT NULL,
		status      TEXT     NOT NULL,
		created_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		election_id INTEGER NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
		member_id   INTEGER NOT NULL REFERENCES members(id),
		position    TEXT    NOT NULL,
		UNIQUE (election_id, member_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		election_id  INTEGER  NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
		member_id    INTEGER  NOT NULL REFERENCES members(id),
		candidate_id INTEGER  NOT NULL REFERENCES candidates(id),
		cast_at      DATETIME NOT NULL,
		UNIQUE (election_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS war_council_positions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT    NOT NULL UNIQUE,
		description  TEXT    NOT NULL DEFAULT '',
		member_id    INTEGER UNIQUE REFERENCES members(id) ON DELETE SET NULL,
		appointed_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT     NOT NULL,
		level        TEXT     NOT NULL,
		entity_code  TEXT     NOT NULL DEFAULT '',
		scheduled_at DATETIME NOT NULL,
		location     TEXT     NOT NULL DEFAULT '',
		status       TEXT     NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_documents (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		meeting_id INTEGER  NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		title      TEXT     NOT NULL,
		kind       TEXT     NOT NULL,
		content    TEXT     NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		permissions TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT     NOT NULL UNIQUE,
		email         TEXT     NOT NULL,
		password_hash TEXT     NOT NULL,
		role_id       INTEGER  NOT NULL REFERENCES roles(id),
		active        BOOLEAN  NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		actor       TEXT     NOT NULL,
		action      TEXT     NOT NULL,
		entity_type TEXT     NOT NULL,
		entity_id   TEXT     NOT NULL DEFAULT '',
		details     TEXT     NOT NULL DEFAULT '',
		ip_address  TEXT     NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS upload_jobs (
		id          TEXT PRIMARY KEY,
		file_name   TEXT     NOT NULL,
		status      TEXT     NOT NULL,
		total       INTEGER  NOT NULL DEFAULT 0,
		accepted    INTEGER  NOT NULL DEFAULT 0,
		rejected    INTEGER  NOT NULL DEFAULT 0,
		created     INTEGER  NOT NULL DEFAULT 0,
		updated     INTEGER  NOT NULL DEFAULT 0,
		report_path TEXT     NOT NULL DEFAULT '',
		error       TEXT     NOT NULL DEFAULT '',
		started_at  DATETIME NOT NULL,
		finished_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS backup_records (
		id          TEXT PRIMARY KEY,
		file_name   TEXT     NOT NULL,
		path        TEXT     NOT NULL,
		size_bytes  INTEGER  NOT NULL DEFAULT 0,
		status      TEXT     NOT NULL,
		error       TEXT     NOT NULL DEFAULT '',
		created_by  TEXT     NOT NULL DEFAULT '',
		started_at  DATETIME NOT NULL,
		finished_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS sms_messages (
		id         TEXT PRIMARY KEY,
		recipient  TEXT     NOT NULL,
		body       TEXT     NOT NULL,
		status     TEXT     NOT NULL,
		gateway_id TEXT     NOT NULL DEFAULT '',
		error      TEXT     NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sms_gateway_id ON sms_messages(gateway_id)`,
	`CREATE TABLE IF NOT EXISTS iec_mappings (
		entity_type TEXT     NOT NULL,
		code        TEXT     NOT NULL,
		iec_id      TEXT     NOT NULL,
		name        TEXT     NOT NULL DEFAULT '',
		synced_at   DATETIME NOT NULL,
		PRIMARY KEY (entity_type, code)
	)`,
}
