// Package mysql opens a MySQL database and returns a storage.Storage backed
// by it. The queries are shared with the SQLite backend (see sqlstore); this
// package only contributes the MySQL DDL and error classification.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/aanand-mishra/membership-api/internal/storage/sqlstore"
)

// MySQL server error numbers we care about.
const (
	errDuplicateEntry     = 1062
	errNoReferencedRow    = 1452
	errRowIsReferenced    = 1451
	errNoReferencedRowOld = 1216
)

// Pool settings, mirroring what the service runs with in production.
const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
)

// New connects to the database described by dsn (go-sql-driver format,
// e.g. "user:pass@tcp(host:3306)/members"), creates the schema and returns a
// ready store.
func New(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	cfg, err := Config(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql.New: %w", err)
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql.New: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql.New: ping: %w", err)
	}

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql.New: %w", err)
	}
	return store, nil
}

// Config parses dsn and forces the options the store relies on:
//   - ParseTime so DATETIME columns scan into time.Time;
//   - ClientFoundRows so an UPDATE that changes nothing still reports the
//     matched row (otherwise "no rows affected" would read as not found);
//   - UTC location, matching the times the store writes.
func Config(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg, nil
}

var Dialect = sqlstore.Dialect{
	Name:   "mysql",
	Schema: schema,
	UpsertIECMapping: `
		INSERT INTO iec_mappings (entity_type, code, iec_id, name, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			iec_id = VALUES(iec_id), name = VALUES(name), synced_at = VALUES(synced_at)`,
	IsUniqueViolation:     isUniqueViolation,
	IsForeignKeyViolation: isForeignKeyViolation,
}

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case errNoReferencedRow, errRowIsReferenced, errNoReferencedRowOld:
		return true
	}
	return false
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS provinces (
		code VARCHAR(10)  PRIMARY KEY,
		name VARCHAR(100) NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS municipalities (
		code          VARCHAR(20)  PRIMARY KEY,
		province_code VARCHAR(10)  NOT NULL,
		name          VARCHAR(150) NOT NULL,
		FOREIGN KEY (province_code) REFERENCES provinces(code)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS wards (
		code              VARCHAR(20) PRIMARY KEY,
		municipality_code VARCHAR(20) NOT NULL,
		number            INT         NOT NULL,
		FOREIGN KEY (municipality_code) REFERENCES municipalities(code)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS voting_districts (
		code      VARCHAR(20)  PRIMARY KEY,
		ward_code VARCHAR(20)  NOT NULL,
		name      VARCHAR(150) NOT NULL,
		FOREIGN KEY (ward_code) REFERENCES wards(code)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS members (
		id                   BIGINT AUTO_INCREMENT PRIMARY KEY,
		id_number            CHAR(13)     NOT NULL UNIQUE,
		first_name           VARCHAR(100) NOT NULL,
		surname              VARCHAR(100) NOT NULL,
		date_of_birth        DATE         NOT NULL,
		gender               VARCHAR(10)  NOT NULL,
		cellphone            VARCHAR(20)  NOT NULL DEFAULT '',
		email                VARCHAR(255) NOT NULL DEFAULT '',
		ward_code            VARCHAR(20)  NOT NULL,
		voting_district_code VARCHAR(20)  NOT NULL DEFAULT '',
		status               VARCHAR(20)  NOT NULL DEFAULT 'active',
		membership_expiry    DATETIME     NULL,
		created_at           DATETIME     NOT NULL,
		updated_at           DATETIME     NOT NULL,
		INDEX idx_members_ward (ward_code),
		FOREIGN KEY (ward_code) REFERENCES wards(code)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS applications (
		id                   BIGINT AUTO_INCREMENT PRIMARY KEY,
		id_number            CHAR(13)     NOT NULL,
		first_name           VARCHAR(100) NOT NULL,
		surname              VARCHAR(100) NOT NULL,
		cellphone            VARCHAR(20)  NOT NULL DEFAULT '',
		email                VARCHAR(255) NOT NULL DEFAULT '',
		ward_code            VARCHAR(20)  NOT NULL,
		voting_district_code VARCHAR(20)  NOT NULL DEFAULT '',
		status               VARCHAR(20)  NOT NULL,
		reason               VARCHAR(500) NOT NULL DEFAULT '',
		member_id            BIGINT       NULL,
		submitted_at         DATETIME     NOT NULL,
		reviewed_at          DATETIME     NULL,
		FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE SET NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS elections (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(200) NOT NULL,
		scope_level VARCHAR(20)  NOT NULL,
		scope_code  VARCHAR(20)  NOT NULL DEFAULT '',
		starts_at   DATETIME     NOT NULL,
		ends_at     DATETIME     NOT NULL,
		status      VARCHAR(20)  NOT NULL,
		created_at  DATETIME     NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		election_id BIGINT       NOT NULL,
		member_id   BIGINT       NOT NULL,
		position    VARCHAR(100) NOT NULL,
		UNIQUE KEY uq_candidate (election_id, member_id, position),
		FOREIGN KEY (election_id) REFERENCES elections(id) ON DELETE CASCADE,
		FOREIGN KEY (member_id) REFERENCES members(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS votes (
		id           BIGINT AUTO_INCREMENT PRIMARY KEY,
		election_id  BIGINT   NOT NULL,
		member_id    BIGINT   NOT NULL,
		candidate_id BIGINT   NOT NULL,
		cast_at      DATETIME NOT NULL,
		UNIQUE KEY uq_vote (election_id, member_id),
		FOREIGN KEY (election_id) REFERENCES elections(id) ON DELETE CASCADE,
		FOREIGN KEY (member_id) REFERENCES members(id),
		FOREIGN KEY (candidate_id) REFERENCES candidates(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS war_council_positions (
		id           BIGINT AUTO_INCREMENT PRIMARY KEY,
		title        VARCHAR(150) NOT NULL UNIQUE,
		description  VARCHAR(500) NOT NULL DEFAULT '',
		member_id    BIGINT       NULL UNIQUE,
		appointed_at DATETIME     NULL,
		FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE SET NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id           BIGINT AUTO_INCREMENT PRIMARY KEY,
		title        VARCHAR(200) NOT NULL,
		level        VARCHAR(20)  NOT NULL,
		entity_code  VARCHAR(20)  NOT NULL DEFAULT '',
		scheduled_at DATETIME     NOT NULL,
		location     VARCHAR(255) NOT NULL DEFAULT '',
		status       VARCHAR(20)  NOT NULL,
		created_at   DATETIME     NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS meeting_documents (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		meeting_id BIGINT       NOT NULL,
		title      VARCHAR(200) NOT NULL,
		kind       VARCHAR(20)  NOT NULL,
		content    MEDIUMTEXT   NOT NULL,
		created_at DATETIME     NOT NULL,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS roles (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(50)   NOT NULL UNIQUE,
		permissions VARCHAR(1000) NOT NULL DEFAULT ''
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(50)  NOT NULL UNIQUE,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		role_id       BIGINT       NOT NULL,
		active        TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL,
		FOREIGN KEY (role_id) REFERENCES roles(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		actor       VARCHAR(100)  NOT NULL,
		action      VARCHAR(50)   NOT NULL,
		entity_type VARCHAR(50)   NOT NULL,
		entity_id   VARCHAR(64)   NOT NULL DEFAULT '',
		details     VARCHAR(2000) NOT NULL DEFAULT '',
		ip_address  VARCHAR(64)   NOT NULL DEFAULT '',
		created_at  DATETIME      NOT NULL,
		INDEX idx_audit_entity (entity_type, action)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS upload_jobs (
		id          CHAR(36)      PRIMARY KEY,
		file_name   VARCHAR(255)  NOT NULL,
		status      VARCHAR(20)   NOT NULL,
		total       INT           NOT NULL DEFAULT 0,
		accepted    INT           NOT NULL DEFAULT 0,
		rejected    INT           NOT NULL DEFAULT 0,
		created     INT           NOT NULL DEFAULT 0,
		updated     INT           NOT NULL DEFAULT 0,
		report_path VARCHAR(500)  NOT NULL DEFAULT '',
		error       VARCHAR(2000) NOT NULL DEFAULT '',
		started_at  DATETIME      NOT NULL,
		finished_at DATETIME      NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS backup_records (
		id          CHAR(36)      PRIMARY KEY,
		file_name   VARCHAR(255)  NOT NULL,
		path        VARCHAR(500)  NOT NULL,
		size_bytes  BIGINT        NOT NULL DEFAULT 0,
		status      VARCHAR(20)   NOT NULL,
		error       VARCHAR(2000) NOT NULL DEFAULT '',
		created_by  VARCHAR(100)  NOT NULL DEFAULT '',
		started_at  DATETIME      NOT NULL,
		finished_at DATETIME      NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS sms_messages (
		id         CHAR(36)     PRIMARY KEY,
		recipient  VARCHAR(20)  NOT NULL,
		body       VARCHAR(918) NOT NULL,
		status     VARCHAR(20)  NOT NULL,
		gateway_id VARCHAR(100) NOT NULL DEFAULT '',
		error      VARCHAR(500) NOT NULL DEFAULT '',
		created_at DATETIME     NOT NULL,
		updated_at DATETIME     NOT NULL,
		INDEX idx_sms_gateway_id (gateway_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS iec_mappings (
		entity_type VARCHAR(20)  NOT NULL,
		code        VARCHAR(20)  NOT NULL,
		iec_id      VARCHAR(50)  NOT NULL,
		name        VARCHAR(150) NOT NULL DEFAULT '',
		synced_at   DATETIME     NOT NULL,
		PRIMARY KEY (entity_type, code)
	) ENGINE=InnoDB`,
}
