package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

const backupColumns = `id, file_name, path, size_bytes, status, error, created_by, started_at, finished_at`

func scanBackupRecord(row scanner) (types.BackupRecord, error) {
	var (
		b        types.BackupRecord
		finished sql.NullTime
	)
	err := row.Scan(&b.ID, &b.FileName, &b.Path, &b.SizeBytes, &b.Status, &b.Error,
		&b.CreatedBy, &b.StartedAt, &finished)
	b.FinishedAt = timePtr(finished)
	return b, err
}

func (s *Store) CreateBackupRecord(ctx context.Context, b types.BackupRecord) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO backup_records (id, file_name, path, size_bytes, status, error, created_by,
			started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.FileName, b.Path, b.SizeBytes, b.Status, b.Error, b.CreatedBy,
		b.StartedAt, nullTime(b.FinishedAt))
	return s.wrap("CreateBackupRecord: exec", err)
}

func (s *Store) UpdateBackupRecord(ctx context.Context, b types.BackupRecord) error {
	return s.execOne(ctx, fmt.Sprintf("UpdateBackupRecord(%s)", b.ID), `
		UPDATE backup_records SET size_bytes = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		b.SizeBytes, b.Status, b.Error, nullTime(b.FinishedAt),
		b.ID)
}

func (s *Store) GetBackupRecord(ctx context.Context, id string) (types.BackupRecord, error) {
	b, err := scanBackupRecord(s.q.QueryRowContext(ctx,
		"SELECT "+backupColumns+" FROM backup_records WHERE id = ?", id))
	if err != nil {
		return types.BackupRecord{}, s.wrap(fmt.Sprintf("GetBackupRecord(%s)", id), err)
	}
	return b, nil
}

// ListBackupRecords returns the newest backups first.
func (s *Store) ListBackupRecords(ctx context.Context, limit int) ([]types.BackupRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+backupColumns+" FROM backup_records ORDER BY started_at DESC LIMIT ?", limitOr(limit, 50))
	if err != nil {
		return nil, fmt.Errorf("ListBackupRecords: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.BackupRecord, 0)
	for rows.Next() {
		b, err := scanBackupRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListBackupRecords: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBackupRecords: rows iteration: %w", err)
	}
	return out, nil
}

// Backup runs the dialect's copy statement on the pool. It cannot run
// inside a transaction.
func (s *Store) Backup(ctx context.Context, path string) error {
	if s.dialect.BackupInto == "" {
		return fmt.Errorf("Backup(%s): %w", s.dialect.Name, storage.ErrUnsupported)
	}
	if s.inTx {
		return errors.New("Backup: cannot run inside a transaction")
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.BackupInto, path); err != nil {
		return fmt.Errorf("Backup: %w", err)
	}
	return nil
}
