package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aanand-mishra/membership-api/internal/types"
)

const uploadColumns = `id, file_name, status, total, accepted, rejected, created, updated,
	report_path, error, started_at, finished_at`

func scanUploadJob(row scanner) (types.UploadJob, error) {
	var (
		j        types.UploadJob
		finished sql.NullTime
	)
	err := row.Scan(&j.ID, &j.FileName, &j.Status, &j.Total, &j.Accepted, &j.Rejected,
		&j.Created, &j.Updated, &j.ReportPath, &j.Error, &j.StartedAt, &finished)
	j.FinishedAt = timePtr(finished)
	return j, err
}

func (s *Store) CreateUploadJob(ctx context.Context, j types.UploadJob) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO upload_jobs (id, file_name, status, total, accepted, rejected, created, updated,
			report_path, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.FileName, j.Status, j.Total, j.Accepted, j.Rejected, j.Created, j.Updated,
		j.ReportPath, j.Error, j.StartedAt, nullTime(j.FinishedAt))
	return s.wrap("CreateUploadJob: exec", err)
}

func (s *Store) UpdateUploadJob(ctx context.Context, j types.UploadJob) error {
	return s.execOne(ctx, fmt.Sprintf("UpdateUploadJob(%s)", j.ID), `
		UPDATE upload_jobs SET status = ?, total = ?, accepted = ?, rejected = ?, created = ?,
			updated = ?, report_path = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		j.Status, j.Total, j.Accepted, j.Rejected, j.Created,
		j.Updated, j.ReportPath, j.Error, nullTime(j.FinishedAt),
		j.ID)
}

func (s *Store) GetUploadJob(ctx context.Context, id string) (types.UploadJob, error) {
	j, err := scanUploadJob(s.q.QueryRowContext(ctx,
		"SELECT "+uploadColumns+" FROM upload_jobs WHERE id = ?", id))
	if err != nil {
		return types.UploadJob{}, s.wrap(fmt.Sprintf("GetUploadJob(%s)", id), err)
	}
	return j, nil
}

func (s *Store) ListUploadJobs(ctx context.Context, limit int) ([]types.UploadJob, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+uploadColumns+" FROM upload_jobs ORDER BY started_at DESC LIMIT ?", limitOr(limit, 50))
	if err != nil {
		return nil, fmt.Errorf("ListUploadJobs: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.UploadJob, 0)
	for rows.Next() {
		j, err := scanUploadJob(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUploadJobs: scan row: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUploadJobs: rows iteration: %w", err)
	}
	return out, nil
}
