package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

const applicationColumns = `id, id_number, first_name, surname, cellphone, email,
	ward_code, voting_district_code, status, reason, member_id, submitted_at, reviewed_at`

func scanApplication(row scanner) (types.Application, error) {
	var (
		a        types.Application
		memberID sql.NullInt64
		reviewed sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.IDNumber, &a.FirstName, &a.Surname, &a.Cellphone, &a.Email,
		&a.WardCode, &a.VotingDistrictCode, &a.Status, &a.Reason, &memberID,
		&a.SubmittedAt, &reviewed,
	)
	a.MemberID = intPtr(memberID)
	a.ReviewedAt = timePtr(reviewed)
	return a, err
}

func (s *Store) CreateApplication(ctx context.Context, a types.Application) (int64, error) {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = types.ApplicationPending
	}
	return s.insert(ctx, "CreateApplication", `
		INSERT INTO applications (id_number, first_name, surname, cellphone, email,
			ward_code, voting_district_code, status, reason, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.IDNumber, a.FirstName, a.Surname, a.Cellphone, a.Email,
		a.WardCode, a.VotingDistrictCode, a.Status, a.Reason, a.SubmittedAt,
	)
}

func (s *Store) GetApplication(ctx context.Context, id int64) (types.Application, error) {
	a, err := scanApplication(s.q.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id = ?", id))
	if err != nil {
		return types.Application{}, s.wrap(fmt.Sprintf("GetApplication(%d)", id), err)
	}
	return a, nil
}

func (s *Store) ListApplications(ctx context.Context, status string) ([]types.Application, error) {
	query := "SELECT " + applicationColumns + " FROM applications"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY submitted_at DESC, id DESC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListApplications: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("ListApplications: scan row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListApplications: rows iteration: %w", err)
	}
	return out, nil
}

// UpdateApplication stores the review outcome of a pending application.
// Only a pending row matches, so of two concurrent reviews the second gets
// ErrConflict.
func (s *Store) UpdateApplication(ctx context.Context, a types.Application) error {
	op := fmt.Sprintf("UpdateApplication(%d)", a.ID)
	result, err := s.q.ExecContext(ctx, `
		UPDATE applications SET status = ?, reason = ?, member_id = ?, reviewed_at = ?
		WHERE id = ? AND status = ?`,
		a.Status, a.Reason, nullInt(a.MemberID), nullTime(a.ReviewedAt),
		a.ID, types.ApplicationPending,
	)
	if err != nil {
		return s.wrap(op+": exec", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n > 0 {
		return nil
	}

	current, err := s.GetApplication(ctx, a.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%s: application is already %s: %w", op, current.Status, storage.ErrConflict)
}
