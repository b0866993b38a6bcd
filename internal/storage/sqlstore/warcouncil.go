package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

const positionSelect = `
	SELECT p.id, p.title, p.description, p.member_id, p.appointed_at,
	       COALESCE(m.first_name, ''), COALESCE(m.surname, '')
	FROM war_council_positions p
	LEFT JOIN members m ON m.id = p.member_id`

func scanPosition(row scanner) (types.WarCouncilPosition, error) {
	var (
		p           types.WarCouncilPosition
		holder      sql.NullInt64
		appointed   sql.NullTime
		first, last string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &holder, &appointed, &first, &last)
	p.HolderID = intPtr(holder)
	p.AppointedAt = timePtr(appointed)
	if p.HolderID != nil {
		p.HolderName = first + " " + last
	}
	return p, err
}

func (s *Store) CreatePosition(ctx context.Context, p types.WarCouncilPosition) (int64, error) {
	return s.insert(ctx, "CreatePosition",
		"INSERT INTO war_council_positions (title, description) VALUES (?, ?)",
		p.Title, p.Description)
}

func (s *Store) GetPosition(ctx context.Context, id int64) (types.WarCouncilPosition, error) {
	p, err := scanPosition(s.q.QueryRowContext(ctx, positionSelect+" WHERE p.id = ?", id))
	if err != nil {
		return types.WarCouncilPosition{}, s.wrap(fmt.Sprintf("GetPosition(%d)", id), err)
	}
	return p, nil
}

func (s *Store) ListPositions(ctx context.Context) ([]types.WarCouncilPosition, error) {
	rows, err := s.q.QueryContext(ctx, positionSelect+" ORDER BY p.id")
	if err != nil {
		return nil, fmt.Errorf("ListPositions: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.WarCouncilPosition, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPositions: scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPositions: rows iteration: %w", err)
	}
	return out, nil
}

// AppointMember fills a vacant position. An occupied position, or a member
// who already holds another position, yields storage.ErrConflict.
func (s *Store) AppointMember(ctx context.Context, positionID, memberID int64) error {
	op := fmt.Sprintf("AppointMember(%d)", positionID)
	result, err := s.q.ExecContext(ctx, `
		UPDATE war_council_positions SET member_id = ?, appointed_at = ?
		WHERE id = ? AND member_id IS NULL`,
		memberID, time.Now().UTC(), positionID)
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

	// Nothing updated: either the position is missing or it is taken.
	if _, err := s.GetPosition(ctx, positionID); err != nil {
		return err
	}
	return fmt.Errorf("%s: position already filled: %w", op, storage.ErrConflict)
}

func (s *Store) VacatePosition(ctx context.Context, positionID int64) error {
	return s.execOne(ctx, fmt.Sprintf("VacatePosition(%d)", positionID),
		"UPDATE war_council_positions SET member_id = NULL, appointed_at = NULL WHERE id = ?",
		positionID)
}
