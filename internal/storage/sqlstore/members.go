package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/membership-api/internal/types"
)

const memberColumns = `id, id_number, first_name, surname, date_of_birth, gender,
	cellphone, email, ward_code, voting_district_code, status, membership_expiry,
	created_at, updated_at`

func scanMember(row scanner) (types.Member, error) {
	var (
		m      types.Member
		expiry sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.IDNumber, &m.FirstName, &m.Surname, &m.DateOfBirth, &m.Gender,
		&m.Cellphone, &m.Email, &m.WardCode, &m.VotingDistrictCode, &m.Status, &expiry,
		&m.CreatedAt, &m.UpdatedAt,
	)
	m.MembershipExpiry = timePtr(expiry)
	return m, err
}

func (s *Store) CreateMember(ctx context.Context, m types.Member) (int64, error) {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	return s.insert(ctx, "CreateMember", `
		INSERT INTO members (id_number, first_name, surname, date_of_birth, gender,
			cellphone, email, ward_code, voting_district_code, status, membership_expiry,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.IDNumber, m.FirstName, m.Surname, m.DateOfBirth, m.Gender,
		m.Cellphone, m.Email, m.WardCode, m.VotingDistrictCode, m.Status,
		nullTime(m.MembershipExpiry), m.CreatedAt, now,
	)
}

func (s *Store) GetMember(ctx context.Context, id int64) (types.Member, error) {
	m, err := scanMember(s.q.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ?", id))
	if err != nil {
		return types.Member{}, s.wrap(fmt.Sprintf("GetMember(%d)", id), err)
	}
	return m, nil
}

func (s *Store) GetMemberByIDNumber(ctx context.Context, idNumber string) (types.Member, error) {
	m, err := scanMember(s.q.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id_number = ?", idNumber))
	if err != nil {
		return types.Member{}, s.wrap("GetMemberByIDNumber", err)
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, f types.MemberFilter) ([]types.Member, error) {
	var (
		where []string
		args  []any
	)
	if f.WardCode != "" {
		where = append(where, "ward_code = ?")
		args = append(args, f.WardCode)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Query != "" {
		where = append(where, "(LOWER(first_name) LIKE ? OR LOWER(surname) LIKE ? OR id_number = ?)")
		like := "%" + strings.ToLower(f.Query) + "%"
		args = append(args, like, like, f.Query)
	}

	query := "SELECT " + memberColumns + " FROM members"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY surname, first_name, id LIMIT ? OFFSET ?"
	args = append(args, limitOr(f.Limit, 100), f.Offset)

	return s.queryMembers(ctx, "ListMembers", query, args...)
}

func (s *Store) queryMembers(ctx context.Context, op, query string, args ...any) ([]types.Member, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	members := make([]types.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration: %w", op, err)
	}
	return members, nil
}

// UpdateMember replaces every mutable column of the member with m.ID.
func (s *Store) UpdateMember(ctx context.Context, m types.Member) error {
	return s.execOne(ctx, fmt.Sprintf("UpdateMember(%d)", m.ID), `
		UPDATE members SET id_number = ?, first_name = ?, surname = ?, date_of_birth = ?,
			gender = ?, cellphone = ?, email = ?, ward_code = ?, voting_district_code = ?,
			status = ?, membership_expiry = ?, updated_at = ?
		WHERE id = ?`,
		m.IDNumber, m.FirstName, m.Surname, m.DateOfBirth,
		m.Gender, m.Cellphone, m.Email, m.WardCode, m.VotingDistrictCode,
		m.Status, nullTime(m.MembershipExpiry), time.Now().UTC(),
		m.ID,
	)
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("DeleteMember(%d)", id),
		"DELETE FROM members WHERE id = ?", id)
}

func (s *Store) CountWardMembers(ctx context.Context, wardCode string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE ward_code = ? AND status = ?",
		wardCode, types.MemberActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountWardMembers: scan: %w", err)
	}
	return n, nil
}

func (s *Store) ListMembersInArea(ctx context.Context, level, code string) ([]types.Member, error) {
	query := "SELECT " + memberColumns + " FROM members WHERE status = ?"
	args := []any{types.MemberActive}

	switch level {
	case types.LevelNational:
	case types.LevelProvince:
		query += ` AND ward_code IN (
			SELECT w.code FROM wards w
			JOIN municipalities m ON m.code = w.municipality_code
			WHERE m.province_code = ?)`
		args = append(args, code)
	case types.LevelMunicipality:
		query += " AND ward_code IN (SELECT code FROM wards WHERE municipality_code = ?)"
		args = append(args, code)
	case types.LevelWard:
		query += " AND ward_code = ?"
		args = append(args, code)
	case types.LevelVD:
		query += " AND voting_district_code = ?"
		args = append(args, code)
	default:
		return nil, fmt.Errorf("ListMembersInArea: unknown level %q", level)
	}
	query += " ORDER BY surname, first_name, id"

	return s.queryMembers(ctx, "ListMembersInArea", query, args...)
}
