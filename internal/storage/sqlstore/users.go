package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/membership-api/internal/types"
)

// Permissions are stored as one comma separated column.
func joinPermissions(p []string) string { return strings.Join(p, ",") }

func splitPermissions(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func (s *Store) CreateRole(ctx context.Context, r types.Role) (int64, error) {
	return s.insert(ctx, "CreateRole",
		"INSERT INTO roles (name, permissions) VALUES (?, ?)", r.Name, joinPermissions(r.Permissions))
}

func (s *Store) GetRole(ctx context.Context, id int64) (types.Role, error) {
	var (
		r     types.Role
		perms string
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, permissions FROM roles WHERE id = ?", id).Scan(&r.ID, &r.Name, &perms)
	if err != nil {
		return types.Role{}, s.wrap(fmt.Sprintf("GetRole(%d)", id), err)
	}
	r.Permissions = splitPermissions(perms)
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]types.Role, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name, permissions FROM roles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("ListRoles: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Role, 0)
	for rows.Next() {
		var (
			r     types.Role
			perms string
		)
		if err := rows.Scan(&r.ID, &r.Name, &perms); err != nil {
			return nil, fmt.Errorf("ListRoles: scan row: %w", err)
		}
		r.Permissions = splitPermissions(perms)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRoles: rows iteration: %w", err)
	}
	return out, nil
}

const userColumns = "id, username, email, password_hash, role_id, active, created_at"

func scanUser(row scanner) (types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.Active, &u.CreatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u types.User) (int64, error) {
	return s.insert(ctx, "CreateUser", `
		INSERT INTO users (username, email, password_hash, role_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.RoleID, u.Active, time.Now().UTC())
}

func (s *Store) GetUser(ctx context.Context, id int64) (types.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return types.User{}, s.wrap(fmt.Sprintf("GetUser(%d)", id), err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]types.User, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("ListUsers: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUsers: scan row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsers: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, u types.User) error {
	return s.execOne(ctx, fmt.Sprintf("UpdateUser(%d)", u.ID), `
		UPDATE users SET email = ?, password_hash = ?, role_id = ?, active = ?
		WHERE id = ?`,
		u.Email, u.PasswordHash, u.RoleID, u.Active, u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("DeleteUser(%d)", id), "DELETE FROM users WHERE id = ?", id)
}
