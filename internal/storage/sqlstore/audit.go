package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/membership-api/internal/types"
)

func (s *Store) CreateAuditLog(ctx context.Context, l types.AuditLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO audit_logs (actor, action, entity_type, entity_id, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Actor, l.Action, l.EntityType, l.EntityID, l.Details, l.IPAddress, l.CreatedAt)
	return s.wrap("CreateAuditLog: exec", err)
}

// ListAuditLogs returns the newest entries first.
func (s *Store) ListAuditLogs(ctx context.Context, f types.AuditFilter) ([]types.AuditLog, error) {
	var (
		where []string
		args  []any
	)
	if f.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	query := `SELECT id, actor, action, entity_type, entity_id, details, ip_address, created_at
		FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limitOr(f.Limit, 100))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListAuditLogs: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.AuditLog, 0)
	for rows.Next() {
		var l types.AuditLog
		if err := rows.Scan(&l.ID, &l.Actor, &l.Action, &l.EntityType, &l.EntityID,
			&l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAuditLogs: scan row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAuditLogs: rows iteration: %w", err)
	}
	return out, nil
}
