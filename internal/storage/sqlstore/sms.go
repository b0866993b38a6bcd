package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aanand-mishra/membership-api/internal/types"
)

const smsColumns = "id, recipient, body, status, gateway_id, error, created_at, updated_at"

func scanSMS(row scanner) (types.SMSMessage, error) {
	var m types.SMSMessage
	err := row.Scan(&m.ID, &m.Recipient, &m.Body, &m.Status, &m.GatewayID, &m.Error,
		&m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *Store) CreateSMSMessage(ctx context.Context, m types.SMSMessage) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sms_messages (id, recipient, body, status, gateway_id, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Recipient, m.Body, m.Status, m.GatewayID, m.Error, m.CreatedAt, now)
	return s.wrap("CreateSMSMessage: exec", err)
}

func (s *Store) UpdateSMSMessage(ctx context.Context, m types.SMSMessage) error {
	return s.execOne(ctx, fmt.Sprintf("UpdateSMSMessage(%s)", m.ID), `
		UPDATE sms_messages SET status = ?, gateway_id = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		m.Status, m.GatewayID, m.Error, time.Now().UTC(), m.ID)
}

func (s *Store) GetSMSMessage(ctx context.Context, id string) (types.SMSMessage, error) {
	m, err := scanSMS(s.q.QueryRowContext(ctx,
		"SELECT "+smsColumns+" FROM sms_messages WHERE id = ?", id))
	if err != nil {
		return types.SMSMessage{}, s.wrap(fmt.Sprintf("GetSMSMessage(%s)", id), err)
	}
	return m, nil
}

func (s *Store) GetSMSMessageByGatewayID(ctx context.Context, gatewayID string) (types.SMSMessage, error) {
	m, err := scanSMS(s.q.QueryRowContext(ctx,
		"SELECT "+smsColumns+" FROM sms_messages WHERE gateway_id = ?", gatewayID))
	if err != nil {
		return types.SMSMessage{}, s.wrap(fmt.Sprintf("GetSMSMessageByGatewayID(%s)", gatewayID), err)
	}
	return m, nil
}

func (s *Store) ListSMSMessages(ctx context.Context, status string, limit int) ([]types.SMSMessage, error) {
	query := "SELECT " + smsColumns + " FROM sms_messages"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limitOr(limit, 100))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListSMSMessages: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.SMSMessage, 0)
	for rows.Next() {
		m, err := scanSMS(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSMSMessages: scan row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSMSMessages: rows iteration: %w", err)
	}
	return out, nil
}
