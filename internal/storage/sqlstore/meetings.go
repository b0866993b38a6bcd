package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/membership-api/internal/types"
)

const meetingColumns = "id, title, level, entity_code, scheduled_at, location, status, created_at"

func scanMeeting(row scanner) (types.Meeting, error) {
	var m types.Meeting
	err := row.Scan(&m.ID, &m.Title, &m.Level, &m.EntityCode,
		&m.ScheduledAt, &m.Location, &m.Status, &m.CreatedAt)
	return m, err
}

func (s *Store) CreateMeeting(ctx context.Context, m types.Meeting) (int64, error) {
	if m.Status == "" {
		m.Status = types.MeetingScheduled
	}
	return s.insert(ctx, "CreateMeeting", `
		INSERT INTO meetings (title, level, entity_code, scheduled_at, location, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.Level, m.EntityCode, m.ScheduledAt.UTC(), m.Location, m.Status, time.Now().UTC(),
	)
}

func (s *Store) GetMeeting(ctx context.Context, id int64) (types.Meeting, error) {
	m, err := scanMeeting(s.q.QueryRowContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE id = ?", id))
	if err != nil {
		return types.Meeting{}, s.wrap(fmt.Sprintf("GetMeeting(%d)", id), err)
	}
	return m, nil
}

func (s *Store) ListMeetings(ctx context.Context, level, status string) ([]types.Meeting, error) {
	var (
		where []string
		args  []any
	)
	if level != "" {
		where = append(where, "level = ?")
		args = append(args, level)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	query := "SELECT " + meetingColumns + " FROM meetings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_at DESC, id DESC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListMeetings: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("ListMeetings: scan row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMeetings: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) SetMeetingStatus(ctx context.Context, id int64, status string) error {
	return s.execOne(ctx, fmt.Sprintf("SetMeetingStatus(%d)", id),
		"UPDATE meetings SET status = ? WHERE id = ?", status, id)
}

func (s *Store) CreateMeetingDocument(ctx context.Context, d types.MeetingDocument) (int64, error) {
	return s.insert(ctx, "CreateMeetingDocument", `
		INSERT INTO meeting_documents (meeting_id, title, kind, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.MeetingID, d.Title, d.Kind, d.Content, time.Now().UTC())
}

func (s *Store) ListMeetingDocuments(ctx context.Context, meetingID int64) ([]types.MeetingDocument, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, meeting_id, title, kind, content, created_at
		FROM meeting_documents WHERE meeting_id = ? ORDER BY id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("ListMeetingDocuments: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.MeetingDocument, 0)
	for rows.Next() {
		var d types.MeetingDocument
		if err := rows.Scan(&d.ID, &d.MeetingID, &d.Title, &d.Kind, &d.Content, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListMeetingDocuments: scan row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMeetingDocuments: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteMeetingDocument(ctx context.Context, meetingID, docID int64) error {
	return s.execOne(ctx, fmt.Sprintf("DeleteMeetingDocument(%d)", docID),
		"DELETE FROM meeting_documents WHERE id = ? AND meeting_id = ?", docID, meetingID)
}
