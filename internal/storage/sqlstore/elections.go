package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aanand-mishra/membership-api/internal/types"
)

const electionColumns = "id, name, scope_level, scope_code, starts_at, ends_at, status, created_at"

func scanElection(row scanner) (types.Election, error) {
	var e types.Election
	err := row.Scan(&e.ID, &e.Name, &e.ScopeLevel, &e.ScopeCode,
		&e.StartsAt, &e.EndsAt, &e.Status, &e.CreatedAt)
	return e, err
}

func (s *Store) CreateElection(ctx context.Context, e types.Election) (int64, error) {
	if e.Status == "" {
		e.Status = types.ElectionDraft
	}
	return s.insert(ctx, "CreateElection", `
		INSERT INTO elections (name, scope_level, scope_code, starts_at, ends_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.ScopeLevel, e.ScopeCode, e.StartsAt.UTC(), e.EndsAt.UTC(), e.Status, time.Now().UTC(),
	)
}

func (s *Store) GetElection(ctx context.Context, id int64) (types.Election, error) {
	e, err := scanElection(s.q.QueryRowContext(ctx,
		"SELECT "+electionColumns+" FROM elections WHERE id = ?", id))
	if err != nil {
		return types.Election{}, s.wrap(fmt.Sprintf("GetElection(%d)", id), err)
	}
	return e, nil
}

func (s *Store) ListElections(ctx context.Context) ([]types.Election, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+electionColumns+" FROM elections ORDER BY starts_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("ListElections: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Election, 0)
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("ListElections: scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListElections: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) SetElectionStatus(ctx context.Context, id int64, status string) error {
	return s.execOne(ctx, fmt.Sprintf("SetElectionStatus(%d)", id),
		"UPDATE elections SET status = ? WHERE id = ?", status, id)
}

func (s *Store) CreateCandidate(ctx context.Context, c types.Candidate) (int64, error) {
	return s.insert(ctx, "CreateCandidate",
		"INSERT INTO candidates (election_id, member_id, position) VALUES (?, ?, ?)",
		c.ElectionID, c.MemberID, c.Position)
}

const candidateSelect = `
	SELECT c.id, c.election_id, c.member_id, c.position, m.first_name, m.surname
	FROM candidates c
	JOIN members m ON m.id = c.member_id`

func scanCandidate(row scanner) (types.Candidate, error) {
	var (
		c           types.Candidate
		first, last string
	)
	err := row.Scan(&c.ID, &c.ElectionID, &c.MemberID, &c.Position, &first, &last)
	c.Name = first + " " + last
	return c, err
}

func (s *Store) GetCandidate(ctx context.Context, id int64) (types.Candidate, error) {
	c, err := scanCandidate(s.q.QueryRowContext(ctx, candidateSelect+" WHERE c.id = ?", id))
	if err != nil {
		return types.Candidate{}, s.wrap(fmt.Sprintf("GetCandidate(%d)", id), err)
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context, electionID int64) ([]types.Candidate, error) {
	rows, err := s.q.QueryContext(ctx,
		candidateSelect+" WHERE c.election_id = ? ORDER BY c.position, c.id", electionID)
	if err != nil {
		return nil, fmt.Errorf("ListCandidates: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCandidates: scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCandidates: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) CastVote(ctx context.Context, v types.Vote) (int64, error) {
	if v.CastAt.IsZero() {
		v.CastAt = time.Now().UTC()
	}
	return s.insert(ctx, "CastVote",
		"INSERT INTO votes (election_id, member_id, candidate_id, cast_at) VALUES (?, ?, ?, ?)",
		v.ElectionID, v.MemberID, v.CandidateID, v.CastAt)
}

// ElectionResults counts votes per candidate, most votes first. Candidates
// without votes are included with zero.
func (s *Store) ElectionResults(ctx context.Context, electionID int64) ([]types.CandidateResult, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT c.id, m.first_name, m.surname, c.position, COUNT(v.id)
		FROM candidates c
		JOIN members m ON m.id = c.member_id
		LEFT JOIN votes v ON v.candidate_id = c.id
		WHERE c.election_id = ?
		GROUP BY c.id, m.first_name, m.surname, c.position
		ORDER BY COUNT(v.id) DESC, c.id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("ElectionResults: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.CandidateResult, 0)
	for rows.Next() {
		var (
			r           types.CandidateResult
			first, last string
		)
		if err := rows.Scan(&r.CandidateID, &first, &last, &r.Position, &r.Votes); err != nil {
			return nil, fmt.Errorf("ElectionResults: scan row: %w", err)
		}
		r.Name = first + " " + last
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ElectionResults: rows iteration: %w", err)
	}
	return out, nil
}
