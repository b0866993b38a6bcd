// Package election serves elections, their candidates and the ballot box.
package election

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/geo"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// transitions lists the statuses each status may move to.
var transitions = map[string]string{
	types.ElectionDraft: types.ElectionOpen,
	types.ElectionOpen:  types.ElectionClosed,
}

// Create handles POST /api/v1/elections
//
// New elections always start as drafts.
func Create(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e types.Election
		if !request.Decode(w, r, &e) {
			return
		}
		if e.ScopeLevel == types.LevelNational {
			e.ScopeCode = ""
		}
		ok, err := geo.AreaExists(r.Context(), store, e.ScopeLevel, e.ScopeCode)
		if err != nil {
			response.Error(w, err)
			return
		}
		if !ok {
			response.BadRequest(w, fmt.Errorf("unknown %s %q", e.ScopeLevel, e.ScopeCode))
			return
		}
		e.Status = types.ElectionDraft

		id, err := store.CreateElection(r.Context(), e)
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := store.GetElection(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("election created", slog.Int64("id", id), slog.String("name", e.Name))
		audit.Record(r, store, audit.ActionCreate, "election", strconv.FormatInt(id, 10), e.Name)
		response.WriteJSON(w, http.StatusCreated, response.OK("election created", created))
	}
}

func List(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		elections, err := store.ListElections(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", elections))
	}
}

func Get(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		e, err := store.GetElection(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", e))
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft open closed"`
}

// UpdateStatus handles PATCH /api/v1/elections/{id}/status
//
//	{ "status": "open" }
//
// Only draft -> open and open -> closed are allowed; anything else is 409.
func UpdateStatus(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var body statusRequest
		if !request.Decode(w, r, &body) {
			return
		}

		e, err := store.GetElection(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		if transitions[e.Status] != body.Status {
			response.Error(w, fmt.Errorf("election %d cannot move from %s to %s: %w",
				id, e.Status, body.Status, storage.ErrConflict))
			return
		}
		if err := store.SetElectionStatus(r.Context(), id, body.Status); err != nil {
			response.Error(w, err)
			return
		}
		e.Status = body.Status

		slog.Info("election status changed", slog.Int64("id", id), slog.String("status", body.Status))
		audit.Record(r, store, audit.ActionUpdate, "election", strconv.FormatInt(id, 10), "status "+body.Status)
		response.WriteJSON(w, http.StatusOK, response.OK("election "+body.Status, e))
	}
}

// AddCandidate handles POST /api/v1/elections/{id}/candidates
//
//	{ "member_id": 12, "position": "Chairperson" }
//
// Candidates can only be nominated while the election is a draft.
func AddCandidate(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var c types.Candidate
		if !request.Decode(w, r, &c) {
			return
		}

		e, err := store.GetElection(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		if e.Status != types.ElectionDraft {
			response.Error(w, fmt.Errorf("election %d is %s: %w", id, e.Status, storage.ErrConflict))
			return
		}
		if _, err := store.GetMember(r.Context(), c.MemberID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.BadRequest(w, fmt.Errorf("member %d does not exist", c.MemberID))
				return
			}
			response.Error(w, err)
			return
		}

		c.ElectionID = id
		cid, err := store.CreateCandidate(r.Context(), c)
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := store.GetCandidate(r.Context(), cid)
		if err != nil {
			response.Error(w, err)
			return
		}

		audit.Record(r, store, audit.ActionCreate, "candidate", strconv.FormatInt(cid, 10),
			fmt.Sprintf("election %d, member %d", id, c.MemberID))
		response.WriteJSON(w, http.StatusCreated, response.OK("candidate added", created))
	}
}

func ListCandidates(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		if _, err := store.GetElection(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}
		cs, err := store.ListCandidates(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", cs))
	}
}

// CastVote handles POST /api/v1/elections/{id}/votes
//
//	{ "member_id": 7, "candidate_id": 3 }
//
// The election must be open, the voter an active member and the candidate
// standing in this election. A second vote by the same member is 409.
func CastVote(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var v types.Vote
		if !request.Decode(w, r, &v) {
			return
		}

		e, err := store.GetElection(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		if e.Status != types.ElectionOpen {
			response.Error(w, fmt.Errorf("election %d is %s, not open: %w", id, e.Status, storage.ErrConflict))
			return
		}

		voter, err := store.GetMember(r.Context(), v.MemberID)
		if errors.Is(err, storage.ErrNotFound) {
			response.BadRequest(w, fmt.Errorf("member %d does not exist", v.MemberID))
			return
		}
		if err != nil {
			response.Error(w, err)
			return
		}
		if voter.Status != types.MemberActive {
			response.BadRequest(w, fmt.Errorf("member %d is %s and cannot vote", v.MemberID, voter.Status))
			return
		}

		c, err := store.GetCandidate(r.Context(), v.CandidateID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			response.Error(w, err)
			return
		}
		if err != nil || c.ElectionID != id {
			response.BadRequest(w, fmt.Errorf("candidate %d is not standing in election %d", v.CandidateID, id))
			return
		}

		v.ElectionID = id
		voteID, err := store.CastVote(r.Context(), v)
		if errors.Is(err, storage.ErrConflict) {
			response.Error(w, fmt.Errorf("member %d has already voted in election %d: %w", v.MemberID, id, err))
			return
		}
		if err != nil {
			response.Error(w, err)
			return
		}
		v.ID = voteID

		slog.Info("vote cast", slog.Int64("election_id", id), slog.Int64("vote_id", voteID))
		// The chosen candidate stays out of the audit trail.
		audit.Record(r, store, audit.ActionVote, "election", strconv.FormatInt(id, 10),
			fmt.Sprintf("member %d", v.MemberID))
		response.WriteJSON(w, http.StatusCreated, response.OK("vote recorded", map[string]int64{"vote_id": voteID}))
	}
}

// Results handles GET /api/v1/elections/{id}/results
func Results(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		e, err := store.GetElection(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		results, err := store.ElectionResults(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", map[string]any{
			"election": e,
			"results":  results,
		}))
	}
}
