// Package warcouncil serves the war council positions and who holds them.
package warcouncil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// CreatePosition handles POST /api/v1/war-council/positions
func CreatePosition(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p types.WarCouncilPosition
		if !request.Decode(w, r, &p) {
			return
		}
		id, err := store.CreatePosition(r.Context(), p)
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := store.GetPosition(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("war council position created", slog.Int64("id", id), slog.String("title", p.Title))
		audit.Record(r, store, audit.ActionCreate, "war_council_position", strconv.FormatInt(id, 10), p.Title)
		response.WriteJSON(w, http.StatusCreated, response.OK("position created", created))
	}
}

// ListPositions handles GET /api/v1/war-council/positions
func ListPositions(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := store.ListPositions(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", ps))
	}
}

type appointRequest struct {
	MemberID int64 `json:"member_id" validate:"required"`
}

// Appoint handles POST /api/v1/war-council/positions/{id}/appoint
//
//	{ "member_id": 12 }
//
// 409 when the position is already held or the member holds another one.
func Appoint(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var body appointRequest
		if !request.Decode(w, r, &body) {
			return
		}

		m, err := store.GetMember(r.Context(), body.MemberID)
		if errors.Is(err, storage.ErrNotFound) {
			response.BadRequest(w, fmt.Errorf("member %d does not exist", body.MemberID))
			return
		}
		if err != nil {
			response.Error(w, err)
			return
		}
		if m.Status != types.MemberActive {
			response.BadRequest(w, fmt.Errorf("member %d is %s", m.ID, m.Status))
			return
		}

		if err := store.AppointMember(r.Context(), id, body.MemberID); err != nil {
			response.Error(w, err)
			return
		}
		p, err := store.GetPosition(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("war council appointment", slog.Int64("position_id", id), slog.Int64("member_id", m.ID))
		audit.Record(r, store, audit.ActionAppoint, "war_council_position", strconv.FormatInt(id, 10),
			fmt.Sprintf("member %d", m.ID))
		response.WriteJSON(w, http.StatusOK, response.OK("member appointed", p))
	}
}

// Vacate handles DELETE /api/v1/war-council/positions/{id}/holder
func Vacate(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		if err := store.VacatePosition(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}
		p, err := store.GetPosition(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		audit.Record(r, store, audit.ActionVacate, "war_council_position", strconv.FormatInt(id, 10), "")
		response.WriteJSON(w, http.StatusOK, response.OK("position vacated", p))
	}
}
