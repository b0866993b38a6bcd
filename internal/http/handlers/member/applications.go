package member

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// Submit handles POST /api/v1/applications
//
// The body is the same as for creating a member and is validated the same
// way, but nothing is written to members until the application is approved.
func Submit(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.MemberInput
		if !request.Decode(w, r, &in) {
			return
		}
		m, err := fromInput(r.Context(), store, in)
		if err != nil {
			writeError(w, err)
			return
		}
		in.Cellphone = m.Cellphone

		id, err := store.CreateApplication(r.Context(), types.Application{MemberInput: in})
		if err != nil {
			response.Error(w, err)
			return
		}
		a, err := store.GetApplication(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("application submitted", slog.Int64("id", id))
		audit.Record(r, store, audit.ActionCreate, "application", strconv.FormatInt(id, 10), in.IDNumber)
		response.WriteJSON(w, http.StatusCreated, response.OK("application submitted", a))
	}
}

// ListApplications handles GET /api/v1/applications?status=
func ListApplications(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apps, err := store.ListApplications(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", apps))
	}
}

// GetApplication handles GET /api/v1/applications/{id}
func GetApplication(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		a, err := store.GetApplication(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", a))
	}
}

// Approve handles POST /api/v1/applications/{id}/approve
//
// Creates the member and marks the application approved in one
// transaction. An application that is no longer pending yields 409.
func Approve(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}

		var member types.Member
		err := store.WithTx(r.Context(), func(tx storage.Storage) error {
			a, err := tx.GetApplication(r.Context(), id)
			if err != nil {
				return err
			}
			if a.Status != types.ApplicationPending {
				return fmt.Errorf("application %d is already %s: %w", id, a.Status, storage.ErrConflict)
			}

			m, err := fromInput(r.Context(), tx, a.MemberInput)
			if err != nil {
				return err
			}
			m.Status = types.MemberActive
			memberID, err := tx.CreateMember(r.Context(), m)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			a.Status = types.ApplicationApproved
			a.MemberID = &memberID
			a.ReviewedAt = &now
			if err := tx.UpdateApplication(r.Context(), a); err != nil {
				return err
			}

			member, err = tx.GetMember(r.Context(), memberID)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("application approved", slog.Int64("id", id), slog.Int64("member_id", member.ID))
		audit.Record(r, store, audit.ActionApprove, "application", strconv.FormatInt(id, 10),
			fmt.Sprintf("member %d", member.ID))
		response.WriteJSON(w, http.StatusOK, response.OK("application approved", member))
	}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Reject handles POST /api/v1/applications/{id}/reject
//
//	{ "reason": "not resident in the ward" }
func Reject(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var body rejectRequest
		if !request.Decode(w, r, &body) {
			return
		}

		now := time.Now().UTC()
		err := store.UpdateApplication(r.Context(), types.Application{
			ID:         id,
			Status:     types.ApplicationRejected,
			Reason:     body.Reason,
			ReviewedAt: &now,
		})
		if err != nil {
			response.Error(w, err)
			return
		}
		a, err := store.GetApplication(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		audit.Record(r, store, audit.ActionReject, "application", strconv.FormatInt(id, 10), body.Reason)
		response.WriteJSON(w, http.StatusOK, response.OK("application rejected", a))
	}
}
