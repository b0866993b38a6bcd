// Package member contains the HTTP handlers for members and membership
// applications.
//
// Handlers are factories: each takes its dependencies and returns the
// http.HandlerFunc the router registers.
//
//	router.HandleFunc("POST /api/v1/members", member.New(store))
package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/idnumber"
	"github.com/aanand-mishra/membership-api/internal/phone"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// invalidInput marks errors that are the client's fault.
type invalidInput struct{ error }

func writeError(w http.ResponseWriter, err error) {
	var bad invalidInput
	if errors.As(err, &bad) {
		response.BadRequest(w, bad.error)
		return
	}
	response.Error(w, err)
}

// fromInput validates in and builds the member it describes: date of birth
// and gender come from the ID number, the cellphone is normalised and the
// ward must exist.
func fromInput(ctx context.Context, geo storage.GeoStore, in types.MemberInput) (types.Member, error) {
	info, err := idnumber.Validate(in.IDNumber)
	if err != nil {
		return types.Member{}, invalidInput{err}
	}

	ok, err := geo.WardExists(ctx, in.WardCode)
	if err != nil {
		return types.Member{}, err
	}
	if !ok {
		return types.Member{}, invalidInput{fmt.Errorf("unknown ward %q", in.WardCode)}
	}

	cell := in.Cellphone
	if cell != "" {
		if cell, err = phone.Normalize(cell); err != nil {
			return types.Member{}, invalidInput{err}
		}
	}

	status := in.Status
	if status == "" {
		status = types.MemberActive
	}

	return types.Member{
		IDNumber:           in.IDNumber,
		FirstName:          in.FirstName,
		Surname:            in.Surname,
		DateOfBirth:        info.DateOfBirth,
		Gender:             info.Gender,
		Cellphone:          cell,
		Email:              in.Email,
		WardCode:           in.WardCode,
		VotingDistrictCode: in.VotingDistrictCode,
		Status:             status,
	}, nil
}

// New handles POST /api/v1/members
//
// Request body:
//
//	{ "id_number": "8001015009087", "first_name": "Thabo", "surname": "Mokoena",
//	  "cellphone": "0821234567", "ward_code": "79800001" }
//
// 201 with the stored member, 400 on validation failure, 409 when the ID
// number is already registered.
func New(store storage.Storage) http.HandlerFunc {
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

		id, err := store.CreateMember(r.Context(), m)
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := store.GetMember(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("member created", slog.Int64("id", id), slog.String("ward", m.WardCode))
		audit.Record(r, store, audit.ActionCreate, "member", strconv.FormatInt(id, 10), m.IDNumber)
		response.WriteJSON(w, http.StatusCreated, response.OK("member created", created))
	}
}

// GetByID handles GET /api/v1/members/{id}
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		m, err := store.GetMember(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", m))
	}
}

// GetByIDNumber handles GET /api/v1/members/by-id-number/{id_number}
func GetByIDNumber(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := store.GetMemberByIDNumber(r.Context(), r.PathValue("id_number"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", m))
	}
}

// GetList handles GET /api/v1/members?ward=&status=&q=&limit=&offset=
//
// Returns an empty array, not null, when nothing matches.
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		members, err := store.ListMembers(r.Context(), types.MemberFilter{
			WardCode: q.Get("ward"),
			Status:   q.Get("status"),
			Query:    q.Get("q"),
			Limit:    request.QueryInt(r, "limit", 100),
			Offset:   request.QueryInt(r, "offset", 0),
		})
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", members))
	}
}

// Update handles PUT /api/v1/members/{id}
//
// Replaces the member's details with the body; the membership expiry and
// creation time are kept.
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var in types.MemberInput
		if !request.Decode(w, r, &in) {
			return
		}

		existing, err := store.GetMember(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		m, err := fromInput(r.Context(), store, in)
		if err != nil {
			writeError(w, err)
			return
		}
		m.ID = existing.ID
		m.MembershipExpiry = existing.MembershipExpiry
		m.CreatedAt = existing.CreatedAt
		if in.Status == "" {
			m.Status = existing.Status
		}

		if err := store.UpdateMember(r.Context(), m); err != nil {
			response.Error(w, err)
			return
		}
		updated, err := store.GetMember(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("member updated", slog.Int64("id", id))
		audit.Record(r, store, audit.ActionUpdate, "member", strconv.FormatInt(id, 10), "")
		response.WriteJSON(w, http.StatusOK, response.OK("member updated", updated))
	}
}

// Delete handles DELETE /api/v1/members/{id}
//
// A member still referenced by votes or candidacies cannot be deleted (409).
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		if err := store.DeleteMember(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}
		slog.Info("member deleted", slog.Int64("id", id))
		audit.Record(r, store, audit.ActionDelete, "member", strconv.FormatInt(id, 10), "")
		response.WriteJSON(w, http.StatusOK, response.OK("member deleted", nil))
	}
}
