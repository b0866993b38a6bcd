// Package iec exposes the Electoral Commission integration over HTTP.
package iec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/idnumber"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/utils/response"

	iecsvc "github.com/aanand-mishra/membership-api/internal/iec"
)

// Service is what the handlers need from the mapper.
type Service interface {
	Resolve(ctx context.Context, entityType, code string) (string, error)
	Sync(ctx context.Context) (map[string]int, error)
	BallotResults(ctx context.Context, req iecsvc.BallotRequest) (json.RawMessage, error)
	VerifyVoter(ctx context.Context, idNumber string) (iecsvc.Voter, error)
}

// writeError maps IEC failures: not configured is 503, an upstream error
// is 502, an unknown area is 404.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *iecsvc.APIError
	switch {
	case errors.Is(err, iecsvc.ErrNotConfigured):
		response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(iecsvc.ErrNotConfigured))
	case errors.As(err, &apiErr):
		slog.Error("iec api error", slog.Int("status", apiErr.StatusCode), slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusBadGateway, response.GeneralError(errors.New("IEC service error")))
	default:
		response.Error(w, err)
	}
}

// Mapping handles GET /api/v1/iec/mappings/{type}/{code}
func Mapping(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType, code := r.PathValue("type"), r.PathValue("code")
		if !slices.Contains(iecsvc.EntityTypes, entityType) {
			response.BadRequest(w, fmt.Errorf("unknown entity type %q", entityType))
			return
		}
		id, err := svc.Resolve(r.Context(), entityType, code)
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", map[string]string{
			"entity_type": entityType,
			"code":        code,
			"iec_id":      id,
		}))
	}
}

// Sync handles POST /api/v1/iec/sync
func Sync(svc Service, store storage.AuditStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.Sync(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		audit.Record(r, store, audit.ActionSync, "iec_mapping", "", fmt.Sprint(counts))
		response.WriteJSON(w, http.StatusOK, response.OK("iec mappings synchronised", counts))
	}
}

// BallotResults handles
// GET /api/v1/iec/ballot-results?election_type=&province=&municipality=&ward=
//
// Area parameters are our codes; they are translated before the call.
func BallotResults(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := iecsvc.BallotRequest{
			ElectionType:     q.Get("election_type"),
			ProvinceCode:     q.Get("province"),
			MunicipalityCode: q.Get("municipality"),
			WardCode:         q.Get("ward"),
		}
		if req.ElectionType == "" {
			response.BadRequest(w, errors.New("election_type is required"))
			return
		}
		raw, err := svc.BallotResults(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", raw))
	}
}

// Voter handles GET /api/v1/iec/voters/{id_number}
func Voter(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id_number")
		if _, err := idnumber.Validate(id); err != nil {
			response.BadRequest(w, err)
			return
		}
		v, err := svc.VerifyVoter(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", v))
	}
}
