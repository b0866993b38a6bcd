// Package geo serves the geographic hierarchy:
// province -> municipality -> ward -> voting district.
package geo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// AreaExists reports whether code names a province, municipality or ward
// at level. The national level has no code and always exists.
func AreaExists(ctx context.Context, store storage.GeoStore, level, code string) (bool, error) {
	var err error
	switch level {
	case types.LevelNational:
		return true, nil
	case types.LevelProvince:
		_, err = store.GetProvince(ctx, code)
	case types.LevelMunicipality:
		_, err = store.GetMunicipality(ctx, code)
	case types.LevelWard:
		_, err = store.GetWard(ctx, code)
	default:
		return false, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateProvince handles POST /api/v1/geo/provinces
//
//	{ "code": "GP", "name": "Gauteng" }
func CreateProvince(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p types.Province
		if !request.Decode(w, r, &p) {
			return
		}
		if err := store.CreateProvince(r.Context(), p); err != nil {
			response.Error(w, err)
			return
		}
		slog.Info("province created", slog.String("code", p.Code))
		audit.Record(r, store, audit.ActionCreate, "province", p.Code, p.Name)
		response.WriteJSON(w, http.StatusCreated, response.OK("province created", p))
	}
}

// ListProvinces handles GET /api/v1/geo/provinces
func ListProvinces(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provinces, err := store.ListProvinces(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", provinces))
	}
}

// GetProvince handles GET /api/v1/geo/provinces/{code}
func GetProvince(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.GetProvince(r.Context(), r.PathValue("code"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", p))
	}
}

// CreateMunicipality handles POST /api/v1/geo/municipalities
func CreateMunicipality(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m types.Municipality
		if !request.Decode(w, r, &m) {
			return
		}
		if err := store.CreateMunicipality(r.Context(), m); err != nil {
			response.Error(w, err)
			return
		}
		audit.Record(r, store, audit.ActionCreate, "municipality", m.Code, m.Name)
		response.WriteJSON(w, http.StatusCreated, response.OK("municipality created", m))
	}
}

// ListMunicipalities handles GET /api/v1/geo/provinces/{code}/municipalities
func ListMunicipalities(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, err := store.ListMunicipalities(r.Context(), r.PathValue("code"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", ms))
	}
}

// CreateWard handles POST /api/v1/geo/wards
func CreateWard(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ward types.Ward
		if !request.Decode(w, r, &ward) {
			return
		}
		if err := store.CreateWard(r.Context(), ward); err != nil {
			response.Error(w, err)
			return
		}
		audit.Record(r, store, audit.ActionCreate, "ward", ward.Code, "")
		response.WriteJSON(w, http.StatusCreated, response.OK("ward created", ward))
	}
}

// ListWards handles GET /api/v1/geo/municipalities/{code}/wards
func ListWards(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wards, err := store.ListWards(r.Context(), r.PathValue("code"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", wards))
	}
}

// CreateVotingDistrict handles POST /api/v1/geo/voting-districts
func CreateVotingDistrict(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var vd types.VotingDistrict
		if !request.Decode(w, r, &vd) {
			return
		}
		if err := store.CreateVotingDistrict(r.Context(), vd); err != nil {
			response.Error(w, err)
			return
		}
		audit.Record(r, store, audit.ActionCreate, "voting_district", vd.Code, vd.Name)
		response.WriteJSON(w, http.StatusCreated, response.OK("voting district created", vd))
	}
}

// ListVotingDistricts handles GET /api/v1/geo/wards/{code}/voting-districts
func ListVotingDistricts(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vds, err := store.ListVotingDistricts(r.Context(), r.PathValue("code"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", vds))
	}
}

// WardHierarchy handles GET /api/v1/geo/hierarchy/wards/{code}
func WardHierarchy(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := store.GetWardHierarchy(r.Context(), r.PathValue("code"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", h))
	}
}

// WardMemberCount handles GET /api/v1/geo/wards/{code}/members/count
func WardMemberCount(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		if _, err := store.GetWard(r.Context(), code); err != nil {
			response.Error(w, err)
			return
		}
		n, err := store.CountWardMembers(r.Context(), code)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", map[string]any{
			"ward_code": code,
			"members":   n,
		}))
	}
}
