package geo

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/testutil"
	"github.com/aanand-mishra/membership-api/internal/types"
)

func TestCreateProvince(t *testing.T) {
	store := testutil.NewStore(t)
	h := CreateProvince(store)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"valid", types.Province{Code: "KZN", Name: "KwaZulu-Natal"}, http.StatusCreated},
		{"duplicate", types.Province{Code: "KZN", Name: "Again"}, http.StatusConflict},
		{"missing name", types.Province{Code: "NC"}, http.StatusBadRequest},
		{"empty body", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Serve(t, "POST /provinces", h, http.MethodPost, "/provinces", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	logs, err := store.ListAuditLogs(context.Background(), types.AuditFilter{EntityType: "province"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "system", logs[0].Actor)
	assert.Equal(t, "KZN", logs[0].EntityID)
}

func TestCreateMunicipalityUnknownProvince(t *testing.T) {
	store := testutil.NewStore(t)
	rec := testutil.Serve(t, "POST /m", CreateMunicipality(store), http.MethodPost, "/m",
		types.Municipality{Code: "X", ProvinceCode: "NOPE", Name: "Nowhere"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWardHierarchy(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	rec := testutil.Serve(t, "GET /wards/{code}", WardHierarchy(store), http.MethodGet, "/wards/"+testutil.WardJHB2, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var h types.WardHierarchy
	testutil.Decode(t, rec, &h)
	assert.Equal(t, 2, h.Ward.Number)
	assert.Equal(t, testutil.MunicipalityJHB, h.Municipality.Code)
	assert.Equal(t, testutil.ProvinceGP, h.Province.Code)

	rec = testutil.Serve(t, "GET /wards/{code}", WardHierarchy(store), http.MethodGet, "/wards/00000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListsFollowTheHierarchy(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	rec := testutil.Serve(t, "GET /p/{code}/m", ListMunicipalities(store), http.MethodGet, "/p/GP/m", nil)
	var ms []types.Municipality
	testutil.Decode(t, rec, &ms)
	require.Len(t, ms, 1)
	assert.Equal(t, testutil.MunicipalityJHB, ms[0].Code)

	rec = testutil.Serve(t, "GET /m/{code}/w", ListWards(store), http.MethodGet, "/m/JHB/w", nil)
	var wards []types.Ward
	testutil.Decode(t, rec, &wards)
	assert.Len(t, wards, 2)

	rec = testutil.Serve(t, "GET /w/{code}/vd", ListVotingDistricts(store), http.MethodGet, "/w/"+testutil.WardJHB1+"/vd", nil)
	var vds []types.VotingDistrict
	testutil.Decode(t, rec, &vds)
	require.Len(t, vds, 1)
	assert.Equal(t, testutil.VDJHB1, vds[0].Code)
}

func TestWardMemberCount(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	testutil.CreateMember(t, store, testutil.ValidIDs[0], "Anele", testutil.WardJHB1)
	testutil.CreateMember(t, store, testutil.ValidIDs[1], "Bongani", testutil.WardJHB1)

	rec := testutil.Serve(t, "GET /w/{code}/count", WardMemberCount(store), http.MethodGet, "/w/"+testutil.WardJHB1+"/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Members int `json:"members"`
	}
	testutil.Decode(t, rec, &out)
	assert.Equal(t, 2, out.Members)

	rec = testutil.Serve(t, "GET /w/{code}/count", WardMemberCount(store), http.MethodGet, "/w/nope/count", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
