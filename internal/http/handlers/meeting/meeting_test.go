package meeting

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/storage/sqlstore"
	"github.com/aanand-mishra/membership-api/internal/testutil"
	"github.com/aanand-mishra/membership-api/internal/types"
)

var when = time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)

func schedule(t *testing.T, store *sqlstore.Store, level, code string) types.Meeting {
	t.Helper()
	rec := testutil.Serve(t, "POST /meetings", Create(store), http.MethodPost, "/meetings", types.Meeting{
		Title: level + " meeting", Level: level, EntityCode: code, ScheduledAt: when,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m types.Meeting
	testutil.Decode(t, rec, &m)
	return m
}

func url(m types.Meeting, suffix string) string {
	return "/meetings/" + strconv.FormatInt(m.ID, 10) + suffix
}

func TestCreate(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	m := schedule(t, store, types.LevelWard, testutil.WardJHB1)
	assert.Equal(t, types.MeetingScheduled, m.Status)
	assert.True(t, when.Equal(m.ScheduledAt))

	tests := []struct {
		name string
		in   types.Meeting
	}{
		{"unknown ward", types.Meeting{Title: "x", Level: types.LevelWard, EntityCode: "nope", ScheduledAt: when}},
		{"unknown province", types.Meeting{Title: "x", Level: types.LevelProvince, EntityCode: "ZZ", ScheduledAt: when}},
		{"bad level", types.Meeting{Title: "x", Level: "branch", EntityCode: "1", ScheduledAt: when}},
		{"missing code", types.Meeting{Title: "x", Level: types.LevelMunicipality, ScheduledAt: when}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Serve(t, "POST /meetings", Create(store), http.MethodPost, "/meetings", tt.in)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestStatusAndList(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	ward := schedule(t, store, types.LevelWard, testutil.WardJHB1)
	schedule(t, store, types.LevelNational, "")

	rec := testutil.Serve(t, "PATCH /meetings/{id}/status", UpdateStatus(store), http.MethodPatch,
		url(ward, "/status"), map[string]string{"status": types.MeetingCancelled})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = testutil.Serve(t, "PATCH /meetings/{id}/status", UpdateStatus(store), http.MethodPatch,
		url(ward, "/status"), map[string]string{"status": "postponed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.Serve(t, "GET /meetings", List(store), http.MethodGet, "/meetings?status=cancelled", nil)
	var ms []types.Meeting
	testutil.Decode(t, rec, &ms)
	require.Len(t, ms, 1)
	assert.Equal(t, ward.ID, ms[0].ID)

	rec = testutil.Serve(t, "GET /meetings", List(store), http.MethodGet, "/meetings?level=national", nil)
	testutil.Decode(t, rec, &ms)
	assert.Len(t, ms, 1)
}

func TestDocuments(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	m := schedule(t, store, types.LevelWard, testutil.WardJHB1)

	rec := testutil.Serve(t, "POST /meetings/{id}/documents", AddDocument(store), http.MethodPost, url(m, "/documents"),
		types.MeetingDocument{Title: "Agenda", Kind: "agenda", Content: "1. Opening"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d types.MeetingDocument
	testutil.Decode(t, rec, &d)

	rec = testutil.Serve(t, "POST /meetings/{id}/documents", AddDocument(store), http.MethodPost, url(m, "/documents"),
		types.MeetingDocument{Title: "Memo", Kind: "memo", Content: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.Serve(t, "POST /meetings/{id}/documents", AddDocument(store), http.MethodPost, "/meetings/999/documents",
		types.MeetingDocument{Title: "Agenda", Kind: "agenda", Content: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.Serve(t, "GET /meetings/{id}/documents", ListDocuments(store), http.MethodGet, url(m, "/documents"), nil)
	var ds []types.MeetingDocument
	testutil.Decode(t, rec, &ds)
	require.Len(t, ds, 1)
	assert.Equal(t, "1. Opening", ds[0].Content)

	del := url(m, "/documents/"+strconv.FormatInt(d.ID, 10))
	rec = testutil.Serve(t, "DELETE /meetings/{id}/documents/{doc_id}", DeleteDocument(store), http.MethodDelete, del, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = testutil.Serve(t, "DELETE /meetings/{id}/documents/{doc_id}", DeleteDocument(store), http.MethodDelete, del, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvitees(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	testutil.CreateMember(t, store, testutil.ValidIDs[0], "Anele", testutil.WardJHB1)
	testutil.CreateMember(t, store, testutil.ValidIDs[1], "Bongani", testutil.WardJHB2)
	testutil.CreateMember(t, store, testutil.ValidIDs[2], "Carol", testutil.WardCPT1)

	tests := []struct {
		level, code string
		want        int
	}{
		{types.LevelWard, testutil.WardJHB1, 1},
		{types.LevelMunicipality, testutil.MunicipalityJHB, 2},
		{types.LevelProvince, testutil.ProvinceWC, 1},
		{types.LevelNational, "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			m := schedule(t, store, tt.level, tt.code)
			rec := testutil.Serve(t, "GET /meetings/{id}/invitees", Invitees(store), http.MethodGet, url(m, "/invitees"), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var members []types.Member
			testutil.Decode(t, rec, &members)
			assert.Len(t, members, tt.want)
		})
	}
}
