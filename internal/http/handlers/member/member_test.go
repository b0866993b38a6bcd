package member

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aanand-mishra/membership-api/internal/testutil"
	"github.com/aanand-mishra/membership-api/internal/types"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func input(id, first, ward string) types.MemberInput {
	return types.MemberInput{IDNumber: id, FirstName: first, Surname: "Mokoena", WardCode: ward}
}

func TestNew(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	h := New(store)

	withCell := input("8001015009087", "Thabo", testutil.WardJHB1)
	withCell.Cellphone = "0821234567"

	badCell := input("9002150123088", "Lerato", testutil.WardJHB1)
	badCell.Cellphone = "12345678901"

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{"valid", withCell, http.StatusCreated, "member created"},
		{"duplicate id number", withCell, http.StatusConflict, ""},
		{"bad checksum", input("8001015009088", "X", testutil.WardJHB1), http.StatusBadRequest, "ID number checksum is invalid"},
		{"unknown ward", input("9002150123088", "Lerato", "00000000"), http.StatusBadRequest, `unknown ward "00000000"`},
		{"bad cellphone", badCell, http.StatusBadRequest, ""},
		{"missing surname", types.MemberInput{IDNumber: "9002150123088", FirstName: "L", WardCode: testutil.WardJHB1}, http.StatusBadRequest, "field Surname is required"},
		{"malformed json", `{"id_number":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Serve(t, "POST /members", h, http.MethodPost, "/members", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			env := testutil.Decode(t, rec, nil)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Message)
			}
		})
	}

	m, err := store.GetMemberByIDNumber(context.Background(), "8001015009087")
	require.NoError(t, err)
	assert.Equal(t, "27821234567", m.Cellphone)
	assert.Equal(t, "male", m.Gender)
	assert.Equal(t, types.MemberActive, m.Status)
}

func TestGetUpdateDelete(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	m := testutil.CreateMember(t, store, "9002150123088", "Lerato", testutil.WardJHB1)
	path := "/members/" + itoa(m.ID)

	rec := testutil.Serve(t, "GET /members/{id}", GetByID(store), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Member
	testutil.Decode(t, rec, &got)
	assert.Equal(t, "female", got.Gender)

	rec = testutil.Serve(t, "GET /members/{id}", GetByID(store), http.MethodGet, "/members/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.Serve(t, "GET /members/{id}", GetByID(store), http.MethodGet, "/members/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	upd := input("9002150123088", "Lerato", testutil.WardJHB2)
	upd.Surname = "Khumalo"
	upd.Status = types.MemberInactive
	rec = testutil.Serve(t, "PUT /members/{id}", Update(store), http.MethodPut, path, upd)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testutil.Decode(t, rec, &got)
	assert.Equal(t, "Khumalo", got.Surname)
	assert.Equal(t, testutil.WardJHB2, got.WardCode)
	assert.Equal(t, types.MemberInactive, got.Status)

	rec = testutil.Serve(t, "GET /members/by-id-number/{id_number}", GetByIDNumber(store),
		http.MethodGet, "/members/by-id-number/9002150123088", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.Serve(t, "DELETE /members/{id}", Delete(store), http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = testutil.Serve(t, "DELETE /members/{id}", Delete(store), http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetList(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	testutil.CreateMember(t, store, testutil.ValidIDs[0], "Anele", testutil.WardJHB1)
	testutil.CreateMember(t, store, testutil.ValidIDs[1], "Bongani", testutil.WardJHB2)

	rec := testutil.Serve(t, "GET /members", GetList(store), http.MethodGet, "/members?ward="+testutil.WardJHB2, nil)
	var members []types.Member
	testutil.Decode(t, rec, &members)
	require.Len(t, members, 1)
	assert.Equal(t, "Bongani", members[0].FirstName)

	rec = testutil.Serve(t, "GET /members", GetList(store), http.MethodGet, "/members?q=nobody", nil)
	assert.JSONEq(t, `[]`, string(testutil.Decode(t, rec, nil).Data))
}

func TestExport(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)
	testutil.CreateMember(t, store, "0203041234188", "Kagiso", testutil.WardJHB1)
	testutil.CreateMember(t, store, testutil.ValidIDs[1], "Bongani", testutil.WardJHB2)

	rec := testutil.Serve(t, "GET /members/export", Export(store), http.MethodGet, "/members/export?ward="+testutil.WardJHB1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "members-79800001.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0203041234188", rows[1][0], "leading zero kept")
	assert.Equal(t, "2002-03-04", rows[1][3])

	now := time.Now()
	age := now.Year() - 2002
	if now.Month() < time.March || (now.Month() == time.March && now.Day() < 4) {
		age--
	}
	assert.Equal(t, strconv.Itoa(age), rows[1][4])
	assert.Equal(t, "female", rows[1][5])
}

func TestApplicationLifecycle(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	rec := testutil.Serve(t, "POST /applications", Submit(store), http.MethodPost, "/applications",
		input("8506305800086", "Sipho", testutil.WardCPT1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app types.Application
	testutil.Decode(t, rec, &app)
	assert.Equal(t, types.ApplicationPending, app.Status)

	_, err := store.GetMemberByIDNumber(context.Background(), "8506305800086")
	require.Error(t, err, "no member before approval")

	approve := "/applications/" + itoa(app.ID) + "/approve"
	rec = testutil.Serve(t, "POST /applications/{id}/approve", Approve(store), http.MethodPost, approve, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var m types.Member
	testutil.Decode(t, rec, &m)
	assert.Equal(t, "8506305800086", m.IDNumber)

	rec = testutil.Serve(t, "POST /applications/{id}/approve", Approve(store), http.MethodPost, approve, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	stored, err := store.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationApproved, stored.Status)
	require.NotNil(t, stored.MemberID)
	assert.Equal(t, m.ID, *stored.MemberID)

	rec = testutil.Serve(t, "POST /applications/{id}/reject", Reject(store), http.MethodPost,
		"/applications/"+itoa(app.ID)+"/reject", map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRejectApplication(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	id, err := store.CreateApplication(context.Background(), types.Application{
		MemberInput: input("7501015001084", "Zodwa", testutil.WardJHB1),
	})
	require.NoError(t, err)
	path := "/applications/" + itoa(id) + "/reject"

	rec := testutil.Serve(t, "POST /applications/{id}/reject", Reject(store), http.MethodPost, path, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.Serve(t, "POST /applications/{id}/reject", Reject(store), http.MethodPost, path,
		map[string]string{"reason": "not resident in the ward"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.Serve(t, "GET /applications", ListApplications(store), http.MethodGet, "/applications?status=rejected", nil)
	var apps []types.Application
	testutil.Decode(t, rec, &apps)
	require.Len(t, apps, 1)
	assert.Equal(t, "not resident in the ward", apps[0].Reason)
}
