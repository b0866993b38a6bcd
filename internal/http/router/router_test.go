package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/config"
	iecsvc "github.com/aanand-mishra/membership-api/internal/iec"
	smssvc "github.com/aanand-mishra/membership-api/internal/sms"
	"github.com/aanand-mishra/membership-api/internal/testutil"
	pipeline "github.com/aanand-mishra/membership-api/internal/upload"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	mapper := iecsvc.NewMapper(iecsvc.NewClient("", "", time.Second), store, nil, time.Hour)
	h, err := New(Deps{
		Store:     store,
		Uploads:   pipeline.NewProcessor(store, mapper, config.Upload{BatchSize: 10, MaxRows: 10, ReportDir: t.TempDir()}),
		IEC:       mapper,
		SMS:       smssvc.NewService(smssvc.NewGateway("", "", "MEMBERS", time.Second), store),
		BackupDir: t.TempDir(),
	})
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"list provinces", http.MethodGet, "/api/v1/geo/provinces", "", http.StatusOK},
		{"ward hierarchy", http.MethodGet, "/api/v1/geo/hierarchy/wards/79800001", "", http.StatusOK},
		{"create member", http.MethodPost, "/api/v1/members",
			`{"id_number":"8001015009087","first_name":"Thabo","surname":"Mokoena","ward_code":"79800001"}`, http.StatusCreated},
		{"member by id number", http.MethodGet, "/api/v1/members/by-id-number/8001015009087", "", http.StatusOK},
		{"export is not an id", http.MethodGet, "/api/v1/members/export", "", http.StatusOK},
		{"graphql", http.MethodPost, "/api/v1/graphql", `{"query":"{ provinces { code } }"}`, http.StatusOK},
		{"iec not configured", http.MethodGet, "/api/v1/iec/voters/8001015009087", "", http.StatusServiceUnavailable},
		{"sms without recipients", http.MethodPost, "/api/v1/sms/send", `{"message":"hi"}`, http.StatusBadRequest},
		{"audit trail", http.MethodGet, "/api/v1/audit-logs", "", http.StatusOK},
		{"take backup", http.MethodPost, "/api/v1/backups", "", http.StatusCreated},
		{"list backups", http.MethodGet, "/api/v1/backups", "", http.StatusOK},
		{"unknown backup", http.MethodGet, "/api/v1/backups/nope/download", "", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/v1/members", "", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	store := testutil.NewStore(t)
	h, err := New(Deps{Store: store})
	require.NoError(t, err)

	rec := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, store.Close())
	rec = do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unavailable")
}
