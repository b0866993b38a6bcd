// Package router wires every handler onto one ServeMux.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/membership-api/internal/http/graphql"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/backup"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/election"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/geo"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/iec"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/meeting"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/member"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/sms"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/upload"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/user"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/warcouncil"
	"github.com/aanand-mishra/membership-api/internal/http/middleware"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// Deps are the services the handlers are built from.
type Deps struct {
	Store         storage.Storage
	Uploads       upload.Processor
	VerifyUploads bool
	IEC           iec.Service
	SMS           sms.Messenger
	BackupDir     string
}

// New returns the API handler. Requests are logged, and panics in handlers
// become 500 responses.
func New(d Deps) (http.Handler, error) {
	s := d.Store
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health(s))

	// Geography
	mux.HandleFunc("POST /api/v1/geo/provinces", geo.CreateProvince(s))
	mux.HandleFunc("GET /api/v1/geo/provinces", geo.ListProvinces(s))
	mux.HandleFunc("GET /api/v1/geo/provinces/{code}", geo.GetProvince(s))
	mux.HandleFunc("GET /api/v1/geo/provinces/{code}/municipalities", geo.ListMunicipalities(s))
	mux.HandleFunc("POST /api/v1/geo/municipalities", geo.CreateMunicipality(s))
	mux.HandleFunc("GET /api/v1/geo/municipalities/{code}/wards", geo.ListWards(s))
	mux.HandleFunc("POST /api/v1/geo/wards", geo.CreateWard(s))
	mux.HandleFunc("GET /api/v1/geo/wards/{code}/voting-districts", geo.ListVotingDistricts(s))
	mux.HandleFunc("GET /api/v1/geo/wards/{code}/members/count", geo.WardMemberCount(s))
	mux.HandleFunc("POST /api/v1/geo/voting-districts", geo.CreateVotingDistrict(s))
	mux.HandleFunc("GET /api/v1/geo/hierarchy/wards/{code}", geo.WardHierarchy(s))

	gql, err := graphql.Handler(s)
	if err != nil {
		return nil, fmt.Errorf("router: graphql schema: %w", err)
	}
	mux.Handle("/api/v1/graphql", gql)

	// Members and applications
	mux.HandleFunc("POST /api/v1/members", member.New(s))
	mux.HandleFunc("GET /api/v1/members", member.GetList(s))
	mux.HandleFunc("GET /api/v1/members/export", member.Export(s))
	mux.HandleFunc("GET /api/v1/members/by-id-number/{id_number}", member.GetByIDNumber(s))
	mux.HandleFunc("GET /api/v1/members/{id}", member.GetByID(s))
	mux.HandleFunc("PUT /api/v1/members/{id}", member.Update(s))
	mux.HandleFunc("DELETE /api/v1/members/{id}", member.Delete(s))

	mux.HandleFunc("POST /api/v1/applications", member.Submit(s))
	mux.HandleFunc("GET /api/v1/applications", member.ListApplications(s))
	mux.HandleFunc("GET /api/v1/applications/{id}", member.GetApplication(s))
	mux.HandleFunc("POST /api/v1/applications/{id}/approve", member.Approve(s))
	mux.HandleFunc("POST /api/v1/applications/{id}/reject", member.Reject(s))

	// Elections
	mux.HandleFunc("POST /api/v1/elections", election.Create(s))
	mux.HandleFunc("GET /api/v1/elections", election.List(s))
	mux.HandleFunc("GET /api/v1/elections/{id}", election.Get(s))
	mux.HandleFunc("PATCH /api/v1/elections/{id}/status", election.UpdateStatus(s))
	mux.HandleFunc("POST /api/v1/elections/{id}/candidates", election.AddCandidate(s))
	mux.HandleFunc("GET /api/v1/elections/{id}/candidates", election.ListCandidates(s))
	mux.HandleFunc("POST /api/v1/elections/{id}/votes", election.CastVote(s))
	mux.HandleFunc("GET /api/v1/elections/{id}/results", election.Results(s))

	// War council
	mux.HandleFunc("POST /api/v1/war-council/positions", warcouncil.CreatePosition(s))
	mux.HandleFunc("GET /api/v1/war-council/positions", warcouncil.ListPositions(s))
	mux.HandleFunc("POST /api/v1/war-council/positions/{id}/appoint", warcouncil.Appoint(s))
	mux.HandleFunc("DELETE /api/v1/war-council/positions/{id}/holder", warcouncil.Vacate(s))

	// Meetings
	mux.HandleFunc("POST /api/v1/meetings", meeting.Create(s))
	mux.HandleFunc("GET /api/v1/meetings", meeting.List(s))
	mux.HandleFunc("GET /api/v1/meetings/{id}", meeting.Get(s))
	mux.HandleFunc("PATCH /api/v1/meetings/{id}/status", meeting.UpdateStatus(s))
	mux.HandleFunc("GET /api/v1/meetings/{id}/invitees", meeting.Invitees(s))
	mux.HandleFunc("POST /api/v1/meetings/{id}/documents", meeting.AddDocument(s))
	mux.HandleFunc("GET /api/v1/meetings/{id}/documents", meeting.ListDocuments(s))
	mux.HandleFunc("DELETE /api/v1/meetings/{id}/documents/{doc_id}", meeting.DeleteDocument(s))

	// Users, roles, audit
	mux.HandleFunc("POST /api/v1/roles", user.CreateRole(s))
	mux.HandleFunc("GET /api/v1/roles", user.ListRoles(s))
	mux.HandleFunc("POST /api/v1/users", user.Create(s))
	mux.HandleFunc("GET /api/v1/users", user.List(s))
	mux.HandleFunc("GET /api/v1/users/{id}", user.Get(s))
	mux.HandleFunc("PATCH /api/v1/users/{id}", user.Update(s))
	mux.HandleFunc("DELETE /api/v1/users/{id}", user.Delete(s))
	mux.HandleFunc("GET /api/v1/audit-logs", audit.List(s))

	// Backups
	mux.HandleFunc("POST /api/v1/backups", backup.Create(s, d.BackupDir))
	mux.HandleFunc("GET /api/v1/backups", backup.List(s))
	mux.HandleFunc("GET /api/v1/backups/{id}", backup.Get(s))
	mux.HandleFunc("GET /api/v1/backups/{id}/download", backup.Download(s))

	// Bulk uploads
	mux.HandleFunc("POST /api/v1/uploads", upload.Create(s, d.Uploads, d.VerifyUploads))
	mux.HandleFunc("GET /api/v1/uploads", upload.List(s))
	mux.HandleFunc("GET /api/v1/uploads/{id}", upload.Get(s))
	mux.HandleFunc("GET /api/v1/uploads/{id}/report", upload.Report(s))

	// IEC
	mux.HandleFunc("GET /api/v1/iec/mappings/{type}/{code}", iec.Mapping(d.IEC))
	mux.HandleFunc("POST /api/v1/iec/sync", iec.Sync(d.IEC, s))
	mux.HandleFunc("GET /api/v1/iec/ballot-results", iec.BallotResults(d.IEC))
	mux.HandleFunc("GET /api/v1/iec/voters/{id_number}", iec.Voter(d.IEC))

	// SMS
	mux.HandleFunc("POST /api/v1/sms/send", sms.Send(d.SMS, s))
	mux.HandleFunc("POST /api/v1/sms/delivery-reports", sms.DeliveryReport(d.SMS))
	mux.HandleFunc("GET /api/v1/sms/messages", sms.ListMessages(s))
	mux.HandleFunc("GET /api/v1/sms/messages/{id}", sms.GetMessage(s))

	return middleware.WithLogging(middleware.Recover(mux)), nil
}

// health answers 200 while the database responds to a ping and 503
// otherwise.
func health(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(errors.New("database unavailable")))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("ok", nil))
	}
}
