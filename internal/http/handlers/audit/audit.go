// Package audit records who changed what, and serves the audit trail.
package audit

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/membership-api/internal/http/middleware"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// ActorHeader names the request header carrying the acting user. Requests
// without it are attributed to "system".
const ActorHeader = "X-User"

// Actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionUpload  = "upload"
	ActionVote    = "vote"
	ActionAppoint = "appoint"
	ActionVacate  = "vacate"
	ActionSend    = "send"
	ActionSync    = "sync"
	ActionBackup  = "backup"
)

// Actor names the user behind r.
func Actor(r *http.Request) string {
	if actor := r.Header.Get(ActorHeader); actor != "" {
		return actor
	}
	return "system"
}

// Record writes an audit entry for r. A failed write is logged and
// otherwise ignored: the change it describes has already happened.
func Record(r *http.Request, store storage.AuditStore, action, entityType, entityID, details string) {
	err := store.CreateAuditLog(r.Context(), types.AuditLog{
		Actor:      Actor(r),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  middleware.ClientIP(r),
	})
	if err != nil {
		slog.Error("audit log not written",
			slog.String("action", action),
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID),
			slog.String("error", err.Error()))
	}
}

// List handles GET /api/v1/audit-logs?entity_type=&action=&limit=
func List(store storage.AuditStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		logs, err := store.ListAuditLogs(r.Context(), types.AuditFilter{
			EntityType: q.Get("entity_type"),
			Action:     q.Get("action"),
			Limit:      request.QueryInt(r, "limit", 100),
		})
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", logs))
	}
}
