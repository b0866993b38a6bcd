// Package meeting serves meetings, their documents and invitee lists.
package meeting

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/http/handlers/geo"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// Create handles POST /api/v1/meetings
//
//	{ "title": "Ward 1 BGM", "level": "ward", "entity_code": "79800001",
//	  "scheduled_at": "2026-11-01T10:00:00Z", "location": "Community hall" }
//
// The entity code must name an existing province, municipality or ward.
func Create(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m types.Meeting
		if !request.Decode(w, r, &m) {
			return
		}

		if m.Level == types.LevelNational {
			m.EntityCode = ""
		}
		ok, err := geo.AreaExists(r.Context(), store, m.Level, m.EntityCode)
		if err != nil {
			response.Error(w, err)
			return
		}
		if !ok {
			response.BadRequest(w, fmt.Errorf("unknown %s %q", m.Level, m.EntityCode))
			return
		}
		m.Status = types.MeetingScheduled

		id, err := store.CreateMeeting(r.Context(), m)
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := store.GetMeeting(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("meeting scheduled", slog.Int64("id", id), slog.String("level", m.Level))
		audit.Record(r, store, audit.ActionCreate, "meeting", strconv.FormatInt(id, 10), m.Title)
		response.WriteJSON(w, http.StatusCreated, response.OK("meeting created", created))
	}
}

func Get(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		m, err := store.GetMeeting(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", m))
	}
}

// List handles GET /api/v1/meetings?level=&status=
func List(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ms, err := store.ListMeetings(r.Context(), q.Get("level"), q.Get("status"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", ms))
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled completed cancelled"`
}

// UpdateStatus handles PATCH /api/v1/meetings/{id}/status
func UpdateStatus(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var body statusRequest
		if !request.Decode(w, r, &body) {
			return
		}
		if err := store.SetMeetingStatus(r.Context(), id, body.Status); err != nil {
			response.Error(w, err)
			return
		}
		m, err := store.GetMeeting(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		audit.Record(r, store, audit.ActionUpdate, "meeting", strconv.FormatInt(id, 10), "status "+body.Status)
		response.WriteJSON(w, http.StatusOK, response.OK("meeting "+body.Status, m))
	}
}

// AddDocument handles POST /api/v1/meetings/{id}/documents
func AddDocument(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var d types.MeetingDocument
		if !request.Decode(w, r, &d) {
			return
		}
		if _, err := store.GetMeeting(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}

		d.MeetingID = id
		docID, err := store.CreateMeetingDocument(r.Context(), d)
		if err != nil {
			response.Error(w, err)
			return
		}
		d.ID = docID

		audit.Record(r, store, audit.ActionCreate, "meeting_document", strconv.FormatInt(docID, 10),
			fmt.Sprintf("meeting %d: %s", id, d.Title))
		response.WriteJSON(w, http.StatusCreated, response.OK("document added", d))
	}
}

func ListDocuments(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		ds, err := store.ListMeetingDocuments(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", ds))
	}
}

// DeleteDocument handles DELETE /api/v1/meetings/{id}/documents/{doc_id}
func DeleteDocument(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		docID, ok := request.PathID(w, r, "doc_id")
		if !ok {
			return
		}
		if err := store.DeleteMeetingDocument(r.Context(), id, docID); err != nil {
			response.Error(w, err)
			return
		}
		audit.Record(r, store, audit.ActionDelete, "meeting_document", strconv.FormatInt(docID, 10), "")
		response.WriteJSON(w, http.StatusOK, response.OK("document deleted", nil))
	}
}

// Invitees handles GET /api/v1/meetings/{id}/invitees
//
// A ward meeting invites the ward's active members, a municipal meeting
// those of every ward in the municipality, and so on up to national.
func Invitees(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		m, err := store.GetMeeting(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		members, err := store.ListMembersInArea(r.Context(), m.Level, m.EntityCode)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK(fmt.Sprintf("%d invitees", len(members)), members))
	}
}
