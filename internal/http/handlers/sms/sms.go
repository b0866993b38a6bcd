// Package sms serves bulk SMS sending and the gateway's delivery callbacks.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"

	smssvc "github.com/aanand-mishra/membership-api/internal/sms"
)

// Messenger sends messages and applies delivery reports.
type Messenger interface {
	Send(ctx context.Context, body string, recipients []string) ([]types.SMSMessage, error)
	HandleDeliveryReport(ctx context.Context, r smssvc.DeliveryReport) (types.SMSMessage, error)
}

type sendRequest struct {
	Message    string   `json:"message"    validate:"required,max=918"`
	Recipients []string `json:"recipients"`
	Ward       string   `json:"ward"`
}

// Send handles POST /api/v1/sms/send
//
//	{ "message": "BGM on Sunday at 10:00", "recipients": ["0821234567"] }
//	{ "message": "BGM on Sunday at 10:00", "ward": "79800001" }
//
// With ward set, every active member of the ward with a cellphone is added
// to the recipients.
func Send(svc Messenger, store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sendRequest
		if !request.Decode(w, r, &body) {
			return
		}

		recipients := body.Recipients
		if body.Ward != "" {
			ok, err := store.WardExists(r.Context(), body.Ward)
			if err != nil {
				response.Error(w, err)
				return
			}
			if !ok {
				response.BadRequest(w, fmt.Errorf("unknown ward %q", body.Ward))
				return
			}
			members, err := store.ListMembersInArea(r.Context(), types.LevelWard, body.Ward)
			if err != nil {
				response.Error(w, err)
				return
			}
			for _, m := range members {
				if m.Cellphone != "" {
					recipients = append(recipients, m.Cellphone)
				}
			}
		}

		msgs, err := svc.Send(r.Context(), body.Message, recipients)
		if errors.Is(err, smssvc.ErrNoRecipients) {
			response.BadRequest(w, errors.New("no recipients: give recipients or a ward with reachable members"))
			return
		}
		if err != nil {
			response.Error(w, err)
			return
		}

		var sent int
		for _, m := range msgs {
			if m.Status == types.SMSSent {
				sent++
			}
		}
		slog.Info("sms batch sent", slog.Int("messages", len(msgs)), slog.Int("sent", sent))
		audit.Record(r, store, audit.ActionSend, "sms", "", fmt.Sprintf("%d of %d sent", sent, len(msgs)))
		response.WriteJSON(w, http.StatusCreated, response.OK(fmt.Sprintf("%d of %d messages sent", sent, len(msgs)), msgs))
	}
}

// DeliveryReport handles POST /api/v1/sms/delivery-reports, the gateway
// callback.
func DeliveryReport(svc Messenger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var report smssvc.DeliveryReport
		if !request.Decode(w, r, &report) {
			return
		}
		m, err := svc.HandleDeliveryReport(r.Context(), report)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("delivery report applied", m))
	}
}

func GetMessage(store storage.SMSStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := store.GetSMSMessage(r.Context(), r.PathValue("id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", m))
	}
}

// ListMessages handles GET /api/v1/sms/messages?status=&limit=
func ListMessages(store storage.SMSStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := store.ListSMSMessages(r.Context(), r.URL.Query().Get("status"), request.QueryInt(r, "limit", 100))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", msgs))
	}
}
