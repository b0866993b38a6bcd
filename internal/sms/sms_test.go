package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/testutil"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// newFakeGateway accepts every number except 27830000000 and records the
// last request.
func newFakeGateway(t *testing.T, got *sendRequest) *Gateway {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sms/send" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*got = req

		var resp sendResponse
		for i, n := range req.Recipients {
			if n == "27830000000" {
				resp.Results = append(resp.Results, SendResult{Recipient: n, Error: "blacklisted"})
				continue
			}
			resp.Results = append(resp.Results, SendResult{Recipient: n, MessageID: "gw-" + string(rune('a'+i))})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return NewGateway(srv.URL, "key", "MEMBERS", time.Second)
}

func TestServiceSend(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	var req sendRequest
	svc := NewService(newFakeGateway(t, &req), store)

	msgs, err := svc.Send(ctx, "Branch meeting on Sunday", []string{
		"082 123 4567",
		"27821234567", // same number again
		"0830000000",
		"not-a-number",
	})
	require.NoError(t, err)

	assert.Equal(t, "MEMBERS", req.SenderID)
	assert.Equal(t, []string{"27821234567", "27830000000"}, req.Recipients)

	require.Len(t, msgs, 3)
	assert.Equal(t, types.SMSSent, msgs[0].Status)
	assert.Equal(t, "gw-a", msgs[0].GatewayID)
	assert.Equal(t, types.SMSFailed, msgs[1].Status)
	assert.Equal(t, "blacklisted", msgs[1].Error)
	assert.Equal(t, types.SMSFailed, msgs[2].Status)
	assert.Equal(t, "not-a-number", msgs[2].Recipient)

	stored, err := store.GetSMSMessage(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.SMSSent, stored.Status)
	assert.Equal(t, "27821234567", stored.Recipient)
}

func TestServiceSendGatewayDown(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := NewService(NewGateway("", "", "MEMBERS", 0), store)

	msgs, err := svc.Send(ctx, "hello", []string{"0821234567"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.SMSFailed, msgs[0].Status)
	assert.Contains(t, msgs[0].Error, "not configured")

	_, err = svc.Send(ctx, "hello", nil)
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestHandleDeliveryReport(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	var req sendRequest
	svc := NewService(newFakeGateway(t, &req), store)

	msgs, err := svc.Send(ctx, "hello", []string{"0821234567", "0827654321"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	m, err := svc.HandleDeliveryReport(ctx, DeliveryReport{MessageID: "gw-a", Status: "BUFFERED"})
	require.NoError(t, err)
	assert.Equal(t, types.SMSSent, m.Status)

	m, err = svc.HandleDeliveryReport(ctx, DeliveryReport{MessageID: "gw-a", Status: "DELIVRD"})
	require.NoError(t, err)
	assert.Equal(t, types.SMSDelivered, m.Status)

	m, err = svc.HandleDeliveryReport(ctx, DeliveryReport{MessageID: "gw-a", Status: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, types.SMSDelivered, m.Status, "late progress report")

	m, err = svc.HandleDeliveryReport(ctx, DeliveryReport{MessageID: "gw-b", Status: "UNDELIV"})
	require.NoError(t, err)
	assert.Equal(t, types.SMSFailed, m.Status)
	assert.Equal(t, "UNDELIV", m.Error)

	stored, err := store.GetSMSMessage(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.SMSDelivered, stored.Status)

	_, err = svc.HandleDeliveryReport(ctx, DeliveryReport{MessageID: "nope", Status: "delivered"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
