package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/membership-api/internal/phone"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

var ErrNoRecipients = errors.New("sms: no recipients")

// DeliveryReport is the callback body the gateway posts when a message
// reaches a handset or gives up.
type DeliveryReport struct {
	MessageID string `json:"message_id" validate:"required"`
	Status    string `json:"status"     validate:"required"`
	Error     string `json:"error"`
}

// Service stores every outgoing message before handing it to the gateway,
// so delivery reports always have a row to land on.
type Service struct {
	sender Sender
	store  storage.SMSStore
	now    func() time.Time
}

func NewService(sender Sender, store storage.SMSStore) *Service {
	return &Service{sender: sender, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Send delivers body to every recipient. Numbers that cannot be normalised
// are stored as failed without reaching the gateway. A gateway failure
// marks the affected messages failed; only storage errors are returned.
func (s *Service) Send(ctx context.Context, body string, recipients []string) ([]types.SMSMessage, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	var (
		msgs    = make([]types.SMSMessage, 0, len(recipients))
		pending = make(map[string]int) // normalised number -> index into msgs
		numbers []string
	)
	for _, r := range recipients {
		now := s.now()
		m := types.SMSMessage{
			ID:        uuid.NewString(),
			Recipient: r,
			Body:      body,
			Status:    types.SMSQueued,
			CreatedAt: now,
			UpdatedAt: now,
		}

		n, err := phone.Normalize(r)
		if err != nil {
			m.Status = types.SMSFailed
			m.Error = err.Error()
		} else {
			if _, dup := pending[n]; dup {
				continue
			}
			m.Recipient = n
			pending[n] = len(msgs)
			numbers = append(numbers, n)
		}

		if err := s.store.CreateSMSMessage(ctx, m); err != nil {
			return nil, fmt.Errorf("Send: %w", err)
		}
		msgs = append(msgs, m)
	}

	if len(numbers) == 0 {
		return msgs, nil
	}

	results, err := s.sender.Send(ctx, body, numbers)
	if err != nil {
		slog.Error("sms gateway send failed", slog.Int("recipients", len(numbers)), slog.String("error", err.Error()))
		for _, n := range numbers {
			msgs[pending[n]].Status = types.SMSFailed
			msgs[pending[n]].Error = err.Error()
		}
	} else {
		for _, r := range results {
			i, ok := pending[r.Recipient]
			if !ok {
				continue
			}
			if r.Error != "" || r.MessageID == "" {
				msgs[i].Status = types.SMSFailed
				msgs[i].Error = r.Error
				continue
			}
			msgs[i].Status = types.SMSSent
			msgs[i].GatewayID = r.MessageID
		}
		// Recipients the gateway did not mention stay queued.
	}

	for _, n := range numbers {
		m := &msgs[pending[n]]
		if m.Status == types.SMSQueued {
			continue
		}
		m.UpdatedAt = s.now()
		if err := s.store.UpdateSMSMessage(ctx, *m); err != nil {
			return nil, fmt.Errorf("Send: %w", err)
		}
	}
	return msgs, nil
}

// HandleDeliveryReport applies a gateway callback. Progress reports
// (SENT, ACCEPTED, BUFFERED and the like) leave the message sent, a
// delivery marks it delivered and any other status is a final failure. An
// unknown message id yields storage.ErrNotFound.
func (s *Service) HandleDeliveryReport(ctx context.Context, r DeliveryReport) (types.SMSMessage, error) {
	m, err := s.store.GetSMSMessageByGatewayID(ctx, r.MessageID)
	if err != nil {
		return types.SMSMessage{}, fmt.Errorf("HandleDeliveryReport: %w", err)
	}

	switch strings.ToUpper(r.Status) {
	case "DELIVERED", "DELIVRD":
		m.Status = types.SMSDelivered
		m.Error = ""
	case "SENT", "ACCEPTED", "ACCEPTD", "BUFFERED", "ENROUTE", "QUEUED":
		// Still on its way. A late progress report never undoes a delivery.
		if m.Status == types.SMSDelivered {
			return m, nil
		}
		m.Status = types.SMSSent
		m.Error = ""
	default:
		m.Status = types.SMSFailed
		m.Error = r.Error
		if m.Error == "" {
			m.Error = r.Status
		}
	}
	m.UpdatedAt = s.now()

	if err := s.store.UpdateSMSMessage(ctx, m); err != nil {
		return types.SMSMessage{}, fmt.Errorf("HandleDeliveryReport: %w", err)
	}
	return m, nil
}
