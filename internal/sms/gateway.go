// Package sms sends text messages through an Applink style JSON gateway and
// tracks their delivery.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("sms: gateway base url is not configured")

// Sender is what Service needs from a gateway.
type Sender interface {
	Send(ctx context.Context, message string, recipients []string) ([]SendResult, error)
}

// SendResult is the gateway's answer for one recipient: either a message id
// or an error text.
type SendResult struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

type sendRequest struct {
	SenderID   string   `json:"sender_id"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

type sendResponse struct {
	Results []SendResult `json:"results"`
}

// Gateway is the HTTP client for the SMS provider. It sends one request
// per batch of recipients and is safe for concurrent use.
type Gateway struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

// NewGateway builds a Gateway. Messages go out under senderID. An empty
// baseURL makes Send fail with ErrNotConfigured.
func NewGateway(baseURL, apiKey, senderID string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		senderID: senderID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts message for recipients, already normalised to 27XXXXXXXXX.
// A transport or non-200 failure is returned as an error; per-recipient
// failures are in the results.
func (g *Gateway) Send(ctx context.Context, message string, recipients []string) ([]SendResult, error) {
	if g.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{SenderID: g.senderID, Message: message, Recipients: recipients})
	if err != nil {
		return nil, fmt.Errorf("Send: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/sms/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Send: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Send: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Send: gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("Send: decode response: %w", err)
	}
	return out.Results, nil
}
