// Package iec talks to the Electoral Commission's HTTP API: delimitation
// lists (which IEC identifier belongs to which province, municipality and
// ward), voter-roll lookups and ballot results.
//
// The commission uses its own numeric identifiers for areas. Mapper keeps
// the translation from our geographic codes to those identifiers in the
// database and in a cache.
package iec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned by every call when no base URL is set.
var ErrNotConfigured = errors.New("iec: api base url is not configured")

// APIError is a non-2xx answer from the IEC API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("iec: api returned status %d: %s", e.StatusCode, e.Body)
}

// Area is one entry of a delimitation list.
type Area struct {
	Code  string `json:"code"`
	IECID string `json:"iec_id"`
	Name  string `json:"name"`
}

// Voter is the voter-roll entry for one ID number.
type Voter struct {
	IDNumber           string `json:"id_number"`
	Registered         bool   `json:"registered"`
	WardCode           string `json:"ward_code,omitempty"`
	VotingDistrictCode string `json:"voting_district_code,omitempty"`
}

// BallotQuery selects ballot results. The area fields carry IEC
// identifiers, not our codes.
type BallotQuery struct {
	ElectionType   string
	ProvinceID     string
	MunicipalityID string
	WardID         string
}

func (q BallotQuery) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("election_type", q.ElectionType)
	set("province_id", q.ProvinceID)
	set("municipality_id", q.MunicipalityID)
	set("ward_id", q.WardID)
	return v
}

// Client calls the IEC API. It is safe for concurrent use. A Client built
// with an empty base URL answers every call with ErrNotConfigured, so the
// rest of the system can run without the commission.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a Client for baseURL. apiKey, when set, is sent as a
// bearer token. A non-positive timeout means 15 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether the client has somewhere to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Delimitation lists every area of entityType ("province", "municipality"
// or "ward") known to the commission.
func (c *Client) Delimitation(ctx context.Context, entityType string) ([]Area, error) {
	var out struct {
		Data []Area `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/delimitation/"+url.PathEscape(entityType)+"s", nil, &out); err != nil {
		return nil, fmt.Errorf("Delimitation(%s): %w", entityType, err)
	}
	return out.Data, nil
}

// VerifyVoter looks up idNumber on the voter roll. An ID the commission does
// not know is not an error: it comes back with Registered false.
func (c *Client) VerifyVoter(ctx context.Context, idNumber string) (Voter, error) {
	var v Voter
	err := c.get(ctx, "/api/v1/voters/"+url.PathEscape(idNumber), nil, &v)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return Voter{IDNumber: idNumber}, nil
	}
	if err != nil {
		return Voter{}, fmt.Errorf("VerifyVoter: %w", err)
	}
	if v.IDNumber == "" {
		v.IDNumber = idNumber
	}
	return v, nil
}

// BallotResults returns the commission's results document unchanged.
func (c *Client) BallotResults(ctx context.Context, q BallotQuery) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/v1/ballot-results", q.values(), &raw); err != nil {
		return nil, fmt.Errorf("BallotResults: %w", err)
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
