package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnknownScript means the collector did not recognize the script ID.
// The collector answers those with an empty 204, never a hard error.
var ErrUnknownScript = errors.New("unknown script id")

// ErrTokenRejected means the event token was expired or invalid.
var ErrTokenRejected = errors.New("event token rejected")

// EventToken is an issued intake token. The gx/gn/gs triplet rides along
// with every batch.
type EventToken struct {
	GX        string    `json:"gx"`
	GN        string    `json:"gn"`
	GS        string    `json:"gs"`
	ExpiresAt time.Time `json:"expires_at"`
	TTL       int64     `json:"ttl_seconds"`
}

// Envelope is one event in a batch submission.
type Envelope struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	SessionID  string `json:"session_id,omitempty"`
	PageURL    string `json:"page_url,omitempty"`
	PageTitle  string `json:"page_title,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
	Language   string `json:"language,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Viewport   string `json:"viewport,omitempty"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

// BatchResult is the collector's intake accounting for one batch.
type BatchResult struct {
	Accepted   int            `json:"accepted"`
	Duplicates int            `json:"duplicates"`
	Rejected   int            `json:"rejected"`
	Reasons    map[string]int `json:"reasons,omitempty"`
}

// BridgeClient speaks the collector's public bridge endpoints.
type BridgeClient struct {
	baseURL string
	client  *http.Client
}

func NewBridgeClient(baseURL string) *BridgeClient {
	return &BridgeClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchToken requests a fresh event token for a script.
func (c *BridgeClient) FetchToken(ctx context.Context, scriptID string) (*EventToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/bridge/%s/token", c.baseURL, scriptID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, ErrUnknownScript
	default:
		return nil, fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var token EventToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &token, nil
}

// SendBatch submits a batch of events under the given token.
func (c *BridgeClient) SendBatch(ctx context.Context, scriptID string, token *EventToken, events []Envelope) (*BatchResult, error) {
	payload := map[string]any{
		"events":  events,
		"gx":      token.GX,
		"gn":      token.GN,
		"gs":      token.GS,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/bridge/%s/events", c.baseURL, scriptID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, ErrUnknownScript
	case http.StatusForbidden:
		return nil, ErrTokenRejected
	default:
		return nil, fmt.Errorf("batch submission failed with status %d", resp.StatusCode)
	}

	var result BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	return &result, nil
}
