package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CanonicalEvent mirrors a normalized event row from the collector API.
type CanonicalEvent struct {
	ID         int64     `json:"id"`
	SiteID     int64     `json:"site_id"`
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id,omitempty"`
	EventType  string    `json:"event_type"`
	PageURL    string    `json:"page_url,omitempty"`
	PageTitle  string    `json:"page_title,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	Language   string    `json:"language,omitempty"`
	Timezone   string    `json:"timezone,omitempty"`
	Viewport   string    `json:"viewport,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListEventsOptions filter the canonical event listing.
type ListEventsOptions struct {
	SiteID int64
	From   time.Time
	To     time.Time
	Limit  int
}

// EventsClient queries normalized events from the collector API.
type EventsClient struct {
	baseURL string
	client  *http.Client
}

func NewEventsClient(baseURL string) *EventsClient {
	return &EventsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// List returns normalized events for a site, newest first.
func (c *EventsClient) List(ctx context.Context, opts ListEventsOptions) ([]CanonicalEvent, error) {
	params := url.Values{}
	params.Set("site_id", strconv.FormatInt(opts.SiteID, 10))
	if !opts.From.IsZero() {
		params.Set("from", opts.From.UTC().Format(time.RFC3339))
	}
	if !opts.To.IsZero() {
		params.Set("to", opts.To.UTC().Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events query failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Events []CanonicalEvent `json:"events"`
		Count  int              `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode events response: %w", err)
	}

	return payload.Events, nil
}
