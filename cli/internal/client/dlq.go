package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrDLQDisabled indicates the collector runs without a dead-letter backend.
var ErrDLQDisabled = errors.New("dead-letter queue is not enabled on the collector")

// DroppedEvent mirrors a dead-letter entry from the collector API.
type DroppedEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	SiteID     int64     `json:"site_id"`
	RawEventID int64     `json:"raw_event_id"`
	EventID    string    `json:"event_id"`
	ScriptID   string    `json:"script_id"`
	EventType  string    `json:"event_type"`
	Reason     string    `json:"reason"`
	LastError  string    `json:"last_error,omitempty"`
	RetryCount int       `json:"retry_count"`
	Payload    string    `json:"payload,omitempty"`
}

// DLQClient inspects the dead-letter stream through the collector API.
type DLQClient struct {
	baseURL string
	client  *http.Client
}

func NewDLQClient(baseURL string) *DLQClient {
	return &DLQClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// List returns dead-letter entries, oldest first.
func (c *DLQClient) List(ctx context.Context, limit int) ([]DroppedEvent, error) {
	endpoint := c.baseURL + "/api/dlq"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
	case http.StatusServiceUnavailable:
		return nil, ErrDLQDisabled
	default:
		return nil, fmt.Errorf("dlq list failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Events []DroppedEvent `json:"events"`
		Count  int            `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode dlq response: %w", err)
	}

	return payload.Events, nil
}

// Stats returns dead-letter stream statistics.
func (c *DLQClient) Stats(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/dlq/stats", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dlq stats failed with status %d", resp.StatusCode)
	}

	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode dlq stats: %w", err)
	}

	return stats, nil
}

// Purge removes every entry from the dead-letter stream.
func (c *DLQClient) Purge(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/dlq", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusServiceUnavailable:
		return ErrDLQDisabled
	default:
		return fmt.Errorf("dlq purge failed with status %d", resp.StatusCode)
	}
}
