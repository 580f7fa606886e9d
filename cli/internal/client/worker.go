// Package client provides HTTP clients for the collector API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RunOptions controls a worker run request. Zero values ask the server
// for its defaults.
type RunOptions struct {
	SiteID *int64 `json:"site_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Rounds int    `json:"rounds,omitempty"`
}

// RoundStats mirrors one round of the server's run summary.
type RoundStats struct {
	Round      int     `json:"round"`
	SiteIDs    []int64 `json:"site_ids"`
	Processed  int     `json:"processed"`
	Normalized int     `json:"normalized"`
	Retried    int     `json:"retried"`
	Dropped    int     `json:"dropped"`
}

// RunSummary mirrors the server's run summary.
type RunSummary struct {
	StartedAt       time.Time      `json:"started_at"`
	EndedAt         time.Time      `json:"ended_at"`
	ProcessedTotal  int            `json:"processed_total"`
	NormalizedTotal int            `json:"normalized_total"`
	RetriedTotal    int            `json:"retried_total"`
	DroppedTotal    int            `json:"dropped_total"`
	DroppedReasons  map[string]int `json:"dropped_reasons,omitempty"`
	Targets         []int64        `json:"targets"`
	Rounds          []RoundStats   `json:"rounds"`
}

// QualityGate mirrors the server's quality gate verdict.
type QualityGate struct {
	Pass          bool     `json:"pass"`
	RetryRatioPct float64  `json:"retry_ratio_pct"`
	Violations    []string `json:"violations,omitempty"`
}

// RunResult is the full worker run response.
type RunResult struct {
	Summary     RunSummary  `json:"summary"`
	QualityGate QualityGate `json:"quality_gate"`
}

// WorkerClient drives worker runs over the collector API.
type WorkerClient struct {
	baseURL string
	client  *http.Client
}

func NewWorkerClient(baseURL string) *WorkerClient {
	return &WorkerClient{
		baseURL: baseURL,
		// Worker runs drain backlogs synchronously; allow them time.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Run triggers one worker run and returns the summary plus gate verdict.
func (c *WorkerClient) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/worker/run", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("worker run failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode run response: %w", err)
	}

	return &result, nil
}
