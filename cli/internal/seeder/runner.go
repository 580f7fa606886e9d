package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghostlink/bridge-stack/cli/internal/client"
)

// Config controls one seeding run.
type Config struct {
	// CollectorURL is the collector base URL.
	CollectorURL string

	// ScriptID identifies the site to seed events into.
	ScriptID string

	// Count is the number of unique events to generate.
	Count int

	// BatchSize is the number of events per batch submission.
	BatchSize int

	// Sessions is the number of synthetic visitor sessions.
	Sessions int

	// TimeSpread is the window events are spread backwards over.
	TimeSpread time.Duration

	// DuplicatePct resubmits this percentage of events with reused event
	// IDs so the run exercises the dedup ledger.
	DuplicatePct int

	// Seed makes the run reproducible when non-zero.
	Seed int64
}

// Report is the aggregate outcome of a seeding run.
type Report struct {
	Generated  int
	Batches    int
	Accepted   int
	Duplicates int
	Rejected   int
}

// Runner generates events and submits them to the collector.
type Runner struct {
	cfg    Config
	bridge *client.BridgeClient
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.ScriptID == "" {
		return nil, fmt.Errorf("script ID is required")
	}
	if cfg.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1")
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.Sessions < 1 {
		cfg.Sessions = max(1, cfg.Count/20)
	}
	if cfg.TimeSpread <= 0 {
		cfg.TimeSpread = time.Hour
	}

	return &Runner{
		cfg:    cfg,
		bridge: client.NewBridgeClient(cfg.CollectorURL),
	}, nil
}

// Run generates the configured events and submits them batch by batch,
// refreshing the event token when it expires mid-run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	gen := newGenerator(r.cfg.Seed, r.cfg.Sessions)
	events := gen.generate(r.cfg.Count, time.Now().UTC(), r.cfg.TimeSpread)
	events = gen.duplicateSome(events, r.cfg.DuplicatePct)

	token, err := r.bridge.FetchToken(ctx, r.cfg.ScriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event token: %w", err)
	}

	report := &Report{Generated: len(events)}

	for start := 0; start < len(events); start += r.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := min(start+r.cfg.BatchSize, len(events))
		batch := events[start:end]

		result, err := r.bridge.SendBatch(ctx, r.cfg.ScriptID, token, batch)
		if errors.Is(err, client.ErrTokenRejected) {
			// Token likely expired mid-run; refresh once and retry.
			token, err = r.bridge.FetchToken(ctx, r.cfg.ScriptID)
			if err != nil {
				return report, fmt.Errorf("failed to refresh event token: %w", err)
			}
			result, err = r.bridge.SendBatch(ctx, r.cfg.ScriptID, token, batch)
		}
		if err != nil {
			return report, fmt.Errorf("batch %d failed: %w", report.Batches+1, err)
		}

		report.Batches++
		report.Accepted += result.Accepted
		report.Duplicates += result.Duplicates
		report.Rejected += result.Rejected
	}

	return report, nil
}
