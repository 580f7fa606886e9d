package worker

import (
	"context"
	"slices"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/dlq"
	"github.com/ghostlink/bridge-stack/collector/internal/metrics"
	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/common/logging"
)

// Runner drives batch normalization runs: a fixed number of sequential
// rounds, each covering every site with eligible pending work (or a single
// site when the run is scoped). Rows a round leaves behind are picked up by
// the next round or the next run; no work is lost by stopping.
type Runner struct {
	repo          repository.Repository
	worker        *Worker
	dlq           dlq.Writer
	logger        *logging.Logger
	defaultLimit  int
	defaultRounds int
}

func NewRunner(repo repository.Repository, w *Worker, dlqWriter dlq.Writer, logger *logging.Logger, defaultLimit, defaultRounds int) *Runner {
	if dlqWriter == nil {
		dlqWriter = dlq.NoOpWriter{}
	}
	if defaultLimit <= 0 {
		defaultLimit = 250
	}
	if defaultRounds <= 0 {
		defaultRounds = 1
	}
	return &Runner{
		repo:          repo,
		worker:        w,
		dlq:           dlqWriter,
		logger:        logger,
		defaultLimit:  defaultLimit,
		defaultRounds: defaultRounds,
	}
}

// Run executes one batch run and returns its summary. The run stops after
// the configured rounds regardless of remaining backlog, and stops between
// rounds when ctx is cancelled; either way the summary reflects what was
// actually done.
func (r *Runner) Run(ctx context.Context, opts models.RunOptions) (*models.RunSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = r.defaultLimit
	}
	rounds := opts.Rounds
	if rounds <= 0 {
		rounds = r.defaultRounds
	}

	metrics.WorkerRuns.Inc()

	summary := &models.RunSummary{
		StartedAt:      time.Now().UTC(),
		DroppedReasons: make(map[string]int),
	}
	targets := make(map[int64]bool)

	for round := 1; round <= rounds; round++ {
		if err := ctx.Err(); err != nil {
			break
		}

		now := time.Now().UTC()

		siteIDs, err := r.roundTargets(ctx, opts, now)
		if err != nil {
			summary.EndedAt = time.Now().UTC()
			return summary, err
		}
		if len(siteIDs) == 0 {
			break
		}

		rs := models.RoundStats{Round: round, SiteIDs: siteIDs}

		for _, siteID := range siteIDs {
			stats, err := r.worker.ProcessSite(ctx, siteID, limit, now)

			rs.Processed += stats.Processed
			rs.Normalized += stats.Normalized
			rs.Retried += stats.Retried
			rs.Dropped += stats.Dropped
			for reason, n := range stats.DroppedReasons {
				summary.DroppedReasons[reason] += n
			}
			targets[siteID] = true

			if err != nil {
				r.logger.ErrorContext(ctx, "site pass failed",
					logging.SiteID(siteID), logging.Round(round), logging.Error(err))
			}
		}

		summary.ProcessedTotal += rs.Processed
		summary.NormalizedTotal += rs.Normalized
		summary.RetriedTotal += rs.Retried
		summary.DroppedTotal += rs.Dropped
		summary.Rounds = append(summary.Rounds, rs)

		r.logger.InfoContext(ctx, "round complete",
			logging.Round(round),
			"sites", len(siteIDs),
			"processed", rs.Processed,
			"normalized", rs.Normalized,
			"retried", rs.Retried,
			"dropped", rs.Dropped)

		if rs.Processed == 0 {
			break
		}
	}

	summary.EndedAt = time.Now().UTC()
	for siteID := range targets {
		summary.Targets = append(summary.Targets, siteID)
	}
	slices.Sort(summary.Targets)

	if err := r.dlq.WriteRunSummary(ctx, summary); err != nil {
		r.logger.WarnContext(ctx, "failed to publish run summary", logging.Error(err))
	}

	return summary, nil
}

func (r *Runner) roundTargets(ctx context.Context, opts models.RunOptions, now time.Time) ([]int64, error) {
	if opts.SiteID != nil {
		return []int64{*opts.SiteID}, nil
	}
	return r.repo.ListPendingSites(ctx, now)
}
