package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/dlq"
	"github.com/ghostlink/bridge-stack/collector/internal/metrics"
	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/normalizer"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/common/logging"
)

// Worker normalizes pending raw events for one site at a time. It never
// aborts a pass on a single bad event: each item fails or succeeds on its own.
type Worker struct {
	repo   repository.Repository
	norm   *normalizer.Normalizer
	dlq    dlq.Writer
	logger *logging.Logger
}

// PassStats is the outcome of one ProcessSite call.
type PassStats struct {
	Processed      int
	Normalized     int
	Retried        int
	Dropped        int
	DroppedReasons map[string]int
}

func New(repo repository.Repository, dlqWriter dlq.Writer, logger *logging.Logger) *Worker {
	if dlqWriter == nil {
		dlqWriter = dlq.NoOpWriter{}
	}
	return &Worker{
		repo:   repo,
		norm:   normalizer.New(),
		dlq:    dlqWriter,
		logger: logger,
	}
}

// ProcessSite runs one normalization pass over a site's eligible pending
// events, bounded by limit. The returned error covers only pass-level
// failures (selection); per-event failures are folded into the stats.
func (w *Worker) ProcessSite(ctx context.Context, siteID int64, limit int, now time.Time) (PassStats, error) {
	start := time.Now()
	stats := PassStats{DroppedReasons: make(map[string]int)}

	rows, err := w.repo.SelectPending(ctx, siteID, limit, now)
	if err != nil {
		return stats, err
	}

	for _, raw := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Processed++
		w.processOne(ctx, raw, now, &stats)
	}

	metrics.NormalizationDuration.Observe(time.Since(start).Seconds())

	return stats, nil
}

func (w *Worker) processOne(ctx context.Context, raw *models.RawEvent, now time.Time, stats *PassStats) {
	canonical, err := w.norm.Normalize(raw)
	if err != nil {
		if normalizer.IsStructural(err) {
			// Malformed data will not improve on retry.
			w.drop(ctx, raw, models.DropInvalidPayload, err.Error(), now, stats)
			return
		}
		w.retryOrDrop(ctx, raw, err, now, stats)
		return
	}

	err = w.repo.MarkNormalized(ctx, raw.ID, canonical, now)
	switch {
	case err == nil:
		stats.Normalized++
		metrics.EventsNormalized.Inc()
	case errors.Is(err, repository.ErrAlreadyFinal):
		// The canonical record exists but this raw row is still pending:
		// a replayed event_id raced past intake dedup. Settle the row.
		w.drop(ctx, raw, models.DropDuplicateEventID, "canonical event already exists", now, stats)
	default:
		w.retryOrDrop(ctx, raw, err, now, stats)
	}
}

// retryOrDrop handles a transient failure: schedule another attempt, or give
// up once the attempt budget is spent.
func (w *Worker) retryOrDrop(ctx context.Context, raw *models.RawEvent, cause error, now time.Time, stats *PassStats) {
	lastError := models.Clip(cause.Error(), models.MaxLastErrorLen)
	attempts := raw.RetryCount + 1

	if attempts >= MaxAttempts {
		w.drop(ctx, raw, models.DropRetryExhausted, lastError, now, stats)
		return
	}

	nextRetryAt := now.Add(Backoff(attempts))
	if err := w.repo.MarkRetry(ctx, raw.ID, attempts, nextRetryAt, lastError); err != nil {
		if !errors.Is(err, repository.ErrAlreadyFinal) {
			w.logger.ErrorContext(ctx, "failed to schedule retry",
				logging.SiteID(raw.SiteID), logging.EventID(raw.EventID), logging.Error(err))
		}
		return
	}

	stats.Retried++
	metrics.EventsRetried.Inc()
	w.logger.DebugContext(ctx, "retry scheduled",
		logging.SiteID(raw.SiteID), logging.EventID(raw.EventID),
		"attempts", attempts, "next_retry_at", nextRetryAt)
}

func (w *Worker) drop(ctx context.Context, raw *models.RawEvent, reason, lastError string, now time.Time, stats *PassStats) {
	lastError = models.Clip(lastError, models.MaxLastErrorLen)

	err := w.repo.MarkDropped(ctx, raw.ID, reason, lastError, now)
	if errors.Is(err, repository.ErrAlreadyFinal) {
		return
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to drop raw event",
			logging.SiteID(raw.SiteID), logging.EventID(raw.EventID),
			logging.Reason(reason), logging.Error(err))
		return
	}

	stats.Dropped++
	stats.DroppedReasons[reason]++
	metrics.EventsDropped.WithLabelValues(reason).Inc()

	w.logger.InfoContext(ctx, "raw event dropped",
		logging.SiteID(raw.SiteID), logging.EventID(raw.EventID),
		logging.Reason(reason), "last_error", lastError)

	if err := w.dlq.WriteDrop(ctx, raw, reason, lastError); err != nil {
		// The database row is authoritative; a DLQ miss loses only visibility.
		w.logger.WarnContext(ctx, "failed to mirror drop to DLQ",
			logging.EventID(raw.EventID), logging.Error(err))
	}
}
