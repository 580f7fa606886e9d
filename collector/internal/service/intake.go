// Package service implements the intake pipeline: resolve the submitting
// site, shape-check each envelope, and store accepted events as pending raw
// rows. Normalization is never invoked here; accepted events are picked up
// asynchronously by the worker.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/metrics"
	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/common/logging"
)

// IntakeService accepts event batches on behalf of resolved sites.
type IntakeService struct {
	repo     repository.Repository
	cache    *siteCache
	maxBatch int
	logger   *logging.Logger
}

func NewIntakeService(repo repository.Repository, maxBatch int, cacheTTL time.Duration, logger *logging.Logger) *IntakeService {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &IntakeService{
		repo:     repo,
		cache:    newSiteCache(cacheTTL),
		maxBatch: maxBatch,
		logger:   logger,
	}
}

// ResolveSite maps a script ID to its site, consulting the TTL cache first.
func (s *IntakeService) ResolveSite(ctx context.Context, scriptID string) (*models.Site, error) {
	now := time.Now().UTC()
	if site, ok := s.cache.get(scriptID, now); ok {
		return site, nil
	}

	site, err := s.repo.ResolveSite(ctx, scriptID)
	if err != nil {
		return nil, err
	}

	s.cache.put(site, now)
	return site, nil
}

// Accept shape-checks and stores a batch of envelopes for one site. Envelopes
// past the batch cap or missing event_id/event_type are rejected and counted;
// the rest are inserted as pending raw events, with (site_id, event_id)
// conflicts counted as duplicates. Accept never fails the whole batch for a
// single bad envelope.
func (s *IntakeService) Accept(ctx context.Context, site *models.Site, source, userAgent string, sentAt *time.Time, envelopes []models.Envelope) (*models.AcceptResult, error) {
	result := &models.AcceptResult{Reasons: make(map[string]int)}

	reject := func(reason string) {
		result.Rejected++
		result.Reasons[reason]++
		metrics.EventsRejected.WithLabelValues(reason).Inc()
	}

	rows := make([]*models.RawEvent, 0, min(len(envelopes), s.maxBatch))
	receivedAt := time.Now().UTC()

	for i, env := range envelopes {
		if i >= s.maxBatch {
			reject(models.RejectBatchLimitExceeded)
			continue
		}
		if env.EventID == "" {
			reject(models.RejectMissingEventID)
			continue
		}
		if env.EventType == "" {
			reject(models.RejectMissingEventType)
			continue
		}

		payload, err := json.Marshal(env)
		if err != nil {
			// Envelope came out of a JSON decoder; this cannot happen in
			// practice, but a marshal failure must not sink the batch.
			reject(models.RejectMissingEventType)
			continue
		}

		rows = append(rows, &models.RawEvent{
			SiteID:       site.ID,
			EventID:      models.Clip(env.EventID, models.MaxEventIDLen),
			ScriptID:     site.ScriptID,
			IngestSource: source,
			EventType:    models.Clip(env.EventType, models.MaxEventTypeLen),
			Payload:      payload,
			UserAgent:    models.Clip(userAgent, models.MaxUserAgentLen),
			Status:       models.StatusPending,
			SentAt:       sentAt,
			ReceivedAt:   receivedAt,
		})
	}

	if len(rows) > 0 {
		inserted, duplicates, err := s.repo.InsertRawEvents(ctx, rows)
		if err != nil {
			return nil, err
		}
		result.Accepted = inserted
		result.Duplicates = duplicates

		metrics.EventsAccepted.Add(float64(inserted))
		metrics.EventsDuplicate.Add(float64(duplicates))
	}

	if len(result.Reasons) == 0 {
		result.Reasons = nil
	}

	s.logger.DebugContext(ctx, "batch accepted",
		logging.SiteID(site.ID), logging.ScriptID(site.ScriptID),
		"accepted", result.Accepted,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected)

	return result, nil
}

// InvalidateSite evicts a cached site. Provisioning tooling calls this after
// mutating a site record.
func (s *IntakeService) InvalidateSite(scriptID string) {
	s.cache.invalidate(scriptID)
}
