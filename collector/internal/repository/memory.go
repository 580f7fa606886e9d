package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

// InMemoryRepository mirrors the Postgres repository semantics, including the
// (site_id, event_id) idempotency ledger. Development and unit tests only;
// it cannot provide correctness across collector instances.
type InMemoryRepository struct {
	sites         map[string]*models.Site
	rawEvents     map[int64]*models.RawEvent
	rawLedger     map[rawKey]int64
	canonical     []*models.CanonicalEvent
	canonLedger   map[rawKey]bool
	nextSiteID    int64
	nextRawID     int64
	nextCanonical int64
	mu            sync.RWMutex
}

type rawKey struct {
	siteID  int64
	eventID string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sites:       make(map[string]*models.Site),
		rawEvents:   make(map[int64]*models.RawEvent),
		rawLedger:   make(map[rawKey]int64),
		canonLedger: make(map[rawKey]bool),
	}
}

func (r *InMemoryRepository) Close() {}

func (r *InMemoryRepository) ResolveSite(ctx context.Context, scriptID string) (*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, exists := r.sites[scriptID]
	if !exists {
		return nil, ErrSiteNotFound
	}
	copied := *site
	return &copied, nil
}

func (r *InMemoryRepository) CreateSite(ctx context.Context, site *models.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sites[site.ScriptID]; exists {
		return ErrSiteExists
	}

	r.nextSiteID++
	site.ID = r.nextSiteID
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	copied := *site
	r.sites[site.ScriptID] = &copied
	return nil
}

func (r *InMemoryRepository) InsertRawEvents(ctx context.Context, rows []*models.RawEvent) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted, duplicates := 0, 0
	for _, row := range rows {
		key := rawKey{siteID: row.SiteID, eventID: row.EventID}
		if _, seen := r.rawLedger[key]; seen {
			duplicates++
			continue
		}

		r.nextRawID++
		copied := *row
		copied.ID = r.nextRawID
		copied.Status = models.StatusPending
		if copied.ReceivedAt.IsZero() {
			copied.ReceivedAt = time.Now().UTC()
		}
		r.rawEvents[copied.ID] = &copied
		r.rawLedger[key] = copied.ID
		inserted++
	}

	return inserted, duplicates, nil
}

func (r *InMemoryRepository) SelectPending(ctx context.Context, siteID int64, limit int, now time.Time) ([]*models.RawEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var eligible []*models.RawEvent
	for _, ev := range r.rawEvents {
		if ev.SiteID != siteID || ev.Status != models.StatusPending {
			continue
		}
		if ev.NextRetryAt != nil && ev.NextRetryAt.After(now) {
			continue
		}
		copied := *ev
		eligible = append(eligible, &copied)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].ReceivedAt.Equal(eligible[j].ReceivedAt) {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].ReceivedAt.Before(eligible[j].ReceivedAt)
	})

	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (r *InMemoryRepository) ListPendingSites(ctx context.Context, now time.Time) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]bool)
	for _, ev := range r.rawEvents {
		if ev.Status != models.StatusPending {
			continue
		}
		if ev.NextRetryAt != nil && ev.NextRetryAt.After(now) {
			continue
		}
		seen[ev.SiteID] = true
	}

	siteIDs := make([]int64, 0, len(seen))
	for id := range seen {
		siteIDs = append(siteIDs, id)
	}
	sort.Slice(siteIDs, func(i, j int) bool { return siteIDs[i] < siteIDs[j] })
	return siteIDs, nil
}

func (r *InMemoryRepository) MarkNormalized(ctx context.Context, rawID int64, canonical *models.CanonicalEvent, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, exists := r.rawEvents[rawID]
	if !exists {
		return ErrRawEventNotFound
	}
	if ev.Status != models.StatusPending {
		return ErrAlreadyFinal
	}

	key := rawKey{siteID: canonical.SiteID, eventID: canonical.EventID}
	if r.canonLedger[key] {
		return ErrAlreadyFinal
	}

	ev.Status = models.StatusNormalized
	normalizedAt := at
	ev.NormalizedAt = &normalizedAt
	ev.NextRetryAt = nil
	ev.LastError = ""

	r.nextCanonical++
	copied := *canonical
	copied.ID = r.nextCanonical
	copied.CreatedAt = at
	r.canonical = append(r.canonical, &copied)
	r.canonLedger[key] = true

	canonical.ID = copied.ID
	canonical.CreatedAt = copied.CreatedAt
	return nil
}

func (r *InMemoryRepository) MarkDropped(ctx context.Context, rawID int64, reason, lastError string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, exists := r.rawEvents[rawID]
	if !exists {
		return ErrRawEventNotFound
	}
	if ev.Status != models.StatusPending {
		return ErrAlreadyFinal
	}

	ev.Status = models.StatusDropped
	ev.DroppedReason = reason
	ev.LastError = models.Clip(lastError, models.MaxLastErrorLen)
	ev.NextRetryAt = nil
	return nil
}

func (r *InMemoryRepository) MarkRetry(ctx context.Context, rawID int64, retryCount int, nextRetryAt time.Time, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, exists := r.rawEvents[rawID]
	if !exists {
		return ErrRawEventNotFound
	}
	if ev.Status != models.StatusPending {
		return ErrAlreadyFinal
	}

	ev.RetryCount = retryCount
	retryAt := nextRetryAt
	ev.NextRetryAt = &retryAt
	ev.LastError = models.Clip(lastError, models.MaxLastErrorLen)
	return nil
}

func (r *InMemoryRepository) CanonicalEvents(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]*models.CanonicalEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.CanonicalEvent
	for _, ev := range r.canonical {
		if ev.SiteID != siteID {
			continue
		}
		if ev.OccurredAt.Before(from) || !ev.OccurredAt.Before(to) {
			continue
		}
		copied := *ev
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetRawEvent returns a copy of the raw event row. Test helper.
func (r *InMemoryRepository) GetRawEvent(id int64) (*models.RawEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, exists := r.rawEvents[id]
	if !exists {
		return nil, false
	}
	copied := *ev
	return &copied, true
}
