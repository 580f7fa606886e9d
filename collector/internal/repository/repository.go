package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

var (
	// ErrSiteNotFound indicates no site matches the given script ID.
	ErrSiteNotFound = errors.New("site not found")

	// ErrSiteExists indicates a site with the script ID already exists.
	ErrSiteExists = errors.New("site already exists")

	// ErrRawEventNotFound indicates the raw event row does not exist.
	ErrRawEventNotFound = errors.New("raw event not found")

	// ErrAlreadyFinal indicates a state transition was attempted on a raw
	// event that already reached normalized or dropped. Callers treat this
	// as a benign race, not a failure.
	ErrAlreadyFinal = errors.New("raw event already in terminal state")
)

// Repository is the durable store for sites, raw events and canonical events.
// The (site_id, event_id) uniqueness constraint on raw events is the
// idempotency ledger: it is enforced here, in the shared store, because no
// in-process cache is correct across multiple collector instances.
type Repository interface {
	// ResolveSite returns the site owning the given script ID.
	ResolveSite(ctx context.Context, scriptID string) (*models.Site, error)

	// CreateSite registers a site. Used by provisioning tooling and tests;
	// the collector hot path only reads sites.
	CreateSite(ctx context.Context, site *models.Site) error

	// InsertRawEvents stores rows in pending status. Rows whose
	// (site_id, event_id) already exists are counted as duplicates and
	// skipped without error. Insert and ledger entry are one unit of work
	// because the ledger is the unique index itself.
	InsertRawEvents(ctx context.Context, rows []*models.RawEvent) (inserted, duplicates int, err error)

	// SelectPending returns raw events eligible for a worker pass: status
	// pending and next_retry_at unset or due, oldest received first.
	SelectPending(ctx context.Context, siteID int64, limit int, now time.Time) ([]*models.RawEvent, error)

	// ListPendingSites returns the distinct site IDs with eligible pending
	// rows, ascending.
	ListPendingSites(ctx context.Context, now time.Time) ([]int64, error)

	// MarkNormalized transitions a pending raw event to normalized and
	// inserts its canonical projection in the same unit of work. Returns
	// ErrAlreadyFinal if the row already left pending.
	MarkNormalized(ctx context.Context, rawID int64, canonical *models.CanonicalEvent, at time.Time) error

	// MarkDropped transitions a pending raw event to dropped with the given
	// closed-enum reason. No canonical record is written.
	MarkDropped(ctx context.Context, rawID int64, reason, lastError string, at time.Time) error

	// MarkRetry records a failed attempt: increments bookkeeping and
	// schedules the next attempt. The row stays pending.
	MarkRetry(ctx context.Context, rawID int64, retryCount int, nextRetryAt time.Time, lastError string) error

	// CanonicalEvents returns normalized events for a site within
	// [from, to), newest first, bounded by limit. Read-only interface for
	// downstream reporting collaborators.
	CanonicalEvents(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]*models.CanonicalEvent, error)

	// Close releases the underlying resources.
	Close()
}
