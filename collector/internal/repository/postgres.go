package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// =============================================================================
// SITES
// =============================================================================

func (r *PostgresRepository) ResolveSite(ctx context.Context, scriptID string) (*models.Site, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, script_id, url, created_at
		FROM sites
		WHERE script_id = $1
	`

	var site models.Site
	err := r.pool.QueryRow(ctx, query, scriptID).Scan(
		&site.ID, &site.ScriptID, &site.URL, &site.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to resolve site: %w", err)
	}

	return &site, nil
}

func (r *PostgresRepository) CreateSite(ctx context.Context, site *models.Site) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO sites (script_id, url)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, site.ScriptID, site.URL).Scan(&site.ID, &site.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrSiteExists
		}
		return fmt.Errorf("failed to create site: %w", err)
	}

	return nil
}

// =============================================================================
// RAW EVENTS (intake + worker transitions)
// =============================================================================

// InsertRawEvents inserts each row with ON CONFLICT DO NOTHING against the
// (site_id, event_id) unique index. A conflict means the logical event was
// already accepted: it is counted as a duplicate, never treated as an error.
func (r *PostgresRepository) InsertRawEvents(ctx context.Context, rows []*models.RawEvent) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		INSERT INTO raw_events
			(site_id, event_id, script_id, ingest_source, event_type, payload,
			 user_agent, status, sent_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT raw_events_site_event_unique DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query,
			row.SiteID, row.EventID, row.ScriptID, row.IngestSource,
			row.EventType, string(row.Payload), row.UserAgent,
			models.StatusPending, row.SentAt, row.ReceivedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted, duplicates := 0, 0
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return inserted, duplicates, fmt.Errorf("failed to insert raw event: %w", err)
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			duplicates++
		}
	}

	return inserted, duplicates, nil
}

func (r *PostgresRepository) SelectPending(ctx context.Context, siteID int64, limit int, now time.Time) ([]*models.RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT id, site_id, event_id, script_id, ingest_source, event_type,
		       payload, user_agent, status, retry_count, next_retry_at,
		       last_error, dropped_reason, sent_at, received_at, normalized_at
		FROM raw_events
		WHERE site_id = $1
		  AND status = $2
		  AND (next_retry_at IS NULL OR next_retry_at <= $3)
		ORDER BY received_at ASC, id ASC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, siteID, models.StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending raw events: %w", err)
	}
	defer rows.Close()

	var events []*models.RawEvent
	for rows.Next() {
		var ev models.RawEvent
		var payload string
		if err := rows.Scan(
			&ev.ID, &ev.SiteID, &ev.EventID, &ev.ScriptID, &ev.IngestSource,
			&ev.EventType, &payload, &ev.UserAgent, &ev.Status, &ev.RetryCount,
			&ev.NextRetryAt, &ev.LastError, &ev.DroppedReason, &ev.SentAt,
			&ev.ReceivedAt, &ev.NormalizedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan raw event: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending raw events: %w", err)
	}

	return events, nil
}

func (r *PostgresRepository) ListPendingSites(ctx context.Context, now time.Time) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT DISTINCT site_id
		FROM raw_events
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= $2)
		ORDER BY site_id ASC
	`

	rows, err := r.pool.Query(ctx, query, models.StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sites: %w", err)
	}
	defer rows.Close()

	var siteIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan site id: %w", err)
		}
		siteIDs = append(siteIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending sites: %w", err)
	}

	return siteIDs, nil
}

// MarkNormalized updates the raw row and inserts the canonical projection in
// one transaction. The pending-state guard on the UPDATE makes normalization
// at-most-once: a row that already left pending aborts with ErrAlreadyFinal
// and no canonical insert happens.
func (r *PostgresRepository) MarkNormalized(ctx context.Context, rawID int64, canonical *models.CanonicalEvent, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateQuery := `
		UPDATE raw_events
		SET status = $1, normalized_at = $2, next_retry_at = NULL, last_error = ''
		WHERE id = $3 AND status = $4
	`

	tag, err := tx.Exec(ctx, updateQuery, models.StatusNormalized, at, rawID, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark raw event normalized: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinal
	}

	insertQuery := `
		INSERT INTO canonical_events
			(site_id, event_id, session_id, event_type, page_url, page_title,
			 referrer, language, timezone, viewport, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, insertQuery,
		canonical.SiteID, canonical.EventID, canonical.SessionID,
		canonical.EventType, canonical.PageURL, canonical.PageTitle,
		canonical.Referrer, canonical.Language, canonical.Timezone,
		canonical.Viewport, canonical.UserAgent, canonical.OccurredAt,
	).Scan(&canonical.ID, &canonical.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// A canonical row for this logical event already exists; the
			// transaction rolls back and the raw row stays untouched.
			return ErrAlreadyFinal
		}
		return fmt.Errorf("failed to insert canonical event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit normalization: %w", err)
	}

	return nil
}

func (r *PostgresRepository) MarkDropped(ctx context.Context, rawID int64, reason, lastError string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE raw_events
		SET status = $1, dropped_reason = $2, last_error = $3, next_retry_at = NULL
		WHERE id = $4 AND status = $5
	`

	tag, err := r.pool.Exec(ctx, query,
		models.StatusDropped, reason, models.Clip(lastError, models.MaxLastErrorLen),
		rawID, models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark raw event dropped: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinal
	}

	return nil
}

func (r *PostgresRepository) MarkRetry(ctx context.Context, rawID int64, retryCount int, nextRetryAt time.Time, lastError string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE raw_events
		SET retry_count = $1, next_retry_at = $2, last_error = $3
		WHERE id = $4 AND status = $5
	`

	tag, err := r.pool.Exec(ctx, query,
		retryCount, nextRetryAt, models.Clip(lastError, models.MaxLastErrorLen),
		rawID, models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark raw event for retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinal
	}

	return nil
}

// =============================================================================
// CANONICAL EVENTS (downstream read interface)
// =============================================================================

func (r *PostgresRepository) CanonicalEvents(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]*models.CanonicalEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT id, site_id, event_id, session_id, event_type, page_url,
		       page_title, referrer, language, timezone, viewport, user_agent,
		       occurred_at, created_at
		FROM canonical_events
		WHERE site_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at DESC, id DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, siteID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical events: %w", err)
	}
	defer rows.Close()

	var events []*models.CanonicalEvent
	for rows.Next() {
		var ev models.CanonicalEvent
		if err := rows.Scan(
			&ev.ID, &ev.SiteID, &ev.EventID, &ev.SessionID, &ev.EventType,
			&ev.PageURL, &ev.PageTitle, &ev.Referrer, &ev.Language,
			&ev.Timezone, &ev.Viewport, &ev.UserAgent, &ev.OccurredAt,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan canonical event: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read canonical events: %w", err)
	}

	return events, nil
}
