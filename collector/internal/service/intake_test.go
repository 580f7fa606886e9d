package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/common/logging"
)

func newTestService(t *testing.T) (*IntakeService, *repository.InMemoryRepository, *models.Site) {
	t.Helper()

	repo := repository.NewInMemoryRepository()
	site := &models.Site{ScriptID: "gl_abc123", URL: "https://example.com"}
	require.NoError(t, repo.CreateSite(context.Background(), site))

	svc := NewIntakeService(repo, 100, time.Hour, logging.New(slog.LevelError, "text"))
	return svc, repo, site
}

func envelopes(n int) []models.Envelope {
	out := make([]models.Envelope, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Envelope{
			EventID:   fmt.Sprintf("evt-%d", i),
			EventType: "pageview",
			PageURL:   fmt.Sprintf("https://example.com/page/%d", i),
		})
	}
	return out
}

func TestAccept_StoresUniqueEvents(t *testing.T) {
	svc, _, site := newTestService(t)

	result, err := svc.Accept(context.Background(), site, models.SourceBatchPost, "Mozilla/5.0", nil, envelopes(10))
	require.NoError(t, err)

	assert.Equal(t, 10, result.Accepted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 0, result.Rejected)
	assert.Nil(t, result.Reasons)
}

func TestAccept_ResubmissionIsIdempotent(t *testing.T) {
	svc, repo, site := newTestService(t)
	batch := envelopes(10)

	result, err := svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, batch)
	require.NoError(t, err)
	require.Equal(t, 10, result.Accepted)

	// Same batch again: every event is already in the ledger.
	result, err = svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Accepted)
	assert.Equal(t, 10, result.Duplicates)

	// No second copy of any row exists.
	pending, err := repo.SelectPending(context.Background(), site.ID, 1000, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, pending, 10)
}

func TestAccept_PartialOverlap(t *testing.T) {
	svc, _, site := newTestService(t)

	result, err := svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, envelopes(5))
	require.NoError(t, err)
	require.Equal(t, 5, result.Accepted)

	// 5 seen before, 5 new.
	result, err = svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, envelopes(10))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Accepted)
	assert.Equal(t, 5, result.Duplicates)
}

func TestAccept_ShapeChecks(t *testing.T) {
	svc, _, site := newTestService(t)

	batch := []models.Envelope{
		{EventID: "evt-ok", EventType: "pageview"},
		{EventID: "", EventType: "pageview"},
		{EventID: "evt-untyped", EventType: ""},
	}

	result, err := svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, batch)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 2, result.Rejected)
	assert.Equal(t, 1, result.Reasons[models.RejectMissingEventID])
	assert.Equal(t, 1, result.Reasons[models.RejectMissingEventType])
}

func TestAccept_BatchCap(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	site := &models.Site{ScriptID: "gl_capped", URL: "https://example.com"}
	require.NoError(t, repo.CreateSite(context.Background(), site))

	svc := NewIntakeService(repo, 3, time.Hour, logging.New(slog.LevelError, "text"))

	result, err := svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, envelopes(5))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Accepted)
	assert.Equal(t, 2, result.Rejected)
	assert.Equal(t, 2, result.Reasons[models.RejectBatchLimitExceeded])
}

func TestAccept_ClipsOversizedFields(t *testing.T) {
	svc, repo, site := newTestService(t)

	longID := make([]byte, models.MaxEventIDLen+50)
	for i := range longID {
		longID[i] = 'a'
	}

	batch := []models.Envelope{{EventID: string(longID), EventType: "pageview"}}
	result, err := svc.Accept(context.Background(), site, models.SourceBatchPost, "", nil, batch)
	require.NoError(t, err)
	require.Equal(t, 1, result.Accepted)

	pending, err := repo.SelectPending(context.Background(), site.ID, 10, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Len(t, pending[0].EventID, models.MaxEventIDLen)
}

func TestAccept_RecordsIngestMetadata(t *testing.T) {
	svc, repo, site := newTestService(t)
	sentAt := time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC)

	batch := []models.Envelope{{EventID: "evt-meta", EventType: "pageview"}}
	_, err := svc.Accept(context.Background(), site, models.SourceLegacyGet, "curl/8.0", &sentAt, batch)
	require.NoError(t, err)

	pending, err := repo.SelectPending(context.Background(), site.ID, 10, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	raw := pending[0]
	assert.Equal(t, models.SourceLegacyGet, raw.IngestSource)
	assert.Equal(t, "curl/8.0", raw.UserAgent)
	assert.Equal(t, site.ScriptID, raw.ScriptID)
	require.NotNil(t, raw.SentAt)
	assert.Equal(t, sentAt, *raw.SentAt)
	assert.Equal(t, models.StatusPending, raw.Status)
}

func TestResolveSite_CachesLookups(t *testing.T) {
	svc, _, site := newTestService(t)

	resolved, err := svc.ResolveSite(context.Background(), site.ScriptID)
	require.NoError(t, err)
	assert.Equal(t, site.ID, resolved.ID)

	cached, ok := svc.cache.get(site.ScriptID, time.Now().UTC())
	require.True(t, ok)
	assert.Equal(t, site.ID, cached.ID)

	resolved, err = svc.ResolveSite(context.Background(), site.ScriptID)
	require.NoError(t, err)
	assert.Equal(t, site.ID, resolved.ID)
}

func TestResolveSite_UnknownScriptID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResolveSite(context.Background(), "gl_nope")
	assert.ErrorIs(t, err, repository.ErrSiteNotFound)
}

func TestResolveSite_InvalidateEvictsEntry(t *testing.T) {
	svc, _, site := newTestService(t)

	_, err := svc.ResolveSite(context.Background(), site.ScriptID)
	require.NoError(t, err)

	svc.InvalidateSite(site.ScriptID)

	_, ok := svc.cache.get(site.ScriptID, time.Now().UTC())
	assert.False(t, ok)
}
