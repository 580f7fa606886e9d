package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ghostlink/bridge-stack/collector/internal/metrics"
	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/ratelimit"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/collector/internal/service"
	"github.com/ghostlink/bridge-stack/collector/internal/token"
	"github.com/ghostlink/bridge-stack/common/httputil"
	"github.com/ghostlink/bridge-stack/common/logging"
)

// maxBatchBody bounds the intake request body. 100 envelopes of clipped
// fields fit comfortably inside 1MB.
const maxBatchBody = 1 << 20

// BridgeHandler serves the public collector endpoints the tracking script
// talks to. Unknown script IDs answer 204 rather than 404 so the endpoints
// never confirm which script IDs exist.
type BridgeHandler struct {
	intake  *service.IntakeService
	signer  *token.Signer
	limiter ratelimit.RateLimiter
	logger  *logging.Logger
}

func NewBridgeHandler(intake *service.IntakeService, signer *token.Signer, limiter ratelimit.RateLimiter, logger *logging.Logger) *BridgeHandler {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	return &BridgeHandler{
		intake:  intake,
		signer:  signer,
		limiter: limiter,
		logger:  logger,
	}
}

// HandleToken issues a fresh event token for the script.
// GET /api/bridge/{script_id}/token
func (h *BridgeHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	scriptID := r.PathValue("script_id")

	site, ok := h.resolveSite(w, r, scriptID)
	if !ok {
		return
	}

	if !token.ValidateOrigin(r, site.URL) {
		httputil.WriteNoStore(w, http.StatusForbidden)
		return
	}

	now := time.Now().UTC()
	tok, err := h.signer.Issue(scriptID, now)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue event token",
			logging.ScriptID(scriptID), logging.Error(err))
		httputil.WriteNoStore(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store, max-age=0")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"gx":          strconv.FormatInt(tok.Exp, 10),
		"gn":          tok.Nonce,
		"gs":          tok.Sig,
		"expires_at":  time.Unix(tok.Exp, 0).UTC().Format(time.RFC3339),
		"ttl_seconds": int(h.signer.TTL().Seconds()),
	})
}

// HandleBatch accepts a batch of envelopes.
// POST /api/bridge/{script_id}/events
func (h *BridgeHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	scriptID := r.PathValue("script_id")

	if !h.allow(w, r, scriptID) {
		return
	}

	site, ok := h.resolveSite(w, r, scriptID)
	if !ok {
		metrics.IntakeBatches.WithLabelValues(models.SourceBatchPost, "unknown_site").Inc()
		return
	}

	var req models.BatchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody))
	if err := decoder.Decode(&req); err != nil {
		metrics.IntakeBatches.WithLabelValues(models.SourceBatchPost, "bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.signer.Verify(scriptID, req.GX, req.GN, req.GS, time.Now().UTC()) {
		metrics.IntakeBatches.WithLabelValues(models.SourceBatchPost, "forbidden").Inc()
		httputil.WriteNoStore(w, http.StatusForbidden)
		return
	}

	if !token.ValidateOrigin(r, site.URL) {
		metrics.IntakeBatches.WithLabelValues(models.SourceBatchPost, "forbidden").Inc()
		httputil.WriteNoStore(w, http.StatusForbidden)
		return
	}

	var sentAt *time.Time
	if req.SentAt != "" {
		if ts, err := time.Parse(time.RFC3339, req.SentAt); err == nil {
			utc := ts.UTC()
			sentAt = &utc
		}
	}

	result, err := h.intake.Accept(r.Context(), site, models.SourceBatchPost, r.UserAgent(), sentAt, req.Events)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "batch intake failed",
			logging.ScriptID(scriptID), logging.Error(err))
		metrics.IntakeBatches.WithLabelValues(models.SourceBatchPost, "error").Inc()
		httputil.WriteError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	metrics.IntakeBatches.WithLabelValues(models.SourceBatchPost, "ok").Inc()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"accepted":    result.Accepted,
		"duplicates":  result.Duplicates,
		"rejected":    result.Rejected,
		"reasons":     result.Reasons,
		"server_time": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleLegacyEvent accepts one event from the pre-batching script via query
// params. The event funnels through the same Accept path as a batch of one;
// a server-side event_id keeps legacy beacons inside the idempotency model.
// GET /api/bridge/{script_id}/event
func (h *BridgeHandler) HandleLegacyEvent(w http.ResponseWriter, r *http.Request) {
	scriptID := r.PathValue("script_id")

	if !h.allow(w, r, scriptID) {
		return
	}

	site, ok := h.resolveSite(w, r, scriptID)
	if !ok {
		metrics.IntakeBatches.WithLabelValues(models.SourceLegacyGet, "unknown_site").Inc()
		return
	}

	q := r.URL.Query()
	if !h.signer.Verify(scriptID, q.Get("gx"), q.Get("gn"), q.Get("gs"), time.Now().UTC()) {
		metrics.IntakeBatches.WithLabelValues(models.SourceLegacyGet, "forbidden").Inc()
		httputil.WriteNoStore(w, http.StatusForbidden)
		return
	}

	if !token.ValidateOrigin(r, site.URL) {
		metrics.IntakeBatches.WithLabelValues(models.SourceLegacyGet, "forbidden").Inc()
		httputil.WriteNoStore(w, http.StatusForbidden)
		return
	}

	eventType := q.Get("e")
	if eventType == "" {
		eventType = "pageview"
	}

	env := models.Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SessionID: q.Get("sid"),
		PageURL:   q.Get("p"),
		PageTitle: q.Get("t"),
		Referrer:  q.Get("r"),
		Language:  q.Get("lang"),
		Timezone:  q.Get("tz"),
		Viewport:  q.Get("vp"),
	}

	if _, err := h.intake.Accept(r.Context(), site, models.SourceLegacyGet, r.UserAgent(), nil, []models.Envelope{env}); err != nil {
		h.logger.ErrorContext(r.Context(), "legacy intake failed",
			logging.ScriptID(scriptID), logging.Error(err))
		metrics.IntakeBatches.WithLabelValues(models.SourceLegacyGet, "error").Inc()
		httputil.WriteNoStore(w, http.StatusInternalServerError)
		return
	}

	metrics.IntakeBatches.WithLabelValues(models.SourceLegacyGet, "ok").Inc()
	httputil.WriteNoStore(w, http.StatusNoContent)
}

func (h *BridgeHandler) resolveSite(w http.ResponseWriter, r *http.Request, scriptID string) (*models.Site, bool) {
	site, err := h.intake.ResolveSite(r.Context(), scriptID)
	if err != nil {
		if errors.Is(err, repository.ErrSiteNotFound) {
			httputil.WriteNoStore(w, http.StatusNoContent)
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "site lookup failed",
			logging.ScriptID(scriptID), logging.Error(err))
		httputil.WriteNoStore(w, http.StatusInternalServerError)
		return nil, false
	}
	return site, true
}

func (h *BridgeHandler) allow(w http.ResponseWriter, r *http.Request, scriptID string) bool {
	allowed, err := h.limiter.Allow(r.Context(), scriptID)
	if err != nil {
		// Fail open: rate limiting protects capacity, it is not access control.
		h.logger.WarnContext(r.Context(), "rate limit check failed",
			logging.ScriptID(scriptID), logging.Error(err))
		return true
	}
	if !allowed {
		httputil.WriteNoStore(w, http.StatusTooManyRequests)
		return false
	}
	return true
}
