package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ghostlink/bridge-stack/collector/internal/dlq"
	"github.com/ghostlink/bridge-stack/common/httputil"
	"github.com/ghostlink/bridge-stack/common/logging"
)

const (
	defaultDLQLimit = 100
	maxDLQLimit     = 1000
)

// DLQStore is the inspection surface of the dead-letter backend.
type DLQStore interface {
	Stats(ctx context.Context) map[string]interface{}
	List(ctx context.Context, limit int) ([]dlq.DroppedEvent, error)
	Purge(ctx context.Context) error
}

// DLQHandler exposes dead-letter inspection over HTTP. Like the worker
// endpoints, this is an operator surface behind the deployment's network
// boundary. When the deployment runs without a DLQ backend the endpoints
// answer 503.
type DLQHandler struct {
	store  DLQStore
	logger *logging.Logger
}

func NewDLQHandler(store DLQStore, logger *logging.Logger) *DLQHandler {
	return &DLQHandler{
		store:  store,
		logger: logger,
	}
}

// HandleList returns dead-letter entries, oldest first.
// GET /api/dlq?limit=N
func (h *DLQHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultDLQLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
		if limit > maxDLQLimit {
			limit = maxDLQLimit
		}
	}

	events, err := h.store.List(r.Context(), limit)
	if err != nil {
		if errors.Is(err, dlq.ErrNotEnabled) {
			httputil.WriteError(w, http.StatusServiceUnavailable, "dead-letter queue not enabled")
			return
		}
		h.logger.ErrorContext(r.Context(), "dlq list failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "dead-letter queue unavailable")
		return
	}
	if events == nil {
		events = []dlq.DroppedEvent{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// HandleStats reports dead-letter stream statistics.
// GET /api/dlq/stats
func (h *DLQHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.Stats(r.Context()))
}

// HandlePurge removes every entry from the dead-letter stream.
// DELETE /api/dlq
func (h *DLQHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Purge(r.Context()); err != nil {
		if errors.Is(err, dlq.ErrNotEnabled) {
			httputil.WriteError(w, http.StatusServiceUnavailable, "dead-letter queue not enabled")
			return
		}
		h.logger.ErrorContext(r.Context(), "dlq purge failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "dead-letter queue unavailable")
		return
	}

	h.logger.InfoContext(r.Context(), "dead-letter stream purged")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"purged": true})
}
