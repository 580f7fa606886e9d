package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/common/httputil"
	"github.com/ghostlink/bridge-stack/common/logging"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// EventsHandler is the read-only interface downstream reporting collaborators
// use to pull canonical events.
type EventsHandler struct {
	repo   repository.Repository
	logger *logging.Logger
}

func NewEventsHandler(repo repository.Repository, logger *logging.Logger) *EventsHandler {
	return &EventsHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleList returns canonical events for one site within a time range,
// newest first. Defaults to the last 24 hours.
// GET /api/events?site_id=N&from=RFC3339&to=RFC3339&limit=N
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	siteID, err := strconv.ParseInt(q.Get("site_id"), 10, 64)
	if err != nil || siteID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "site_id must be a positive integer")
		return
	}

	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	to := now

	if raw := q.Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
	}
	if !from.Before(to) {
		httputil.WriteError(w, http.StatusBadRequest, "from must be before to")
		return
	}

	limit := defaultEventsLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxEventsLimit {
			limit = maxEventsLimit
		}
	}

	events, err := h.repo.CanonicalEvents(r.Context(), siteID, from.UTC(), to.UTC(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "canonical event query failed",
			logging.SiteID(siteID), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if events == nil {
		events = []*models.CanonicalEvent{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}
