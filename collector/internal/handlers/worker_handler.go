package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/collector/internal/qualitygate"
	"github.com/ghostlink/bridge-stack/collector/internal/worker"
	"github.com/ghostlink/bridge-stack/common/httputil"
	"github.com/ghostlink/bridge-stack/common/logging"
)

// WorkerHandler exposes the batch normalization runner over HTTP. This is an
// operator surface, expected to sit behind the deployment's network boundary.
type WorkerHandler struct {
	runner     *worker.Runner
	thresholds qualitygate.Thresholds
	logger     *logging.Logger
}

func NewWorkerHandler(runner *worker.Runner, thresholds qualitygate.Thresholds, logger *logging.Logger) *WorkerHandler {
	return &WorkerHandler{
		runner:     runner,
		thresholds: thresholds,
		logger:     logger,
	}
}

// HandleRun triggers one worker run. An empty body runs with defaults.
// POST /api/worker/run
func (h *WorkerHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var opts models.RunOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if opts.Limit < 0 || opts.Rounds < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "limit and rounds must not be negative")
		return
	}

	summary, err := h.runner.Run(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "worker run failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "worker run failed")
		return
	}

	gate := qualitygate.Evaluate(summary, h.thresholds)

	h.logger.InfoContext(r.Context(), "worker run complete",
		"processed", summary.ProcessedTotal,
		"normalized", summary.NormalizedTotal,
		"retried", summary.RetriedTotal,
		"dropped", summary.DroppedTotal,
		"gate_pass", gate.Pass)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"summary":      summary,
		"quality_gate": gate,
	})
}
