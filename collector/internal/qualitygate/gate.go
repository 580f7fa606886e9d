// Package qualitygate evaluates worker run summaries against configured
// thresholds, turning a run into a pass/fail signal for operators and CI-style
// reprocessing pipelines.
package qualitygate

import (
	"fmt"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

// Thresholds are the run acceptance limits. A zero MaxRetryRatioPct or
// negative MaxDropped disables that check.
type Thresholds struct {
	// MaxDropped is the highest acceptable number of terminally dropped
	// events in one run. Negative disables the check.
	MaxDropped int `json:"max_dropped"`

	// MaxRetryRatioPct is the highest acceptable retried/processed ratio,
	// in percent. Zero or negative disables the check.
	MaxRetryRatioPct float64 `json:"max_retry_ratio_pct"`
}

// Result is the gate verdict for one run.
type Result struct {
	Pass          bool     `json:"pass"`
	RetryRatioPct float64  `json:"retry_ratio_pct"`
	Violations    []string `json:"violations,omitempty"`
}

// Evaluate checks a run summary against the thresholds. An idle run
// (nothing processed) always passes with a zero retry ratio.
func Evaluate(summary *models.RunSummary, thresholds Thresholds) Result {
	result := Result{Pass: true}

	if summary.ProcessedTotal > 0 {
		result.RetryRatioPct = float64(summary.RetriedTotal) / float64(summary.ProcessedTotal) * 100
	}

	if thresholds.MaxDropped >= 0 && summary.DroppedTotal > thresholds.MaxDropped {
		result.Pass = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("dropped %d events, threshold is %d", summary.DroppedTotal, thresholds.MaxDropped))
	}

	if thresholds.MaxRetryRatioPct > 0 && result.RetryRatioPct > thresholds.MaxRetryRatioPct {
		result.Pass = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("retry ratio %.1f%%, threshold is %.1f%%", result.RetryRatioPct, thresholds.MaxRetryRatioPct))
	}

	return result
}
