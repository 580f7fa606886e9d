package qualitygate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		summary    models.RunSummary
		thresholds Thresholds
		wantPass   bool
		wantRatio  float64
		violations int
	}{
		{
			name:       "clean run passes",
			summary:    models.RunSummary{ProcessedTotal: 100, NormalizedTotal: 100},
			thresholds: Thresholds{MaxDropped: 0, MaxRetryRatioPct: 10},
			wantPass:   true,
		},
		{
			name:       "retry ratio computed from processed",
			summary:    models.RunSummary{ProcessedTotal: 100, RetriedTotal: 25},
			thresholds: Thresholds{MaxDropped: 0, MaxRetryRatioPct: 50},
			wantPass:   true,
			wantRatio:  25,
		},
		{
			name:       "retry ratio above threshold fails",
			summary:    models.RunSummary{ProcessedTotal: 100, RetriedTotal: 25},
			thresholds: Thresholds{MaxDropped: 0, MaxRetryRatioPct: 20},
			wantPass:   false,
			wantRatio:  25,
			violations: 1,
		},
		{
			name:       "dropped above threshold fails",
			summary:    models.RunSummary{ProcessedTotal: 50, DroppedTotal: 3},
			thresholds: Thresholds{MaxDropped: 2, MaxRetryRatioPct: 50},
			wantPass:   false,
			violations: 1,
		},
		{
			name:       "dropped at threshold passes",
			summary:    models.RunSummary{ProcessedTotal: 50, DroppedTotal: 2},
			thresholds: Thresholds{MaxDropped: 2, MaxRetryRatioPct: 50},
			wantPass:   true,
		},
		{
			name:       "both thresholds exceeded reports both",
			summary:    models.RunSummary{ProcessedTotal: 10, RetriedTotal: 9, DroppedTotal: 5},
			thresholds: Thresholds{MaxDropped: 1, MaxRetryRatioPct: 10},
			wantPass:   false,
			wantRatio:  90,
			violations: 2,
		},
		{
			name:       "idle run never divides by zero",
			summary:    models.RunSummary{ProcessedTotal: 0, RetriedTotal: 0},
			thresholds: Thresholds{MaxDropped: 0, MaxRetryRatioPct: 1},
			wantPass:   true,
			wantRatio:  0,
		},
		{
			name:       "negative max dropped disables the check",
			summary:    models.RunSummary{ProcessedTotal: 10, DroppedTotal: 10},
			thresholds: Thresholds{MaxDropped: -1, MaxRetryRatioPct: 0},
			wantPass:   true,
		},
		{
			name:       "zero retry ratio threshold disables the check",
			summary:    models.RunSummary{ProcessedTotal: 10, RetriedTotal: 10},
			thresholds: Thresholds{MaxDropped: -1, MaxRetryRatioPct: 0},
			wantPass:   true,
			wantRatio:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(&tt.summary, tt.thresholds)
			assert.Equal(t, tt.wantPass, result.Pass)
			assert.InDelta(t, tt.wantRatio, result.RetryRatioPct, 0.001)
			assert.Len(t, result.Violations, tt.violations)
		})
	}
}
