package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostlink/bridge-stack/cli/internal/seeder"
	"github.com/ghostlink/bridge-stack/cli/pkg/output"
)

var (
	seedScriptID     string
	seedCount        int
	seedBatchSize    int
	seedSessions     int
	seedTimeSpread   time.Duration
	seedDuplicatePct int
	seedSeed         int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed synthetic browser events",
	Long: `Generate realistic browser event traffic and submit it through the
collector's public intake endpoints, token handshake included.

A portion of events can be resubmitted with reused event IDs to exercise
the dedup ledger end to end.`,
	Example: `  glbridge seed --script-id gl_abc123 --count 500
  glbridge seed --script-id gl_abc123 --count 1000 --duplicates 10 --spread 6h
  glbridge seed --script-id gl_abc123 --count 200 --seed 42`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	runner, err := seeder.NewRunner(seeder.Config{
		CollectorURL: collectorURL,
		ScriptID:     seedScriptID,
		Count:        seedCount,
		BatchSize:    seedBatchSize,
		Sessions:     seedSessions,
		TimeSpread:   seedTimeSpread,
		DuplicatePct: seedDuplicatePct,
		Seed:         seedSeed,
	})
	if err != nil {
		return err
	}

	output.Info("Seeding %d events into %s ...", seedCount, seedScriptID)

	report, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	if jsonOutput {
		return output.JSON(report)
	}

	output.Success("Sent %d events in %d batches: %d accepted, %d duplicates, %d rejected",
		report.Generated, report.Batches, report.Accepted, report.Duplicates, report.Rejected)
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedScriptID, "script-id", "", "script ID of the target site (required)")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of events to generate")
	seedCmd.Flags().IntVar(&seedBatchSize, "batch-size", 50, "events per batch")
	seedCmd.Flags().IntVar(&seedSessions, "sessions", 0, "synthetic sessions (0 = count/20)")
	seedCmd.Flags().DurationVar(&seedTimeSpread, "spread", time.Hour, "window to spread event timestamps over")
	seedCmd.Flags().IntVar(&seedDuplicatePct, "duplicates", 0, "percent of events to resubmit with reused event IDs")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 0, "random seed for reproducible runs (0 = random)")

	_ = seedCmd.MarkFlagRequired("script-id")
}
