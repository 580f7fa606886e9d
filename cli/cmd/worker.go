package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostlink/bridge-stack/cli/internal/client"
	"github.com/ghostlink/bridge-stack/cli/pkg/output"
)

var (
	workerSiteID int64
	workerLimit  int
	workerRounds int
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Normalization worker commands",
	Long:  "Drive the collector's normalization worker",
}

var workerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a worker run",
	Long: `Trigger one normalization run on the collector and report the outcome.

The command exits non-zero when the run's quality gate fails, so it can
serve as a CI or cron step.`,
	Example: `  glbridge worker run
  glbridge worker run --site-id 42 --rounds 4
  glbridge worker run --limit 500 --json`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	if workerLimit < 0 || workerRounds < 0 {
		return fmt.Errorf("--limit and --rounds must not be negative")
	}

	opts := client.RunOptions{
		Limit:  workerLimit,
		Rounds: workerRounds,
	}
	if workerSiteID > 0 {
		opts.SiteID = &workerSiteID
	}

	workerClient := client.NewWorkerClient(collectorURL)
	result, err := workerClient.Run(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("worker run failed: %w", err)
	}

	if jsonOutput {
		if err := output.JSON(result); err != nil {
			return err
		}
	} else {
		renderRunResult(result)
	}

	if !result.QualityGate.Pass {
		return fmt.Errorf("quality gate failed: %s", strings.Join(result.QualityGate.Violations, "; "))
	}

	return nil
}

func renderRunResult(result *client.RunResult) {
	s := result.Summary

	output.Info("Run finished in %s across %d site(s), %d round(s)",
		s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond), len(s.Targets), len(s.Rounds))

	table := output.NewTable([]string{"PROCESSED", "NORMALIZED", "RETRIED", "DROPPED", "RETRY RATIO"})
	table.AddRow([]string{
		strconv.Itoa(s.ProcessedTotal),
		strconv.Itoa(s.NormalizedTotal),
		strconv.Itoa(s.RetriedTotal),
		strconv.Itoa(s.DroppedTotal),
		fmt.Sprintf("%.1f%%", result.QualityGate.RetryRatioPct),
	})
	table.Render()

	if len(s.DroppedReasons) > 0 {
		fmt.Println()
		drops := output.NewTable([]string{"DROP REASON", "COUNT"})
		for reason, count := range s.DroppedReasons {
			drops.AddRow([]string{reason, strconv.Itoa(count)})
		}
		drops.Render()
	}

	if result.QualityGate.Pass {
		output.Success("Quality gate passed")
	} else {
		for _, v := range result.QualityGate.Violations {
			output.Warn("%s", v)
		}
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerRunCmd)

	workerRunCmd.Flags().Int64Var(&workerSiteID, "site-id", 0, "restrict the run to one site")
	workerRunCmd.Flags().IntVar(&workerLimit, "limit", 0, "events per site per round (0 = server default)")
	workerRunCmd.Flags().IntVar(&workerRounds, "rounds", 0, "rounds per run (0 = server default)")
}
