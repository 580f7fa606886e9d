package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostlink/bridge-stack/cli/internal/client"
	"github.com/ghostlink/bridge-stack/cli/pkg/output"
	"github.com/ghostlink/bridge-stack/common/messaging"
	natsclient "github.com/ghostlink/bridge-stack/common/messaging/nats"
)

var (
	dlqNATSURL string
	dlqReason  string
	dlqCount   int
	dlqLimit   int
	dlqForce   bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Dead-letter stream commands",
	Long:  "Inspect terminally dropped events on the dead-letter stream",
}

var dlqTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Tail dropped events",
	Long: `Stream dead-letter entries as the worker drops events.

Runs until interrupted, or until --count entries have been printed.`,
	Example: `  glbridge dlq tail
  glbridge dlq tail --reason retry_exhausted
  glbridge dlq tail --count 10 --json`,
	RunE: tailDLQ,
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dropped events",
	Long:  "Fetch dead-letter entries from the collector, oldest first",
	Example: `  glbridge dlq list
  glbridge dlq list --limit 20 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		drops, err := client.NewDLQClient(collectorURL).List(cmd.Context(), dlqLimit)
		if err != nil {
			return fmt.Errorf("failed to list dead-letter entries: %w", err)
		}

		if jsonOutput {
			return output.JSON(drops)
		}

		if len(drops) == 0 {
			output.Info("Dead-letter stream is empty")
			return nil
		}

		table := output.NewTable([]string{"DROPPED", "SITE", "EVENT", "TYPE", "REASON", "RETRIES"})
		for _, d := range drops {
			table.AddRow([]string{
				d.Timestamp.Format(time.RFC3339),
				strconv.FormatInt(d.SiteID, 10),
				d.EventID,
				d.EventType,
				d.Reason,
				strconv.Itoa(d.RetryCount),
			})
		}
		table.Render()
		return nil
	},
}

var dlqStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dead-letter stream statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := client.NewDLQClient(collectorURL).Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch dead-letter stats: %w", err)
		}
		return output.JSON(stats)
	},
}

var dlqPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every entry from the dead-letter stream",
	Long: `Remove every entry from the dead-letter stream.

The database rows of dropped events are untouched; only the operational
mirror is cleared. Requires --force.`,
	Example: `  glbridge dlq purge --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dlqForce {
			return fmt.Errorf("refusing to purge without --force")
		}
		if err := client.NewDLQClient(collectorURL).Purge(cmd.Context()); err != nil {
			return fmt.Errorf("failed to purge dead-letter stream: %w", err)
		}
		output.Success("Dead-letter stream purged")
		return nil
	},
}

func tailDLQ(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := natsclient.DefaultConfig()
	cfg.URL = dlqNATSURL
	cfg.Name = "glbridge-dlq"

	js, err := natsclient.NewJetStreamClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer js.Close()

	// The stream definition is idempotent; creating it here means tail
	// works even before the collector has dropped anything.
	if _, err := js.CreateOrUpdateStream(ctx, natsclient.BridgeDLQStream); err != nil {
		return err
	}

	filter := messaging.SubjectBridgeDLQ + ".>"
	if dlqReason != "" {
		filter = messaging.DLQSubject(dlqReason)
	}

	var (
		printed  atomic.Int64
		done     = make(chan struct{})
		doneOnce sync.Once
	)

	stopConsumer, err := js.ConsumeMessages(ctx, natsclient.BridgeDLQStream.Name, filter,
		func(_ context.Context, msg *messaging.Message) error {
			printDrop(msg.Data)
			if dlqCount > 0 && printed.Add(1) >= int64(dlqCount) {
				doneOnce.Do(func() { close(done) })
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to consume dead-letter stream: %w", err)
	}
	defer stopConsumer()

	output.Info("Tailing %s (ctrl-c to stop)", filter)

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

func printDrop(data []byte) {
	var rec client.DroppedEvent
	if err := json.Unmarshal(data, &rec); err != nil {
		fmt.Println(string(data))
		return
	}

	if jsonOutput {
		_ = output.JSON(rec)
		return
	}

	line := fmt.Sprintf("%s  site=%d  raw_event=%d  type=%s  reason=%s  retries=%d",
		rec.Timestamp.Format(time.RFC3339), rec.SiteID, rec.RawEventID,
		rec.EventType, rec.Reason, rec.RetryCount)
	if rec.LastError != "" {
		line += "  error=" + rec.LastError
	}
	fmt.Println(line)
}

func init() {
	rootCmd.AddCommand(dlqCmd)
	dlqCmd.AddCommand(dlqTailCmd)
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqStatsCmd)
	dlqCmd.AddCommand(dlqPurgeCmd)

	dlqTailCmd.Flags().StringVar(&dlqNATSURL, "nats-url", "nats://localhost:4222", "NATS server URL")
	dlqTailCmd.Flags().StringVar(&dlqReason, "reason", "", "only show drops with this reason")
	dlqTailCmd.Flags().IntVar(&dlqCount, "count", 0, "stop after this many entries (0 = run until interrupted)")
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", 100, "maximum entries to fetch")
	dlqPurgeCmd.Flags().BoolVar(&dlqForce, "force", false, "confirm purging the dead-letter stream")
}
