package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostlink/bridge-stack/cli/internal/client"
	"github.com/ghostlink/bridge-stack/cli/pkg/output"
)

var (
	eventsSiteID int64
	eventsSince  time.Duration
	eventsLimit  int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Normalized event commands",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List normalized events for a site",
	Example: `  glbridge events list --site-id 42
  glbridge events list --site-id 42 --since 1h --limit 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsSiteID <= 0 {
			return fmt.Errorf("--site-id is required")
		}

		now := time.Now().UTC()
		eventsClient := client.NewEventsClient(collectorURL)
		events, err := eventsClient.List(cmd.Context(), client.ListEventsOptions{
			SiteID: eventsSiteID,
			From:   now.Add(-eventsSince),
			To:     now,
			Limit:  eventsLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		if jsonOutput {
			return output.JSON(events)
		}

		if len(events) == 0 {
			output.Info("No events in the last %s", eventsSince)
			return nil
		}

		table := output.NewTable([]string{"OCCURRED", "TYPE", "SESSION", "PAGE"})
		for _, evt := range events {
			table.AddRow([]string{
				evt.OccurredAt.Format(time.RFC3339),
				evt.EventType,
				evt.SessionID,
				evt.PageURL,
			})
		}
		table.Render()

		output.Info("\n%s event(s)", strconv.Itoa(len(events)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)

	eventsListCmd.Flags().Int64Var(&eventsSiteID, "site-id", 0, "site to list events for (required)")
	eventsListCmd.Flags().DurationVar(&eventsSince, "since", 24*time.Hour, "how far back to look")
	eventsListCmd.Flags().IntVar(&eventsLimit, "limit", 100, "maximum events to return")
}
