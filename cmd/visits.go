package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/spf13/cobra"
)

func newVisitsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Inspect stored visit results",
	}

	cmd.AddCommand(
		newVisitsListCmd(app),
		newVisitsBatchesCmd(app),
	)

	return cmd
}

func newVisitsListCmd(app *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored item visits, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sink, err := app.openSink()
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			visits, err := sink.ListVisits(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(visits)
			}

			if len(visits) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no visits recorded")
				return nil
			}

			for _, visit := range visits {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d/%d slots\t%s\n",
					visit.CompletedAt.Local().Format(time.DateTime),
					visit.Ref,
					visit.SucceededCount(),
					len(visit.Slots),
					visitFlags(visit),
				)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of visits (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newVisitsBatchesCmd(app *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List the batch results of one session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sink, err := app.openSink()
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			results, err := sink.ListBatches(cmd.Context(), domain.SessionID(sessionID))
			if err != nil {
				return err
			}

			for _, result := range results {
				outcome := fmt.Sprintf("%d items", result.ItemsLoaded)
				if result.Failed {
					outcome = "failed: " + result.Reason
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", domain.BatchRef(result.Batch), outcome)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func visitFlags(visit domain.VisitAggregate) string {
	var flags []string
	if visit.FullySuccessful() {
		flags = append(flags, "complete")
	}
	if visit.Abandoned {
		flags = append(flags, "abandoned")
	}
	if visit.TimedOut {
		flags = append(flags, "timed out")
	}
	for _, slot := range visit.Slots {
		if slot.Status == domain.SlotFailed {
			flags = append(flags, fmt.Sprintf("%s: %s", slot.Name, slot.Reason))
		}
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ", ")
}
