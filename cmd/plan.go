package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bnema/fundcrawl/internal/application"
	"github.com/bnema/fundcrawl/internal/ports"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

func newPlanCmd(app *app) *cobra.Command {
	var (
		format string
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the schedule a visit session would follow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case formatTable, formatYAML, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
			}

			svc := application.NewService(app.repo, app.calculator(seed), ports.SystemClock{})
			preview, err := svc.PreviewPlan(cmd.Context(), application.PreviewPlanQuery{
				Start:    app.now(),
				MinDelay: app.cfg.minDelay,
			})
			if err != nil {
				return err
			}

			return writePlan(cmd.OutOrStdout(), preview, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, yaml or json")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the delay generator (0 picks one)")

	return cmd
}

func writePlan(w io.Writer, preview application.PlanPreview, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(preview)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(preview); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		return enc.Close()
	}

	_, _ = fmt.Fprintf(w, "items: %d  start: %s  end: %s  total: %s\n",
		len(preview.Items),
		preview.StartTime.Format(time.TimeOnly),
		preview.EndTime.Format(time.TimeOnly),
		preview.TotalDuration.Round(time.Second),
	)
	for _, item := range preview.Items {
		steps := make([]string, 0, len(item.Steps))
		for _, step := range item.Steps {
			steps = append(steps, fmt.Sprintf("%s@+%s", step.Kind, step.Offset.Round(time.Millisecond)))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s-%s\t%s\tthen wait %s\n",
			item.Ref,
			item.Name,
			item.StartTime.Format(time.TimeOnly),
			item.StopTime.Format(time.TimeOnly),
			strings.Join(steps, " "),
			item.InterItemDelay.Round(time.Millisecond),
		)
	}

	return nil
}
