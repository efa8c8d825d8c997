package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"strmhook/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled (set [history] enabled = true)")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(runs))
			var created, skipped, failed int
			for _, run := range runs {
				created += run.Created
				skipped += run.Skipped
				failed += run.Failed
				rows = append(rows, []string{
					run.StartedAt.Local().Format(time.DateTime),
					shortID(run.ID),
					run.Mode,
					run.Target,
					strconv.Itoa(run.Processed),
					strconv.Itoa(run.Created),
					strconv.Itoa(run.Skipped),
					strconv.Itoa(run.Failed),
					renderRunStatus(run, colorize),
				})
			}
			footer := []string{"", "", "", "total", "", strconv.Itoa(created), strconv.Itoa(skipped), strconv.Itoa(failed), ""}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Run", "Mode", "Target", "Processed", "Created", "Skipped", "Failed", "Status"},
				rows, footer,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func renderRunStatus(run history.Run, colorize bool) string {
	label := run.Status
	color := ansiGreen
	if run.Status != history.StatusOK {
		color = ansiRed
	} else if run.Failed > 0 {
		label = "partial"
		color = ansiYellow
	}
	if !colorize {
		return label
	}
	return color + label + ansiReset
}
