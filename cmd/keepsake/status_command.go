package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"keepsake/internal/config"
	"keepsake/internal/jobstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var allJobs bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline progress per job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobstore.Store, _ *slog.Logger) error {
				jobs, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs registered. Run `keepsake submit` to scan the input directory.")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					if !allJobs && job.Status == jobstore.StatusComplete {
						continue
					}
					rows = append(rows, []string{
						job.Filename(),
						job.Context,
						string(job.Status),
						job.UpdatedAt.Local().Format(time.DateTime),
						truncate(job.ErrorMessage, 60),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "All jobs complete. Use --all to list them.")
					return nil
				}

				fmt.Fprintln(out, renderTable(
					[]string{"File", "Context", "Status", "Updated", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return printStats(cmd, store)
			})
		},
	}

	cmd.Flags().BoolVarP(&allJobs, "all", "a", false, "Include completed jobs")
	return cmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
