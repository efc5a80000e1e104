package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"keepsake/internal/config"
	"keepsake/internal/jobstore"
	"keepsake/internal/naming"
	"keepsake/internal/scanner"
	"keepsake/internal/visionary"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Scan sources, build proxies, upload, and request analysis",
		Long: `Scan the input tree for new sources, then drive every registered job as
far as it can go: scene detection and frame selection, proxy synthesis,
upload to the analysis service, and structured analysis. Jobs that fail a
stage keep their status and are retried on the next submit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) error {
				manager, err := buildManager(cfg, store, logger)
				if err != nil {
					return err
				}
				if err := manager.Submit(cmd.Context()); err != nil {
					return err
				}
				return printStats(cmd, store)
			})
		},
	}
}

func newFinalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Cut and encode analyzed jobs into final clips",
		Long: `Drive every analyzed job through segment emission: each described scene
becomes a re-encoded clip with a JSON sidecar in the output directory.
Jobs whose emission fails stay analyzed and are retried on the next
finalize.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) error {
				manager, err := buildManager(cfg, store, logger)
				if err != nil {
					return err
				}
				if err := manager.Finalize(cmd.Context()); err != nil {
					return err
				}
				return printStats(cmd, store)
			})
		},
	}
}

func newLabelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "label <file>",
		Short: "Get a short description and suggested clip name for a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) error {
				source := args[0]

				// Without an API key the describing step degrades to a
				// placeholder; name construction still works.
				label := visionary.PlaceholderLabel
				if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
					manager, err := buildManager(cfg, store, logger)
					if err != nil {
						return err
					}
					label, err = manager.Label(cmd.Context(), source)
					if err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, label)
				name := naming.ClipName(scanner.ContextLabel(source), filepath.Base(source), label)
				fmt.Fprintf(out, "suggested name: %s.mp4\n", name)
				return nil
			})
		},
	}
}

func printStats(cmd *cobra.Command, store *jobstore.Store) error {
	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, status := range jobstore.AllStatuses() {
		if count := stats[status]; count > 0 {
			fmt.Fprintf(out, "%s: %d\n", status, count)
		}
	}
	return nil
}
