package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"imgvault/internal/config"
	"imgvault/internal/media"
	"imgvault/internal/metrics"
)

func newReconcileCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		apply  bool
		minAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Find blobs without records and records without blobs",
		Long: "Reconcile lists orphaned blobs and dangling image records. " +
			"With --apply both are deleted. Blobs younger than --min-age are skipped " +
			"so uploads still in flight are not touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default().With("component", "reconcile")
			backend, err := openLocalBackend(cmd.Context(), cfg, logger, metrics.Nop{})
			if err != nil {
				return err
			}
			defer backend.Close()

			result, err := backend.media.Reconcile(cmd.Context(), media.ReconcileOptions{Apply: apply, MinAge: minAge})
			if err != nil {
				return err
			}

			if *jsonOutput {
				return writeJSON(result)
			}
			return writeReconcileResult(result)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete what the sweep finds")
	cmd.Flags().DurationVar(&minAge, "min-age", media.DefaultOrphanMinAge, "skip orphan blobs younger than this")
	return cmd
}

func writeReconcileResult(result media.ReconcileResult) error {
	for _, name := range result.OrphanBlobs {
		if err := writePlain("orphan blob: %s\n", name); err != nil {
			return err
		}
	}
	for _, id := range result.DanglingRecords {
		if err := writePlain("dangling record: %s\n", id); err != nil {
			return err
		}
	}
	if result.DryRun {
		return writePlain("%d orphan blobs, %d dangling records, %d young blobs skipped (dry run; pass --apply to delete)\n",
			len(result.OrphanBlobs), len(result.DanglingRecords), result.SkippedYoung)
	}
	return writePlain("deleted %d blobs (%s) and %d records, %d failed, %d young blobs skipped\n",
		result.DeletedBlobs, formatBytes(result.ReclaimedBytes), result.DeletedRecords, result.FailedCount, result.SkippedYoung)
}
