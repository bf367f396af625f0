package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upb/insight-rag/app"
	"github.com/upb/insight-rag/services/backfill"
)

func NewBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed insight rows that have no embedding yet",
		Long: `Walks transaction_insights in id order, embeds every row whose embedding
is NULL and writes the vectors back in batches. Rows that fail are reported
and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			initSchema, _ := cmd.Flags().GetBool("init-schema")

			return withDependencies(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				return runBackfill(ctx, cmd, deps, batchSize, initSchema)
			})
		},
	}

	cmd.Flags().IntP("batch-size", "b", backfill.DefaultBatchSize, "Rows embedded and written per transaction")
	cmd.Flags().Bool("init-schema", false, "Create the vector extension and insights table first")
	return cmd
}

func runBackfill(ctx context.Context, cmd *cobra.Command, deps *app.Dependencies, batchSize int, initSchema bool) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	svc, db, err := deps.NewBackfill(ctx, batchSize, initSchema)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := svc.Run(ctx)
	if result != nil {
		if perr := printJSON(cmd, result); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	return nil
}
