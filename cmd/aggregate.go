package cmd

import (
	"context"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioaggregate"
	"github.com/spf13/cobra"
)

func getAggregateCmd() *cobra.Command {
	aggregateCmd := &cobra.Command{
		Use:   "aggregate [specimen-id...]",
		Short: "Recomputes candidate aggregations",
		Long: `Merges the completed extraction attempts of each specimen into one
reviewable candidate set. Without arguments, every specimen with
completed attempts is recomputed; with arguments, only the given
specimens.

Aggregation is deterministic: re-running without new attempts leaves
the stored result byte-identical.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd.Context(), args)
		},
	}

	return aggregateCmd
}

func runAggregate(ctx context.Context, specimenIDs []string) error {
	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	agg := ioaggregate.New(op)

	if len(specimenIDs) == 0 {
		n, err := agg.AggregateAll(ctx)
		if err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
		gn.Info("Aggregated <em>%d</em> specimens", n)
		return nil
	}

	for _, id := range specimenIDs {
		if err = agg.Aggregate(ctx, id); err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
	}
	gn.Info("Aggregated <em>%d</em> specimens", len(specimenIDs))
	return nil
}
