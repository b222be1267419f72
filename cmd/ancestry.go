package cmd

import (
	"context"
	"fmt"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioledger"
	"github.com/spf13/cobra"
)

func getAncestryCmd() *cobra.Command {
	ancestryCmd := &cobra.Command{
		Use:   "ancestry <sha256>",
		Short: "Shows the derivation chain of an image",
		Long: `Walks the transformation ledger from an image hash back to the
original camera file and prints each step of the chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAncestry(cmd.Context(), args[0])
		},
	}

	return ancestryCmd
}

func runAncestry(ctx context.Context, sha string) error {
	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	chain, err := ioledger.New(op).Ancestry(ctx, sha)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	for i, node := range chain {
		if node.IsOriginal {
			fmt.Printf("%d. %s (original camera file)\n", i+1, node.SHA256)
			continue
		}
		fmt.Printf("%d. %s (%s of %s)\n",
			i+1, node.SHA256, node.Operation, node.DerivedFrom)
	}
	return nil
}
