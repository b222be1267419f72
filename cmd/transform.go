package cmd

import (
	"context"
	"os"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/internal/ioledger"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/spf13/cobra"
)

func getTransformCmd() *cobra.Command {
	transformCmd := &cobra.Command{
		Use:   "transform <parent-sha256> <file>",
		Short: "Records a derived image in the transformation ledger",
		Long: `Ingests a derived image (crop, rotation, color correction) into the
content-addressed store and appends it to the transformation ledger.
The parent hash must already be registered, either as an original
camera file or as an earlier transformation.

Re-recording the same derived image with identical attributes is a
no-op.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, _ := cmd.Flags().GetString("operation")
			tool, _ := cmd.Flags().GetString("tool")
			toolVersion, _ := cmd.Flags().GetString("tool-version")
			return runTransform(
				cmd.Context(), args[0], args[1],
				operation, tool, toolVersion,
			)
		},
	}

	transformCmd.Flags().StringP("operation", "o", "crop",
		"transformation operation (crop, rotate, color-correct...)")
	transformCmd.Flags().StringP("tool", "t", "",
		"tool that produced the derived image")
	transformCmd.Flags().String("tool-version", "",
		"version of the tool")

	return transformCmd
}

func runTransform(
	ctx context.Context,
	parentSHA, path, operation, tool, toolVersion string,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	store, err := ioimage.New(cfg.Images.Dir)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	sum, err := store.Put(ctx, data)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	ledger := ioledger.New(op)
	err = ledger.RegisterTransformation(ctx, herbdb.TransformationInput{
		DerivedFrom: parentSHA,
		SHA256:      sum,
		Operation:   operation,
		Tool:        tool,
		ToolVersion: toolVersion,
		Location:    path,
	})
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info("Recorded <em>%s</em> as %s of <em>%s</em>",
		sum, operation, parentSHA)
	return nil
}
