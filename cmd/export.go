package cmd

import (
	"context"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioexport"
	"github.com/spf13/cobra"
)

func getExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export <directory>",
		Short: "Exports approved records as a Darwin Core bundle",
		Long: `Writes every approved specimen into an export bundle: a Darwin Core
CSV file, a SQLite database and a manifest with checksums, per-field
provenance and the code revision that produced the bundle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0])
		},
	}

	return exportCmd
}

func runExport(ctx context.Context, dir string) error {
	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	manifest, err := ioexport.New(op).Export(ctx, dir)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info("Export bundle <em>%s</em> written to <em>%s</em>",
		manifest.BundleID, dir)
	gn.Info("records: %d, revision: %s", manifest.Records, manifest.Revision)
	for _, f := range manifest.Files {
		gn.Info("  %s  %s", f.SHA256[:12], f.Name)
	}
	return nil
}
