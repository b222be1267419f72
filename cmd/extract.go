package cmd

import (
	"context"
	"fmt"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioaggregate"
	"github.com/openherbaria/herbdb/internal/ioextract"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/spf13/cobra"
)

func getExtractCmd() *cobra.Command {
	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Runs label extraction over all registered images",
		Long: `Runs the configured extraction engine over every registered image:
original camera files and derived transformations alike.

Work already recorded for the same image and parameters is skipped, so
re-running the command is cheap. Failed attempts are retried. After the
run, the aggregations of all touched specimens are recomputed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _ := cmd.Flags().GetString("engine")
			script, _ := cmd.Flags().GetString("script")
			jobs, _ := cmd.Flags().GetInt("jobs")
			if jobs > 0 {
				cfg.Update([]config.Option{config.OptJobsNumber(jobs)})
			}
			return runExtract(cmd.Context(), engine, script)
		},
	}

	extractCmd.Flags().StringP("engine", "e", "tesseract",
		"extraction engine to run")
	extractCmd.Flags().String("script", "",
		"external extractor executable; --engine names it")
	extractCmd.Flags().IntP("jobs", "j", 0,
		"number of concurrent extraction workers")

	return extractCmd
}

func runExtract(ctx context.Context, engineName, scriptPath string) error {
	extractor, err := newExtractor(engineName, scriptPath)
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

	runner := ioextract.NewRunner(
		op, store,
		ioextract.NewDeduplicator(op),
		extractor,
		ioaggregate.New(op),
		cfg,
	)

	report, err := runner.Run(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info("Extraction run <em>%s</em> finished", report.RunID)
	gn.Info(
		"targets: %d, extracted: %d, skipped: %d, failed: %d, conflicts: %d",
		report.Targets, report.Extracted, report.Skipped,
		report.Failed, report.Conflicts,
	)
	return nil
}

func newExtractor(name, scriptPath string) (herbdb.Extractor, error) {
	if scriptPath != "" {
		return ioextract.NewScript(name, scriptPath), nil
	}
	switch name {
	case "tesseract":
		return ioextract.NewTesseract(), nil
	default:
		return nil, fmt.Errorf("unknown extraction engine %q", name)
	}
}
