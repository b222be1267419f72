package cmd

import (
	"context"
	"strings"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioquality"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/spf13/cobra"
)

func getCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Runs the data-quality rules over aggregated specimens",
		Long: `Evaluates the advisory quality rules from rules.yaml against every
aggregated specimen: duplicate and malformed catalog numbers, missing
required fields, unparseable or unverified scientific names, and
near-duplicate photography when a similarity file is given.

Findings become quality flags, never errors. Re-running the check does
not duplicate flags, and flags a reviewer resolved stay resolved.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			simPath, _ := cmd.Flags().GetString("similarities")
			skipVerify, _ := cmd.Flags().GetBool("skip-verifier")
			return runCheck(cmd.Context(), simPath, skipVerify)
		},
	}

	checkCmd.Flags().StringP("similarities", "s", "",
		"JSON file with perceptual-similarity pairs")
	checkCmd.Flags().Bool("skip-verifier", false,
		"skip remote scientific-name verification")

	return checkCmd
}

func runCheck(ctx context.Context, simPath string, skipVerify bool) error {
	rules, err := ioquality.LoadRules(config.RulesFilePath(homeDir))
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	similarities, err := ioquality.LoadSimilarities(simPath)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var verifier herbdb.NameVerifier
	if !skipVerify && rules.Verifier.URL != "" {
		verifier = ioquality.NewGBIFVerifier(rules.Verifier)
	}

	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	checker := ioquality.New(op, rules, verifier)
	report, err := checker.Check(ctx, similarities)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info("Checked <em>%d</em> specimens, raised <em>%d</em> new flags",
		report.SpecimensChecked, report.FlagsRaised)
	if len(report.RulesSkipped) > 0 {
		gn.Warn("Skipped rules: %s",
			strings.Join(report.RulesSkipped, ", "))
	}
	return nil
}
