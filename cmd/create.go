package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioschema"
	"github.com/spf13/cobra"
)

func getCreateCmd() *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Creates the herbdb database schema",
		Long: `Creates all tables, constraints and indexes required by the
digitization pipeline: specimen identity, the image transformation
ledger, extraction attempts with their deduplication index, candidate
aggregations, quality flags, the review workflow and export bundles.

If the database already contains tables, the command asks for
confirmation before dropping them. Use --force to skip the prompt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			err := runCreate(cmd.Context(), force)
			if err != nil {
				return err
			}
			return nil
		},
	}

	createCmd.Flags().BoolP("force", "f", false,
		"drop existing tables without confirmation")

	return createCmd
}

func runCreate(ctx context.Context, force bool) error {
	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	gn.Info("Connected to database <em>%s</em> at <em>%s</em>",
		cfg.Database.Database, cfg.Database.Host)

	hasTables, err := op.HasTables(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if hasTables {
		if !force && !confirmDrop() {
			gn.Info("Schema creation cancelled")
			return nil
		}
		gn.Info("Dropping existing tables")
		if err = op.DropAllTables(ctx); err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
	}

	sm := ioschema.NewManager(op)
	if err = sm.Create(ctx); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info("Database schema created successfully")
	gn.Info("Next steps:")
	gn.Info("  herbdb register <dir>  # register camera files")
	gn.Info("  herbdb extract         # run label extraction")

	return nil
}

func confirmDrop() bool {
	fmt.Print(
		"Database is not empty. All existing data will be lost. " +
			"Proceed? (y/N): ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
