package cmd

import (
	"fmt"
	"os"

	herbdb "github.com/openherbaria/herbdb/pkg"
	"github.com/spf13/cobra"
)

type funcFlag func(cmd *cobra.Command)

func versionFlag(cmd *cobra.Command) {
	hasVersionFlag, _ := cmd.Flags().GetBool("version")
	if hasVersionFlag {
		fmt.Printf("\nversion: %s\nbuild: %s\n\n",
			herbdb.Version, herbdb.Build)
		os.Exit(0)
	}
}
