package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"insulin-calc/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// config is not needed to print the version
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", version.Producer(), version.Commit, version.BuildDate)
	},
}
