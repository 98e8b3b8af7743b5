package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and manage a distributed cache through its admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default project .cachectl.yml else $HOME/.cachectl/config.yml)")
	pf.BoolP("global", "g", false, "Force use of global config (~/.cachectl/config.yml)")

	cmd.AddCommand(
		newInitCmd(),
		newTargetCmd(),
		newNamesCmd(),
		newKeysCmd(),
		newGetCmd(),
		newFetchCmd(),
		newDelCmd(),
		newRemCmd(),
		newClsCmd(),
		newExportCmd(),
		newStatusCmd(),
		newDaemonCmd(),
		newTuiCmd(),
	)

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
