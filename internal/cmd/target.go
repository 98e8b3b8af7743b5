package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/config"
)

func newTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "target",
		Aliases: []string{"targets"},
		Short:   "Manage cache targets (admin endpoints)",
	}
	cmd.AddCommand(
		newTargetListCmd(),
		newTargetCurrentCmd(),
		newTargetUseCmd(),
		newTargetAddCmd(),
		newTargetSetCmd(),
		newTargetDeleteCmd(),
		newTargetImportCmd(),
	)
	return cmd
}

// loadForEdit resolves the config path from flags and loads it.
func loadForEdit(cmd *cobra.Command) (string, config.Config, error) {
	path, err := configPathFromFlags(cmd)
	if err != nil {
		return "", config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", config.Config{}, err
	}
	return path, cfg, nil
}
