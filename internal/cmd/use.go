package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/config"
)

func newTargetUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Switch current target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, cfg, err := loadForEdit(cmd)
			if err != nil {
				return err
			}
			if _, err := cfg.GetTarget(name); err != nil {
				return err
			}
			cfg.CurrentTarget = name
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to target %s\n", name)
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}
