package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/config"
)

func newTargetDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a target",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, cfg, err := loadForEdit(cmd)
			if err != nil {
				return err
			}
			if err := cfg.DeleteTarget(name); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted target %s\n", name)
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}
