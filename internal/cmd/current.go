package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTargetCurrentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current target name",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadForEdit(cmd)
			if err != nil {
				return err
			}
			if cfg.CurrentTarget == "" {
				return fmt.Errorf("no current target set")
			}
			t, err := cfg.GetTarget(cfg.CurrentTarget)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Name)
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}
