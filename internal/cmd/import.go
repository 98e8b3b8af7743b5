package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/config"
	"github.com/yrain/smart-cache/pkg/targetfile"
)

func newTargetImportCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import targets from an INI file, one [section] per target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPathFromFlags(cmd)
			if err != nil {
				return err
			}
			entries, err := targetfile.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.EnsureDefaultConfig(path); err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			imported, skipped := 0, 0
			for _, name := range slices.Sorted(maps.Keys(entries)) {
				e := entries[name]
				t := config.Target{
					Name:       name,
					Server:     e.Server,
					PathSuffix: e.Suffix,
					Username:   e.Username,
					Password:   e.Password,
					Cookie:     e.Cookie,
					Notes:      e.Notes,
				}
				if err := t.Validate(); err != nil {
					return fmt.Errorf("target %s invalid: %w", name, err)
				}
				if !overwrite {
					if _, err := cfg.GetTarget(name); err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "skip: %s (exists)\n", name)
						skipped++
						continue
					}
				}
				if err := cfg.UpsertTarget(t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "import: %s\n", name)
				imported++
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d targets (skipped %d) from %s\n", imported, skipped, args[0])
			return nil
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "w", false, "Overwrite existing targets with the same name")
	return cmd
}
