package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/config"
)

func newTargetListCmd() *cobra.Command {
	var output string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadForEdit(cmd)
			if err != nil {
				return err
			}

			switch strings.ToLower(output) {
			case "":
				for _, t := range cfg.Targets {
					marker := " "
					if t.Name == cfg.CurrentTarget {
						marker = "*"
					}
					if verbose {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s (server=%s suffix=%q user=%s notes=%s)\n",
							marker, t.Name, t.Server, t.PathSuffix, t.Username, t.Notes)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", marker, t.Name, t.Server)
				}
				return nil
			case "plain":
				for _, t := range cfg.Targets {
					marker := ""
					if t.Name == cfg.CurrentTarget {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "target=%s%s server=%s suffix=%s user=%s notes=%s\n",
						t.Name, marker, t.Server, t.PathSuffix, t.Username, t.Notes)
				}
				return nil
			default:
				out := make([]config.Target, 0, len(cfg.Targets))
				for _, t := range cfg.Targets {
					t.Password, t.Cookie = "", ""
					out = append(out, t)
				}
				return writeStructured(cmd.OutOrStdout(), output, out)
			}
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml|plain (default: human-readable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed fields in human-readable output")
	return cmd
}
