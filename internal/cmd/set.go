package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/config"
)

func newTargetSetCmd() *cobra.Command {
	var server, suffix, username, password, cookie, notes string
	var clearSuffix bool

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Update fields of a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, cfg, err := loadForEdit(cmd)
			if err != nil {
				return err
			}
			t, err := cfg.GetTarget(name)
			if err != nil {
				return err
			}
			if server != "" {
				t.Server = server
			}
			if suffix != "" {
				t.PathSuffix = suffix
			}
			if clearSuffix {
				t.PathSuffix = ""
			}
			if username != "" {
				t.Username = username
			}
			if password != "" {
				t.Password = password
			}
			if cookie != "" {
				t.Cookie = cookie
			}
			if notes != "" {
				t.Notes = notes
			}
			if err := t.Validate(); err != nil {
				return err
			}
			if err := cfg.UpsertTarget(t); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated target %s\n", name)
			return nil
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().StringVarP(&server, "server", "s", "", "Admin API base URL")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Endpoint suffix")
	cmd.Flags().BoolVar(&clearSuffix, "no-suffix", false, "Remove the endpoint suffix")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Login user")
	cmd.Flags().StringVar(&password, "password", "", "Login password")
	cmd.Flags().StringVar(&cookie, "cookie", "", "Cookie header sent with every request")
	cmd.Flags().StringVarP(&notes, "notes", "N", "", "Notes")

	return cmd
}
