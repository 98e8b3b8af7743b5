package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yrain/smart-cache/pkg/config"
)

// readPassword is a seam so tests can avoid a terminal.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-password needs an interactive terminal")
	}
	b, err := term.ReadPassword(fd)
	return string(b), err
}

func newTargetAddCmd() *cobra.Command {
	var t config.Target
	var askPassword bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPathFromFlags(cmd)
			if err != nil {
				return err
			}
			if askPassword {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				pw, err := readPassword()
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				t.Password = pw
			}
			if err := t.Validate(); err != nil {
				return err
			}
			if err := config.EnsureDefaultConfig(path); err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.UpsertTarget(t); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added/updated target %s\n", t.Name)
			return nil
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().StringVarP(&t.Name, "name", "n", "", "Target name")
	cmd.Flags().StringVarP(&t.Server, "server", "s", "", "Admin API base URL, e.g. http://host:8080/cache/")
	cmd.Flags().StringVar(&t.PathSuffix, "suffix", "", `Endpoint suffix, ".json" for the servlet deployment`)
	cmd.Flags().StringVarP(&t.Username, "username", "u", "", "Login user for session protected deployments")
	cmd.Flags().StringVar(&t.Password, "password", "", "Login password")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "Prompt for the login password")
	cmd.Flags().StringVar(&t.Cookie, "cookie", "", "Cookie header sent with every request")
	cmd.Flags().StringVarP(&t.Notes, "notes", "N", "", "Notes")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("server")

	return cmd
}
