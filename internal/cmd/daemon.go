package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/internal/daemon"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the cachectl daemon",
	}
	cmd.AddCommand(newDaemonServeCmd())
	return cmd
}

func newDaemonServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Hold a gateway session open and serve it on the daemon socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if on, _ := cmd.Flags().GetBool("daemon"); on {
				return errors.New("daemon serve cannot itself use --daemon")
			}
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			socket := rt.cfg.Options.SocketPath
			if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := daemon.NewService(rt.gateway, rt.target.Name, rt.target.Server, socket, rt.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving target %s on %s\n", rt.target.Name, socket)
			if err := svc.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}
