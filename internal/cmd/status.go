package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/console"
	"github.com/yrain/smart-cache/pkg/ipc"
)

func newStatusCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current target and whether its admin API answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			resp := map[string]string{
				"target": rt.target.Name,
				"server": rt.target.Server,
				"suffix": rt.target.PathSuffix,
				"user":   rt.target.Username,
				"via":    "direct",
			}
			if rt.viaDaemon {
				resp["via"] = "daemon"
				if c, ok := rt.gateway.(*ipc.Client); ok {
					if info, err := c.Ping(cmd.Context()); err == nil {
						resp["target"] = info["target"]
						resp["server"] = info["server"]
					}
				}
			}

			// A quiet lifecycle: an unreachable server is a status, not an error.
			lc := console.NewLifecycle(-1, nil, rt.logger)
			res := console.Track(cmd.Context(), lc, console.TierNamespaces, rt.gateway.ListNamespaces)
			resp["reachable"] = strconv.FormatBool(res.OK)
			resp["namespaces"] = strconv.Itoa(len(res.Data))

			switch strings.ToLower(output) {
			case "":
				fmt.Fprintf(cmd.OutOrStdout(), "target: %s\n", resp["target"])
				fmt.Fprintf(cmd.OutOrStdout(), "server: %s\n", resp["server"])
				if resp["suffix"] != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "suffix: %s\n", resp["suffix"])
				}
				if resp["user"] != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "user: %s\n", resp["user"])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "via: %s\n", resp["via"])
				if res.OK {
					fmt.Fprintf(cmd.OutOrStdout(), "reachable: yes (%s namespaces)\n", resp["namespaces"])
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "reachable: no")
				}
				return nil
			case "plain":
				fmt.Fprintf(cmd.OutOrStdout(), "target=%s server=%s via=%s reachable=%s namespaces=%s\n",
					resp["target"], resp["server"], resp["via"], resp["reachable"], resp["namespaces"])
				return nil
			default:
				return writeStructured(cmd.OutOrStdout(), output, resp)
			}
		},
	}

	addRuntimeFlags(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml|plain (default: human-readable)")
	return cmd
}

