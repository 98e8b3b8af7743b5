package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/console"
)

const previewWidth = 60

func newNamesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "names",
		Aliases: []string{"ns"},
		Short:   "List cache namespaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := console.Track(cmd.Context(), rt.lifecycle(cmd.ErrOrStderr()), console.TierNamespaces, rt.gateway.ListNamespaces)
			if !res.OK {
				return errRequestFailed
			}
			if output != "" {
				return writeStructured(cmd.OutOrStdout(), output, res.Data)
			}
			for _, n := range res.Data {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml (default: one per line)")
	return cmd
}

func newKeysCmd() *cobra.Command {
	var output, filter string

	cmd := &cobra.Command{
		Use:   "keys <namespace>",
		Short: "List the keys of a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			namespace := args[0]
			res := console.Track(cmd.Context(), rt.lifecycle(cmd.ErrOrStderr()), console.TierKeys,
				func(ctx context.Context) admin.Result[[]admin.KeyEntry] {
					return rt.gateway.ListKeys(ctx, namespace)
				})
			if !res.OK {
				return errRequestFailed
			}
			keys := console.FilterKeys(res.Data, filter)
			if output != "" {
				return writeStructured(cmd.OutOrStdout(), output, keyNames(keys))
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k.Key)
			}
			return nil
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml (default: one per line)")
	cmd.Flags().StringVar(&filter, "filter", "", "Only keys containing this text (case-insensitive)")
	return cmd
}

func keyNames(keys []admin.KeyEntry) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Key)
	}
	return out
}

func newGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <namespace> <key>",
		Short: "Show the local value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			namespace, key := args[0], args[1]
			res := console.Track(cmd.Context(), rt.lifecycle(cmd.ErrOrStderr()), console.TierLocal,
				func(ctx context.Context) admin.Result[admin.Value] {
					return rt.gateway.GetLocalValue(ctx, namespace, key)
				})
			if !res.OK {
				return errRequestFailed
			}
			var asYAML bool
			switch strings.ToLower(output) {
			case "", "json":
			case "yaml", "yml":
				asYAML = true
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}
			text, err := renderValue(res.Data, asYAML)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml (default: json)")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <namespace> <key>",
		Short: "Show the value of a key on every cache host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			namespace, key := args[0], args[1]
			res := console.Track(cmd.Context(), rt.lifecycle(cmd.ErrOrStderr()), console.TierHosts,
				func(ctx context.Context) admin.Result[[]admin.HostRecord] {
					return rt.gateway.ListHostValues(ctx, namespace, key)
				})
			if !res.OK {
				return errRequestFailed
			}
			if output != "" {
				return writeStructured(cmd.OutOrStdout(), output, res.Data)
			}
			for _, h := range res.Data {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (host=%s ttl=%d level=%s) %s\n",
					h.Identifier(), h.Host, h.TTL, h.Level, preview(h.Value, previewWidth))
			}
			return nil
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml (default: human-readable)")
	return cmd
}

// preview renders v compactly on one line, cut to width cells.
func preview(v admin.Value, width int) string {
	if len(v) == 0 {
		return "(absent)"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return runewidth.Truncate(string(v), width, "…")
	}
	return runewidth.Truncate(buf.String(), width, "…")
}

// mutationCmd builds del, rem and cls, which only differ in the
// coordinator call they make.
func mutationCmd(use, short string, args cobra.PositionalArgs,
	run func(ctx context.Context, c *console.Coordinator, args []string) console.Outcome) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			confirm := promptConfirmer{in: cmd.InOrStdin(), out: cmd.ErrOrStderr(), yes: yes}
			coord := console.NewCoordinator(rt.gateway, rt.lifecycle(cmd.ErrOrStderr()), confirm, nil)
			switch run(cmd.Context(), coord, args) {
			case console.Failed:
				return errRequestFailed
			case console.Cancelled:
				fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
			}
			return nil
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newDelCmd() *cobra.Command {
	return mutationCmd("del <namespace> <key>", "Delete a key", cobra.ExactArgs(2),
		func(ctx context.Context, c *console.Coordinator, args []string) console.Outcome {
			return c.DeleteKey(ctx, args[0], args[1])
		})
}

func newRemCmd() *cobra.Command {
	return mutationCmd("rem <namespace>", "Clear every key of a namespace", cobra.ExactArgs(1),
		func(ctx context.Context, c *console.Coordinator, args []string) console.Outcome {
			return c.ClearNamespace(ctx, args[0])
		})
}

func newClsCmd() *cobra.Command {
	return mutationCmd("cls", "Clear the whole cache", cobra.NoArgs,
		func(ctx context.Context, c *console.Coordinator, _ []string) console.Outcome {
			return c.ClearAll(ctx)
		})
}
