package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/console"
)

// exportEntry is one key and its decoded local value. A nil Value means
// the key had no local value.
type exportEntry struct {
	Key   string `json:"key" yaml:"key" msgpack:"key" cbor:"key"`
	Value any    `json:"value" yaml:"value" msgpack:"value" cbor:"value"`
}

type exportDoc struct {
	Target     string        `json:"target" yaml:"target" msgpack:"target" cbor:"target"`
	Namespace  string        `json:"namespace" yaml:"namespace" msgpack:"namespace" cbor:"namespace"`
	ExportedAt time.Time     `json:"exported_at" yaml:"exported_at" msgpack:"exported_at" cbor:"exported_at"`
	Entries    []exportEntry `json:"entries" yaml:"entries" msgpack:"entries" cbor:"entries"`
}

func newExportCmd() *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export <namespace>",
		Short: "Export every key of a namespace with its local value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(format) {
			case "json", "yaml", "yml", "msgpack", "cbor":
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			doc, err := collectExport(cmd.Context(), rt, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := encodeExport(w, format, doc); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d keys of %s to %s\n", len(doc.Entries), doc.Namespace, outPath)
			}
			return nil
		},
	}

	addRuntimeFlags(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json|yaml|msgpack|cbor")
	cmd.Flags().StringVar(&outPath, "out", "", "Write to file instead of stdout")
	return cmd
}

func collectExport(ctx context.Context, rt *runtime, namespace string, errOut io.Writer) (exportDoc, error) {
	lc := rt.lifecycle(errOut)
	keys := console.Track(ctx, lc, console.TierKeys, func(ctx context.Context) admin.Result[[]admin.KeyEntry] {
		return rt.gateway.ListKeys(ctx, namespace)
	})
	if !keys.OK {
		return exportDoc{}, errRequestFailed
	}
	doc := exportDoc{
		Target:     rt.target.Name,
		Namespace:  namespace,
		ExportedAt: time.Now().UTC(),
		Entries:    make([]exportEntry, 0, len(keys.Data)),
	}
	for _, k := range keys.Data {
		res := console.Track(ctx, lc, console.TierLocal, func(ctx context.Context) admin.Result[admin.Value] {
			return rt.gateway.GetLocalValue(ctx, namespace, k.Key)
		})
		if !res.OK {
			return exportDoc{}, errRequestFailed
		}
		entry := exportEntry{Key: k.Key}
		if len(res.Data) > 0 {
			if err := json.Unmarshal(res.Data, &entry.Value); err != nil {
				return exportDoc{}, fmt.Errorf("decode value of %s: %w", k.Key, err)
			}
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc, nil
}

func encodeExport(w io.Writer, format string, doc exportDoc) error {
	switch strings.ToLower(format) {
	case "msgpack":
		return msgpack.NewEncoder(w).Encode(doc)
	case "cbor":
		return cbor.NewEncoder(w).Encode(doc)
	default:
		return writeStructured(w, format, doc)
	}
}
