package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

func TestExportJSONToStdout(t *testing.T) {
	_, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "export", "users")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var doc exportDoc
	if err := json.Unmarshal([]byte(got), &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, got)
	}
	if doc.Namespace != "users" || doc.Target != "adhoc" {
		t.Fatalf("unexpected header %+v", doc)
	}
	if len(doc.Entries) != 2 || doc.Entries[0].Key != "u1" || doc.Entries[1].Value != "plain" {
		t.Fatalf("unexpected entries %+v", doc.Entries)
	}
}

func TestExportBinaryFormats(t *testing.T) {
	for _, format := range []string{"msgpack", "cbor"} {
		t.Run(format, func(t *testing.T) {
			_, server := newAdminStub(t)
			out := filepath.Join(t.TempDir(), "users."+format)
			got, err := runCLI(t, "", cacheArgs(t, server, "export", "users", "-f", format, "--out", out)...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if !strings.Contains(got, "Exported 2 keys of users to "+out) {
				t.Fatalf("unexpected output %q", got)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			var doc exportDoc
			switch format {
			case "msgpack":
				err = msgpack.Unmarshal(data, &doc)
			case "cbor":
				err = cbor.Unmarshal(data, &doc)
			}
			if err != nil {
				t.Fatalf("decode %s: %v", format, err)
			}
			if doc.Namespace != "users" || len(doc.Entries) != 2 {
				t.Fatalf("unexpected doc %+v", doc)
			}
			if doc.Entries[1].Key != "u2" || doc.Entries[1].Value != "plain" {
				t.Fatalf("unexpected entry %+v", doc.Entries[1])
			}
		})
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, server := newAdminStub(t)
	_, err := runCLI(t, "", cacheArgs(t, server, "export", "users", "-f", "xml")...)
	if err == nil || !strings.Contains(err.Error(), "unsupported format: xml") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestExportStopsOnFailedValue(t *testing.T) {
	stub, server := newAdminStub(t)
	stub.failOn("get", "gone")
	got, err := runCLI(t, "", cacheArgs(t, server, "export", "users")...)
	if err != errRequestFailed {
		t.Fatalf("expected errRequestFailed, got %v", err)
	}
	if !strings.Contains(got, "error: gone") {
		t.Fatalf("expected error notice, got %q", got)
	}
}
