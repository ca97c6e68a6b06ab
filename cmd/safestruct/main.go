// Package main provides the safestruct command line tool: inspect and
// verify safestruct (safetensors) files without loading them fully.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/store"
)

const version = "v0.1.0"

func main() {
	var (
		showMetadata bool
		showSchema   bool
		verify       bool
		showVersion  bool
	)

	pflag.BoolVarP(&showMetadata, "metadata", "m", false, "print caller metadata")
	pflag.BoolVarP(&showSchema, "schema", "s", false, "print the schema document as JSON")
	pflag.BoolVar(&verify, "verify", false, "verify the tensor data digest")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: safestruct [flags] <file>\n\nInspect a safestruct file: tensors, metadata, schema.\n\nFlags:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if showVersion {
		fmt.Printf("safestruct %s\n", version)
		return
	}

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	if err := run(pflag.Arg(0), showMetadata, showSchema, verify); err != nil {
		fmt.Fprintf(os.Stderr, "safestruct: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, showMetadata, showSchema, verify bool) error {
	r, err := store.OpenMmap(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close() // Best effort close
	}()

	if verify {
		if err := r.VerifyDigest(); err != nil {
			return err
		}
		fmt.Println("digest OK")
		return nil
	}

	meta := r.Metadata()

	if showSchema {
		encoded, ok := meta[schema.SchemaField]
		if !ok {
			return fmt.Errorf("%s: no schema document (plain safetensors file?)", path)
		}
		root, err := schema.Decode(encoded)
		if err != nil {
			return err
		}
		pretty, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(pretty))
		return nil
	}

	if showMetadata {
		keys := make([]string, 0, len(meta))
		for k := range meta {
			if k == schema.SchemaField || k == schema.VersionField {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, meta[k])
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tDTYPE\tSHAPE\tBYTES")
	for _, name := range r.TensorNames() {
		info, err := r.TensorInfo(name)
		if err != nil {
			return err
		}
		size := info.DataOffsets[1] - info.DataOffsets[0]
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\n", name, info.DType, info.Shape, size)
	}
	return w.Flush()
}
