package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"lirc/internal/lir"
	"lirc/internal/lirio"
	"lirc/internal/mono"
	"lirc/internal/project"
	"lirc/internal/source"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <bundle.lir>",
	Short: "Print the program stored in a bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().Bool("raw", false, "dump the decoded Go values instead of LIR syntax")
	dumpCmd.Flags().Bool("monomorphs", false, "check the program and list every instantiation it produced")
}

var rawConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func runDump(cmd *cobra.Command, args []string) error {
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return fmt.Errorf("failed to get raw flag: %w", err)
	}
	monomorphs, err := cmd.Flags().GetBool("monomorphs")
	if err != nil {
		return fmt.Errorf("failed to get monomorphs flag: %w", err)
	}

	path := args[0]
	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	b, err := lirio.ReadBundle(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	prog, err := b.Build(source.NewFileSet(), lir.NewRegistry())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "; bundle %s (schema %d, digest %s)\n", prog.Name, b.Schema, project.DigestOf(data).Short())
	fmt.Fprintf(out, "; %d templates, %d annotations", prog.Templates, prog.Annotations)
	if prog.HasSource {
		fmt.Fprintf(out, ", source %s", b.SourcePath)
	}
	fmt.Fprintln(out)

	if raw {
		rawConfig.Fdump(out, prog.Expr)
	} else {
		fmt.Fprintln(out, lir.FormatExpr(prog.Expr))
	}

	if !monomorphs {
		return nil
	}
	ty, err := lir.CheckProgram(cmd.Context(), prog.Expr, lir.Options{})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(out, "; type %s\n", ty)
	writeMonomorphs(out, prog.Registry)
	return nil
}

func writeMonomorphs(out io.Writer, reg *lir.Registry) {
	stats := reg.Stats()
	for i := 1; i <= stats.Templates; i++ {
		id := mono.TemplateID(i)
		entries := reg.Entries(id)
		fmt.Fprintf(out, "; template %s: %d instantiations\n", reg.Name(id), len(entries))
		for _, e := range entries {
			fmt.Fprintf(out, ";   %s (%d requests)\n", e.Value.Name, e.Requests)
		}
	}
	fmt.Fprintf(out, "; cache hits %d, misses %d\n", stats.Hits, stats.Misses)
}
