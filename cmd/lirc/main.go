package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lirc/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "lirc",
	Short:         "LIR type checker and monomorphizer",
	Long:          `lirc checks LIR bundles produced by a front-end and reports type errors against their source text`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// main registers subcommands and persistent flags and runs the root command.
// Any error exits with status 1; check failures have already been reported.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show per bundle")
	rootCmd.PersistentFlags().String("config", "", "path to lirc.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("trace", "", "trace output path (- for stderr, *.ndjson for NDJSON)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug); defaults to [trace] level")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept by the ring tracer")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		if _, silent := err.(exitError); !silent {
			rootCmd.PrintErrln("error:", err)
		}
		os.Exit(1)
	}
}

// exitError signals a failing run whose diagnostics were already printed.
type exitError struct{}

func (exitError) Error() string { return "check failed" }

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
