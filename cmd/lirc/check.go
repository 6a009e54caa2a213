package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lirc/internal/diag"
	"lirc/internal/diagfmt"
	"lirc/internal/observ"
	"lirc/internal/pipeline"
	"lirc/internal/project"
	"lirc/internal/source"
	"lirc/internal/trace"
	"lirc/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <bundle.lir>...",
	Short: "Type check LIR bundles",
	Long:  `Decode each bundle, type check its program and monomorphize every instantiation it reaches`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	checkCmd.Flags().Int("jobs", 0, "bundles checked in parallel (0 = [pipeline] jobs)")
	checkCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json)")
	checkCmd.Flags().String("path-mode", "auto", "file paths in diagnostics (auto|absolute|relative|basename)")
	checkCmd.Flags().Bool("with-notes", true, "include diagnostic notes")
	checkCmd.Flags().Bool("quiet", false, "only print diagnostics")
}

type checkFlags struct {
	ui        uiMode
	jobs      int
	format    string
	pathMode  diagfmt.PathMode
	withNotes bool
	quiet     bool
	color     bool
	timings   bool
	maxDiags  int
	config    string
}

func readCheckFlags(cmd *cobra.Command) (checkFlags, error) {
	var f checkFlags
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = readUIMode(uiStr); err != nil {
		return f, err
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if f.jobs < 0 {
		return f, fmt.Errorf("--jobs must not be negative")
	}
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	f.format = strings.ToLower(f.format)
	if f.format != "pretty" && f.format != "json" {
		return f, fmt.Errorf("unsupported format %q (must be pretty or json)", f.format)
	}
	pathStr, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return f, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	if f.pathMode, err = diagfmt.ParsePathMode(pathStr); err != nil {
		return f, err
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if f.quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return f, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	root := cmd.Root().PersistentFlags()
	colorStr, err := root.GetString("color")
	if err != nil {
		return f, fmt.Errorf("failed to get color flag: %w", err)
	}
	if f.color, err = useColor(colorStr, os.Stdout); err != nil {
		return f, err
	}
	if f.timings, err = root.GetBool("timings"); err != nil {
		return f, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if f.maxDiags, err = root.GetInt("max-diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if f.config, err = root.GetString("config"); err != nil {
		return f, fmt.Errorf("failed to get config flag: %w", err)
	}
	return f, nil
}

// runCheck executes "check": it loads lirc.toml, checks every bundle and
// prints their diagnostics. A failing bundle makes the command exit with 1.
func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	flags, err := readCheckFlags(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	manifest, err := loadManifest(flags.config)
	if err != nil {
		reportConfigError(out, err, flags)
		return exitError{}
	}

	cleanup, err := setupTracing(cmd, manifest.Config.Trace)
	if err != nil {
		return err
	}
	defer cleanup()

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	ctx := cmd.Context()
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "lirc check", 0).
		WithExtra("bundles", fmt.Sprint(len(args)))
	if manifest.Path != "" {
		span.WithExtra("config", manifest.Path)
	}
	ctx = trace.WithParent(ctx, span)

	opts := pipeline.Options{
		Jobs:           manifest.Config.Jobs(),
		Limits:         manifest.Config.Limits(),
		MaxStackBytes:  manifest.Config.MaxStackBytes(),
		MaxDiagnostics: flags.maxDiags,
	}
	if flags.jobs > 0 {
		opts.Jobs = flags.jobs
	}
	var timer *observ.Timer
	if flags.timings {
		timer = observ.NewTimer()
		opts.Timer = timer
	}

	var results []pipeline.Result
	if shouldUseTUI(flags.ui, len(args)) {
		results, err = runCheckWithUI(ctx, "checking", args, opts)
	} else {
		results, err = pipeline.Check(ctx, args, opts)
	}
	if err != nil {
		span.End("aborted")
		return err
	}

	failed := 0
	for i := range results {
		if results[i].Failed() {
			failed++
		}
	}
	span.WithExtra("failed", fmt.Sprint(failed)).End("")

	if flags.format == "json" {
		if err := printResultsJSON(out, results, timer, flags); err != nil {
			return err
		}
	} else {
		printResultsPretty(out, results, flags)
		if flags.timings {
			fmt.Fprintln(out, ui.TimingsTable(results))
			fmt.Fprint(out, timer.Summary())
		}
	}

	if failed > 0 {
		return exitError{}
	}
	return nil
}

func loadManifest(explicit string) (*project.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return project.LoadManifest(cwd, explicit)
}

func reportConfigError(out io.Writer, err error, flags checkFlags) {
	bag := diag.NewBag(1)
	diag.ReportError(diag.NewBagReporter(bag), diag.ProjInvalidConfig, source.Span{}, err.Error()).
		WithoutSpan().
		Emit()
	diagfmt.Pretty(out, bag, source.NewFileSet(), diagfmt.PrettyOpts{Color: flags.color})
}

func printResultsPretty(out io.Writer, results []pipeline.Result, flags checkFlags) {
	opts := diagfmt.PrettyOpts{
		Color:     flags.color,
		Context:   1,
		PathMode:  flags.pathMode,
		BaseDir:   baseDir(),
		Width:     160,
		ShowNotes: flags.withNotes,
	}
	for i := range results {
		res := &results[i]
		if res.Bag.Len() > 0 {
			res.Bag.Sort()
			res.Bag.Dedup()
			diagfmt.Pretty(out, res.Bag, res.Files, opts)
			continue
		}
		if !flags.quiet {
			fmt.Fprintf(out, "%s: ok: %s (%d monomorphs, %s)\n",
				res.Path, res.Type, res.Stats.Instantiations, res.Digest.Short())
		}
	}
}

// printResultsJSON writes one diagnostics document per bundle. Timings are
// reported as an info diagnostic with one note per stage.
func printResultsJSON(out io.Writer, results []pipeline.Result, timer *observ.Timer, flags checkFlags) error {
	opts := diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         flags.pathMode,
		BaseDir:          baseDir(),
		IncludeNotes:     flags.withNotes,
	}
	for i := range results {
		res := &results[i]
		if timer != nil {
			timingsReport(diag.NewBagReporter(res.Bag), res).Emit()
		}
		if err := diagfmt.JSON(out, res.Bag, res.Files, opts); err != nil {
			return fmt.Errorf("failed to encode diagnostics for %s: %w", res.Path, err)
		}
	}
	return nil
}

func timingsReport(r diag.Reporter, res *pipeline.Result) *diag.ReportBuilder {
	msg := fmt.Sprintf("%s checked in %.2f ms", res.Path, toMillis(res.Timings.Sum()))
	b := diag.NewReportBuilder(r, diag.SevInfo, diag.ObsTimings, source.Span{}, msg).WithoutSpan()
	for _, st := range pipeline.Stages {
		if res.Timings.Has(st) {
			b.WithNote(source.Span{}, fmt.Sprintf("%s %.2f ms", st, toMillis(res.Timings.Duration(st))))
		}
	}
	return b
}

func baseDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
