package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"lirc/internal/diag"
	"lirc/internal/lir"
	"lirc/internal/lirio"
	"lirc/internal/mono"
	"lirc/internal/observ"
	"lirc/internal/project"
	"lirc/internal/source"
	"lirc/internal/trace"
)

// Options configures a Check run.
type Options struct {
	Jobs   int
	Limits lir.Limits
	// MaxStackBytes raises the goroutine stack ceiling for the run; 0 keeps the runtime default.
	MaxStackBytes  int
	MaxDiagnostics int
	Progress       ProgressSink
	// Timer, when set, receives one phase per bundle stage.
	Timer *observ.Timer
}

// Result is the outcome of one bundle. Every bundle is an independent
// compilation with its own FileSet and monomorph registry.
type Result struct {
	Path    string
	Digest  project.Digest
	Files   *source.FileSet
	Program *lirio.Program
	Type    lir.Type
	Bag     *diag.Bag
	Timings Timings
	Stats   mono.Stats
}

// Failed reports whether the bundle produced errors.
func (r *Result) Failed() bool { return r.Bag != nil && r.Bag.HasErrors() }

// Check loads, decodes and type checks every bundle in paths. Bundle failures
// are reported in the results; the returned error is only set on cancellation.
func Check(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if opts.MaxStackBytes > 0 {
		prev := debug.SetMaxStack(opts.MaxStackBytes)
		defer debug.SetMaxStack(prev)
	}

	tracer := trace.FromContext(ctx)
	stage := trace.Begin(tracer, trace.ScopeStage, "check_bundles", trace.ParentFromContext(ctx)).
		WithExtra("bundles", fmt.Sprint(len(paths)))
	defer stage.End("")
	ctx = trace.WithParent(ctx, stage)

	for _, p := range paths {
		emit(opts.Progress, Event{File: p, Stage: StageLoad, Status: StatusQueued})
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = checkBundle(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}

type bundleRun struct {
	opts     Options
	res      *Result
	reporter diag.Reporter
	anchor   source.FileID
	start    time.Time
}

func (r *bundleRun) stage(st Stage, fn func() error) error {
	emit(r.opts.Progress, Event{File: r.res.Path, Stage: st, Status: StatusWorking})
	var idx int
	if r.opts.Timer != nil {
		idx = r.opts.Timer.Begin(fmt.Sprintf("%s %s", st, filepath.Base(r.res.Path)))
	}
	begin := time.Now()
	err := fn()
	r.res.Timings.Set(st, time.Since(begin))
	if r.opts.Timer != nil {
		note := ""
		if err != nil {
			note = "failed"
		}
		r.opts.Timer.End(idx, note)
	}
	return err
}

func (r *bundleRun) fail(st Stage, d diag.Diagnostic, err error) {
	r.reporter.Report(d)
	emit(r.opts.Progress, Event{File: r.res.Path, Stage: st, Status: StatusError, Err: err, Elapsed: time.Since(r.start)})
}

// ioDiagnostic points at the bundle itself; binary input has no useful span.
func (r *bundleRun) ioDiagnostic(code diag.Code, err error) diag.Diagnostic {
	d := diag.NewError(code, source.Span{File: r.anchor}, err.Error())
	d.HasSpan = false
	return d
}

func checkBundle(ctx context.Context, path string, opts Options) Result {
	res := Result{
		Path:  path,
		Files: source.NewFileSet(),
		Bag:   diag.NewBag(opts.MaxDiagnostics),
	}
	r := &bundleRun{
		opts:     opts,
		res:      &res,
		reporter: diag.NewDedupReporter(diag.NewBagReporter(res.Bag)),
		start:    time.Now(),
	}
	r.anchor = res.Files.AddVirtual(path, nil)

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeBundle, "bundle", trace.ParentFromContext(ctx)).
		WithExtra("path", path)
	ctx = trace.WithParent(ctx, span)
	detail := "ok"
	defer func() { span.End(detail) }()

	var data []byte
	err := r.stage(StageLoad, func() error {
		var err error
		// #nosec G304 -- bundle paths come from the command line
		data, err = os.ReadFile(path)
		return err
	})
	if err != nil {
		detail = "load failed"
		r.fail(StageLoad, r.ioDiagnostic(diag.IOLoadFileError, err), err)
		return res
	}
	res.Digest = project.DigestOf(data)
	span.WithExtra("digest", res.Digest.Short())

	err = r.stage(StageDecode, func() error {
		b, err := lirio.ReadBundle(bytes.NewReader(data))
		if err != nil {
			return err
		}
		res.Program, err = b.Build(res.Files, lir.NewRegistry())
		return err
	})
	if err != nil {
		detail = "decode failed"
		code := diag.IODecodeError
		if errors.Is(err, lirio.ErrSchemaMismatch) {
			code = diag.IOSchemaMismatch
		}
		r.fail(StageDecode, r.ioDiagnostic(code, err), err)
		return res
	}

	err = r.stage(StageCheck, func() error {
		var err error
		res.Type, err = lir.CheckProgram(ctx, res.Program.Expr, lir.Options{Limits: opts.Limits})
		return err
	})
	res.Stats = res.Program.Registry.Stats()
	if err != nil {
		detail = "check failed"
		trace.Error(trace.FromContext(ctx), trace.ScopeBundle, "check", err, span.ID())
		r.fail(StageCheck, r.checkDiagnostic(err), err)
		return res
	}
	emit(opts.Progress, Event{File: path, Stage: StageCheck, Status: StatusDone, Elapsed: time.Since(r.start)})
	return res
}

// checkDiagnostic converts a checker error. Spans are only kept when the
// bundle embeds the text they point into.
func (r *bundleRun) checkDiagnostic(err error) diag.Diagnostic {
	d := diag.FromError(err, source.Span{File: r.anchor})
	if d.HasSpan && !r.res.Program.HasSource {
		d.Message = fmt.Sprintf("%s (at bytes %d..%d)", d.Message, d.Primary.Start, d.Primary.End)
		d.Primary = source.Span{File: r.anchor}
		d.HasSpan = false
	}
	return d
}
