package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"lirc/internal/diag"
	"lirc/internal/lir"
	"lirc/internal/lirio"
	"lirc/internal/observ"
	"lirc/internal/source"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last(file string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].File == file {
			return s.events[i], true
		}
	}
	return Event{}, false
}

func writeBundle(t *testing.T, dir, name string, e lir.Expr, src *lirio.Source) string {
	t.Helper()
	data, err := lirio.Marshal(name, e, src)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	path := filepath.Join(dir, name+".lir")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func generic() *lir.PolyProcedure {
	return lir.NewPolyProcedure("id", []string{"T"},
		[]lir.Arg{{Name: "x", Type: lir.Sym("T")}}, lir.Sym("T"), lir.Var("x"))
}

func TestCheckBundles(t *testing.T) {
	dir := t.TempDir()

	okProg := lir.LetProcExpr{Name: "id", Proc: generic(), Body: lir.ApplyExpr{
		Func: lir.MonomorphizeConst{Template: lir.Var("id"), TypeArgs: []lir.Type{lir.Int}},
		Args: []lir.Expr{lir.IntLit(4)},
	}}
	good := writeBundle(t, dir, "good", okProg, nil)

	text := "1 + 'x'"
	badProg := lir.AnnotatedExpr{
		X:    lir.BinaryExpr{Op: lir.OpAdd, X: lir.IntLit(1), Y: lir.CharLit('x')},
		Span: source.Span{Start: 0, End: 7},
	}
	bad := writeBundle(t, dir, "bad", badProg, &lirio.Source{Path: "bad.src", Text: text})
	noSource := writeBundle(t, dir, "nosrc", badProg, nil)

	schema := filepath.Join(dir, "old.lir")
	data, err := msgpack.Marshal(&lirio.Bundle{Schema: lirio.SchemaVersion + 7, Program: &lirio.Node{K: lirio.KInt}})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(schema, data, 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.lir")

	sink := &recordingSink{}
	timer := observ.NewTimer()
	paths := []string{good, bad, noSource, schema, missing}
	results, err := Check(context.Background(), paths, Options{Jobs: 2, Progress: sink, Timer: timer, MaxStackBytes: 64 << 20})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results", len(results))
	}

	r := results[0]
	if r.Failed() {
		t.Fatalf("good bundle failed: %+v", r.Bag.Items())
	}
	if _, ok := r.Type.(lir.IntType); !ok {
		t.Fatalf("good bundle type = %v", r.Type)
	}
	if r.Stats.Templates != 1 || r.Stats.Instantiations != 1 {
		t.Fatalf("stats = %+v", r.Stats)
	}
	if !r.Timings.Has(StageCheck) {
		t.Fatalf("check stage not timed")
	}
	if ev, _ := sink.last(good); ev.Status != StatusDone {
		t.Fatalf("last event for good bundle = %+v", ev)
	}

	wantCode := []diag.Code{0, diag.LirMismatchedTypes, diag.LirMismatchedTypes, diag.IOSchemaMismatch, diag.IOLoadFileError}
	for i := 1; i < len(paths); i++ {
		res := results[i]
		if !res.Failed() || res.Bag.Items()[0].Code != wantCode[i] {
			t.Fatalf("%s: expected %s, got %+v", filepath.Base(paths[i]), wantCode[i].ID(), res.Bag.Items())
		}
		if ev, _ := sink.last(paths[i]); ev.Status != StatusError {
			t.Fatalf("%s: last event %+v", paths[i], ev)
		}
	}

	located := results[1].Bag.Items()[0]
	if !located.HasSpan || located.Primary.End != 7 {
		t.Fatalf("embedded source should keep the span, got %+v", located)
	}
	if f := results[1].Files.Get(located.Primary.File); f == nil || f.Path != "bad.src" {
		t.Fatalf("span should point into the embedded source")
	}
	if results[2].Bag.Items()[0].HasSpan {
		t.Fatalf("span without source text must be dropped")
	}

	if len(timer.Report().Phases) == 0 {
		t.Fatalf("timer recorded nothing")
	}
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Check(ctx, []string{"a.lir"}, Options{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestTimings(t *testing.T) {
	var a, b Timings
	a.Set(StageLoad, 2)
	b.Set(StageLoad, 3)
	b.Set(StageCheck, 5)
	a.Merge(b)
	if a.Duration(StageLoad) != 5 || a.Sum() != 10 || a.Sum(StageCheck) != 5 {
		t.Fatalf("merged timings = %v", a.stages)
	}
	if a.Has(StageDecode) {
		t.Fatalf("decode was never recorded")
	}
}
