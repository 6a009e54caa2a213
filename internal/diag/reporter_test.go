package diag

import (
	"sync"
	"testing"

	"lirc/internal/source"
)

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(NewBagReporter(bag))
	sp := source.Span{File: 1, Start: 4, End: 9}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ReportError(r, LirMismatchedTypes, sp, "expected Int, found Char").Emit()
		}()
	}
	wg.Wait()
	ReportError(r, LirMismatchedTypes, sp, "expected Bool, found Char").Emit()

	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics after dedup, got %d", bag.Len())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	b := NewReportBuilder(NewBagReporter(bag), SevInfo, ObsTimings, source.Span{}, "timings").
		WithoutSpan().
		WithNote(source.Span{}, "check 1.00 ms")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("Emit must report once, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.HasSpan || len(d.Notes) != 1 || bag.HasErrors() {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	bag := NewBag(4)
	late := NewError(LirSymbolNotDefined, source.Span{File: 0, Start: 20, End: 21}, "x")
	early := NewError(LirMismatchedTypes, source.Span{File: 0, Start: 2, End: 5}, "y")
	for _, d := range []Diagnostic{late, early, late, early, late} {
		bag.Add(d)
	}
	if bag.Len() != 4 {
		t.Fatalf("limit not applied: %d", bag.Len())
	}
	bag.Sort()
	bag.Dedup()
	items := bag.Items()
	if len(items) != 2 || items[0].Code != LirMismatchedTypes || items[1].Code != LirSymbolNotDefined {
		t.Fatalf("items = %+v", items)
	}
	if !bag.HasErrors() {
		t.Fatalf("HasErrors = false")
	}
}
