package diag

import (
	"errors"
	"fmt"
	"testing"

	"lirc/internal/lir"
	"lirc/internal/source"
)

func TestFromErrorCodes(t *testing.T) {
	tests := []struct {
		kind lir.ErrorKind
		want Code
	}{
		{lir.ErrTypeNotDefined, LirTypeNotDefined},
		{lir.ErrMismatchedTypes, LirMismatchedTypes},
		{lir.ErrImmutableAssign, LirImmutableAssign},
		{lir.ErrNotPolymorphic, LirNotPolymorphic},
		{lir.ErrorKind(200), LirInternal},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d := FromError(&lir.Error{Kind: tt.kind, Name: "x"}, source.Span{})
			if d.Code != tt.want {
				t.Fatalf("code = %s, want %s", d.Code.ID(), tt.want.ID())
			}
			if d.Severity != SevError {
				t.Fatalf("severity = %s", d.Severity)
			}
			if d.HasSpan {
				t.Fatalf("unannotated error must not carry a span")
			}
		})
	}
}

func TestFromErrorUsesInnermostSpan(t *testing.T) {
	inner := source.Span{File: 1, Start: 10, End: 14}
	outer := source.Span{File: 1, Start: 0, End: 40}
	err := lir.Annotate(lir.Annotate(&lir.Error{Kind: lir.ErrSymbolNotDefined, Name: "y"}, inner), outer)
	err = fmt.Errorf("check main: %w", err)

	d := FromError(err, source.Span{})
	if !d.HasSpan || d.Primary != inner {
		t.Fatalf("primary = %v (has=%v), want %v", d.Primary, d.HasSpan, inner)
	}
	if d.Code != LirSymbolNotDefined {
		t.Fatalf("code = %s", d.Code.ID())
	}
}

func TestFromErrorPlainError(t *testing.T) {
	fallback := source.Span{File: 2, Start: 3, End: 3}
	d := FromError(errors.New("boom"), fallback)
	if d.Code != LirInternal || d.Primary != fallback || d.Message != "boom" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestFromErrorRecursionNote(t *testing.T) {
	d := FromError(&lir.Error{Kind: lir.ErrRecursionLimit, Value: 4, Name: "monomorphizing"}, source.Span{})
	if len(d.Notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(d.Notes))
	}
}
