package lirio

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"lirc/internal/lir"
	"lirc/internal/source"
)

const sampleSource = "let id = <T>(x: T) -> T { x }\nid<Int>(1) + 'a'\n"

// sampleProgram instantiates a generic identity and adds the result to a
// char literal; the annotated '+' makes it fail with a located mismatch.
func sampleProgram() lir.Expr {
	id := lir.NewPolyProcedure("id", []string{"T"},
		[]lir.Arg{{Name: "x", Type: lir.Sym("T")}}, lir.Sym("T"), lir.Var("x"))
	call := lir.ApplyExpr{
		Func: lir.MonomorphizeConst{Template: lir.Var("id"), TypeArgs: []lir.Type{lir.Int}},
		Args: []lir.Expr{lir.IntLit(1)},
	}
	return lir.LetProcExpr{
		Name: "id",
		Proc: id,
		Body: lir.AnnotatedExpr{
			X:    lir.BinaryExpr{Op: lir.OpAdd, X: call, Y: lir.CharLit('a')},
			Span: source.Span{Start: 30, End: 46},
		},
	}
}

func TestRoundTripPreservesProgram(t *testing.T) {
	data, err := Marshal("sample", sampleProgram(), &Source{Path: "sample.src", Text: sampleSource})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	fs := source.NewFileSet()
	reg := lir.NewRegistry()
	p, err := Decode(bytes.NewReader(data), fs, reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := lir.FormatExpr(p.Expr), lir.FormatExpr(sampleProgram()); got != want {
		t.Fatalf("decoded program differs:\n got: %s\nwant: %s", got, want)
	}
	if !p.HasSource || fs.Get(p.File).Path != "sample.src" {
		t.Fatalf("embedded source not registered")
	}
	if p.Templates != 1 || p.Annotations != 1 {
		t.Fatalf("templates=%d annotations=%d", p.Templates, p.Annotations)
	}
	if reg.Stats().Templates != 1 {
		t.Fatalf("template should be registered in the bundle registry")
	}

	_, err = lir.CheckProgram(context.Background(), p.Expr, lir.Options{})
	var ann *lir.AnnotatedError
	if !errors.As(err, &ann) {
		t.Fatalf("expected an annotated error, got %v", err)
	}
	if ann.Span.File != p.File || ann.Span.Start != 30 {
		t.Fatalf("span = %v", ann.Span)
	}
	if lir.KindOf(err) != lir.ErrMismatchedTypes {
		t.Fatalf("kind = %s", lir.KindOf(err))
	}
}

func TestDecodeRejectsOtherSchema(t *testing.T) {
	data, err := msgpack.Marshal(&Bundle{Schema: SchemaVersion + 1, Name: "x", Program: &Node{K: KInt}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Decode(bytes.NewReader(data), nil, nil)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestDecodeNormalizesIdentifiers(t *testing.T) {
	decomposed := "cafe\u0301"
	b := &Bundle{
		Schema: SchemaVersion,
		Name:   decomposed,
		Program: &Node{K: KLetVar, Kids: []*Node{
			{K: KSymbol, Name: "caf\u00e9"},
			{K: KBind, Name: decomposed, Kids: []*Node{{K: KIntT}, {K: KInt, Int: 7}}},
		}},
	}
	p, err := b.Build(nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lv := p.Expr.(lir.LetVarExpr)
	if lv.Var.Name != "caf\u00e9" || p.Name != "caf\u00e9" {
		t.Fatalf("identifier not NFC-normalised: %q", lv.Var.Name)
	}
	ty, err := lir.CheckProgram(context.Background(), p.Expr, lir.Options{})
	if err != nil {
		t.Fatalf("normalised names should resolve: %v", err)
	}
	if _, ok := ty.(lir.IntType); !ok {
		t.Fatalf("type = %s", ty)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		src  string
	}{
		{name: "unknown kind", node: &Node{K: "e.goto"}},
		{name: "unknown operator", node: &Node{K: KBinary, Op: "<=>", Kids: []*Node{{K: KInt}, {K: KInt}}}},
		{name: "missing child", node: &Node{K: KIf, Kids: []*Node{{K: KBool}}}},
		{name: "type where expression expected", node: &Node{K: KIntT}},
		{name: "field names mismatch", node: &Node{K: KStruct, Names: []string{"a"}}},
		{name: "span outside source", node: &Node{K: KAnnotated, Kids: []*Node{{K: KNone}}, Span: &Span{Start: 0, End: 99}}, src: "short"},
		{name: "non-constant array length", node: &Node{K: KSizeOfType, Kids: []*Node{{K: KArrayT, Kids: []*Node{{K: KIntT}, {K: KWhile}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bundle{Schema: SchemaVersion, Name: "bad", SourceText: tt.src, Program: tt.node}
			_, err := b.Build(source.NewFileSet(), nil)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
		})
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	n := &Node{K: KInt}
	for range MaxNodeDepth + 1 {
		n = &Node{K: KRefer, Kids: []*Node{n}}
	}
	b := &Bundle{Schema: SchemaVersion, Program: n}
	if _, err := b.Build(nil, nil); err == nil {
		t.Fatalf("expected depth error")
	}
}

func TestBundlesHaveIndependentRegistries(t *testing.T) {
	data, err := Marshal("a", sampleProgram(), nil)
	if err != nil {
		t.Fatal(err)
	}
	p1, err := Decode(bytes.NewReader(data), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Decode(bytes.NewReader(data), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Registry == p2.Registry {
		t.Fatalf("nil registry must produce a fresh one per bundle")
	}
}
