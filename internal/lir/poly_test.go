package lir

import (
	"context"
	"sync"
	"testing"
)

func identity(reg *Registry) *PolyProcedure {
	return NewPolyProcedureIn(reg, "id", []string{"T"},
		[]Arg{{Name: "x", Type: Sym("T")}}, Sym("T"), Var("x"))
}

func TestMonomorphizeIsIdempotentPerKey(t *testing.T) {
	env := newTestEnv()
	env.DefineType("Num", Int)
	poly := identity(NewRegistry())

	first, err := poly.Monomorphize([]Type{Int}, env)
	if err != nil {
		t.Fatal(err)
	}
	if first.Name != "__MONOMORPHIZED_(Int)id(x: Int)Int" {
		t.Fatalf("unexpected mangled name %q", first.Name)
	}
	// a different spelling of the same concrete type hits the cache, also
	// through a clone of the template
	second, err := poly.Clone().Monomorphize([]Type{Sym("Num")}, env)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("expected the cached procedure, got %q and %q", first.Name, second.Name)
	}
	if n := poly.CacheLen(); n != 1 {
		t.Fatalf("expected one instantiation, got %d", n)
	}

	other, err := poly.Monomorphize([]Type{Bool}, env)
	if err != nil {
		t.Fatal(err)
	}
	if other == first || poly.CacheLen() != 2 {
		t.Fatalf("Bool instantiation must be distinct (cache=%d)", poly.CacheLen())
	}
	if got := poly.Monomorphs(); len(got) != 2 || got[0] != other {
		t.Fatalf("Monomorphs should be ordered by name, got %v", got)
	}
}

func TestMonomorphizedProcedureIsConcrete(t *testing.T) {
	env := newTestEnv()
	poly := NewPolyProcedureIn(NewRegistry(), "first", []string{"A", "B"},
		[]Arg{{Name: "pair", Type: Tuple(Sym("A"), Sym("B"))}}, Sym("A"),
		LetVarExpr{
			Var:  VarBinding{Name: "tmp", Type: Sym("A"), Value: MemberExpr{X: Var("pair"), Field: "0"}},
			Body: Var("tmp"),
		})
	proc, err := poly.Monomorphize([]Type{Int, Bool}, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, proc.Args[0].Type, Tuple(Int, Bool))
	mustEqual(t, env, proc.Ret, Int)

	lt, ok := proc.Body.(LetTypesExpr)
	if !ok || len(lt.Types) != 2 || lt.Types[0].Name != "A" {
		t.Fatalf("body should bind the type parameters, got %s", FormatExpr(proc.Body))
	}
	inner := lt.Body.(LetVarExpr)
	if _, ok := inner.Var.Type.(IntType); !ok {
		t.Fatalf("type parameters should be substituted in the body, got %s", inner.Var.Type)
	}
	if err := CheckConst(proc, env); err != nil {
		t.Fatalf("instantiation should check: %v", err)
	}
}

func TestMonomorphizeErrors(t *testing.T) {
	env := newTestEnv()
	poly := identity(NewRegistry())

	e := wantKind(t, func() error { _, err := poly.Monomorphize(nil, env); return err }(), ErrMismatchedTypes)
	if len(e.ExpectedList) != 1 || len(e.FoundList) != 0 {
		t.Fatalf("arity error should list parameters, got %v", e.ExpectedList)
	}
	_, err := poly.Monomorphize([]Type{Sym("Unknown")}, env)
	wantKind(t, err, ErrTypeNotDefined)
	if poly.CacheLen() != 0 {
		t.Fatalf("failed instantiations must not be cached")
	}

	_, err = Eval(MonomorphizeConst{Template: IntLit(1), TypeArgs: []Type{Int}}, env)
	wantKind(t, err, ErrNotPolymorphic)
}

func TestTemplateIsCheckedWithOpaqueParameters(t *testing.T) {
	env := newTestEnv()
	reg := NewRegistry()
	if err := CheckConst(identity(reg), env); err != nil {
		t.Fatalf("identity template: %v", err)
	}
	// T is opaque, so T + T is not known to be numeric
	add := NewPolyProcedureIn(reg, "twice", []string{"T"},
		[]Arg{{Name: "x", Type: Sym("T")}}, Sym("T"),
		BinaryExpr{Op: OpAdd, X: Var("x"), Y: Var("x")})
	wantKind(t, CheckConst(add, env), ErrMismatchedTypes)
}

func TestMonomorphizeConstInProgram(t *testing.T) {
	reg := NewRegistry()
	poly := identity(reg)
	prog := LetProcExpr{
		Name: "id",
		Proc: poly,
		Body: Many(
			Call(MonomorphizeConst{Template: Var("id"), TypeArgs: []Type{Int}}, IntLit(5)),
			Call(MonomorphizeConst{Template: Var("id"), TypeArgs: []Type{Int}}, IntLit(6)),
			Call(MonomorphizeConst{Template: Var("id"), TypeArgs: []Type{Char}}, CharLit('z')),
		),
	}
	ty, err := CheckProgram(context.Background(), prog, Options{})
	if err != nil {
		t.Fatalf("CheckProgram: %v", err)
	}
	mustEqual(t, newTestEnv(), ty, Char)
	// the template body makes no instantiation of its own
	if n := poly.CacheLen(); n != 2 {
		t.Fatalf("expected 2 instantiations, got %d", n)
	}

	bad := LetProcExpr{
		Name: "id",
		Proc: identity(NewRegistry()),
		Body: Call(MonomorphizeConst{Template: Var("id"), TypeArgs: []Type{Int}}, BoolLit(true)),
	}
	if _, err := CheckProgram(context.Background(), bad, Options{}); KindOf(err) != ErrMismatchedTypes {
		t.Fatalf("expected argument mismatch, got %v", err)
	}
}

func TestRecursiveGenericTerminates(t *testing.T) {
	// loop<T>(x: T) -> T = loop<T>(x)
	reg := NewRegistry()
	loop := NewPolyProcedureIn(reg, "loop", []string{"T"},
		[]Arg{{Name: "x", Type: Sym("T")}}, Sym("T"),
		Call(MonomorphizeConst{Template: Var("loop"), TypeArgs: []Type{Sym("T")}}, Var("x")))
	prog := LetProcExpr{
		Name: "loop",
		Proc: loop,
		Body: Call(MonomorphizeConst{Template: Var("loop"), TypeArgs: []Type{Int}}, IntLit(1)),
	}
	if _, err := CheckProgram(context.Background(), prog, Options{}); err != nil {
		t.Fatalf("self-recursive template: %v", err)
	}
	// the opaque instantiation from checking the template and the Int one
	if n := loop.CacheLen(); n != 2 {
		t.Fatalf("expected 2 instantiations, got %d", n)
	}
}

func TestMutuallyRecursiveGenerics(t *testing.T) {
	reg := NewRegistry()
	call := func(name string) Expr {
		return Call(MonomorphizeConst{Template: Var(name), TypeArgs: []Type{Sym("T")}}, Var("x"))
	}
	ping := NewPolyProcedureIn(reg, "ping", []string{"T"}, []Arg{{Name: "x", Type: Sym("T")}}, Sym("T"), call("pong"))
	pong := NewPolyProcedureIn(reg, "pong", []string{"T"}, []Arg{{Name: "x", Type: Sym("T")}}, Sym("T"), call("ping"))
	prog := LetProcsExpr{
		Procs: []ProcBinding{{Name: "ping", Proc: ping}, {Name: "pong", Proc: pong}},
		Body:  Call(MonomorphizeConst{Template: Var("ping"), TypeArgs: []Type{Float}}, FloatLit(1)),
	}
	if _, err := CheckProgram(context.Background(), prog, Options{}); err != nil {
		t.Fatalf("mutual recursion: %v", err)
	}
	if reg.Stats().Templates != 2 {
		t.Fatalf("expected both templates in the registry, got %+v", reg.Stats())
	}
}

func TestGrowingInstantiationHitsLimit(t *testing.T) {
	// grow<T>(x: T) -> None = grow<(T, T)>((x, x))
	reg := NewRegistry()
	grow := NewPolyProcedureIn(reg, "grow", []string{"T"},
		[]Arg{{Name: "x", Type: Sym("T")}}, None,
		Many(
			Call(MonomorphizeConst{Template: Var("grow"), TypeArgs: []Type{Tuple(Sym("T"), Sym("T"))}},
				TupleExpr{Elems: []Expr{Var("x"), Var("x")}}),
			NoneConst{},
		))
	prog := LetProcExpr{
		Name: "grow",
		Proc: grow,
		Body: Call(MonomorphizeConst{Template: Var("grow"), TypeArgs: []Type{Int}}, IntLit(0)),
	}
	_, err := CheckProgram(context.Background(), prog, Options{Limits: Limits{MaxInstantiationDepth: 4}})
	wantKind(t, err, ErrRecursionLimit)
	if n := grow.CacheLen(); n > 6 {
		t.Fatalf("instantiation should stop near the limit, cache holds %d", n)
	}
}

func TestConcurrentMonomorphizeSharesOneProcedure(t *testing.T) {
	poly := identity(NewRegistry())
	results := make([]*Procedure, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := poly.Clone().Monomorphize([]Type{Tuple(Int, Char)}, newTestEnv())
			if err != nil {
				t.Errorf("Monomorphize: %v", err)
				return
			}
			results[i] = p
		}()
	}
	wg.Wait()
	for _, p := range results {
		if p != results[0] {
			t.Fatalf("every caller must receive the same procedure")
		}
	}
	if poly.CacheLen() != 1 {
		t.Fatalf("expected one cache entry, got %d", poly.CacheLen())
	}
}

func TestSubstitutingNestedTemplateKeepsIdentityWhenUnchanged(t *testing.T) {
	inner := identity(NewRegistry())
	body := LetProcExpr{Name: "id", Proc: inner, Body: NoneConst{}}
	got := SubstituteExpr(body, map[string]Type{"T": Int}).(LetProcExpr)
	if got.Proc != inner {
		t.Fatalf("template binding its own T must not change")
	}
}

func TestSameTemplateOnLiteralUnderConcurrency(t *testing.T) {
	literal := &PolyProcedure{Name: "lit", TypeParams: []string{"T"},
		Args: []Arg{{Name: "x", Type: Sym("T")}}, Ret: Sym("T"), Body: Var("x")}
	clones := make([]*PolyProcedure, 8)
	var wg sync.WaitGroup
	for i := range clones {
		wg.Add(2)
		go func() {
			defer wg.Done()
			clones[i] = literal.Clone()
		}()
		go func() {
			defer wg.Done()
			_ = literal.SameTemplate(literal)
		}()
	}
	wg.Wait()
	for _, c := range clones {
		if !c.SameTemplate(literal) {
			t.Fatalf("clones of a literal template must share its cache")
		}
	}
	if other := identity(NewRegistry()); other.SameTemplate(literal) {
		t.Fatalf("unrelated templates must not share a cache")
	}
}
