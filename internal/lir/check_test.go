package lir

import (
	"context"
	"errors"
	"testing"

	"lirc/internal/source"
)

func TestArrayLiteralHomogeneity(t *testing.T) {
	env := newTestEnv()

	mixed := ArrayExpr{Elems: []Expr{IntLit(1), IntLit(2), BoolLit(true)}}
	e := wantKind(t, CheckExpr(mixed, env), ErrMismatchedTypes)
	if e.Expr != BoolLit(true) {
		t.Fatalf("expected the third element to be named, got %v", e.Expr)
	}
	mustEqual(t, env, e.Expected, Int)
	mustEqual(t, env, e.Found, Bool)

	ints := ArrayExpr{Elems: []Expr{IntLit(1), IntLit(2), IntLit(3)}}
	if err := CheckExpr(ints, env); err != nil {
		t.Fatalf("homogeneous array: %v", err)
	}
	ty, err := TypeOf(ints, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, ty, Array(Int, 3))

	empty, err := TypeOf(ArrayExpr{}, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, empty, Array(Any, 0))
}

func TestIfBranchesMustBeEqual(t *testing.T) {
	env := newTestEnv()
	ok := IfExpr{Cond: BoolLit(true), Then: IntLit(1), Else: IntLit(2)}
	if err := CheckExpr(ok, env); err != nil {
		t.Fatalf("if with Int branches: %v", err)
	}

	bad := IfExpr{Cond: BoolLit(true), Then: IntLit(1), Else: BoolLit(true)}
	e := wantKind(t, CheckExpr(bad, env), ErrMismatchedTypes)
	mustEqual(t, env, e.Expected, Int)
	mustEqual(t, env, e.Found, Bool)
}

func TestIfWithDivergingBranch(t *testing.T) {
	env := newTestEnv()
	scope := env.NewProcScope()
	scope.SetExpectedReturnType(Int)

	// Never is not equal to Int, even though it decays to it
	expr := IfExpr{Cond: BoolLit(true), Then: ReturnExpr{Value: IntLit(0)}, Else: IntLit(2)}
	e := wantKind(t, CheckExpr(expr, scope), ErrMismatchedTypes)
	mustEqual(t, scope, e.Expected, Never)
	mustEqual(t, scope, e.Found, Int)

	both := IfExpr{Cond: BoolLit(true), Then: ReturnExpr{Value: IntLit(0)}, Else: ReturnExpr{Value: IntLit(1)}}
	if err := CheckExpr(both, scope); err != nil {
		t.Fatalf("both branches return: %v", err)
	}
	ty, err := TypeOf(both, scope)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, scope, ty, Never)
}

func TestWhenBranchesMayDiffer(t *testing.T) {
	env := newTestEnv()
	expr := WhenExpr{Cond: BoolLit(false), Then: IntLit(1), Else: CharLit('x')}
	if err := CheckExpr(expr, env); err != nil {
		t.Fatalf("when: %v", err)
	}
	ty, err := TypeOf(expr, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, ty, Char)

	wantKind(t, CheckExpr(WhenExpr{Cond: IntLit(1), Then: IntLit(1), Else: IntLit(2)}, env), ErrMismatchedTypes)
}

func TestDerefRequiresPointer(t *testing.T) {
	env := newTestEnv()
	env.DefineVar("x", false, Int)
	env.DefineVar("p", false, Ptr(Int))

	e := wantKind(t, CheckExpr(DerefExpr{X: Var("x")}, env), ErrMismatchedTypes)
	mustEqual(t, env, e.Expected, Ptr(Any))

	if err := CheckExpr(DerefExpr{X: Var("p")}, env); err != nil {
		t.Fatalf("deref pointer: %v", err)
	}
	ty, err := TypeOf(DerefExpr{X: Var("p")}, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, ty, Int)
}

func TestDerefMutStoresPointee(t *testing.T) {
	env := newTestEnv()
	env.DefineVar("p", false, Ptr(Int))
	if err := CheckExpr(DerefMutExpr{Ptr: Var("p"), Value: IntLit(3)}, env); err != nil {
		t.Fatalf("store Int through &Int: %v", err)
	}
	wantKind(t, CheckExpr(DerefMutExpr{Ptr: Var("p"), Value: BoolLit(true)}, env), ErrMismatchedTypes)

	env.DefineVar("n", false, Int)
	store := DerefMutExpr{Ptr: Var("n"), Value: IntLit(3)}
	e := wantKind(t, CheckExpr(store, env), ErrMismatchedTypes)
	if _, ok := e.Expr.(DerefMutExpr); !ok {
		t.Fatalf("error should name the store itself, got %T", e.Expr)
	}
	mustEqual(t, env, e.Expected, Ptr(Any))
}

func addProc() *Procedure {
	return NewProcedure("add", []Arg{{Name: "a", Type: Int}, {Name: "b", Type: Int}}, Int,
		BinaryExpr{Op: OpAdd, X: Var("a"), Y: Var("b")})
}

func TestApplyChecksArguments(t *testing.T) {
	env := newTestEnv()
	env.DefineProc("add", addProc())

	call := Call(Var("add"), IntLit(1), IntLit(2))
	if err := CheckExpr(call, env); err != nil {
		t.Fatalf("call: %v", err)
	}
	ty, err := TypeOf(call, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, ty, Int)

	e := wantKind(t, CheckExpr(Call(Var("add"), IntLit(1)), env), ErrMismatchedTypes)
	if len(e.ExpectedList) != 2 || len(e.FoundList) != 1 {
		t.Fatalf("arity error should carry both lists, got %v and %v", e.ExpectedList, e.FoundList)
	}
	wantKind(t, CheckExpr(Call(Var("add"), IntLit(1), FloatLit(2)), env), ErrMismatchedTypes)
	wantKind(t, CheckExpr(Call(IntLit(3)), env), ErrMismatchedTypes)
}

func TestRecursiveProcedure(t *testing.T) {
	// fact(n) = if n <= 1 then 1 else n * fact(n - 1)
	body := IfExpr{
		Cond: BinaryExpr{Op: OpLe, X: Var("n"), Y: IntLit(1)},
		Then: IntLit(1),
		Else: BinaryExpr{Op: OpMul, X: Var("n"), Y: Call(Var("fact"), BinaryExpr{Op: OpSub, X: Var("n"), Y: IntLit(1)})},
	}
	fact := NewProcedure("fact", []Arg{{Name: "n", Type: Int}}, Int, body)
	prog := LetProcExpr{Name: "fact", Proc: fact, Body: Call(Var("fact"), IntLit(5))}

	ty, err := CheckProgram(context.Background(), prog, Options{})
	if err != nil {
		t.Fatalf("CheckProgram: %v", err)
	}
	mustEqual(t, newTestEnv(), ty, Int)
}

func TestProcedureHidesCallerVariables(t *testing.T) {
	env := newTestEnv()
	env.DefineVar("outer", false, Int)
	p := NewProcedure("", nil, Int, Var("outer"))
	wantKind(t, CheckConst(p, env), ErrSymbolNotDefined)
}

func TestProcedureBodyMustDecayToReturnType(t *testing.T) {
	env := newTestEnv()
	p := NewProcedure("f", nil, Int, BoolLit(true))
	wantKind(t, CheckConst(p, env), ErrMismatchedTypes)

	ret := NewProcedure("g", nil, Int, Many(ReturnExpr{Value: CharLit('c')}))
	wantKind(t, CheckConst(ret, env), ErrMismatchedTypes)

	dup := NewProcedure("h", []Arg{{Name: "a", Type: Int}, {Name: "a", Type: Bool}}, None, NoneConst{})
	wantKind(t, CheckConst(dup, env), ErrDuplicateArgument)
}

func TestLetVarAnnotationMustBeEqual(t *testing.T) {
	env := newTestEnv()
	bad := LetVarExpr{Var: VarBinding{Name: "x", Type: Float, Value: IntLit(1)}, Body: Var("x")}
	wantKind(t, CheckExpr(bad, env), ErrMismatchedTypes)

	// decay is not enough: Never decays to Int but is not equal to it
	scope := env.NewProcScope()
	scope.SetExpectedReturnType(Int)
	diverge := LetVarExpr{Var: VarBinding{Name: "x", Type: Int, Value: ReturnExpr{Value: IntLit(1)}}, Body: Var("x")}
	wantKind(t, CheckExpr(diverge, scope), ErrMismatchedTypes)

	good := LetVarsExpr{
		Vars: []VarBinding{
			{Name: "a", Value: IntLit(1)},
			{Name: "b", Type: Int, Value: Var("a")},
		},
		Body: Var("b"),
	}
	if err := CheckExpr(good, env); err != nil {
		t.Fatalf("let vars: %v", err)
	}
}

func TestAssignmentRequiresMutableTarget(t *testing.T) {
	env := newTestEnv()
	assign := func(mutable bool, src Expr) Expr {
		return LetVarExpr{
			Var:  VarBinding{Name: "x", Mutable: mutable, Value: IntLit(1)},
			Body: AssignExpr{Op: OpAssign, Dst: Var("x"), Src: src},
		}
	}
	if err := CheckExpr(assign(true, IntLit(2)), env); err != nil {
		t.Fatalf("mutable assign: %v", err)
	}
	e := wantKind(t, CheckExpr(assign(false, IntLit(2)), env), ErrImmutableAssign)
	if e.Name != "x" {
		t.Fatalf("expected the variable to be named, got %q", e.Name)
	}
	wantKind(t, CheckExpr(assign(true, BoolLit(true)), env), ErrMismatchedTypes)

	env.DefineVar("p", false, Ptr(Int))
	if err := CheckExpr(AssignExpr{Op: OpAddAssign, Dst: DerefExpr{X: Var("p")}, Src: IntLit(1)}, env); err != nil {
		t.Fatalf("assign through pointer: %v", err)
	}
	wantKind(t, CheckExpr(AssignExpr{Op: OpAssign, Dst: IntLit(1), Src: IntLit(1)}, env), ErrImmutableAssign)
}

func TestOperators(t *testing.T) {
	env := newTestEnv()
	cases := []struct {
		name string
		expr Expr
		want Type
	}{
		{"add ints", BinaryExpr{Op: OpAdd, X: IntLit(1), Y: IntLit(2)}, Int},
		{"add floats", BinaryExpr{Op: OpAdd, X: FloatLit(1), Y: FloatLit(2)}, Float},
		{"compare chars", BinaryExpr{Op: OpLt, X: CharLit('a'), Y: CharLit('b')}, Bool},
		{"logical and", BinaryExpr{Op: OpAnd, X: BoolLit(true), Y: BoolLit(false)}, Bool},
		{"pointer offset", BinaryExpr{Op: OpAdd, X: NullConst{}, Y: IntLit(1)}, Ptr(Any)},
		{"shift", BinaryExpr{Op: OpShl, X: IntLit(1), Y: IntLit(3)}, Int},
		{"negate", UnaryExpr{Op: OpNegate, X: FloatLit(1)}, Float},
		{"not", UnaryExpr{Op: OpNot, X: BoolLit(true)}, Bool},
		{"select", TernaryExpr{Op: OpSelect, X: BoolLit(true), Y: IntLit(1), Z: IntLit(2)}, Int},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := CheckExpr(tc.expr, env); err != nil {
				t.Fatalf("check: %v", err)
			}
			got, err := TypeOf(tc.expr, env)
			if err != nil {
				t.Fatal(err)
			}
			mustEqual(t, env, got, tc.want)
		})
	}

	bad := []Expr{
		BinaryExpr{Op: OpAdd, X: IntLit(1), Y: FloatLit(2)},
		BinaryExpr{Op: OpAnd, X: IntLit(1), Y: BoolLit(true)},
		BinaryExpr{Op: OpRem, X: FloatLit(1), Y: FloatLit(2)},
		BinaryExpr{Op: OpEq, X: IntLit(1), Y: CharLit('a')},
		UnaryExpr{Op: OpNot, X: IntLit(1)},
		TernaryExpr{Op: OpSelect, X: IntLit(1), Y: IntLit(1), Z: IntLit(2)},
	}
	for _, expr := range bad {
		wantKind(t, CheckExpr(expr, env), ErrMismatchedTypes)
	}
}

func TestUnionAndEnumConstruction(t *testing.T) {
	env := newTestEnv()
	env.DefineType("Shape", Union(map[string]Type{"circle": Float, "square": Int}))
	env.DefineType("Color", Enum("Red", "Green"))

	if err := CheckExpr(UnionExpr{Type: Sym("Shape"), Variant: "circle", Value: FloatLit(1)}, env); err != nil {
		t.Fatalf("union: %v", err)
	}
	wantKind(t, CheckExpr(UnionExpr{Type: Sym("Shape"), Variant: "triangle", Value: IntLit(3)}, env), ErrVariantNotFound)
	wantKind(t, CheckExpr(UnionExpr{Type: Sym("Shape"), Variant: "square", Value: FloatLit(1)}, env), ErrMismatchedTypes)

	if err := CheckConst(OfConst{Type: Sym("Color"), Variant: "Red"}, env); err != nil {
		t.Fatalf("enum variant: %v", err)
	}
	wantKind(t, CheckConst(OfConst{Type: Sym("Color"), Variant: "Blue"}, env), ErrVariantNotFound)
}

func TestMemberAndIndex(t *testing.T) {
	env := newTestEnv()
	env.DefineVar("pt", false, Struct(map[string]Type{"x": Int, "y": Int}))
	env.DefineVar("xs", false, Array(Float, 4))

	if err := CheckExpr(MemberExpr{X: Var("pt"), Field: "y"}, env); err != nil {
		t.Fatalf("member: %v", err)
	}
	wantKind(t, CheckExpr(MemberExpr{X: Var("pt"), Field: "z"}, env), ErrMemberNotFound)

	idx := IndexExpr{X: Var("xs"), Index: IntLit(2)}
	if err := CheckExpr(idx, env); err != nil {
		t.Fatalf("index: %v", err)
	}
	ty, err := TypeOf(idx, env)
	if err != nil {
		t.Fatal(err)
	}
	mustEqual(t, env, ty, Float)

	wantKind(t, CheckExpr(IndexExpr{X: Var("xs"), Index: BoolLit(true)}, env), ErrInvalidIndex)
	wantKind(t, CheckExpr(IndexExpr{X: Var("pt"), Index: IntLit(0)}, env), ErrInvalidIndex)
}

func TestCastExpressions(t *testing.T) {
	env := newTestEnv()
	if err := CheckExpr(AsExpr{X: CharLit('a'), Type: Int}, env); err != nil {
		t.Fatalf("char as Int: %v", err)
	}
	e := wantKind(t, CheckExpr(AsExpr{X: TupleExpr{Elems: []Expr{IntLit(1)}}, Type: Bool}, env), ErrInvalidAs)
	mustEqual(t, env, e.Expected, Bool)
}

func TestUndefinedSymbolCarriesLocation(t *testing.T) {
	env := newTestEnv()
	span := source.Span{File: 1, Start: 10, End: 15}
	err := CheckExpr(Many(IntLit(1), At(Var("nope"), span)), env)
	wantKind(t, err, ErrSymbolNotDefined)

	var ann *AnnotatedError
	if !errors.As(err, &ann) {
		t.Fatalf("expected annotated error, got %T", err)
	}
	if ann.Span != span {
		t.Fatalf("expected span %v, got %v", span, ann.Span)
	}

	outer := source.Span{File: 1, Start: 0, End: 40}
	err = CheckExpr(At(Many(At(Var("nope"), span)), outer), env)
	if !errors.As(err, &ann) || ann.Span != span {
		t.Fatalf("innermost location should win, got %v", err)
	}
}

func TestLetTypesAreMutuallyRecursive(t *testing.T) {
	env := newTestEnv()
	prog := LetTypesExpr{
		Types: []TypeBinding{
			{Name: "Tree", Type: Struct(map[string]Type{"value": Int, "kids": Ptr(Sym("Forest"))})},
			{Name: "Forest", Type: Struct(map[string]Type{"first": Sym("Tree"), "rest": Ptr(Sym("Forest"))})},
		},
		Body: SizeOfTypeConst{Type: Sym("Forest")},
	}
	if err := CheckExpr(prog, env); err != nil {
		t.Fatalf("mutually recursive types: %v", err)
	}
	if _, ok := env.Type("Tree"); ok {
		t.Fatalf("local type leaked into the enclosing scope")
	}
}

// shadowA wraps body in `let type A = Bool`, hiding an outer A.
func shadowA(body Expr) Expr {
	return LetTypeExpr{Name: "A", Type: Bool, Body: body}
}

func TestAliasKeepsItsMeaningUnderShadowing(t *testing.T) {
	// let type A = Int in let type B = A in let type A = Bool in let x: B = <value> in x
	prog := func(value Expr) Expr {
		return LetTypeExpr{Name: "A", Type: Int, Body: LetTypeExpr{Name: "B", Type: Sym("A"),
			Body: shadowA(LetVarExpr{
				Var:  VarBinding{Name: "x", Type: Sym("B"), Value: value},
				Body: Var("x"),
			})}}
	}
	ty, err := CheckProgram(context.Background(), prog(IntLit(1)), Options{})
	if err != nil {
		t.Fatalf("B should still mean Int: %v", err)
	}
	mustEqual(t, newTestEnv(), ty, Int)

	_, err = CheckProgram(context.Background(), prog(BoolLit(true)), Options{})
	wantKind(t, err, ErrMismatchedTypes)
}

func TestSignatureKeepsItsMeaningUnderShadowing(t *testing.T) {
	// let type A = Int in
	// let proc f(a: A) -> A = a in
	// let type A = Bool in let y: Int = f(<arg>) in y
	f := NewProcedure("f", []Arg{{Name: "a", Type: Sym("A")}}, Sym("A"), Var("a"))
	prog := func(arg Expr) Expr {
		return LetTypeExpr{Name: "A", Type: Int, Body: LetProcExpr{Name: "f", Proc: f,
			Body: shadowA(LetVarExpr{
				Var:  VarBinding{Name: "y", Type: Int, Value: Call(Var("f"), arg)},
				Body: Var("y"),
			})}}
	}
	if _, err := CheckProgram(context.Background(), prog(IntLit(1)), Options{}); err != nil {
		t.Fatalf("f still returns Int: %v", err)
	}
	_, err := CheckProgram(context.Background(), prog(BoolLit(true)), Options{})
	e := wantKind(t, err, ErrMismatchedTypes)
	if len(e.ExpectedList) != 1 {
		t.Fatalf("expected an argument mismatch, got %v", err)
	}
}

func TestVariableTypeKeepsItsMeaningUnderShadowing(t *testing.T) {
	// let type A = Int in let v: A = 1 in let type A = Bool in let w: Int = v in w
	prog := LetTypeExpr{Name: "A", Type: Int, Body: LetVarExpr{
		Var: VarBinding{Name: "v", Type: Sym("A"), Value: IntLit(1)},
		Body: shadowA(LetVarExpr{
			Var:  VarBinding{Name: "w", Type: Int, Value: Var("v")},
			Body: Var("w"),
		}),
	}}
	if _, err := CheckProgram(context.Background(), prog, Options{}); err != nil {
		t.Fatalf("v is still an Int: %v", err)
	}
}

func TestArrayLengthKeepsItsConstant(t *testing.T) {
	// let const N = 2 in let type T = [Int * N] in let const N = 3 in let x: T = [1, 2] in x
	prog := LetConstExpr{Name: "N", Value: IntLit(2), Body: LetTypeExpr{
		Name: "T", Type: ArrayType{Elem: Int, Len: Var("N")},
		Body: LetConstExpr{Name: "N", Value: IntLit(3), Body: LetVarExpr{
			Var:  VarBinding{Name: "x", Type: Sym("T"), Value: ArrayExpr{Elems: []Expr{IntLit(1), IntLit(2)}}},
			Body: Var("x"),
		}},
	}}
	if _, err := CheckProgram(context.Background(), prog, Options{}); err != nil {
		t.Fatalf("T has two elements: %v", err)
	}
}

func TestMonomorphKeepsTemplateScope(t *testing.T) {
	// let type A = Int in
	// let proc pick<T>(x: T) -> A = let k: A = 1 in k in
	// let type A = Bool in let z: Int = pick<A>(<arg>) in z
	//
	// The type argument A is the caller's Bool; the A inside the template is Int.
	prog := func(arg Expr) Expr {
		pick := NewPolyProcedureIn(NewRegistry(), "pick", []string{"T"},
			[]Arg{{Name: "x", Type: Sym("T")}}, Sym("A"),
			LetVarExpr{Var: VarBinding{Name: "k", Type: Sym("A"), Value: IntLit(1)}, Body: Var("k")})
		inst := MonomorphizeConst{Template: Var("pick"), TypeArgs: []Type{Sym("A")}}
		return LetTypeExpr{Name: "A", Type: Int, Body: LetProcExpr{Name: "pick", Proc: pick,
			Body: shadowA(LetVarExpr{
				Var:  VarBinding{Name: "z", Type: Int, Value: Call(inst, arg)},
				Body: Var("z"),
			})}}
	}
	ty, err := CheckProgram(context.Background(), prog(BoolLit(true)), Options{})
	if err != nil {
		t.Fatalf("pick<Bool> returns Int: %v", err)
	}
	mustEqual(t, newTestEnv(), ty, Int)

	_, err = CheckProgram(context.Background(), prog(IntLit(1)), Options{})
	wantKind(t, err, ErrMismatchedTypes)
}
