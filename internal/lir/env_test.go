package lir

import "testing"

func TestScopesShadowWithoutLeaking(t *testing.T) {
	root := newTestEnv()
	root.DefineVar("x", false, Int)

	inner := root.NewScope()
	inner.DefineVar("x", true, Bool)
	if b, _ := inner.Var("x"); b.Type != Bool || !b.Mutable {
		t.Fatalf("inner binding should shadow, got %+v", b)
	}
	if b, _ := root.Var("x"); b.Type != Int || b.Mutable {
		t.Fatalf("outer binding changed: %+v", b)
	}
	inner.DefineType("T", Char)
	if _, ok := root.Type("T"); ok {
		t.Fatalf("type defined in a child scope leaked")
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	env := newTestEnv()
	env.DefineVar("x", false, Int)
	env.DefineType("x", Bool)
	env.DefineConst("x", CharLit('x'))
	if b, _ := env.Var("x"); b.Type != Int {
		t.Fatalf("var x = %s", b.Type)
	}
	if ty, _ := env.Type("x"); ty != Bool {
		t.Fatalf("type x = %s", ty)
	}
	if c, _ := env.Const("x"); c != CharLit('x') {
		t.Fatalf("const x = %v", c)
	}
	if _, ok := env.Proc("x"); ok {
		t.Fatalf("no procedure named x was defined")
	}
}

func TestProcScopeBoundary(t *testing.T) {
	root := newTestEnv()
	root.DefineVar("local", false, Int)
	root.DefineType("Shared", Int)
	root.SetExpectedReturnType(Bool)

	body := root.NewProcScope()
	if _, ok := body.Var("local"); ok {
		t.Fatalf("caller variables must be hidden in a procedure body")
	}
	if _, ok := body.Type("Shared"); !ok {
		t.Fatalf("types stay visible in a procedure body")
	}
	if _, ok := body.ExpectedReturnType(); ok {
		t.Fatalf("expected return type must not cross the procedure boundary")
	}
	body.SetExpectedReturnType(Int)
	nested := body.NewScope()
	if ret, ok := nested.ExpectedReturnType(); !ok || ret != Int {
		t.Fatalf("nested scopes inherit the expected return type, got %v", ret)
	}
}

func TestDefineArgs(t *testing.T) {
	env := newTestEnv()
	env.DefineVar("a", false, Float)
	scope := env.NewScope()
	if err := scope.DefineArgs([]Arg{{Name: "a", Type: Int}, {Name: "b", Mutable: true, Type: Bool}}); err != nil {
		t.Fatalf("shadowing an outer name is allowed: %v", err)
	}
	if b, _ := scope.Var("b"); !b.Mutable {
		t.Fatalf("mutability lost")
	}
	err := env.NewScope().DefineArgs([]Arg{{Name: "a", Type: Int}, {Name: "a", Type: Int}})
	e := wantKind(t, err, ErrDuplicateArgument)
	if e.Name != "a" {
		t.Fatalf("expected the duplicate to be named, got %q", e.Name)
	}
}

func TestCloseTiesSymbolsToTheirFrame(t *testing.T) {
	root := newTestEnv()
	root.DefineType("A", Int)
	closed := root.Close(Tuple(Sym("A"), Poly([]string{"A"}, Sym("A"))))

	inner := root.NewScope()
	inner.DefineType("A", Bool)
	mustEqual(t, inner, closed, Tuple(Int, Poly([]string{"B"}, Sym("B"))))

	// names the closing frame cannot see stay open
	open := root.Close(Sym("Later"))
	inner.DefineType("Later", Char)
	mustEqual(t, inner, open, Char)
}

func TestExpectedReturnTypeIsClosed(t *testing.T) {
	root := newTestEnv()
	root.DefineType("R", Int)
	body := root.NewProcScope()
	body.SetExpectedReturnType(Sym("R"))

	nested := body.NewScope()
	nested.DefineType("R", Bool)
	ret, ok := nested.ExpectedReturnType()
	if !ok {
		t.Fatalf("expected return type lost")
	}
	mustEqual(t, nested, ret, Int)
}
