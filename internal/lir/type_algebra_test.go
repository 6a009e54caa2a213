package lir

import (
	"testing"
)

func sampleTypes() []Type {
	return []Type{
		Any, Never, None, Cell, Int, Float, Bool, Char,
		Enum("Red", "Green"),
		Unit("Meters", Int),
		Array(Int, 3),
		Tuple(Int, Bool),
		Struct(map[string]Type{"x": Int, "y": Float}),
		Union(map[string]Type{"i": Int, "c": Char}),
		Proc([]Type{Int}, Bool),
		Ptr(Int),
		Ptr(Any),
		Sym("List"),
		Poly([]string{"T"}, Ptr(Sym("T"))),
	}
}

func TestDecayIsReflexiveAndAnyAbsorbing(t *testing.T) {
	env := listEnv()
	for _, ty := range sampleTypes() {
		ok, err := CanDecayTo(ty, ty, env)
		if err != nil || !ok {
			t.Errorf("%s should decay to itself (ok=%v err=%v)", ty, ok, err)
		}
		ok, err = CanDecayTo(ty, Any, env)
		if err != nil || !ok {
			t.Errorf("%s should decay to Any (ok=%v err=%v)", ty, ok, err)
		}
	}
}

func TestDecayIsDirected(t *testing.T) {
	env := newTestEnv()
	cases := []struct {
		from, to Type
		want     bool
	}{
		{Int, Float, false},
		{Float, Int, false},
		{Any, Int, false},
		{Never, Int, true},
		{Ptr(Int), Ptr(Any), true},
		{Ptr(Any), Ptr(Int), true},
		{Ptr(Int), Ptr(Bool), false},
		{Array(Int, 2), Array(Int, 3), false},
		{Tuple(Int, Never), Tuple(Int, Bool), true},
		{Unit("Meters", Int), Int, false},
	}
	for _, tc := range cases {
		got, err := CanDecayTo(tc.from, tc.to, env)
		if err != nil {
			t.Fatalf("CanDecayTo(%s, %s): %v", tc.from, tc.to, err)
		}
		if got != tc.want {
			t.Errorf("CanDecayTo(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestEqualityImpliesMutualDecay(t *testing.T) {
	env := listEnv()
	env.DefineType("Num", Int)
	pairs := [][2]Type{
		{Struct(map[string]Type{"a": Int, "b": Bool}), Struct(map[string]Type{"b": Bool, "a": Int})},
		{Sym("Num"), Int},
		{Sym("List"), Struct(map[string]Type{"head": Int, "tail": Ptr(Sym("List"))})},
		{Let("X", Char, Tuple(Sym("X"), Sym("X"))), Tuple(Char, Char)},
		{Apply(Poly([]string{"T"}, Ptr(Sym("T"))), Int), Ptr(Int)},
		{Poly([]string{"A"}, Sym("A")), Poly([]string{"B"}, Sym("B"))},
		{Enum("X", "Y"), Enum("Y", "X")},
	}
	for _, p := range pairs {
		eq, err := Equal(p[0], p[1], env)
		if err != nil {
			t.Fatalf("Equal(%s, %s): %v", p[0], p[1], err)
		}
		if !eq {
			t.Fatalf("expected %s == %s", p[0], p[1])
		}
		for _, dir := range [][2]Type{p, {p[1], p[0]}} {
			ok, err := CanDecayTo(dir[0], dir[1], env)
			if err != nil || !ok {
				t.Errorf("%s should decay to %s (ok=%v err=%v)", dir[0], dir[1], ok, err)
			}
		}
	}
}

func TestUnitsAreNominal(t *testing.T) {
	env := newTestEnv()
	eq, err := Equal(Unit("Meters", Int), Unit("Feet", Int), env)
	if err != nil {
		t.Fatal(err)
	}
	if eq {
		t.Fatalf("units with different names must differ")
	}
	eq, err = Equal(Unit("Meters", Int), Unit("Meters", Int), env)
	if err != nil || !eq {
		t.Fatalf("identical units must be equal (eq=%v err=%v)", eq, err)
	}
}

func TestDecayIsSubsetOfCast(t *testing.T) {
	env := listEnv()
	types := sampleTypes()
	for _, a := range types {
		for _, b := range types {
			decays, err := CanDecayTo(a, b, env)
			if err != nil {
				t.Fatalf("CanDecayTo(%s, %s): %v", a, b, err)
			}
			if !decays {
				continue
			}
			casts, err := CanCastTo(a, b, env)
			if err != nil {
				t.Fatalf("CanCastTo(%s, %s): %v", a, b, err)
			}
			if !casts {
				t.Errorf("%s decays to %s but does not cast", a, b)
			}
		}
	}
}

func TestCastTable(t *testing.T) {
	env := newTestEnv()
	cases := []struct {
		from, to Type
		want     bool
	}{
		{Int, Float, true},
		{Float, Int, true},
		{Char, Int, true},
		{Int, Char, true},
		{Bool, Float, false},
		{Enum("A"), Int, true},
		{Ptr(Int), Int, true},
		{Ptr(Int), Ptr(Bool), true},
		{Int, Unit("Meters", Int), true},
		{Unit("Meters", Int), Int, true},
		{Tuple(Int, Int), Bool, false},
	}
	for _, tc := range cases {
		got, err := CanCastTo(tc.from, tc.to, env)
		if err != nil {
			t.Fatalf("CanCastTo(%s, %s): %v", tc.from, tc.to, err)
		}
		if got != tc.want {
			t.Errorf("CanCastTo(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSubstituteRespectsShadowing(t *testing.T) {
	inner := Poly([]string{"T"}, Ptr(Sym("T")))
	ty := Struct(map[string]Type{"x": Sym("T"), "nested": inner})

	got := Substitute(ty, "T", Int).(StructType)
	if _, ok := got.Fields["x"].(IntType); !ok {
		t.Fatalf("free T should be replaced, got %s", got.Fields["x"])
	}
	nested, ok := got.Fields["nested"].(PolyType)
	if !ok {
		t.Fatalf("nested scheme lost: %s", got.Fields["nested"])
	}
	if nested.Params[0] != "T" || nested.Body.(PointerType).Inner != Sym("T") {
		t.Fatalf("bound T must be untouched, got %s", nested)
	}

	scheme := Poly([]string{"T"}, Struct(map[string]Type{"x": Sym("T")}))
	if got := Substitute(scheme, "T", Int); got.String() != scheme.String() {
		t.Fatalf("substituting a bound parameter changed %s into %s", scheme, got)
	}
}

func TestSubstituteAvoidsCapture(t *testing.T) {
	scheme := Poly([]string{"U"}, Tuple(Sym("T"), Sym("U")))
	got := Substitute(scheme, "T", Sym("U")).(PolyType)
	if got.Params[0] == "U" {
		t.Fatalf("binder should have been renamed, got %s", got)
	}
	body := got.Body.(TupleType)
	if body.Elems[0] != Sym("U") {
		t.Fatalf("free U should be inserted, got %s", body.Elems[0])
	}
	if body.Elems[1] != Sym(got.Params[0]) {
		t.Fatalf("bound occurrence should follow the renamed binder, got %s", body.Elems[1])
	}
}

func TestSimplifyDetectsCycles(t *testing.T) {
	env := newTestEnv()
	env.DefineType("A", Sym("B"))
	env.DefineType("B", Sym("A"))
	_, err := Simplify(Sym("A"), env)
	wantKind(t, err, ErrCyclicType)

	_, err = Simplify(Sym("Missing"), env)
	wantKind(t, err, ErrTypeNotDefined)
}

func TestSimplifyUntilConcreteKeepsRecursiveBackEdge(t *testing.T) {
	env := listEnv()
	got, err := SimplifyUntilConcrete(Sym("List"), env)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := got.(StructType)
	if !ok {
		t.Fatalf("expected struct, got %s", got)
	}
	back, ok := s.Fields["tail"].(PointerType).Inner.(SymbolType)
	if !ok || back.Name != "List" {
		t.Fatalf("recursive reference should stay symbolic, got %s", s.Fields["tail"])
	}
	// the back edge resolves even where List is not in scope
	mustEqual(t, newTestEnv(), back, got)
}

func TestApplyArityMismatch(t *testing.T) {
	env := newTestEnv()
	_, err := Simplify(Apply(Poly([]string{"A", "B"}, Sym("A")), Int), env)
	e := wantKind(t, err, ErrMismatchedTypes)
	if len(e.ExpectedList) != 2 || len(e.FoundList) != 1 {
		t.Fatalf("expected full parameter lists, got %v / %v", e.ExpectedList, e.FoundList)
	}
}

func TestCheckType(t *testing.T) {
	env := listEnv()
	if err := CheckType(Sym("List"), env); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := CheckType(Poly([]string{"T"}, Array(Sym("T"), 2)), env); err != nil {
		t.Fatalf("scheme: %v", err)
	}
	wantKind(t, CheckType(Ptr(Sym("Nope")), env), ErrTypeNotDefined)
	wantKind(t, CheckType(ArrayType{Elem: Int, Len: IntLit(-1)}, env), ErrNegativeArrayLength)
	wantKind(t, CheckType(ArrayType{Elem: Int, Len: BoolLit(true)}, env), ErrMismatchedTypes)
}
