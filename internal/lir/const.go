package lir

// ConstExpr is an expression whose value is known at compile time.
type ConstExpr interface {
	Expr
	isConst()
}

type (
	NoneConst struct{}
	// NullConst is the null pointer, of type &Any.
	NullConst  struct{}
	IntConst   struct{ Value int64 }
	FloatConst struct{ Value float64 }
	CharConst  struct{ Value rune }
	BoolConst  struct{ Value bool }

	SizeOfTypeConst struct{ Type Type }
	SizeOfExprConst struct{ X Expr }
	// TypeOfConst has the type of X and no runtime value.
	TypeOfConst struct{ X Expr }

	AsConst struct {
		X    ConstExpr
		Type Type
	}

	// SymbolConst names a variable, constant or procedure. Like SymbolType it
	// may be tied to the frame of a constant or procedure binding.
	SymbolConst struct {
		Name string
		home *Env
	}

	// OfConst selects a variant of an enum type.
	OfConst struct {
		Type    Type
		Variant string
	}

	TupleConst  struct{ Elems []ConstExpr }
	ArrayConst  struct{ Elems []ConstExpr }
	StructConst struct{ Fields map[string]ConstExpr }
	UnionConst  struct {
		Type    Type
		Variant string
		Value   ConstExpr
	}

	// MonomorphizeConst instantiates a polymorphic procedure with type arguments.
	MonomorphizeConst struct {
		Template ConstExpr
		TypeArgs []Type
	}
)

func (NoneConst) isExpr()         {}
func (NullConst) isExpr()         {}
func (IntConst) isExpr()          {}
func (FloatConst) isExpr()        {}
func (CharConst) isExpr()         {}
func (BoolConst) isExpr()         {}
func (SizeOfTypeConst) isExpr()   {}
func (SizeOfExprConst) isExpr()   {}
func (TypeOfConst) isExpr()       {}
func (AsConst) isExpr()           {}
func (SymbolConst) isExpr()       {}
func (OfConst) isExpr()           {}
func (TupleConst) isExpr()        {}
func (ArrayConst) isExpr()        {}
func (StructConst) isExpr()       {}
func (UnionConst) isExpr()        {}
func (MonomorphizeConst) isExpr() {}

func (NoneConst) isConst()         {}
func (NullConst) isConst()         {}
func (IntConst) isConst()          {}
func (FloatConst) isConst()        {}
func (CharConst) isConst()         {}
func (BoolConst) isConst()         {}
func (SizeOfTypeConst) isConst()   {}
func (SizeOfExprConst) isConst()   {}
func (TypeOfConst) isConst()       {}
func (AsConst) isConst()           {}
func (SymbolConst) isConst()       {}
func (OfConst) isConst()           {}
func (TupleConst) isConst()        {}
func (ArrayConst) isConst()        {}
func (StructConst) isConst()       {}
func (UnionConst) isConst()        {}
func (MonomorphizeConst) isConst() {}

func IntLit(v int64) IntConst       { return IntConst{Value: v} }
func BoolLit(v bool) BoolConst      { return BoolConst{Value: v} }
func CharLit(v rune) CharConst      { return CharConst{Value: v} }
func FloatLit(v float64) FloatConst { return FloatConst{Value: v} }
