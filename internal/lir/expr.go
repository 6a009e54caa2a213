package lir

import "lirc/internal/source"

// Expr is a node of the LIR expression tree. Every ConstExpr is also an Expr.
type Expr interface {
	isExpr()
}

type (
	UnaryExpr struct {
		Op UnaryOp
		X  Expr
	}

	BinaryExpr struct {
		Op   BinaryOp
		X, Y Expr
	}

	TernaryExpr struct {
		Op      TernaryOp
		X, Y, Z Expr
	}

	AssignExpr struct {
		Op  AssignOp
		Dst Expr
		Src Expr
	}

	// ManyExpr evaluates Exprs in order and yields the last value.
	ManyExpr struct {
		Exprs []Expr
	}

	LetConstExpr struct {
		Name  string
		Value ConstExpr
		Body  Expr
	}

	LetConstsExpr struct {
		Consts []ConstBinding
		Body   Expr
	}

	LetProcExpr struct {
		Name string
		Proc ConstExpr
		Body Expr
	}

	LetProcsExpr struct {
		Procs []ProcBinding
		Body  Expr
	}

	LetTypeExpr struct {
		Name string
		Type Type
		Body Expr
	}

	LetTypesExpr struct {
		Types []TypeBinding
		Body  Expr
	}

	// LetVarExpr declares a variable. A nil Type means the type is inferred.
	LetVarExpr struct {
		Var  VarBinding
		Body Expr
	}

	LetVarsExpr struct {
		Vars []VarBinding
		Body Expr
	}

	WhileExpr struct {
		Cond Expr
		Body Expr
	}

	IfExpr struct {
		Cond Expr
		Then Expr
		Else Expr
	}

	// WhenExpr is resolved at compile time; only the selected branch is emitted.
	WhenExpr struct {
		Cond ConstExpr
		Then Expr
		Else Expr
	}

	// ReferExpr takes the address of X.
	ReferExpr struct {
		X Expr
	}

	DerefExpr struct {
		X Expr
	}

	// DerefMutExpr stores Value through Ptr.
	DerefMutExpr struct {
		Ptr   Expr
		Value Expr
	}

	ApplyExpr struct {
		Func Expr
		Args []Expr
	}

	ReturnExpr struct {
		Value Expr
	}

	ArrayExpr struct {
		Elems []Expr
	}

	TupleExpr struct {
		Elems []Expr
	}

	StructExpr struct {
		Fields map[string]Expr
	}

	UnionExpr struct {
		Type    Type
		Variant string
		Value   Expr
	}

	AsExpr struct {
		X    Expr
		Type Type
	}

	// MemberExpr selects a struct or union field, or a tuple element by index.
	MemberExpr struct {
		X     Expr
		Field string
	}

	IndexExpr struct {
		X     Expr
		Index Expr
	}

	// AnnotatedExpr records where X came from in the source text.
	AnnotatedExpr struct {
		X    Expr
		Span source.Span
	}
)

type ConstBinding struct {
	Name  string
	Value ConstExpr
}

type ProcBinding struct {
	Name string
	Proc ConstExpr
}

type TypeBinding struct {
	Name string
	Type Type
}

type VarBinding struct {
	Name    string
	Mutable bool
	Type    Type
	Value   Expr
}

func (UnaryExpr) isExpr()     {}
func (BinaryExpr) isExpr()    {}
func (TernaryExpr) isExpr()   {}
func (AssignExpr) isExpr()    {}
func (ManyExpr) isExpr()      {}
func (LetConstExpr) isExpr()  {}
func (LetConstsExpr) isExpr() {}
func (LetProcExpr) isExpr()   {}
func (LetProcsExpr) isExpr()  {}
func (LetTypeExpr) isExpr()   {}
func (LetTypesExpr) isExpr()  {}
func (LetVarExpr) isExpr()    {}
func (LetVarsExpr) isExpr()   {}
func (WhileExpr) isExpr()     {}
func (IfExpr) isExpr()        {}
func (WhenExpr) isExpr()      {}
func (ReferExpr) isExpr()     {}
func (DerefExpr) isExpr()     {}
func (DerefMutExpr) isExpr()  {}
func (ApplyExpr) isExpr()     {}
func (ReturnExpr) isExpr()    {}
func (ArrayExpr) isExpr()     {}
func (TupleExpr) isExpr()     {}
func (StructExpr) isExpr()    {}
func (UnionExpr) isExpr()     {}
func (AsExpr) isExpr()        {}
func (MemberExpr) isExpr()    {}
func (IndexExpr) isExpr()     {}
func (AnnotatedExpr) isExpr() {}

// Var is shorthand for a reference to a variable, constant or procedure.
func Var(name string) SymbolConst { return SymbolConst{Name: name} }

// Many sequences exprs.
func Many(exprs ...Expr) ManyExpr { return ManyExpr{Exprs: exprs} }

// Call applies f to args.
func Call(f Expr, args ...Expr) ApplyExpr { return ApplyExpr{Func: f, Args: args} }

// At annotates x with a span.
func At(x Expr, span source.Span) AnnotatedExpr { return AnnotatedExpr{X: x, Span: span} }
