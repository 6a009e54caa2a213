package lir

import (
	"fmt"
	"sync/atomic"
)

// Arg is a procedure parameter.
type Arg struct {
	Name    string
	Mutable bool
	Type    Type
}

// Procedure is a monomorphic procedure. Identity matters: the checker
// remembers procedures by pointer, and the monomorph cache hands out the
// same *Procedure for every request of one instantiation.
type Procedure struct {
	Name string
	Args []Arg
	Ret  Type
	Body Expr
}

var anonProcs atomic.Uint64

// NewProcedure builds a procedure. An empty name is replaced by a unique
// anonymous one.
func NewProcedure(name string, args []Arg, ret Type, body Expr) *Procedure {
	if name == "" {
		name = fmt.Sprintf("__ANON_PROC_%d", anonProcs.Add(1))
	}
	return &Procedure{Name: name, Args: args, Ret: ret, Body: body}
}

// Type returns the procedure's signature.
func (p *Procedure) Type() ProcType { return Proc(argTypes(p.Args), p.Ret) }

func argTypes(args []Arg) []Type {
	out := make([]Type, len(args))
	for i, a := range args {
		out[i] = a.Type
	}
	return out
}

// CoreBuiltin is a procedure implemented by inline core-variant assembly.
// Asm is opaque to the checker.
type CoreBuiltin struct {
	Name string
	Args []Arg
	Ret  Type
	Asm  []string
}

func (b *CoreBuiltin) Type() ProcType { return Proc(argTypes(b.Args), b.Ret) }

// StandardBuiltin is a procedure implemented by standard-variant assembly.
type StandardBuiltin struct {
	Name string
	Args []Arg
	Ret  Type
	Asm  []string
}

func (b *StandardBuiltin) Type() ProcType { return Proc(argTypes(b.Args), b.Ret) }

func (*Procedure) isExpr()       {}
func (*PolyProcedure) isExpr()   {}
func (*CoreBuiltin) isExpr()     {}
func (*StandardBuiltin) isExpr() {}

func (*Procedure) isConst()       {}
func (*PolyProcedure) isConst()   {}
func (*CoreBuiltin) isConst()     {}
func (*StandardBuiltin) isConst() {}
