package lir

import (
	"fmt"
	"maps"
	"sync/atomic"

	"github.com/hashicorp/go-set/v3"
)

var freshCounter atomic.Uint64

// freshName derives a binder name that cannot clash with user names.
func freshName(base string) string {
	return fmt.Sprintf("%s#%d", base, freshCounter.Add(1))
}

// FreeSymbols returns the symbol names in t that no enclosing Poly or Let binds
// and that are not already tied to a declaring frame.
// Symbols inside array-length constants are included without regard to binders.
func FreeSymbols(t Type) *set.Set[string] {
	out := set.New[string](4)
	collectFree(t, nil, out)
	return out
}

func collectFree(t Type, bound []string, out *set.Set[string]) {
	isBound := func(name string) bool {
		for i := len(bound) - 1; i >= 0; i-- {
			if bound[i] == name {
				return true
			}
		}
		return false
	}
	switch x := t.(type) {
	case SymbolType:
		if x.home == nil && !isBound(x.Name) {
			out.Insert(x.Name)
		}
	case UnitType:
		collectFree(x.Inner, bound, out)
	case LetType:
		inner := append(bound[:len(bound):len(bound)], x.Name)
		collectFree(x.Bound, inner, out)
		collectFree(x.Body, inner, out)
	case ArrayType:
		collectFree(x.Elem, bound, out)
		collectExprSymbols(x.Len, out)
	case TupleType:
		for _, e := range x.Elems {
			collectFree(e, bound, out)
		}
	case StructType:
		for _, f := range x.Fields {
			collectFree(f, bound, out)
		}
	case UnionType:
		for _, f := range x.Fields {
			collectFree(f, bound, out)
		}
	case ProcType:
		for _, a := range x.Args {
			collectFree(a, bound, out)
		}
		collectFree(x.Ret, bound, out)
	case PointerType:
		collectFree(x.Inner, bound, out)
	case PolyType:
		inner := append(bound[:len(bound):len(bound)], x.Params...)
		collectFree(x.Body, inner, out)
	case ApplyType:
		collectFree(x.Poly, bound, out)
		for _, a := range x.Args {
			collectFree(a, bound, out)
		}
	}
}

// collectExprSymbols over-approximates the free type symbols of an expression.
func collectExprSymbols(e Expr, out *set.Set[string]) {
	Walk(e, func(n Expr) bool {
		children(n, nil, func(t Type) { collectFree(t, nil, out) })
		return true
	})
}

// Substitute replaces the free type symbol name with ty inside t.
func Substitute(t Type, name string, ty Type) Type {
	return SubstituteAll(t, map[string]Type{name: ty})
}

// SubstituteAll replaces every free symbol in m simultaneously. Binders that
// shadow a name stop its substitution; binders that would capture a free
// symbol of a replacement are renamed first.
func SubstituteAll(t Type, m map[string]Type) Type {
	if len(m) == 0 || t == nil {
		return t
	}
	s := newSubstituter(m)
	return s.typ(t)
}

type substituter struct {
	m    map[string]Type
	free *set.Set[string] // free symbols of the replacement types
	hits *int

	// sym rewrites constant symbols; nil leaves them alone.
	sym func(SymbolConst) ConstExpr
}

func newSubstituter(m map[string]Type) substituter {
	free := set.New[string](len(m))
	for _, ty := range m {
		collectFree(ty, nil, free)
	}
	return substituter{m: m, free: free, hits: new(int)}
}

// bind returns the substituter to use under binders together with the
// possibly renamed binder names.
func (s substituter) bind(binders []string) (substituter, []string) {
	var inner map[string]Type
	names := binders
	for i, b := range binders {
		_, shadowed := s.m[b]
		captures := s.free.Contains(b)
		if !shadowed && !captures {
			continue
		}
		if inner == nil {
			inner = maps.Clone(s.m)
			names = append([]string(nil), binders...)
		}
		delete(inner, b)
		if captures {
			fresh := freshName(b)
			names[i] = fresh
			inner[b] = SymbolType{Name: fresh}
		}
	}
	if inner == nil {
		return s, names
	}
	return substituter{m: inner, free: s.free, hits: s.hits, sym: s.sym}, names
}

func (s substituter) empty() bool { return len(s.m) == 0 && s.sym == nil }

func (s substituter) typ(t Type) Type {
	if s.empty() {
		return t
	}
	switch x := t.(type) {
	case nil:
		return nil
	case SymbolType:
		if x.home != nil {
			return x
		}
		if r, ok := s.m[x.Name]; ok {
			*s.hits++
			return r
		}
		return x
	case UnitType:
		return UnitType{Name: x.Name, Inner: s.typ(x.Inner)}
	case LetType:
		inner, names := s.bind([]string{x.Name})
		return LetType{Name: names[0], Bound: inner.typ(x.Bound), Body: inner.typ(x.Body)}
	case ArrayType:
		return ArrayType{Elem: s.typ(x.Elem), Len: s.constExpr(x.Len)}
	case TupleType:
		return TupleType{Elems: s.types(x.Elems)}
	case StructType:
		return StructType{Fields: s.fields(x.Fields)}
	case UnionType:
		return UnionType{Fields: s.fields(x.Fields)}
	case ProcType:
		return ProcType{Args: s.types(x.Args), Ret: s.typ(x.Ret)}
	case PointerType:
		return PointerType{Inner: s.typ(x.Inner)}
	case PolyType:
		inner, names := s.bind(x.Params)
		return PolyType{Params: names, Body: inner.typ(x.Body)}
	case ApplyType:
		return ApplyType{Poly: s.typ(x.Poly), Args: s.types(x.Args)}
	default:
		return t
	}
}

func (s substituter) types(ts []Type) []Type {
	if ts == nil {
		return nil
	}
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = s.typ(t)
	}
	return out
}

func (s substituter) fields(fs map[string]Type) map[string]Type {
	out := make(map[string]Type, len(fs))
	for k, t := range fs {
		out[k] = s.typ(t)
	}
	return out
}
