package lir

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// Simplify reduces the head of t until it is no longer a Symbol, Let or
// Apply node. Children are left untouched.
//
// A symbol resolves in the frame it is tied to, or in env when it is not tied
// to one, and the bound type is closed over the declaring frame before it is
// reduced further.
//
// Termination: every intermediate head is remembered by its label; meeting
// one again means the definition makes no structural progress and fails with
// ErrCyclicType. The number of steps is also capped by Limits.MaxSimplifySteps.
func Simplify(t Type, env *Env) (Type, error) {
	head, _, err := headReduce(t, env, nil)
	return head, err
}

// headReduce is Simplify that also returns the labels of the Symbol and Let
// nodes it expanded. Symbols for which opaque returns true are left alone.
func headReduce(t Type, env *Env, opaque func(string) bool) (Type, []string, error) {
	limit := env.Limits().MaxSimplifySteps
	var (
		seen  *set.Set[string]
		trail []string
	)
	for step := 0; ; step++ {
		switch x := t.(type) {
		case nil:
			return nil, trail, mismatch(Any, nil, nil)
		case SymbolType:
			if x.home == nil && opaque != nil && opaque(x.Name) {
				return t, trail, nil
			}
		case LetType, ApplyType:
		default:
			return t, trail, nil
		}
		if step >= limit {
			return nil, trail, &Error{Kind: ErrRecursionLimit, Name: "simplifying " + t.String(), Value: int64(limit)}
		}
		key, err := headKey(t, env)
		if err != nil {
			return nil, trail, err
		}
		if seen == nil {
			seen = set.New[string](4)
		}
		if seen.Contains(key) {
			return nil, trail, &Error{Kind: ErrCyclicType, Found: t}
		}
		seen.Insert(key)

		switch x := t.(type) {
		case SymbolType:
			bound, home, _ := x.scope(env).typeBinding(x.Name)
			trail = append(trail, key)
			t = home.Close(bound)
		case LetType:
			trail = append(trail, key)
			t = Substitute(x.Body, x.Name, LetType{Name: x.Name, Bound: x.Bound, Body: x.Bound})
		case ApplyType:
			next, err := instantiate(x, env, opaque)
			if err != nil {
				return nil, trail, err
			}
			t = next
		}
	}
}

// headKey labels a head being reduced. A symbol is labelled by the binding it
// resolves to, so the same name declared in two frames gets two labels.
func headKey(t Type, env *Env) (string, error) {
	x, ok := t.(SymbolType)
	if !ok {
		return typeKey(t), nil
	}
	_, home, found := x.scope(env).typeBinding(x.Name)
	if !found {
		return "", &Error{Kind: ErrTypeNotDefined, Name: x.Name}
	}
	return bindingKey(x.Name, home), nil
}

func bindingKey(name string, home *Env) string {
	return fmt.Sprintf("%s@%d", name, home.id)
}

// typeKey is the label of t extended with the frames of its tied symbols.
func typeKey(t Type) string {
	var b strings.Builder
	b.WriteString(typeLabel(t))
	eachTied(t, func(x SymbolType) {
		b.WriteString("|" + bindingKey(x.Name, x.home))
	})
	return b.String()
}

// eachTied calls fn for every symbol in t that is tied to a frame.
func eachTied(t Type, fn func(SymbolType)) {
	switch x := t.(type) {
	case SymbolType:
		if x.home != nil {
			fn(x)
		}
	case UnitType:
		eachTied(x.Inner, fn)
	case LetType:
		eachTied(x.Bound, fn)
		eachTied(x.Body, fn)
	case ArrayType:
		eachTied(x.Elem, fn)
	case TupleType:
		for _, e := range x.Elems {
			eachTied(e, fn)
		}
	case StructType:
		for _, name := range sortedKeys(x.Fields) {
			eachTied(x.Fields[name], fn)
		}
	case UnionType:
		for _, name := range sortedKeys(x.Fields) {
			eachTied(x.Fields[name], fn)
		}
	case ProcType:
		for _, a := range x.Args {
			eachTied(a, fn)
		}
		eachTied(x.Ret, fn)
	case PointerType:
		eachTied(x.Inner, fn)
	case PolyType:
		eachTied(x.Body, fn)
	case ApplyType:
		eachTied(x.Poly, fn)
		for _, a := range x.Args {
			eachTied(a, fn)
		}
	}
}

// instantiate performs one Apply step: the head must reduce to a Poly of
// matching arity, whose body is returned with the parameters replaced.
func instantiate(app ApplyType, env *Env, opaque func(string) bool) (Type, error) {
	head, _, err := headReduce(app.Poly, env, opaque)
	if err != nil {
		return nil, err
	}
	poly, ok := head.(PolyType)
	if !ok {
		return nil, mismatch(Poly(nil, Any), head, nil)
	}
	if len(poly.Params) != len(app.Args) {
		params := make([]Type, len(poly.Params))
		for i, p := range poly.Params {
			params[i] = Sym(p)
		}
		return nil, &Error{Kind: ErrMismatchedTypes, ExpectedList: params, FoundList: app.Args}
	}
	m := make(map[string]Type, len(poly.Params))
	for i, p := range poly.Params {
		m[p] = app.Args[i]
	}
	return SubstituteAll(poly.Body, m), nil
}

// SimplifyUntilConcrete simplifies t and all of its children. Recursive types
// keep the Symbol or Let node that closes the cycle, type parameters of an
// enclosing Poly stay symbolic, and array lengths are evaluated to IntConst.
func SimplifyUntilConcrete(t Type, env *Env) (Type, error) {
	c := &concretizer{
		env:   env,
		limit: env.Limits().MaxTypeDepth,
		path:  make(map[string]int),
		bound: make(map[string]int),
	}
	return c.concrete(t, 0)
}

type concretizer struct {
	env   *Env
	limit int
	path  map[string]int // keys of Symbol/Let nodes being expanded
	bound map[string]int // Poly parameters in scope
}

func (c *concretizer) isBound(name string) bool { return c.bound[name] > 0 }

func (c *concretizer) concrete(t Type, depth int) (Type, error) {
	if depth > c.limit {
		return nil, &Error{Kind: ErrRecursionLimit, Name: "simplifying " + typeLabel(t), Value: int64(c.limit)}
	}
	switch x := t.(type) {
	case SymbolType:
		if x.home == nil && c.isBound(x.Name) {
			return t, nil
		}
		if key, err := headKey(x, c.env); err == nil && c.path[key] > 0 {
			return t, nil
		}
	case LetType:
		if c.path[typeKey(x)] > 0 {
			return t, nil
		}
	}

	head, trail, err := headReduce(t, c.env, c.isBound)
	if err != nil {
		return nil, err
	}
	for _, k := range trail {
		c.path[k]++
	}
	defer func() {
		for _, k := range trail {
			c.path[k]--
		}
	}()

	next := depth + 1
	switch h := head.(type) {
	case UnitType:
		inner, err := c.concrete(h.Inner, next)
		if err != nil {
			return nil, err
		}
		return UnitType{Name: h.Name, Inner: inner}, nil
	case ArrayType:
		elem, err := c.concrete(h.Elem, next)
		if err != nil {
			return nil, err
		}
		n, err := AsInt(h.Len, c.env)
		if err != nil {
			if len(c.bound) > 0 {
				return ArrayType{Elem: elem, Len: h.Len}, nil
			}
			return nil, err
		}
		if n < 0 {
			return nil, &Error{Kind: ErrNegativeArrayLength, Value: n}
		}
		return ArrayType{Elem: elem, Len: IntConst{Value: n}}, nil
	case TupleType:
		elems, err := c.list(h.Elems, next)
		if err != nil {
			return nil, err
		}
		return TupleType{Elems: elems}, nil
	case StructType:
		fields, err := c.fields(h.Fields, next)
		if err != nil {
			return nil, err
		}
		return StructType{Fields: fields}, nil
	case UnionType:
		fields, err := c.fields(h.Fields, next)
		if err != nil {
			return nil, err
		}
		return UnionType{Fields: fields}, nil
	case ProcType:
		args, err := c.list(h.Args, next)
		if err != nil {
			return nil, err
		}
		ret, err := c.concrete(h.Ret, next)
		if err != nil {
			return nil, err
		}
		return ProcType{Args: args, Ret: ret}, nil
	case PointerType:
		inner, err := c.concrete(h.Inner, next)
		if err != nil {
			return nil, err
		}
		return PointerType{Inner: inner}, nil
	case PolyType:
		for _, p := range h.Params {
			c.bound[p]++
		}
		body, err := c.concrete(h.Body, next)
		for _, p := range h.Params {
			c.bound[p]--
			if c.bound[p] == 0 {
				delete(c.bound, p)
			}
		}
		if err != nil {
			return nil, err
		}
		return PolyType{Params: h.Params, Body: body}, nil
	default:
		return head, nil
	}
}

func (c *concretizer) list(ts []Type, depth int) ([]Type, error) {
	out := make([]Type, len(ts))
	for i, t := range ts {
		r, err := c.concrete(t, depth)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (c *concretizer) fields(fs map[string]Type, depth int) (map[string]Type, error) {
	out := make(map[string]Type, len(fs))
	for _, name := range sortedKeys(fs) {
		r, err := c.concrete(fs[name], depth)
		if err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, nil
}
