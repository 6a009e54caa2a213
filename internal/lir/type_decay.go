package lir

import (
	"github.com/hashicorp/go-set/v3"
)

// CanDecayTo reports whether a value of type from may be used where to is
// expected without a cast. Every type decays to Any, Never decays to every
// type, and equal types decay to each other. Pointers decay when either
// pointee is Any. Aggregates decay element-wise; procedures decay when their
// parameters are equal and their results decay.
func CanDecayTo(from, to Type, env *Env) (bool, error) {
	r := &relation{env: env, seen: set.New[string](8)}
	return r.decay(from, to, 0)
}

// CanCastTo reports whether `from as to` is legal. Every decay is a legal
// cast. In addition Any casts to everything, units wrap and unwrap, and the
// single-cell scalars (Int, Float, Char, Bool, Cell, enums, pointers) convert
// through Int, with Cell reinterpreting any of them.
func CanCastTo(from, to Type, env *Env) (bool, error) {
	r := &relation{env: env, seen: set.New[string](8)}
	return r.cast(from, to, 0)
}

type relation struct {
	env  *Env
	seen *set.Set[string]
}

func (r *relation) heads(a, b Type, depth int, what string) (Type, Type, error) {
	if limit := r.env.Limits().MaxTypeDepth; depth > limit {
		return nil, nil, &Error{Kind: ErrRecursionLimit, Name: what + " " + typeLabel(a) + " to " + typeLabel(b), Value: int64(limit)}
	}
	a, err := Simplify(a, r.env)
	if err != nil {
		return nil, nil, err
	}
	b, err = Simplify(b, r.env)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// assume marks (a, b) as in progress for coinductive reasoning on recursive
// types. It reports whether the pair is already in progress; otherwise the
// returned func retracts the assumption once the pair is decided.
func (r *relation) assume(tag string, a, b Type) (bool, func()) {
	key := tag + typeKey(a) + "\x00" + typeKey(b)
	if r.seen.Contains(key) {
		return true, nil
	}
	r.seen.Insert(key)
	return false, func() { r.seen.Remove(key) }
}

func (r *relation) decay(from, to Type, depth int) (bool, error) {
	a, b, err := r.heads(from, to, depth, "decaying")
	if err != nil {
		return false, err
	}
	if _, ok := b.(AnyType); ok {
		return true, nil
	}
	if _, ok := a.(NeverType); ok {
		return true, nil
	}
	same, err := Equal(a, b, r.env)
	if err != nil || same {
		return same, err
	}
	again, done := r.assume("d", a, b)
	if again {
		return true, nil
	}
	defer done()

	next := depth + 1
	switch x := a.(type) {
	case PointerType:
		y, ok := b.(PointerType)
		if !ok {
			return false, nil
		}
		pa, pb, err := r.heads(x.Inner, y.Inner, next, "decaying")
		if err != nil {
			return false, err
		}
		_, anyA := pa.(AnyType)
		_, anyB := pb.(AnyType)
		return anyA || anyB, nil
	case ArrayType:
		y, ok := b.(ArrayType)
		if !ok {
			return false, nil
		}
		same, err := sameLength(x.Len, y.Len, r.env)
		if err != nil || !same {
			return false, err
		}
		return r.decay(x.Elem, y.Elem, next)
	case TupleType:
		y, ok := b.(TupleType)
		if !ok {
			return false, nil
		}
		return r.pairwise(x.Elems, y.Elems, next, r.decay)
	case StructType:
		y, ok := b.(StructType)
		if !ok {
			return false, nil
		}
		return r.fields(x.Fields, y.Fields, next, r.decay)
	case UnionType:
		y, ok := b.(UnionType)
		if !ok {
			return false, nil
		}
		return r.fields(x.Fields, y.Fields, next, r.decay)
	case ProcType:
		y, ok := b.(ProcType)
		if !ok || len(x.Args) != len(y.Args) {
			return false, nil
		}
		for i := range x.Args {
			same, err := Equal(x.Args[i], y.Args[i], r.env)
			if err != nil || !same {
				return false, err
			}
		}
		return r.decay(x.Ret, y.Ret, next)
	}
	return false, nil
}

func (r *relation) cast(from, to Type, depth int) (bool, error) {
	ok, err := r.decay(from, to, depth)
	if err != nil || ok {
		return ok, err
	}
	a, b, err := r.heads(from, to, depth, "casting")
	if err != nil {
		return false, err
	}
	if _, ok := a.(AnyType); ok {
		return true, nil
	}
	again, done := r.assume("c", a, b)
	if again {
		return true, nil
	}
	defer done()

	next := depth + 1
	if u, ok := a.(UnitType); ok {
		return r.cast(u.Inner, b, next)
	}
	if u, ok := b.(UnitType); ok {
		return r.cast(a, u.Inner, next)
	}
	if ca, cb := castClassOf(a), castClassOf(b); ca != 0 && cb != 0 {
		return scalarCasts[ca]&cb != 0, nil
	}

	switch x := a.(type) {
	case ArrayType:
		y, ok := b.(ArrayType)
		if !ok {
			return false, nil
		}
		same, err := sameLength(x.Len, y.Len, r.env)
		if err != nil || !same {
			return false, err
		}
		return r.cast(x.Elem, y.Elem, next)
	case TupleType:
		y, ok := b.(TupleType)
		if !ok {
			return false, nil
		}
		return r.pairwise(x.Elems, y.Elems, next, r.cast)
	case StructType:
		y, ok := b.(StructType)
		if !ok {
			return false, nil
		}
		return r.fields(x.Fields, y.Fields, next, r.cast)
	}
	return false, nil
}

type relFunc func(a, b Type, depth int) (bool, error)

func (r *relation) pairwise(xs, ys []Type, depth int, rel relFunc) (bool, error) {
	if len(xs) != len(ys) {
		return false, nil
	}
	for i := range xs {
		ok, err := rel(xs[i], ys[i], depth)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r *relation) fields(xs, ys map[string]Type, depth int, rel relFunc) (bool, error) {
	if !sameKeys(xs, ys) {
		return false, nil
	}
	for _, name := range sortedKeys(xs) {
		ok, err := rel(xs[name], ys[name], depth)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// castClass groups the single-cell types for the scalar cast table.
type castClass uint8

const (
	castInt castClass = 1 << iota
	castFloat
	castChar
	castBool
	castCell
	castEnum
	castPointer
)

const castAllScalars = castInt | castFloat | castChar | castBool | castCell | castEnum | castPointer

var scalarCasts = map[castClass]castClass{
	castInt:     castAllScalars,
	castFloat:   castInt | castFloat | castCell,
	castChar:    castInt | castChar | castCell,
	castBool:    castInt | castBool | castCell,
	castCell:    castAllScalars,
	castEnum:    castInt | castCell,
	castPointer: castInt | castCell | castPointer,
}

func castClassOf(t Type) castClass {
	switch t.(type) {
	case IntType:
		return castInt
	case FloatType:
		return castFloat
	case CharType:
		return castChar
	case BoolType:
		return castBool
	case CellType:
		return castCell
	case EnumType:
		return castEnum
	case PointerType:
		return castPointer
	}
	return 0
}
