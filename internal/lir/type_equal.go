package lir

import (
	"github.com/hashicorp/go-set/v3"
)

// Equal reports structural equality of a and b after simplification. Units
// compare nominally, struct and union fields compare by name regardless of
// order, and recursive types are compared coinductively.
func Equal(a, b Type, env *Env) (bool, error) {
	q := &equality{env: env, seen: set.New[string](8), opaque: make(map[string]int)}
	return q.eq(a, b, 0)
}

type equality struct {
	env    *Env
	seen   *set.Set[string]
	opaque map[string]int
}

func (q *equality) isOpaque(name string) bool { return q.opaque[name] > 0 }

func (q *equality) eq(a, b Type, depth int) (bool, error) {
	if limit := q.env.Limits().MaxTypeDepth; depth > limit {
		return false, &Error{Kind: ErrRecursionLimit, Name: "comparing " + typeLabel(a) + " and " + typeLabel(b), Value: int64(limit)}
	}
	a, _, err := headReduce(a, q.env, q.isOpaque)
	if err != nil {
		return false, err
	}
	b, _, err = headReduce(b, q.env, q.isOpaque)
	if err != nil {
		return false, err
	}
	key := typeKey(a) + "\x00" + typeKey(b)
	if q.seen.Contains(key) {
		return true, nil
	}
	q.seen.Insert(key)
	defer q.seen.Remove(key)

	next := depth + 1
	switch x := a.(type) {
	case AnyType, NeverType, NoneType, CellType, IntType, FloatType, BoolType, CharType:
		return a == b, nil
	case EnumType:
		y, ok := b.(EnumType)
		return ok && sameVariants(x, y), nil
	case UnitType:
		y, ok := b.(UnitType)
		if !ok || x.Name != y.Name {
			return false, nil
		}
		return q.eq(x.Inner, y.Inner, next)
	case SymbolType:
		y, ok := b.(SymbolType)
		return ok && x.Name == y.Name && x.home == y.home, nil
	case ArrayType:
		y, ok := b.(ArrayType)
		if !ok {
			return false, nil
		}
		same, err := sameLength(x.Len, y.Len, q.env)
		if err != nil || !same {
			return false, err
		}
		return q.eq(x.Elem, y.Elem, next)
	case TupleType:
		y, ok := b.(TupleType)
		if !ok {
			return false, nil
		}
		return q.pairwise(x.Elems, y.Elems, next)
	case StructType:
		y, ok := b.(StructType)
		if !ok {
			return false, nil
		}
		return q.fields(x.Fields, y.Fields, next)
	case UnionType:
		y, ok := b.(UnionType)
		if !ok {
			return false, nil
		}
		return q.fields(x.Fields, y.Fields, next)
	case ProcType:
		y, ok := b.(ProcType)
		if !ok {
			return false, nil
		}
		same, err := q.pairwise(x.Args, y.Args, next)
		if err != nil || !same {
			return false, err
		}
		return q.eq(x.Ret, y.Ret, next)
	case PointerType:
		y, ok := b.(PointerType)
		if !ok {
			return false, nil
		}
		return q.eq(x.Inner, y.Inner, next)
	case PolyType:
		y, ok := b.(PolyType)
		if !ok || len(x.Params) != len(y.Params) {
			return false, nil
		}
		// compare up to renaming of the parameters
		mx := make(map[string]Type, len(x.Params))
		my := make(map[string]Type, len(y.Params))
		fresh := make([]string, len(x.Params))
		for i := range x.Params {
			fresh[i] = freshName("P")
			mx[x.Params[i]] = Sym(fresh[i])
			my[y.Params[i]] = Sym(fresh[i])
			q.opaque[fresh[i]]++
		}
		defer func() {
			for _, f := range fresh {
				delete(q.opaque, f)
			}
		}()
		return q.eq(SubstituteAll(x.Body, mx), SubstituteAll(y.Body, my), next)
	default:
		return false, nil
	}
}

func (q *equality) pairwise(xs, ys []Type, depth int) (bool, error) {
	if len(xs) != len(ys) {
		return false, nil
	}
	for i := range xs {
		same, err := q.eq(xs[i], ys[i], depth)
		if err != nil || !same {
			return false, err
		}
	}
	return true, nil
}

func (q *equality) fields(xs, ys map[string]Type, depth int) (bool, error) {
	if !sameKeys(xs, ys) {
		return false, nil
	}
	for _, name := range sortedKeys(xs) {
		same, err := q.eq(xs[name], ys[name], depth)
		if err != nil || !same {
			return false, err
		}
	}
	return true, nil
}

func sameVariants(a, b EnumType) bool {
	an, bn := a.Names(), b.Names()
	if len(an) != len(bn) {
		return false
	}
	for i := range an {
		if an[i] != bn[i] {
			return false
		}
	}
	return true
}

// sameLength compares two array lengths by value, falling back to their
// printed form when they cannot be evaluated (for example under a Poly).
func sameLength(a, b ConstExpr, env *Env) (bool, error) {
	n, errA := AsInt(a, env)
	m, errB := AsInt(b, env)
	if errA == nil && errB == nil {
		return n == m, nil
	}
	return FormatExpr(a) == FormatExpr(b), nil
}
