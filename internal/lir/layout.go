package lir

import (
	"math"
	"strconv"

	"fortio.org/safecast"
)

// SizeOf returns the size of t in VM cells. Scalars, pointers, enums and
// procedures take one cell; None and Never take none; Any and schemes are
// unsized. A value type that contains itself other than through a pointer
// is unsized as well.
func SizeOf(t Type, env *Env) (int, error) {
	l := &layouter{env: env, index: make(map[string]int)}
	return l.size(t)
}

type layouter struct {
	env   *Env
	stack []string
	index map[string]int
}

func (l *layouter) size(t Type) (int, error) {
	head, err := Simplify(t, l.env)
	if err != nil {
		return 0, err
	}
	key := typeKey(head)
	if _, onStack := l.index[key]; onStack {
		return 0, &Error{Kind: ErrUnsized, Found: head}
	}
	if limit := l.env.Limits().MaxTypeDepth; len(l.stack) > limit {
		return 0, &Error{Kind: ErrRecursionLimit, Name: "computing the size of " + typeLabel(head), Value: int64(limit)}
	}
	l.index[key] = len(l.stack)
	l.stack = append(l.stack, key)
	defer func() {
		l.stack = l.stack[:len(l.stack)-1]
		delete(l.index, key)
	}()

	switch h := head.(type) {
	case NoneType, NeverType:
		return 0, nil
	case CellType, IntType, FloatType, BoolType, CharType, EnumType, PointerType, ProcType:
		return 1, nil
	case UnitType:
		return l.size(h.Inner)
	case ArrayType:
		n64, err := AsInt(h.Len, l.env)
		if err != nil {
			return 0, err
		}
		if n64 < 0 {
			return 0, &Error{Kind: ErrNegativeArrayLength, Value: n64}
		}
		n, err := safecast.Conv[int](n64)
		if err != nil {
			return 0, &Error{Kind: ErrUnsized, Found: head, Value: n64}
		}
		elem, err := l.size(h.Elem)
		if err != nil {
			return 0, err
		}
		if n > 0 && elem > math.MaxInt/n {
			return 0, &Error{Kind: ErrUnsized, Found: head, Value: n64}
		}
		return elem * n, nil
	case TupleType:
		return l.sum(h.Elems)
	case StructType:
		fields := make([]Type, 0, len(h.Fields))
		for _, name := range sortedKeys(h.Fields) {
			fields = append(fields, h.Fields[name])
		}
		return l.sum(fields)
	case UnionType:
		largest := 0
		for _, name := range sortedKeys(h.Fields) {
			n, err := l.size(h.Fields[name])
			if err != nil {
				return 0, err
			}
			largest = max(largest, n)
		}
		return largest, nil
	default:
		return 0, &Error{Kind: ErrUnsized, Found: head}
	}
}

func (l *layouter) sum(ts []Type) (int, error) {
	total := 0
	for _, t := range ts {
		n, err := l.size(t)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// MemberOffset resolves field against the struct, tuple or union that t
// denotes and returns the member type and its offset in cells. Pointers are
// followed (the offset is then relative to the pointee) and units are
// transparent. ctx is reported as the offending expression on failure.
func MemberOffset(t Type, field string, ctx Expr, env *Env) (Type, int, error) {
	return member(t, field, ctx, env, true)
}

// MemberType is MemberOffset without the layout computation.
func MemberType(t Type, field string, ctx Expr, env *Env) (Type, error) {
	ty, _, err := member(t, field, ctx, env, false)
	return ty, err
}

func member(t Type, field string, ctx Expr, env *Env, withOffset bool) (Type, int, error) {
	for range env.Limits().MaxTypeDepth {
		head, err := Simplify(t, env)
		if err != nil {
			return nil, 0, err
		}
		notFound := &Error{Kind: ErrMemberNotFound, Name: field, Found: head, Expr: ctx}
		switch h := head.(type) {
		case PointerType:
			t = h.Inner
			continue
		case UnitType:
			t = h.Inner
			continue
		case StructType:
			ty, ok := h.Fields[field]
			if !ok {
				return nil, 0, notFound
			}
			if !withOffset {
				return ty, 0, nil
			}
			offset := 0
			for _, name := range sortedKeys(h.Fields) {
				if name == field {
					break
				}
				n, err := SizeOf(h.Fields[name], env)
				if err != nil {
					return nil, 0, err
				}
				offset += n
			}
			return ty, offset, nil
		case TupleType:
			i, err := strconv.Atoi(field)
			if err != nil || i < 0 || i >= len(h.Elems) {
				return nil, 0, notFound
			}
			if !withOffset {
				return h.Elems[i], 0, nil
			}
			offset := 0
			for _, elem := range h.Elems[:i] {
				n, err := SizeOf(elem, env)
				if err != nil {
					return nil, 0, err
				}
				offset += n
			}
			return h.Elems[i], offset, nil
		case UnionType:
			ty, ok := h.Fields[field]
			if !ok {
				return nil, 0, notFound
			}
			return ty, 0, nil
		default:
			return nil, 0, notFound
		}
	}
	limit := env.Limits().MaxTypeDepth
	return nil, 0, &Error{Kind: ErrRecursionLimit, Name: "resolving member " + field, Value: int64(limit)}
}
