package lirio

import (
	"fmt"
	"slices"

	"lirc/internal/lir"
)

type encoder struct{}

func (enc *encoder) typ(t lir.Type) (*Node, error) {
	if t == nil {
		return nil, nil
	}
	switch x := t.(type) {
	case lir.AnyType:
		return &Node{K: KAnyT}, nil
	case lir.NeverType:
		return &Node{K: KNeverT}, nil
	case lir.NoneType:
		return &Node{K: KNoneT}, nil
	case lir.CellType:
		return &Node{K: KCellT}, nil
	case lir.IntType:
		return &Node{K: KIntT}, nil
	case lir.FloatType:
		return &Node{K: KFloatT}, nil
	case lir.BoolType:
		return &Node{K: KBoolT}, nil
	case lir.CharType:
		return &Node{K: KCharT}, nil
	case lir.EnumType:
		return &Node{K: KEnumT, Names: x.Names()}, nil
	case lir.UnitType:
		inner, err := enc.typ(x.Inner)
		if err != nil {
			return nil, err
		}
		return &Node{K: KUnitT, Name: x.Name, Kids: []*Node{inner}}, nil
	case lir.SymbolType:
		return &Node{K: KSymbolT, Name: x.Name}, nil
	case lir.LetType:
		kids, err := enc.types(x.Bound, x.Body)
		if err != nil {
			return nil, err
		}
		return &Node{K: KLetT, Name: x.Name, Kids: kids}, nil
	case lir.ArrayType:
		elem, err := enc.typ(x.Elem)
		if err != nil {
			return nil, err
		}
		n, err := enc.expr(x.Len)
		if err != nil {
			return nil, err
		}
		return &Node{K: KArrayT, Kids: []*Node{elem, n}}, nil
	case lir.TupleType:
		kids, err := enc.types(x.Elems...)
		if err != nil {
			return nil, err
		}
		return &Node{K: KTupleT, Kids: kids}, nil
	case lir.StructType:
		names, kids, err := encodeFields(x.Fields, enc.typ)
		if err != nil {
			return nil, err
		}
		return &Node{K: KStructT, Names: names, Kids: kids}, nil
	case lir.UnionType:
		names, kids, err := encodeFields(x.Fields, enc.typ)
		if err != nil {
			return nil, err
		}
		return &Node{K: KUnionT, Names: names, Kids: kids}, nil
	case lir.ProcType:
		kids, err := enc.types(append([]lir.Type{x.Ret}, x.Args...)...)
		if err != nil {
			return nil, err
		}
		return &Node{K: KProcT, Kids: kids}, nil
	case lir.PointerType:
		inner, err := enc.typ(x.Inner)
		if err != nil {
			return nil, err
		}
		return &Node{K: KPointerT, Kids: []*Node{inner}}, nil
	case lir.PolyType:
		body, err := enc.typ(x.Body)
		if err != nil {
			return nil, err
		}
		return &Node{K: KPolyT, Names: slices.Clone(x.Params), Kids: []*Node{body}}, nil
	case lir.ApplyType:
		kids, err := enc.types(append([]lir.Type{x.Poly}, x.Args...)...)
		if err != nil {
			return nil, err
		}
		return &Node{K: KApplyT, Kids: kids}, nil
	}
	return nil, fmt.Errorf("lirio: cannot encode type %T", t)
}

func (enc *encoder) types(ts ...lir.Type) ([]*Node, error) {
	out := make([]*Node, len(ts))
	for i, t := range ts {
		n, err := enc.typ(t)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (enc *encoder) exprs(es ...lir.Expr) ([]*Node, error) {
	out := make([]*Node, len(es))
	for i, e := range es {
		n, err := enc.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (enc *encoder) consts(cs []lir.ConstExpr) ([]*Node, error) {
	out := make([]*Node, len(cs))
	for i, c := range cs {
		n, err := enc.expr(c)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func encodeFields[V any](fields map[string]V, fn func(V) (*Node, error)) ([]string, []*Node, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	slices.Sort(names)
	kids := make([]*Node, len(names))
	for i, name := range names {
		n, err := fn(fields[name])
		if err != nil {
			return nil, nil, err
		}
		kids[i] = n
	}
	return names, kids, nil
}

func (enc *encoder) args(as []lir.Arg) ([]*Node, error) {
	out := make([]*Node, len(as))
	for i, a := range as {
		t, err := enc.typ(a.Type)
		if err != nil {
			return nil, err
		}
		out[i] = &Node{K: KArg, Name: a.Name, Flag: a.Mutable, Kids: []*Node{t}}
	}
	return out, nil
}

// signature encodes [ret, body, args...] for procedure-like constants.
func (enc *encoder) signature(k Kind, name string, args []lir.Arg, ret lir.Type, body lir.Expr) (*Node, error) {
	r, err := enc.typ(ret)
	if err != nil {
		return nil, err
	}
	b, err := enc.expr(body)
	if err != nil {
		return nil, err
	}
	as, err := enc.args(args)
	if err != nil {
		return nil, err
	}
	return &Node{K: k, Name: name, Kids: append([]*Node{r, b}, as...)}, nil
}

func (enc *encoder) bind(name string, mutable bool, t lir.Type, v lir.Expr) (*Node, error) {
	tn, err := enc.typ(t)
	if err != nil {
		return nil, err
	}
	vn, err := enc.expr(v)
	if err != nil {
		return nil, err
	}
	return &Node{K: KBind, Name: name, Flag: mutable, Kids: []*Node{tn, vn}}, nil
}

// withBody appends the encoded body after the binding nodes.
func (enc *encoder) withBody(k Kind, binds []*Node, body lir.Expr) (*Node, error) {
	b, err := enc.expr(body)
	if err != nil {
		return nil, err
	}
	return &Node{K: k, Kids: append([]*Node{b}, binds...)}, nil
}

func (enc *encoder) expr(e lir.Expr) (*Node, error) {
	if e == nil {
		return nil, nil
	}
	switch x := e.(type) {
	case lir.NoneConst:
		return &Node{K: KNone}, nil
	case lir.NullConst:
		return &Node{K: KNull}, nil
	case lir.IntConst:
		return &Node{K: KInt, Int: x.Value}, nil
	case lir.FloatConst:
		return &Node{K: KFloat, Float: x.Value}, nil
	case lir.CharConst:
		return &Node{K: KChar, Int: int64(x.Value)}, nil
	case lir.BoolConst:
		return &Node{K: KBool, Flag: x.Value}, nil
	case lir.SizeOfTypeConst:
		t, err := enc.typ(x.Type)
		if err != nil {
			return nil, err
		}
		return &Node{K: KSizeOfType, Kids: []*Node{t}}, nil
	case lir.SizeOfExprConst:
		return enc.wrap(KSizeOfExpr, x.X)
	case lir.TypeOfConst:
		return enc.wrap(KTypeOf, x.X)
	case lir.AsConst:
		return enc.cast(KAsConst, x.X, x.Type)
	case lir.SymbolConst:
		return &Node{K: KSymbol, Name: x.Name}, nil
	case lir.OfConst:
		t, err := enc.typ(x.Type)
		if err != nil {
			return nil, err
		}
		return &Node{K: KOf, Name: x.Variant, Kids: []*Node{t}}, nil
	case lir.TupleConst:
		kids, err := enc.consts(x.Elems)
		if err != nil {
			return nil, err
		}
		return &Node{K: KTupleConst, Kids: kids}, nil
	case lir.ArrayConst:
		kids, err := enc.consts(x.Elems)
		if err != nil {
			return nil, err
		}
		return &Node{K: KArrayConst, Kids: kids}, nil
	case lir.StructConst:
		names, kids, err := encodeFields(x.Fields, func(c lir.ConstExpr) (*Node, error) { return enc.expr(c) })
		if err != nil {
			return nil, err
		}
		return &Node{K: KStructConst, Names: names, Kids: kids}, nil
	case lir.UnionConst:
		return enc.union(KUnionConst, x.Type, x.Variant, x.Value)
	case lir.MonomorphizeConst:
		tmpl, err := enc.expr(x.Template)
		if err != nil {
			return nil, err
		}
		args, err := enc.types(x.TypeArgs...)
		if err != nil {
			return nil, err
		}
		return &Node{K: KMonomorphize, Kids: append([]*Node{tmpl}, args...)}, nil
	case *lir.Procedure:
		return enc.signature(KProc, x.Name, x.Args, x.Ret, x.Body)
	case *lir.PolyProcedure:
		n, err := enc.signature(KPolyProc, x.Name, x.Args, x.Ret, x.Body)
		if err != nil {
			return nil, err
		}
		n.Names = slices.Clone(x.TypeParams)
		return n, nil
	case *lir.CoreBuiltin:
		n, err := enc.signature(KCoreBuiltin, x.Name, x.Args, x.Ret, nil)
		if err != nil {
			return nil, err
		}
		n.Names = slices.Clone(x.Asm)
		return n, nil
	case *lir.StandardBuiltin:
		n, err := enc.signature(KStdBuiltin, x.Name, x.Args, x.Ret, nil)
		if err != nil {
			return nil, err
		}
		n.Names = slices.Clone(x.Asm)
		return n, nil

	case lir.UnaryExpr:
		n, err := enc.wrap(KUnary, x.X)
		if err != nil {
			return nil, err
		}
		n.Op = x.Op.String()
		return n, nil
	case lir.BinaryExpr:
		return enc.node(KBinary, x.Op.String(), x.X, x.Y)
	case lir.TernaryExpr:
		return enc.node(KTernary, x.Op.String(), x.X, x.Y, x.Z)
	case lir.AssignExpr:
		return enc.node(KAssign, x.Op.String(), x.Dst, x.Src)
	case lir.ManyExpr:
		return enc.node(KMany, "", x.Exprs...)
	case lir.LetConstExpr:
		b, err := enc.bind(x.Name, false, nil, x.Value)
		if err != nil {
			return nil, err
		}
		return enc.withBody(KLetConst, []*Node{b}, x.Body)
	case lir.LetConstsExpr:
		binds := make([]*Node, len(x.Consts))
		for i, c := range x.Consts {
			b, err := enc.bind(c.Name, false, nil, c.Value)
			if err != nil {
				return nil, err
			}
			binds[i] = b
		}
		return enc.withBody(KLetConsts, binds, x.Body)
	case lir.LetProcExpr:
		b, err := enc.bind(x.Name, false, nil, x.Proc)
		if err != nil {
			return nil, err
		}
		return enc.withBody(KLetProc, []*Node{b}, x.Body)
	case lir.LetProcsExpr:
		binds := make([]*Node, len(x.Procs))
		for i, p := range x.Procs {
			b, err := enc.bind(p.Name, false, nil, p.Proc)
			if err != nil {
				return nil, err
			}
			binds[i] = b
		}
		return enc.withBody(KLetProcs, binds, x.Body)
	case lir.LetTypeExpr:
		b, err := enc.bind(x.Name, false, x.Type, nil)
		if err != nil {
			return nil, err
		}
		return enc.withBody(KLetType, []*Node{b}, x.Body)
	case lir.LetTypesExpr:
		binds := make([]*Node, len(x.Types))
		for i, t := range x.Types {
			b, err := enc.bind(t.Name, false, t.Type, nil)
			if err != nil {
				return nil, err
			}
			binds[i] = b
		}
		return enc.withBody(KLetTypes, binds, x.Body)
	case lir.LetVarExpr:
		b, err := enc.bind(x.Var.Name, x.Var.Mutable, x.Var.Type, x.Var.Value)
		if err != nil {
			return nil, err
		}
		return enc.withBody(KLetVar, []*Node{b}, x.Body)
	case lir.LetVarsExpr:
		binds := make([]*Node, len(x.Vars))
		for i, v := range x.Vars {
			b, err := enc.bind(v.Name, v.Mutable, v.Type, v.Value)
			if err != nil {
				return nil, err
			}
			binds[i] = b
		}
		return enc.withBody(KLetVars, binds, x.Body)
	case lir.WhileExpr:
		return enc.node(KWhile, "", x.Cond, x.Body)
	case lir.IfExpr:
		return enc.node(KIf, "", x.Cond, x.Then, x.Else)
	case lir.WhenExpr:
		return enc.node(KWhen, "", x.Cond, x.Then, x.Else)
	case lir.ReferExpr:
		return enc.wrap(KRefer, x.X)
	case lir.DerefExpr:
		return enc.wrap(KDeref, x.X)
	case lir.DerefMutExpr:
		return enc.node(KDerefMut, "", x.Ptr, x.Value)
	case lir.ApplyExpr:
		return enc.node(KApply, "", append([]lir.Expr{x.Func}, x.Args...)...)
	case lir.ReturnExpr:
		return enc.wrap(KReturn, x.Value)
	case lir.ArrayExpr:
		return enc.node(KArray, "", x.Elems...)
	case lir.TupleExpr:
		return enc.node(KTuple, "", x.Elems...)
	case lir.StructExpr:
		names, kids, err := encodeFields(x.Fields, enc.expr)
		if err != nil {
			return nil, err
		}
		return &Node{K: KStruct, Names: names, Kids: kids}, nil
	case lir.UnionExpr:
		return enc.union(KUnion, x.Type, x.Variant, x.Value)
	case lir.AsExpr:
		return enc.cast(KAs, x.X, x.Type)
	case lir.MemberExpr:
		n, err := enc.wrap(KMember, x.X)
		if err != nil {
			return nil, err
		}
		n.Name = x.Field
		return n, nil
	case lir.IndexExpr:
		return enc.node(KIndex, "", x.X, x.Index)
	case lir.AnnotatedExpr:
		n, err := enc.wrap(KAnnotated, x.X)
		if err != nil {
			return nil, err
		}
		n.Span = &Span{Start: x.Span.Start, End: x.Span.End}
		return n, nil
	}
	return nil, fmt.Errorf("lirio: cannot encode expression %T", e)
}

func (enc *encoder) node(k Kind, op string, es ...lir.Expr) (*Node, error) {
	kids, err := enc.exprs(es...)
	if err != nil {
		return nil, err
	}
	return &Node{K: k, Op: op, Kids: kids}, nil
}

func (enc *encoder) wrap(k Kind, x lir.Expr) (*Node, error) {
	return enc.node(k, "", x)
}

func (enc *encoder) cast(k Kind, x lir.Expr, t lir.Type) (*Node, error) {
	xn, err := enc.expr(x)
	if err != nil {
		return nil, err
	}
	tn, err := enc.typ(t)
	if err != nil {
		return nil, err
	}
	return &Node{K: k, Kids: []*Node{xn, tn}}, nil
}

func (enc *encoder) union(k Kind, t lir.Type, variant string, v lir.Expr) (*Node, error) {
	tn, err := enc.typ(t)
	if err != nil {
		return nil, err
	}
	vn, err := enc.expr(v)
	if err != nil {
		return nil, err
	}
	return &Node{K: k, Name: variant, Kids: []*Node{tn, vn}}, nil
}
