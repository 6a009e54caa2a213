package lirio

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"lirc/internal/lir"
	"lirc/internal/source"
)

// MaxNodeDepth bounds the nesting of a decoded tree.
const MaxNodeDepth = 4096

type decoder struct {
	reg     *lir.Registry
	file    source.FileID
	srcLen  uint32
	hasSrc  bool
	depth   int
	spans   int
	polyCnt int
}

func (d *decoder) ident(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

func (d *decoder) idents(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = d.ident(s)
	}
	return out
}

func (d *decoder) enter(n *Node) error {
	d.depth++
	if d.depth > MaxNodeDepth {
		return &DecodeError{Kind: n.K, Msg: fmt.Sprintf("tree deeper than %d nodes", MaxNodeDepth)}
	}
	return nil
}

func (d *decoder) leave() { d.depth-- }

func (d *decoder) need(n *Node, kids int) error {
	if len(n.Kids) < kids {
		return &DecodeError{Kind: n.K, Msg: fmt.Sprintf("expected %d children, found %d", kids, len(n.Kids))}
	}
	return nil
}

func (d *decoder) typ(n *Node) (lir.Type, error) {
	if n == nil {
		return nil, nil
	}
	if err := d.enter(n); err != nil {
		return nil, err
	}
	defer d.leave()

	switch n.K {
	case KAnyT:
		return lir.Any, nil
	case KNeverT:
		return lir.Never, nil
	case KNoneT:
		return lir.None, nil
	case KCellT:
		return lir.Cell, nil
	case KIntT:
		return lir.Int, nil
	case KFloatT:
		return lir.Float, nil
	case KBoolT:
		return lir.Bool, nil
	case KCharT:
		return lir.Char, nil
	case KEnumT:
		return lir.Enum(d.idents(n.Names)...), nil
	case KUnitT:
		inner, err := d.reqType(n, 0)
		if err != nil {
			return nil, err
		}
		return lir.Unit(d.ident(n.Name), inner), nil
	case KSymbolT:
		return lir.Sym(d.ident(n.Name)), nil
	case KLetT:
		ts, err := d.reqTypes(n, n.Kids)
		if err != nil {
			return nil, err
		}
		if len(ts) != 2 {
			return nil, &DecodeError{Kind: n.K, Msg: "expected bound and body"}
		}
		return lir.Let(d.ident(n.Name), ts[0], ts[1]), nil
	case KArrayT:
		elem, err := d.reqType(n, 0)
		if err != nil {
			return nil, err
		}
		length, err := d.reqConst(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.ArrayType{Elem: elem, Len: length}, nil
	case KTupleT:
		ts, err := d.reqTypes(n, n.Kids)
		if err != nil {
			return nil, err
		}
		return lir.Tuple(ts...), nil
	case KStructT, KUnionT:
		fields, err := decodeFields(d, n, d.reqTypeNode)
		if err != nil {
			return nil, err
		}
		if n.K == KStructT {
			return lir.Struct(fields), nil
		}
		return lir.Union(fields), nil
	case KProcT:
		ts, err := d.reqTypes(n, n.Kids)
		if err != nil {
			return nil, err
		}
		if len(ts) == 0 {
			return nil, &DecodeError{Kind: n.K, Msg: "missing return type"}
		}
		return lir.Proc(ts[1:], ts[0]), nil
	case KPointerT:
		inner, err := d.reqType(n, 0)
		if err != nil {
			return nil, err
		}
		return lir.Ptr(inner), nil
	case KPolyT:
		body, err := d.reqType(n, 0)
		if err != nil {
			return nil, err
		}
		return lir.Poly(d.idents(n.Names), body), nil
	case KApplyT:
		ts, err := d.reqTypes(n, n.Kids)
		if err != nil {
			return nil, err
		}
		if len(ts) == 0 {
			return nil, &DecodeError{Kind: n.K, Msg: "missing polymorphic type"}
		}
		return lir.Apply(ts[0], ts[1:]...), nil
	}
	return nil, &DecodeError{Kind: n.K, Msg: "not a type"}
}

func (d *decoder) reqTypeNode(n *Node) (lir.Type, error) {
	t, err := d.typ(n)
	if err == nil && t == nil {
		err = &DecodeError{Msg: "missing type"}
	}
	return t, err
}

func (d *decoder) reqType(n *Node, i int) (lir.Type, error) {
	if err := d.need(n, i+1); err != nil {
		return nil, err
	}
	t, err := d.typ(n.Kids[i])
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("child %d: missing type", i)}
	}
	return t, nil
}

func (d *decoder) reqTypes(parent *Node, ns []*Node) ([]lir.Type, error) {
	out := make([]lir.Type, len(ns))
	for i, n := range ns {
		t, err := d.typ(n)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, &DecodeError{Kind: parent.K, Msg: fmt.Sprintf("child %d: missing type", i)}
		}
		out[i] = t
	}
	return out, nil
}

func decodeFields[V any](d *decoder, n *Node, fn func(*Node) (V, error)) (map[string]V, error) {
	if len(n.Names) != len(n.Kids) {
		return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("%d field names for %d values", len(n.Names), len(n.Kids))}
	}
	out := make(map[string]V, len(n.Kids))
	for i, kid := range n.Kids {
		name := d.ident(n.Names[i])
		if _, dup := out[name]; dup {
			return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("duplicate field %q", name)}
		}
		v, err := fn(kid)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func (d *decoder) expr(n *Node) (lir.Expr, error) {
	if n == nil {
		return nil, nil
	}
	if err := d.enter(n); err != nil {
		return nil, err
	}
	defer d.leave()

	if c, ok, err := d.constant(n); ok || err != nil {
		return c, err
	}

	switch n.K {
	case KUnary:
		op, ok := lir.ParseUnaryOperator(n.Op)
		if !ok {
			return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("unknown operator %q", n.Op)}
		}
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.UnaryExpr{Op: op, X: xs[0]}, nil
	case KBinary:
		op, ok := lir.ParseBinaryOperator(n.Op)
		if !ok {
			return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("unknown operator %q", n.Op)}
		}
		xs, err := d.reqExprs(n, 2)
		if err != nil {
			return nil, err
		}
		return lir.BinaryExpr{Op: op, X: xs[0], Y: xs[1]}, nil
	case KTernary:
		op, ok := lir.ParseTernaryOperator(n.Op)
		if !ok {
			return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("unknown operator %q", n.Op)}
		}
		xs, err := d.reqExprs(n, 3)
		if err != nil {
			return nil, err
		}
		return lir.TernaryExpr{Op: op, X: xs[0], Y: xs[1], Z: xs[2]}, nil
	case KAssign:
		op, ok := lir.ParseAssignOperator(n.Op)
		if !ok {
			return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("unknown operator %q", n.Op)}
		}
		xs, err := d.reqExprs(n, 2)
		if err != nil {
			return nil, err
		}
		return lir.AssignExpr{Op: op, Dst: xs[0], Src: xs[1]}, nil
	case KMany:
		xs, err := d.reqExprs(n, len(n.Kids))
		if err != nil {
			return nil, err
		}
		return lir.ManyExpr{Exprs: xs}, nil
	case KLetConst, KLetConsts, KLetProc, KLetProcs, KLetType, KLetTypes, KLetVar, KLetVars:
		return d.let(n)
	case KWhile:
		xs, err := d.reqExprs(n, 2)
		if err != nil {
			return nil, err
		}
		return lir.WhileExpr{Cond: xs[0], Body: xs[1]}, nil
	case KIf:
		xs, err := d.reqExprs(n, 3)
		if err != nil {
			return nil, err
		}
		return lir.IfExpr{Cond: xs[0], Then: xs[1], Else: xs[2]}, nil
	case KWhen:
		cond, err := d.reqConst(n, 0)
		if err != nil {
			return nil, err
		}
		xs, err := d.reqExprs(&Node{K: n.K, Kids: n.Kids[1:]}, 2)
		if err != nil {
			return nil, err
		}
		return lir.WhenExpr{Cond: cond, Then: xs[0], Else: xs[1]}, nil
	case KRefer:
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.ReferExpr{X: xs[0]}, nil
	case KDeref:
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.DerefExpr{X: xs[0]}, nil
	case KDerefMut:
		xs, err := d.reqExprs(n, 2)
		if err != nil {
			return nil, err
		}
		return lir.DerefMutExpr{Ptr: xs[0], Value: xs[1]}, nil
	case KApply:
		if err := d.need(n, 1); err != nil {
			return nil, err
		}
		xs, err := d.reqExprs(n, len(n.Kids))
		if err != nil {
			return nil, err
		}
		return lir.ApplyExpr{Func: xs[0], Args: xs[1:]}, nil
	case KReturn:
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.ReturnExpr{Value: xs[0]}, nil
	case KArray:
		xs, err := d.reqExprs(n, len(n.Kids))
		if err != nil {
			return nil, err
		}
		return lir.ArrayExpr{Elems: xs}, nil
	case KTuple:
		xs, err := d.reqExprs(n, len(n.Kids))
		if err != nil {
			return nil, err
		}
		return lir.TupleExpr{Elems: xs}, nil
	case KStruct:
		fields, err := decodeFields(d, n, d.reqExprNode)
		if err != nil {
			return nil, err
		}
		return lir.StructExpr{Fields: fields}, nil
	case KUnion:
		t, err := d.reqType(n, 0)
		if err != nil {
			return nil, err
		}
		xs, err := d.reqExprs(&Node{K: n.K, Kids: n.Kids[1:]}, 1)
		if err != nil {
			return nil, err
		}
		return lir.UnionExpr{Type: t, Variant: d.ident(n.Name), Value: xs[0]}, nil
	case KAs:
		xs, err := d.reqExprs(&Node{K: n.K, Kids: n.Kids[:min(1, len(n.Kids))]}, 1)
		if err != nil {
			return nil, err
		}
		t, err := d.reqType(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.AsExpr{X: xs[0], Type: t}, nil
	case KMember:
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, err
		}
		return lir.MemberExpr{X: xs[0], Field: d.ident(n.Name)}, nil
	case KIndex:
		xs, err := d.reqExprs(n, 2)
		if err != nil {
			return nil, err
		}
		return lir.IndexExpr{X: xs[0], Index: xs[1]}, nil
	case KAnnotated:
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, err
		}
		sp, err := d.span(n)
		if err != nil {
			return nil, err
		}
		return lir.AnnotatedExpr{X: xs[0], Span: sp}, nil
	}
	return nil, &DecodeError{Kind: n.K, Msg: "not an expression"}
}

func (d *decoder) reqExprNode(n *Node) (lir.Expr, error) {
	x, err := d.expr(n)
	if err == nil && x == nil {
		err = &DecodeError{Msg: "missing expression"}
	}
	return x, err
}

// reqExprs decodes the first count children, all of which must be present.
func (d *decoder) reqExprs(n *Node, count int) ([]lir.Expr, error) {
	if err := d.need(n, count); err != nil {
		return nil, err
	}
	out := make([]lir.Expr, count)
	for i := range count {
		x, err := d.expr(n.Kids[i])
		if err != nil {
			return nil, err
		}
		if x == nil {
			return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("child %d: missing expression", i)}
		}
		out[i] = x
	}
	return out, nil
}

func (d *decoder) reqConst(n *Node, i int) (lir.ConstExpr, error) {
	if err := d.need(n, i+1); err != nil {
		return nil, err
	}
	return d.constNode(n.Kids[i])
}

func (d *decoder) constNode(n *Node) (lir.ConstExpr, error) {
	if n == nil {
		return nil, &DecodeError{Msg: "missing constant"}
	}
	if err := d.enter(n); err != nil {
		return nil, err
	}
	defer d.leave()
	c, ok, err := d.constant(n)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &DecodeError{Kind: n.K, Msg: "not a constant"}
	}
	return c, nil
}

func (d *decoder) constNodes(ns []*Node) ([]lir.ConstExpr, error) {
	out := make([]lir.ConstExpr, len(ns))
	for i, n := range ns {
		c, err := d.constNode(n)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// constant decodes n when it is a constant kind; ok is false otherwise.
func (d *decoder) constant(n *Node) (c lir.ConstExpr, ok bool, err error) {
	switch n.K {
	case KNone:
		return lir.NoneConst{}, true, nil
	case KNull:
		return lir.NullConst{}, true, nil
	case KInt:
		return lir.IntConst{Value: n.Int}, true, nil
	case KFloat:
		return lir.FloatConst{Value: n.Float}, true, nil
	case KChar:
		if n.Int < 0 || n.Int > 0x10FFFF {
			return nil, true, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("invalid code point %d", n.Int)}
		}
		return lir.CharConst{Value: rune(n.Int)}, true, nil
	case KBool:
		return lir.BoolConst{Value: n.Flag}, true, nil
	case KSizeOfType:
		t, err := d.reqType(n, 0)
		if err != nil {
			return nil, true, err
		}
		return lir.SizeOfTypeConst{Type: t}, true, nil
	case KSizeOfExpr, KTypeOf:
		xs, err := d.reqExprs(n, 1)
		if err != nil {
			return nil, true, err
		}
		if n.K == KTypeOf {
			return lir.TypeOfConst{X: xs[0]}, true, nil
		}
		return lir.SizeOfExprConst{X: xs[0]}, true, nil
	case KAsConst:
		x, err := d.reqConst(n, 0)
		if err != nil {
			return nil, true, err
		}
		t, err := d.reqType(n, 1)
		if err != nil {
			return nil, true, err
		}
		return lir.AsConst{X: x, Type: t}, true, nil
	case KSymbol:
		return lir.SymbolConst{Name: d.ident(n.Name)}, true, nil
	case KOf:
		t, err := d.reqType(n, 0)
		if err != nil {
			return nil, true, err
		}
		return lir.OfConst{Type: t, Variant: d.ident(n.Name)}, true, nil
	case KTupleConst:
		cs, err := d.constNodes(n.Kids)
		if err != nil {
			return nil, true, err
		}
		return lir.TupleConst{Elems: cs}, true, nil
	case KArrayConst:
		cs, err := d.constNodes(n.Kids)
		if err != nil {
			return nil, true, err
		}
		return lir.ArrayConst{Elems: cs}, true, nil
	case KStructConst:
		fields, err := decodeFields(d, n, d.constNode)
		if err != nil {
			return nil, true, err
		}
		return lir.StructConst{Fields: fields}, true, nil
	case KUnionConst:
		t, err := d.reqType(n, 0)
		if err != nil {
			return nil, true, err
		}
		v, err := d.reqConst(n, 1)
		if err != nil {
			return nil, true, err
		}
		return lir.UnionConst{Type: t, Variant: d.ident(n.Name), Value: v}, true, nil
	case KMonomorphize:
		tmpl, err := d.reqConst(n, 0)
		if err != nil {
			return nil, true, err
		}
		args, err := d.reqTypes(n, n.Kids[1:])
		if err != nil {
			return nil, true, err
		}
		return lir.MonomorphizeConst{Template: tmpl, TypeArgs: args}, true, nil
	case KProc, KPolyProc, KCoreBuiltin, KStdBuiltin:
		pc, err := d.procedure(n)
		return pc, true, err
	}
	return nil, false, nil
}

func (d *decoder) procedure(n *Node) (lir.ConstExpr, error) {
	if err := d.need(n, 2); err != nil {
		return nil, err
	}
	ret, err := d.reqType(n, 0)
	if err != nil {
		return nil, err
	}
	body, err := d.expr(n.Kids[1])
	if err != nil {
		return nil, err
	}
	args := make([]lir.Arg, 0, len(n.Kids)-2)
	for _, an := range n.Kids[2:] {
		if an == nil || an.K != KArg {
			return nil, &DecodeError{Kind: n.K, Msg: "expected argument node"}
		}
		t, err := d.reqType(an, 0)
		if err != nil {
			return nil, err
		}
		args = append(args, lir.Arg{Name: d.ident(an.Name), Mutable: an.Flag, Type: t})
	}
	name := d.ident(n.Name)

	switch n.K {
	case KProc:
		if body == nil {
			return nil, &DecodeError{Kind: n.K, Msg: "procedure without body"}
		}
		return lir.NewProcedure(name, args, ret, body), nil
	case KPolyProc:
		if body == nil {
			return nil, &DecodeError{Kind: n.K, Msg: "template without body"}
		}
		d.polyCnt++
		return lir.NewPolyProcedureIn(d.reg, name, d.idents(n.Names), args, ret, body), nil
	case KCoreBuiltin:
		return &lir.CoreBuiltin{Name: name, Args: args, Ret: ret, Asm: append([]string(nil), n.Names...)}, nil
	default:
		return &lir.StandardBuiltin{Name: name, Args: args, Ret: ret, Asm: append([]string(nil), n.Names...)}, nil
	}
}

// let decodes the eight binding forms. Kids[0] is the body, the rest are bind nodes.
func (d *decoder) let(n *Node) (lir.Expr, error) {
	if err := d.need(n, 1); err != nil {
		return nil, err
	}
	body, err := d.expr(n.Kids[0])
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &DecodeError{Kind: n.K, Msg: "missing body"}
	}
	binds := n.Kids[1:]
	single := n.K == KLetConst || n.K == KLetProc || n.K == KLetType || n.K == KLetVar
	if single && len(binds) != 1 {
		return nil, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("expected 1 binding, found %d", len(binds))}
	}
	for _, b := range binds {
		if b == nil || b.K != KBind || len(b.Kids) != 2 {
			return nil, &DecodeError{Kind: n.K, Msg: "malformed binding"}
		}
	}

	switch n.K {
	case KLetConst, KLetConsts:
		cs := make([]lir.ConstBinding, len(binds))
		for i, b := range binds {
			v, err := d.constNode(b.Kids[1])
			if err != nil {
				return nil, err
			}
			cs[i] = lir.ConstBinding{Name: d.ident(b.Name), Value: v}
		}
		if n.K == KLetConst {
			return lir.LetConstExpr{Name: cs[0].Name, Value: cs[0].Value, Body: body}, nil
		}
		return lir.LetConstsExpr{Consts: cs, Body: body}, nil
	case KLetProc, KLetProcs:
		ps := make([]lir.ProcBinding, len(binds))
		for i, b := range binds {
			v, err := d.constNode(b.Kids[1])
			if err != nil {
				return nil, err
			}
			ps[i] = lir.ProcBinding{Name: d.ident(b.Name), Proc: v}
		}
		if n.K == KLetProc {
			return lir.LetProcExpr{Name: ps[0].Name, Proc: ps[0].Proc, Body: body}, nil
		}
		return lir.LetProcsExpr{Procs: ps, Body: body}, nil
	case KLetType, KLetTypes:
		ts := make([]lir.TypeBinding, len(binds))
		for i, b := range binds {
			t, err := d.typ(b.Kids[0])
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, &DecodeError{Kind: n.K, Msg: "type binding without type"}
			}
			ts[i] = lir.TypeBinding{Name: d.ident(b.Name), Type: t}
		}
		if n.K == KLetType {
			return lir.LetTypeExpr{Name: ts[0].Name, Type: ts[0].Type, Body: body}, nil
		}
		return lir.LetTypesExpr{Types: ts, Body: body}, nil
	default:
		vs := make([]lir.VarBinding, len(binds))
		for i, b := range binds {
			t, err := d.typ(b.Kids[0])
			if err != nil {
				return nil, err
			}
			v, err := d.reqExprNode(b.Kids[1])
			if err != nil {
				return nil, err
			}
			vs[i] = lir.VarBinding{Name: d.ident(b.Name), Mutable: b.Flag, Type: t, Value: v}
		}
		if n.K == KLetVar {
			return lir.LetVarExpr{Var: vs[0], Body: body}, nil
		}
		return lir.LetVarsExpr{Vars: vs, Body: body}, nil
	}
}

func (d *decoder) span(n *Node) (source.Span, error) {
	if n.Span == nil {
		return source.Span{}, &DecodeError{Kind: n.K, Msg: "annotation without span"}
	}
	s := n.Span
	if s.End < s.Start || (d.hasSrc && s.End > d.srcLen) {
		return source.Span{}, &DecodeError{Kind: n.K, Msg: fmt.Sprintf("span %d..%d outside source of %d bytes", s.Start, s.End, d.srcLen)}
	}
	d.spans++
	return source.Span{File: d.file, Start: s.Start, End: s.End}, nil
}
