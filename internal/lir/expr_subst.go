package lir

// SubstituteExpr replaces free type symbols throughout e, including the
// types of nested procedures. LetTypeExpr and polymorphic procedures shadow
// their own names.
func SubstituteExpr(e Expr, m map[string]Type) Expr {
	if len(m) == 0 || e == nil {
		return e
	}
	return newSubstituter(m).expr(e)
}

// SubstituteConst is SubstituteExpr for constants.
func SubstituteConst(c ConstExpr, m map[string]Type) ConstExpr {
	if len(m) == 0 || c == nil {
		return c
	}
	return newSubstituter(m).constExpr(c)
}

func (s substituter) exprs(xs []Expr) []Expr {
	if xs == nil {
		return nil
	}
	out := make([]Expr, len(xs))
	for i, x := range xs {
		out[i] = s.expr(x)
	}
	return out
}

func (s substituter) consts(xs []ConstExpr) []ConstExpr {
	if xs == nil {
		return nil
	}
	out := make([]ConstExpr, len(xs))
	for i, x := range xs {
		out[i] = s.constExpr(x)
	}
	return out
}

func (s substituter) varBinding(b VarBinding) VarBinding {
	return VarBinding{Name: b.Name, Mutable: b.Mutable, Type: s.typ(b.Type), Value: s.expr(b.Value)}
}

func (s substituter) args(as []Arg) []Arg {
	out := make([]Arg, len(as))
	for i, a := range as {
		out[i] = Arg{Name: a.Name, Mutable: a.Mutable, Type: s.typ(a.Type)}
	}
	return out
}

func (s substituter) expr(e Expr) Expr {
	if s.empty() {
		return e
	}
	switch x := e.(type) {
	case nil:
		return nil
	case ConstExpr:
		return s.constExpr(x)
	case UnaryExpr:
		return UnaryExpr{Op: x.Op, X: s.expr(x.X)}
	case BinaryExpr:
		return BinaryExpr{Op: x.Op, X: s.expr(x.X), Y: s.expr(x.Y)}
	case TernaryExpr:
		return TernaryExpr{Op: x.Op, X: s.expr(x.X), Y: s.expr(x.Y), Z: s.expr(x.Z)}
	case AssignExpr:
		return AssignExpr{Op: x.Op, Dst: s.expr(x.Dst), Src: s.expr(x.Src)}
	case ManyExpr:
		return ManyExpr{Exprs: s.exprs(x.Exprs)}
	case LetConstExpr:
		return LetConstExpr{Name: x.Name, Value: s.constExpr(x.Value), Body: s.expr(x.Body)}
	case LetConstsExpr:
		out := LetConstsExpr{Consts: make([]ConstBinding, len(x.Consts)), Body: s.expr(x.Body)}
		for i, b := range x.Consts {
			out.Consts[i] = ConstBinding{Name: b.Name, Value: s.constExpr(b.Value)}
		}
		return out
	case LetProcExpr:
		return LetProcExpr{Name: x.Name, Proc: s.constExpr(x.Proc), Body: s.expr(x.Body)}
	case LetProcsExpr:
		out := LetProcsExpr{Procs: make([]ProcBinding, len(x.Procs)), Body: s.expr(x.Body)}
		for i, b := range x.Procs {
			out.Procs[i] = ProcBinding{Name: b.Name, Proc: s.constExpr(b.Proc)}
		}
		return out
	case LetTypeExpr:
		inner, names := s.bind([]string{x.Name})
		return LetTypeExpr{Name: names[0], Type: inner.typ(x.Type), Body: inner.expr(x.Body)}
	case LetTypesExpr:
		binders := make([]string, len(x.Types))
		for i, b := range x.Types {
			binders[i] = b.Name
		}
		inner, names := s.bind(binders)
		out := LetTypesExpr{Types: make([]TypeBinding, len(x.Types)), Body: inner.expr(x.Body)}
		for i, b := range x.Types {
			out.Types[i] = TypeBinding{Name: names[i], Type: inner.typ(b.Type)}
		}
		return out
	case LetVarExpr:
		return LetVarExpr{Var: s.varBinding(x.Var), Body: s.expr(x.Body)}
	case LetVarsExpr:
		out := LetVarsExpr{Vars: make([]VarBinding, len(x.Vars)), Body: s.expr(x.Body)}
		for i, b := range x.Vars {
			out.Vars[i] = s.varBinding(b)
		}
		return out
	case WhileExpr:
		return WhileExpr{Cond: s.expr(x.Cond), Body: s.expr(x.Body)}
	case IfExpr:
		return IfExpr{Cond: s.expr(x.Cond), Then: s.expr(x.Then), Else: s.expr(x.Else)}
	case WhenExpr:
		return WhenExpr{Cond: s.constExpr(x.Cond), Then: s.expr(x.Then), Else: s.expr(x.Else)}
	case ReferExpr:
		return ReferExpr{X: s.expr(x.X)}
	case DerefExpr:
		return DerefExpr{X: s.expr(x.X)}
	case DerefMutExpr:
		return DerefMutExpr{Ptr: s.expr(x.Ptr), Value: s.expr(x.Value)}
	case ApplyExpr:
		return ApplyExpr{Func: s.expr(x.Func), Args: s.exprs(x.Args)}
	case ReturnExpr:
		return ReturnExpr{Value: s.expr(x.Value)}
	case ArrayExpr:
		return ArrayExpr{Elems: s.exprs(x.Elems)}
	case TupleExpr:
		return TupleExpr{Elems: s.exprs(x.Elems)}
	case StructExpr:
		out := StructExpr{Fields: make(map[string]Expr, len(x.Fields))}
		for k, v := range x.Fields {
			out.Fields[k] = s.expr(v)
		}
		return out
	case UnionExpr:
		return UnionExpr{Type: s.typ(x.Type), Variant: x.Variant, Value: s.expr(x.Value)}
	case AsExpr:
		return AsExpr{X: s.expr(x.X), Type: s.typ(x.Type)}
	case MemberExpr:
		return MemberExpr{X: s.expr(x.X), Field: x.Field}
	case IndexExpr:
		return IndexExpr{X: s.expr(x.X), Index: s.expr(x.Index)}
	case AnnotatedExpr:
		return AnnotatedExpr{X: s.expr(x.X), Span: x.Span}
	default:
		return e
	}
}

func (s substituter) constExpr(c ConstExpr) ConstExpr {
	if s.empty() {
		return c
	}
	switch x := c.(type) {
	case nil:
		return nil
	case SizeOfTypeConst:
		return SizeOfTypeConst{Type: s.typ(x.Type)}
	case SizeOfExprConst:
		return SizeOfExprConst{X: s.expr(x.X)}
	case TypeOfConst:
		return TypeOfConst{X: s.expr(x.X)}
	case AsConst:
		return AsConst{X: s.constExpr(x.X), Type: s.typ(x.Type)}
	case OfConst:
		return OfConst{Type: s.typ(x.Type), Variant: x.Variant}
	case TupleConst:
		return TupleConst{Elems: s.consts(x.Elems)}
	case ArrayConst:
		return ArrayConst{Elems: s.consts(x.Elems)}
	case StructConst:
		out := StructConst{Fields: make(map[string]ConstExpr, len(x.Fields))}
		for k, v := range x.Fields {
			out.Fields[k] = s.constExpr(v)
		}
		return out
	case UnionConst:
		return UnionConst{Type: s.typ(x.Type), Variant: x.Variant, Value: s.constExpr(x.Value)}
	case MonomorphizeConst:
		return MonomorphizeConst{Template: s.constExpr(x.Template), TypeArgs: s.types(x.TypeArgs)}
	case SymbolConst:
		if s.sym == nil {
			return c
		}
		r := s.sym(x)
		if r != c {
			*s.hits++
		}
		return r
	case *Procedure:
		return s.procedure(x)
	case *PolyProcedure:
		return s.polyProcedure(x)
	default:
		// literals and builtins carry no type parameters
		return c
	}
}

// procedure returns p itself when nothing inside it changes, so procedure
// identity survives substitution of unrelated names.
func (s substituter) procedure(p *Procedure) ConstExpr {
	before := *s.hits
	args := s.args(p.Args)
	ret := s.typ(p.Ret)
	body := s.expr(p.Body)
	if *s.hits == before {
		return p
	}
	return &Procedure{Name: p.Name, Args: args, Ret: ret, Body: body}
}

// polyProcedure substitutes inside a nested template. A changed template is
// a different template and gets its own cache table in the same registry.
func (s substituter) polyProcedure(p *PolyProcedure) ConstExpr {
	inner, params := s.bind(p.TypeParams)
	if inner.empty() {
		return p
	}
	before := *s.hits
	args := inner.args(p.Args)
	ret := inner.typ(p.Ret)
	body := inner.expr(p.Body)
	if *s.hits == before {
		return p
	}
	return newPolyProcedure(p.reg, p.Name, params, args, ret, body)
}
