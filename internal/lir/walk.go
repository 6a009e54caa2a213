package lir

// children calls exprFn for every direct sub-expression of e and typeFn for
// every type written directly in e. Either callback may be nil.
func children(e Expr, exprFn func(Expr), typeFn func(Type)) {
	ex := func(xs ...Expr) {
		if exprFn == nil {
			return
		}
		for _, x := range xs {
			if x != nil {
				exprFn(x)
			}
		}
	}
	ty := func(ts ...Type) {
		if typeFn == nil {
			return
		}
		for _, t := range ts {
			if t != nil {
				typeFn(t)
			}
		}
	}
	args := func(as []Arg) {
		for _, a := range as {
			ty(a.Type)
		}
	}

	switch x := e.(type) {
	case UnaryExpr:
		ex(x.X)
	case BinaryExpr:
		ex(x.X, x.Y)
	case TernaryExpr:
		ex(x.X, x.Y, x.Z)
	case AssignExpr:
		ex(x.Dst, x.Src)
	case ManyExpr:
		ex(x.Exprs...)
	case LetConstExpr:
		ex(x.Value, x.Body)
	case LetConstsExpr:
		for _, b := range x.Consts {
			ex(b.Value)
		}
		ex(x.Body)
	case LetProcExpr:
		ex(x.Proc, x.Body)
	case LetProcsExpr:
		for _, b := range x.Procs {
			ex(b.Proc)
		}
		ex(x.Body)
	case LetTypeExpr:
		ty(x.Type)
		ex(x.Body)
	case LetTypesExpr:
		for _, b := range x.Types {
			ty(b.Type)
		}
		ex(x.Body)
	case LetVarExpr:
		ty(x.Var.Type)
		ex(x.Var.Value, x.Body)
	case LetVarsExpr:
		for _, b := range x.Vars {
			ty(b.Type)
			ex(b.Value)
		}
		ex(x.Body)
	case WhileExpr:
		ex(x.Cond, x.Body)
	case IfExpr:
		ex(x.Cond, x.Then, x.Else)
	case WhenExpr:
		ex(x.Cond, x.Then, x.Else)
	case ReferExpr:
		ex(x.X)
	case DerefExpr:
		ex(x.X)
	case DerefMutExpr:
		ex(x.Ptr, x.Value)
	case ApplyExpr:
		ex(x.Func)
		ex(x.Args...)
	case ReturnExpr:
		ex(x.Value)
	case ArrayExpr:
		ex(x.Elems...)
	case TupleExpr:
		ex(x.Elems...)
	case StructExpr:
		for _, name := range sortedKeys(x.Fields) {
			ex(x.Fields[name])
		}
	case UnionExpr:
		ty(x.Type)
		ex(x.Value)
	case AsExpr:
		ex(x.X)
		ty(x.Type)
	case MemberExpr:
		ex(x.X)
	case IndexExpr:
		ex(x.X, x.Index)
	case AnnotatedExpr:
		ex(x.X)

	case SizeOfTypeConst:
		ty(x.Type)
	case SizeOfExprConst:
		ex(x.X)
	case TypeOfConst:
		ex(x.X)
	case AsConst:
		ex(x.X)
		ty(x.Type)
	case OfConst:
		ty(x.Type)
	case TupleConst:
		ex(constsToExprs(x.Elems)...)
	case ArrayConst:
		ex(constsToExprs(x.Elems)...)
	case StructConst:
		for _, name := range sortedKeys(x.Fields) {
			ex(x.Fields[name])
		}
	case UnionConst:
		ty(x.Type)
		ex(x.Value)
	case MonomorphizeConst:
		ex(x.Template)
		ty(x.TypeArgs...)
	case *Procedure:
		args(x.Args)
		ty(x.Ret)
		ex(x.Body)
	case *PolyProcedure:
		args(x.Args)
		ty(x.Ret)
		ex(x.Body)
	case *CoreBuiltin:
		args(x.Args)
		ty(x.Ret)
	case *StandardBuiltin:
		args(x.Args)
		ty(x.Ret)
	}
}

// Walk visits e and every expression below it in pre-order. Returning false
// from fn skips the children of that node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	children(e, func(c Expr) { Walk(c, fn) }, nil)
}
