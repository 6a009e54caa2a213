package lir

import (
	"context"

	"lirc/internal/trace"
)

// CheckProgram checks a whole program in a fresh root environment. When
// opts carries no tracer, the one attached to ctx is used.
func CheckProgram(ctx context.Context, e Expr, opts Options) (Type, error) {
	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	if opts.ParentSpan == 0 {
		opts.ParentSpan = trace.ParentFromContext(ctx)
	}
	env := NewEnv(opts)
	if err := CheckExpr(e, env); err != nil {
		return nil, err
	}
	return TypeOf(e, env)
}

// CheckExpr validates e in env. The first unsound sub-term aborts the check.
func CheckExpr(e Expr, env *Env) error {
	switch x := e.(type) {
	case nil:
		return mismatch(Any, nil, nil)
	case ConstExpr:
		return CheckConst(x, env)
	case UnaryExpr:
		return x.Op.TypeCheck(x.X, env)
	case BinaryExpr:
		return x.Op.TypeCheck(x.X, x.Y, env)
	case TernaryExpr:
		return x.Op.TypeCheck(x.X, x.Y, x.Z, env)
	case AssignExpr:
		if err := checkAssignable(x.Dst, env); err != nil {
			return err
		}
		return x.Op.TypeCheck(x.Dst, x.Src, env)
	case ManyExpr:
		for _, sub := range x.Exprs {
			if err := CheckExpr(sub, env); err != nil {
				return err
			}
		}
		return nil

	case LetConstExpr:
		scope := env.NewScope()
		scope.DefineConst(x.Name, x.Value)
		if err := CheckConst(x.Value, scope); err != nil {
			return err
		}
		return CheckExpr(x.Body, scope)
	case LetConstsExpr:
		scope := env.NewScope()
		for _, b := range x.Consts {
			scope.DefineConst(b.Name, b.Value)
		}
		for _, b := range x.Consts {
			if err := CheckConst(b.Value, scope); err != nil {
				return err
			}
		}
		return CheckExpr(x.Body, scope)
	case LetProcExpr:
		scope := env.NewScope()
		scope.DefineProc(x.Name, x.Proc)
		if err := CheckConst(x.Proc, scope); err != nil {
			return err
		}
		return CheckExpr(x.Body, scope)
	case LetProcsExpr:
		scope := env.NewScope()
		for _, b := range x.Procs {
			scope.DefineProc(b.Name, b.Proc)
		}
		for _, b := range x.Procs {
			if err := CheckConst(b.Proc, scope); err != nil {
				return err
			}
		}
		return CheckExpr(x.Body, scope)
	case LetTypeExpr:
		scope := env.NewScope()
		scope.DefineType(x.Name, x.Type)
		if err := CheckType(x.Type, scope); err != nil {
			return err
		}
		return CheckExpr(x.Body, scope)
	case LetTypesExpr:
		scope := env.NewScope()
		for _, b := range x.Types {
			scope.DefineType(b.Name, b.Type)
		}
		for _, b := range x.Types {
			if err := CheckType(b.Type, scope); err != nil {
				return err
			}
		}
		return CheckExpr(x.Body, scope)
	case LetVarExpr:
		scope := env.NewScope()
		if err := checkVar(x.Var, env, scope, x); err != nil {
			return err
		}
		return CheckExpr(x.Body, scope)
	case LetVarsExpr:
		scope := env.NewScope()
		for _, v := range x.Vars {
			if err := checkVar(v, scope, scope, x); err != nil {
				return err
			}
		}
		return CheckExpr(x.Body, scope)

	case WhileExpr:
		if err := CheckExpr(x.Cond, env); err != nil {
			return err
		}
		return CheckExpr(x.Body, env)
	case IfExpr:
		for _, sub := range []Expr{x.Cond, x.Then, x.Else} {
			if err := CheckExpr(sub, env); err != nil {
				return err
			}
		}
		tt, err := TypeOf(x.Then, env)
		if err != nil {
			return err
		}
		et, err := TypeOf(x.Else, env)
		if err != nil {
			return err
		}
		eq, err := Equal(tt, et, env)
		if err != nil {
			return err
		}
		if !eq {
			return mismatch(tt, et, x)
		}
		return nil
	case WhenExpr:
		if err := CheckConst(x.Cond, env); err != nil {
			return err
		}
		if _, err := AsBool(x.Cond, env); err != nil {
			return err
		}
		if err := CheckExpr(x.Then, env); err != nil {
			return err
		}
		return CheckExpr(x.Else, env)

	case ReferExpr:
		return CheckExpr(x.X, env)
	case DerefExpr:
		if err := CheckExpr(x.X, env); err != nil {
			return err
		}
		_, err := TypeOf(x, env)
		return err
	case DerefMutExpr:
		if err := CheckExpr(x.Ptr, env); err != nil {
			return err
		}
		if err := CheckExpr(x.Value, env); err != nil {
			return err
		}
		pt, err := TypeOf(x.Ptr, env)
		if err != nil {
			return err
		}
		ps, err := Simplify(pt, env)
		if err != nil {
			return err
		}
		ptr, ok := ps.(PointerType)
		if !ok {
			return mismatch(Ptr(Any), pt, x)
		}
		pointee := ptr.Inner
		vt, err := TypeOf(x.Value, env)
		if err != nil {
			return err
		}
		eq, err := Equal(vt, pointee, env)
		if err != nil {
			return err
		}
		if !eq {
			return mismatch(pointee, vt, x)
		}
		return nil
	case ApplyExpr:
		return checkApply(x, env)
	case ReturnExpr:
		if err := CheckExpr(x.Value, env); err != nil {
			return err
		}
		want, ok := env.ExpectedReturnType()
		if !ok {
			return nil
		}
		got, err := TypeOf(x.Value, env)
		if err != nil {
			return err
		}
		decays, err := CanDecayTo(got, want, env)
		if err != nil {
			return err
		}
		if !decays {
			return mismatch(want, got, x)
		}
		return nil

	case ArrayExpr:
		return checkHomogeneous(x.Elems, env)
	case TupleExpr:
		for _, elem := range x.Elems {
			if err := CheckExpr(elem, env); err != nil {
				return err
			}
		}
		return nil
	case StructExpr:
		for _, name := range sortedKeys(x.Fields) {
			if err := CheckExpr(x.Fields[name], env); err != nil {
				return err
			}
		}
		return nil
	case UnionExpr:
		return checkUnion(x.Type, x.Variant, x.Value, x, env)
	case AsExpr:
		if err := CheckExpr(x.X, env); err != nil {
			return err
		}
		return checkCast(x.X, x.Type, x, env)
	case MemberExpr:
		if err := CheckExpr(x.X, env); err != nil {
			return err
		}
		t, err := TypeOf(x.X, env)
		if err != nil {
			return err
		}
		_, _, err = MemberOffset(t, x.Field, x, env)
		return err
	case IndexExpr:
		if err := CheckExpr(x.X, env); err != nil {
			return err
		}
		if err := CheckExpr(x.Index, env); err != nil {
			return err
		}
		t, err := TypeOf(x.X, env)
		if err != nil {
			return err
		}
		if _, err := elemType(t, x, env); err != nil {
			return err
		}
		it, err := TypeOf(x.Index, env)
		if err != nil {
			return err
		}
		s, err := Simplify(it, env)
		if err != nil {
			return err
		}
		if _, ok := s.(IntType); !ok {
			return &Error{Kind: ErrInvalidIndex, Expected: Int, Found: it, Expr: x}
		}
		return nil
	case AnnotatedExpr:
		return Annotate(CheckExpr(x.X, env), x.Span)
	}
	return &Error{Kind: ErrMismatchedTypes, Expr: e}
}

// checkVar checks a variable initializer in env and binds the variable in
// scope. An annotation must equal the inferred type exactly.
func checkVar(v VarBinding, env, scope *Env, ctx Expr) error {
	if err := CheckExpr(v.Value, env); err != nil {
		return err
	}
	inferred, err := TypeOf(v.Value, env)
	if err != nil {
		return err
	}
	t := inferred
	if v.Type != nil {
		if err := CheckType(v.Type, env); err != nil {
			return err
		}
		eq, err := Equal(inferred, v.Type, env)
		if err != nil {
			return err
		}
		if !eq {
			return mismatch(v.Type, inferred, ctx)
		}
		t = v.Type
	}
	scope.DefineVar(v.Name, v.Mutable, t)
	return nil
}

func checkApply(app ApplyExpr, env *Env) error {
	if err := CheckExpr(app.Func, env); err != nil {
		return err
	}
	for _, arg := range app.Args {
		if err := CheckExpr(arg, env); err != nil {
			return err
		}
	}
	proc, err := procTypeOf(app, env)
	if err != nil {
		return err
	}
	found, err := typesOf(app.Args, env)
	if err != nil {
		return err
	}
	argErr := &Error{Kind: ErrMismatchedTypes, ExpectedList: proc.Args, FoundList: found, Expr: app}
	if len(proc.Args) != len(found) {
		return argErr
	}
	for i := range found {
		eq, err := Equal(proc.Args[i], found[i], env)
		if err != nil {
			return err
		}
		if !eq {
			return argErr
		}
	}
	return nil
}

// checkHomogeneous checks array elements, each of which must have the type
// of the element before it.
func checkHomogeneous(elems []Expr, env *Env) error {
	var last Type
	for _, elem := range elems {
		if err := CheckExpr(elem, env); err != nil {
			return err
		}
		t, err := TypeOf(elem, env)
		if err != nil {
			return err
		}
		if last != nil {
			eq, err := Equal(last, t, env)
			if err != nil {
				return err
			}
			if !eq {
				return mismatch(last, t, elem)
			}
		}
		last = t
	}
	return nil
}

func checkUnion(t Type, variant string, value Expr, ctx Expr, env *Env) error {
	if err := CheckType(t, env); err != nil {
		return err
	}
	s, err := Simplify(t, env)
	if err != nil {
		return err
	}
	u, ok := s.(UnionType)
	if !ok {
		return mismatch(Union(nil), t, ctx)
	}
	field, ok := u.Fields[variant]
	if !ok {
		return &Error{Kind: ErrVariantNotFound, Name: variant, Found: t, Expr: ctx}
	}
	if err := CheckExpr(value, env); err != nil {
		return err
	}
	vt, err := TypeOf(value, env)
	if err != nil {
		return err
	}
	eq, err := Equal(vt, field, env)
	if err != nil {
		return err
	}
	if !eq {
		return mismatch(field, vt, ctx)
	}
	return nil
}

func checkCast(x Expr, to Type, ctx Expr, env *Env) error {
	if err := CheckType(to, env); err != nil {
		return err
	}
	from, err := TypeOf(x, env)
	if err != nil {
		return err
	}
	ok, err := CanCastTo(from, to, env)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Kind: ErrInvalidAs, Found: from, Expected: to, Expr: ctx}
	}
	return nil
}

// CheckConst validates a constant expression.
func CheckConst(c ConstExpr, env *Env) error {
	switch x := c.(type) {
	case nil:
		return mismatch(Any, nil, nil)
	case NoneConst, NullConst, IntConst, FloatConst, CharConst, BoolConst:
		return nil
	case SizeOfTypeConst:
		if err := CheckType(x.Type, env); err != nil {
			return err
		}
		_, err := SizeOf(x.Type, env)
		return err
	case SizeOfExprConst:
		return CheckExpr(x.X, env)
	case TypeOfConst:
		return CheckExpr(x.X, env)
	case AsConst:
		if err := CheckConst(x.X, env); err != nil {
			return err
		}
		return checkCast(x.X, x.Type, x, env)
	case SymbolConst:
		scope := x.scope(env)
		if _, ok := scope.Var(x.Name); ok {
			return nil
		}
		if _, ok := scope.Const(x.Name); ok {
			return nil
		}
		if _, ok := scope.Proc(x.Name); ok {
			return nil
		}
		return &Error{Kind: ErrSymbolNotDefined, Name: x.Name}
	case OfConst:
		if err := CheckType(x.Type, env); err != nil {
			return err
		}
		s, err := Simplify(x.Type, env)
		if err != nil {
			return err
		}
		enum, ok := s.(EnumType)
		if !ok {
			return mismatch(Enum(x.Variant), x.Type, x)
		}
		if !enum.Has(x.Variant) {
			return &Error{Kind: ErrVariantNotFound, Name: x.Variant, Found: x.Type, Expr: x}
		}
		return nil
	case TupleConst:
		for _, elem := range x.Elems {
			if err := CheckConst(elem, env); err != nil {
				return err
			}
		}
		return nil
	case ArrayConst:
		return checkHomogeneous(constsToExprs(x.Elems), env)
	case StructConst:
		for _, name := range sortedKeys(x.Fields) {
			if err := CheckConst(x.Fields[name], env); err != nil {
				return err
			}
		}
		return nil
	case UnionConst:
		return checkUnion(x.Type, x.Variant, x.Value, x, env)
	case MonomorphizeConst:
		return checkMonomorphize(x, env)
	case *Procedure:
		return checkProcedure(x, env)
	case *PolyProcedure:
		return checkTemplate(x, env)
	case *CoreBuiltin:
		return checkSignature(x.Args, x.Ret, env)
	case *StandardBuiltin:
		return checkSignature(x.Args, x.Ret, env)
	}
	return &Error{Kind: ErrMismatchedTypes, Expr: c}
}

func checkSignature(args []Arg, ret Type, env *Env) error {
	for _, a := range args {
		if err := CheckType(a.Type, env); err != nil {
			return err
		}
	}
	return CheckType(ret, env)
}

// checkProcedure checks p once per compilation. A procedure that is already
// being checked further up is assumed sound, which lets recursive
// procedures refer to themselves.
func checkProcedure(p *Procedure, env *Env) error {
	if env.sess.checked[p] {
		return nil
	}
	env.sess.checked[p] = true
	span := trace.Begin(env.Tracer(), trace.ScopeProc, "check_proc", env.sess.parent).WithExtra("proc", p.Name)
	err := checkBody(p, p.Args, p.Ret, p.Body, env.NewProcScope())
	if err != nil {
		delete(env.sess.checked, p)
		trace.Error(env.Tracer(), trace.ScopeProc, "check_proc", err, span.ID())
		span.End("error")
		return err
	}
	span.End("")
	return nil
}

// checkTemplate checks a generic body with every type parameter bound to an
// opaque unit, so the body may not rely on any property of its parameters.
func checkTemplate(p *PolyProcedure, env *Env) error {
	if env.sess.checked[p] {
		return nil
	}
	env.sess.checked[p] = true
	span := trace.Begin(env.Tracer(), trace.ScopeProc, "check_template", env.sess.parent).WithExtra("proc", p.Name)
	scope := env.NewProcScope()
	for _, param := range p.TypeParams {
		scope.DefineType(param, Unit(param, None))
	}
	err := checkBody(p, p.Args, p.Ret, p.Body, scope)
	if err != nil {
		delete(env.sess.checked, p)
		trace.Error(env.Tracer(), trace.ScopeProc, "check_template", err, span.ID())
		span.End("error")
		return err
	}
	span.End("")
	return nil
}

func checkBody(self ConstExpr, args []Arg, ret Type, body Expr, scope *Env) error {
	if err := scope.DefineArgs(args); err != nil {
		return err
	}
	scope.SetExpectedReturnType(ret)
	if err := checkSignature(args, ret, scope); err != nil {
		return err
	}
	if err := CheckExpr(body, scope); err != nil {
		return err
	}
	bt, err := TypeOf(body, scope)
	if err != nil {
		return err
	}
	ok, err := CanDecayTo(bt, ret, scope)
	if err != nil {
		return err
	}
	if !ok {
		return mismatch(ret, bt, self)
	}
	return nil
}

// checkMonomorphize instantiates the template and checks the resulting
// procedure in the frame that declares the template. Each distinct
// instantiation is checked once; nesting of instantiations that keep
// producing new procedures is bounded.
func checkMonomorphize(m MonomorphizeConst, env *Env) error {
	if err := CheckConst(m.Template, env); err != nil {
		return err
	}
	if err := checkTypes(m.TypeArgs, env); err != nil {
		return err
	}
	proc, poly, home, err := instantiateTemplate(m, env)
	if err != nil {
		return err
	}
	if env.sess.checked[proc] {
		return nil
	}
	limit := env.Limits().MaxInstantiationDepth
	if env.sess.inst >= limit {
		return &Error{Kind: ErrRecursionLimit, Name: "instantiating " + poly.Name, Value: int64(limit), Expr: m}
	}
	env.sess.inst++
	defer func() { env.sess.inst-- }()
	return checkProcedure(proc, home)
}
