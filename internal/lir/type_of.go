package lir

// TypeOf infers the type of e without checking its soundness. It is the
// get_type half of every checker rule; CheckExpr calls it after checking the
// children, so the errors it can raise on an already checked tree are rare.
func TypeOf(e Expr, env *Env) (Type, error) {
	switch x := e.(type) {
	case nil:
		return nil, mismatch(Any, nil, nil)
	case ConstExpr:
		return typeOfConst(x, env)
	case UnaryExpr:
		return x.Op.Type(x.X, env)
	case BinaryExpr:
		return x.Op.Type(x.X, x.Y, env)
	case TernaryExpr:
		return x.Op.Type(x.X, x.Y, x.Z, env)
	case AssignExpr:
		return x.Op.Type(x.Dst, x.Src, env)
	case ManyExpr:
		if len(x.Exprs) == 0 {
			return None, nil
		}
		return TypeOf(x.Exprs[len(x.Exprs)-1], env)
	case LetConstExpr:
		scope := env.NewScope()
		scope.DefineConst(x.Name, x.Value)
		return TypeOf(x.Body, scope)
	case LetConstsExpr:
		scope := env.NewScope()
		for _, b := range x.Consts {
			scope.DefineConst(b.Name, b.Value)
		}
		return TypeOf(x.Body, scope)
	case LetProcExpr:
		scope := env.NewScope()
		scope.DefineProc(x.Name, x.Proc)
		return TypeOf(x.Body, scope)
	case LetProcsExpr:
		scope := env.NewScope()
		for _, b := range x.Procs {
			scope.DefineProc(b.Name, b.Proc)
		}
		return TypeOf(x.Body, scope)
	case LetTypeExpr:
		scope := env.NewScope()
		scope.DefineType(x.Name, x.Type)
		return localType(x.Body, scope)
	case LetTypesExpr:
		scope := env.NewScope()
		for _, b := range x.Types {
			scope.DefineType(b.Name, b.Type)
		}
		return localType(x.Body, scope)
	case LetVarExpr:
		scope, err := defineVar(x.Var, env, env.NewScope())
		if err != nil {
			return nil, err
		}
		return TypeOf(x.Body, scope)
	case LetVarsExpr:
		scope := env.NewScope()
		for _, v := range x.Vars {
			if _, err := defineVar(v, scope, scope); err != nil {
				return nil, err
			}
		}
		return TypeOf(x.Body, scope)
	case WhileExpr, DerefMutExpr:
		return None, nil
	case IfExpr:
		return TypeOf(x.Then, env)
	case WhenExpr:
		cond, err := AsBool(x.Cond, env)
		if err != nil {
			return nil, err
		}
		if cond {
			return TypeOf(x.Then, env)
		}
		return TypeOf(x.Else, env)
	case ReferExpr:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return nil, err
		}
		return Ptr(t), nil
	case DerefExpr:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return nil, err
		}
		s, err := Simplify(t, env)
		if err != nil {
			return nil, err
		}
		ptr, ok := s.(PointerType)
		if !ok {
			return nil, mismatch(Ptr(Any), t, x)
		}
		return ptr.Inner, nil
	case ApplyExpr:
		proc, err := procTypeOf(x, env)
		if err != nil {
			return nil, err
		}
		return proc.Ret, nil
	case ReturnExpr:
		return Never, nil
	case ArrayExpr:
		if len(x.Elems) == 0 {
			return Array(Any, 0), nil
		}
		elem, err := TypeOf(x.Elems[0], env)
		if err != nil {
			return nil, err
		}
		return Array(elem, int64(len(x.Elems))), nil
	case TupleExpr:
		elems, err := typesOf(x.Elems, env)
		if err != nil {
			return nil, err
		}
		return Tuple(elems...), nil
	case StructExpr:
		fields := make(map[string]Type, len(x.Fields))
		for _, name := range sortedKeys(x.Fields) {
			t, err := TypeOf(x.Fields[name], env)
			if err != nil {
				return nil, err
			}
			fields[name] = t
		}
		return Struct(fields), nil
	case UnionExpr:
		return x.Type, nil
	case AsExpr:
		return x.Type, nil
	case MemberExpr:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return nil, err
		}
		return MemberType(t, x.Field, x, env)
	case IndexExpr:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return nil, err
		}
		return elemType(t, x, env)
	case AnnotatedExpr:
		t, err := TypeOf(x.X, env)
		return t, Annotate(err, x.Span)
	}
	return nil, &Error{Kind: ErrMismatchedTypes, Expr: e}
}

func typeOfConst(c ConstExpr, env *Env) (Type, error) {
	switch x := c.(type) {
	case NoneConst:
		return None, nil
	case NullConst:
		return Ptr(Any), nil
	case IntConst:
		return Int, nil
	case FloatConst:
		return Float, nil
	case CharConst:
		return Char, nil
	case BoolConst:
		return Bool, nil
	case SizeOfTypeConst, SizeOfExprConst:
		return Int, nil
	case TypeOfConst:
		return TypeOf(x.X, env)
	case AsConst:
		return x.Type, nil
	case SymbolConst:
		// the type of a binding is read in the frame that declares it
		if x.home == nil {
			if b, f, ok := env.varBinding(x.Name); ok {
				return f.Close(b.Type), nil
			}
		}
		if err := env.enter("inferring " + x.Name); err != nil {
			return nil, err
		}
		defer env.leave()
		scope := x.scope(env)
		v, f, ok := scope.constBinding(x.Name)
		if !ok {
			v, f, ok = scope.procBinding(x.Name)
		}
		if !ok {
			return nil, &Error{Kind: ErrSymbolNotDefined, Name: x.Name}
		}
		t, err := TypeOf(v, f)
		if err != nil {
			return nil, err
		}
		return f.Close(t), nil
	case OfConst:
		return x.Type, nil
	case TupleConst:
		elems, err := typesOf(constsToExprs(x.Elems), env)
		if err != nil {
			return nil, err
		}
		return Tuple(elems...), nil
	case ArrayConst:
		if len(x.Elems) == 0 {
			return Array(Any, 0), nil
		}
		elem, err := TypeOf(x.Elems[0], env)
		if err != nil {
			return nil, err
		}
		return Array(elem, int64(len(x.Elems))), nil
	case StructConst:
		fields := make(map[string]Type, len(x.Fields))
		for _, name := range sortedKeys(x.Fields) {
			t, err := TypeOf(x.Fields[name], env)
			if err != nil {
				return nil, err
			}
			fields[name] = t
		}
		return Struct(fields), nil
	case UnionConst:
		return x.Type, nil
	case MonomorphizeConst:
		poly, home, err := evalTemplate(x, env)
		if err != nil {
			return nil, err
		}
		return SimplifyUntilConcrete(Apply(home.Close(poly.Type()), closeTypes(x.TypeArgs, env)...), env)
	case *Procedure:
		return x.Type(), nil
	case *PolyProcedure:
		return x.Type(), nil
	case *CoreBuiltin:
		return x.Type(), nil
	case *StandardBuiltin:
		return x.Type(), nil
	}
	return nil, &Error{Kind: ErrMismatchedTypes, Expr: c}
}

func typesOf(es []Expr, env *Env) ([]Type, error) {
	out := make([]Type, len(es))
	for i, e := range es {
		t, err := TypeOf(e, env)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// defineVar binds v in scope. The initializer is inferred in env.
func defineVar(v VarBinding, env, scope *Env) (*Env, error) {
	t := v.Type
	if t == nil {
		inferred, err := TypeOf(v.Value, env)
		if err != nil {
			return nil, err
		}
		t = inferred
	}
	scope.DefineVar(v.Name, v.Mutable, t)
	return scope, nil
}

// localType infers the type of a LetType body and resolves the local type
// names it mentions, since they are not visible outside the binding.
func localType(body Expr, scope *Env) (Type, error) {
	t, err := TypeOf(body, scope)
	if err != nil {
		return nil, err
	}
	return SimplifyUntilConcrete(t, scope)
}

// procTypeOf returns the signature of the procedure being applied.
func procTypeOf(app ApplyExpr, env *Env) (ProcType, error) {
	ft, err := TypeOf(app.Func, env)
	if err != nil {
		return ProcType{}, err
	}
	s, err := Simplify(ft, env)
	if err != nil {
		return ProcType{}, err
	}
	proc, ok := s.(ProcType)
	if !ok {
		found := make([]Type, len(app.Args))
		for i := range found {
			found[i] = Any
		}
		return ProcType{}, mismatch(Proc(found, Any), ft, app)
	}
	return proc, nil
}

// elemType is the element type reached by indexing a value of type t.
// Indexing a pointer to an array reaches the array's elements.
func elemType(t Type, ctx Expr, env *Env) (Type, error) {
	s, err := Simplify(t, env)
	if err != nil {
		return nil, err
	}
	switch x := s.(type) {
	case ArrayType:
		return x.Elem, nil
	case PointerType:
		inner, err := Simplify(x.Inner, env)
		if err != nil {
			return nil, err
		}
		if arr, ok := inner.(ArrayType); ok {
			return arr.Elem, nil
		}
		return x.Inner, nil
	}
	return nil, &Error{Kind: ErrInvalidIndex, Found: t, Expr: ctx}
}
