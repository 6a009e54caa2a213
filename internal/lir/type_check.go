package lir

// CheckType validates that t is internally sound: every symbol resolves,
// every array length is a non-negative integer constant, and every component
// type is itself sound. Poly parameters are bound to opaque units while
// their body is checked.
func CheckType(t Type, env *Env) error {
	switch x := t.(type) {
	case nil:
		return mismatch(Any, nil, nil)
	case SymbolType:
		if _, ok := x.scope(env).Type(x.Name); !ok {
			return &Error{Kind: ErrTypeNotDefined, Name: x.Name}
		}
		return nil
	case LetType:
		scope := env.NewScope()
		scope.DefineType(x.Name, x.Bound)
		if err := CheckType(x.Bound, scope); err != nil {
			return err
		}
		return CheckType(x.Body, scope)
	case UnitType:
		return CheckType(x.Inner, env)
	case ArrayType:
		if err := CheckType(x.Elem, env); err != nil {
			return err
		}
		if err := CheckConst(x.Len, env); err != nil {
			return err
		}
		n, err := AsInt(x.Len, env)
		if err != nil {
			return err
		}
		if n < 0 {
			return &Error{Kind: ErrNegativeArrayLength, Value: n, Expr: x.Len}
		}
		return nil
	case TupleType:
		return checkTypes(x.Elems, env)
	case StructType:
		return checkFields(x.Fields, env)
	case UnionType:
		return checkFields(x.Fields, env)
	case ProcType:
		if err := checkTypes(x.Args, env); err != nil {
			return err
		}
		return CheckType(x.Ret, env)
	case PointerType:
		return CheckType(x.Inner, env)
	case PolyType:
		scope := env.NewScope()
		for _, p := range x.Params {
			scope.DefineType(p, Unit(p, None))
		}
		return CheckType(x.Body, scope)
	case ApplyType:
		if err := CheckType(x.Poly, env); err != nil {
			return err
		}
		if err := checkTypes(x.Args, env); err != nil {
			return err
		}
		_, err := Simplify(x, env)
		return err
	default:
		return nil
	}
}

func checkTypes(ts []Type, env *Env) error {
	for _, t := range ts {
		if err := CheckType(t, env); err != nil {
			return err
		}
	}
	return nil
}

func checkFields(fields map[string]Type, env *Env) error {
	for _, name := range sortedKeys(fields) {
		if err := CheckType(fields[name], env); err != nil {
			return err
		}
	}
	return nil
}
