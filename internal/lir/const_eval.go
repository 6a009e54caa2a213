package lir

import "math"

// Eval reduces c to a literal, aggregate of literals, enum variant or
// procedure. Symbols are resolved through the constant and procedure
// namespaces; a variable is not a constant.
func Eval(c ConstExpr, env *Env) (ConstExpr, error) {
	switch x := c.(type) {
	case NoneConst, NullConst, IntConst, FloatConst, CharConst, BoolConst, OfConst,
		*Procedure, *PolyProcedure, *CoreBuiltin, *StandardBuiltin:
		return c, nil
	case SymbolConst:
		v, _, err := evalSymbol(x, env)
		return v, err
	case SizeOfTypeConst:
		n, err := SizeOf(x.Type, env)
		if err != nil {
			return nil, err
		}
		return IntConst{Value: int64(n)}, nil
	case SizeOfExprConst:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return nil, err
		}
		n, err := SizeOf(t, env)
		if err != nil {
			return nil, err
		}
		return IntConst{Value: int64(n)}, nil
	case TypeOfConst:
		return nil, &Error{Kind: ErrNotConstant, Expr: x}
	case AsConst:
		v, err := Eval(x.X, env)
		if err != nil {
			return nil, err
		}
		return convertConst(v, x, env)
	case TupleConst:
		elems, err := evalAll(x.Elems, env)
		if err != nil {
			return nil, err
		}
		return TupleConst{Elems: elems}, nil
	case ArrayConst:
		elems, err := evalAll(x.Elems, env)
		if err != nil {
			return nil, err
		}
		return ArrayConst{Elems: elems}, nil
	case StructConst:
		out := StructConst{Fields: make(map[string]ConstExpr, len(x.Fields))}
		for _, name := range sortedKeys(x.Fields) {
			v, err := Eval(x.Fields[name], env)
			if err != nil {
				return nil, err
			}
			out.Fields[name] = v
		}
		return out, nil
	case UnionConst:
		v, err := Eval(x.Value, env)
		if err != nil {
			return nil, err
		}
		return UnionConst{Type: x.Type, Variant: x.Variant, Value: v}, nil
	case MonomorphizeConst:
		proc, _, _, err := instantiateTemplate(x, env)
		if err != nil {
			return nil, err
		}
		return proc, nil
	default:
		return nil, &Error{Kind: ErrNotConstant, Expr: c}
	}
}

func evalAll(cs []ConstExpr, env *Env) ([]ConstExpr, error) {
	out := make([]ConstExpr, len(cs))
	for i, c := range cs {
		v, err := Eval(c, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AsInt evaluates c and requires an integer.
func AsInt(c ConstExpr, env *Env) (int64, error) {
	v, err := Eval(c, env)
	if err != nil {
		return 0, err
	}
	if n, ok := v.(IntConst); ok {
		return n.Value, nil
	}
	found, err := TypeOf(v, env)
	if err != nil {
		return 0, err
	}
	return 0, mismatch(Int, found, c)
}

// AsBool evaluates c and requires a boolean.
func AsBool(c ConstExpr, env *Env) (bool, error) {
	v, err := Eval(c, env)
	if err != nil {
		return false, err
	}
	if b, ok := v.(BoolConst); ok {
		return b.Value, nil
	}
	found, err := TypeOf(v, env)
	if err != nil {
		return false, err
	}
	return false, mismatch(Bool, found, c)
}

// convertConst folds a cast between scalar constants. Casts that keep the
// value's representation (units, decays) return the value unchanged.
func convertConst(v ConstExpr, as AsConst, env *Env) (ConstExpr, error) {
	from, err := TypeOf(v, env)
	if err != nil {
		return nil, err
	}
	ok, err := CanCastTo(from, as.Type, env)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &Error{Kind: ErrInvalidAs, Found: from, Expected: as.Type, Expr: as}
	}
	target, err := Simplify(as.Type, env)
	if err != nil {
		return nil, err
	}
	for {
		u, ok := target.(UnitType)
		if !ok {
			break
		}
		if target, err = Simplify(u.Inner, env); err != nil {
			return nil, err
		}
	}

	var n int64
	var isNum bool
	switch x := v.(type) {
	case IntConst:
		n, isNum = x.Value, true
	case CharConst:
		n, isNum = int64(x.Value), true
	case BoolConst:
		isNum = true
		if x.Value {
			n = 1
		}
	case FloatConst:
		switch target.(type) {
		case FloatType:
			return x, nil
		case IntType, CellType:
			if math.IsNaN(x.Value) || math.IsInf(x.Value, 0) {
				return nil, &Error{Kind: ErrInvalidAs, Found: from, Expected: as.Type, Expr: as}
			}
			return IntConst{Value: int64(x.Value)}, nil
		}
		return v, nil
	case OfConst:
		enum, err := Simplify(x.Type, env)
		if err != nil {
			return nil, err
		}
		if e, ok := enum.(EnumType); ok {
			n, isNum = int64(e.Index(x.Variant)), true
		}
	}
	if !isNum {
		return v, nil
	}
	switch target.(type) {
	case IntType, CellType:
		return IntConst{Value: n}, nil
	case FloatType:
		return FloatConst{Value: float64(n)}, nil
	case CharType:
		if n < 0 || n > math.MaxInt32 {
			return nil, &Error{Kind: ErrInvalidAs, Found: from, Expected: as.Type, Expr: as}
		}
		return CharConst{Value: rune(n)}, nil
	case BoolType:
		return BoolConst{Value: n != 0}, nil
	}
	return v, nil
}

// evalSymbol resolves x to the constant value or procedure it names, along
// with the frame declaring that value. A constant is evaluated in its own
// frame.
func evalSymbol(x SymbolConst, env *Env) (ConstExpr, *Env, error) {
	if err := env.enter("evaluating " + x.Name); err != nil {
		return nil, nil, err
	}
	defer env.leave()
	scope := x.scope(env)
	if v, f, ok := scope.constBinding(x.Name); ok {
		return evalHome(v, f)
	}
	if p, f, ok := scope.procBinding(x.Name); ok {
		return p, f, nil
	}
	if _, ok := scope.Var(x.Name); ok {
		return nil, nil, &Error{Kind: ErrNotConstant, Expr: x}
	}
	return nil, nil, &Error{Kind: ErrSymbolNotDefined, Name: x.Name}
}

// evalHome is Eval that also returns the frame the value was declared in:
// the binding's frame when c names one, env otherwise.
func evalHome(c ConstExpr, env *Env) (ConstExpr, *Env, error) {
	if x, ok := c.(SymbolConst); ok {
		return evalSymbol(x, env)
	}
	v, err := Eval(c, env)
	if err != nil {
		return nil, nil, err
	}
	return v, env, nil
}

func evalTemplate(m MonomorphizeConst, env *Env) (*PolyProcedure, *Env, error) {
	v, home, err := evalHome(m.Template, env)
	if err != nil {
		return nil, nil, err
	}
	poly, ok := v.(*PolyProcedure)
	if !ok {
		found, err := TypeOf(v, home)
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, &Error{Kind: ErrNotPolymorphic, Found: home.Close(found), Expr: m}
	}
	return poly, home, nil
}

// instantiateTemplate instantiates the template of m with its type arguments
// closed over env. The procedure it returns belongs to the frame declaring
// the template, which is returned as well.
func instantiateTemplate(m MonomorphizeConst, env *Env) (*Procedure, *PolyProcedure, *Env, error) {
	poly, home, err := evalTemplate(m, env)
	if err != nil {
		return nil, nil, nil, err
	}
	proc, err := poly.Monomorphize(closeTypes(m.TypeArgs, env), home)
	if err != nil {
		return nil, nil, nil, err
	}
	return proc, poly, home, nil
}

func closeTypes(ts []Type, env *Env) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = env.Close(t)
	}
	return out
}
