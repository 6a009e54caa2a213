package lir

// checkAssignable requires dst to denote storage the program may write:
// a mutable variable, a member or element of one, or anything reached
// through a pointer.
func checkAssignable(dst Expr, env *Env) error {
	switch x := dst.(type) {
	case AnnotatedExpr:
		return Annotate(checkAssignable(x.X, env), x.Span)
	case SymbolConst:
		b, ok := env.Var(x.Name)
		if !ok {
			if _, isConst := env.Const(x.Name); isConst {
				return &Error{Kind: ErrImmutableAssign, Name: x.Name, Expr: dst}
			}
			if _, isProc := env.Proc(x.Name); isProc {
				return &Error{Kind: ErrImmutableAssign, Name: x.Name, Expr: dst}
			}
			return &Error{Kind: ErrSymbolNotDefined, Name: x.Name}
		}
		if !b.Mutable {
			return &Error{Kind: ErrImmutableAssign, Name: x.Name, Expr: dst}
		}
		return nil
	case DerefExpr:
		return nil
	case MemberExpr:
		if through, err := isPointer(x.X, env); err != nil || through {
			return err
		}
		return checkAssignable(x.X, env)
	case IndexExpr:
		if through, err := isPointer(x.X, env); err != nil || through {
			return err
		}
		return checkAssignable(x.X, env)
	}
	return &Error{Kind: ErrImmutableAssign, Expr: dst}
}

func isPointer(e Expr, env *Env) (bool, error) {
	t, err := TypeOf(e, env)
	if err != nil {
		return false, err
	}
	s, err := Simplify(t, env)
	if err != nil {
		return false, err
	}
	_, ok := s.(PointerType)
	return ok, nil
}
