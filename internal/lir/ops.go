package lir

import "fmt"

// UnaryOp is the type rule of a unary operator. TypeCheck is responsible for
// the soundness of the operand as well.
type UnaryOp interface {
	String() string
	TypeCheck(x Expr, env *Env) error
	Type(x Expr, env *Env) (Type, error)
}

type BinaryOp interface {
	String() string
	TypeCheck(x, y Expr, env *Env) error
	Type(x, y Expr, env *Env) (Type, error)
}

type TernaryOp interface {
	String() string
	TypeCheck(x, y, z Expr, env *Env) error
	Type(x, y, z Expr, env *Env) (Type, error)
}

// AssignOp stores into dst. The checker verifies that dst is assignable
// before delegating to the operator.
type AssignOp interface {
	String() string
	TypeCheck(dst, src Expr, env *Env) error
	Type(dst, src Expr, env *Env) (Type, error)
}

// Family describes broad categories of types an operator accepts.
type Family uint16

const (
	FamilyNone Family = 0
	FamilyAny  Family = 1 << iota
	FamilyInt
	FamilyFloat
	FamilyCell
	FamilyChar
	FamilyBool
	FamilyEnum
	FamilyPointer
)

const (
	FamilyIntegral = FamilyInt | FamilyCell
	FamilyNumeric  = FamilyIntegral | FamilyFloat
	FamilyOrdered  = FamilyNumeric | FamilyChar
)

func (f Family) accepts(g Family) bool {
	return f&FamilyAny != 0 || f&g != 0
}

// example returns a representative type used as the "expected" side of a
// mismatch report.
func (f Family) example() Type {
	switch {
	case f&FamilyAny != 0:
		return Any
	case f&FamilyInt != 0:
		return Int
	case f&FamilyFloat != 0:
		return Float
	case f&FamilyCell != 0:
		return Cell
	case f&FamilyChar != 0:
		return Char
	case f&FamilyBool != 0:
		return Bool
	case f&FamilyPointer != 0:
		return Ptr(Any)
	}
	return Any
}

// familyOf classifies t after simplification. Units are nominal and belong
// to no family.
func familyOf(t Type, env *Env) (Family, error) {
	s, err := Simplify(t, env)
	if err != nil {
		return FamilyNone, err
	}
	switch s.(type) {
	case IntType:
		return FamilyInt, nil
	case FloatType:
		return FamilyFloat, nil
	case CellType:
		return FamilyCell, nil
	case CharType:
		return FamilyChar, nil
	case BoolType:
		return FamilyBool, nil
	case EnumType:
		return FamilyEnum, nil
	case PointerType:
		return FamilyPointer, nil
	}
	return FamilyNone, nil
}

// OpResult describes how to derive the result type of an operator.
type OpResult uint8

const (
	ResultLeft OpResult = iota
	ResultBool
)

// OpFlags annotate special handling for binary operators.
type OpFlags uint8

const (
	OpFlagNone OpFlags = 0
	// OpFlagSameType requires both operand types to be equal.
	OpFlagSameType OpFlags = 1 << iota
)

// BinarySpec lists operand families and the result for one overload.
type BinarySpec struct {
	Left   Family
	Right  Family
	Result OpResult
	Flags  OpFlags
}

type UnarySpec struct {
	Operand Family
	Result  OpResult
}

// Arithmetic, logic and comparison operators.
type BinaryOperator uint8

const (
	OpAdd BinaryOperator = iota + 1
	OpSub
	OpMul
	OpDiv
	OpRem
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShl: "<<", OpShr: ">>",
	OpAnd: "&&", OpOr: "||",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
}

var binarySpecTable = map[BinaryOperator][]BinarySpec{
	OpAdd: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: ResultLeft, Flags: OpFlagSameType},
		{Left: FamilyPointer, Right: FamilyInt, Result: ResultLeft},
	},
	OpSub: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: ResultLeft, Flags: OpFlagSameType},
		{Left: FamilyPointer, Right: FamilyInt, Result: ResultLeft},
	},
	OpMul:    {{Left: FamilyNumeric, Right: FamilyNumeric, Result: ResultLeft, Flags: OpFlagSameType}},
	OpDiv:    {{Left: FamilyNumeric, Right: FamilyNumeric, Result: ResultLeft, Flags: OpFlagSameType}},
	OpRem:    {{Left: FamilyIntegral, Right: FamilyIntegral, Result: ResultLeft, Flags: OpFlagSameType}},
	OpBitAnd: {{Left: FamilyIntegral, Right: FamilyIntegral, Result: ResultLeft, Flags: OpFlagSameType}},
	OpBitOr:  {{Left: FamilyIntegral, Right: FamilyIntegral, Result: ResultLeft, Flags: OpFlagSameType}},
	OpBitXor: {{Left: FamilyIntegral, Right: FamilyIntegral, Result: ResultLeft, Flags: OpFlagSameType}},
	OpShl:    {{Left: FamilyIntegral, Right: FamilyInt, Result: ResultLeft}},
	OpShr:    {{Left: FamilyIntegral, Right: FamilyInt, Result: ResultLeft}},
	OpAnd:    {{Left: FamilyBool, Right: FamilyBool, Result: ResultBool}},
	OpOr:     {{Left: FamilyBool, Right: FamilyBool, Result: ResultBool}},
	OpEq:     {{Left: FamilyAny, Right: FamilyAny, Result: ResultBool, Flags: OpFlagSameType}},
	OpNe:     {{Left: FamilyAny, Right: FamilyAny, Result: ResultBool, Flags: OpFlagSameType}},
	OpLt:     {{Left: FamilyOrdered, Right: FamilyOrdered, Result: ResultBool, Flags: OpFlagSameType}},
	OpLe:     {{Left: FamilyOrdered, Right: FamilyOrdered, Result: ResultBool, Flags: OpFlagSameType}},
	OpGt:     {{Left: FamilyOrdered, Right: FamilyOrdered, Result: ResultBool, Flags: OpFlagSameType}},
	OpGe:     {{Left: FamilyOrdered, Right: FamilyOrdered, Result: ResultBool, Flags: OpFlagSameType}},
}

// BinarySpecs returns operand rules for the given operator.
func BinarySpecs(op BinaryOperator) []BinarySpec {
	return binarySpecTable[op]
}

func (op BinaryOperator) String() string {
	if int(op) < len(binaryOpNames) && binaryOpNames[op] != "" {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOperator(%d)", op)
}

func (op BinaryOperator) TypeCheck(x, y Expr, env *Env) error {
	if err := CheckExpr(x, env); err != nil {
		return err
	}
	if err := CheckExpr(y, env); err != nil {
		return err
	}
	_, err := op.Type(x, y, env)
	return err
}

func (op BinaryOperator) Type(x, y Expr, env *Env) (Type, error) {
	lt, err := TypeOf(x, env)
	if err != nil {
		return nil, err
	}
	rt, err := TypeOf(y, env)
	if err != nil {
		return nil, err
	}
	return resolveBinary(op, lt, rt, BinaryExpr{Op: op, X: x, Y: y}, env)
}

// resolveBinary picks the first overload accepting both operand types.
func resolveBinary(op BinaryOperator, lt, rt Type, expr Expr, env *Env) (Type, error) {
	specs := binarySpecTable[op]
	if len(specs) == 0 {
		return nil, &Error{Kind: ErrMismatchedTypes, Found: lt, Expr: expr}
	}
	lf, err := familyOf(lt, env)
	if err != nil {
		return nil, err
	}
	rf, err := familyOf(rt, env)
	if err != nil {
		return nil, err
	}

	var candidate *BinarySpec
	for i, spec := range specs {
		if !spec.Left.accepts(lf) {
			continue
		}
		if candidate == nil {
			candidate = &specs[i]
		}
		if !spec.Right.accepts(rf) {
			continue
		}
		if spec.Flags&OpFlagSameType != 0 {
			eq, err := Equal(lt, rt, env)
			if err != nil {
				return nil, err
			}
			if !eq {
				continue
			}
		}
		if spec.Result == ResultBool {
			return Bool, nil
		}
		return lt, nil
	}
	if candidate != nil {
		expected := lt
		if candidate.Flags&OpFlagSameType == 0 {
			expected = candidate.Right.example()
		}
		return nil, mismatch(expected, rt, expr)
	}
	return nil, mismatch(specs[0].Left.example(), lt, expr)
}

type UnaryOperator uint8

const (
	OpNegate UnaryOperator = iota + 1
	OpNot
	OpBitNot
)

var unaryOpNames = [...]string{OpNegate: "-", OpNot: "!", OpBitNot: "~"}

var unarySpecTable = map[UnaryOperator]UnarySpec{
	OpNegate: {Operand: FamilyInt | FamilyFloat, Result: ResultLeft},
	OpNot:    {Operand: FamilyBool, Result: ResultBool},
	OpBitNot: {Operand: FamilyIntegral, Result: ResultLeft},
}

// UnarySpecFor returns the operand rule of op.
func UnarySpecFor(op UnaryOperator) (UnarySpec, bool) {
	spec, ok := unarySpecTable[op]
	return spec, ok
}

func (op UnaryOperator) String() string {
	if int(op) < len(unaryOpNames) && unaryOpNames[op] != "" {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("UnaryOperator(%d)", op)
}

func (op UnaryOperator) TypeCheck(x Expr, env *Env) error {
	if err := CheckExpr(x, env); err != nil {
		return err
	}
	_, err := op.Type(x, env)
	return err
}

func (op UnaryOperator) Type(x Expr, env *Env) (Type, error) {
	t, err := TypeOf(x, env)
	if err != nil {
		return nil, err
	}
	spec, ok := unarySpecTable[op]
	if !ok {
		return nil, &Error{Kind: ErrMismatchedTypes, Found: t, Expr: UnaryExpr{Op: op, X: x}}
	}
	f, err := familyOf(t, env)
	if err != nil {
		return nil, err
	}
	if !spec.Operand.accepts(f) {
		return nil, mismatch(spec.Operand.example(), t, UnaryExpr{Op: op, X: x})
	}
	if spec.Result == ResultBool {
		return Bool, nil
	}
	return t, nil
}

type TernaryOperator uint8

// OpSelect yields Y when X holds and Z otherwise, evaluating both.
const OpSelect TernaryOperator = 1

func (op TernaryOperator) String() string {
	if op == OpSelect {
		return "select"
	}
	return fmt.Sprintf("TernaryOperator(%d)", op)
}

func (op TernaryOperator) TypeCheck(x, y, z Expr, env *Env) error {
	for _, e := range []Expr{x, y, z} {
		if err := CheckExpr(e, env); err != nil {
			return err
		}
	}
	_, err := op.Type(x, y, z, env)
	return err
}

func (op TernaryOperator) Type(x, y, z Expr, env *Env) (Type, error) {
	expr := TernaryExpr{Op: op, X: x, Y: y, Z: z}
	if op != OpSelect {
		return nil, &Error{Kind: ErrMismatchedTypes, Expr: expr}
	}
	ct, err := TypeOf(x, env)
	if err != nil {
		return nil, err
	}
	if ok, err := Equal(ct, Bool, env); err != nil {
		return nil, err
	} else if !ok {
		return nil, mismatch(Bool, ct, expr)
	}
	yt, err := TypeOf(y, env)
	if err != nil {
		return nil, err
	}
	zt, err := TypeOf(z, env)
	if err != nil {
		return nil, err
	}
	if ok, err := Equal(yt, zt, env); err != nil {
		return nil, err
	} else if !ok {
		return nil, mismatch(yt, zt, expr)
	}
	return yt, nil
}

// AssignOperator is plain or compound assignment.
type AssignOperator uint8

const (
	OpAssign AssignOperator = iota + 1
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpRemAssign
	OpBitAndAssign
	OpBitOrAssign
	OpBitXorAssign
	OpShlAssign
	OpShrAssign
)

var compoundAssign = map[AssignOperator]BinaryOperator{
	OpAddAssign:    OpAdd,
	OpSubAssign:    OpSub,
	OpMulAssign:    OpMul,
	OpDivAssign:    OpDiv,
	OpRemAssign:    OpRem,
	OpBitAndAssign: OpBitAnd,
	OpBitOrAssign:  OpBitOr,
	OpBitXorAssign: OpBitXor,
	OpShlAssign:    OpShl,
	OpShrAssign:    OpShr,
}

func (op AssignOperator) String() string {
	if op == OpAssign {
		return "="
	}
	if bin, ok := compoundAssign[op]; ok {
		return bin.String() + "="
	}
	return fmt.Sprintf("AssignOperator(%d)", op)
}

func (op AssignOperator) TypeCheck(dst, src Expr, env *Env) error {
	if err := CheckExpr(dst, env); err != nil {
		return err
	}
	if err := CheckExpr(src, env); err != nil {
		return err
	}
	dt, err := TypeOf(dst, env)
	if err != nil {
		return err
	}
	st, err := TypeOf(src, env)
	if err != nil {
		return err
	}
	expr := AssignExpr{Op: op, Dst: dst, Src: src}
	if op != OpAssign {
		bin, ok := compoundAssign[op]
		if !ok {
			return &Error{Kind: ErrMismatchedTypes, Expr: expr}
		}
		if st, err = resolveBinary(bin, dt, st, expr, env); err != nil {
			return err
		}
	}
	ok, err := CanDecayTo(st, dt, env)
	if err != nil {
		return err
	}
	if !ok {
		return mismatch(dt, st, expr)
	}
	return nil
}

// Type of an assignment is None.
func (op AssignOperator) Type(dst, src Expr, env *Env) (Type, error) {
	return None, nil
}

// ParseBinaryOperator looks an operator up by its printed symbol.
func ParseBinaryOperator(s string) (BinaryOperator, bool) {
	for op := OpAdd; op <= OpGe; op++ {
		if binaryOpNames[op] == s {
			return op, true
		}
	}
	return 0, false
}

func ParseUnaryOperator(s string) (UnaryOperator, bool) {
	for op := OpNegate; op <= OpBitNot; op++ {
		if unaryOpNames[op] == s {
			return op, true
		}
	}
	return 0, false
}

func ParseTernaryOperator(s string) (TernaryOperator, bool) {
	if s == OpSelect.String() {
		return OpSelect, true
	}
	return 0, false
}

func ParseAssignOperator(s string) (AssignOperator, bool) {
	for op := OpAssign; op <= OpShrAssign; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}
