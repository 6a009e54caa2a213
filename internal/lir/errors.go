package lir

import (
	"errors"
	"fmt"
	"strings"

	"lirc/internal/source"
)

// ErrorKind enumerates checker failures.
type ErrorKind uint8

const (
	ErrTypeNotDefined ErrorKind = iota + 1
	ErrSymbolNotDefined
	ErrMismatchedTypes
	ErrInvalidAs
	ErrInvalidIndex
	ErrVariantNotFound
	ErrMemberNotFound
	ErrNegativeArrayLength
	ErrCyclicType
	ErrRecursionLimit
	ErrDuplicateArgument
	ErrImmutableAssign
	ErrUnsized
	ErrNotConstant
	ErrNotPolymorphic
)

var errorKindNames = [...]string{
	ErrTypeNotDefined:      "TypeNotDefined",
	ErrSymbolNotDefined:    "SymbolNotDefined",
	ErrMismatchedTypes:     "MismatchedTypes",
	ErrInvalidAs:           "InvalidAs",
	ErrInvalidIndex:        "InvalidIndex",
	ErrVariantNotFound:     "VariantNotFound",
	ErrMemberNotFound:      "MemberNotFound",
	ErrNegativeArrayLength: "NegativeArrayLength",
	ErrCyclicType:          "CyclicType",
	ErrRecursionLimit:      "RecursionLimit",
	ErrDuplicateArgument:   "DuplicateArgument",
	ErrImmutableAssign:     "ImmutableAssign",
	ErrUnsized:             "Unsized",
	ErrNotConstant:         "NotConstant",
	ErrNotPolymorphic:      "NotPolymorphic",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) && errorKindNames[k] != "" {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is the single error type produced by the checker. Which fields are
// set depends on Kind.
type Error struct {
	Kind     ErrorKind
	Name     string // symbol, member, variant or argument
	Expected Type
	Found    Type
	// ExpectedList and FoundList replace Expected/Found for argument lists.
	ExpectedList []Type
	FoundList    []Type
	Expr         Expr // offending expression, if any
	Value        int64
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var msg string
	switch e.Kind {
	case ErrTypeNotDefined:
		msg = fmt.Sprintf("type %q is not defined", e.Name)
	case ErrSymbolNotDefined:
		msg = fmt.Sprintf("symbol %q is not defined", e.Name)
	case ErrMismatchedTypes:
		if e.ExpectedList != nil || e.FoundList != nil {
			msg = fmt.Sprintf("mismatched types: expected (%s), found (%s)", joinTypes(e.ExpectedList), joinTypes(e.FoundList))
		} else {
			msg = fmt.Sprintf("mismatched types: expected %s, found %s", typeLabel(e.Expected), typeLabel(e.Found))
		}
	case ErrInvalidAs:
		msg = fmt.Sprintf("cannot cast %s to %s", typeLabel(e.Found), typeLabel(e.Expected))
	case ErrInvalidIndex:
		msg = fmt.Sprintf("cannot index or dereference a value of type %s", typeLabel(e.Found))
	case ErrVariantNotFound:
		msg = fmt.Sprintf("variant %q not found in %s", e.Name, typeLabel(e.Found))
	case ErrMemberNotFound:
		msg = fmt.Sprintf("member %q not found in %s", e.Name, typeLabel(e.Found))
	case ErrNegativeArrayLength:
		msg = fmt.Sprintf("negative array length %d", e.Value)
	case ErrCyclicType:
		msg = fmt.Sprintf("cyclic type definition %s", typeLabel(e.Found))
	case ErrRecursionLimit:
		msg = fmt.Sprintf("recursion limit %d reached while %s", e.Value, e.Name)
	case ErrDuplicateArgument:
		msg = fmt.Sprintf("duplicate argument %q", e.Name)
	case ErrImmutableAssign:
		if e.Name == "" {
			msg = "expression is not assignable"
		} else {
			msg = fmt.Sprintf("cannot assign to immutable %q", e.Name)
		}
	case ErrUnsized:
		msg = fmt.Sprintf("type %s has no size", typeLabel(e.Found))
	case ErrNotConstant:
		msg = "expression is not a compile-time constant"
	case ErrNotPolymorphic:
		msg = fmt.Sprintf("cannot monomorphize a value of type %s", typeLabel(e.Found))
	default:
		msg = fmt.Sprintf("checker error kind=%d", e.Kind)
	}
	if e.Expr != nil {
		msg += " in `" + shortExpr(e.Expr) + "`"
	}
	return msg
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func typeLabel(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = typeLabel(t)
	}
	return strings.Join(parts, ", ")
}

func shortExpr(e Expr) string {
	s := FormatExpr(e)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	const limit = 60
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit-3]) + "..."
	}
	return s
}

// AnnotatedError attaches a source location to an error raised beneath an AnnotatedExpr.
type AnnotatedError struct {
	Span source.Span
	Err  error
}

func (e *AnnotatedError) Error() string { return e.Err.Error() }
func (e *AnnotatedError) Unwrap() error { return e.Err }

// Annotate wraps err with span unless it already carries a location.
// The innermost annotation is the most precise one, so it wins.
func Annotate(err error, span source.Span) error {
	if err == nil {
		return nil
	}
	var ann *AnnotatedError
	if errors.As(err, &ann) {
		return err
	}
	return &AnnotatedError{Span: span, Err: err}
}

// KindOf returns the kind of the *Error inside err, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func mismatch(expected, found Type, expr Expr) *Error {
	return &Error{Kind: ErrMismatchedTypes, Expected: expected, Found: found, Expr: expr}
}
