package diag

import (
	"errors"

	"lirc/internal/lir"
	"lirc/internal/source"
)

var lirCodes = map[lir.ErrorKind]Code{
	lir.ErrTypeNotDefined:      LirTypeNotDefined,
	lir.ErrSymbolNotDefined:    LirSymbolNotDefined,
	lir.ErrMismatchedTypes:     LirMismatchedTypes,
	lir.ErrInvalidAs:           LirInvalidAs,
	lir.ErrInvalidIndex:        LirInvalidIndex,
	lir.ErrVariantNotFound:     LirVariantNotFound,
	lir.ErrMemberNotFound:      LirMemberNotFound,
	lir.ErrNegativeArrayLength: LirNegativeArrayLength,
	lir.ErrCyclicType:          LirCyclicType,
	lir.ErrRecursionLimit:      LirRecursionLimit,
	lir.ErrDuplicateArgument:   LirDuplicateArgument,
	lir.ErrImmutableAssign:     LirImmutableAssign,
	lir.ErrUnsized:             LirUnsized,
	lir.ErrNotConstant:         LirNotConstant,
	lir.ErrNotPolymorphic:      LirNotPolymorphic,
}

// CodeForKind maps a checker error kind to its diagnostic code.
func CodeForKind(k lir.ErrorKind) Code {
	if c, ok := lirCodes[k]; ok {
		return c
	}
	return LirInternal
}

// FromError converts a checker error into an error diagnostic. The span of the
// innermost annotation becomes the primary location; without one the
// diagnostic points at fallback and HasSpan is false.
func FromError(err error, fallback source.Span) Diagnostic {
	d := Diagnostic{
		Severity: SevError,
		Code:     CodeForKind(lir.KindOf(err)),
		Primary:  fallback,
	}
	if err != nil {
		d.Message = err.Error()
	}
	var ann *lir.AnnotatedError
	if errors.As(err, &ann) {
		d.Primary = ann.Span
		d.HasSpan = true
	}
	var le *lir.Error
	if errors.As(err, &le) && le.Kind == lir.ErrRecursionLimit {
		d = d.WithNote(d.Primary, "raise [check] limits in lirc.toml if the program is expected to nest this deeply")
	}
	return d
}
