package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// type checker and monomorphizer
	LirInfo                Code = 3000
	LirTypeNotDefined      Code = 3001
	LirSymbolNotDefined    Code = 3002
	LirMismatchedTypes     Code = 3003
	LirInvalidAs           Code = 3004
	LirInvalidIndex        Code = 3005
	LirVariantNotFound     Code = 3006
	LirMemberNotFound      Code = 3007
	LirNegativeArrayLength Code = 3008
	LirCyclicType          Code = 3009
	LirRecursionLimit      Code = 3010
	LirDuplicateArgument   Code = 3011
	LirImmutableAssign     Code = 3012
	LirUnsized             Code = 3013
	LirNotConstant         Code = 3014
	LirNotPolymorphic      Code = 3015
	LirInternal            Code = 3099

	// bundle input
	IOInfo           Code = 4000
	IOLoadFileError  Code = 4001
	IODecodeError    Code = 4002
	IOSchemaMismatch Code = 4003

	// lirc.toml
	ProjInfo          Code = 5000
	ProjInvalidConfig Code = 5001

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	LirInfo:                "Type checker information",
	LirTypeNotDefined:      "type is not defined",
	LirSymbolNotDefined:    "symbol is not defined",
	LirMismatchedTypes:     "mismatched types",
	LirInvalidAs:           "invalid cast",
	LirInvalidIndex:        "invalid index or dereference target",
	LirVariantNotFound:     "variant not found",
	LirMemberNotFound:      "member not found",
	LirNegativeArrayLength: "negative array length",
	LirCyclicType:          "cyclic type definition",
	LirRecursionLimit:      "recursion limit reached",
	LirDuplicateArgument:   "duplicate argument name",
	LirImmutableAssign:     "assignment to immutable binding",
	LirUnsized:             "type has no size",
	LirNotConstant:         "expression is not constant",
	LirNotPolymorphic:      "monomorphized value is not polymorphic",
	LirInternal:            "internal checker error",
	IOInfo:                 "I/O information",
	IOLoadFileError:        "I/O load file error",
	IODecodeError:          "bundle decode error",
	IOSchemaMismatch:       "unsupported bundle schema",
	ProjInfo:               "Project information",
	ProjInvalidConfig:      "invalid lirc.toml",
	ObsInfo:                "Observability information",
	ObsTimings:             "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LIR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
