package lir

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// Type is the closed sum of LIR types. A Type may be unsimplified (it contains
// SymbolType, LetType or ApplyType nodes) or concrete.
type Type interface {
	String() string
	isType()
}

type (
	AnyType   struct{}
	NeverType struct{}
	NoneType  struct{}
	// CellType is one raw VM memory cell.
	CellType  struct{}
	IntType   struct{}
	FloatType struct{}
	BoolType  struct{}
	CharType  struct{}

	EnumType struct {
		Variants *set.Set[string]
	}

	// UnitType is a nominal wrapper: two units are equal only when their names match.
	UnitType struct {
		Name  string
		Inner Type
	}

	// SymbolType is an unresolved reference into the environment. A symbol
	// handed out by a binding is tied to the frame that declares the name and
	// resolves there regardless of the scope it is used in.
	SymbolType struct {
		Name string
		home *Env
	}

	// LetType binds Name to Bound inside both Bound and Body.
	LetType struct {
		Name  string
		Bound Type
		Body  Type
	}

	ArrayType struct {
		Elem Type
		Len  ConstExpr
	}

	TupleType struct {
		Elems []Type
	}

	StructType struct {
		Fields map[string]Type
	}

	UnionType struct {
		Fields map[string]Type
	}

	ProcType struct {
		Args []Type
		Ret  Type
	}

	PointerType struct {
		Inner Type
	}

	// PolyType is a type scheme over Params.
	PolyType struct {
		Params []string
		Body   Type
	}

	// ApplyType instantiates a scheme; it stays lazy until simplified.
	ApplyType struct {
		Poly Type
		Args []Type
	}
)

func (AnyType) isType()     {}
func (NeverType) isType()   {}
func (NoneType) isType()    {}
func (CellType) isType()    {}
func (IntType) isType()     {}
func (FloatType) isType()   {}
func (BoolType) isType()    {}
func (CharType) isType()    {}
func (EnumType) isType()    {}
func (UnitType) isType()    {}
func (SymbolType) isType()  {}
func (LetType) isType()     {}
func (ArrayType) isType()   {}
func (TupleType) isType()   {}
func (StructType) isType()  {}
func (UnionType) isType()   {}
func (ProcType) isType()    {}
func (PointerType) isType() {}
func (PolyType) isType()    {}
func (ApplyType) isType()   {}

var (
	Any   Type = AnyType{}
	Never Type = NeverType{}
	None  Type = NoneType{}
	Cell  Type = CellType{}
	Int   Type = IntType{}
	Float Type = FloatType{}
	Bool  Type = BoolType{}
	Char  Type = CharType{}
)

func Enum(variants ...string) EnumType {
	return EnumType{Variants: set.From(variants)}
}

// Has reports whether variant is one of e's variants.
func (e EnumType) Has(variant string) bool {
	return e.Variants != nil && e.Variants.Contains(variant)
}

// Names returns the variants in sorted order.
func (e EnumType) Names() []string {
	if e.Variants == nil {
		return nil
	}
	names := e.Variants.Slice()
	slices.Sort(names)
	return names
}

// Index returns the position of variant in sorted order, or -1.
func (e EnumType) Index(variant string) int {
	if !e.Has(variant) {
		return -1
	}
	return slices.Index(e.Names(), variant)
}

func Unit(name string, inner Type) UnitType { return UnitType{Name: name, Inner: inner} }
func Sym(name string) SymbolType            { return SymbolType{Name: name} }
func Let(name string, bound, body Type) LetType {
	return LetType{Name: name, Bound: bound, Body: body}
}
func Array(elem Type, n int64) ArrayType { return ArrayType{Elem: elem, Len: IntConst{Value: n}} }
func Tuple(elems ...Type) TupleType      { return TupleType{Elems: elems} }
func Struct(fields map[string]Type) StructType {
	return StructType{Fields: fields}
}
func Union(fields map[string]Type) UnionType { return UnionType{Fields: fields} }
func Proc(args []Type, ret Type) ProcType    { return ProcType{Args: args, Ret: ret} }
func Ptr(inner Type) PointerType             { return PointerType{Inner: inner} }
func Poly(params []string, body Type) PolyType {
	return PolyType{Params: params, Body: body}
}
func Apply(poly Type, args ...Type) ApplyType { return ApplyType{Poly: poly, Args: args} }

// sortedKeys returns the field names of a struct or union in canonical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sameKeys[V, W any](a map[string]V, b map[string]W) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// isScalar reports whether t is a single-cell primitive.
func isScalar(t Type) bool {
	switch t.(type) {
	case CellType, IntType, FloatType, BoolType, CharType:
		return true
	}
	return false
}
