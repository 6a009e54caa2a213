package lir

import (
	"strconv"
	"strings"
)

func (AnyType) String() string   { return "Any" }
func (NeverType) String() string { return "Never" }
func (NoneType) String() string  { return "None" }
func (CellType) String() string  { return "Cell" }
func (IntType) String() string   { return "Int" }
func (FloatType) String() string { return "Float" }
func (BoolType) String() string  { return "Bool" }
func (CharType) String() string  { return "Char" }

func (t EnumType) String() string {
	return "enum {" + strings.Join(t.Names(), ", ") + "}"
}

func (t UnitType) String() string {
	return "unit " + quoteName(t.Name) + " = " + typeLabel(t.Inner)
}

func (t SymbolType) String() string { return quoteName(t.Name) }

func (t LetType) String() string {
	return "let " + quoteName(t.Name) + " = " + typeLabel(t.Bound) + " in " + typeLabel(t.Body)
}

func (t ArrayType) String() string {
	return "[" + typeLabel(t.Elem) + " * " + FormatExpr(t.Len) + "]"
}

func (t TupleType) String() string {
	return "(" + joinTypes(t.Elems) + ")"
}

func (t StructType) String() string { return "struct " + fieldsLabel(t.Fields) }

func (t UnionType) String() string { return "union " + fieldsLabel(t.Fields) }

func fieldsLabel(fields map[string]Type) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, name := range sortedKeys(fields) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteName(name))
		sb.WriteString(": ")
		sb.WriteString(typeLabel(fields[name]))
	}
	sb.WriteString("}")
	return sb.String()
}

func (t ProcType) String() string {
	return "proc(" + joinTypes(t.Args) + ") -> " + typeLabel(t.Ret)
}

func (t PointerType) String() string { return "&" + typeLabel(t.Inner) }

func (t PolyType) String() string {
	return "forall<" + strings.Join(t.Params, ", ") + "> " + typeLabel(t.Body)
}

func (t ApplyType) String() string {
	return "(" + typeLabel(t.Poly) + ")<" + joinTypes(t.Args) + ">"
}

// quoteName renders a name so that odd characters cannot forge structure in labels.
func quoteName(name string) string {
	for _, r := range name {
		if !(r == '_' || r == '$' || r == '#' || r == '\'' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7f) {
			return strconv.Quote(name)
		}
	}
	return name
}
