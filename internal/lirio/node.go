package lirio

// Kind tags a wire node. Expression, constant and type nodes share one
// namespace; the decoder knows from the position which family it expects.
type Kind string

const (
	// types
	KAnyT     Kind = "t.any"
	KNeverT   Kind = "t.never"
	KNoneT    Kind = "t.none"
	KCellT    Kind = "t.cell"
	KIntT     Kind = "t.int"
	KFloatT   Kind = "t.float"
	KBoolT    Kind = "t.bool"
	KCharT    Kind = "t.char"
	KEnumT    Kind = "t.enum"
	KUnitT    Kind = "t.unit"
	KSymbolT  Kind = "t.sym"
	KLetT     Kind = "t.let"
	KArrayT   Kind = "t.array"
	KTupleT   Kind = "t.tuple"
	KStructT  Kind = "t.struct"
	KUnionT   Kind = "t.union"
	KProcT    Kind = "t.proc"
	KPointerT Kind = "t.ptr"
	KPolyT    Kind = "t.poly"
	KApplyT   Kind = "t.apply"

	// constants
	KNone         Kind = "c.none"
	KNull         Kind = "c.null"
	KInt          Kind = "c.int"
	KFloat        Kind = "c.float"
	KChar         Kind = "c.char"
	KBool         Kind = "c.bool"
	KSizeOfType   Kind = "c.sizeof_type"
	KSizeOfExpr   Kind = "c.sizeof_expr"
	KTypeOf       Kind = "c.typeof"
	KAsConst      Kind = "c.as"
	KSymbol       Kind = "c.sym"
	KOf           Kind = "c.of"
	KTupleConst   Kind = "c.tuple"
	KArrayConst   Kind = "c.array"
	KStructConst  Kind = "c.struct"
	KUnionConst   Kind = "c.union"
	KMonomorphize Kind = "c.mono"
	KProc         Kind = "c.proc"
	KPolyProc     Kind = "c.poly_proc"
	KCoreBuiltin  Kind = "c.core_builtin"
	KStdBuiltin   Kind = "c.std_builtin"

	// expressions
	KUnary     Kind = "e.unary"
	KBinary    Kind = "e.binary"
	KTernary   Kind = "e.ternary"
	KAssign    Kind = "e.assign"
	KMany      Kind = "e.many"
	KLetConst  Kind = "e.let_const"
	KLetConsts Kind = "e.let_consts"
	KLetProc   Kind = "e.let_proc"
	KLetProcs  Kind = "e.let_procs"
	KLetType   Kind = "e.let_type"
	KLetTypes  Kind = "e.let_types"
	KLetVar    Kind = "e.let_var"
	KLetVars   Kind = "e.let_vars"
	KWhile     Kind = "e.while"
	KIf        Kind = "e.if"
	KWhen      Kind = "e.when"
	KRefer     Kind = "e.refer"
	KDeref     Kind = "e.deref"
	KDerefMut  Kind = "e.deref_mut"
	KApply     Kind = "e.apply"
	KReturn    Kind = "e.return"
	KArray     Kind = "e.array"
	KTuple     Kind = "e.tuple"
	KStruct    Kind = "e.struct"
	KUnion     Kind = "e.union"
	KAs        Kind = "e.as"
	KMember    Kind = "e.member"
	KIndex     Kind = "e.index"
	KAnnotated Kind = "e.annotated"

	// helpers
	KBind Kind = "bind"
	KArg  Kind = "arg"
)

// Node is the serialised form of one tree node. Field meaning depends on K:
// Kids holds sub-nodes in a fixed order per kind, Names holds identifiers
// (struct field names parallel to Kids, enum variants, type parameters,
// assembly lines).
type Node struct {
	K     Kind     `msgpack:"k"`
	Name  string   `msgpack:"n,omitempty"`
	Op    string   `msgpack:"op,omitempty"`
	Int   int64    `msgpack:"i,omitempty"`
	Float float64  `msgpack:"f,omitempty"`
	Flag  bool     `msgpack:"b,omitempty"`
	Names []string `msgpack:"ns,omitempty"`
	Kids  []*Node  `msgpack:"c,omitempty"`
	Span  *Span    `msgpack:"s,omitempty"`
}

// Span is a byte range into the bundle's embedded source text.
type Span struct {
	Start uint32 `msgpack:"start"`
	End   uint32 `msgpack:"end"`
}
