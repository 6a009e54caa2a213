package lir

import (
	"strconv"
	"strings"
)

// FormatExpr renders e in a compact, line-oriented LIR syntax.
func FormatExpr(e Expr) string {
	var p printer
	p.expr(e)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) write(parts ...string) {
	for _, s := range parts {
		p.sb.WriteString(s)
	}
}

func (p *printer) newline() {
	p.sb.WriteByte('\n')
	p.sb.WriteString(strings.Repeat("    ", p.indent))
}

func (p *printer) list(exprs []Expr) {
	for i, x := range exprs {
		if i > 0 {
			p.write(", ")
		}
		p.expr(x)
	}
}

func (p *printer) body(e Expr) {
	p.indent++
	p.newline()
	p.expr(e)
	p.indent--
}

func (p *printer) expr(e Expr) {
	switch x := e.(type) {
	case nil:
		p.write("<nil>")
	case ConstExpr:
		p.constExpr(x)
	case UnaryExpr:
		p.write(opName(x.Op), "(")
		p.expr(x.X)
		p.write(")")
	case BinaryExpr:
		p.write("(")
		p.expr(x.X)
		p.write(" ", opName(x.Op), " ")
		p.expr(x.Y)
		p.write(")")
	case TernaryExpr:
		p.write(opName(x.Op), "(")
		p.list([]Expr{x.X, x.Y, x.Z})
		p.write(")")
	case AssignExpr:
		p.expr(x.Dst)
		p.write(" ", opName(x.Op), " ")
		p.expr(x.Src)
	case ManyExpr:
		p.write("{")
		p.indent++
		for _, sub := range x.Exprs {
			p.newline()
			p.expr(sub)
			p.write(";")
		}
		p.indent--
		p.newline()
		p.write("}")
	case LetConstExpr:
		p.write("const ", x.Name, " = ")
		p.expr(x.Value)
		p.write(" in")
		p.body(x.Body)
	case LetConstsExpr:
		for _, b := range x.Consts {
			p.write("const ", b.Name, " = ")
			p.expr(b.Value)
			p.newline()
		}
		p.write("in")
		p.body(x.Body)
	case LetProcExpr:
		p.write("proc ", x.Name, " = ")
		p.expr(x.Proc)
		p.write(" in")
		p.body(x.Body)
	case LetProcsExpr:
		for _, b := range x.Procs {
			p.write("proc ", b.Name, " = ")
			p.expr(b.Proc)
			p.newline()
		}
		p.write("in")
		p.body(x.Body)
	case LetTypeExpr:
		p.write("type ", x.Name, " = ", typeLabel(x.Type), " in")
		p.body(x.Body)
	case LetTypesExpr:
		for _, b := range x.Types {
			p.write("type ", b.Name, " = ", typeLabel(b.Type))
			p.newline()
		}
		p.write("in")
		p.body(x.Body)
	case LetVarExpr:
		p.varBinding(x.Var)
		p.write(" in")
		p.body(x.Body)
	case LetVarsExpr:
		for _, b := range x.Vars {
			p.varBinding(b)
			p.newline()
		}
		p.write("in")
		p.body(x.Body)
	case WhileExpr:
		p.write("while ")
		p.expr(x.Cond)
		p.write(" do")
		p.body(x.Body)
	case IfExpr:
		p.write("if ")
		p.expr(x.Cond)
		p.write(" then")
		p.body(x.Then)
		p.newline()
		p.write("else")
		p.body(x.Else)
	case WhenExpr:
		p.write("when ")
		p.expr(x.Cond)
		p.write(" then")
		p.body(x.Then)
		p.newline()
		p.write("else")
		p.body(x.Else)
	case ReferExpr:
		p.write("&")
		p.expr(x.X)
	case DerefExpr:
		p.write("*")
		p.expr(x.X)
	case DerefMutExpr:
		p.write("*")
		p.expr(x.Ptr)
		p.write(" = ")
		p.expr(x.Value)
	case ApplyExpr:
		p.expr(x.Func)
		p.write("(")
		p.list(x.Args)
		p.write(")")
	case ReturnExpr:
		p.write("return ")
		p.expr(x.Value)
	case ArrayExpr:
		p.write("[")
		p.list(x.Elems)
		p.write("]")
	case TupleExpr:
		p.write("(")
		p.list(x.Elems)
		p.write(")")
	case StructExpr:
		p.write("struct {")
		for i, name := range sortedKeys(x.Fields) {
			if i > 0 {
				p.write(", ")
			}
			p.write(name, " = ")
			p.expr(x.Fields[name])
		}
		p.write("}")
	case UnionExpr:
		p.write("union ", typeLabel(x.Type), " {", x.Variant, " = ")
		p.expr(x.Value)
		p.write("}")
	case AsExpr:
		p.write("(")
		p.expr(x.X)
		p.write(" as ", typeLabel(x.Type), ")")
	case MemberExpr:
		p.expr(x.X)
		p.write(".", x.Field)
	case IndexExpr:
		p.expr(x.X)
		p.write("[")
		p.expr(x.Index)
		p.write("]")
	case AnnotatedExpr:
		p.expr(x.X)
	default:
		p.write("<unknown expr>")
	}
}

func (p *printer) varBinding(b VarBinding) {
	p.write("let ")
	if b.Mutable {
		p.write("mut ")
	}
	p.write(b.Name)
	if b.Type != nil {
		p.write(": ", typeLabel(b.Type))
	}
	p.write(" = ")
	p.expr(b.Value)
}

func (p *printer) constExpr(c ConstExpr) {
	switch x := c.(type) {
	case NoneConst:
		p.write("None")
	case NullConst:
		p.write("Null")
	case IntConst:
		p.write(strconv.FormatInt(x.Value, 10))
	case FloatConst:
		p.write(strconv.FormatFloat(x.Value, 'g', -1, 64))
	case CharConst:
		p.write(strconv.QuoteRune(x.Value))
	case BoolConst:
		p.write(strconv.FormatBool(x.Value))
	case SizeOfTypeConst:
		p.write("sizeof(", typeLabel(x.Type), ")")
	case SizeOfExprConst:
		p.write("sizeof(")
		p.expr(x.X)
		p.write(")")
	case TypeOfConst:
		p.write("typeof(")
		p.expr(x.X)
		p.write(")")
	case AsConst:
		p.write("(")
		p.expr(x.X)
		p.write(" as ", typeLabel(x.Type), ")")
	case SymbolConst:
		p.write(quoteName(x.Name))
	case OfConst:
		p.write(typeLabel(x.Type), " of ", x.Variant)
	case TupleConst:
		p.write("(")
		p.list(constsToExprs(x.Elems))
		p.write(")")
	case ArrayConst:
		p.write("[")
		p.list(constsToExprs(x.Elems))
		p.write("]")
	case StructConst:
		p.write("struct {")
		for i, name := range sortedKeys(x.Fields) {
			if i > 0 {
				p.write(", ")
			}
			p.write(name, " = ")
			p.expr(x.Fields[name])
		}
		p.write("}")
	case UnionConst:
		p.write("union ", typeLabel(x.Type), " {", x.Variant, " = ")
		p.expr(x.Value)
		p.write("}")
	case MonomorphizeConst:
		p.expr(x.Template)
		p.write("<", joinTypes(x.TypeArgs), ">")
	case *Procedure:
		p.write("proc ", x.Name, "(", formatArgs(x.Args), ") -> ", typeLabel(x.Ret), " =")
		p.body(x.Body)
	case *PolyProcedure:
		p.write("proc ", x.Name, "<", strings.Join(x.TypeParams, ", "), ">(", formatArgs(x.Args), ") -> ", typeLabel(x.Ret), " =")
		p.body(x.Body)
	case *CoreBuiltin:
		p.write("core builtin ", x.Name, "(", formatArgs(x.Args), ") -> ", typeLabel(x.Ret))
	case *StandardBuiltin:
		p.write("std builtin ", x.Name, "(", formatArgs(x.Args), ") -> ", typeLabel(x.Ret))
	default:
		p.write("<unknown const>")
	}
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		prefix := ""
		if a.Mutable {
			prefix = "mut "
		}
		parts[i] = prefix + a.Name + ": " + typeLabel(a.Type)
	}
	return strings.Join(parts, ", ")
}

func constsToExprs(cs []ConstExpr) []Expr {
	out := make([]Expr, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func opName(op interface{ String() string }) string {
	if op == nil {
		return "<op>"
	}
	return op.String()
}
