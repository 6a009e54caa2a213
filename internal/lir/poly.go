package lir

import (
	"fmt"
	"strings"
	"sync"

	"lirc/internal/mono"
	"lirc/internal/trace"
)

// Registry holds the monomorph caches of a set of templates.
type Registry = mono.Registry[*Procedure]

func NewRegistry() *Registry { return mono.NewRegistry[*Procedure]() }

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
	lateRegister        sync.Mutex
)

// DefaultRegistry is used by NewPolyProcedure. Front-ends that compile more
// than one program per process should give each program its own registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// PolyProcedure is a generic procedure template. The template itself holds
// only a registry handle and its TemplateID; Clone copies the handle, so all
// clones share one monomorph cache.
type PolyProcedure struct {
	Name       string
	TypeParams []string
	Args       []Arg
	Ret        Type
	Body       Expr

	reg *Registry
	id  mono.TemplateID
}

func NewPolyProcedure(name string, params []string, args []Arg, ret Type, body Expr) *PolyProcedure {
	return newPolyProcedure(DefaultRegistry(), name, params, args, ret, body)
}

// NewPolyProcedureIn creates a template whose cache lives in reg.
func NewPolyProcedureIn(reg *Registry, name string, params []string, args []Arg, ret Type, body Expr) *PolyProcedure {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return newPolyProcedure(reg, name, params, args, ret, body)
}

func newPolyProcedure(reg *Registry, name string, params []string, args []Arg, ret Type, body Expr) *PolyProcedure {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &PolyProcedure{
		Name:       name,
		TypeParams: params,
		Args:       args,
		Ret:        ret,
		Body:       body,
		reg:        reg,
		id:         reg.Register(name),
	}
}

// Clone returns a copy sharing the monomorph cache.
func (p *PolyProcedure) Clone() *PolyProcedure {
	p.ensureRegistered()
	c := *p
	return &c
}

// ensureRegistered gives a template built as a struct literal its cache.
func (p *PolyProcedure) ensureRegistered() {
	lateRegister.Lock()
	defer lateRegister.Unlock()
	if p.reg == nil {
		p.reg = DefaultRegistry()
	}
	if !p.id.IsValid() {
		p.id = p.reg.Register(p.Name)
	}
}

// SameTemplate reports whether p and q share a monomorph cache.
func (p *PolyProcedure) SameTemplate(q *PolyProcedure) bool {
	lateRegister.Lock()
	defer lateRegister.Unlock()
	return p.reg == q.reg && p.id == q.id && p.id.IsValid()
}

// Type returns forall<params> proc(args) -> ret.
func (p *PolyProcedure) Type() PolyType {
	return Poly(p.TypeParams, Proc(argTypes(p.Args), p.Ret))
}

// CacheLen returns the number of distinct instantiations built so far.
func (p *PolyProcedure) CacheLen() int {
	p.ensureRegistered()
	return p.reg.Len(p.id)
}

// Monomorphs returns the cached instantiations ordered by mangled name.
func (p *PolyProcedure) Monomorphs() []*Procedure {
	p.ensureRegistered()
	entries := p.reg.Entries(p.id)
	out := make([]*Procedure, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

// Monomorphize instantiates the template with typeArgs. The arguments are
// reduced to concrete types first and the cache key is the mangled name
// built from those concrete forms, so spellings that simplify to the same
// types share one Procedure. The result is not type checked.
func (p *PolyProcedure) Monomorphize(typeArgs []Type, env *Env) (*Procedure, error) {
	p.ensureRegistered()
	if len(typeArgs) != len(p.TypeParams) {
		params := make([]Type, len(p.TypeParams))
		for i, name := range p.TypeParams {
			params[i] = Sym(name)
		}
		return nil, &Error{Kind: ErrMismatchedTypes, ExpectedList: params, FoundList: typeArgs, Expr: p}
	}

	concrete := make([]Type, len(typeArgs))
	for i, t := range typeArgs {
		c, err := SimplifyUntilConcrete(t, env)
		if err != nil {
			return nil, err
		}
		concrete[i] = c
	}

	bind := func(t Type) (Type, error) {
		return SimplifyUntilConcrete(Apply(Poly(p.TypeParams, t), concrete...), env)
	}
	args := make([]Arg, len(p.Args))
	for i, a := range p.Args {
		t, err := bind(a.Type)
		if err != nil {
			return nil, err
		}
		args[i] = Arg{Name: a.Name, Mutable: a.Mutable, Type: t}
	}
	ret, err := bind(p.Ret)
	if err != nil {
		return nil, err
	}

	name := mangle(p.Name, concrete, args, ret)
	proc, hit, err := p.reg.GetOrCreate(p.id, name+tiedKey(concrete, args, ret), func() (*Procedure, error) {
		m := make(map[string]Type, len(p.TypeParams))
		bindings := make([]TypeBinding, len(p.TypeParams))
		for i, param := range p.TypeParams {
			m[param] = concrete[i]
			bindings[i] = TypeBinding{Name: param, Type: concrete[i]}
		}
		body := LetTypesExpr{Types: bindings, Body: SubstituteExpr(p.Body, m)}
		return &Procedure{Name: name, Args: args, Ret: ret, Body: body}, nil
	})
	if err != nil {
		return nil, err
	}

	detail := "miss"
	if hit {
		detail = "hit"
	}
	trace.Point(env.Tracer(), trace.ScopeNode, "monomorphize", detail+" "+name, env.sess.parent)
	return proc, nil
}

// mangle derives the symbol name of an instantiation from concrete inputs.
func mangle(name string, typeArgs []Type, args []Arg, ret Type) string {
	return fmt.Sprintf("__MONOMORPHIZED_(%s)%s(%s)%s", joinTypes(typeArgs), name, formatArgs(args), typeLabel(ret))
}

// tiedKey names the frames behind tied symbols in an instantiation, which
// the mangled name does not show.
func tiedKey(typeArgs []Type, args []Arg, ret Type) string {
	var b strings.Builder
	add := func(x SymbolType) { b.WriteString("|" + bindingKey(x.Name, x.home)) }
	for _, t := range typeArgs {
		eachTied(t, add)
	}
	for _, a := range args {
		eachTied(a.Type, add)
	}
	eachTied(ret, add)
	return b.String()
}
