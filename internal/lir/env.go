package lir

import (
	"lirc/internal/trace"
)

// Limits bound the work the checker may do on one program.
type Limits struct {
	// MaxSimplifySteps bounds head reductions in a single Simplify call.
	MaxSimplifySteps int
	// MaxTypeDepth bounds structural recursion in the type algebra and
	// chains of constant symbol lookups.
	MaxTypeDepth int
	// MaxInstantiationDepth bounds nested monomorphization checks.
	MaxInstantiationDepth int
}

func DefaultLimits() Limits {
	return Limits{
		MaxSimplifySteps:      1024,
		MaxTypeDepth:          512,
		MaxInstantiationDepth: 64,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxSimplifySteps <= 0 {
		l.MaxSimplifySteps = d.MaxSimplifySteps
	}
	if l.MaxTypeDepth <= 0 {
		l.MaxTypeDepth = d.MaxTypeDepth
	}
	if l.MaxInstantiationDepth <= 0 {
		l.MaxInstantiationDepth = d.MaxInstantiationDepth
	}
	return l
}

type Options struct {
	Limits Limits
	Tracer trace.Tracer
	// ParentSpan is the trace span new checker spans are attached to.
	ParentSpan uint64
}

// session is the state shared by every scope of one compilation.
type session struct {
	limits  Limits
	tracer  trace.Tracer
	parent  uint64
	checked map[any]bool // procedures checked or being checked
	depth   int          // nested constant lookups
	inst    int          // nested instantiation checks
	frames  uint64       // last frame id handed out
}

// Binding is a variable entry.
type Binding struct {
	Mutable bool
	Type    Type
}

// Env is one frame of the scope chain. Lookups walk from the innermost frame
// outward; definitions only touch the current frame, so a child scope never
// leaks into its parent.
type Env struct {
	parent *Env
	sess   *session
	id     uint64

	types  map[string]Type
	consts map[string]ConstExpr
	vars   map[string]Binding
	procs  map[string]ConstExpr

	// procBoundary hides the variables of enclosing frames.
	procBoundary bool
	ret          Type
}

// NewEnv returns an empty root environment.
func NewEnv(opts Options) *Env {
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	return &Env{id: 1, sess: &session{
		limits:  opts.Limits.withDefaults(),
		tracer:  tr,
		parent:  opts.ParentSpan,
		checked: make(map[any]bool),
		frames:  1,
	}}
}

// NewScope pushes a frame.
func (e *Env) NewScope() *Env {
	e.sess.frames++
	return &Env{parent: e, sess: e.sess, id: e.sess.frames}
}

// NewProcScope pushes a frame for a procedure body: outer variables become
// invisible and the expected return type is reset.
func (e *Env) NewProcScope() *Env {
	s := e.NewScope()
	s.procBoundary = true
	return s
}

func (e *Env) Limits() Limits { return e.sess.limits }

func (e *Env) Tracer() trace.Tracer { return e.sess.tracer }

func (e *Env) DefineType(name string, t Type) {
	if e.types == nil {
		e.types = make(map[string]Type)
	}
	e.types[name] = t
}

func (e *Env) DefineConst(name string, c ConstExpr) {
	if e.consts == nil {
		e.consts = make(map[string]ConstExpr)
	}
	e.consts[name] = c
}

func (e *Env) DefineVar(name string, mutable bool, t Type) {
	if e.vars == nil {
		e.vars = make(map[string]Binding)
	}
	e.vars[name] = Binding{Mutable: mutable, Type: t}
}

// DefineProc binds a procedure, polymorphic procedure or builtin.
func (e *Env) DefineProc(name string, proc ConstExpr) {
	if e.procs == nil {
		e.procs = make(map[string]ConstExpr)
	}
	e.procs[name] = proc
}

// DefineArgs binds procedure arguments in this frame. A name used twice in
// the list is rejected; shadowing outer bindings is allowed.
func (e *Env) DefineArgs(args []Arg) error {
	seen := make(map[string]struct{}, len(args))
	for _, a := range args {
		if _, dup := seen[a.Name]; dup {
			return &Error{Kind: ErrDuplicateArgument, Name: a.Name}
		}
		seen[a.Name] = struct{}{}
		e.DefineVar(a.Name, a.Mutable, a.Type)
	}
	return nil
}

// Type returns the type bound to name as written in its declaration.
func (e *Env) Type(name string) (Type, bool) {
	t, _, ok := e.typeBinding(name)
	return t, ok
}

func (e *Env) Const(name string) (ConstExpr, bool) {
	c, _, ok := e.constBinding(name)
	return c, ok
}

func (e *Env) Var(name string) (Binding, bool) {
	b, _, ok := e.varBinding(name)
	return b, ok
}

func (e *Env) Proc(name string) (ConstExpr, bool) {
	p, _, ok := e.procBinding(name)
	return p, ok
}

// typeBinding returns the bound type of name together with the frame that
// declares it.
func (e *Env) typeBinding(name string) (Type, *Env, bool) {
	for f := e; f != nil; f = f.parent {
		if t, ok := f.types[name]; ok {
			return t, f, true
		}
	}
	return nil, nil, false
}

func (e *Env) constBinding(name string) (ConstExpr, *Env, bool) {
	for f := e; f != nil; f = f.parent {
		if c, ok := f.consts[name]; ok {
			return c, f, true
		}
	}
	return nil, nil, false
}

func (e *Env) varBinding(name string) (Binding, *Env, bool) {
	for f := e; f != nil; f = f.parent {
		if b, ok := f.vars[name]; ok {
			return b, f, true
		}
		if f.procBoundary {
			break
		}
	}
	return Binding{}, nil, false
}

func (e *Env) procBinding(name string) (ConstExpr, *Env, bool) {
	for f := e; f != nil; f = f.parent {
		if p, ok := f.procs[name]; ok {
			return p, f, true
		}
	}
	return nil, nil, false
}

// Close ties every free symbol of t that is visible from e to the frame
// declaring it, so the result means the same thing in every scope. Symbols
// that do not resolve are left alone and fail where they are used.
func (e *Env) Close(t Type) Type {
	if t == nil {
		return nil
	}
	m := make(map[string]Type)
	for _, name := range FreeSymbols(t).Slice() {
		if _, f, ok := e.typeBinding(name); ok {
			m[name] = SymbolType{Name: name, home: f}
		}
	}
	s := newSubstituter(m)
	s.sym = e.closeSymbol
	return s.typ(t)
}

// closeSymbol ties a constant or procedure name used inside a type.
// Variables are never constant, so a name that is a variable here is kept.
func (e *Env) closeSymbol(x SymbolConst) ConstExpr {
	if x.home != nil {
		return x
	}
	if _, _, ok := e.varBinding(x.Name); ok {
		return x
	}
	if _, f, ok := e.constBinding(x.Name); ok {
		return SymbolConst{Name: x.Name, home: f}
	}
	if _, f, ok := e.procBinding(x.Name); ok {
		return SymbolConst{Name: x.Name, home: f}
	}
	return x
}

// scope is the frame x resolves in.
func (x SymbolType) scope(env *Env) *Env {
	if x.home != nil {
		return x.home
	}
	return env
}

func (x SymbolConst) scope(env *Env) *Env {
	if x.home != nil {
		return x.home
	}
	return env
}

// SetExpectedReturnType sets the type that return expressions in this
// procedure scope must decay to.
func (e *Env) SetExpectedReturnType(t Type) { e.ret = t }

// ExpectedReturnType returns the innermost expected return type of the
// enclosing procedure, if any, closed over the procedure scope.
func (e *Env) ExpectedReturnType() (Type, bool) {
	for f := e; f != nil; f = f.parent {
		if f.ret != nil {
			return f.Close(f.ret), true
		}
		if f.procBoundary {
			break
		}
	}
	return nil, false
}

// enter guards chains of constant symbol resolution.
func (e *Env) enter(what string) error {
	e.sess.depth++
	if e.sess.depth > e.sess.limits.MaxTypeDepth {
		e.sess.depth--
		return &Error{Kind: ErrRecursionLimit, Name: what, Value: int64(e.sess.limits.MaxTypeDepth)}
	}
	return nil
}

func (e *Env) leave() { e.sess.depth-- }
