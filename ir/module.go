package ir

// Global is a module-level variable: the per-function metadata table, the
// debug-info anchor, or a constant string/array backing one of them.
type Global struct {
	Attachable

	Name     string
	Internal bool
	Align    int // byte alignment; 0 means unspecified
	Init     Value
	Size     int // size in bytes, informational
}

func (g *Global) isValue()       {}
func (g *Global) String() string { return "@" + g.Name }

// CtorEntry is one entry of llvm.global_ctors / llvm.global_dtors: a
// priority and the function to run.
type CtorEntry struct {
	Priority int32
	Func     *Function
}

// Module is the whole compilation unit a whole-module pass operates on.
type Module struct {
	Name    string
	Funcs   []*Function
	Globals []*Global

	Ctors []CtorEntry
	Dtors []CtorEntry

	// CompilerUsed mirrors llvm.compiler.used: globals listed here survive
	// dead-global elimination even with no textual references.
	CompilerUsed []*Global

	funcByName   map[string]*Function
	globalByName map[string]*Global
}

// NewModule returns an empty module ready for passes to populate.
func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		funcByName:   make(map[string]*Function),
		globalByName: make(map[string]*Global),
	}
}

// FuncByName looks up a function by name, whether declared or defined.
func (m *Module) FuncByName(name string) (*Function, bool) {
	f, ok := m.funcByName[name]
	return f, ok
}

// AddFunc registers f with the module. Re-adding a name already present is
// a caller error; the pipeline's own helpers (internal/runtimeabi) guard
// against this by checking FuncByName first.
func (m *Module) AddFunc(f *Function) {
	m.Funcs = append(m.Funcs, f)
	if m.funcByName == nil {
		m.funcByName = make(map[string]*Function)
	}
	m.funcByName[f.Name] = f
	f.module = m
}

// GlobalByName looks up a global by name.
func (m *Module) GlobalByName(name string) (*Global, bool) {
	g, ok := m.globalByName[name]
	return g, ok
}

// AddGlobal registers g with the module.
func (m *Module) AddGlobal(g *Global) {
	m.Globals = append(m.Globals, g)
	if m.globalByName == nil {
		m.globalByName = make(map[string]*Global)
	}
	m.globalByName[g.Name] = g
}

// AddCtor registers fn as a module constructor at the given priority.
func (m *Module) AddCtor(priority int32, fn *Function) {
	m.Ctors = append(m.Ctors, CtorEntry{Priority: priority, Func: fn})
}

// AddDtor registers fn as a module destructor at the given priority.
func (m *Module) AddDtor(priority int32, fn *Function) {
	m.Dtors = append(m.Dtors, CtorEntry{Priority: priority, Func: fn})
}

// MarkCompilerUsed adds g to the compiler-used set so later passes and the
// optimizer cannot dead-strip it even though nothing in the module
// textually references it.
func (m *Module) MarkCompilerUsed(g *Global) {
	m.CompilerUsed = append(m.CompilerUsed, g)
}

// DeclareFunc returns the existing declaration/definition named name if
// one exists, or creates and registers a new declaration with the given
// signature. Every pass that needs a runtime helper goes through this (via
// internal/runtimeabi) so the same helper is never declared twice.
func (m *Module) DeclareFunc(name, retType string, paramTypes ...string) *Function {
	if f, ok := m.FuncByName(name); ok {
		return f
	}
	f := &Function{
		Name:        name,
		Linkage:     LinkageExternal,
		RetType:     retType,
		Declaration: true,
		NoInline:    true,
	}
	for i, pt := range paramTypes {
		f.Params = append(f.Params, &Param{Name: paramName(i), Type: pt})
	}
	m.AddFunc(f)
	return f
}

func paramName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "arg"
}
