package runtimeabi

import "github.com/kolkov/unsafeprobe/ir"

// Declare looks up name in Signatures and ensures the module has a matching
// external, no-inline declaration for it, returning the (possibly
// preexisting) *ir.Function. It panics on an unknown name: every call site
// names a constant from this package's Signatures map, so an unknown name
// is a programming error in the pipeline itself, not malformed input.
func Declare(m *ir.Module, name string) *ir.Function {
	sig, ok := Signatures[name]
	if !ok {
		panic("runtimeabi: no signature registered for " + name)
	}
	return m.DeclareFunc(sig.Name, sig.RetType, sig.Params...)
}
