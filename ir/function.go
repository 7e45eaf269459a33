package ir

import "strings"

// Linkage is a coarse stand-in for LLVM linkage kinds; the pipeline only
// ever needs to tell "external, defined elsewhere" apart from everything
// else.
type Linkage int

const (
	LinkageExternal Linkage = iota
	LinkageInternal
	LinkagePrivate
)

// Param is a function parameter, usable as a Value wherever an operand
// refers to an argument.
type Param struct {
	Name string
	Type string
}

func (p *Param) isValue()       {}
func (p *Param) String() string { return "%" + p.Name }

// Function is a function definition or declaration. Declarations (no
// Blocks) are the runtime helpers the pipeline itself declares, plus
// whatever externs the front end already emitted.
type Function struct {
	Attachable

	Name    string
	Linkage Linkage
	RetType string
	Params  []*Param
	Blocks  []*BasicBlock

	// Declaration is true for functions with no body: either genuine
	// external declarations (memcpy, malloc, ...) or the runtime helper
	// prototypes the passes themselves install.
	Declaration bool

	// Intrinsic marks llvm.* intrinsics, which are never eligible for
	// tracking, counting or call-wrapping.
	Intrinsic bool

	// NoInline requests the no-inline attribute; set on every runtime
	// helper declaration so later inlining can't make the instrumented
	// call disappear before it ever runs.
	NoInline bool

	nextInstID int
	module     *Module
}

// Module returns the module f was registered with via Module.AddFunc, or
// nil if it hasn't been added to one yet.
func (f *Function) Module() *Module { return f.module }

// NewInstruction allocates an instruction with a fresh, function-scoped id
// and the given opcode; it is not yet attached to any block.
func (f *Function) NewInstruction(op Opcode) *Instruction {
	f.nextInstID++
	return &Instruction{id: f.nextInstID, Op: op}
}

// NewBlock appends a new, empty basic block to the function and returns it.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{Name: name, parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the function's first basic block, or nil if it has none
// (a declaration).
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Eligible reports whether f is a candidate for the pipeline's
// instrumentation at all: it must have a body, must not be an intrinsic,
// must not be named with the reserved llvm.* prefix (intrinsics built
// directly rather than lifted through internal/llvmbridge carry that
// prefix without necessarily having Intrinsic set), and must not already
// be one of the pipeline's own runtime helpers (recognized by name
// prefix, see internal/runtimeabi).
func (f *Function) Eligible(isRuntimeHelperName func(string) bool) bool {
	if f.Declaration || f.Intrinsic || strings.HasPrefix(f.Name, "llvm.") {
		return false
	}
	return !isRuntimeHelperName(f.Name)
}

// replaceAllUses rewrites every operand across every block of f that points
// at old to point at replacement instead. Used defensively by
// BasicBlock.Erase; under the pipeline's own invariants markers never
// accumulate real uses, so this is expected to be a no-op in practice.
func (f *Function) replaceAllUses(old Value, replacement Value) {
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			for i, operand := range inst.Operands {
				if operand == old {
					inst.Operands[i] = replacement
				}
			}
		}
	}
}
