package llvmbridge

import (
	"fmt"
	"strings"

	"github.com/kolkov/unsafeprobe/ir"
)

// Emit renders mod as LLVM-flavored textual IR. It is not run back through
// github.com/llir/llvm to verify it reparses: the pipeline's own
// reconstructed instructions (inserted calls, fences, the metadata table)
// don't carry full type information, only the ResultType/operand shape
// each pass actually needs, so round-tripping through llir/llvm's typed
// instruction builders would mean inventing type information the pipeline
// never modeled. Emit is the pipeline's own printer instead, read by the
// CLI and by this package's tests, not by a downstream LLVM toolchain.
func Emit(mod *ir.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = '%s'\n", mod.Name)

	for _, g := range mod.Globals {
		linkage := "external"
		if g.Internal {
			linkage = "internal"
		}
		fmt.Fprintf(&b, "@%s = %s global ...\n", g.Name, linkage)
	}

	emitCtorTable(&b, "llvm.global_ctors", mod.Ctors)
	emitCtorTable(&b, "llvm.global_dtors", mod.Dtors)

	for _, fn := range mod.Funcs {
		emitFunc(&b, fn)
	}
	return b.String()
}

func emitCtorTable(b *strings.Builder, name string, entries []ir.CtorEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "@%s = appending global [%d x { i32, ptr, ptr }] [\n", name, len(entries))
	for _, e := range entries {
		fmt.Fprintf(b, "  { i32 %d, ptr @%s, ptr null },\n", e.Priority, e.Func.Name)
	}
	b.WriteString("]\n")
}

func emitFunc(b *strings.Builder, fn *ir.Function) {
	kind := "define"
	if fn.Declaration {
		kind = "declare"
	}
	attrs := ""
	if fn.NoInline {
		attrs = " noinline"
	}

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s %%%s", p.Type, p.Name)
	}
	fmt.Fprintf(b, "%s %s @%s(%s)%s", kind, fn.RetType, fn.Name, strings.Join(params, ", "), attrs)

	if fn.Declaration {
		b.WriteString("\n")
		return
	}
	b.WriteString(" {\n")
	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Name)
		for _, inst := range blk.Insts {
			emitInstruction(b, inst)
		}
	}
	b.WriteString("}\n")
}

func emitInstruction(b *strings.Builder, inst *ir.Instruction) {
	if inst.Op == ir.OpInlineAsmCall {
		fmt.Fprintf(b, "  call void asm %q()\n", inst.AsmText)
		return
	}

	operands := make([]string, len(inst.Operands))
	for i, v := range inst.Operands {
		operands[i] = v.String()
	}

	prefix := "  "
	if inst.ResultType != "" && inst.ResultType != "void" {
		prefix = fmt.Sprintf("  %%%d = ", inst.ID())
	}

	switch inst.Op {
	case ir.OpCall:
		fmt.Fprintf(b, "%scall %s @%s(%s)\n", prefix, orVoid(inst.ResultType), inst.Callee, strings.Join(operands, ", "))
	case ir.OpInvoke:
		fmt.Fprintf(b, "%sinvoke %s @%s(%s)\n", prefix, orVoid(inst.ResultType), inst.Callee, strings.Join(operands, ", "))
	case ir.OpFence:
		b.WriteString("  fence seq_cst\n")
	default:
		fmt.Fprintf(b, "%s%s %s\n", prefix, inst.Op.String(), strings.Join(operands, ", "))
	}
}

func orVoid(t string) string {
	if t == "" {
		return "void"
	}
	return t
}
