package llvmbridge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kolkov/unsafeprobe/ir"
)

// writeModule writes src to a temp .ll file and returns its path.
func writeModule(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod.ll")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("writing test module: %v", err)
	}
	return path
}

// TestParse_LiftsDefinedFunction checks a simple defined function is
// lifted with its block and terminator intact.
func TestParse_LiftsDefinedFunction(t *testing.T) {
	path := writeModule(t, `
define i32 @add(i32 %a, i32 %b) {
entry:
  %sum = add i32 %a, %b
  ret i32 %sum
}
`)

	mod, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	fn, ok := mod.FuncByName("add")
	if !ok {
		t.Fatalf("expected function 'add' to be lifted")
	}
	if fn.Declaration {
		t.Fatalf("expected 'add' to be a definition, not a declaration")
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}

	blk := fn.Blocks[0]
	term := blk.Terminator()
	if term == nil || term.Op != ir.OpRet {
		t.Fatalf("expected a ret terminator, got %v", term)
	}
}

// TestParse_LiftsDeclaration checks an external declaration lifts with
// Declaration=true and no blocks.
func TestParse_LiftsDeclaration(t *testing.T) {
	path := writeModule(t, `
declare i32 @external_thing(i32)
`)

	mod, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	fn, ok := mod.FuncByName("external_thing")
	if !ok {
		t.Fatalf("expected function 'external_thing' to be lifted")
	}
	if !fn.Declaration {
		t.Fatalf("expected 'external_thing' to be a declaration")
	}
	if len(fn.Blocks) != 0 {
		t.Fatalf("expected 0 blocks for a declaration, got %d", len(fn.Blocks))
	}
}

// TestParse_LiftsUnsafeInstAndDebugLocation checks that the front end's
// unsafe_inst and dbg attachments on a real parsed instruction survive the
// lift: this is the one boundary MarkerPlanter depends on entirely, since
// it never sees raw llir/llvm IR itself.
func TestParse_LiftsUnsafeInstAndDebugLocation(t *testing.T) {
	path := writeModule(t, `
define i32 @add(i32 %a, i32 %b) !dbg !4 {
entry:
  %sum = add i32 %a, %b, !dbg !7, !unsafe_inst !8
  ret i32 %sum, !dbg !9
}

!llvm.dbg.cu = !{!0}
!llvm.module.flags = !{!3}

!0 = distinct !DICompileUnit(language: DW_LANG_C99, file: !1, producer: "clang", isOptimized: false, runtimeVersion: 0, emissionKind: FullDebug)
!1 = !DIFile(filename: "a.c", directory: "/tmp")
!3 = !{i32 2, !"Debug Info Version", i32 3}
!4 = distinct !DISubprogram(name: "add", scope: !1, file: !1, line: 10, type: !5, unit: !0)
!5 = !DISubroutineType(types: !6)
!6 = !{}
!7 = !DILocation(line: 42, column: 3, scope: !4)
!8 = !{}
!9 = !DILocation(line: 43, column: 3, scope: !4)
`)

	mod, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	fn, ok := mod.FuncByName("add")
	if !ok {
		t.Fatalf("expected function 'add' to be lifted")
	}

	blk := fn.Blocks[0]
	if len(blk.Insts) < 1 {
		t.Fatalf("expected at least one non-terminator instruction")
	}
	sum := blk.Insts[0]
	if !sum.HasMeta(ir.KeyUnsafeInst) {
		t.Fatalf("expected %%sum to carry the unsafe_inst attachment")
	}
	if sum.Loc == nil {
		t.Fatalf("expected %%sum to carry a debug location")
	}
	if sum.Loc.Line != 42 {
		t.Fatalf("expected line 42, got %d", sum.Loc.Line)
	}
	if sum.Loc.File != "a.c" {
		t.Fatalf("expected file a.c, got %q", sum.Loc.File)
	}

	ret := blk.Terminator()
	if ret.HasMeta(ir.KeyUnsafeInst) {
		t.Fatalf("ret was not tagged unsafe_inst in source, should not carry it")
	}
	if ret.Loc == nil || ret.Loc.Line != 43 {
		t.Fatalf("expected ret to carry its own debug location at line 43")
	}
}

// TestEmit_RendersFunctionSignatureAndBody checks the printer produces
// the shape a reader would expect: a define line, a label, and the
// planted call visible in the body.
func TestEmit_RendersFunctionSignatureAndBody(t *testing.T) {
	mod := ir.NewModule("m")
	fn := &ir.Function{Name: "do_work", RetType: "void"}
	blk := fn.NewBlock("entry")
	call := fn.NewInstruction(ir.OpCall)
	call.Callee = "__unsafe_record_function"
	call.Operands = []ir.Value{&ir.ConstInt{Bits: 32, Val: 1}}
	blk.Append(call)
	blk.Append(fn.NewInstruction(ir.OpRet))
	mod.AddFunc(fn)

	out := Emit(mod)

	if !strings.Contains(out, "define void @do_work()") {
		t.Fatalf("expected a define line for do_work, got:\n%s", out)
	}
	if !strings.Contains(out, "entry:") {
		t.Fatalf("expected an entry label, got:\n%s", out)
	}
	if !strings.Contains(out, "@__unsafe_record_function") {
		t.Fatalf("expected the planted call to render, got:\n%s", out)
	}
}

// TestEmit_RendersCtorTable checks a module constructor table renders as
// an appending global.
func TestEmit_RendersCtorTable(t *testing.T) {
	mod := ir.NewModule("m")
	ctor := &ir.Function{Name: "my_ctor", RetType: "void"}
	ctor.NewBlock("entry").Append(ctor.NewInstruction(ir.OpRet))
	mod.AddFunc(ctor)
	mod.AddCtor(0, ctor)

	out := Emit(mod)
	if !strings.Contains(out, "llvm.global_ctors") {
		t.Fatalf("expected llvm.global_ctors in output, got:\n%s", out)
	}
	if !strings.Contains(out, "@my_ctor") {
		t.Fatalf("expected ctor function referenced, got:\n%s", out)
	}
}
