package ir

import "testing"

// TestBasicBlockInsertBefore verifies that inserting before a target
// instruction splices it in at the right index without disturbing the
// instructions on either side.
func TestBasicBlockInsertBefore(t *testing.T) {
	fn := &Function{Name: "f"}
	blk := fn.NewBlock("entry")

	a := fn.NewInstruction(OpLoad)
	b := fn.NewInstruction(OpStore)
	c := fn.NewInstruction(OpRet)
	blk.Append(a)
	blk.Append(b)
	blk.Append(c)

	marker := fn.NewInstruction(OpInlineAsmCall)
	blk.InsertBefore(b, marker)

	if len(blk.Insts) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(blk.Insts))
	}
	if blk.Insts[1] != marker {
		t.Fatalf("expected marker at index 1, got %v", blk.Insts[1])
	}
	if blk.Terminator() != c {
		t.Fatalf("terminator changed unexpectedly")
	}
}

// TestBasicBlockEraseReplacesUses confirms that erasing an instruction with
// lingering operand references rewrites those references to the supplied
// replacement rather than leaving dangling pointers.
func TestBasicBlockEraseReplacesUses(t *testing.T) {
	fn := &Function{Name: "f"}
	blk := fn.NewBlock("entry")

	marker := fn.NewInstruction(OpInlineAsmCall)
	user := fn.NewInstruction(OpCall)
	user.Operands = []Value{marker}
	blk.Append(marker)
	blk.Append(user)
	blk.Append(fn.NewInstruction(OpRet))

	undef := &Undef{Type: "void"}
	blk.Erase(marker, undef)

	if len(blk.Insts) != 2 {
		t.Fatalf("expected marker removed, got %d instructions", len(blk.Insts))
	}
	if user.Operands[0] != Value(undef) {
		t.Fatalf("expected dangling operand rewritten to undef, got %v", user.Operands[0])
	}
}

// TestAttachablePresenceOnly exercises the unsafe_inst style attachment:
// present with a nil payload, distinguishable from "not attached at all".
func TestAttachablePresenceOnly(t *testing.T) {
	var a Attachable
	if a.HasMeta(KeyUnsafeInst) {
		t.Fatalf("fresh Attachable should have no metadata")
	}
	a.SetMeta(KeyUnsafeInst, nil)
	if !a.HasMeta(KeyUnsafeInst) {
		t.Fatalf("expected unsafe_inst to be present after SetMeta")
	}
	if v, ok := a.Meta(KeyUnsafeInst); !ok || v != nil {
		t.Fatalf("expected (nil, true), got (%v, %v)", v, ok)
	}
}

// TestModuleDeclareFuncIsIdempotent ensures repeated declarations of the
// same runtime helper return the identical *Function instead of creating
// duplicates, matching the contract every pass relies on.
func TestModuleDeclareFuncIsIdempotent(t *testing.T) {
	m := NewModule("test")
	f1 := m.DeclareFunc("cpu_cycle_start_measurement", "i64")
	f2 := m.DeclareFunc("cpu_cycle_start_measurement", "i64")
	if f1 != f2 {
		t.Fatalf("expected the same *Function from repeated DeclareFunc calls")
	}
	if len(m.Funcs) != 1 {
		t.Fatalf("expected exactly one declaration in the module, got %d", len(m.Funcs))
	}
}
