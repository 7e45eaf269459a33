// Package heaptracker implements the HeapTracker pass: a per-function
// pass that reports every load and store to the runtime, and separately
// flags the subset that falls inside a marker-delimited unsafe run.
package heaptracker

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/runtimeabi"
	"github.com/kolkov/unsafeprobe/internal/sentinel"
	"github.com/kolkov/unsafeprobe/ir"
)

// access is a load or store selected for instrumentation by one of the
// two sweeps, captured before any mutation begins.
type access struct {
	blk    *ir.BasicBlock
	inst   *ir.Instruction
	isLoad bool
}

// Result reports what HeapTracker did to fn.
type Result struct {
	Changed         bool
	GenericAccesses int
	UnsafeAccesses  int
}

// Run performs both sweeps over fn: every load/store gets a generic
// dyn_mem_access call, and every load/store inside a marker-delimited run
// additionally gets a dyn_unsafe_mem_access call.
func Run(fn *ir.Function, cfg *config.Config) Result {
	if !cfg.Primary || fn.Declaration {
		return Result{}
	}
	mod := fn.Module()
	runtimeabi.Declare(mod, "dyn_mem_access")
	runtimeabi.Declare(mod, "dyn_unsafe_mem_access")

	var res Result

	generic := collectAllAccesses(fn)
	for _, a := range generic {
		plantGeneric(fn, a)
		res.GenericAccesses++
	}

	unsafeAccesses := collectUnsafeAccesses(fn)
	for _, a := range unsafeAccesses {
		plantUnsafe(fn, a)
		res.UnsafeAccesses++
	}

	res.Changed = res.GenericAccesses > 0 || res.UnsafeAccesses > 0
	return res
}

// collectAllAccesses gathers every load/store in fn, independent of
// marker state, for sweep A.
func collectAllAccesses(fn *ir.Function) []access {
	var out []access
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if inst.Op == ir.OpLoad || inst.Op == ir.OpStore {
				out = append(out, access{blk: blk, inst: inst, isLoad: inst.Op == ir.OpLoad})
			}
		}
	}
	return out
}

// collectUnsafeAccesses gathers every load/store that falls within an
// open marker region, for sweep B. It runs after sweep A has inserted its
// dyn_mem_access calls; those are calls, not loads/stores, so they are
// never selected here. All of sweep B's sites are collected before any of
// its own calls is inserted.
func collectUnsafeAccesses(fn *ir.Function) []access {
	var out []access
	for _, blk := range fn.Blocks {
		inside := false
		for _, inst := range blk.Insts {
			switch sentinel.Classify(inst) {
			case sentinel.Begin:
				inside = true
				continue
			case sentinel.End:
				inside = false
				continue
			}
			if inside && (inst.Op == ir.OpLoad || inst.Op == ir.OpStore) {
				out = append(out, access{blk: blk, inst: inst, isLoad: inst.Op == ir.OpLoad})
			}
		}
	}
	return out
}

// plantGeneric inserts dyn_mem_access(addr) immediately before a.inst.
func plantGeneric(fn *ir.Function, a access) {
	call := fn.NewInstruction(ir.OpCall)
	call.Callee = "dyn_mem_access"
	call.Operands = []ir.Value{pointerOperand(a.inst)}
	a.blk.InsertBefore(a.inst, call)
}

// plantUnsafe inserts dyn_unsafe_mem_access(addr, is_load) immediately
// before a.inst.
func plantUnsafe(fn *ir.Function, a access) {
	call := fn.NewInstruction(ir.OpCall)
	call.Callee = "dyn_unsafe_mem_access"
	call.Operands = []ir.Value{pointerOperand(a.inst), boolConst(a.isLoad)}
	a.blk.InsertBefore(a.inst, call)
}

// pointerOperand returns the pointer operand of a load/store: the first
// operand for a load's address, the second for a store's destination.
func pointerOperand(inst *ir.Instruction) ir.Value {
	if inst.Op == ir.OpLoad {
		if len(inst.Operands) > 0 {
			return inst.Operands[0]
		}
		return &ir.ConstNull{}
	}
	if len(inst.Operands) > 1 {
		return inst.Operands[1]
	}
	return &ir.ConstNull{}
}

func boolConst(v bool) ir.Value {
	if v {
		return &ir.ConstInt{Bits: 1, Val: 1}
	}
	return &ir.ConstInt{Bits: 1, Val: 0}
}
