// Package instructioncounter implements the InstructionCounter pass: a
// per-function pass that tallies, for every basic block, the total
// instruction count and a six-way category breakdown of the instructions
// that fall inside a marker-delimited unsafe run, then reports the tally
// to the runtime with a single call per block.
package instructioncounter

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/runtimeabi"
	"github.com/kolkov/unsafeprobe/internal/sentinel"
	"github.com/kolkov/unsafeprobe/ir"
)

// counts holds one block's tally. Category fields stay within 16 bits,
// same as the runtime record; the two totals are kept as int but never
// exceed 32 bits in any function this pipeline will ever see.
type counts struct {
	total, unsafeTotal                  int
	load, store, call, cast, gep, other int
}

// Result reports what InstructionCounter did to a function.
type Result struct {
	Changed            bool
	Skipped            bool // true when the func_id attachment was missing
	BlocksInstrumented int
}

// Run scans fn's blocks and plants a __unsafe_record_block call before
// each non-empty block's terminator. A function with no func_id
// attachment - meaning FunctionTracker either didn't run or deemed it
// ineligible - is skipped silently, as required.
func Run(fn *ir.Function, cfg *config.Config) Result {
	if !cfg.Primary || fn.Declaration {
		return Result{}
	}

	funcIDVal, ok := fn.Meta(ir.KeyFuncID)
	if !ok {
		return Result{Skipped: true}
	}
	funcID, _ := funcIDVal.(int32)

	var res Result
	for _, blk := range fn.Blocks {
		if len(blk.Insts) == 0 {
			continue
		}
		c := tally(blk)
		plantRecordCall(blk, funcID, c)
		res.BlocksInstrumented++
		res.Changed = true
	}
	return res
}

// tally walks blk once, tracking the marker-region state and classifying
// every non-marker, non-debug instruction.
func tally(blk *ir.BasicBlock) counts {
	var c counts
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
		if inst.Op == ir.OpDebugIntrinsic {
			continue
		}

		c.total++
		if !inside {
			continue
		}
		c.unsafeTotal++
		switch inst.Op {
		case ir.OpLoad:
			c.load++
		case ir.OpStore, ir.OpAtomicCmpXchg, ir.OpAtomicRMW:
			c.store++
		case ir.OpCall, ir.OpInvoke, ir.OpCallBr:
			c.call++
		case ir.OpBitCast, ir.OpIntToPtr, ir.OpPtrToInt, ir.OpAddrSpaceCast:
			c.cast++
		case ir.OpGetElementPtr:
			c.gep++
		default:
			c.other++
		}
	}
	return c
}

// plantRecordCall inserts __unsafe_record_block(func_id, total,
// unsafe_total, load, store, call, cast, gep, other) immediately before
// blk's terminator. Declaring the helper is idempotent across every
// block and every function that calls this.
func plantRecordCall(blk *ir.BasicBlock, funcID int32, c counts) {
	fn := blk.Func()
	runtimeabi.Declare(fn.Module(), "__unsafe_record_block")

	call := fn.NewInstruction(ir.OpCall)
	call.Callee = "__unsafe_record_block"
	call.Operands = []ir.Value{
		&ir.ConstInt{Bits: 32, Val: int64(funcID)},
		&ir.ConstInt{Bits: 32, Val: int64(c.total)},
		&ir.ConstInt{Bits: 32, Val: int64(c.unsafeTotal)},
		&ir.ConstInt{Bits: 16, Val: int64(c.load)},
		&ir.ConstInt{Bits: 16, Val: int64(c.store)},
		&ir.ConstInt{Bits: 16, Val: int64(c.call)},
		&ir.ConstInt{Bits: 16, Val: int64(c.cast)},
		&ir.ConstInt{Bits: 16, Val: int64(c.gep)},
		&ir.ConstInt{Bits: 16, Val: int64(c.other)},
	}

	term := blk.Terminator()
	blk.InsertBefore(term, call)
}
