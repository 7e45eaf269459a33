// Package cyclecounter implements the CycleCounter pass: the last pass
// in the pipeline that consumes marker sentinels. For every matched
// begin/end pair it installs a fenced CPU-cycle measurement and then
// erases the markers, leaving no trace of them behind.
package cyclecounter

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/passerr"
	"github.com/kolkov/unsafeprobe/internal/runtimeabi"
	"github.com/kolkov/unsafeprobe/internal/sentinel"
	"github.com/kolkov/unsafeprobe/ir"
)

const ctorName = "cpu_cycle_ctor"

// pair is a matched begin/end marker within one basic block.
type pair struct {
	blk   *ir.BasicBlock
	begin *ir.Instruction
	end   *ir.Instruction
}

// Result reports what CycleCounter did to the module.
type Result struct {
	Changed      bool
	RunsMeasured int
	Anomalies    []*passerr.Anomaly // unpaired begins, dropped silently
}

// Run installs the module-level ctor/dtor pair and, for every eligible
// function, matches and rewrites every marker-delimited run.
func Run(mod *ir.Module, cfg *config.Config) Result {
	if !cfg.Primary {
		return Result{}
	}

	runtimeabi.Declare(mod, "record_program_start")
	startFn := runtimeabi.Declare(mod, "cpu_cycle_start_measurement")
	endFn := runtimeabi.Declare(mod, "cpu_cycle_end_measurement")
	printFn := runtimeabi.Declare(mod, "print_cpu_cycle_stats")

	var res Result
	for _, fn := range mod.Funcs {
		if !fn.Eligible(runtimeabi.IsHelperName) {
			continue
		}
		pairs, anomalies := matchPairs(fn)
		res.Anomalies = append(res.Anomalies, anomalies...)
		for _, p := range pairs {
			rewritePair(fn, p, startFn, endFn)
			res.RunsMeasured++
			res.Changed = true
		}
	}

	installCtor(mod)
	mod.AddCtor(0, mustFunc(mod, ctorName))
	mod.AddDtor(0, printFn)
	res.Changed = true

	return res
}

// matchPairs scans every block of fn, matching each begin-marker to the
// first following end-marker in the same block. Nested begins are
// ignored - the outer begin wins - and an unpaired begin at end-of-block
// is dropped silently, recorded as an anomaly rather than failing the
// pass.
func matchPairs(fn *ir.Function) ([]pair, []*passerr.Anomaly) {
	var pairs []pair
	var anomalies []*passerr.Anomaly
	for _, blk := range fn.Blocks {
		var openBegin *ir.Instruction
		for _, inst := range blk.Insts {
			switch sentinel.Classify(inst) {
			case sentinel.Begin:
				if openBegin == nil {
					openBegin = inst
				}
			case sentinel.End:
				if openBegin != nil {
					pairs = append(pairs, pair{blk: blk, begin: openBegin, end: inst})
					openBegin = nil
				}
			}
		}
		if openBegin != nil {
			anomalies = append(anomalies, passerr.New("CycleCounter", fn.Name, blk.Name, "unpaired begin marker, dropped"))
		}
	}
	return pairs, anomalies
}

// rewritePair installs the fence+call sequence at a matched pair's
// positions, then erases both markers.
func rewritePair(fn *ir.Function, p pair, startFn, endFn *ir.Function) {
	startFence := fn.NewInstruction(ir.OpFence)
	startCall := fn.NewInstruction(ir.OpCall)
	startCall.Callee = startFn.Name
	startCall.ResultType = "i64"

	p.blk.InsertBefore(p.begin, startFence)
	p.blk.InsertBefore(p.begin, startCall)

	endFence := fn.NewInstruction(ir.OpFence)
	endCall := fn.NewInstruction(ir.OpCall)
	endCall.Callee = endFn.Name
	endCall.Operands = []ir.Value{startCall}

	p.blk.InsertBefore(p.end, endFence)
	p.blk.InsertBefore(p.end, endCall)

	p.blk.Erase(p.begin, &ir.Undef{Type: "void"})
	p.blk.Erase(p.end, &ir.Undef{Type: "void"})
}

// installCtor synthesizes the internal constructor that notifies the
// runtime of program start, if it hasn't already been created (Run is
// meant to execute exactly once per pipeline invocation, but stays
// idempotent in case a caller re-invokes it).
func installCtor(mod *ir.Module) {
	if _, ok := mod.FuncByName(ctorName); ok {
		return
	}
	ctor := &ir.Function{Name: ctorName, Linkage: ir.LinkageInternal, RetType: "void"}
	blk := ctor.NewBlock("entry")

	call := ctor.NewInstruction(ir.OpCall)
	call.Callee = "record_program_start"
	blk.Append(call)

	blk.Append(ctor.NewInstruction(ir.OpRet))
	mod.AddFunc(ctor)
}

func mustFunc(mod *ir.Module, name string) *ir.Function {
	f, _ := mod.FuncByName(name)
	return f
}
