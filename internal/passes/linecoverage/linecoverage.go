// Package linecoverage implements an unsafe-line coverage pass that
// supplements the core pipeline: it is not one of the seven passes the
// specification names, but the ABI table's register_unsafe_line,
// track_unsafe_line_execution and print_unsafe_coverage_stats entries,
// and the unsafe_line_info attachment MarkerPlanter already writes, have
// no other consumer. It registers every distinct unsafe line at compile
// time and tracks which of them actually execute.
package linecoverage

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/runtimeabi"
	"github.com/kolkov/unsafeprobe/ir"
)

const ctorName = "unsafe_lines_module_ctor"
const dtorName = "unsafe_lines_module_dtor"

// Result reports what LineCoverage did to the module.
type Result struct {
	Changed           bool
	LinesRegistered   int
	SitesInstrumented int
}

// Run collects every distinct unsafe_line_info across the module,
// synthesizes a constructor that registers them all, plants a
// track_unsafe_line_execution call at every instruction carrying the
// attachment, and registers the coverage-dump destructor.
func Run(mod *ir.Module, cfg *config.Config) Result {
	if !cfg.Primary {
		return Result{}
	}

	sites := collectSites(mod)
	if len(sites) == 0 {
		return Result{}
	}

	registerFn := runtimeabi.Declare(mod, "register_unsafe_line")
	trackFn := runtimeabi.Declare(mod, "track_unsafe_line_execution")
	printFn := runtimeabi.Declare(mod, "print_unsafe_coverage_stats")

	var res Result
	distinct := distinctLines(sites)
	installCtor(mod, registerFn, distinct)
	mod.AddDtor(0, printFn)
	if ctor, ok := mod.FuncByName(ctorName); ok {
		mod.AddCtor(0, ctor)
	}
	res.LinesRegistered = len(distinct)

	for _, s := range sites {
		plantTrackCall(s.fn, s.blk, s.inst, trackFn, s.line)
		res.SitesInstrumented++
	}
	res.Changed = true
	return res
}

// site pairs an instruction carrying unsafe_line_info with its owning
// block/function and the decoded line info.
type site struct {
	fn   *ir.Function
	blk  *ir.BasicBlock
	inst *ir.Instruction
	line ir.LineInfo
}

// collectSites scans every instruction in the module for the
// unsafe_line_info attachment MarkerPlanter writes.
func collectSites(mod *ir.Module) []site {
	var sites []site
	for _, fn := range mod.Funcs {
		if fn.Declaration {
			continue
		}
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Insts {
				v, ok := inst.Meta(ir.KeyUnsafeLineInfo)
				if !ok {
					continue
				}
				li, ok := v.(*ir.LineInfo)
				if !ok || li == nil {
					continue
				}
				sites = append(sites, site{fn: fn, blk: blk, inst: inst, line: *li})
			}
		}
	}
	return sites
}

// distinctLines reduces sites to the set of distinct (line, file) pairs,
// in first-encounter order, mirroring the runtime's own HashSet-backed
// registration.
func distinctLines(sites []site) []ir.LineInfo {
	seen := make(map[ir.LineInfo]bool)
	var out []ir.LineInfo
	for _, s := range sites {
		if seen[s.line] {
			continue
		}
		seen[s.line] = true
		out = append(out, s.line)
	}
	return out
}

// installCtor synthesizes the constructor that registers every distinct
// unsafe line at startup.
func installCtor(mod *ir.Module, registerFn *ir.Function, lines []ir.LineInfo) {
	ctor := &ir.Function{Name: ctorName, Linkage: ir.LinkageInternal, RetType: "void"}
	blk := ctor.NewBlock("entry")
	for _, li := range lines {
		call := ctor.NewInstruction(ir.OpCall)
		call.Callee = registerFn.Name
		call.Operands = []ir.Value{
			&ir.ConstInt{Bits: 64, Val: int64(li.Line)},
			&ir.ConstString{Val: li.File},
		}
		blk.Append(call)
	}
	blk.Append(ctor.NewInstruction(ir.OpRet))
	mod.AddFunc(ctor)
}

// plantTrackCall inserts track_unsafe_line_execution(line, file)
// immediately before the instruction that carries the line's
// unsafe_line_info attachment, so the call executes exactly when that
// instruction does.
func plantTrackCall(fn *ir.Function, blk *ir.BasicBlock, at *ir.Instruction, trackFn *ir.Function, li ir.LineInfo) {
	call := fn.NewInstruction(ir.OpCall)
	call.Callee = trackFn.Name
	call.Operands = []ir.Value{
		&ir.ConstInt{Bits: 64, Val: int64(li.Line)},
		&ir.ConstString{Val: li.File},
	}
	blk.InsertBefore(at, call)
}
