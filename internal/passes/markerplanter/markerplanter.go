// Package markerplanter implements the MarkerPlanter pass: the first stage
// of the pipeline, run once per function definition.
//
// It does two sweeps. The first copies each unsafe-tagged instruction's
// debug location into an unsafe_line_info attachment, so the information
// survives even if a later optimization strips the original location. The
// second brackets each basic block's contiguous run of unsafe instructions
// with a begin/end sentinel pair that every later pass in the pipeline can
// recognize without re-deriving "am I inside a region" from scratch.
package markerplanter

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/sentinel"
	"github.com/kolkov/unsafeprobe/ir"
)

// Result reports what MarkerPlanter did to one function.
type Result struct {
	Changed          bool
	LineInfoAttached int // instructions that received unsafe_line_info
	RegionsPlanted   int // blocks that received a begin/end marker pair
}

// Run plants markers in fn. Non-primary builds and function declarations
// both short-circuit to an unmodified, Changed=false result, per the
// pipeline's silent-skip error kind.
func Run(fn *ir.Function, cfg *config.Config) Result {
	if !cfg.Primary || fn.Declaration {
		return Result{}
	}

	var res Result
	attachLineInfo(fn, &res)
	plantMarkers(fn, &res)
	return res
}

// attachLineInfo is MarkerPlanter's first sweep: every unsafe_inst
// instruction with a valid (non-zero line, non-empty file) debug location
// gets a copy of that coordinate stashed under unsafe_line_info.
func attachLineInfo(fn *ir.Function, res *Result) {
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if !inst.HasMeta(ir.KeyUnsafeInst) {
				continue
			}
			if inst.Loc == nil || inst.Loc.Line == 0 || inst.Loc.File == "" {
				continue
			}
			inst.SetMeta(ir.KeyUnsafeLineInfo, &ir.LineInfo{
				Line: inst.Loc.Line,
				File: inst.Loc.File,
			})
			res.LineInfoAttached++
			res.Changed = true
		}
	}
}

// plantMarkers is MarkerPlanter's second sweep: per block, find the first
// and last unsafe_inst instruction and bracket the run between them with a
// begin/end sentinel pair. Instructions in between are treated as part of
// the run regardless of whether they individually carry unsafe_inst - the
// unit of measurement is the contiguous region, not the individual
// instruction.
func plantMarkers(fn *ir.Function, res *Result) {
	for _, blk := range fn.Blocks {
		first, last := firstAndLastUnsafe(blk)
		if first == nil {
			continue
		}

		begin := sentinel.NewBegin(fn)
		blk.InsertBefore(first, begin)

		end := sentinel.NewEnd(fn)
		if last == blk.Terminator() {
			// The unsafe run reaches the block's terminator; the end
			// marker must still land before it so the block keeps
			// exactly one terminator.
			blk.InsertBefore(last, end)
		} else {
			blk.InsertAfter(last, end)
		}

		res.RegionsPlanted++
		res.Changed = true
	}
}

// firstAndLastUnsafe returns the first and last unsafe_inst instruction in
// blk that is not already inside a begin/end marker region, so running the
// pass again on IR it has already marked plants nothing new.
func firstAndLastUnsafe(blk *ir.BasicBlock) (first, last *ir.Instruction) {
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
		if inside || !inst.HasMeta(ir.KeyUnsafeInst) {
			continue
		}
		if first == nil {
			first = inst
		}
		last = inst
	}
	return first, last
}
