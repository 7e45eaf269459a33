// Package debuginfoanchor implements the DebugInfoAnchor pass: a
// whole-module pass that runs while original debug locations are still
// present and keeps them reachable for later passes even across
// transforms that would otherwise let them be stripped.
//
// It does two things, in order: a purely defensive normalization of
// leading phi instructions within each block, and the creation of an
// internal "anchor" global that carries every distinct debug location in
// the module as a metadata attachment. The anchor has no consumer inside
// this pipeline; it exists as an interface to tooling downstream of the
// core (see the specification's open questions).
package debuginfoanchor

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/ir"
)

const anchorGlobalName = "__unsafe_debuginfo_anchor"

// Result reports what DebugInfoAnchor did to the module.
type Result struct {
	Changed           bool
	PhisReordered     int // blocks whose leading phis were made contiguous
	LocationsAnchored int
}

// Run normalizes phi order in every function and, if the module contains
// at least one valid debug location, attaches all of them to a new anchor
// global. A module with none produces no anchor; that is not an error,
// just an unmodified result for that half of the pass.
func Run(mod *ir.Module, cfg *config.Config) Result {
	if !cfg.Primary {
		return Result{}
	}

	var res Result
	for _, fn := range mod.Funcs {
		if fn.Declaration {
			continue
		}
		for _, blk := range fn.Blocks {
			if normalizePhiOrder(blk) {
				res.PhisReordered++
				res.Changed = true
			}
		}
	}

	locs := collectValidLocations(mod)
	if len(locs) == 0 {
		return res
	}

	anchor := &ir.Global{Name: anchorGlobalName, Internal: true, Size: 1}
	anchor.SetMeta(ir.KeyPreservedDbg, locs)
	mod.AddGlobal(anchor)
	mod.MarkCompilerUsed(anchor)

	res.LocationsAnchored = len(locs)
	res.Changed = true
	return res
}

// normalizePhiOrder moves every phi instruction in blk to the front of the
// block, preserving their relative order, and reports whether anything
// moved. This never changes program semantics: phi order within a block's
// leading run has no observable effect, but later passes that scan "the
// leading phis" benefit from them being contiguous.
func normalizePhiOrder(blk *ir.BasicBlock) bool {
	var phis, rest []*ir.Instruction
	sawNonPhi := false
	reordered := false
	for _, inst := range blk.Insts {
		if inst.Op == ir.OpPhi {
			phis = append(phis, inst)
			if sawNonPhi {
				reordered = true
			}
			continue
		}
		sawNonPhi = true
		rest = append(rest, inst)
	}
	if !reordered {
		return false
	}
	blk.Insts = append(phis, rest...)
	return true
}

// collectValidLocations gathers every distinct valid debug location
// (non-empty scope and file, positive line and column) across every
// instruction in the module, in encounter order.
func collectValidLocations(mod *ir.Module) []*ir.DebugLocation {
	var locs []*ir.DebugLocation
	seen := make(map[ir.DebugLocation]bool)
	for _, fn := range mod.Funcs {
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Insts {
				if !inst.Loc.Valid() {
					continue
				}
				if seen[*inst.Loc] {
					continue
				}
				seen[*inst.Loc] = true
				locs = append(locs, inst.Loc)
			}
		}
	}
	return locs
}
