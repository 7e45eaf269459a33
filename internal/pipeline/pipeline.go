// Package pipeline composes the eight instrumentation passes into the
// single ordered run the host driver invokes once per module.
package pipeline

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/passerr"
	"github.com/kolkov/unsafeprobe/internal/passes/cyclecounter"
	"github.com/kolkov/unsafeprobe/internal/passes/debuginfoanchor"
	"github.com/kolkov/unsafeprobe/internal/passes/externalcalltracker"
	"github.com/kolkov/unsafeprobe/internal/passes/functiontracker"
	"github.com/kolkov/unsafeprobe/internal/passes/heaptracker"
	"github.com/kolkov/unsafeprobe/internal/passes/instructioncounter"
	"github.com/kolkov/unsafeprobe/internal/passes/linecoverage"
	"github.com/kolkov/unsafeprobe/internal/passes/markerplanter"
	"github.com/kolkov/unsafeprobe/internal/passselect"
	"github.com/kolkov/unsafeprobe/ir"
)

// Report summarizes one run of the pipeline across every pass, for the
// CLI to print and for tests to assert against.
type Report struct {
	Primary bool

	FunctionsMarked        int
	RegionsPlanted         int
	PhisReordered          int
	LocationsAnchored      int
	FunctionsTracked       int
	BlocksCounted          int
	LinesRegistered        int
	LineSitesInstrumented  int
	ExternalCallsWrapped   int
	HeapAccessesGeneric    int
	HeapAccessesUnsafe     int
	CyclesMeasured         int

	Anomalies []*passerr.Anomaly
}

// Run executes every pass against mod in the dependency order the
// specification requires:
//
//  1. MarkerPlanter, once per function definition.
//  2. DebugInfoAnchor, whole-module, while locations are still fresh.
//  3. FunctionTracker, whole-module; assigns the ids InstructionCounter
//     needs.
//  4. InstructionCounter, once per function, consuming those ids.
//  5. LineCoverage, whole-module; depends only on MarkerPlanter's
//     unsafe_line_info attachments, so it is free to run anywhere after
//     step 1, scheduled here before the marker-consuming tail.
//  6. ExternalCallTracker and HeapTracker, which commute and must run
//     after markers are planted and before CycleCounter erases them.
//  7. CycleCounter, last, because it is the only pass that erases
//     marker sentinels.
//
// cfg is built once by the caller via config.Load and shared across every
// pass; Run never reads the environment itself.
func Run(mod *ir.Module, cfg *config.Config) Report {
	return RunSelective(mod, cfg, nil)
}

// RunSelective is Run with one addition: sel, if non-nil, lets a project
// opt individual passes out by name (see internal/passselect). MarkerPlanter
// itself is never skippable - every other pass that cares about marker
// regions depends on it having run - but everything downstream of it is.
func RunSelective(mod *ir.Module, cfg *config.Config, sel *passselect.Selection) Report {
	report := Report{Primary: cfg.Primary}
	if !cfg.Primary {
		return report
	}

	for _, fn := range mod.Funcs {
		res := markerplanter.Run(fn, cfg)
		if res.Changed {
			report.FunctionsMarked++
		}
		report.RegionsPlanted += res.RegionsPlanted
	}

	if !sel.Skips("debuginfoanchor") {
		anchorRes := debuginfoanchor.Run(mod, cfg)
		report.PhisReordered = anchorRes.PhisReordered
		report.LocationsAnchored = anchorRes.LocationsAnchored
	}

	if !sel.Skips("functiontracker") {
		trackerRes := functiontracker.Run(mod, cfg)
		report.FunctionsTracked = len(trackerRes.FuncIDs)
	}

	if !sel.Skips("instructioncounter") {
		for _, fn := range mod.Funcs {
			res := instructioncounter.Run(fn, cfg)
			report.BlocksCounted += res.BlocksInstrumented
		}
	}

	if !sel.Skips("linecoverage") {
		covRes := linecoverage.Run(mod, cfg)
		report.LinesRegistered = covRes.LinesRegistered
		report.LineSitesInstrumented = covRes.SitesInstrumented
	}

	if !sel.Skips("externalcalltracker") {
		extRes := externalcalltracker.Run(mod, cfg)
		report.ExternalCallsWrapped = extRes.CallsWrapped
		report.Anomalies = append(report.Anomalies, extRes.Anomalies...)
	}

	if !sel.Skips("heaptracker") {
		for _, fn := range mod.Funcs {
			res := heaptracker.Run(fn, cfg)
			report.HeapAccessesGeneric += res.GenericAccesses
			report.HeapAccessesUnsafe += res.UnsafeAccesses
		}
	}

	if !sel.Skips("cyclecounter") {
		cycleRes := cyclecounter.Run(mod, cfg)
		report.CyclesMeasured = cycleRes.RunsMeasured
		report.Anomalies = append(report.Anomalies, cycleRes.Anomalies...)
	}

	return report
}
