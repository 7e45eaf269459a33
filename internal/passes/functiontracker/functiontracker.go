// Package functiontracker implements the FunctionTracker pass: a
// whole-module pass that assigns every eligible function a dense id,
// builds the module-global function-metadata table the runtime uses to
// report per-function statistics, and plants the "function entered" call
// at each eligible function's entry point.
package functiontracker

import (
	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/runtimeabi"
	"github.com/kolkov/unsafeprobe/internal/sentinel"
	"github.com/kolkov/unsafeprobe/ir"
)

const metadataTableName = "__unsafe_metadata_table"
const moduleInitName = "__unsafe_module_init"

// Record is one entry of the function-metadata table: {id, hasUnsafeInst,
// reserved, padding}, 8-byte aligned as a whole.
type Record struct {
	ID            int32
	HasUnsafeInst bool
	Reserved      uint8
	Padding       uint16
}

// Result reports what FunctionTracker did to the module.
type Result struct {
	Changed bool
	FuncIDs map[string]int32 // function name -> assigned id, in assignment order
	Table   []Record
}

// Run assigns ids, builds the metadata table and ctor/dtor pair, and
// plants entry calls. A module with no eligible functions is left
// unmodified.
func Run(mod *ir.Module, cfg *config.Config) Result {
	res := Result{FuncIDs: make(map[string]int32)}
	if !cfg.Primary {
		return res
	}

	var nextID int32
	for _, fn := range mod.Funcs {
		if !fn.Eligible(runtimeabi.IsHelperName) {
			continue
		}
		id := nextID
		nextID++

		fn.SetMeta(ir.KeyFuncID, id)
		res.FuncIDs[fn.Name] = id

		rec := Record{ID: id, HasUnsafeInst: hasUnsafeInstInRegion(fn)}
		res.Table = append(res.Table, rec)
	}

	if len(res.Table) == 0 {
		return res
	}
	res.Changed = true

	installMetadataTable(mod, res.Table)
	installModuleInit(mod)
	installEntryCalls(mod, res.FuncIDs)

	return res
}

// hasUnsafeInstInRegion scans fn's inline-asm calls to track open/closed
// marker regions and reports whether any unsafe_inst instruction falls
// inside one. An unsafe_inst observed outside an open region - which
// should not happen once MarkerPlanter has run - does not qualify the
// function.
func hasUnsafeInstInRegion(fn *ir.Function) bool {
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
			if inside && inst.HasMeta(ir.KeyUnsafeInst) {
				return true
			}
		}
	}
	return false
}

// installMetadataTable lays out the collected records as a packed,
// 8-byte-aligned internal constant global.
func installMetadataTable(mod *ir.Module, records []Record) *ir.Global {
	global := &ir.Global{
		Name:     metadataTableName,
		Internal: true,
		Align:    8,
		Size:     len(records) * 8,
	}
	global.Init = &ir.ConstAggregate{
		Desc: "[" + metadataTableName + " x record]",
		Raw:  records,
	}
	mod.AddGlobal(global)
	return global
}

// installModuleInit declares the runtime-side helpers, synthesizes the
// internal constructor that hands the table pointer and count to
// __unsafe_init_metadata, and registers both the constructor and the
// dump-stats destructor at priority 0.
func installModuleInit(mod *ir.Module) {
	initMetadata := runtimeabi.Declare(mod, "__unsafe_init_metadata")
	runtimeabi.Declare(mod, "__unsafe_record_function")
	dumpStats := runtimeabi.Declare(mod, "__unsafe_dump_stats")

	table, _ := mod.GlobalByName(metadataTableName)

	ctor := &ir.Function{Name: moduleInitName, Linkage: ir.LinkageInternal, RetType: "void"}
	blk := ctor.NewBlock("entry")

	call := ctor.NewInstruction(ir.OpCall)
	call.Callee = initMetadata.Name
	count := len(table.Init.(*ir.ConstAggregate).Raw.([]Record))
	call.Operands = []ir.Value{table, &ir.ConstInt{Bits: 32, Val: int64(count)}}
	blk.Append(call)

	ret := ctor.NewInstruction(ir.OpRet)
	blk.Append(ret)

	mod.AddFunc(ctor)
	mod.AddCtor(0, ctor)
	mod.AddDtor(0, dumpStats)
}

// installEntryCalls plants a __unsafe_record_function(id) call at the very
// front of every eligible function's entry block.
func installEntryCalls(mod *ir.Module, ids map[string]int32) {
	for _, fn := range mod.Funcs {
		id, ok := ids[fn.Name]
		if !ok {
			continue
		}
		entry := fn.Entry()
		if entry == nil || len(entry.Insts) == 0 {
			continue
		}

		call := fn.NewInstruction(ir.OpCall)
		call.Callee = "__unsafe_record_function"
		call.Operands = []ir.Value{&ir.ConstInt{Bits: 32, Val: int64(id)}}
		entry.InsertBefore(entry.Insts[0], call)
	}
}
