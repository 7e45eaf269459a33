package functiontracker

import (
	"testing"

	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/sentinel"
	"github.com/kolkov/unsafeprobe/ir"
)

func addSimpleFunc(mod *ir.Module, name string) *ir.Function {
	fn := &ir.Function{Name: name}
	blk := fn.NewBlock("entry")
	blk.Append(fn.NewInstruction(ir.OpRet))
	mod.AddFunc(fn)
	return fn
}

// TestIDDensity checks property 4: ids assigned form the contiguous range
// [0, n) in module iteration order.
func TestIDDensity(t *testing.T) {
	mod := ir.NewModule("m")
	addSimpleFunc(mod, "a")
	addSimpleFunc(mod, "b")
	addSimpleFunc(mod, "c")

	res := Run(mod, config.Enabled())
	if res.FuncIDs["a"] != 0 || res.FuncIDs["b"] != 1 || res.FuncIDs["c"] != 2 {
		t.Fatalf("expected dense ids 0,1,2 in encounter order, got %+v", res.FuncIDs)
	}
}

// TestScenarioBEmptyModule checks that a module with only a declaration is
// skipped entirely: no ids, no table, no modification.
func TestScenarioBEmptyModule(t *testing.T) {
	mod := ir.NewModule("m")
	mod.DeclareFunc("memcpy", "void", "ptr", "ptr", "i64")

	res := Run(mod, config.Enabled())
	if res.Changed {
		t.Fatalf("expected Changed=false for a module with no eligible functions")
	}
	if len(res.FuncIDs) != 0 {
		t.Fatalf("expected no ids assigned")
	}
}

// TestHelperFunctionsNotEligible ensures a runtime helper name slipping
// into the module's function list is never assigned an id.
func TestHelperFunctionsNotEligible(t *testing.T) {
	mod := ir.NewModule("m")
	addSimpleFunc(mod, "do_work")
	helper := &ir.Function{Name: "__unsafe_record_function"}
	helper.NewBlock("entry")
	mod.AddFunc(helper)

	res := Run(mod, config.Enabled())
	if _, ok := res.FuncIDs["__unsafe_record_function"]; ok {
		t.Fatalf("runtime helper must never be assigned an id")
	}
	if _, ok := res.FuncIDs["do_work"]; !ok {
		t.Fatalf("expected do_work to be assigned an id")
	}
}

// TestCtorDtorRegisteredAtPriorityZero checks that the module constructor
// and destructor are installed exactly once, both at priority 0.
func TestCtorDtorRegisteredAtPriorityZero(t *testing.T) {
	mod := ir.NewModule("m")
	addSimpleFunc(mod, "do_work")

	Run(mod, config.Enabled())

	if len(mod.Ctors) != 1 || mod.Ctors[0].Priority != 0 {
		t.Fatalf("expected exactly one priority-0 ctor, got %+v", mod.Ctors)
	}
	if len(mod.Dtors) != 1 || mod.Dtors[0].Priority != 0 {
		t.Fatalf("expected exactly one priority-0 dtor, got %+v", mod.Dtors)
	}
	if mod.Dtors[0].Func.Name != "__unsafe_dump_stats" {
		t.Fatalf("expected dtor to be __unsafe_dump_stats, got %s", mod.Dtors[0].Func.Name)
	}
}

// TestEntryCallPlanted checks that __unsafe_record_function(id) is
// inserted as the very first instruction of the eligible function's entry
// block.
func TestEntryCallPlanted(t *testing.T) {
	mod := ir.NewModule("m")
	fn := addSimpleFunc(mod, "do_work")

	Run(mod, config.Enabled())

	entry := fn.Entry()
	first := entry.Insts[0]
	if first.Op != ir.OpCall || first.Callee != "__unsafe_record_function" {
		t.Fatalf("expected __unsafe_record_function call at entry, got %v", first)
	}
}

// TestHasUnsafeInstInRegionRespectsMarkers confirms an unsafe_inst
// instruction outside any marker region does not qualify the function as
// unsafe for the table's HasUnsafeInst flag.
func TestHasUnsafeInstInRegionRespectsMarkers(t *testing.T) {
	mod := ir.NewModule("m")

	fnOutside := &ir.Function{Name: "outside"}
	blk := fnOutside.NewBlock("entry")
	unsafeInst := fnOutside.NewInstruction(ir.OpLoad)
	unsafeInst.SetMeta(ir.KeyUnsafeInst, nil)
	blk.Append(unsafeInst)
	blk.Append(fnOutside.NewInstruction(ir.OpRet))
	mod.AddFunc(fnOutside)

	fnInside := &ir.Function{Name: "inside"}
	blk2 := fnInside.NewBlock("entry")
	begin := sentinel.NewBegin(fnInside)
	insideInst := fnInside.NewInstruction(ir.OpLoad)
	insideInst.SetMeta(ir.KeyUnsafeInst, nil)
	end := sentinel.NewEnd(fnInside)
	blk2.Append(begin)
	blk2.Append(insideInst)
	blk2.Append(end)
	blk2.Append(fnInside.NewInstruction(ir.OpRet))
	mod.AddFunc(fnInside)

	res := Run(mod, config.Enabled())

	var outsideRec, insideRec *Record
	for i := range res.Table {
		switch res.Table[i].ID {
		case res.FuncIDs["outside"]:
			outsideRec = &res.Table[i]
		case res.FuncIDs["inside"]:
			insideRec = &res.Table[i]
		}
	}
	if outsideRec == nil || insideRec == nil {
		t.Fatalf("expected records for both functions")
	}
	if outsideRec.HasUnsafeInst {
		t.Fatalf("unsafe_inst outside a marker region must not qualify the function")
	}
	if !insideRec.HasUnsafeInst {
		t.Fatalf("unsafe_inst inside a marker region must qualify the function")
	}
}
