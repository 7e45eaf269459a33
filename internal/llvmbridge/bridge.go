// Package llvmbridge is the pipeline's only dependency on a real LLVM IR
// parser. It parses textual .ll input with github.com/llir/llvm/asm into
// that library's own IR tree, then lifts it into the pipeline's own,
// much smaller ir.Module shape — the one every pass in
// internal/passes/... actually operates on.
//
// The lift is necessarily lossy: llir/llvm models the entire LLVM
// instruction set and type system, while the pipeline only needs enough
// structure to recognize markers, metadata attachments and a handful of
// opcodes. Anything lift doesn't recognize degrades to ir.OpOther rather
// than failing the parse - the same "preserve what you don't understand"
// posture the rest of the pipeline takes toward unrelated IR.
package llvmbridge

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/llir/llvm/asm"
	llvmir "github.com/llir/llvm/ir"
	llvmconstant "github.com/llir/llvm/ir/constant"
	llvmmetadata "github.com/llir/llvm/ir/metadata"
	llvmvalue "github.com/llir/llvm/ir/value"

	"github.com/kolkov/unsafeprobe/ir"
)

// Parse reads the .ll file at path and lifts it into the pipeline's IR.
func Parse(path string) (*ir.Module, error) {
	src, err := asm.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("llvmbridge: parse %s: %w", path, err)
	}
	return lift(path, src), nil
}

// lift walks a parsed llir/llvm module and builds the pipeline's own
// ir.Module from it. Function and block structure carries over directly;
// instructions are classified into the pipeline's narrower Opcode set.
func lift(name string, src *llvmir.Module) *ir.Module {
	mod := ir.NewModule(name)

	for _, srcFn := range src.Funcs {
		fn := &ir.Function{
			Name:        strings.TrimPrefix(srcFn.Name(), "@"),
			RetType:     srcFn.Sig.RetType.String(),
			Declaration: len(srcFn.Blocks) == 0,
			Intrinsic:   strings.HasPrefix(srcFn.Name(), "llvm."),
			Linkage:     liftLinkage(srcFn.Linkage),
		}
		for _, p := range srcFn.Params {
			fn.Params = append(fn.Params, &ir.Param{Name: p.Name(), Type: p.Type().String()})
		}
		mod.AddFunc(fn)

		for _, srcBlk := range srcFn.Blocks {
			blk := fn.NewBlock(srcBlk.Name())
			for _, srcInst := range srcBlk.Insts {
				blk.Append(liftInstruction(fn, srcInst))
			}
			if srcBlk.Term != nil {
				blk.Append(liftTerminator(fn, srcBlk.Term))
			}
		}
	}

	for _, srcGlobal := range src.Globals {
		mod.AddGlobal(&ir.Global{
			Name:     strings.TrimPrefix(srcGlobal.Name(), "@"),
			Internal: isInternalLinkage(srcGlobal.Linkage),
		})
	}

	return mod
}

// linkageStringer is satisfied by llir/llvm's enum.Linkage; declared here
// rather than imported so the bridge doesn't need its own dependency on
// the enum subpackage just to classify two linkage kinds.
type linkageStringer interface {
	String() string
}

func isInternalLinkage(l linkageStringer) bool {
	return l.String() == "internal" || l.String() == "private"
}

func liftLinkage(l linkageStringer) ir.Linkage {
	switch l.String() {
	case "internal":
		return ir.LinkageInternal
	case "private":
		return ir.LinkagePrivate
	default:
		return ir.LinkageExternal
	}
}

// liftInstruction classifies one non-terminator llir/llvm instruction
// into the pipeline's Opcode set, carrying over operands where the
// pipeline's passes need them (loads, stores, calls), then applies
// whatever unsafe_inst/dbg metadata the front end attached to it.
func liftInstruction(fn *ir.Function, src llvmir.Instruction) *ir.Instruction {
	var inst *ir.Instruction
	var mds []*llvmmetadata.Attachment

	switch v := src.(type) {
	case *llvmir.InstLoad:
		inst = fn.NewInstruction(ir.OpLoad)
		inst.Operands = []ir.Value{liftValue(v.Src)}
		inst.ResultType = v.Type().String()
		mds = v.Metadata
	case *llvmir.InstStore:
		inst = fn.NewInstruction(ir.OpStore)
		inst.Operands = []ir.Value{liftValue(v.Src), liftValue(v.Dst)}
		mds = v.Metadata
	case *llvmir.InstCmpXchg:
		inst = fn.NewInstruction(ir.OpAtomicCmpXchg)
		mds = v.Metadata
	case *llvmir.InstAtomicRMW:
		inst = fn.NewInstruction(ir.OpAtomicRMW)
		mds = v.Metadata
	case *llvmir.InstCall:
		inst = fn.NewInstruction(ir.OpCall)
		inst.Callee = calleeName(v.Callee)
		for _, arg := range v.Args {
			inst.Operands = append(inst.Operands, liftValue(arg))
		}
		inst.ResultType = v.Type().String()
		mds = v.Metadata
	case *llvmir.InstBitCast:
		inst = fn.NewInstruction(ir.OpBitCast)
		mds = v.Metadata
	case *llvmir.InstIntToPtr:
		inst = fn.NewInstruction(ir.OpIntToPtr)
		mds = v.Metadata
	case *llvmir.InstPtrToInt:
		inst = fn.NewInstruction(ir.OpPtrToInt)
		mds = v.Metadata
	case *llvmir.InstAddrSpaceCast:
		inst = fn.NewInstruction(ir.OpAddrSpaceCast)
		mds = v.Metadata
	case *llvmir.InstGetElementPtr:
		inst = fn.NewInstruction(ir.OpGetElementPtr)
		mds = v.Metadata
	case *llvmir.InstPhi:
		inst = fn.NewInstruction(ir.OpPhi)
		mds = v.Metadata
	case *llvmir.InstFence:
		inst = fn.NewInstruction(ir.OpFence)
		mds = v.Metadata
	default:
		inst = fn.NewInstruction(ir.OpOther)
		// Kinds with no opcode of their own (arithmetic, comparisons,
		// selects, ...) carry the same Metadata field; read it generically
		// so their unsafe_inst/dbg attachments are not lost.
		if v := reflect.Indirect(reflect.ValueOf(src)); v.Kind() == reflect.Struct {
			want := reflect.TypeOf(mds)
			if f := v.FieldByName("Metadata"); f.IsValid() && f.Type().ConvertibleTo(want) {
				mds = f.Convert(want).Interface().([]*llvmmetadata.Attachment)
			}
		}
	}

	applyAttachments(inst, mds)
	return inst
}

// applyAttachments reads the two metadata attachments InstMarker.cpp's
// front end relies on off a lifted instruction: the presence-only
// "unsafe_inst" marker and the standard "dbg" source-location attachment
// every instruction compiled with debug info carries. Without this,
// MarkerPlanter never finds anything to bracket, no matter how real the
// input IR is.
func applyAttachments(inst *ir.Instruction, mds []*llvmmetadata.Attachment) {
	for _, md := range mds {
		switch md.Name {
		case "unsafe_inst":
			inst.SetMeta(ir.KeyUnsafeInst, nil)
		case "dbg":
			if loc, ok := md.Node.(*llvmmetadata.DILocation); ok {
				dl := &ir.DebugLocation{
					Line: int32(loc.Line),
					Col:  int32(loc.Column),
				}
				if loc.Scope != nil {
					dl.Scope = loc.Scope.String()
					dl.File = scopeFile(loc.Scope)
				}
				inst.Loc = dl
			}
		}
	}
}

// scopeFile resolves a DILocation's lexical scope down to a source file
// name. llir/llvm models DWARF scopes (DISubprogram, DILexicalBlock,
// DIFile, ...) as distinct struct kinds, most of which carry a File field
// pointing further down the chain and DIFile itself carrying Filename
// directly. Reflection walks that chain generically rather than special-
// casing every scope kind the way the rest of this file special-cases
// every instruction kind.
func scopeFile(scope llvmmetadata.Field) string {
	v := reflect.ValueOf(scope)
	for i := 0; i < 8 && v.IsValid(); i++ {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return ""
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return ""
		}
		if f := v.FieldByName("Filename"); f.IsValid() && f.Kind() == reflect.String {
			return f.String()
		}
		next := v.FieldByName("File")
		if !next.IsValid() {
			return ""
		}
		v = next
	}
	return ""
}

// liftTerminator classifies a block's terminator. llir/llvm models
// invoke and callbr as terminators (they may transfer control to an
// unwind/indirect target); the pipeline keeps them distinct from plain
// calls for that reason.
func liftTerminator(fn *ir.Function, src llvmir.Terminator) *ir.Instruction {
	var inst *ir.Instruction
	var mds []*llvmmetadata.Attachment

	switch v := src.(type) {
	case *llvmir.TermRet:
		inst = fn.NewInstruction(ir.OpRet)
		mds = v.Metadata
	case *llvmir.TermBr:
		inst = fn.NewInstruction(ir.OpBr)
		mds = v.Metadata
	case *llvmir.TermCondBr:
		inst = fn.NewInstruction(ir.OpCondBr)
		mds = v.Metadata
	case *llvmir.TermSwitch:
		inst = fn.NewInstruction(ir.OpSwitch)
		mds = v.Metadata
	case *llvmir.TermUnreachable:
		inst = fn.NewInstruction(ir.OpUnreachable)
		mds = v.Metadata
	case *llvmir.TermIndirectBr:
		inst = fn.NewInstruction(ir.OpIndirectBr)
		mds = v.Metadata
	case *llvmir.TermInvoke:
		inst = fn.NewInstruction(ir.OpInvoke)
		inst.Callee = calleeName(v.Invokee)
		mds = v.Metadata
	case *llvmir.TermCallBr:
		inst = fn.NewInstruction(ir.OpCallBr)
		inst.Callee = calleeName(v.Callee)
		mds = v.Metadata
	case *llvmir.TermResume:
		inst = fn.NewInstruction(ir.OpResume)
		mds = v.Metadata
	default:
		inst = fn.NewInstruction(ir.OpOther)
	}

	applyAttachments(inst, mds)
	return inst
}

// calleeName extracts a plain function name from a call/invoke/callbr
// target, or the empty string for an indirect call through a
// non-function value (inline asm calls are classified separately by
// internal/sentinel before this ever matters).
func calleeName(v llvmvalue.Value) string {
	if named, ok := v.(interface{ Name() string }); ok {
		return strings.TrimPrefix(named.Name(), "@")
	}
	return ""
}

// liftValue wraps a constant llir/llvm value as a pipeline Value where
// possible; anything else (a reference to another instruction's result)
// becomes an Undef placeholder carrying only its type, since the pipeline only inspects
// instruction operands for their classification, never for data-flow.
func liftValue(v llvmvalue.Value) ir.Value {
	switch c := v.(type) {
	case *llvmconstant.Int:
		return &ir.ConstInt{Bits: int(c.Typ.BitSize), Val: c.X.Int64()}
	case *llvmconstant.Null:
		return &ir.ConstNull{}
	default:
		return &ir.Undef{Type: v.Type().String()}
	}
}
