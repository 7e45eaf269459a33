// Package sentinel centralizes the marker-begin/marker-end inline-asm
// identity check. Every pass that needs to recognize a marker funnels
// through Classify rather than comparing asm text inline, so the two
// sentinel strings live in exactly one place.
package sentinel

import "github.com/kolkov/unsafeprobe/ir"

// Kind is the three-valued result of classifying an instruction.
type Kind int

const (
	NotMarker Kind = iota
	Begin
	End
)

// Begin and End text are byte-exact: no trailing whitespace, no variant
// spellings. A later pass comparing against anything else is a bug, which
// is why these constants are used only inside this package, by Classify
// and the two constructors.
const (
	beginText = "nop # marker_begin"
	endText   = "nop # marker_end"
)

// Classify reports whether inst is a marker sentinel and, if so, which
// kind. Anything that is not an inline-asm call with side effects and one
// of the two exact texts is NotMarker.
func Classify(inst *ir.Instruction) Kind {
	if inst == nil || inst.Op != ir.OpInlineAsmCall || !inst.SideEffect {
		return NotMarker
	}
	switch inst.AsmText {
	case beginText:
		return Begin
	case endText:
		return End
	default:
		return NotMarker
	}
}

// NewBegin builds a fresh, unattached begin-marker instruction in fn.
func NewBegin(fn *ir.Function) *ir.Instruction {
	return newSentinel(fn, beginText)
}

// NewEnd builds a fresh, unattached end-marker instruction in fn.
func NewEnd(fn *ir.Function) *ir.Instruction {
	return newSentinel(fn, endText)
}

func newSentinel(fn *ir.Function, text string) *ir.Instruction {
	inst := fn.NewInstruction(ir.OpInlineAsmCall)
	inst.AsmText = text
	inst.SideEffect = true
	inst.ResultType = "void"
	return inst
}
