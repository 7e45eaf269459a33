package sentinel

import (
	"testing"

	"github.com/kolkov/unsafeprobe/ir"
)

// TestClassifyRoundTrip checks that a freshly built begin/end pair
// classifies back to exactly the kind it was constructed as.
func TestClassifyRoundTrip(t *testing.T) {
	fn := &ir.Function{Name: "f"}

	begin := NewBegin(fn)
	end := NewEnd(fn)

	if got := Classify(begin); got != Begin {
		t.Fatalf("expected Begin, got %v", got)
	}
	if got := Classify(end); got != End {
		t.Fatalf("expected End, got %v", got)
	}
}

// TestClassifyRejectsLookalikes guards the byte-exact contract: a similar
// but not identical asm text, or a call missing the side-effect flag,
// must not classify as a marker.
func TestClassifyRejectsLookalikes(t *testing.T) {
	fn := &ir.Function{Name: "f"}

	trailingSpace := fn.NewInstruction(ir.OpInlineAsmCall)
	trailingSpace.AsmText = "nop # marker_begin "
	trailingSpace.SideEffect = true
	if got := Classify(trailingSpace); got != NotMarker {
		t.Fatalf("expected NotMarker for trailing whitespace, got %v", got)
	}

	noSideEffect := fn.NewInstruction(ir.OpInlineAsmCall)
	noSideEffect.AsmText = "nop # marker_begin"
	if got := Classify(noSideEffect); got != NotMarker {
		t.Fatalf("expected NotMarker without side-effect flag, got %v", got)
	}

	ordinaryCall := fn.NewInstruction(ir.OpCall)
	ordinaryCall.Callee = "memcpy"
	if got := Classify(ordinaryCall); got != NotMarker {
		t.Fatalf("expected NotMarker for an ordinary call, got %v", got)
	}
}
