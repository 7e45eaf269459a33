package runtimeabi

import (
	"testing"

	"github.com/kolkov/unsafeprobe/ir"
)

// TestIsHelperNameCoversReservedPrefixes exercises every prefix and exact
// name from the specification's reserved namespace, plus a handful of
// ordinary front-end names that must not match.
func TestIsHelperNameCoversReservedPrefixes(t *testing.T) {
	reserved := []string{
		"cpu_cycle_start_measurement",
		"record_program_start",
		"external_call_start",
		"__unsafe_record_function",
		"dyn_mem_access",
		"register_unsafe_line",
		"track_unsafe_line_execution",
		"print_unsafe_coverage_stats",
		"unsafe_lines_module_ctor",
	}
	for _, name := range reserved {
		if !IsHelperName(name) {
			t.Errorf("IsHelperName(%q) = false, want true", name)
		}
	}

	notReserved := []string{"memcpy", "main", "my_unsafe_helper", "record"}
	for _, name := range notReserved {
		if IsHelperName(name) {
			t.Errorf("IsHelperName(%q) = true, want false", name)
		}
	}
}

// TestDeclareIsIdempotentAcrossPasses simulates two different passes both
// needing the same helper: the second Declare call must reuse the first
// declaration rather than producing a duplicate.
func TestDeclareIsIdempotentAcrossPasses(t *testing.T) {
	m := ir.NewModule("test")
	f1 := Declare(m, "external_call_start")
	f2 := Declare(m, "external_call_start")
	if f1 != f2 {
		t.Fatalf("expected identical declaration from repeated Declare calls")
	}
	if f1.RetType != "i64" || !f1.Declaration || !f1.NoInline {
		t.Fatalf("unexpected declaration shape: %+v", f1)
	}
}

// TestDeclareUnknownNamePanics guards against a pass passing a name that
// isn't part of the ABI contract.
func TestDeclareUnknownNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown runtime helper name")
		}
	}()
	Declare(ir.NewModule("test"), "not_a_real_helper")
}
