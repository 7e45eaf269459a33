// Package runtimeabi is the single source of truth for the names and
// signatures of the functions the pipeline declares for the companion
// runtime library to define. It also answers the one question every pass
// eventually needs to ask: "is this name one of ours?"
package runtimeabi

import "strings"

// reservedPrefixes are never themselves instrumented: a call to a name
// starting with one of these is recognized as pipeline-owned
// instrumentation, not front-end code, no matter which pass is looking.
var reservedPrefixes = []string{
	"cpu_cycle_",
	"record_",
	"external_call_",
	"__unsafe_",
	"dyn_mem_",
}

// reservedExact covers the handful of helper names that don't share one of
// the prefixes above.
var reservedExact = map[string]bool{
	"register_unsafe_line":        true,
	"track_unsafe_line_execution": true,
	"print_unsafe_coverage_stats": true,
	"unsafe_lines_module_ctor":    true,
	"unsafe_lines_module_dtor":    true,
}

// IsHelperName reports whether name falls in the pipeline's reserved
// runtime-helper namespace.
func IsHelperName(name string) bool {
	if reservedExact[name] {
		return true
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Signature describes a runtime helper's C-calling-convention prototype.
type Signature struct {
	Name    string
	RetType string
	Params  []string
}

// Signatures lists every runtime helper the pipeline may declare, keyed by
// name, mirroring the ABI table in the specification's external-interfaces
// section. ExternalCallTracker, CycleCounter, FunctionTracker,
// InstructionCounter, HeapTracker and LineCoverage each look up only the
// entries relevant to them, but the whole table lives here so the contract
// is visible in one place instead of scattered across seven files.
var Signatures = map[string]Signature{
	"record_program_start":         {"record_program_start", "void", nil},
	"cpu_cycle_start_measurement":  {"cpu_cycle_start_measurement", "i64", nil},
	"cpu_cycle_end_measurement":    {"cpu_cycle_end_measurement", "void", []string{"i64"}},
	"print_cpu_cycle_stats":        {"print_cpu_cycle_stats", "void", nil},
	"external_call_start":          {"external_call_start", "i64", nil},
	"external_call_end":            {"external_call_end", "void", []string{"i64"}},
	"dyn_mem_access":               {"dyn_mem_access", "void", []string{"ptr"}},
	"dyn_unsafe_mem_access":        {"dyn_unsafe_mem_access", "void", []string{"ptr", "i1"}},
	"__unsafe_init_metadata":       {"__unsafe_init_metadata", "void", []string{"ptr", "i32"}},
	"__unsafe_record_function":     {"__unsafe_record_function", "void", []string{"i32"}},
	"__unsafe_record_block":        {"__unsafe_record_block", "void", []string{"i32", "i32", "i32", "i16", "i16", "i16", "i16", "i16", "i16"}},
	"__unsafe_dump_stats":          {"__unsafe_dump_stats", "void", nil},
	"register_unsafe_line":         {"register_unsafe_line", "void", []string{"i64", "ptr"}},
	"track_unsafe_line_execution":  {"track_unsafe_line_execution", "void", []string{"i64", "ptr"}},
	"print_unsafe_coverage_stats":  {"print_unsafe_coverage_stats", "void", nil},
}
