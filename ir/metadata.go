package ir

// DebugLocation mirrors an LLVM DILocation closely enough for the pipeline's
// purposes: the source coordinate an instruction was generated from.
type DebugLocation struct {
	Line  int32
	Col   int32
	File  string
	Scope string
}

// Valid reports whether the location is usable as a measurement or coverage
// anchor: non-null scope, non-empty file, positive line and column.
func (d *DebugLocation) Valid() bool {
	return d != nil && d.Scope != "" && d.File != "" && d.Line > 0 && d.Col > 0
}

// LineInfo is the payload of an unsafe_line_info attachment: the captured
// source coordinate an instruction carried at the moment MarkerPlanter ran,
// independent of whether later passes strip the original debug location.
type LineInfo struct {
	Line int32
	File string
}

// Attachable is embedded by every IR entity that can carry named metadata
// attachments (instructions, functions, globals). Presence-only markers
// (like unsafe_inst) are stored with a nil value.
type Attachable struct {
	meta map[string]any
}

// SetMeta attaches v under key, overwriting any previous attachment.
func (a *Attachable) SetMeta(key string, v any) {
	if a.meta == nil {
		a.meta = make(map[string]any)
	}
	a.meta[key] = v
}

// Meta returns the attachment under key, if any.
func (a *Attachable) Meta(key string) (any, bool) {
	v, ok := a.meta[key]
	return v, ok
}

// HasMeta reports whether key is attached, regardless of its value.
func (a *Attachable) HasMeta(key string) bool {
	_, ok := a.meta[key]
	return ok
}

// RemoveMeta detaches key, if present.
func (a *Attachable) RemoveMeta(key string) {
	delete(a.meta, key)
}

// Metadata attachment keys used across the pipeline. Centralized here so
// passes never have to agree on a string by convention alone.
const (
	KeyUnsafeInst     = "unsafe_inst"
	KeyUnsafeLineInfo = "unsafe_line_info"
	KeyFuncID         = "unsafe_count.func_id"
	KeyPreservedDbg   = "preserved.debuginfo"
)
