package ir

import "fmt"

// Value is anything an instruction's operand can refer to: another
// instruction's result, a function parameter, a global, or a constant.
type Value interface {
	// String renders the value the way it would appear as an operand in
	// textual IR. Used only for diagnostics; never parsed back.
	String() string
	isValue()
}

// ConstInt is an integer constant operand, e.g. a function id or a literal
// line number baked into a call.
type ConstInt struct {
	Bits int // 1, 8, 16, 32 or 64
	Val  int64
}

func (c *ConstInt) isValue() {}
func (c *ConstInt) String() string {
	return fmt.Sprintf("i%d %d", c.Bits, c.Val)
}

// ConstNull is the null/zero pointer constant.
type ConstNull struct{}

func (c *ConstNull) isValue() {}
func (c *ConstNull) String() string {
	return "ptr null"
}

// ConstString is a constant C-string operand, used for the file-name
// argument of the line-coverage runtime calls.
type ConstString struct {
	Val string
}

func (c *ConstString) isValue() {}
func (c *ConstString) String() string {
	return fmt.Sprintf("c%q", c.Val)
}

// Undef is a placeholder value substituted in when an instruction that is
// about to be erased unexpectedly still has users (see CycleCounter's
// marker-erasure step), and by internal/llvmbridge for operands that refer
// to another instruction's result.
type Undef struct {
	Type string
}

func (u *Undef) isValue() {}
func (u *Undef) String() string {
	return fmt.Sprintf("undef %s", u.Type)
}

// ConstAggregate is a generic constant value for pass-specific aggregate
// data (packed structs, arrays of them) that doesn't need first-class
// modeling in the IR layer itself. Desc renders as the value's textual
// type annotation; Raw carries the actual payload so tests and the
// lowering bridge can introspect it without type-switching on a sealed
// Value implementation they can't create themselves.
type ConstAggregate struct {
	Desc string
	Raw  any
}

func (c *ConstAggregate) isValue() {}
func (c *ConstAggregate) String() string {
	return c.Desc
}
