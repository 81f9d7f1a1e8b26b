package ir

import (
	"fmt"
	"math"
)

// Value is an SSA name together with its Type, packed into a single
// uint64: the low 32 bits are the ValueID, the high bits the Type.
// Grounded on ssa.Value in the teacher (ssa/vs.go).
type Value uint64

// ValueID is the identifier part of a Value, without its type tag.
type ValueID uint32

const valueIDInvalid ValueID = math.MaxUint32

// ValueInvalid is the zero-value placeholder for "no value".
const ValueInvalid Value = Value(valueIDInvalid)

// ID returns the ValueID of v.
func (v Value) ID() ValueID { return ValueID(v) }

// Type returns the Type of v.
func (v Value) Type() Type { return Type(v >> 32) }

// Valid reports whether v names a real value.
func (v Value) Valid() bool { return v.ID() != valueIDInvalid }

// String implements fmt.Stringer.
func (v Value) String() string {
	if !v.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("v%d", v.ID())
}

func (v Value) formatWithType() string {
	if !v.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("v%d:%s", v.ID(), v.Type())
}

func valueWithType(id ValueID, t Type) Value {
	return Value(id) | Value(t)<<32
}
