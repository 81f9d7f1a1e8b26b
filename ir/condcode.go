package ir

// IntCC is the condition tested by an icmp instruction.
type IntCC byte

const (
	IntCCEqual IntCC = iota
	IntCCNotEqual
	IntCCSignedLessThan
	IntCCSignedGreaterThanOrEqual
	IntCCSignedGreaterThan
	IntCCSignedLessThanOrEqual
	IntCCUnsignedLessThan
	IntCCUnsignedGreaterThanOrEqual
	IntCCUnsignedGreaterThan
	IntCCUnsignedLessThanOrEqual
)

// String implements fmt.Stringer.
func (c IntCC) String() string {
	switch c {
	case IntCCEqual:
		return "eq"
	case IntCCNotEqual:
		return "ne"
	case IntCCSignedLessThan:
		return "slt"
	case IntCCSignedGreaterThanOrEqual:
		return "sge"
	case IntCCSignedGreaterThan:
		return "sgt"
	case IntCCSignedLessThanOrEqual:
		return "sle"
	case IntCCUnsignedLessThan:
		return "ult"
	case IntCCUnsignedGreaterThanOrEqual:
		return "uge"
	case IntCCUnsignedGreaterThan:
		return "ugt"
	case IntCCUnsignedLessThanOrEqual:
		return "ule"
	default:
		panic("invalid IntCC")
	}
}

// Complement returns the negation of c, i.e. the condition that's true
// exactly when c is false. This is where the emitter's branch inversion
// (spec.md §4.8) sources its condition flip from.
func (c IntCC) Complement() IntCC {
	switch c {
	case IntCCEqual:
		return IntCCNotEqual
	case IntCCNotEqual:
		return IntCCEqual
	case IntCCSignedLessThan:
		return IntCCSignedGreaterThanOrEqual
	case IntCCSignedGreaterThanOrEqual:
		return IntCCSignedLessThan
	case IntCCSignedGreaterThan:
		return IntCCSignedLessThanOrEqual
	case IntCCSignedLessThanOrEqual:
		return IntCCSignedGreaterThan
	case IntCCUnsignedLessThan:
		return IntCCUnsignedGreaterThanOrEqual
	case IntCCUnsignedGreaterThanOrEqual:
		return IntCCUnsignedLessThan
	case IntCCUnsignedGreaterThan:
		return IntCCUnsignedLessThanOrEqual
	case IntCCUnsignedLessThanOrEqual:
		return IntCCUnsignedGreaterThan
	default:
		panic("invalid IntCC")
	}
}

// SwapArgs returns the condition that's equivalent to c when its two
// arguments are swapped, e.g. `slt` becomes `sgt`.
func (c IntCC) SwapArgs() IntCC {
	switch c {
	case IntCCEqual, IntCCNotEqual:
		return c
	case IntCCSignedLessThan:
		return IntCCSignedGreaterThan
	case IntCCSignedGreaterThanOrEqual:
		return IntCCSignedLessThanOrEqual
	case IntCCSignedGreaterThan:
		return IntCCSignedLessThan
	case IntCCSignedLessThanOrEqual:
		return IntCCSignedGreaterThanOrEqual
	case IntCCUnsignedLessThan:
		return IntCCUnsignedGreaterThan
	case IntCCUnsignedGreaterThanOrEqual:
		return IntCCUnsignedLessThanOrEqual
	case IntCCUnsignedGreaterThan:
		return IntCCUnsignedLessThan
	case IntCCUnsignedLessThanOrEqual:
		return IntCCUnsignedGreaterThanOrEqual
	default:
		panic("invalid IntCC")
	}
}

// Signed reports whether c compares its operands as signed integers. This
// is what the verifier (spec.md §4.1) and the lowering tables key off of
// to pick slt vs sltu.
func (c IntCC) Signed() bool {
	switch c {
	case IntCCSignedLessThan, IntCCSignedGreaterThanOrEqual, IntCCSignedGreaterThan, IntCCSignedLessThanOrEqual:
		return true
	default:
		return false
	}
}

// FloatCC is the condition tested by an fcmp instruction. fcmp is an
// IR-only instruction: every FloatCC must be rewritten to an IntCC by the
// fixedpoint pass (spec.md §4.3) before lowering.
type FloatCC byte

const (
	FloatCCEqual FloatCC = iota
	FloatCCNotEqual
	FloatCCLessThan
	FloatCCLessThanOrEqual
	FloatCCGreaterThan
	FloatCCGreaterThanOrEqual
	FloatCCOrdered
	FloatCCUnordered
)

// String implements fmt.Stringer.
func (c FloatCC) String() string {
	switch c {
	case FloatCCEqual:
		return "eq"
	case FloatCCNotEqual:
		return "ne"
	case FloatCCLessThan:
		return "lt"
	case FloatCCLessThanOrEqual:
		return "le"
	case FloatCCGreaterThan:
		return "gt"
	case FloatCCGreaterThanOrEqual:
		return "ge"
	case FloatCCOrdered:
		return "ord"
	case FloatCCUnordered:
		return "uno"
	default:
		panic("invalid FloatCC")
	}
}

// TrapCode is a small non-zero identifier naming why a trap instruction
// fires. Zero is reserved and forbidden as a trap code (spec.md §9).
type TrapCode uint8

const (
	// TrapCodeIntegerDivisionByZero fires on idiv/irem with a zero divisor.
	TrapCodeIntegerDivisionByZero TrapCode = iota + 1
	// TrapCodeIntegerOverflow fires on a signed idiv overflow (MinInt/-1).
	TrapCodeIntegerOverflow
	// TrapCodeHeapOutOfBounds fires on an out-of-range load/store.
	TrapCodeHeapOutOfBounds
	// TrapCodeStackOverflow fires when a stackalloc would exceed the
	// function's reserved stack budget.
	TrapCodeStackOverflow
	// TrapCodeBadConversionToInteger fires on a float-to-int conversion
	// whose source is out of the target integer's range.
	TrapCodeBadConversionToInteger

	// trapCodeReservedMax is the last reserved code; 1..250 are available
	// to the front end as user-defined trap codes per spec.md §7.
	trapCodeReservedMax = TrapCodeBadConversionToInteger
	// TrapCodeUserMax is the largest value a user-defined trap code may take.
	TrapCodeUserMax TrapCode = 250
)

// String implements fmt.Stringer.
func (t TrapCode) String() string {
	switch t {
	case TrapCodeIntegerDivisionByZero:
		return "int_divz"
	case TrapCodeIntegerOverflow:
		return "int_ovf"
	case TrapCodeHeapOutOfBounds:
		return "heap_oob"
	case TrapCodeStackOverflow:
		return "stk_ovf"
	case TrapCodeBadConversionToInteger:
		return "bad_toint"
	default:
		if t > trapCodeReservedMax && t <= TrapCodeUserMax {
			return "user0"
		}
		panic("invalid TrapCode")
	}
}

// Valid reports whether t is a legal trap code: non-zero and at most
// TrapCodeUserMax.
func (t TrapCode) Valid() bool { return t != 0 && t <= TrapCodeUserMax }
