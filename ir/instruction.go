package ir

import (
	"fmt"
	"math"
	"strings"
)

// InstructionGroupID is a per-instruction tag for partitioning a block's
// instructions by side effect (two instructions sharing a group iff no
// side-effecting instruction separates them). This is supplemental
// bookkeeping (SPEC_FULL.md §3): no pass in this module assigns group ids,
// so every instruction carries 0, and the verifier does not check them.
type InstructionGroupID uint32

// Instruction is one IR instruction: opcode, arguments, results and
// immediates in one flattened struct (spec.md §3, §9). Each Instruction
// defines at most one "first" result (rValue) plus, for multi-result
// opcodes such as call, any further results in rValues.
type Instruction struct {
	opcode Opcode

	// Arguments. v/v2/v3 cover the common 1-3 argument opcodes; vs holds
	// call arguments or jump/br-true-branch arguments; vsFalse holds a
	// br's false-branch arguments.
	v, v2, v3 Value
	vs        []Value
	vsFalse   []Value

	// Results.
	rValue  Value
	rValues []Value

	// Immediates.
	u1   uint64  // iconst payload, IntCC/FloatCC, TrapCode, stackalloc size, load/store byte offset
	fval float64 // fconst payload

	typ Type // type tag: load/store/stackalloc result type, iconst/fconst type

	// Control flow targets. target is jump's sole target or br's true
	// target; targetFalse is br's false target.
	target, targetFalse *BasicBlock

	sym SymbolRef // call callee

	srcLoc int32 // byte offset relative to the function's base source location; -1 if unknown

	gid InstructionGroupID

	owner      *BasicBlock
	prev, next *Instruction
}

func (i *Instruction) reset() {
	*i = Instruction{v: ValueInvalid, v2: ValueInvalid, v3: ValueInvalid, rValue: ValueInvalid, srcLoc: -1}
}

// Opcode returns i's opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// GroupID returns i's instruction group id.
func (i *Instruction) GroupID() InstructionGroupID { return i.gid }

// Block returns the block that owns i.
func (i *Instruction) Block() *BasicBlock { return i.owner }

// Prev/Next walk the block's instruction list.
func (i *Instruction) Prev() *Instruction { return i.prev }
func (i *Instruction) Next() *Instruction { return i.next }

// Return returns i's first (or only) result.
func (i *Instruction) Return() Value { return i.rValue }

// Returns returns all of i's results.
func (i *Instruction) Returns() (first Value, rest []Value) { return i.rValue, i.rValues }

// Arg returns i's first argument.
func (i *Instruction) Arg() Value { return i.v }

// Arg2 returns i's first two arguments.
func (i *Instruction) Arg2() (Value, Value) { return i.v, i.v2 }

// Args returns every value argument to i (not including branch targets).
func (i *Instruction) Args() []Value {
	switch i.opcode {
	case OpcodeCall:
		return i.vs
	case OpcodeJump:
		return i.vs
	case OpcodeBr:
		return append([]Value{i.v}, append(append([]Value{}, i.vs...), i.vsFalse...)...)
	case OpcodeReturn:
		return i.vs
	default:
		var args []Value
		if i.v.Valid() {
			args = append(args, i.v)
		}
		if i.v2.Valid() {
			args = append(args, i.v2)
		}
		if i.v3.Valid() {
			args = append(args, i.v3)
		}
		return args
	}
}

// --- constructors (As* pattern, grounded on ssa.Instruction.AsIadd etc.) ---

func (i *Instruction) asBinary(op Opcode, x, y Value, resultType Type, b *builder) *Instruction {
	i.opcode = op
	i.v, i.v2 = x, y
	i.rValue = b.allocateValue(resultType)
	return i
}

func (i *Instruction) AsIadd(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIadd, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIsub(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIsub, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsImul(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeImul, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIdiv(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIdiv, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIrem(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIrem, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsImulh(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeImulh, x, y, TypeI32, b.(*builder))
}
func (i *Instruction) AsIand(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIand, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIor(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIor, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIxor(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIxor, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIshl(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIshl, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIshr(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIshr, x, y, x.Type(), b.(*builder))
}
func (i *Instruction) AsIashr(x, y Value, b Builder) *Instruction {
	return i.asBinary(OpcodeIashr, x, y, x.Type(), b.(*builder))
}

func (i *Instruction) AsInot(x Value, b Builder) *Instruction {
	i.opcode = OpcodeInot
	i.v = x
	i.rValue = b.(*builder).allocateValue(x.Type())
	return i
}

func (i *Instruction) AsIcmp(x, y Value, c IntCC, b Builder) *Instruction {
	i.opcode = OpcodeIcmp
	i.v, i.v2 = x, y
	i.u1 = uint64(c)
	i.rValue = b.(*builder).allocateValue(TypeU32)
	return i
}

func (i *Instruction) AsFcmp(x, y Value, c FloatCC, b Builder) *Instruction {
	i.opcode = OpcodeFcmp
	i.v, i.v2 = x, y
	i.u1 = uint64(c)
	i.rValue = b.(*builder).allocateValue(TypeU32)
	return i
}

// IcmpData returns the arguments and condition of an icmp instruction.
func (i *Instruction) IcmpData() (Value, Value, IntCC) { return i.v, i.v2, IntCC(i.u1) }

// FcmpData returns the arguments and condition of an fcmp instruction.
func (i *Instruction) FcmpData() (Value, Value, FloatCC) { return i.v, i.v2, FloatCC(i.u1) }

func (i *Instruction) AsLoad(ptr Value, offset int32, typ Type, b Builder) *Instruction {
	i.opcode = OpcodeLoad
	i.v = ptr
	i.u1 = uint64(uint32(offset))
	i.typ = typ
	i.rValue = b.(*builder).allocateValue(typ)
	return i
}

func (i *Instruction) AsStore(value, ptr Value, offset int32, typ Type) *Instruction {
	i.opcode = OpcodeStore
	i.v, i.v2 = value, ptr
	i.u1 = uint64(uint32(offset))
	i.typ = typ
	return i
}

// LoadStoreData returns the pointer, byte offset, and type of a load or
// store. For store, value returns the stored value instead of ValueInvalid.
func (i *Instruction) LoadStoreData() (ptr Value, offset int32, typ Type, storedValue Value) {
	switch i.opcode {
	case OpcodeLoad:
		return i.v, int32(uint32(i.u1)), i.typ, ValueInvalid
	case OpcodeStore:
		return i.v2, int32(uint32(i.u1)), i.typ, i.v
	default:
		panic("not a load/store")
	}
}

func (i *Instruction) AsStackalloc(sizeBytes uint32, b Builder) *Instruction {
	i.opcode = OpcodeStackalloc
	i.u1 = uint64(sizeBytes)
	i.rValue = b.(*builder).allocateValue(TypeI32)
	return i
}

// StackallocSize returns the requested byte size of a stackalloc.
func (i *Instruction) StackallocSize() uint32 { return uint32(i.u1) }

func (i *Instruction) AsJump(args []Value, target *BasicBlock) *Instruction {
	i.opcode = OpcodeJump
	i.vs = args
	i.target = target
	return i
}

// JumpData returns a jump's arguments and target.
func (i *Instruction) JumpData() ([]Value, *BasicBlock) { return i.vs, i.target }

func (i *Instruction) AsBr(cond Value, trueTarget *BasicBlock, trueArgs []Value, falseTarget *BasicBlock, falseArgs []Value) *Instruction {
	i.opcode = OpcodeBr
	i.v = cond
	i.target, i.vs = trueTarget, trueArgs
	i.targetFalse, i.vsFalse = falseTarget, falseArgs
	return i
}

// BrData returns a two-dest branch's condition and both targets/arg lists.
func (i *Instruction) BrData() (cond Value, trueTarget *BasicBlock, trueArgs []Value, falseTarget *BasicBlock, falseArgs []Value) {
	return i.v, i.target, i.vs, i.targetFalse, i.vsFalse
}

func (i *Instruction) AsReturn(args []Value) *Instruction {
	i.opcode = OpcodeReturn
	i.vs = args
	return i
}

// ReturnArgs returns a return instruction's arguments.
func (i *Instruction) ReturnArgs() []Value { return i.vs }

func (i *Instruction) AsCall(callee SymbolRef, args []Value, resultTypes []Type, b Builder) *Instruction {
	i.opcode = OpcodeCall
	i.sym = callee
	i.vs = args
	bb := b.(*builder)
	if len(resultTypes) > 0 {
		i.rValue = bb.allocateValue(resultTypes[0])
	}
	if len(resultTypes) > 1 {
		i.rValues = make([]Value, len(resultTypes)-1)
		for k, t := range resultTypes[1:] {
			i.rValues[k] = bb.allocateValue(t)
		}
	}
	return i
}

// CallData returns a call instruction's callee and arguments.
func (i *Instruction) CallData() (SymbolRef, []Value) { return i.sym, i.vs }

func (i *Instruction) AsTrap(code TrapCode) *Instruction {
	i.opcode = OpcodeTrap
	i.u1 = uint64(code)
	return i
}

func (i *Instruction) AsTrapz(v Value, code TrapCode) *Instruction {
	i.opcode = OpcodeTrapz
	i.v = v
	i.u1 = uint64(code)
	return i
}

func (i *Instruction) AsTrapnz(v Value, code TrapCode) *Instruction {
	i.opcode = OpcodeTrapnz
	i.v = v
	i.u1 = uint64(code)
	return i
}

// TrapCode returns a trap/trapz/trapnz instruction's code.
func (i *Instruction) TrapCode() TrapCode { return TrapCode(i.u1) }

func (i *Instruction) AsIconst32(v uint32, typ Type, b Builder) *Instruction {
	i.opcode = OpcodeIconst
	i.u1 = uint64(v)
	i.typ = typ
	i.rValue = b.(*builder).allocateValue(typ)
	return i
}

// IconstValue returns an iconst instruction's 32-bit payload.
func (i *Instruction) IconstValue() uint32 { return uint32(i.u1) }

func (i *Instruction) AsFconst32(v float32, b Builder) *Instruction {
	i.opcode = OpcodeFconst
	i.fval = float64(v)
	i.typ = TypeF32
	i.rValue = b.(*builder).allocateValue(TypeF32)
	return i
}

// FconstValue returns an fconst instruction's payload.
func (i *Instruction) FconstValue() float32 { return float32(i.fval) }

func (i *Instruction) asFloatBinary(op Opcode, x, y Value, b *builder) *Instruction {
	i.opcode = op
	i.v, i.v2 = x, y
	i.rValue = b.allocateValue(TypeF32)
	return i
}

func (i *Instruction) AsFadd(x, y Value, b Builder) *Instruction {
	return i.asFloatBinary(OpcodeFadd, x, y, b.(*builder))
}
func (i *Instruction) AsFsub(x, y Value, b Builder) *Instruction {
	return i.asFloatBinary(OpcodeFsub, x, y, b.(*builder))
}
func (i *Instruction) AsFmul(x, y Value, b Builder) *Instruction {
	return i.asFloatBinary(OpcodeFmul, x, y, b.(*builder))
}
func (i *Instruction) AsFdiv(x, y Value, b Builder) *Instruction {
	return i.asFloatBinary(OpcodeFdiv, x, y, b.(*builder))
}

// SetSourceLocation attaches a relative source location (byte offset from
// the function's base location) to i. -1 means unknown.
func (i *Instruction) SetSourceLocation(loc int32) { i.srcLoc = loc }

// SourceLocation returns i's relative source location, or -1 if unknown.
func (i *Instruction) SourceLocation() int32 { return i.srcLoc }

// Format renders i as the textual form described in spec.md §6.
func (i *Instruction) Format() string {
	var b strings.Builder
	if i.rValue.Valid() {
		b.WriteString(i.rValue.formatWithType())
		for _, r := range i.rValues {
			b.WriteString(", ")
			b.WriteString(r.formatWithType())
		}
		b.WriteString(" = ")
	}
	switch i.opcode {
	case OpcodeIcmp:
		fmt.Fprintf(&b, "icmp %s %s, %s", IntCC(i.u1), i.v, i.v2)
	case OpcodeFcmp:
		fmt.Fprintf(&b, "fcmp %s %s, %s", FloatCC(i.u1), i.v, i.v2)
	case OpcodeLoad:
		fmt.Fprintf(&b, "load.%s %s, %d", i.typ, i.v, int32(uint32(i.u1)))
	case OpcodeStore:
		fmt.Fprintf(&b, "store.%s %s, %s, %d", i.typ, i.v, i.v2, int32(uint32(i.u1)))
	case OpcodeStackalloc:
		fmt.Fprintf(&b, "stackalloc %d", i.u1)
	case OpcodeJump:
		fmt.Fprintf(&b, "jump %s%s", i.target.Name(), formatArgs(i.vs))
	case OpcodeBr:
		fmt.Fprintf(&b, "br %s, %s%s, %s%s", i.v, i.target.Name(), formatArgs(i.vs), i.targetFalse.Name(), formatArgs(i.vsFalse))
	case OpcodeReturn:
		b.WriteString("return")
		if len(i.vs) > 0 {
			b.WriteString(" " + strings.TrimPrefix(formatArgs(i.vs), ", "))
		}
	case OpcodeCall:
		fmt.Fprintf(&b, "call %s%s", i.sym, formatArgs(i.vs))
	case OpcodeTrap:
		fmt.Fprintf(&b, "trap %s", TrapCode(i.u1))
	case OpcodeTrapz:
		fmt.Fprintf(&b, "trapz %s, %s", i.v, TrapCode(i.u1))
	case OpcodeTrapnz:
		fmt.Fprintf(&b, "trapnz %s, %s", i.v, TrapCode(i.u1))
	case OpcodeIconst:
		fmt.Fprintf(&b, "iconst.%s %d", i.typ, int32(i.u1))
	case OpcodeFconst:
		if math.IsNaN(i.fval) {
			fmt.Fprintf(&b, "fconst NaN")
		} else {
			fmt.Fprintf(&b, "fconst %v", float32(i.fval))
		}
	case OpcodeInot:
		fmt.Fprintf(&b, "inot %s", i.v)
	default:
		fmt.Fprintf(&b, "%s %s, %s", i.opcode, i.v, i.v2)
	}
	return b.String()
}

func formatArgs(vs []Value) string {
	if len(vs) == 0 {
		return ""
	}
	strs := make([]string, len(vs))
	for i, v := range vs {
		strs[i] = v.String()
	}
	return ", " + strings.Join(strs, ", ")
}
