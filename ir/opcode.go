package ir

// Opcode identifies the operation an Instruction performs. Grounded on
// ssa.Opcode in the teacher (ssa/instructions.go): a flat enum rather than
// one Go type per instruction kind, with per-opcode meaning attached to a
// small set of shared fields (spec.md §9 "sum types over opcodes").
type Opcode uint32

const (
	OpcodeInvalid Opcode = iota

	// Integer arithmetic.
	OpcodeIadd
	OpcodeIsub
	OpcodeImul
	OpcodeIdiv
	OpcodeIrem
	OpcodeImulh

	// Bitwise / shifts.
	OpcodeIand
	OpcodeIor
	OpcodeIxor
	OpcodeInot
	OpcodeIshl
	OpcodeIshr  // logical (unsigned) right shift
	OpcodeIashr // arithmetic (signed) right shift

	// Comparison.
	OpcodeIcmp
	OpcodeFcmp

	// Memory.
	OpcodeLoad
	OpcodeStore
	OpcodeStackalloc

	// Control flow.
	OpcodeJump
	OpcodeBr
	OpcodeReturn
	OpcodeCall
	OpcodeTrap
	OpcodeTrapz
	OpcodeTrapnz

	// Constants.
	OpcodeIconst
	OpcodeFconst

	// Float arithmetic. IR-only: every one of these must be eliminated by
	// the fixedpoint pass (spec.md §4.3) before lowering.
	OpcodeFadd
	OpcodeFsub
	OpcodeFmul
	OpcodeFdiv
)

var opcodeNames = [...]string{
	OpcodeInvalid:    "invalid",
	OpcodeIadd:       "iadd",
	OpcodeIsub:       "isub",
	OpcodeImul:       "imul",
	OpcodeIdiv:       "idiv",
	OpcodeIrem:       "irem",
	OpcodeImulh:      "imulh",
	OpcodeIand:       "iand",
	OpcodeIor:        "ior",
	OpcodeIxor:       "ixor",
	OpcodeInot:       "inot",
	OpcodeIshl:       "ishl",
	OpcodeIshr:       "ishr",
	OpcodeIashr:      "iashr",
	OpcodeIcmp:       "icmp",
	OpcodeFcmp:       "fcmp",
	OpcodeLoad:       "load",
	OpcodeStore:      "store",
	OpcodeStackalloc: "stackalloc",
	OpcodeJump:       "jump",
	OpcodeBr:         "br",
	OpcodeReturn:     "return",
	OpcodeCall:       "call",
	OpcodeTrap:       "trap",
	OpcodeTrapz:      "trapz",
	OpcodeTrapnz:     "trapnz",
	OpcodeIconst:     "iconst",
	OpcodeFconst:     "fconst",
	OpcodeFadd:       "fadd",
	OpcodeFsub:       "fsub",
	OpcodeFmul:       "fmul",
	OpcodeFdiv:       "fdiv",
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if int(o) < len(opcodeNames) && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	return "unknown"
}

// IsTerminator reports whether o ends a block. A block's final
// instruction must be exactly one of these (spec.md §3).
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpcodeJump, OpcodeBr, OpcodeReturn, OpcodeTrap, OpcodeTrapz, OpcodeTrapnz:
		return true
	default:
		return false
	}
}

// IsFloat reports whether o is one of the IR-only float opcodes that must
// not reach lowering.
func (o Opcode) IsFloat() bool {
	switch o {
	case OpcodeFcmp, OpcodeFconst, OpcodeFadd, OpcodeFsub, OpcodeFmul, OpcodeFdiv:
		return true
	default:
		return false
	}
}

// SymbolRef names the callee of a call instruction: either a function
// defined in this compilation unit, or one resolved by the embedding
// runtime at load time (spec.md §6).
type SymbolRef struct {
	Name     string
	External bool
}

// Local builds a SymbolRef to a function defined in this compilation unit.
func Local(name string) SymbolRef { return SymbolRef{Name: name} }

// External builds a SymbolRef to a function resolved outside this
// compilation unit.
func External(name string) SymbolRef { return SymbolRef{Name: name, External: true} }

// String implements fmt.Stringer.
func (s SymbolRef) String() string {
	if s.External {
		return "%" + s.Name + "(external)"
	}
	return "%" + s.Name
}
