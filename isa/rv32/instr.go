package rv32

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// Kind identifies the shape of one machine instruction. Grounded on the
// teacher's backend/isa/arm64/instr.go linked-list-of-machine-instructions
// design, reduced to RV32's base+M integer instruction set (spec.md
// §4.5's mapping table).
type Kind int

const (
	KindInvalid Kind = iota

	KindAdd
	KindSub
	KindMul
	KindMulh
	KindDiv
	KindRem
	KindAnd
	KindOr
	KindXor
	KindSll
	KindSrl
	KindSra
	KindSlt
	KindSltu

	KindAddI
	KindAndI
	KindOrI
	KindXorI
	KindSltI
	KindSltIU
	KindSllI
	KindSrlI
	KindSraI

	KindLUI
	KindAUIPC
	KindLW
	KindSW

	// KindLI materialises a 32-bit constant, expanding to lui+addi (or a
	// single addi) at emission time once the value is known to fit or not.
	KindLI

	// KindCondBr is the two-dest branch form lowering emits (spec.md
	// §4.5): branches to CondTrue if Rs1 != 0, else to CondFalse. LPIR's
	// br takes a single boolean condition value (typically an icmp
	// result), not a fused comparison, so this is all the information a
	// two-dest branch needs; emission resolves it to a single hardware
	// branch (bne rs1, x0, target) plus an optional unconditional jump
	// once the fallthrough block is known.
	KindCondBr
	// KindJump is an unconditional jump to a single target block.
	KindJump
	// KindCall invokes sym, either a Local (resolved to an offset by the
	// symbol table) or External (resolved to a runtime-supplied address).
	KindCall
	// KindRet is the function's epilogue + return point.
	KindRet
	// KindTrap aborts execution with the attached TrapCode.
	KindTrap

	// KindMove is a plain register-to-register move (addi rd, rs, 0),
	// used both by ordinary lowering and by edge-block phi resolution.
	KindMove

	// KindLocalAddr materialises the address of a stackalloc local (addi
	// rd, sp, <offset>), the offset resolved at emission once the frame
	// layout's locals sub-region is known (spec.md §4.5's stackalloc rule).
	KindLocalAddr

	// KindTrapIf is a conditional trap: traps with TrapCode when (Rs1 == 0)
	// if Zero is true, or when (Rs1 != 0) if Zero is false, per LPIR's
	// trapz/trapnz; otherwise falls through to the next instruction.
	KindTrapIf
)

// NoSpillSlot marks a load/store Instr as an ordinary memory access rather
// than a register-allocator-inserted spill/reload.
const NoSpillSlot = -1

// Instr is one RV32 machine instruction, implementing regalloc.Instr.
type Instr struct {
	Kind Kind

	Rd, Rs1, Rs2 regalloc.VReg
	Imm          int32

	// SpillSlot is the spill slot index for a KindLW/KindSW the register
	// allocator inserted to realise a spill or reload; NoSpillSlot for an
	// ordinary load/store lowered from LPIR. Its offset from sp isn't
	// known until the frame layout is computed after allocation finishes,
	// so emission resolves it then rather than baking it into Imm now.
	SpillSlot int

	// CondTrue/CondFalse name KindCondBr's targets (branches to CondTrue
	// when Rs1 != 0, else CondFalse); Target names KindJump's sole target.
	CondTrue, CondFalse, Target vcode.BlockID

	Sym ir.SymbolRef

	TrapCode ir.TrapCode
	// Zero distinguishes KindTrapIf's trapz (true) from trapnz (false).
	Zero bool

	// LocalIndex is the stackalloc index a KindLocalAddr materialises the
	// address of (see vcode.Code.AllocLocal/LocalOffset).
	LocalIndex int

	// Clobbers lists every register KindCall clobbers (the caller-saved
	// set, RA included, minus the registers carrying this call's results),
	// so the allocator treats them as defs for liveness
	// purposes without tying real result operands to them.
	Clobbers []regalloc.VReg

	// Args/Results carry the real-register-tied VRegs for a KindCall
	// beyond the two (Rs1 unused, Rs2 unused) fixed operand slots above:
	// an RV32 call may pass up to 8 integer arguments and produce up to 2
	// results (spec.md §4.7).
	Args    []regalloc.VReg
	Results []regalloc.VReg
}

// String implements regalloc.Instr (embeds fmt.Stringer) and fmt.Stringer.
func (i *Instr) String() string {
	switch i.Kind {
	case KindAdd, KindSub, KindMul, KindMulh, KindDiv, KindRem, KindAnd, KindOr, KindXor, KindSll, KindSrl, KindSra, KindSlt, KindSltu:
		return fmt.Sprintf("%s %s, %s, %s", i.mnemonic(), i.Rd, i.Rs1, i.Rs2)
	case KindAddI, KindAndI, KindOrI, KindXorI, KindSltI, KindSltIU, KindSllI, KindSrlI, KindSraI:
		return fmt.Sprintf("%s %s, %s, %d", i.mnemonic(), i.Rd, i.Rs1, i.Imm)
	case KindLUI, KindAUIPC, KindLI:
		return fmt.Sprintf("%s %s, %d", i.mnemonic(), i.Rd, i.Imm)
	case KindLW:
		return fmt.Sprintf("lw %s, %d(%s)", i.Rd, i.Imm, i.Rs1)
	case KindSW:
		return fmt.Sprintf("sw %s, %d(%s)", i.Rs1, i.Imm, i.Rs2)
	case KindCondBr:
		return fmt.Sprintf("br %s, block%d, block%d", i.Rs1, i.CondTrue, i.CondFalse)
	case KindJump:
		return fmt.Sprintf("jump block%d", i.Target)
	case KindCall:
		return fmt.Sprintf("call %s", i.Sym)
	case KindRet:
		return "ret"
	case KindTrap:
		return fmt.Sprintf("trap %s", i.TrapCode)
	case KindMove:
		return fmt.Sprintf("mv %s, %s", i.Rd, i.Rs1)
	case KindLocalAddr:
		return fmt.Sprintf("local_addr %s, #%d", i.Rd, i.LocalIndex)
	case KindTrapIf:
		if i.Zero {
			return fmt.Sprintf("trapz %s, %s", i.Rs1, i.TrapCode)
		}
		return fmt.Sprintf("trapnz %s, %s", i.Rs1, i.TrapCode)
	default:
		return "invalid"
	}
}

func (i *Instr) mnemonic() string {
	switch i.Kind {
	case KindAdd:
		return "add"
	case KindSub:
		return "sub"
	case KindMul:
		return "mul"
	case KindMulh:
		return "mulh"
	case KindDiv:
		return "div"
	case KindRem:
		return "rem"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindXor:
		return "xor"
	case KindSll:
		return "sll"
	case KindSrl:
		return "srl"
	case KindSra:
		return "sra"
	case KindSlt:
		return "slt"
	case KindSltu:
		return "sltu"
	case KindAddI:
		return "addi"
	case KindAndI:
		return "andi"
	case KindOrI:
		return "ori"
	case KindXorI:
		return "xori"
	case KindSltI:
		return "slti"
	case KindSltIU:
		return "sltiu"
	case KindSllI:
		return "slli"
	case KindSrlI:
		return "srli"
	case KindSraI:
		return "srai"
	case KindLUI:
		return "lui"
	case KindAUIPC:
		return "auipc"
	case KindLI:
		return "li"
	default:
		return "?"
	}
}

// Defs implements regalloc.Instr.
func (i *Instr) Defs() []regalloc.VReg {
	switch i.Kind {
	case KindAdd, KindSub, KindMul, KindMulh, KindDiv, KindRem, KindAnd, KindOr, KindXor,
		KindSll, KindSrl, KindSra, KindSlt, KindSltu,
		KindAddI, KindAndI, KindOrI, KindXorI, KindSltI, KindSltIU, KindSllI, KindSrlI, KindSraI,
		KindLUI, KindAUIPC, KindLI, KindLW, KindMove, KindLocalAddr:
		if i.Rd.Valid() {
			return []regalloc.VReg{i.Rd}
		}
	case KindCall:
		defs := append([]regalloc.VReg{}, i.Results...)
		defs = append(defs, i.Clobbers...)
		return defs
	}
	return nil
}

// Uses implements regalloc.Instr.
func (i *Instr) Uses() []regalloc.VReg {
	switch i.Kind {
	case KindAdd, KindSub, KindMul, KindMulh, KindDiv, KindRem, KindAnd, KindOr, KindXor,
		KindSll, KindSrl, KindSra, KindSlt, KindSltu:
		return []regalloc.VReg{i.Rs1, i.Rs2}
	case KindAddI, KindAndI, KindOrI, KindXorI, KindSltI, KindSltIU, KindSllI, KindSrlI, KindSraI, KindMove:
		return []regalloc.VReg{i.Rs1}
	case KindLW:
		return []regalloc.VReg{i.Rs1}
	case KindSW:
		return []regalloc.VReg{i.Rs1, i.Rs2}
	case KindCondBr, KindTrapIf:
		return []regalloc.VReg{i.Rs1}
	case KindCall:
		return append([]regalloc.VReg{}, i.Args...)
	case KindRet:
		return append([]regalloc.VReg{}, i.Args...)
	}
	return nil
}

// AssignUses implements regalloc.Instr.
func (i *Instr) AssignUses(vs []regalloc.VReg) {
	switch i.Kind {
	case KindAdd, KindSub, KindMul, KindMulh, KindDiv, KindRem, KindAnd, KindOr, KindXor,
		KindSll, KindSrl, KindSra, KindSlt, KindSltu, KindSW:
		i.Rs1, i.Rs2 = vs[0], vs[1]
	case KindAddI, KindAndI, KindOrI, KindXorI, KindSltI, KindSltIU, KindSllI, KindSrlI, KindSraI, KindMove, KindLW, KindCondBr, KindTrapIf:
		i.Rs1 = vs[0]
	case KindCall, KindRet:
		i.Args = vs
	}
}

// AssignDef implements regalloc.Instr. KindCall's Results/Clobbers are
// already real-register-tied by the ABI assignment, so AssignDef is never
// called for them; the allocator only assigns registers for single-def
// instructions.
func (i *Instr) AssignDef(v regalloc.VReg) {
	switch i.Kind {
	case KindAdd, KindSub, KindMul, KindMulh, KindDiv, KindRem, KindAnd, KindOr, KindXor,
		KindSll, KindSrl, KindSra, KindSlt, KindSltu,
		KindAddI, KindAndI, KindOrI, KindXorI, KindSltI, KindSltIU, KindSllI, KindSrlI, KindSraI,
		KindLUI, KindAUIPC, KindLI, KindLW, KindMove, KindLocalAddr:
		i.Rd = v
	}
}

// IsCopy implements regalloc.Instr.
func (i *Instr) IsCopy() bool { return i.Kind == KindMove }

// IsCall implements regalloc.Instr.
func (i *Instr) IsCall() bool { return i.Kind == KindCall }

// IsReturn implements regalloc.Instr.
func (i *Instr) IsReturn() bool { return i.Kind == KindRet }
