package rv32

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/backend"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// Emit assembles code into a flat byte stream, resolving every intra-
// function branch/jump target and every spill-slot/local-variable frame
// offset. Call targets are left as placeholder jal instructions plus one
// Relocation each (spec.md §4.8, §4.9): even a Local callee's address
// isn't known until every function in the module has been laid out, so
// call resolution is always deferred to the whole-module link pass in
// relocation.go, never attempted here.
//
// Grounded on spec.md §4.8's streaming emission/label-binding/pending-
// fixup discipline. Out-of-range branches and oversized immediates
// (spill offset, local address) are hard emission errors: this backend's
// explicit, documented policy is to abort rather than insert veneers or a
// constant pool (spec.md §9).
func Emit(code *vcode.Code[*Instr], frame *backend.FrameLayout) []byte {
	blocks := code.Blocks()

	blockOffset := make([]int32, len(blocks))
	wordsOf := make([][]int, len(blocks))

	var pc int32
	for bi, b := range blocks {
		blockOffset[bi] = pc
		instrs := b.Instrs()
		wordsOf[bi] = make([]int, len(instrs))
		next, hasNext := nextBlockID(blocks, bi)
		for ii, instr := range instrs {
			n := instrWordCount(instr, next, hasNext)
			wordsOf[bi][ii] = n
			pc += int32(n) * 4
		}
	}

	labelOffset := func(id vcode.BlockID) int32 { return blockOffset[id] }

	out := make([]byte, 0, pc)
	var relocs []vcode.Relocation
	pc = 0
	for bi, b := range blocks {
		instrs := b.Instrs()
		next, hasNext := nextBlockID(blocks, bi)
		for ii, instr := range instrs {
			words, reloc := encodeInstr(instr, pc, labelOffset, frame, code, next, hasNext)
			if reloc != nil {
				reloc.InstrIndex = int(pc)
				relocs = append(relocs, *reloc)
			}
			for _, w := range words {
				out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
			}
			pc += int32(wordsOf[bi][ii]) * 4
		}
	}
	code.Relocations = relocs
	return out
}

func nextBlockID(blocks []*vcode.Block[*Instr], bi int) (vcode.BlockID, bool) {
	if bi+1 >= len(blocks) {
		return 0, false
	}
	return blocks[bi+1].BlockID(), true
}

func fallsThrough(target vcode.BlockID, next vcode.BlockID, hasNext bool) bool {
	return hasNext && target == next
}

// instrWordCount must agree exactly with encodeInstr's word production for
// the same arguments; it exists separately so block offsets can be fixed
// before any branch delta is computed.
func instrWordCount(instr *Instr, next vcode.BlockID, hasNext bool) int {
	switch instr.Kind {
	case KindLI:
		hi20, _ := splitHiLo20(instr.Imm)
		if hi20 == 0 {
			return 1
		}
		return 2
	case KindCondBr:
		if fallsThrough(instr.CondFalse, next, hasNext) {
			return 1
		}
		return 2
	case KindJump:
		if fallsThrough(instr.Target, next, hasNext) {
			return 0
		}
		return 1
	case KindTrapIf:
		return 2
	default:
		return 1
	}
}

// encodeInstr encodes one lowered instruction at byte offset pc, returning
// its words (already little-endian-ready as uint32) plus a non-nil
// Relocation if it is a call needing later symbol resolution.
func encodeInstr(
	instr *Instr, pc int32, labelOffset func(vcode.BlockID) int32,
	frame *backend.FrameLayout, code *vcode.Code[*Instr],
	next vcode.BlockID, hasNext bool,
) ([]uint32, *vcode.Relocation) {
	switch instr.Kind {
	case KindAdd:
		return w1(encAdd(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindSub:
		return w1(encSub(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindMul:
		return w1(encMul(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindMulh:
		return w1(encMulh(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindDiv:
		return w1(encDiv(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindRem:
		return w1(encRem(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindAnd:
		return w1(encAnd(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindOr:
		return w1(encOr(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindXor:
		return w1(encXor(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindSll:
		return w1(encSll(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindSrl:
		return w1(encSrl(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindSra:
		return w1(encSra(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindSlt:
		return w1(encSlt(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil
	case KindSltu:
		return w1(encSltu(realOf(instr.Rd), realOf(instr.Rs1), realOf(instr.Rs2))), nil

	case KindAddI:
		return w1(encAddI(realOf(instr.Rd), realOf(instr.Rs1), requireI12(instr.Imm))), nil
	case KindAndI:
		return w1(encAndI(realOf(instr.Rd), realOf(instr.Rs1), requireI12(instr.Imm))), nil
	case KindOrI:
		return w1(encOrI(realOf(instr.Rd), realOf(instr.Rs1), requireI12(instr.Imm))), nil
	case KindXorI:
		return w1(encXorI(realOf(instr.Rd), realOf(instr.Rs1), requireI12(instr.Imm))), nil
	case KindSltI:
		return w1(encSltI(realOf(instr.Rd), realOf(instr.Rs1), requireI12(instr.Imm))), nil
	case KindSltIU:
		return w1(encSltIU(realOf(instr.Rd), realOf(instr.Rs1), requireI12(instr.Imm))), nil
	case KindSllI:
		return w1(encSllI(realOf(instr.Rd), realOf(instr.Rs1), uint32(instr.Imm))), nil
	case KindSrlI:
		return w1(encSrlI(realOf(instr.Rd), realOf(instr.Rs1), uint32(instr.Imm))), nil
	case KindSraI:
		return w1(encSraI(realOf(instr.Rd), realOf(instr.Rs1), uint32(instr.Imm))), nil

	case KindLUI:
		return w1(encLUI(realOf(instr.Rd), uint32(instr.Imm))), nil
	case KindAUIPC:
		return w1(encAUIPC(realOf(instr.Rd), uint32(instr.Imm))), nil

	case KindLI:
		hi20, lo12 := splitHiLo20(instr.Imm)
		rd := realOf(instr.Rd)
		if hi20 == 0 {
			return w1(encAddI(rd, int(RegZero), lo12)), nil
		}
		return []uint32{encLUI(rd, hi20), encAddI(rd, rd, lo12)}, nil

	case KindLW:
		offset := resolveMemOffset(instr, frame, code)
		return w1(encLW(realOf(instr.Rd), realOf(instr.Rs1), offset)), nil
	case KindSW:
		offset := resolveMemOffset(instr, frame, code)
		// Instr's convention is Rs1=stored value, Rs2=base; encSW's own
		// parameter order is (base, value, offset).
		return w1(encSW(realOf(instr.Rs2), realOf(instr.Rs1), offset)), nil

	case KindLocalAddr:
		addr := frame.SpillAreaOffset() + 4*int64(code.SpillSlots) + int64(code.LocalOffset(instr.LocalIndex))
		return w1(encAddI(realOf(instr.Rd), int(RegSP), requireI12(int32(addr)))), nil

	case KindMove:
		return w1(encAddI(realOf(instr.Rd), realOf(instr.Rs1), 0)), nil

	case KindCondBr:
		off := requireBranchRange(labelOffset(instr.CondTrue) - pc)
		bne := encBNE(realOf(instr.Rs1), int(RegZero), off)
		if fallsThrough(instr.CondFalse, next, hasNext) {
			return w1(bne), nil
		}
		jOff := requireJumpRange(labelOffset(instr.CondFalse) - (pc + 4))
		return []uint32{bne, encJAL(int(RegZero), jOff)}, nil

	case KindJump:
		if fallsThrough(instr.Target, next, hasNext) {
			return nil, nil
		}
		jOff := requireJumpRange(labelOffset(instr.Target) - pc)
		return w1(encJAL(int(RegZero), jOff)), nil

	case KindCall:
		// Placeholder offset; patched by the link pass once every
		// function's (or external symbol's) address is known.
		return w1(encJAL(int(RegRA), 0)), &vcode.Relocation{Kind: vcode.RelocationCallPCRel32, Symbol: instr.Sym}

	case KindRet:
		return w1(encJALR(int(RegZero), int(RegRA), 0)), nil

	case KindTrap:
		return w1(encTrap(uint8(instr.TrapCode))), nil

	case KindTrapIf:
		var branch uint32
		if instr.Zero {
			// trapz: traps when rs1==0, so skip the trap word when rs1!=0.
			branch = encBNE(realOf(instr.Rs1), int(RegZero), 8)
		} else {
			// trapnz: traps when rs1!=0, so skip the trap word when rs1==0.
			branch = encBEQ(realOf(instr.Rs1), int(RegZero), 8)
		}
		return []uint32{branch, encTrap(uint8(instr.TrapCode))}, nil

	default:
		panic(fmt.Sprintf("rv32: unencodable instruction kind %v", instr.Kind))
	}
}

func w1(w uint32) []uint32 { return []uint32{w} }

func realOf(v regalloc.VReg) int {
	if !v.IsRealReg() {
		panic("rv32: emission reached a VReg with no real register assigned")
	}
	return int(v.RealReg())
}

func requireI12(v int32) int32 {
	if !fitsI12(v) {
		panic(fmt.Sprintf("rv32: immediate %d does not fit in 12 bits", v))
	}
	return v
}

func requireBranchRange(off int32) int32 {
	if off < -4096 || off > 4094 {
		panic(fmt.Sprintf("rv32: branch offset %d exceeds the B-type's +/-4KiB range", off))
	}
	return off
}

func requireJumpRange(off int32) int32 {
	const lim = 1 << 20
	if off < -lim || off >= lim {
		panic(fmt.Sprintf("rv32: jump offset %d exceeds jal's +/-1MiB range", off))
	}
	return off
}

// resolveMemOffset returns the byte offset a load/store's Imm should carry
// once emitted: the frame-relative offset of its spill slot if the
// allocator inserted it, or its already-set LPIR-level offset otherwise.
func resolveMemOffset(instr *Instr, frame *backend.FrameLayout, code *vcode.Code[*Instr]) int32 {
	if instr.SpillSlot == NoSpillSlot {
		return requireI12(instr.Imm)
	}
	off := frame.SpillAreaOffset() + 4*int64(instr.SpillSlot)
	return requireI12(int32(off))
}
