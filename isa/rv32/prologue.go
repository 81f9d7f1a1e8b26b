package rv32

import (
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/backend"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

func pinned(r regalloc.RealReg) regalloc.VReg { return regalloc.FromRealReg(r, regalloc.RegTypeInt) }

func spVReg() regalloc.VReg { return pinned(RegSP) }
func raVReg() regalloc.VReg { return pinned(RegRA) }
func fpVReg() regalloc.VReg { return pinned(RegFP) }

func entryBlock[I regalloc.Instr](code *vcode.Code[I]) *vcode.Block[I] {
	for _, b := range code.Blocks() {
		if b.Entry() {
			return b
		}
	}
	panic("rv32: function has no entry block")
}

// SetupPrologue prepends code's entry block with its frame-establishing
// sequence: allocate the frame, save ra/fp into the setup area, point fp
// at the frame's top, then save every clobbered callee-saved register.
// Grounded on the teacher's machine_pro_epi_logue.go region ordering
// (tail-args/setup/clobber/spill, stack-descending, spec.md §4.7),
// retargeted from ARM64's pre/post-indexed str/ldr to RV32's single
// up-front addi sp,sp,-N plus offset-addressed sw/lw.
func SetupPrologue(code *vcode.Code[*Instr], frame *backend.FrameLayout) {
	entry := entryBlock(code)
	total := int32(frame.TotalFrameAdjustment)
	if total == 0 {
		return
	}

	var prologue []*Instr
	prologue = append(prologue, &Instr{Kind: KindAddI, Rd: spVReg(), Rs1: spVReg(), Imm: -total})

	if frame.SetupAreaSize > 0 {
		setup := int32(frame.SetupAreaOffset())
		prologue = append(prologue,
			&Instr{Kind: KindSW, Rs1: fpVReg(), Rs2: spVReg(), Imm: setup, SpillSlot: NoSpillSlot},
			&Instr{Kind: KindSW, Rs1: raVReg(), Rs2: spVReg(), Imm: setup + 4, SpillSlot: NoSpillSlot},
			&Instr{Kind: KindAddI, Rd: fpVReg(), Rs1: spVReg(), Imm: total},
		)
	}

	clobberBase := frame.ClobberAreaOffset()
	for i, r := range frame.Clobbered {
		prologue = append(prologue, &Instr{
			Kind: KindSW, Rs1: pinned(r), Rs2: spVReg(),
			Imm: int32(clobberBase) + int32(i)*4, SpillSlot: NoSpillSlot,
		})
	}

	entry.PrependAll(prologue)
}

// SetupEpilogue inserts, immediately before every KindRet in code, the
// mirror-image sequence of SetupPrologue: restore every clobbered
// register, restore ra/fp, then deallocate the frame.
func SetupEpilogue(code *vcode.Code[*Instr], frame *backend.FrameLayout) {
	total := int32(frame.TotalFrameAdjustment)
	if total == 0 {
		return
	}

	for _, b := range code.Blocks() {
		for _, instr := range b.Instrs() {
			if instr.Kind != KindRet {
				continue
			}
			isRet := func(i *Instr) bool { return i == instr }

			clobberBase := frame.ClobberAreaOffset()
			for i, r := range frame.Clobbered {
				b.InsertBefore(&Instr{
					Kind: KindLW, Rd: pinned(r), Rs1: spVReg(),
					Imm: int32(clobberBase) + int32(i)*4, SpillSlot: NoSpillSlot,
				}, isRet)
			}

			if frame.SetupAreaSize > 0 {
				setup := int32(frame.SetupAreaOffset())
				b.InsertBefore(&Instr{Kind: KindLW, Rd: fpVReg(), Rs1: spVReg(), Imm: setup, SpillSlot: NoSpillSlot}, isRet)
				b.InsertBefore(&Instr{Kind: KindLW, Rd: raVReg(), Rs1: spVReg(), Imm: setup + 4, SpillSlot: NoSpillSlot}, isRet)
			}

			b.InsertBefore(&Instr{Kind: KindAddI, Rd: spVReg(), Rs1: spVReg(), Imm: total}, isRet)
		}
	}
}
