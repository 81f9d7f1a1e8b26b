package rv32

import (
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// Function adapts a *vcode.Code[*Instr] to regalloc.Function, grounded on
// the teacher's regAllocFn wrapper in
// backend/isa/arm64/machine_regalloc.go: the generic vcode.Code/Block
// types supply the graph-walking methods regalloc.Block already needs
// (vcode.Block[I] satisfies regalloc.Block directly), and this type adds
// only the ISA-specific mutation callbacks (spill/reload insertion,
// clobber recording) a generic container can't provide on its own.
type Function struct {
	Code *vcode.Code[*Instr]

	blockIdx int

	// slots assigns each spilled VReg its own spill slot index, keyed by
	// the original VReg's id (which SetRealReg preserves, per
	// regalloc.interval.spillVReg's doc comment).
	slots    map[regalloc.VRegID]int
	numSlots int
}

// NewFunction wraps code for register allocation.
func NewFunction(code *vcode.Code[*Instr]) *Function {
	return &Function{Code: code, slots: map[regalloc.VRegID]int{}}
}

// ReversePostOrderBlockIteratorBegin implements regalloc.Function. It hands
// out code's blocks in the final lowering order rv32.Lower arranged
// (spec.md §4.4): the LPIR blocks in reverse postorder, each preceded by
// its incoming edge blocks. An edge block on a loop back edge therefore
// comes before its predecessor, so this is not a strict reverse postorder
// of the lowered CFG.
func (f *Function) ReversePostOrderBlockIteratorBegin() regalloc.Block {
	f.blockIdx = 0
	return f.next()
}

// ReversePostOrderBlockIteratorNext implements regalloc.Function.
func (f *Function) ReversePostOrderBlockIteratorNext() regalloc.Block {
	f.blockIdx++
	return f.next()
}

func (f *Function) next() regalloc.Block {
	blocks := f.Code.Blocks()
	if f.blockIdx >= len(blocks) {
		return nil
	}
	return blocks[f.blockIdx]
}

// ClobberedRegisters implements regalloc.Function.
func (f *Function) ClobberedRegisters(regs []regalloc.VReg) {
	f.Code.ClobberedRegisters = append(f.Code.ClobberedRegisters[:0], regs...)
}

func sameInstr(a, b *Instr) bool { return a == b }

func (f *Function) slotFor(v regalloc.VReg) int {
	if slot, ok := f.slots[v.ID()]; ok {
		return slot
	}
	slot := f.numSlots
	f.slots[v.ID()] = slot
	f.numSlots++
	return slot
}

// StoreRegisterBefore implements regalloc.Function: spills v (already
// holding its value in v.RealReg()) to its slot, immediately before instr.
func (f *Function) StoreRegisterBefore(v regalloc.VReg, instr regalloc.Instr) {
	f.insertStore(v, instr.(*Instr), false)
}

// StoreRegisterAfter implements regalloc.Function.
func (f *Function) StoreRegisterAfter(v regalloc.VReg, instr regalloc.Instr) {
	f.insertStore(v, instr.(*Instr), true)
}

// ReloadRegisterBefore implements regalloc.Function.
func (f *Function) ReloadRegisterBefore(v regalloc.VReg, instr regalloc.Instr) {
	f.insertReload(v, instr.(*Instr), false)
}

// ReloadRegisterAfter implements regalloc.Function.
func (f *Function) ReloadRegisterAfter(v regalloc.VReg, instr regalloc.Instr) {
	f.insertReload(v, instr.(*Instr), true)
}

func (f *Function) insertStore(v regalloc.VReg, at *Instr, after bool) {
	blk := f.Code.BlockOf(at, sameInstr)
	store := &Instr{Kind: KindSW, Rs1: v, Rs2: regalloc.FromRealReg(RegSP, regalloc.RegTypeInt), SpillSlot: f.slotFor(v)}
	f.splice(blk, store, at, after)
}

func (f *Function) insertReload(v regalloc.VReg, at *Instr, after bool) {
	blk := f.Code.BlockOf(at, sameInstr)
	reload := &Instr{Kind: KindLW, Rd: v, Rs1: regalloc.FromRealReg(RegSP, regalloc.RegTypeInt), SpillSlot: f.slotFor(v)}
	f.splice(blk, reload, at, after)
}

func (f *Function) splice(blk *vcode.Block[*Instr], newInstr *Instr, at *Instr, after bool) {
	match := func(i *Instr) bool { return i == at }
	if after {
		blk.InsertAfter(newInstr, match)
	} else {
		blk.InsertBefore(newInstr, match)
	}
}

// Done implements regalloc.Function: record the final spill slot count on
// the Code so the frame layout pass can size the spill region (spec.md
// §4.7). The count is the larger of the allocator's own spillSlots and
// the number of distinct slots this adapter actually assigned, since
// every spill/reload pair shares one slot per original VReg.
func (f *Function) Done(spillSlots int) {
	if f.numSlots > spillSlots {
		spillSlots = f.numSlots
	}
	f.Code.SpillSlots = spillSlots
}
