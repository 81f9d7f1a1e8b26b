package regalloc_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
)

// fakeInstr is a minimal Instr used to exercise the allocator without any
// ISA dependency.
type fakeInstr struct {
	name       string
	defs, uses []regalloc.VReg
	isCall     bool
}

func (f *fakeInstr) String() string                { return f.name }
func (f *fakeInstr) Defs() []regalloc.VReg          { return f.defs }
func (f *fakeInstr) Uses() []regalloc.VReg          { return f.uses }
func (f *fakeInstr) AssignUses(vs []regalloc.VReg)  { f.uses = vs }
func (f *fakeInstr) AssignDef(v regalloc.VReg)      { f.defs = []regalloc.VReg{v} }
func (f *fakeInstr) IsCopy() bool                   { return false }
func (f *fakeInstr) IsCall() bool                   { return f.isCall }
func (f *fakeInstr) IsReturn() bool                 { return f.name == "ret" }

type edit struct {
	kind string
	v    regalloc.VReg
	at   string
}

type fakeBlock struct {
	id     int
	instrs []regalloc.Instr
	idx    int
	preds  []regalloc.Block
	succs  []regalloc.Block
	entry  bool
}

func (b *fakeBlock) ID() int { return b.id }
func (b *fakeBlock) InstrIteratorBegin() regalloc.Instr {
	b.idx = 0
	return b.nextOrNil()
}
func (b *fakeBlock) InstrIteratorNext() regalloc.Instr {
	b.idx++
	return b.nextOrNil()
}
func (b *fakeBlock) nextOrNil() regalloc.Instr {
	if b.idx >= len(b.instrs) {
		return nil
	}
	return b.instrs[b.idx]
}
func (b *fakeBlock) Preds() []regalloc.Block { return b.preds }
func (b *fakeBlock) Succs() []regalloc.Block { return b.succs }
func (b *fakeBlock) Entry() bool             { return b.entry }

type fakeFunction struct {
	blocks []*fakeBlock
	idx    int
	edits  []edit
	done   bool
	slots  int
}

func (f *fakeFunction) ReversePostOrderBlockIteratorBegin() regalloc.Block {
	f.idx = 0
	return f.nextOrNil()
}
func (f *fakeFunction) ReversePostOrderBlockIteratorNext() regalloc.Block {
	f.idx++
	return f.nextOrNil()
}
func (f *fakeFunction) nextOrNil() regalloc.Block {
	if f.idx >= len(f.blocks) {
		return nil
	}
	return f.blocks[f.idx]
}
func (f *fakeFunction) ClobberedRegisters([]regalloc.VReg) {}
func (f *fakeFunction) StoreRegisterBefore(v regalloc.VReg, instr regalloc.Instr) {
	f.edits = append(f.edits, edit{"store-before", v, instr.String()})
}
func (f *fakeFunction) StoreRegisterAfter(v regalloc.VReg, instr regalloc.Instr) {
	f.edits = append(f.edits, edit{"store-after", v, instr.String()})
}
func (f *fakeFunction) ReloadRegisterBefore(v regalloc.VReg, instr regalloc.Instr) {
	f.edits = append(f.edits, edit{"reload-before", v, instr.String()})
}
func (f *fakeFunction) ReloadRegisterAfter(v regalloc.VReg, instr regalloc.Instr) {
	f.edits = append(f.edits, edit{"reload-after", v, instr.String()})
}
func (f *fakeFunction) Done(spillSlots int) { f.done = true; f.slots = spillSlots }

func vreg(id int) regalloc.VReg { return regalloc.NewVReg(regalloc.VRegID(id), regalloc.RegTypeInt) }

func TestAllocate_SimpleChainGetsDistinctRegisters(t *testing.T) {
	v0, v1 := vreg(0), vreg(1)
	i0 := &fakeInstr{name: "def v0", defs: []regalloc.VReg{v0}}
	i1 := &fakeInstr{name: "def v1 use v0", defs: []regalloc.VReg{v1}, uses: []regalloc.VReg{v0}}

	blk := &fakeBlock{id: 0, instrs: []regalloc.Instr{i0, i1}, entry: true}
	fn := &fakeFunction{blocks: []*fakeBlock{blk}}

	available := regalloc.NewRegSet(1, 2, 3, 4)
	alloc := regalloc.NewAllocator(available, regalloc.NewRegSet(1, 2), 63)
	slots := alloc.Allocate(fn)

	require.Equal(t, 0, slots)
	require.True(t, fn.done)
	require.True(t, i0.defs[0].IsRealReg())
	require.True(t, i1.uses[0].IsRealReg())
	require.Equal(t, i0.defs[0].RealReg(), i1.uses[0].RealReg())
}

func TestAllocate_SpillsWhenRegistersExhausted(t *testing.T) {
	// Three concurrently-live values, only one register available: v0
	// keeps the register, and v1 and v2 (which end no later than v0) spill.
	v0, v1, v2 := vreg(0), vreg(1), vreg(2)
	i0 := &fakeInstr{name: "def v0", defs: []regalloc.VReg{v0}}
	i1 := &fakeInstr{name: "def v1", defs: []regalloc.VReg{v1}}
	i2 := &fakeInstr{name: "def v2", defs: []regalloc.VReg{v2}}
	i3 := &fakeInstr{name: "use all", uses: []regalloc.VReg{v0, v1, v2}}

	blk := &fakeBlock{id: 0, instrs: []regalloc.Instr{i0, i1, i2, i3}, entry: true}
	fn := &fakeFunction{blocks: []*fakeBlock{blk}}

	available := regalloc.NewRegSet(1)
	alloc := regalloc.NewAllocator(available, regalloc.RegSet(0), 63)
	slots := alloc.Allocate(fn)

	require.Greater(t, slots, 0)
	var reloads int
	for _, e := range fn.edits {
		if e.kind == "reload-before" {
			reloads++
		}
	}
	require.Greater(t, reloads, 0)
}

func TestAllocate_SavesLiveValueAcrossCall(t *testing.T) {
	v0 := vreg(0)
	i0 := &fakeInstr{name: "def v0", defs: []regalloc.VReg{v0}}
	call := &fakeInstr{name: "call", isCall: true}
	i1 := &fakeInstr{name: "use v0", uses: []regalloc.VReg{v0}}

	blk := &fakeBlock{id: 0, instrs: []regalloc.Instr{i0, call, i1}, entry: true}
	fn := &fakeFunction{blocks: []*fakeBlock{blk}}

	available := regalloc.NewRegSet(1, 2)
	alloc := regalloc.NewAllocator(available, regalloc.NewRegSet(1, 2), 63)
	alloc.Allocate(fn)

	var sawStore, sawReload bool
	for _, e := range fn.edits {
		if e.kind == "store-before" && e.at == "call" {
			sawStore = true
		}
		if e.kind == "reload-after" && e.at == "call" {
			sawReload = true
		}
	}
	require.True(t, sawStore, fmt.Sprintf("edits: %+v", fn.edits))
	require.True(t, sawReload, fmt.Sprintf("edits: %+v", fn.edits))
}
