// Package vcode holds the post-lowering, pre-emission machine-instruction
// form described in spec.md §3 as VCode<I>: a flat, mutable instruction
// stream parameterised by an ISA-specific instruction type I, built by
// an ISA's lowering (rv32.Lower) and consumed by an ISA's regalloc.Function adapter and,
// finally, its emitter. Grounded on the teacher's use of Go generics to
// parameterise ISA-specific types over a shared core (backend/abi.go's
// FunctionABI[R]).
package vcode

import (
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
)

// BlockID identifies a Block within a Code.
type BlockID int

// Block is one block in the lowered instruction stream: either an
// original LPIR block or a synthetic edge block inserted to split a
// critical edge (spec.md §4.4).
type Block[I regalloc.Instr] struct {
	id     BlockID
	instrs []I
	idx    int

	preds []BlockID
	succs []BlockID

	params []regalloc.VReg

	entry          bool
	cold           bool
	indirectTarget bool

	code *Code[I]
}

// ID returns b's identifier, satisfying regalloc.Block.
func (b *Block[I]) ID() int { return int(b.id) }

// BlockID returns b's identifier as a vcode.BlockID, for use in branch
// target fields (an ISA's Instr.CondTrue/CondFalse/Target).
func (b *Block[I]) BlockID() BlockID { return b.id }

// Append adds a lowered instruction to the end of b.
func (b *Block[I]) Append(instr I) { b.instrs = append(b.instrs, instr) }

// PrependAll splices instrs onto the front of b's instruction stream, in
// order. Used by an ISA's prologue construction to insert frame setup
// ahead of the block's own lowered instructions, once, after allocation
// has already fixed the instructions it comes before.
func (b *Block[I]) PrependAll(instrs []I) {
	b.instrs = append(append([]I{}, instrs...), b.instrs...)
}

// Instrs returns b's instructions in order.
func (b *Block[I]) Instrs() []I { return b.instrs }

// InsertBefore splices newInstr immediately before the first instruction
// for which match returns true. Used by an ISA's regalloc.Function
// adapter to realise StoreRegisterBefore/ReloadRegisterBefore.
func (b *Block[I]) InsertBefore(newInstr I, match func(I) bool) {
	for i, instr := range b.instrs {
		if match(instr) {
			b.instrs = append(b.instrs[:i], append([]I{newInstr}, b.instrs[i:]...)...)
			return
		}
	}
	b.instrs = append(b.instrs, newInstr)
}

// InsertAfter splices newInstr immediately after the first instruction
// for which match returns true. Used by an ISA's regalloc.Function
// adapter to realise StoreRegisterAfter/ReloadRegisterAfter.
func (b *Block[I]) InsertAfter(newInstr I, match func(I) bool) {
	for i, instr := range b.instrs {
		if match(instr) {
			i++
			b.instrs = append(b.instrs[:i], append([]I{newInstr}, b.instrs[i:]...)...)
			return
		}
	}
	b.instrs = append(b.instrs, newInstr)
}

// InstrIteratorBegin starts an iteration over b's instructions, satisfying
// regalloc.Block.
func (b *Block[I]) InstrIteratorBegin() regalloc.Instr {
	b.idx = 0
	return b.instrAt(0)
}

// InstrIteratorNext continues the iteration started by InstrIteratorBegin.
func (b *Block[I]) InstrIteratorNext() regalloc.Instr {
	b.idx++
	return b.instrAt(b.idx)
}

func (b *Block[I]) instrAt(i int) regalloc.Instr {
	if i >= len(b.instrs) {
		return nil
	}
	return b.instrs[i]
}

// Preds returns b's predecessor blocks, satisfying regalloc.Block.
func (b *Block[I]) Preds() []regalloc.Block {
	out := make([]regalloc.Block, len(b.preds))
	for i, id := range b.preds {
		out[i] = b.code.Block(id)
	}
	return out
}

// Succs returns b's successor blocks, satisfying regalloc.Block.
func (b *Block[I]) Succs() []regalloc.Block {
	out := make([]regalloc.Block, len(b.succs))
	for i, id := range b.succs {
		out[i] = b.code.Block(id)
	}
	return out
}

// SetPreds/SetSuccs wire up the successor/predecessor sets; rv32.Lower
// calls these once, from the CFG it computed over the original LPIR.
func (b *Block[I]) SetPreds(ids []BlockID) { b.preds = ids }
func (b *Block[I]) SetSuccs(ids []BlockID) { b.succs = ids }

// Entry reports whether b is the function's entry block.
func (b *Block[I]) Entry() bool { return b.entry }

// SetEntry marks b as the function's entry block.
func (b *Block[I]) SetEntry() { b.entry = true }

// SetCold marks b as rarely executed.
func (b *Block[I]) SetCold() { b.cold = true }

// IsCold reports whether b was marked cold.
func (b *Block[I]) IsCold() bool { return b.cold }

// SetIndirectTarget marks b as reachable via an indirect branch.
func (b *Block[I]) SetIndirectTarget() { b.indirectTarget = true }

// IsIndirectTarget reports whether b may be targeted indirectly.
func (b *Block[I]) IsIndirectTarget() bool { return b.indirectTarget }

// SetParams records b's block parameters as already-allocated VRegs. Set
// on original blocks that have LPIR block parameters; the edge blocks in
// front of such a block move their branch arguments into these VRegs.
func (b *Block[I]) SetParams(params []regalloc.VReg) { b.params = params }

// Params returns b's block parameters.
func (b *Block[I]) Params() []regalloc.VReg { return b.params }

// LoweredBlockKind distinguishes an original LPIR block from a synthetic
// edge block (spec.md §4.4).
type LoweredBlockKind int

const (
	LoweredOrig LoweredBlockKind = iota
	LoweredEdge
)

// LoweredBlock is one entry in the block lowering order.
type LoweredBlock struct {
	Kind     LoweredBlockKind
	Orig     ir.BasicBlockID // valid when Kind == LoweredOrig
	From, To ir.BasicBlockID // valid when Kind == LoweredEdge
	Block    BlockID
}

// RelocationKind names the fixup a Relocation describes.
type RelocationKind int

const (
	// RelocationCallPCRel32 marks a call instruction whose PC-relative
	// offset to its callee (a Local or External symbol) is not yet known.
	RelocationCallPCRel32 RelocationKind = iota
)

// Relocation is a not-yet-resolved reference to a call target symbol
// (Local or External) recorded during emission (spec.md §4.8, §4.9).
type Relocation struct {
	InstrIndex int
	Kind       RelocationKind
	Symbol     ir.SymbolRef
}

// Code is the lowered form of one function: its blocks in lowering
// order, the order metadata, and the bookkeeping the later passes
// (regalloc, emission) attach to it.
type Code[I regalloc.Instr] struct {
	Name string
	Sig  *ir.Signature

	blocks []*Block[I]
	Order  []LoweredBlock

	nextVRegID regalloc.VRegID

	ClobberedRegisters []regalloc.VReg
	SpillSlots         int

	// Locals holds the byte size of every stackalloc lowering reserved, in
	// allocation order; LocalOffset(i) gives the i-th local's offset within
	// the locals sub-region of the frame's fixed storage (spec.md §4.5's
	// "SP adjustment recorded in frame" stackalloc rule).
	Locals []int32

	Relocations []Relocation
}

// AllocLocal reserves a new stackalloc local of the given byte size
// (rounded up to a 4-byte word) and returns its index for LocalOffset.
func (c *Code[I]) AllocLocal(sizeBytes uint32) int {
	aligned := int32((sizeBytes + 3) &^ 3)
	c.Locals = append(c.Locals, aligned)
	return len(c.Locals) - 1
}

// LocalOffset returns the i-th local's byte offset within the locals
// sub-region of the frame's fixed storage.
func (c *Code[I]) LocalOffset(i int) int32 {
	var off int32
	for _, sz := range c.Locals[:i] {
		off += sz
	}
	return off
}

// LocalsSize returns the combined, word-aligned byte size of every local.
func (c *Code[I]) LocalsSize() int64 {
	var total int32
	for _, sz := range c.Locals {
		total += sz
	}
	return int64(total)
}

// NewCode creates an empty Code for a function with the given name and
// (already Q16.16-rewritten, if applicable) signature. Regular VReg ids
// start above regalloc.VRegIDReservedForRealNum so they never collide
// with a pinned, real-register-tied VReg's id (spec.md §4.6; grounded on
// the teacher's VRegIDNonReservedBegin in backend/regalloc/reg.go).
func NewCode[I regalloc.Instr](name string, sig *ir.Signature) *Code[I] {
	return &Code[I]{Name: name, Sig: sig, nextVRegID: regalloc.VRegIDReservedForRealNum}
}

// AllocVReg returns a fresh virtual register. VRegs are 1:1 with SSA
// values and immutable after creation (spec.md §3), so lowering calls
// this exactly once per LPIR value it lowers.
func (c *Code[I]) AllocVReg(typ regalloc.RegType) regalloc.VReg {
	id := c.nextVRegID
	c.nextVRegID++
	return regalloc.NewVReg(id, typ)
}

// NewBlock appends a new, empty block and returns it.
func (c *Code[I]) NewBlock() *Block[I] {
	b := &Block[I]{id: BlockID(len(c.blocks)), code: c}
	c.blocks = append(c.blocks, b)
	return b
}

// Block returns the block with the given id.
func (c *Code[I]) Block(id BlockID) *Block[I] { return c.blocks[id] }

// Blocks returns every block, in the order rv32.Lower arranged them
// (the block lowering order of spec.md §4.4).
func (c *Code[I]) Blocks() []*Block[I] { return c.blocks }

// BlockOf returns the block owning instr, used by an ISA's
// regalloc.Function adapter to route Store/Reload insertion requests to
// the right block.
func (c *Code[I]) BlockOf(instr I, same func(a, b I) bool) *Block[I] {
	for _, b := range c.blocks {
		for _, candidate := range b.instrs {
			if same(candidate, instr) {
				return b
			}
		}
	}
	return nil
}
