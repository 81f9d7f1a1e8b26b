package rv32_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/isa/rv32"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// TestLower_OrderSingleBlock confirms a straight-line function lowers to
// exactly one LoweredOrig entry with no synthetic edge blocks, using
// go-cmp for the structural diff rather than field-by-field assertions
// (spec.md §4.4's block lowering order, recorded on vcode.Code.Order).
func TestLower_OrderSingleBlock(t *testing.T) {
	fn := ir.NewFunction("add", &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	add := b.NewInstruction().AsIadd(entry.Param(0), entry.Param(1), b)
	b.Insert(add)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{add.Return()}))

	cfg := ir.ComputeCFG(fn)
	code, _ := rv32.Lower(fn, cfg)

	want := []vcode.LoweredBlock{
		{Kind: vcode.LoweredOrig, Orig: 0, Block: code.Order[0].Block},
	}
	if diff := cmp.Diff(want, code.Order); diff != "" {
		t.Fatalf("unexpected block order (-want +got):\n%s", diff)
	}
}

// TestLower_OrderSplitsCriticalEdge confirms a loop header with block
// parameters and more than one predecessor gets synthetic LoweredEdge
// blocks, one per incoming edge (the critical back edge included),
// matching the critical-edge splitting spec.md §4.4 requires before
// register allocation can insert edge moves safely.
func TestLower_OrderSplitsCriticalEdge(t *testing.T) {
	fn := ir.NewFunction("loop", &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	n := fn.EntryBlock().Param(0)

	loop := b.CreateBlock()
	nParam := loop.AddParam(fn, ir.TypeI32)
	done := b.CreateBlock()

	b.Insert(b.NewInstruction().AsJump([]ir.Value{n}, loop))

	b.SetCurrentBlock(loop)
	zero := b.NewInstruction().AsIconst32(0, ir.TypeI32, b)
	b.Insert(zero)
	cmpI := b.NewInstruction().AsIcmp(nParam, zero.Return(), ir.IntCCSignedGreaterThan, b)
	b.Insert(cmpI)
	one := b.NewInstruction().AsIconst32(1, ir.TypeI32, b)
	b.Insert(one)
	dec := b.NewInstruction().AsIsub(nParam, one.Return(), b)
	b.Insert(dec)
	b.Insert(b.NewInstruction().AsBr(cmpI.Return(), loop, []ir.Value{dec.Return()}, done, nil))

	b.SetCurrentBlock(done)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{nParam}))

	cfg := ir.ComputeCFG(fn)
	code, _ := rv32.Lower(fn, cfg)

	require.Greater(t, len(code.Order), 2, "loop header has two predecessors, so lowering must insert an edge block")

	var sawEdge bool
	for _, e := range code.Order {
		if e.Kind == vcode.LoweredEdge {
			sawEdge = true
			require.Equal(t, loop.ID(), e.To, "the loop header is the only block with parameters, so every edge block targets it")
		}
	}
	require.True(t, sawEdge, "expected at least one LoweredEdge entry in the block order")
}
