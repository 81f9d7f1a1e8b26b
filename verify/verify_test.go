package verify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/verify"
)

func TestFunction_SimpleAddOK(t *testing.T) {
	fn := ir.NewFunction("add", &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	add := b.NewInstruction().AsIadd(entry.Param(0), entry.Param(1), b)
	b.Insert(add)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{add.Return()}))

	require.NoError(t, verify.Function(fn))
}

func TestFunction_UseBeforeDefInSameBlock(t *testing.T) {
	fn := ir.NewFunction("bad", &ir.Signature{Params: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()

	add1 := b.NewInstruction().AsIadd(entry.Param(0), entry.Param(0), b)
	add2 := b.NewInstruction().AsIadd(add1.Return(), entry.Param(0), b)
	// Insert out of dependency order: add2 (which uses add1's result)
	// before add1 is inserted.
	b.Insert(add2)
	b.Insert(add1)
	b.Insert(b.NewInstruction().AsReturn(nil))

	err := verify.Function(fn)
	require.Error(t, err)
}

func TestFunction_BlockParamArityMismatch(t *testing.T) {
	fn := ir.NewFunction("bad", &ir.Signature{Params: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	join := b.CreateBlock()
	join.AddParam(fn, ir.TypeI32)

	b.SetCurrentBlock(entry)
	// Wrong arity: join wants one argument, jump supplies none.
	b.Insert(b.NewInstruction().AsJump(nil, join))

	b.SetCurrentBlock(join)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{join.Param(0)}))

	err := verify.Function(fn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "argument")
}

func TestFunction_IcmpTypeMismatch(t *testing.T) {
	fn := ir.NewFunction("bad", &ir.Signature{Params: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	fconst := b.NewInstruction().AsFconst32(1.0, b)
	b.Insert(fconst)
	cmp := b.NewInstruction().AsIcmp(entry.Param(0), fconst.Return(), ir.IntCCEqual, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsReturn(nil))

	err := verify.Function(fn)
	require.Error(t, err)
}

func TestFunction_DominanceViolation(t *testing.T) {
	fn := ir.NewFunction("bad", &ir.Signature{Params: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	thenBlk := b.CreateBlock()
	elseBlk := b.CreateBlock()

	b.SetCurrentBlock(entry)
	cmp := b.NewInstruction().AsIcmp(entry.Param(0), entry.Param(0), ir.IntCCEqual, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsBr(cmp.Return(), thenBlk, nil, elseBlk, nil))

	b.SetCurrentBlock(thenBlk)
	v := b.NewInstruction().AsIconst32(1, ir.TypeI32, b)
	b.Insert(v)
	b.Insert(b.NewInstruction().AsReturn(nil))

	b.SetCurrentBlock(elseBlk)
	// elseBlk uses a value defined only in thenBlk, which does not dominate it.
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{v.Return()}))

	err := verify.Function(fn)
	require.Error(t, err)
}
