package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleAdd(t *testing.T) {
	fn := NewFunction("add", &Signature{Params: []Type{TypeI32, TypeI32}, Results: []Type{TypeI32}})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	v0, v1 := entry.Param(0), entry.Param(1)

	add := b.NewInstruction().AsIadd(v0, v1, b)
	b.Insert(add)
	b.Insert(b.NewInstruction().AsReturn([]Value{add.Return()}))

	require.Equal(t, 1, len(fn.Blocks()))
	require.Equal(t, OpcodeIadd, add.Opcode())
	require.True(t, add.Return().Valid())
	require.Equal(t, TypeI32, add.Return().Type())
}

func TestBuilder_BranchWithBlockParams(t *testing.T) {
	fn := NewFunction("max", &Signature{Params: []Type{TypeI32, TypeI32}, Results: []Type{TypeI32}})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	v0, v1 := entry.Param(0), entry.Param(1)

	thenBlk := b.CreateBlock()
	elseBlk := b.CreateBlock()

	cmp := b.NewInstruction().AsIcmp(v0, v1, IntCCSignedGreaterThan, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsBr(cmp.Return(), thenBlk, nil, elseBlk, nil))

	b.SetCurrentBlock(thenBlk)
	b.Insert(b.NewInstruction().AsReturn([]Value{v0}))

	b.SetCurrentBlock(elseBlk)
	b.Insert(b.NewInstruction().AsReturn([]Value{v1}))

	require.Equal(t, 3, len(fn.Blocks()))
	require.Equal(t, 1, thenBlk.Preds())
	require.Equal(t, entry, thenBlk.Pred(0))
	require.Equal(t, 1, elseBlk.Preds())
}

func TestInstruction_Format(t *testing.T) {
	fn := NewFunction("f", &Signature{Params: []Type{TypeI32, TypeI32}})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	add := b.NewInstruction().AsIadd(entry.Param(0), entry.Param(1), b)
	b.Insert(add)
	require.Contains(t, add.Format(), "iadd")
}
