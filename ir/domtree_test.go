package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildLinear builds entry -> b1 -> b2 (each ending in an unconditional jump,
// the last in a return).
func buildLinear(t *testing.T) (*Function, []*BasicBlock) {
	t.Helper()
	fn := NewFunction("linear", &Signature{})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	b1 := b.CreateBlock()
	b2 := b.CreateBlock()

	b.SetCurrentBlock(entry)
	b.Insert(b.NewInstruction().AsJump(nil, b1))
	b.SetCurrentBlock(b1)
	b.Insert(b.NewInstruction().AsJump(nil, b2))
	b.SetCurrentBlock(b2)
	b.Insert(b.NewInstruction().AsReturn(nil))

	return fn, []*BasicBlock{entry, b1, b2}
}

// buildDiamond builds entry -> {t, f} -> join -> return.
func buildDiamond(t *testing.T) (*Function, map[string]*BasicBlock) {
	t.Helper()
	fn := NewFunction("diamond", &Signature{Params: []Type{TypeI32}})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	thenBlk := b.CreateBlock()
	elseBlk := b.CreateBlock()
	join := b.CreateBlock()
	param := join.AddParam(fn, TypeI32)

	b.SetCurrentBlock(entry)
	cmp := b.NewInstruction().AsIcmp(entry.Param(0), entry.Param(0), IntCCEqual, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsBr(cmp.Return(), thenBlk, nil, elseBlk, nil))

	b.SetCurrentBlock(thenBlk)
	b.Insert(b.NewInstruction().AsJump([]Value{entry.Param(0)}, join))

	b.SetCurrentBlock(elseBlk)
	b.Insert(b.NewInstruction().AsJump([]Value{entry.Param(0)}, join))

	b.SetCurrentBlock(join)
	b.Insert(b.NewInstruction().AsReturn([]Value{param}))

	return fn, map[string]*BasicBlock{"entry": entry, "then": thenBlk, "else": elseBlk, "join": join}
}

// buildLoop builds entry -> header -> body -> header (back edge), header -> exit.
func buildLoop(t *testing.T) (*Function, map[string]*BasicBlock) {
	t.Helper()
	fn := NewFunction("loop", &Signature{Params: []Type{TypeI32}})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	header := b.CreateBlock()
	body := b.CreateBlock()
	exit := b.CreateBlock()
	acc := header.AddParam(fn, TypeI32)

	b.SetCurrentBlock(entry)
	b.Insert(b.NewInstruction().AsJump([]Value{entry.Param(0)}, header))

	b.SetCurrentBlock(header)
	cmp := b.NewInstruction().AsIcmp(acc, entry.Param(0), IntCCSignedLessThan, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsBr(cmp.Return(), body, nil, exit, nil))

	b.SetCurrentBlock(body)
	next := b.NewInstruction().AsIadd(acc, entry.Param(0), b)
	b.Insert(next)
	b.Insert(b.NewInstruction().AsJump([]Value{next.Return()}, header))

	b.SetCurrentBlock(exit)
	b.Insert(b.NewInstruction().AsReturn([]Value{acc}))

	return fn, map[string]*BasicBlock{"entry": entry, "header": header, "body": body, "exit": exit}
}

func TestDomTree_Linear(t *testing.T) {
	fn, blks := buildLinear(t)
	cfg := ComputeCFG(fn)
	dt := BuildDomTree(cfg)

	for i := 1; i < len(blks); i++ {
		require.True(t, dt.Dominates(blks[i-1], blks[i]))
	}
	require.False(t, dt.Dominates(blks[2], blks[0]))
	require.True(t, dt.Dominates(blks[0], blks[0]))
}

func TestDomTree_Diamond(t *testing.T) {
	fn, blks := buildDiamond(t)
	cfg := ComputeCFG(fn)
	dt := BuildDomTree(cfg)

	require.True(t, dt.Dominates(blks["entry"], blks["then"]))
	require.True(t, dt.Dominates(blks["entry"], blks["else"]))
	require.True(t, dt.Dominates(blks["entry"], blks["join"]))
	require.False(t, dt.Dominates(blks["then"], blks["join"]))
	require.False(t, dt.Dominates(blks["else"], blks["join"]))
	require.Equal(t, blks["entry"], dt.ImmediateDominator(blks["join"]))
}

func TestDomTree_Loop(t *testing.T) {
	fn, blks := buildLoop(t)
	cfg := ComputeCFG(fn)
	dt := BuildDomTree(cfg)

	require.True(t, dt.Dominates(blks["entry"], blks["header"]))
	require.True(t, dt.Dominates(blks["header"], blks["body"]))
	require.True(t, dt.Dominates(blks["header"], blks["exit"]))
	require.True(t, blks["header"].IsLoopHeader())
	require.False(t, blks["body"].IsLoopHeader())
}

func TestDomTree_Unreachable(t *testing.T) {
	fn := NewFunction("unreachable", &Signature{})
	b := NewBuilder(fn)
	entry := fn.EntryBlock()
	dead := b.CreateBlock()

	b.SetCurrentBlock(entry)
	b.Insert(b.NewInstruction().AsReturn(nil))

	b.SetCurrentBlock(dead)
	b.Insert(b.NewInstruction().AsReturn(nil))

	cfg := ComputeCFG(fn)
	dt := BuildDomTree(cfg)

	require.True(t, cfg.Reachable(entry))
	require.False(t, cfg.Reachable(dead))
	require.Nil(t, dt.ImmediateDominator(dead))
	require.False(t, dt.Dominates(entry, dead))
}
