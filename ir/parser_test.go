package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_RoundTripsFormat(t *testing.T) {
	build := func() *Function {
		fn := NewFunction("add", &Signature{Params: []Type{TypeI32, TypeI32}, Results: []Type{TypeI32}})
		b := NewBuilder(fn)
		entry := fn.EntryBlock()
		add := b.NewInstruction().AsIadd(entry.Param(0), entry.Param(1), b)
		b.Insert(add)
		b.Insert(b.NewInstruction().AsReturn([]Value{add.Return()}))
		return fn
	}
	want := build().Format()

	got, err := Parse(want)
	require.NoError(t, err)
	require.Equal(t, want, got.Format())
}

func TestParse_BranchWithBlockParams(t *testing.T) {
	build := func() *Function {
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
		return fn
	}
	want := build().Format()

	got, err := Parse(want)
	require.NoError(t, err)
	require.Equal(t, want, got.Format())
	require.Equal(t, 3, len(got.Blocks()))
}

func TestParse_LoopWithBlockParam(t *testing.T) {
	build := func() *Function {
		fn := NewFunction("factorial", &Signature{Params: []Type{TypeI32}, Results: []Type{TypeI32}})
		b := NewBuilder(fn)
		n := fn.EntryBlock().Param(0)

		loop := b.CreateBlock()
		accParam := loop.AddParam(fn, TypeI32)
		nParam := loop.AddParam(fn, TypeI32)
		done := b.CreateBlock()
		done.AddParam(fn, TypeI32)

		one := b.NewInstruction().AsIconst32(1, TypeI32, b)
		b.Insert(one)
		b.Insert(b.NewInstruction().AsJump([]Value{one.Return(), n}, loop))

		b.SetCurrentBlock(loop)
		zero := b.NewInstruction().AsIconst32(0, TypeI32, b)
		b.Insert(zero)
		cmp := b.NewInstruction().AsIcmp(nParam, zero.Return(), IntCCSignedGreaterThan, b)
		b.Insert(cmp)
		mul := b.NewInstruction().AsImul(accParam, nParam, b)
		b.Insert(mul)
		decBy := b.NewInstruction().AsIconst32(1, TypeI32, b)
		b.Insert(decBy)
		dec := b.NewInstruction().AsIsub(nParam, decBy.Return(), b)
		b.Insert(dec)
		b.Insert(b.NewInstruction().AsBr(cmp.Return(), loop, []Value{mul.Return(), dec.Return()}, done, []Value{accParam}))

		b.SetCurrentBlock(done)
		b.Insert(b.NewInstruction().AsReturn([]Value{done.Param(0)}))
		return fn
	}
	want := build().Format()

	got, err := Parse(want)
	require.NoError(t, err)
	require.Equal(t, want, got.Format())
}

func TestParse_CallWithTwoResults(t *testing.T) {
	build := func() *Function {
		fn := NewFunction("wrap", &Signature{Params: []Type{TypeI32}, Results: []Type{TypeI32, TypeI32}})
		b := NewBuilder(fn)
		arg := fn.EntryBlock().Param(0)
		call := b.NewInstruction().AsCall(Local("divmod"), []Value{arg}, []Type{TypeI32, TypeI32}, b)
		b.Insert(call)
		first, rest := call.Returns()
		b.Insert(b.NewInstruction().AsReturn([]Value{first, rest[0]}))
		return fn
	}
	want := build().Format()

	got, err := Parse(want)
	require.NoError(t, err)
	require.Equal(t, want, got.Format())
}

func TestParse_TrapAndExternalCall(t *testing.T) {
	build := func() *Function {
		fn := NewFunction("guarded", &Signature{Params: []Type{TypeI32}, Results: []Type{TypeI32}})
		b := NewBuilder(fn)
		arg := fn.EntryBlock().Param(0)
		b.Insert(b.NewInstruction().AsTrapz(arg, TrapCodeIntegerDivisionByZero))
		call := b.NewInstruction().AsCall(External("host_log"), []Value{arg}, []Type{TypeI32}, b)
		b.Insert(call)
		b.Insert(b.NewInstruction().AsReturn([]Value{call.Return()}))
		return fn
	}
	want := build().Format()

	got, err := Parse(want)
	require.NoError(t, err)
	require.Equal(t, want, got.Format())
}

func TestParse_RejectsUndefinedValue(t *testing.T) {
	src := "function %f(i32) {\nblock0(v0:i32):\n    return v7\n}"
	_, err := Parse(src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined value")
}

func TestParse_RejectsMissingClosingBrace(t *testing.T) {
	src := "function %f(i32) {\nblock0(v0:i32):\n    return v0"
	_, err := Parse(src)
	require.Error(t, err)
}
