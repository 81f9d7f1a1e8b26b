package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/compiler"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
)

// requireValidModule checks the frame/code invariants spec.md §8 names for
// every compiled function, regardless of scenario.
func requireValidModule(t *testing.T, mod *compiler.Module) {
	t.Helper()
	require.NotNil(t, mod)
	for _, fn := range mod.Functions {
		require.Zero(t, fn.FrameSize%16, "function %s: frame size %d not 16-aligned", fn.Name, fn.FrameSize)
	}
	require.Zero(t, len(mod.Code)%4, "code buffer length must be a whole number of words")
}

// TestCompile_Add covers spec.md §8 scenario 1: iadd v0, v1; return.
func TestCompile_Add(t *testing.T) {
	fn := ir.NewFunction("add", &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	add := b.NewInstruction().AsIadd(entry.Param(0), entry.Param(1), b)
	b.Insert(add)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{add.Return()}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
	require.Len(t, mod.Functions, 1)
	require.Equal(t, int64(0), mod.Functions[0].FrameSize, "a leaf function with no spills/clobbers/calls needs no frame")
}

// TestCompile_Max covers spec.md §8 scenario 2: icmp sgt, br, then/else.
func TestCompile_Max(t *testing.T) {
	fn := ir.NewFunction("max", &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	v0, v1 := entry.Param(0), entry.Param(1)
	thenBlk := b.CreateBlock()
	elseBlk := b.CreateBlock()
	cmp := b.NewInstruction().AsIcmp(v0, v1, ir.IntCCSignedGreaterThan, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsBr(cmp.Return(), thenBlk, nil, elseBlk, nil))
	b.SetCurrentBlock(thenBlk)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{v0}))
	b.SetCurrentBlock(elseBlk)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{v1}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
}

// TestCompile_FactorialLoop covers spec.md §8 scenario 3: a loop body
// using imul with a block-parameter accumulator, exercising edge-block
// moves and callee-saved register usage across the back edge.
func TestCompile_FactorialLoop(t *testing.T) {
	fn := ir.NewFunction("factorial", &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	n := fn.EntryBlock().Param(0)

	loop := b.CreateBlock()
	accParam := loop.AddParam(fn, ir.TypeI32)
	nParam := loop.AddParam(fn, ir.TypeI32)
	done := b.CreateBlock()
	done.AddParam(fn, ir.TypeI32)

	one := b.NewInstruction().AsIconst32(1, ir.TypeI32, b)
	b.Insert(one)
	b.Insert(b.NewInstruction().AsJump([]ir.Value{one.Return(), n}, loop))

	b.SetCurrentBlock(loop)
	zero := b.NewInstruction().AsIconst32(0, ir.TypeI32, b)
	b.Insert(zero)
	cmp := b.NewInstruction().AsIcmp(nParam, zero.Return(), ir.IntCCSignedGreaterThan, b)
	b.Insert(cmp)
	mul := b.NewInstruction().AsImul(accParam, nParam, b)
	b.Insert(mul)
	decBy := b.NewInstruction().AsIconst32(1, ir.TypeI32, b)
	b.Insert(decBy)
	dec := b.NewInstruction().AsIsub(nParam, decBy.Return(), b)
	b.Insert(dec)
	b.Insert(b.NewInstruction().AsBr(cmp.Return(), loop, []ir.Value{mul.Return(), dec.Return()}, done, []ir.Value{accParam}))

	b.SetCurrentBlock(done)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{done.Param(0)}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
}

// TestCompile_FixedPointMul covers spec.md §8 scenario 4: 0.5*0.25
// compiled through the float-to-fixed rewrite before lowering.
// TestRun_FmulLowersToFourInstructionsPlusOr in the fixedpoint package
// already checks which integer opcodes the rewrite emits; this test only
// confirms the rewritten function survives the rest of the pipeline.
func TestCompile_FixedPointMul(t *testing.T) {
	fn := ir.NewFunction("fixed_mul", &ir.Signature{Results: []ir.Type{ir.TypeF32}})
	b := ir.NewBuilder(fn)
	x := b.NewInstruction().AsFconst32(0.5, b)
	b.Insert(x)
	y := b.NewInstruction().AsFconst32(0.25, b)
	b.Insert(y)
	mul := b.NewInstruction().AsFmul(x.Return(), y.Return(), b)
	b.Insert(mul)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{mul.Return()}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
}

// TestCompile_MultiReturnThree covers spec.md §8 scenario 5: a
// three-result function, which needs the caller-supplied return-area
// pointer (backend.FunctionABI.NeedsReturnArea).
func TestCompile_MultiReturnThree(t *testing.T) {
	fn := ir.NewFunction("split3", &ir.Signature{
		Params:  []ir.Type{ir.TypeI32, ir.TypeI32},
		Results: []ir.Type{ir.TypeI32, ir.TypeI32, ir.TypeI32},
	})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	a, c := entry.Param(0), entry.Param(1)
	sum := b.NewInstruction().AsIadd(a, c, b)
	b.Insert(sum)
	diff := b.NewInstruction().AsIsub(a, c, b)
	b.Insert(diff)
	prod := b.NewInstruction().AsImul(a, c, b)
	b.Insert(prod)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{sum.Return(), diff.Return(), prod.Return()}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
}

// TestCompile_CrossBlockValueUse covers spec.md §8 scenario 6: a value
// defined in block0 consumed directly in block3, with no intervening
// block parameter threading it through — legal under dominance-scoped IR.
func TestCompile_CrossBlockValueUse(t *testing.T) {
	fn := ir.NewFunction("cross_block", &ir.Signature{Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	block1 := b.CreateBlock()
	block2 := b.CreateBlock()
	block3 := b.CreateBlock()

	v := b.NewInstruction().AsIconst32(42, ir.TypeI32, b)
	b.Insert(v)
	b.Insert(b.NewInstruction().AsJump(nil, block1))

	b.SetCurrentBlock(block1)
	b.Insert(b.NewInstruction().AsJump(nil, block2))

	b.SetCurrentBlock(block2)
	b.Insert(b.NewInstruction().AsJump(nil, block3))

	b.SetCurrentBlock(block3)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{v.Return()}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
}

// TestCompile_MultiFunctionLocalCall exercises relocation resolution
// against another function in the same module (spec.md §4.8/§4.9): a
// program with more than one function, and at least one call.
func TestCompile_MultiFunctionLocalCall(t *testing.T) {
	callee := ir.NewFunction("increment", &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	{
		b := ir.NewBuilder(callee)
		one := b.NewInstruction().AsIconst32(1, ir.TypeI32, b)
		b.Insert(one)
		add := b.NewInstruction().AsIadd(callee.EntryBlock().Param(0), one.Return(), b)
		b.Insert(add)
		b.Insert(b.NewInstruction().AsReturn([]ir.Value{add.Return()}))
	}

	caller := ir.NewFunction("call_increment", &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	{
		b := ir.NewBuilder(caller)
		call := b.NewInstruction().AsCall(ir.Local("increment"), []ir.Value{caller.EntryBlock().Param(0)}, []ir.Type{ir.TypeI32}, b)
		b.Insert(call)
		b.Insert(b.NewInstruction().AsReturn([]ir.Value{call.Return()}))
	}

	mod, err := compiler.Compile([]*ir.Function{callee, caller}, nil, compiler.Options{})
	require.NoError(t, err)
	requireValidModule(t, mod)
	require.Empty(t, mod.Unresolved)
	require.Len(t, mod.Functions, 2)
	require.Equal(t, int64(0), mod.Functions[0].Offset)
	require.Greater(t, mod.Functions[1].Offset, int64(0))
}

// TestCompile_UnresolvedExternalCall confirms an External symbol the
// caller never supplies an address for comes back as Unresolved instead
// of failing the whole compile (spec.md §6: "list of unresolved external
// relocations" is part of the core's output, not a hard error).
func TestCompile_UnresolvedExternalCall(t *testing.T) {
	fn := ir.NewFunction("guarded", &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	arg := fn.EntryBlock().Param(0)
	b.Insert(b.NewInstruction().AsTrapz(arg, ir.TrapCodeIntegerDivisionByZero))
	call := b.NewInstruction().AsCall(ir.External("host_log"), []ir.Value{arg}, []ir.Type{ir.TypeI32}, b)
	b.Insert(call)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{call.Return()}))

	mod, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.NoError(t, err)
	require.Len(t, mod.Unresolved, 1)
	require.Equal(t, "host_log", mod.Unresolved[0].Relocation.Symbol.Name)
}

// TestCompile_ResolvedExternalCall confirms supplying the address the
// harness owns resolves the same relocation cleanly.
func TestCompile_ResolvedExternalCall(t *testing.T) {
	fn := ir.NewFunction("guarded", &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	arg := fn.EntryBlock().Param(0)
	call := b.NewInstruction().AsCall(ir.External("host_log"), []ir.Value{arg}, []ir.Type{ir.TypeI32}, b)
	b.Insert(call)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{call.Return()}))

	mod, err := compiler.Compile([]*ir.Function{fn}, map[string]uint32{"host_log": 0x1000}, compiler.Options{})
	require.NoError(t, err)
	require.Empty(t, mod.Unresolved)
}

// TestCompile_VerifyErrorPropagates confirms a malformed function (a use
// with no reaching definition) is reported as a compile error rather than
// panicking through the pipeline.
func TestCompile_VerifyErrorPropagates(t *testing.T) {
	fn := ir.NewFunction("broken", &ir.Signature{Results: []ir.Type{ir.TypeI32}})
	b := ir.NewBuilder(fn)
	block1 := b.CreateBlock()
	b.Insert(b.NewInstruction().AsJump(nil, block1))
	b.SetCurrentBlock(block1)
	undefined := ir.Value(0)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{undefined}))

	_, err := compiler.Compile([]*ir.Function{fn}, nil, compiler.Options{})
	require.Error(t, err)
}
