package fixedpoint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/fixedpoint"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/verify"
)

func buildFloatMul(t *testing.T) *ir.Function {
	t.Helper()
	fn := ir.NewFunction("fmul", &ir.Signature{Params: []ir.Type{ir.TypeF32, ir.TypeF32}, Results: []ir.Type{ir.TypeF32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	mul := b.NewInstruction().AsFmul(entry.Param(0), entry.Param(1), b)
	b.Insert(mul)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{mul.Return()}))
	require.NoError(t, verify.Function(fn))
	return fn
}

func TestHasFloat(t *testing.T) {
	fn := buildFloatMul(t)
	require.True(t, fixedpoint.HasFloat(fn))

	intFn := ir.NewFunction("iadd", &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}})
	require.False(t, fixedpoint.HasFloat(intFn))
}

func TestRun_SignatureRewrittenToI32(t *testing.T) {
	fn := buildFloatMul(t)
	out, err := fixedpoint.Run(fn)
	require.NoError(t, err)
	require.False(t, fixedpoint.HasFloat(out))
	for _, ty := range out.Sig.Params {
		require.Equal(t, ir.TypeI32, ty)
	}
	for _, ty := range out.Sig.Results {
		require.Equal(t, ir.TypeI32, ty)
	}
}

func TestRun_FmulLowersToFourInstructionsPlusOr(t *testing.T) {
	fn := buildFloatMul(t)
	out, err := fixedpoint.Run(fn)
	require.NoError(t, err)

	entry := out.EntryBlock()
	var opcodes []ir.Opcode
	for _, instr := range entry.Instructions() {
		opcodes = append(opcodes, instr.Opcode())
	}
	require.Contains(t, opcodes, ir.OpcodeImulh)
	require.Contains(t, opcodes, ir.OpcodeImul)
	require.Contains(t, opcodes, ir.OpcodeIshl)
	require.Contains(t, opcodes, ir.OpcodeIshr)
	require.Contains(t, opcodes, ir.OpcodeIor)
}

func TestRun_FconstRounds(t *testing.T) {
	fn := ir.NewFunction("fconst", &ir.Signature{Results: []ir.Type{ir.TypeF32}})
	b := ir.NewBuilder(fn)
	c := b.NewInstruction().AsFconst32(1.5, b)
	b.Insert(c)
	b.Insert(b.NewInstruction().AsReturn([]ir.Value{c.Return()}))
	require.NoError(t, verify.Function(fn))

	out, err := fixedpoint.Run(fn)
	require.NoError(t, err)

	entry := out.EntryBlock()
	instrs := entry.Instructions()
	require.Equal(t, ir.OpcodeIconst, instrs[0].Opcode())
	require.Equal(t, uint32(1.5*65536), instrs[0].IconstValue())
}

func TestRun_FcmpUnorderedCollapsesToConstant(t *testing.T) {
	fn := ir.NewFunction("fcmp", &ir.Signature{Params: []ir.Type{ir.TypeF32, ir.TypeF32}})
	b := ir.NewBuilder(fn)
	entry := fn.EntryBlock()
	cmp := b.NewInstruction().AsFcmp(entry.Param(0), entry.Param(1), ir.FloatCCUnordered, b)
	b.Insert(cmp)
	b.Insert(b.NewInstruction().AsReturn(nil))
	require.NoError(t, verify.Function(fn))

	out, err := fixedpoint.Run(fn)
	require.NoError(t, err)

	entryOut := out.EntryBlock()
	require.Equal(t, ir.OpcodeIconst, entryOut.Instructions()[0].Opcode())
	require.Equal(t, uint32(0), entryOut.Instructions()[0].IconstValue())
}
