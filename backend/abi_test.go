package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/backend"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
)

type fakeRegInfo struct{}

func (fakeRegInfo) ArgRegs() []regalloc.RealReg {
	return []regalloc.RealReg{10, 11, 12, 13, 14, 15, 16, 17} // a0..a7
}
func (fakeRegInfo) ResultRegs() []regalloc.RealReg {
	return []regalloc.RealReg{10, 11} // a0, a1
}

func TestFunctionABI_AllArgsInRegisters(t *testing.T) {
	sig := &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}
	abi := backend.NewFunctionABI[fakeRegInfo](fakeRegInfo{}, sig)

	require.False(t, abi.NeedsReturnArea)
	require.Len(t, abi.Args, 2)
	require.Equal(t, backend.ABIArgKindReg, abi.Args[0].Kind)
	require.Equal(t, backend.ABIArgKindReg, abi.Args[1].Kind)
	require.Equal(t, int64(0), abi.ArgStackSize)
}

func TestFunctionABI_ExtraArgsSpillToStack(t *testing.T) {
	params := make([]ir.Type, 10)
	for i := range params {
		params[i] = ir.TypeI32
	}
	sig := &ir.Signature{Params: params, Results: []ir.Type{ir.TypeI32}}
	abi := backend.NewFunctionABI[fakeRegInfo](fakeRegInfo{}, sig)

	require.Equal(t, backend.ABIArgKindReg, abi.Args[7].Kind)
	require.Equal(t, backend.ABIArgKindStack, abi.Args[8].Kind)
	require.Equal(t, backend.ABIArgKindStack, abi.Args[9].Kind)
	require.Greater(t, abi.ArgStackSize, int64(0))
}

func TestFunctionABI_ThreeResultsNeedReturnArea(t *testing.T) {
	sig := &ir.Signature{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32, ir.TypeI32, ir.TypeI32}}
	abi := backend.NewFunctionABI[fakeRegInfo](fakeRegInfo{}, sig)

	require.True(t, abi.NeedsReturnArea)
	require.True(t, abi.ReturnAreaReg.IsRealReg())
	require.Equal(t, regalloc.RealReg(10), abi.ReturnAreaReg.RealReg())
	// The real parameter shifts into a1 since a0 now carries the return
	// area pointer.
	require.Equal(t, regalloc.RealReg(11), abi.Args[0].Reg.RealReg())
}
