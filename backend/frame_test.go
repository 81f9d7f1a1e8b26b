package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/backend"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
)

func TestFrameLayout_LeafNoSpillsNoSetup(t *testing.T) {
	f := &backend.FrameLayout{IncomingArgsSize: 0, OutgoingArgsSize: 0}
	f.Compute()

	require.Equal(t, int64(0), f.SetupAreaSize)
	require.Equal(t, int64(0), f.ClobberAreaSize)
	require.Equal(t, int64(0), f.FixedFrameStorage)
	require.Equal(t, int64(0), f.TotalFrameAdjustment)
}

func TestFrameLayout_SpillsForceSetupArea(t *testing.T) {
	f := &backend.FrameLayout{SpillSlots: 2}
	f.Compute()

	require.Equal(t, int64(8), f.SetupAreaSize)
	require.Equal(t, int64(16), f.FixedFrameStorage) // 2*4=8, aligned to 16
}

func TestFrameLayout_ClobberedRegistersAreCounted(t *testing.T) {
	f := &backend.FrameLayout{Clobbered: []regalloc.RealReg{9, 18, 19}}
	f.Compute()

	require.Equal(t, int64(16), f.ClobberAreaSize) // 3*4=12, aligned to 16
	require.Equal(t, int64(8), f.SetupAreaSize)
}

func TestFrameLayout_TotalIs16Aligned(t *testing.T) {
	f := &backend.FrameLayout{SpillSlots: 1, Clobbered: []regalloc.RealReg{9}, HasCalls: true}
	f.Compute()

	require.Equal(t, int64(0), f.TotalFrameAdjustment%16)
}

func TestFrameLayout_TailArgsTakesTheMax(t *testing.T) {
	f := &backend.FrameLayout{IncomingArgsSize: 4, OutgoingArgsSize: 20, MaxCalleeStackReturnArea: 8}
	f.Compute()

	require.Equal(t, int64(28), f.TailArgsSize) // max(4, 20+8, 0)
	require.Equal(t, int64(24), f.ExtraTailAdjustment)
}
