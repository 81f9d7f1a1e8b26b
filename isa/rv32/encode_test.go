package rv32

import "testing"

import "github.com/stretchr/testify/require"

func TestEncAdd_KnownBitPattern(t *testing.T) {
	// add a0, a1, a2 -> rd=10, rs1=11, rs2=12
	got := encAdd(10, 11, 12)
	require.Equal(t, uint32(0b0000000_01100_01011_000_01010_0110011), got)
}

func TestEncAddI_NegativeImmediate(t *testing.T) {
	got := encAddI(5, 0, -1)
	want := encodeI(-1, 0, 0b000, 5, opcodeOpImm)
	require.Equal(t, want, got)
	require.Equal(t, uint32(0xfff), got>>20) // imm field is all-ones for -1
}

func TestSplitHiLo20_RoundTrips(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2047, 2048, -2048, -2049, 0x12345678 - (1 << 31)} {
		hi, lo := splitHiLo20(v)
		require.True(t, fitsI12(lo))
		got := int32(hi<<12) + lo
		require.Equal(t, v, got)
	}
}

func TestFitsI12(t *testing.T) {
	require.True(t, fitsI12(2047))
	require.True(t, fitsI12(-2048))
	require.False(t, fitsI12(2048))
	require.False(t, fitsI12(-2049))
}

func TestEncJAL_RoundTripsOffset(t *testing.T) {
	got := encJAL(1, 4) // jal ra, +4
	require.Equal(t, uint32(opcodeJAL), got&0x7f)
	require.Equal(t, uint32(1), (got>>7)&0x1f)
	require.Equal(t, uint32(4), ((got>>21)&0x3ff)<<1) // imm[10:1] carries the +4 offset
}
