package backend

import "github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"

// FrameLayout computes the contiguous, stack-descending regions of a
// function's activation record, per spec.md §4.7:
//
//	tail-args area (caller-owned, reserved by this function as a caller)
//	setup area     (saved FP + RA, 8 bytes when present)
//	clobber area   (saved callee-saved regs, 4B each, 16-aligned)
//	spill slots    (from regalloc, 4B each, 16-aligned)
//	outgoing args  (covered by tail-args)
type FrameLayout struct {
	IncomingArgsSize int64
	OutgoingArgsSize int64
	// MaxCalleeStackReturnArea is the largest stack-passed return area any
	// call site in this function requires of its callee.
	MaxCalleeStackReturnArea int64
	// StackReturnArea is this function's own stack-passed return size.
	StackReturnArea int64

	HasCalls   bool
	Clobbered  []regalloc.RealReg
	SpillSlots int
	// LocalsSize is the combined, already-4-aligned byte size of every
	// stackalloc local lowering reserved in this function (spec.md §4.5's
	// "SP adjustment recorded in frame" rule for stackalloc). Locals start
	// right after the last spill slot (at higher SP offsets) in the fixed
	// frame storage region.
	LocalsSize int64

	TailArgsSize         int64
	SetupAreaSize        int64
	ClobberAreaSize      int64
	FixedFrameStorage    int64
	OutgoingArgsAligned  int64
	TotalFrameAdjustment int64
	ExtraTailAdjustment  int64
}

// Compute fills in the derived fields from the inputs already set on f,
// following spec.md §4.7's formulas, with the total rounded up to a
// multiple of 16 (the padding sits between the clobber and setup areas).
func (f *FrameLayout) Compute() {
	f.TailArgsSize = max3(
		f.IncomingArgsSize,
		f.OutgoingArgsSize+f.MaxCalleeStackReturnArea,
		f.StackReturnArea,
	)

	if f.HasCalls || len(f.Clobbered) > 0 || f.SpillSlots > 0 {
		f.SetupAreaSize = 8
	}

	f.ClobberAreaSize = align16(4 * int64(len(f.Clobbered)))
	f.FixedFrameStorage = align16(4*int64(f.SpillSlots) + f.LocalsSize)
	f.OutgoingArgsAligned = align16(max0((f.maxOutgoingWords() - 8) * 4))

	f.TotalFrameAdjustment = align16(f.SetupAreaSize + f.ClobberAreaSize + f.FixedFrameStorage + f.OutgoingArgsAligned)
	f.ExtraTailAdjustment = max0(f.TailArgsSize - f.IncomingArgsSize)
}

// SetupAreaOffset returns the setup area's (saved ra/fp) byte offset from
// the post-prologue SP.
func (f *FrameLayout) SetupAreaOffset() int64 { return f.TotalFrameAdjustment - f.SetupAreaSize }

// ClobberAreaOffset returns the saved-callee-saved-registers area's byte
// offset from the post-prologue SP.
func (f *FrameLayout) ClobberAreaOffset() int64 { return f.OutgoingArgsAligned + f.FixedFrameStorage }

// SpillAreaOffset returns the spill-slots-and-locals area's byte offset
// from the post-prologue SP; spill slot i lives at SpillAreaOffset()+4*i,
// and the locals sub-region starts immediately after the last spill slot
// (see vcode.Code.LocalOffset).
func (f *FrameLayout) SpillAreaOffset() int64 { return f.OutgoingArgsAligned }

// maxOutgoingWords approximates the largest outgoing-argument word count
// from OutgoingArgsSize (already byte-sized); the -8 in the spec formula
// subtracts the 8 integer argument registers before the stack overflow
// area begins.
func (f *FrameLayout) maxOutgoingWords() int64 {
	return f.OutgoingArgsSize / 4
}

func max0(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func max3(a, b, c int64) int64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
