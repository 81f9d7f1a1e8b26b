// Package rv32 implements the RV32IMAC backend ISA: the machine
// instruction representation, the LPIR lowering table, the register
// allocator adapter, prologue/epilogue construction and streaming
// emission (spec.md §4.5-§4.9). Grounded on the teacher's
// backend/isa/arm64 package, retargeted to a single integer register
// file. It emits only 32-bit base (RV32I) and M-extension instruction
// encodings; no A or C instructions are produced.
package rv32

import "github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"

// Real register numbers, per the standard RISC-V integer ABI names
// (spec.md §4.7's ABI facts table).
const (
	RegZero regalloc.RealReg = iota // x0, hardwired zero
	RegRA                           // x1, return address
	RegSP                           // x2, stack pointer
	RegGP                           // x3, global pointer
	RegTP                           // x4, thread pointer
	RegT0                           // x5
	RegT1                           // x6
	RegT2                           // x7
	RegS0                           // x8, frame pointer (fp)
	RegS1                           // x9
	RegA0                           // x10
	RegA1                           // x11
	RegA2                           // x12
	RegA3                           // x13
	RegA4                           // x14
	RegA5                           // x15
	RegA6                           // x16
	RegA7                           // x17
	RegS2                           // x18
	RegS3                           // x19
	RegS4                           // x20
	RegS5                           // x21
	RegS6                           // x22
	RegS7                           // x23
	RegS8                           // x24
	RegS9                           // x25
	RegS10                          // x26
	RegS11                          // x27
	RegT3                           // x28
	RegT4                           // x29
	RegT5                           // x30
	RegT6                           // x31
)

// RegFP is the alias s0 takes on when used as a frame pointer.
const RegFP = RegS0

// RegScratch is the register the register allocator reserves for spill
// and reload traffic; never included in available or callerSaved.
const RegScratch = RegT6

var regNames = [32]string{
	RegZero: "zero", RegRA: "ra", RegSP: "sp", RegGP: "gp", RegTP: "tp",
	RegT0: "t0", RegT1: "t1", RegT2: "t2", RegS0: "s0", RegS1: "s1",
	RegA0: "a0", RegA1: "a1", RegA2: "a2", RegA3: "a3", RegA4: "a4",
	RegA5: "a5", RegA6: "a6", RegA7: "a7",
	RegS2: "s2", RegS3: "s3", RegS4: "s4", RegS5: "s5", RegS6: "s6",
	RegS7: "s7", RegS8: "s8", RegS9: "s9", RegS10: "s10", RegS11: "s11",
	RegT3: "t3", RegT4: "t4", RegT5: "t5", RegT6: "t6",
}

// RegName returns r's ABI name (e.g. "a0", "s1").
func RegName(r regalloc.RealReg) string {
	if int(r) < len(regNames) && regNames[r] != "" {
		return regNames[r]
	}
	return "x?"
}

// argRegs are the 8 integer argument/result-carrying registers, in
// calling order (spec.md §4.7).
var argRegs = []regalloc.RealReg{RegA0, RegA1, RegA2, RegA3, RegA4, RegA5, RegA6, RegA7}

// resultRegs are the integer result registers for <=2 return values.
var resultRegs = []regalloc.RealReg{RegA0, RegA1}

// calleeSavedRegs are preserved across calls by the callee.
var calleeSavedRegs = []regalloc.RealReg{
	RegS0, RegS1, RegS2, RegS3, RegS4, RegS5, RegS6,
	RegS7, RegS8, RegS9, RegS10, RegS11,
}

// callerSavedRegs are clobbered by any call; a live value in one of these
// must be moved or spilled across a call site (spec.md §4.6 property 2).
var callerSavedRegs = []regalloc.RealReg{
	RegA0, RegA1, RegA2, RegA3, RegA4, RegA5, RegA6, RegA7,
	RegT0, RegT1, RegT2, RegT3, RegT4, RegT5, RegRA,
}

// allocatableRegs are every register the register allocator may assign to
// a VReg: every caller- or callee-saved integer register except the
// reserved scratch register and the registers with fixed hardware roles
// (zero, sp, gp, tp, ra, fp). RegFP is excluded unconditionally, not just
// when a given function turns out to need the setup area: whether the
// setup area is needed is only known after allocation finishes (it
// depends on the allocator's own clobber/spill decisions), so fp must be
// off-limits to the scan from the start, the same way ra always is.
var allocatableRegs = func() []regalloc.RealReg {
	var out []regalloc.RealReg
	out = append(out, callerSavedRegs...)
	out = append(out, calleeSavedRegs...)
	filtered := out[:0]
	for _, r := range out {
		if r == RegRA || r == RegScratch || r == RegFP {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}()

// RegInfo implements backend.FunctionABIRegInfo for RV32.
type RegInfo struct{}

// ArgRegs implements backend.FunctionABIRegInfo.
func (RegInfo) ArgRegs() []regalloc.RealReg { return argRegs }

// ResultRegs implements backend.FunctionABIRegInfo.
func (RegInfo) ResultRegs() []regalloc.RealReg { return resultRegs }

// AvailableRegisters returns the RegSet the register allocator may choose
// from.
func AvailableRegisters() regalloc.RegSet { return regalloc.NewRegSet(allocatableRegs...) }

// CallerSavedRegisters returns the RegSet clobbered across any call.
func CallerSavedRegisters() regalloc.RegSet { return regalloc.NewRegSet(callerSavedRegs...) }

// CalleeSavedRegisters returns the RegSet the ABI requires the callee to
// preserve, used by the clobber-set/frame-layout computation (spec.md
// §4.7).
func CalleeSavedRegisters() regalloc.RegSet { return regalloc.NewRegSet(calleeSavedRegs...) }

// IsCalleeSaved reports whether r is in the callee-saved set.
func IsCalleeSaved(r regalloc.RealReg) bool {
	for _, c := range calleeSavedRegs {
		if c == r {
			return true
		}
	}
	return false
}
