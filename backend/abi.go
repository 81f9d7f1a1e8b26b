// Package backend computes the RV32 ABI argument/result assignment and
// the stack frame layout lowering and emission build on (spec.md §4.7).
// Grounded on the teacher's backend/abi.go, narrowed to a single integer
// register file (RV32 has no FPU) and extended with the >2-result return
// area rule spec.md §4.7 calls for.
package backend

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
)

// FunctionABIRegInfo is implemented by an ISA to tell FunctionABI which
// physical registers carry arguments and results.
type FunctionABIRegInfo interface {
	// ArgRegs returns the integer argument registers, in calling order.
	ArgRegs() []regalloc.RealReg
	// ResultRegs returns the integer result registers, in calling order.
	ResultRegs() []regalloc.RealReg
}

// ABIArgKind is the kind of ABI argument.
type ABIArgKind byte

const (
	// ABIArgKindReg represents an argument passed in a register.
	ABIArgKindReg ABIArgKind = iota
	// ABIArgKindStack represents an argument passed on the stack.
	ABIArgKindStack
)

// String implements fmt.Stringer.
func (k ABIArgKind) String() string {
	switch k {
	case ABIArgKindReg:
		return "reg"
	case ABIArgKindStack:
		return "stack"
	default:
		panic("invalid ABIArgKind")
	}
}

// ABIArg is one argument or result's location.
type ABIArg struct {
	Index  int
	Kind   ABIArgKind
	Reg    regalloc.VReg // valid if Kind == ABIArgKindReg
	Offset int64         // valid if Kind == ABIArgKindStack, relative to the arg/ret area's base
	Type   ir.Type
}

// String implements fmt.Stringer.
func (a *ABIArg) String() string {
	return fmt.Sprintf("args[%d]: %s", a.Index, a.Kind)
}

// FunctionABI computes the register/stack assignment for a signature
// under the RV32 calling convention (spec.md §4.7): up to 8 integer
// argument registers and up to 2 integer result registers; a return
// arity greater than 2 requires the caller to pass a pointer to a return
// area as an implicit first argument, shifting every other argument into
// the next register.
type FunctionABI[R FunctionABIRegInfo] struct {
	regs R

	Args, Rets                 []ABIArg
	ArgStackSize, RetStackSize int64

	// NeedsReturnArea reports whether this signature's results don't fit
	// in the result registers and so need the implicit return-area
	// pointer argument.
	NeedsReturnArea bool
	// ReturnAreaReg is the argument register carrying the return-area
	// pointer, valid only if NeedsReturnArea.
	ReturnAreaReg regalloc.VReg
}

// NewFunctionABI computes the ABI assignment for sig.
func NewFunctionABI[R FunctionABIRegInfo](regs R, sig *ir.Signature) *FunctionABI[R] {
	a := &FunctionABI[R]{regs: regs}
	a.init(sig)
	return a
}

const stackSlotSize = 4 // RV32: every slot is a 32-bit word.

func (a *FunctionABI[R]) init(sig *ir.Signature) {
	argRegs := a.regs.ArgRegs()
	resultRegs := a.regs.ResultRegs()

	a.NeedsReturnArea = sig.NeedsReturnArea()

	a.Rets = make([]ABIArg, len(sig.Results))
	a.RetStackSize = assignArgs(a.Rets, sig.Results, resultRegs)

	argStart := 0
	if a.NeedsReturnArea {
		a.ReturnAreaReg = regalloc.FromRealReg(argRegs[0], regalloc.RegTypeInt)
		argStart = 1
	}
	a.Args = make([]ABIArg, len(sig.Params))
	a.ArgStackSize = assignArgs(a.Args, sig.Params, argRegs[argStart:])
}

func assignArgs(out []ABIArg, types []ir.Type, regs []regalloc.RealReg) (stackSize int64) {
	var offset int64
	regIdx := 0
	for i, typ := range types {
		arg := &out[i]
		arg.Index = i
		arg.Type = typ
		if regIdx < len(regs) {
			arg.Kind = ABIArgKindReg
			arg.Reg = regalloc.FromRealReg(regs[regIdx], regalloc.RegTypeInt)
			regIdx++
		} else {
			arg.Kind = ABIArgKindStack
			arg.Offset = offset
			offset += stackSlotSize
		}
	}
	return offset
}

// AlignedArgResultStackSlotSize returns the combined argument and result
// stack area size, 16-byte aligned per spec.md §4.7's stack alignment
// rule.
func (a *FunctionABI[R]) AlignedArgResultStackSlotSize() int64 {
	total := a.ArgStackSize + a.RetStackSize
	return align16(total)
}

func align16(n int64) int64 { return (n + 15) &^ 15 }
