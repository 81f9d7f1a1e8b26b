// Package compiler is the ahead-of-time entry point tying every pass
// together: verification, the optional float-to-fixed rewrite, RV32
// lowering, register allocation, prologue/epilogue construction, emission
// and whole-module relocation linking (spec.md §2's pipeline diagram).
// Grounded structurally on how wazero's
// internal/engine/wazevo/engine.go sequences frontend → ssa passes →
// backend per function, reduced to this spec's narrower, no-wasm-module,
// no-JIT-mmap scope.
package compiler

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/backend"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/fixedpoint"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/isa/rv32"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/symbol"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/verify"
)

// Options parameterizes compilation, mirroring the teacher's
// backend.Machine.DisableStackCheck() pattern of a small value-typed
// knob struct rather than a config file or flags package (there is no
// CLI in this spec's scope).
type Options struct {
	// DisableStackCheck skips inserting a stack-overflow guard trap at
	// entry. Reserved for a future stack-bounds check; this backend does
	// not currently emit one regardless of this flag's value, since
	// spec.md's runtime/VM interface leaves stack setup to the harness.
	DisableStackCheck bool
}

// FunctionInfo is one compiled function's entry in a Module, satisfying
// spec.md §6's "symbol name → code offset... stack/frame size" part of
// the runtime/VM interface.
type FunctionInfo struct {
	Name      string
	Offset    int64
	FrameSize int64
}

// Module is the linked output of Compile: one flat code buffer plus the
// per-function bookkeeping and any relocation the symbol table couldn't
// resolve (spec.md §6).
type Module struct {
	Code       []byte
	Functions  []FunctionInfo
	Unresolved []rv32.Unresolved
}

// Compile verifies, lowers, allocates, emits and links every function in
// fns into one Module. externals supplies the runtime-provided address
// for every External symbol fns may call (e.g. a host logging function);
// a Local call target is resolved against the other functions in fns
// instead, with no need for a caller to predeclare it.
//
// Every function is compiled independently (spec.md §5: "only the symbol
// table is shared across functions") before the single Link pass at the
// end ties them together, so one function's lowering never observes
// another's VCode or allocation state.
func Compile(fns []*ir.Function, externals map[string]uint32, opts Options) (*Module, error) {
	table := symbol.New()
	for name, addr := range externals {
		table.DefineExternal(name, addr)
	}

	compiled := make([]rv32.CompiledFunction, len(fns))
	frameSizes := make([]int64, len(fns))
	for i, fn := range fns {
		cf, frameSize, err := compileFunction(fn, opts)
		if err != nil {
			return nil, err
		}
		compiled[i] = cf
		frameSizes[i] = frameSize
	}

	code, unresolved := rv32.Link(compiled, table)

	functions := make([]FunctionInfo, len(fns))
	for i, cf := range compiled {
		offset, _, ok := table.Lookup(ir.Local(cf.Name))
		if !ok {
			panic(fmt.Sprintf("compiler: %s: Link did not define its own local symbol", cf.Name))
		}
		functions[i] = FunctionInfo{Name: cf.Name, Offset: offset, FrameSize: frameSizes[i]}
	}

	return &Module{Code: code, Functions: functions, Unresolved: unresolved}, nil
}

// compileFunction runs one function through verify → (optional)
// fixedpoint → lowering → register allocation → prologue/epilogue →
// emission, stopping short of relocation resolution (Compile's Link call
// handles every function together, once every offset is known).
func compileFunction(fn *ir.Function, opts Options) (rv32.CompiledFunction, int64, error) {
	_ = opts // no per-function knob currently changes codegen; see Options.

	if err := verify.Function(fn); err != nil {
		return rv32.CompiledFunction{}, 0, fmt.Errorf("compiler: %s: %w", fn.Name, err)
	}

	target := fn
	if fixedpoint.HasFloat(fn) {
		rewritten, err := fixedpoint.Run(fn)
		if err != nil {
			return rv32.CompiledFunction{}, 0, fmt.Errorf("compiler: %s: fixed-point rewrite: %w", fn.Name, err)
		}
		target = rewritten
	}

	cfg := ir.ComputeCFG(target)
	code, abi := rv32.Lower(target, cfg)

	alloc := regalloc.NewAllocator(rv32.AvailableRegisters(), rv32.CallerSavedRegisters(), rv32.RegScratch)
	alloc.Allocate(rv32.NewFunction(code))

	frame := buildFrameLayout(code, abi)
	rv32.SetupPrologue(code, frame)
	rv32.SetupEpilogue(code, frame)

	out := rv32.Emit(code, frame)

	return rv32.CompiledFunction{
		Name:        fn.Name,
		Code:        out,
		Relocations: code.Relocations,
		FrameSize:   frame.TotalFrameAdjustment,
	}, frame.TotalFrameAdjustment, nil
}

// buildFrameLayout assembles a FrameLayout from what lowering and
// allocation already know about the function (spec.md §4.7): the ABI's
// own incoming-argument stack usage, the allocator's clobbered
// callee-saved registers and spill slot count, and the locals lowering
// reserved for stackalloc. Outgoing-argument stack usage and a callee's
// stack-passed return area never arise here, since lowerCall already
// refuses call sites needing either (isa/rv32/lower.go).
func buildFrameLayout(code *vcode.Code[*rv32.Instr], abi *backend.FunctionABI[rv32.RegInfo]) *backend.FrameLayout {
	hasCalls := false
	for _, blk := range code.Blocks() {
		for _, instr := range blk.Instrs() {
			if instr.IsCall() {
				hasCalls = true
			}
		}
	}

	clobbered := make([]regalloc.RealReg, 0, len(code.ClobberedRegisters))
	for _, v := range code.ClobberedRegisters {
		clobbered = append(clobbered, v.RealReg())
	}

	frame := &backend.FrameLayout{
		IncomingArgsSize: abi.ArgStackSize,
		HasCalls:         hasCalls,
		Clobbered:        clobbered,
		SpillSlots:       code.SpillSlots,
		LocalsSize:       code.LocalsSize(),
	}
	frame.Compute()
	return frame
}
