package regalloc

import "fmt"

// Function, Block and Instr are implemented by the ISA package and the
// VCode container (isa/rv32's Function and Instr, vcode.Block) to let the allocator operate on any ISA's
// VCode without importing ISA-specific types. Grounded verbatim in shape
// on the teacher's backend/regalloc.Function/Block/Instr, trimmed to the
// subset spec.md §4.6's contract requires (no second-chance-allocator
// callback hooks).
type (
	// Function is the top-level view of a lowered function the allocator
	// operates over.
	Function interface {
		// ReversePostOrderBlockIteratorBegin returns the first block in
		// reverse postorder, or nil if the function has no blocks.
		ReversePostOrderBlockIteratorBegin() Block
		// ReversePostOrderBlockIteratorNext returns the next block in
		// reverse postorder, or nil once exhausted.
		ReversePostOrderBlockIteratorNext() Block
		// ClobberedRegisters reports the callee-saved registers the
		// allocator assigned anywhere in the function, used to size the
		// callee-saved clobber area (§4.7).
		ClobberedRegisters([]VReg)
		// StoreRegisterBefore inserts a spill of v immediately before instr.
		StoreRegisterBefore(v VReg, instr Instr)
		// StoreRegisterAfter inserts a spill of v immediately after instr.
		StoreRegisterAfter(v VReg, instr Instr)
		// ReloadRegisterBefore inserts a reload of v immediately before instr.
		ReloadRegisterBefore(v VReg, instr Instr)
		// ReloadRegisterAfter inserts a reload of v immediately after instr.
		ReloadRegisterAfter(v VReg, instr Instr)
		// Done is called once allocation has finished so the function can
		// finalize its spill slot count.
		Done(spillSlots int)
	}

	// Block is a basic block in the lowered function.
	Block interface {
		// ID returns the block's unique identifier.
		ID() int
		// InstrIteratorBegin returns the block's first instruction, or nil
		// if empty.
		InstrIteratorBegin() Instr
		// InstrIteratorNext returns the next instruction, or nil once
		// exhausted.
		InstrIteratorNext() Instr
		// Preds returns the block's predecessors.
		Preds() []Block
		// Succs returns the block's successors.
		Succs() []Block
		// Entry reports whether this is the function's entry block.
		Entry() bool
	}

	// Instr is one lowered (machine) instruction.
	Instr interface {
		fmt.Stringer

		// Defs returns the virtual registers this instruction defines.
		Defs() []VReg
		// Uses returns the virtual registers this instruction uses.
		Uses() []VReg
		// AssignUses rewrites this instruction's use operands to the
		// allocator-chosen registers, in the same order Uses returned them.
		AssignUses([]VReg)
		// AssignDef rewrites this instruction's sole def operand.
		AssignDef(VReg)
		// IsCopy reports whether this is a register-to-register move that
		// may be coalesced away.
		IsCopy() bool
		// IsCall reports whether this instruction crosses a call boundary,
		// forcing caller-saved live values out of registers.
		IsCall() bool
		// IsReturn reports whether this is the function's return instruction.
		IsReturn() bool
	}
)
