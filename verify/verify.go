// Package verify checks that an ir.Function satisfies the invariants the
// rest of the pipeline relies on: single-definition SSA, dominance-scoped
// uses, consistent block-parameter arity/types, per-opcode type rules, and
// well-formed traps. It is invoked after every IR transform, mirroring how
// the teacher re-validates WebAssembly module state after each decoding
// stage.
package verify

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
)

// Function runs every check against fn and returns the first error found,
// or nil if fn is well-formed. Errors name the offending instruction or
// block so a caller can report a precise location.
func Function(fn *ir.Function) error {
	cfg := ir.ComputeCFG(fn)
	dt := ir.BuildDomTree(cfg)

	defs, err := checkSingleDef(fn)
	if err != nil {
		return err
	}
	if err := checkBlockParams(fn, cfg); err != nil {
		return err
	}
	if err := checkDominance(fn, cfg, dt, defs); err != nil {
		return err
	}
	if err := checkTypesAndFormat(fn); err != nil {
		return err
	}
	if err := checkTraps(fn); err != nil {
		return err
	}
	return nil
}

// defSite records where a Value is defined: its block and, within that
// block, either an instruction (defIdx >= 0) or a block parameter
// (defIdx == -1).
type defSite struct {
	block  *ir.BasicBlock
	defIdx int
}

func checkSingleDef(fn *ir.Function) (map[ir.ValueID]defSite, error) {
	defs := make(map[ir.ValueID]defSite, fn.NumValues())
	for _, blk := range fn.Blocks() {
		for p := 0; p < blk.Params(); p++ {
			v := blk.Param(p)
			if prev, ok := defs[v.ID()]; ok {
				return nil, fmt.Errorf("value %s defined more than once (in %s and %s)", v, prev.block.Name(), blk.Name())
			}
			defs[v.ID()] = defSite{block: blk, defIdx: -1}
		}
		for idx, instr := range blk.Instructions() {
			first, rest := instr.Returns()
			if first.Valid() {
				if prev, ok := defs[first.ID()]; ok {
					return nil, fmt.Errorf("value %s defined more than once (in %s and %s)", first, prev.block.Name(), blk.Name())
				}
				defs[first.ID()] = defSite{block: blk, defIdx: idx}
			}
			for _, r := range rest {
				if prev, ok := defs[r.ID()]; ok {
					return nil, fmt.Errorf("value %s defined more than once (in %s and %s)", r, prev.block.Name(), blk.Name())
				}
				defs[r.ID()] = defSite{block: blk, defIdx: idx}
			}
		}
	}
	return defs, nil
}

func checkBlockParams(fn *ir.Function, cfg *ir.CFG) error {
	for _, blk := range fn.Blocks() {
		if !cfg.Reachable(blk) {
			continue
		}
		want := blk.ParamTypes()
		for p := 0; p < blk.Preds(); p++ {
			branch := blk.PredBranch(p)
			var args []ir.Value
			switch branch.Opcode() {
			case ir.OpcodeJump:
				args, _ = branch.JumpData()
			case ir.OpcodeBr:
				_, trueTarget, trueArgs, falseTarget, falseArgs := branch.BrData()
				if trueTarget == blk {
					args = trueArgs
				} else if falseTarget == blk {
					args = falseArgs
				}
			}
			if len(args) != len(want) {
				return fmt.Errorf("%s: branch to %s supplies %d argument(s), want %d", blk.Pred(p).Name(), blk.Name(), len(args), len(want))
			}
			for i, a := range args {
				if a.Type() != want[i] {
					return fmt.Errorf("%s: branch to %s argument %d has type %s, want %s", blk.Pred(p).Name(), blk.Name(), i, a.Type(), want[i])
				}
			}
		}
	}
	return nil
}

func checkDominance(fn *ir.Function, cfg *ir.CFG, dt *ir.DomTree, defs map[ir.ValueID]defSite) error {
	for _, blk := range fn.Blocks() {
		if !cfg.Reachable(blk) {
			continue
		}
		for idx, instr := range blk.Instructions() {
			for _, use := range instr.Args() {
				if !use.Valid() {
					continue
				}
				def, ok := defs[use.ID()]
				if !ok {
					return fmt.Errorf("%s: value %s used before def", blk.Name(), use)
				}
				if def.block == blk {
					if def.defIdx >= idx {
						return fmt.Errorf("%s: value %s used before its definition in the same block", blk.Name(), use)
					}
					continue
				}
				if !dt.Dominates(def.block, blk) {
					return fmt.Errorf("%s: value %s (defined in %s) used without dominance", blk.Name(), use, def.block.Name())
				}
			}
		}
	}
	return nil
}

func checkTypesAndFormat(fn *ir.Function) error {
	for _, blk := range fn.Blocks() {
		for _, instr := range blk.Instructions() {
			if err := checkInstrTypes(instr); err != nil {
				return fmt.Errorf("%s: %w", blk.Name(), err)
			}
		}
	}
	return nil
}

func checkInstrTypes(instr *ir.Instruction) error {
	switch instr.Opcode() {
	case ir.OpcodeIadd, ir.OpcodeIsub, ir.OpcodeImul, ir.OpcodeIdiv, ir.OpcodeIrem,
		ir.OpcodeIand, ir.OpcodeIor, ir.OpcodeIxor, ir.OpcodeIshl, ir.OpcodeIshr, ir.OpcodeIashr:
		x, y := instr.Arg2()
		if !x.Type().IsInt() || !y.Type().IsInt() {
			return fmt.Errorf("%s requires integer operands, got %s, %s", instr.Opcode(), x.Type(), y.Type())
		}
		if x.Type() != y.Type() {
			return fmt.Errorf("%s operand type mismatch: %s vs %s", instr.Opcode(), x.Type(), y.Type())
		}
	case ir.OpcodeImulh:
		x, y := instr.Arg2()
		if x.Type() != ir.TypeI32 || y.Type() != ir.TypeI32 {
			return fmt.Errorf("imulh requires i32 operands, got %s, %s", x.Type(), y.Type())
		}
		if instr.Return().Type() != ir.TypeI32 {
			return fmt.Errorf("imulh result must be i32, got %s", instr.Return().Type())
		}
	case ir.OpcodeIcmp:
		x, y, _ := instr.IcmpData()
		if !x.Type().IsInt() || !y.Type().IsInt() || x.Type() != y.Type() {
			return fmt.Errorf("icmp argument type mismatch: %s vs %s", x.Type(), y.Type())
		}
		if instr.Return().Type() != ir.TypeU32 {
			return fmt.Errorf("icmp result must be u32, got %s", instr.Return().Type())
		}
	case ir.OpcodeFcmp:
		x, y, _ := instr.FcmpData()
		if x.Type() != ir.TypeF32 || y.Type() != ir.TypeF32 {
			return fmt.Errorf("fcmp requires f32 operands, got %s, %s", x.Type(), y.Type())
		}
	case ir.OpcodeFadd, ir.OpcodeFsub, ir.OpcodeFmul, ir.OpcodeFdiv:
		x, y := instr.Arg2()
		if x.Type() != ir.TypeF32 || y.Type() != ir.TypeF32 {
			return fmt.Errorf("%s requires f32 operands, got %s, %s", instr.Opcode(), x.Type(), y.Type())
		}
	case ir.OpcodeStackalloc:
		if instr.Return().Type() != ir.TypeI32 {
			return fmt.Errorf("stackalloc result must be i32, got %s", instr.Return().Type())
		}
	case ir.OpcodeLoad:
		ptr, _, typ, _ := instr.LoadStoreData()
		if ptr.Type() != ir.TypeI32 {
			return fmt.Errorf("load address must be i32, got %s", ptr.Type())
		}
		if instr.Return().Type() != typ {
			return fmt.Errorf("load result type %s does not match slot type %s", instr.Return().Type(), typ)
		}
	case ir.OpcodeStore:
		ptr, _, _, stored := instr.LoadStoreData()
		if ptr.Type() != ir.TypeI32 {
			return fmt.Errorf("store address must be i32, got %s", ptr.Type())
		}
		_ = stored
	}
	return nil
}

func checkTraps(fn *ir.Function) error {
	for _, blk := range fn.Blocks() {
		for _, instr := range blk.Instructions() {
			switch instr.Opcode() {
			case ir.OpcodeTrap, ir.OpcodeTrapz, ir.OpcodeTrapnz:
				if !instr.TrapCode().Valid() {
					return fmt.Errorf("%s: invalid trap code %d", blk.Name(), instr.TrapCode())
				}
			}
		}
	}
	return nil
}
