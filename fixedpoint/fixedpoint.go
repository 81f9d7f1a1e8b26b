// Package fixedpoint rewrites an ir.Function so every F32 value becomes a
// Q16.16 fixed-point I32 value, permitted because the RISC-V target this
// backend generates code for has no floating-point unit (spec.md §4.3).
// The rewrite is correctness-preserving for the subset of float behavior
// Q16.16 can represent and runs as an ordinary IR-to-IR pass, the same
// shape as the teacher's ssa optimization passes: walk the function once,
// build its replacement, then re-verify.
package fixedpoint

import (
	"math"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/verify"
)

// scale is 2^16, the Q16.16 fixed-point unit.
const scale = 65536.0

// clampMag is the largest magnitude a float32 can have before scaling by
// 65536 would overflow a signed 32-bit integer.
const clampMag = 32767.999984741

// fdivHelper is the symbol of the platform helper fdiv lowers to, since
// Q16.16 division has no cheap bit-identical integer expansion.
const fdivHelper = "__lpvm_fixed_div"

// HasFloat reports whether fn contains any F32-typed instruction, i.e.
// whether Run needs to be applied before lowering.
func HasFloat(fn *ir.Function) bool {
	for _, t := range fn.Sig.Params {
		if t == ir.TypeF32 {
			return true
		}
	}
	for _, t := range fn.Sig.Results {
		if t == ir.TypeF32 {
			return true
		}
	}
	for _, blk := range fn.Blocks() {
		for p := 0; p < blk.Params(); p++ {
			if blk.Param(p).Type() == ir.TypeF32 {
				return true
			}
		}
		for _, instr := range blk.Instructions() {
			if instr.Opcode().IsFloat() {
				return true
			}
		}
	}
	return false
}

// Run rewrites fn's F32 surface to Q16.16 I32 and returns the new function.
// The input must already pass verify.Function with F32 values present; the
// output is re-verified before being returned.
func Run(fn *ir.Function) (*ir.Function, error) {
	sig := rewriteSignature(fn.Sig)
	out := ir.NewFunction(fn.Name, sig)
	out.SetBaseSourceLocation(fn.BaseSourceLocation())
	b := ir.NewBuilder(out)

	r := &rewriter{src: fn, dst: out, b: b, values: make(map[ir.ValueID]ir.Value), blocks: make(map[ir.BasicBlockID]*ir.BasicBlock)}
	r.blocks[fn.EntryBlock().ID()] = out.EntryBlock()

	srcBlocks := fn.Blocks()
	for i, srcBlk := range srcBlocks {
		if i == 0 {
			continue // entry block already created by NewFunction
		}
		r.blocks[srcBlk.ID()] = out.CreateBlock()
	}
	// Map entry block params (created in NewFunction from sig) 1:1 to the
	// source entry block's params.
	entrySrc := fn.EntryBlock()
	entryDst := out.EntryBlock()
	for p := 0; p < entrySrc.Params(); p++ {
		r.values[entrySrc.Param(p).ID()] = entryDst.Param(p)
	}
	for _, srcBlk := range srcBlocks[1:] {
		dstBlk := r.blocks[srcBlk.ID()]
		for p := 0; p < srcBlk.Params(); p++ {
			srcParam := srcBlk.Param(p)
			dstParam := dstBlk.AddParam(out, rewriteType(srcParam.Type()))
			r.values[srcParam.ID()] = dstParam
		}
	}

	for _, srcBlk := range srcBlocks {
		b.SetCurrentBlock(r.blocks[srcBlk.ID()])
		for _, instr := range srcBlk.Instructions() {
			r.rewriteInstr(instr)
		}
	}

	if err := verify.Function(out); err != nil {
		return nil, err
	}
	return out, nil
}

func rewriteType(t ir.Type) ir.Type {
	if t == ir.TypeF32 {
		return ir.TypeI32
	}
	return t
}

func rewriteSignature(sig *ir.Signature) *ir.Signature {
	out := &ir.Signature{Params: make([]ir.Type, len(sig.Params)), Results: make([]ir.Type, len(sig.Results))}
	for i, t := range sig.Params {
		out.Params[i] = rewriteType(t)
	}
	for i, t := range sig.Results {
		out.Results[i] = rewriteType(t)
	}
	return out
}

type rewriter struct {
	src    *ir.Function
	dst    *ir.Function
	b      ir.Builder
	values map[ir.ValueID]ir.Value
	blocks map[ir.BasicBlockID]*ir.BasicBlock
}

func (r *rewriter) val(v ir.Value) ir.Value {
	if !v.Valid() {
		return v
	}
	mapped, ok := r.values[v.ID()]
	if !ok {
		panic("fixedpoint: value used before its definition was rewritten")
	}
	return mapped
}

func (r *rewriter) vals(vs []ir.Value) []ir.Value {
	if vs == nil {
		return nil
	}
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = r.val(v)
	}
	return out
}

func (r *rewriter) blk(blk *ir.BasicBlock) *ir.BasicBlock {
	if blk == nil {
		return nil
	}
	return r.blocks[blk.ID()]
}

func (r *rewriter) rewriteInstr(instr *ir.Instruction) {
	b := r.b
	switch instr.Opcode() {
	case ir.OpcodeFconst:
		f := instr.FconstValue()
		fixed := toFixed(f)
		out := b.NewInstruction().AsIconst32(uint32(fixed), ir.TypeI32, b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeFadd:
		x, y := instr.Arg2()
		out := b.NewInstruction().AsIadd(r.val(x), r.val(y), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeFsub:
		x, y := instr.Arg2()
		out := b.NewInstruction().AsIsub(r.val(x), r.val(y), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeFmul:
		x, y := instr.Arg2()
		rx, ry := r.val(x), r.val(y)
		hi := b.NewInstruction().AsImulh(rx, ry, b)
		b.Insert(hi)
		lo := b.NewInstruction().AsImul(rx, ry, b)
		b.Insert(lo)
		hiShifted := b.NewInstruction().AsIshl(hi.Return(), r.constI32(16), b)
		b.Insert(hiShifted)
		loShifted := b.NewInstruction().AsIshr(lo.Return(), r.constI32(16), b)
		b.Insert(loShifted)
		out := b.NewInstruction().AsIor(hiShifted.Return(), loShifted.Return(), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeFdiv:
		x, y := instr.Arg2()
		out := b.NewInstruction().AsCall(ir.SymbolRef{Name: fdivHelper, External: true}, []ir.Value{r.val(x), r.val(y)}, []ir.Type{ir.TypeI32}, b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeFcmp:
		x, y, cc := instr.FcmpData()
		intCC, constant := mapFloatCC(cc)
		var out *ir.Instruction
		if constant != nil {
			out = b.NewInstruction().AsIconst32(*constant, ir.TypeU32, b)
		} else {
			out = b.NewInstruction().AsIcmp(r.val(x), r.val(y), intCC, b)
		}
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeJump:
		args, target := instr.JumpData()
		out := b.NewInstruction().AsJump(r.vals(args), r.blk(target))
		b.Insert(out)

	case ir.OpcodeBr:
		cond, trueTarget, trueArgs, falseTarget, falseArgs := instr.BrData()
		out := b.NewInstruction().AsBr(r.val(cond), r.blk(trueTarget), r.vals(trueArgs), r.blk(falseTarget), r.vals(falseArgs))
		b.Insert(out)

	case ir.OpcodeReturn:
		out := b.NewInstruction().AsReturn(r.vals(instr.ReturnArgs()))
		b.Insert(out)

	case ir.OpcodeCall:
		sym, args := instr.CallData()
		resTypes := r.resultTypesOf(instr)
		out := b.NewInstruction().AsCall(sym, r.vals(args), resTypes, b)
		b.Insert(out)
		first, rest := instr.Returns()
		if first.Valid() {
			newFirst, newRest := out.Returns()
			r.values[first.ID()] = newFirst
			for i, v := range rest {
				r.values[v.ID()] = newRest[i]
			}
		}

	case ir.OpcodeLoad:
		ptr, offset, typ, _ := instr.LoadStoreData()
		out := b.NewInstruction().AsLoad(r.val(ptr), offset, rewriteType(typ), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeStore:
		ptr, offset, typ, stored := instr.LoadStoreData()
		out := b.NewInstruction().AsStore(r.val(stored), r.val(ptr), offset, rewriteType(typ))
		b.Insert(out)

	case ir.OpcodeIadd, ir.OpcodeIsub, ir.OpcodeImul, ir.OpcodeIdiv, ir.OpcodeIrem,
		ir.OpcodeIand, ir.OpcodeIor, ir.OpcodeIxor, ir.OpcodeIshl, ir.OpcodeIshr, ir.OpcodeIashr:
		x, y := instr.Arg2()
		out := r.copyBinary(instr.Opcode(), r.val(x), r.val(y))
		r.values[instr.Return().ID()] = out

	case ir.OpcodeImulh:
		x, y := instr.Arg2()
		out := b.NewInstruction().AsImulh(r.val(x), r.val(y), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeInot:
		out := b.NewInstruction().AsInot(r.val(instr.Arg()), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeIcmp:
		x, y, cc := instr.IcmpData()
		out := b.NewInstruction().AsIcmp(r.val(x), r.val(y), cc, b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeIconst:
		out := b.NewInstruction().AsIconst32(instr.IconstValue(), instr.Return().Type(), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeStackalloc:
		out := b.NewInstruction().AsStackalloc(instr.StackallocSize(), b)
		b.Insert(out)
		r.values[instr.Return().ID()] = out.Return()

	case ir.OpcodeTrap:
		b.Insert(b.NewInstruction().AsTrap(instr.TrapCode()))

	case ir.OpcodeTrapz:
		b.Insert(b.NewInstruction().AsTrapz(r.val(instr.Arg()), instr.TrapCode()))

	case ir.OpcodeTrapnz:
		b.Insert(b.NewInstruction().AsTrapnz(r.val(instr.Arg()), instr.TrapCode()))

	default:
		panic("fixedpoint: unhandled opcode " + instr.Opcode().String())
	}
}

func (r *rewriter) copyBinary(op ir.Opcode, x, y ir.Value) ir.Value {
	b := r.b
	var out *ir.Instruction
	switch op {
	case ir.OpcodeIadd:
		out = b.NewInstruction().AsIadd(x, y, b)
	case ir.OpcodeIsub:
		out = b.NewInstruction().AsIsub(x, y, b)
	case ir.OpcodeImul:
		out = b.NewInstruction().AsImul(x, y, b)
	case ir.OpcodeIdiv:
		out = b.NewInstruction().AsIdiv(x, y, b)
	case ir.OpcodeIrem:
		out = b.NewInstruction().AsIrem(x, y, b)
	case ir.OpcodeIand:
		out = b.NewInstruction().AsIand(x, y, b)
	case ir.OpcodeIor:
		out = b.NewInstruction().AsIor(x, y, b)
	case ir.OpcodeIxor:
		out = b.NewInstruction().AsIxor(x, y, b)
	case ir.OpcodeIshl:
		out = b.NewInstruction().AsIshl(x, y, b)
	case ir.OpcodeIshr:
		out = b.NewInstruction().AsIshr(x, y, b)
	case ir.OpcodeIashr:
		out = b.NewInstruction().AsIashr(x, y, b)
	default:
		panic("fixedpoint: not a binary integer opcode")
	}
	b.Insert(out)
	return out.Return()
}

func (r *rewriter) constI32(v uint32) ir.Value {
	b := r.b
	out := b.NewInstruction().AsIconst32(v, ir.TypeI32, b)
	b.Insert(out)
	return out.Return()
}

// resultTypesOf recovers a call instruction's declared result types from
// its (already-rewritten-capable) return values, since CallData does not
// carry them directly.
func (r *rewriter) resultTypesOf(instr *ir.Instruction) []ir.Type {
	first, rest := instr.Returns()
	if !first.Valid() {
		return nil
	}
	types := make([]ir.Type, 0, 1+len(rest))
	types = append(types, rewriteType(first.Type()))
	for _, v := range rest {
		types = append(types, rewriteType(v.Type()))
	}
	return types
}

// toFixed converts a float32 to its Q16.16 representation, clamping to the
// representable range and rounding to nearest.
func toFixed(f float32) int32 {
	v := float64(f)
	if v > clampMag {
		v = clampMag
	} else if v < -clampMag {
		v = -clampMag
	}
	return int32(math.Round(v * scale))
}

// mapFloatCC translates a FloatCC into either an equivalent IntCC or, for
// the NaN-distinguishing conditions that have no integer equivalent (since
// Q16.16 has no NaN), a constant 0/1 result.
func mapFloatCC(cc ir.FloatCC) (ir.IntCC, *uint32) {
	switch cc {
	case ir.FloatCCEqual:
		return ir.IntCCEqual, nil
	case ir.FloatCCNotEqual:
		return ir.IntCCNotEqual, nil
	case ir.FloatCCLessThan:
		return ir.IntCCSignedLessThan, nil
	case ir.FloatCCLessThanOrEqual:
		return ir.IntCCSignedLessThanOrEqual, nil
	case ir.FloatCCGreaterThan:
		return ir.IntCCSignedGreaterThan, nil
	case ir.FloatCCGreaterThanOrEqual:
		return ir.IntCCSignedGreaterThanOrEqual, nil
	case ir.FloatCCOrdered:
		one := uint32(1)
		return 0, &one
	case ir.FloatCCUnordered:
		zero := uint32(0)
		return 0, &zero
	default:
		panic("fixedpoint: invalid FloatCC")
	}
}
