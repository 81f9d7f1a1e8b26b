package ir

import (
	"fmt"
	"strings"
)

// BasicBlockID uniquely identifies a BasicBlock within a Function.
type BasicBlockID uint32

// blockParam is one of a block's typed parameters, acting as a phi node
// at control-flow merges (spec.md §3, §9: "block parameters replace
// phi-nodes").
type blockParam struct {
	value Value
	typ   Type
}

// BasicBlock is an ordered sequence of instructions terminated by
// exactly one terminator, plus a (possibly empty) list of typed
// parameters. Grounded on ssa.basicBlock in the teacher.
type BasicBlock struct {
	id         BasicBlockID
	fn         *Function
	params     []blockParam
	root, tail *Instruction

	preds []predecessor
	succs []*BasicBlock

	isCold           bool
	isIndirectTarget bool
	isLoopHeader     bool

	// idom/rpo are filled in by the dominance pass (ir/domtree.go).
	idom *BasicBlock
	rpo  int

	invalid bool
}

type predecessor struct {
	blk    *BasicBlock
	branch *Instruction
}

// ID returns b's unique id.
func (b *BasicBlock) ID() BasicBlockID { return b.id }

// Name returns b's debug name, e.g. "block3".
func (b *BasicBlock) Name() string { return fmt.Sprintf("block%d", b.id) }

// EntryBlock reports whether b is the function's entry block.
func (b *BasicBlock) EntryBlock() bool { return b.id == 0 }

// Valid reports whether b is still reachable/part of the function.
func (b *BasicBlock) Valid() bool { return !b.invalid }

// AddParam appends a new typed parameter to b and returns its Value.
func (b *BasicBlock) AddParam(fn *Function, t Type) Value {
	v := fn.allocateValue(t)
	b.params = append(b.params, blockParam{value: v, typ: t})
	return v
}

// Params returns the number of parameters b has.
func (b *BasicBlock) Params() int { return len(b.params) }

// Param returns the i-th parameter's Value.
func (b *BasicBlock) Param(i int) Value { return b.params[i].value }

// ParamTypes returns the types of b's parameters, in order.
func (b *BasicBlock) ParamTypes() []Type {
	ts := make([]Type, len(b.params))
	for i, p := range b.params {
		ts[i] = p.typ
	}
	return ts
}

// Root returns b's first instruction, or nil if b is empty.
func (b *BasicBlock) Root() *Instruction { return b.root }

// Tail returns b's last instruction (its terminator, once the block is
// complete), or nil if b is empty.
func (b *BasicBlock) Tail() *Instruction { return b.tail }

// InsertInstruction appends instr to the end of b and, if instr is a
// jump/br, records the predecessor edge(s) on its target(s).
func (b *BasicBlock) InsertInstruction(instr *Instruction) {
	instr.owner = b
	if b.tail != nil {
		b.tail.next = instr
		instr.prev = b.tail
	} else {
		b.root = instr
	}
	b.tail = instr

	switch instr.opcode {
	case OpcodeJump:
		instr.target.addPred(b, instr)
	case OpcodeBr:
		instr.target.addPred(b, instr)
		instr.targetFalse.addPred(b, instr)
	}
}

func (b *BasicBlock) addPred(from *BasicBlock, branch *Instruction) {
	b.preds = append(b.preds, predecessor{blk: from, branch: branch})
	from.succs = append(from.succs, b)
}

// Preds returns the number of predecessors b has.
func (b *BasicBlock) Preds() int { return len(b.preds) }

// Pred returns the i-th predecessor block.
func (b *BasicBlock) Pred(i int) *BasicBlock { return b.preds[i].blk }

// PredBranch returns the branch instruction used by the i-th predecessor
// to reach b.
func (b *BasicBlock) PredBranch(i int) *Instruction { return b.preds[i].branch }

// Succs returns b's successor blocks, derived from its terminator.
func (b *BasicBlock) Succs() []*BasicBlock { return b.succs }

// SetCold marks b as a cold (rarely executed) block; the block lowering
// order (lower.ComputeOrder) moves cold blocks to the tail of the function.
func (b *BasicBlock) SetCold() { b.isCold = true }

// IsCold reports whether b has been marked cold.
func (b *BasicBlock) IsCold() bool { return b.isCold }

// SetIndirectTarget marks b as a possible target of an indirect branch.
func (b *BasicBlock) SetIndirectTarget() { b.isIndirectTarget = true }

// IsIndirectTarget reports whether b may be targeted by an indirect branch.
func (b *BasicBlock) IsIndirectTarget() bool { return b.isIndirectTarget }

// IsLoopHeader reports whether b is the target of a back edge, as
// determined by DomTree during construction.
func (b *BasicBlock) IsLoopHeader() bool { return b.isLoopHeader }

// Instructions returns b's instructions as a slice, in program order. For
// hot paths prefer iterating Root()/Next() directly; this is a convenience
// for tests and passes that want random access.
func (b *BasicBlock) Instructions() []*Instruction {
	var out []*Instruction
	for i := b.root; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// FormatHeader renders b's header line, e.g. "block1(v2:i32):".
func (b *BasicBlock) FormatHeader() string {
	params := make([]string, len(b.params))
	for i, p := range b.params {
		params[i] = p.value.formatWithType()
	}
	return fmt.Sprintf("%s(%s):", b.Name(), strings.Join(params, ", "))
}

// Format renders b's header and every instruction, one per line.
func (b *BasicBlock) Format() string {
	var s strings.Builder
	s.WriteString(b.FormatHeader())
	for i := b.root; i != nil; i = i.next {
		s.WriteString("\n    ")
		s.WriteString(i.Format())
	}
	return s.String()
}
