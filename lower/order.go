// Package lower computes the ISA-agnostic half of lowering (LPIR → VCode):
// the block emission order and critical-edge splitting (spec.md §4.4).
// Grounded structurally on the teacher's ssa/pass_cfg.go reverse-postorder
// machinery; the per-opcode instruction selection itself is ISA-specific
// and lives in isa/rv32/lower.go; it is supplemental to the teacher, which
// draws selection from its own opcode mapping rather than a separate
// package, but spec.md §4.5 calls the two concerns out as distinct steps.
package lower

import "github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"

// EntryKind distinguishes an original LPIR block from a synthetic edge
// block inserted to carry a branch's argument-to-parameter moves.
type EntryKind int

const (
	EntryOrig EntryKind = iota
	EntryEdge
)

// OrderEntry is one step of the block lowering order.
type OrderEntry struct {
	Kind EntryKind
	// Block is valid when Kind == EntryOrig.
	Block ir.BasicBlockID
	// From, To are valid when Kind == EntryEdge: the edge block carries
	// From's branch arguments into To's block parameters.
	From, To ir.BasicBlockID
}

// ComputeOrder returns fn's block lowering order: reachable blocks in
// reverse postorder, with a synthetic edge entry immediately before every
// block that has parameters, one per predecessor, carrying that
// predecessor's branch arguments. Splitting every parameterized edge
// (rather than only critical ones) is a deliberate simplification: it
// costs an extra jump on edges that didn't strictly need splitting, but
// means every block-parameter assignment is realised by a single,
// unambiguous parallel-copy site instead of requiring this pass to prove
// which edges are critical. Blocks marked cold (other than the entry
// block) are moved, together with their edge entries, after every other
// block, keeping their relative order.
func ComputeOrder(fn *ir.Function, cfg *ir.CFG) []OrderEntry {
	var out, cold []OrderEntry
	for _, b := range cfg.ReversePostOrder() {
		dst := &out
		if b.IsCold() && !b.EntryBlock() {
			dst = &cold
		}
		if b.Params() > 0 {
			for i := 0; i < b.Preds(); i++ {
				pred := b.Pred(i)
				if !cfg.Reachable(pred) {
					continue
				}
				*dst = append(*dst, OrderEntry{Kind: EntryEdge, From: pred.ID(), To: b.ID()})
			}
		}
		*dst = append(*dst, OrderEntry{Kind: EntryOrig, Block: b.ID()})
	}
	return append(out, cold...)
}
