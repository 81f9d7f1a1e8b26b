package ir

// DomTree is the immediate-dominator tree of a Function's CFG, computed
// by Cooper's iterative algorithm (spec.md §4.2). It stores one immediate
// dominator per reachable block plus each block's reverse-postorder
// number, so Dominates can answer in O(depth) by walking idom links.
//
// Grounded on calculateDominators in the teacher's ssa/pass_cfg.go, which
// implements "A Simple, Fast Dominance Algorithm" (Cooper, Harvey,
// Kennedy).
type DomTree struct {
	cfg  *CFG
	idom []*BasicBlock // indexed by BasicBlockID; nil for unreachable blocks
}

// BuildDomTree computes the dominator tree for the blocks reachable in cfg.
func BuildDomTree(cfg *CFG) *DomTree {
	n := len(cfg.fn.blocks)
	idom := make([]*BasicBlock, n)

	entry := cfg.Entry()
	idom[entry.id] = entry

	rpo := cfg.rpo
	changed := true
	for changed {
		changed = false
		for _, blk := range rpo {
			if blk == entry {
				continue
			}
			var newIdom *BasicBlock
			for i := 0; i < blk.Preds(); i++ {
				pred := blk.Pred(i)
				if idom[pred.id] == nil {
					continue // not yet processed on this iteration
				}
				if newIdom == nil {
					newIdom = pred
					continue
				}
				newIdom = intersect(idom, newIdom, pred)
			}
			if idom[blk.id] != newIdom {
				idom[blk.id] = newIdom
				changed = true
			}
		}
	}

	dt := &DomTree{cfg: cfg, idom: idom}
	for _, blk := range rpo {
		blk.idom = idom[blk.id]
	}
	dt.detectLoops()
	return dt
}

func intersect(idom []*BasicBlock, a, b *BasicBlock) *BasicBlock {
	for a != b {
		for a.rpo > b.rpo {
			a = idom[a.id]
		}
		for b.rpo > a.rpo {
			b = idom[b.id]
		}
	}
	return a
}

// ImmediateDominator returns b's immediate dominator, or nil if b is
// unreachable. The entry block is its own immediate dominator.
func (dt *DomTree) ImmediateDominator(b *BasicBlock) *BasicBlock { return dt.idom[b.id] }

// Dominates reports whether a dominates b: every path from the entry to b
// passes through a. Unreachable blocks dominate nothing and are dominated
// by nothing; every reachable block dominates itself.
func (dt *DomTree) Dominates(a, b *BasicBlock) bool {
	if dt.idom[b.id] == nil || dt.idom[a.id] == nil {
		return false
	}
	for {
		if a == b {
			return true
		}
		if b.EntryBlock() {
			return a == b
		}
		parent := dt.idom[b.id]
		if parent == b {
			return a == b
		}
		b = parent
	}
}

// detectLoops flags loop headers: a block B is a loop header iff some
// predecessor of B is dominated by B (a "back edge"). Grounded on
// subPassLoopDetection in ssa/pass_cfg.go.
func (dt *DomTree) detectLoops() {
	for _, blk := range dt.cfg.fn.blocks {
		if !dt.cfg.Reachable(blk) {
			continue
		}
		for i := 0; i < blk.Preds(); i++ {
			pred := blk.Pred(i)
			if !dt.cfg.Reachable(pred) {
				continue
			}
			if dt.Dominates(blk, pred) {
				blk.isLoopHeader = true
			}
		}
	}
}

