package ir

// CFG is the reverse-postorder view of a Function's control-flow graph,
// derived from the predecessor/successor edges each BasicBlock already
// records as jump/br instructions are inserted (spec.md §3 "CFG:
// derived"). Grounded on the reverse-postorder computation in the
// teacher's ssa/pass_cfg.go (explicit stack, not recursion, so deep CFGs
// don't blow the Go stack).
type CFG struct {
	fn      *Function
	rpo     []*BasicBlock
	reached []bool
}

const (
	visitUnseen = iota
	visitSeen
	visitDone
)

// ComputeCFG walks fn's blocks from the entry block and returns their
// reverse postorder. Blocks unreachable from the entry are omitted and
// reported by Reachable returning false for them.
func ComputeCFG(fn *Function) *CFG {
	visited := make([]byte, len(fn.blocks))
	var postorder []*BasicBlock

	entry := fn.EntryBlock()
	stack := []*BasicBlock{entry}
	visited[entry.id] = visitSeen
	for len(stack) > 0 {
		top := len(stack) - 1
		blk := stack[top]
		switch visited[blk.id] {
		case visitSeen:
			// Push unseen successors, then revisit blk once they're done.
			for _, succ := range blk.succs {
				if succ.invalid {
					continue
				}
				if visited[succ.id] == visitUnseen {
					visited[succ.id] = visitSeen
					stack = append(stack, succ)
				}
			}
			visited[blk.id] = visitDone
		case visitDone:
			stack = stack[:top]
			postorder = append(postorder, blk)
		default:
			// Already fully processed via another path; pop.
			stack = stack[:top]
		}
	}

	rpo := make([]*BasicBlock, len(postorder))
	reached := make([]bool, len(fn.blocks))
	for i, blk := range postorder {
		idx := len(postorder) - 1 - i
		rpo[idx] = blk
		blk.rpo = idx
		reached[blk.id] = true
	}
	return &CFG{fn: fn, rpo: rpo, reached: reached}
}

// ReversePostOrder returns the blocks reachable from the entry, in
// reverse postorder.
func (c *CFG) ReversePostOrder() []*BasicBlock { return c.rpo }

// Reachable reports whether b was reached by the CFG walk.
func (c *CFG) Reachable(b *BasicBlock) bool { return c.reached[b.id] }

// Entry returns the function's entry block.
func (c *CFG) Entry() *BasicBlock { return c.fn.EntryBlock() }
