package rv32

import (
	"fmt"
	"strings"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/regalloc"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// Format renders code as the textual VCode dump spec.md §6 describes for
// the `test lower` filetest command: a `vcode { entry: blockN` header,
// then one block per line — `blockN(params):` for an original LPIR
// block, `edge blockP -> blockQ:` for a critical-edge block — each
// followed by its machine instructions, closed by `}`. N (like the entry
// header and branch targets) is the vcode block id; P and Q are the LPIR
// block ids of the edge's source and target.
//
// This is a printer only, not a parser: nothing in this backend's
// pipeline ever reads VCode back in as text (lowering always produces it
// from LPIR, never the reverse), so there is no round-trip counterpart to
// ir.Parse here; see DESIGN.md.
func Format(code *vcode.Code[*Instr]) string {
	var b strings.Builder
	fmt.Fprintf(&b, "vcode { entry: block%d\n", entryBlock(code).BlockID())
	for _, blk := range code.Blocks() {
		fmt.Fprintf(&b, "%s\n", blockHeader(blk, code.Order))
		for _, instr := range blk.Instrs() {
			fmt.Fprintf(&b, "    %s\n", instr)
		}
	}
	b.WriteString("}")
	return b.String()
}

func blockHeader(blk *vcode.Block[*Instr], order []vcode.LoweredBlock) string {
	for _, e := range order {
		if e.Block != blk.BlockID() || e.Kind != vcode.LoweredEdge {
			continue
		}
		return fmt.Sprintf("edge block%d -> block%d:", e.From, e.To)
	}
	return fmt.Sprintf("block%d(%s):", blk.BlockID(), formatParams(blk.Params()))
}

func formatParams(params []regalloc.VReg) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
