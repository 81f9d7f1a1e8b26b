package rv32

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/symbol"
	"github.com/Yona-Appletree/lp-glsl-vm-sub000/vcode"
)

// CompiledFunction is one function's Emit output, still carrying its
// unresolved call-site relocations and the frame size the runtime/VM
// harness needs to reserve (spec.md §6's per-function interface: "an
// in-memory code buffer plus... stack/frame size").
type CompiledFunction struct {
	Name        string
	Code        []byte
	Relocations []vcode.Relocation
	FrameSize   int64
}

// Unresolved names a relocation Link could not patch because its symbol
// resolved to neither stratum of the symbol table (spec.md §4.9: "None is
// a hard error at relocation time").
type Unresolved struct {
	Function   string
	Relocation vcode.Relocation
}

// Error implements error.
func (u Unresolved) Error() string {
	return fmt.Sprintf("rv32: %s: unresolved symbol %s at offset %d", u.Function, u.Relocation.Symbol, u.Relocation.InstrIndex)
}

// Link lays fns out contiguously into one flat code buffer, defines every
// function's Local symbol at its base offset in table, then patches each
// function's placeholder `jal ra, 0` call sites with the real PC-relative
// delta to its target (spec.md §4.8's relocation post-pass). A relocation
// whose symbol resolves to neither stratum is left unpatched and reported
// back rather than aborting the whole link, since "list of unresolved
// external relocations" is itself part of the core's documented output
// (spec.md §6) — the runtime/VM harness is expected to patch those itself
// once it knows where the host-provided symbol lives.
//
// Local code offsets and external runtime addresses are treated as one
// shared coordinate space for the PC-relative delta computation: the
// harness is responsible for placing the linked code buffer and whatever
// it binds external symbols to consistently with that assumption (see
// DESIGN.md).
func Link(fns []CompiledFunction, table *symbol.Table) ([]byte, []Unresolved) {
	offsets := make([]int64, len(fns))
	var total int64
	for i, fn := range fns {
		offsets[i] = total
		table.DefineLocal(fn.Name, total)
		total += int64(len(fn.Code))
	}

	out := make([]byte, total)
	for i, fn := range fns {
		copy(out[offsets[i]:], fn.Code)
	}

	var unresolved []Unresolved
	for i, fn := range fns {
		base := offsets[i]
		for _, reloc := range fn.Relocations {
			target, _, ok := table.Lookup(reloc.Symbol)
			if !ok {
				unresolved = append(unresolved, Unresolved{Function: fn.Name, Relocation: reloc})
				continue
			}
			callSite := base + int64(reloc.InstrIndex)
			delta := requireJumpRange(int32(target - callSite))
			patchWord(out, callSite, encJAL(int(RegRA), delta))
		}
	}
	return out, unresolved
}

func patchWord(out []byte, at int64, w uint32) {
	out[at] = byte(w)
	out[at+1] = byte(w >> 8)
	out[at+2] = byte(w >> 16)
	out[at+3] = byte(w >> 24)
}
