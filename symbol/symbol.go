// Package symbol implements the two-stratum symbol table spec.md §4.9
// describes: a Local stratum (addresses fixed once every function in a
// module has been laid out) and an External stratum (addresses the
// runtime/VM harness supplies for host-provided helpers). Grounded on
// spec.md §4.9 directly; this is a narrow enough piece of bookkeeping
// that no library earns its keep over two maps.
package symbol

import (
	"fmt"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/ir"
)

// Table is the module-wide symbol table threaded through relocation
// resolution (spec.md §4.8, §4.9, §5 — "only the symbol table is shared
// across functions").
type Table struct {
	local    map[string]int64
	external map[string]uint32
}

// New returns an empty Table.
func New() *Table {
	return &Table{local: make(map[string]int64), external: make(map[string]uint32)}
}

// DefineLocal records name's code offset in the local stratum. Redefining
// an already-defined local name is a programmer error: each function is
// laid out exactly once by the link pass.
func (t *Table) DefineLocal(name string, offset int64) {
	if _, ok := t.local[name]; ok {
		panic(fmt.Sprintf("symbol: local %q defined twice", name))
	}
	t.local[name] = offset
}

// DefineExternal records name's runtime-supplied address in the external
// stratum.
func (t *Table) DefineExternal(name string, addr uint32) {
	t.external[name] = addr
}

// Lookup resolves sym, consulting the local stratum first and falling
// back to the external stratum, per spec.md §4.9's literal wording: it
// does not short-circuit on sym.External, since a symbol the IR marked
// external may still have been supplied locally (e.g. a platform helper
// the link pass chooses to inline into the module) and a symbol marked
// Local that this module never defines is exactly the "hard error at
// relocation time" case ok reports.
func (t *Table) Lookup(sym ir.SymbolRef) (offset int64, external bool, ok bool) {
	if off, found := t.local[sym.Name]; found {
		return off, false, true
	}
	if addr, found := t.external[sym.Name]; found {
		return int64(addr), true, true
	}
	return 0, false, false
}
