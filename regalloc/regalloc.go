package regalloc

import "sort"

// ProgramPoint is a dense, function-wide instruction index assigned in
// reverse-postorder block order, used to compare live ranges.
type ProgramPoint int

// interval is a VReg's conservative live range: the program-point span
// from its first def to its last use. Using a single contiguous span
// (rather than a precise set of live sub-ranges) may overestimate
// liveness across merges and loop back edges, which costs at most an
// extra spill — it never understates a range and so never breaks
// correctness (spec.md §4.6 property 1).
type interval struct {
	vreg  VReg
	start ProgramPoint
	end   ProgramPoint

	reg   RealReg
	spill bool
	slot  int
}

func (iv *interval) allocated() VReg {
	if iv.spill {
		return iv.vreg
	}
	return iv.vreg.SetRealReg(iv.reg)
}

// spillVReg is the VReg passed to Store/ReloadRegister{Before,After} for a
// spilled interval: the original VReg with its real register set to the
// shared scratch register, grounded on the teacher's own
// `x1.SetRealReg(r2)` call ahead of insertReloadRegisterAt in
// backend/isa/arm64/machine_regalloc.go. A Function adapter recovers
// which slot a given edit targets from VReg.ID() (the original VReg
// identity survives SetRealReg) and reads the scratch register to
// move the value through from RealReg().
func (iv *interval) spillVReg(scratch RealReg) VReg {
	return iv.vreg.SetRealReg(scratch)
}

// Allocator is a linear-scan register allocator with a furthest-next-use
// spill heuristic (the algorithmic class spec.md §4.6 explicitly
// licenses), over the Function/Block/Instr abstraction in api.go so it
// never imports an ISA package.
type Allocator struct {
	available   RegSet
	callerSaved RegSet
	scratch     RealReg
}

// NewAllocator builds an Allocator. available is the set of registers the
// allocator may assign to VRegs; callerSaved is the subset clobbered by a
// call, used to decide which live values need saving across IsCall
// instructions; scratch is a register reserved for reload/spill traffic
// and must not be in available.
func NewAllocator(available, callerSaved RegSet, scratch RealReg) *Allocator {
	return &Allocator{available: available, callerSaved: callerSaved, scratch: scratch}
}

type instrRecord struct {
	point ProgramPoint
	instr Instr
}

// Allocate assigns physical registers (or spill slots) to every VReg in f
// and mutates f's instructions in place via AssignDef/AssignUses, calling
// back into f to insert spill/reload/save edits. It returns the number of
// spill slots used, for the frame layout computation (spec.md §4.7).
func (a *Allocator) Allocate(f Function) int {
	var order []instrRecord
	for blk := f.ReversePostOrderBlockIteratorBegin(); blk != nil; blk = f.ReversePostOrderBlockIteratorNext() {
		for instr := blk.InstrIteratorBegin(); instr != nil; instr = blk.InstrIteratorNext() {
			order = append(order, instrRecord{point: ProgramPoint(len(order)), instr: instr})
		}
	}

	intervals := map[VRegID]*interval{}
	observe := func(v VReg, p ProgramPoint) {
		if !v.Valid() {
			return
		}
		iv, ok := intervals[v.ID()]
		if !ok {
			iv = &interval{vreg: v, start: p, end: p}
			intervals[v.ID()] = iv
		}
		if p < iv.start {
			iv.start = p
		}
		if p > iv.end {
			iv.end = p
		}
	}
	for _, rec := range order {
		for _, d := range rec.instr.Defs() {
			observe(d, rec.point)
		}
		for _, u := range rec.instr.Uses() {
			observe(u, rec.point)
		}
	}

	var toAllocate []*interval
	freeSet := a.available
	for _, iv := range intervals {
		if iv.vreg.IsRealReg() {
			// Pinned by the front end (e.g. a fixed ABI register); reserve
			// its register for the whole function so the scan never hands
			// it to another VReg.
			freeSet = freeSet.remove(iv.vreg.RealReg())
			continue
		}
		toAllocate = append(toAllocate, iv)
	}
	sort.Slice(toAllocate, func(i, j int) bool { return toAllocate[i].start < toAllocate[j].start })

	spillSlots := 0
	var active []*interval
	for _, iv := range toAllocate {
		// Expire active intervals that ended before iv starts, freeing
		// their registers back into the pool.
		kept := active[:0]
		for _, act := range active {
			if act.end < iv.start {
				if !act.spill {
					freeSet = freeSet.add(act.reg)
				}
				continue
			}
			kept = append(kept, act)
		}
		active = kept

		if chosen, ok := lowestFree(freeSet); ok {
			freeSet = freeSet.remove(chosen)
			iv.reg = chosen
			iv.spill = false
			active = append(active, iv)
			continue
		}

		// No free register: spill whichever of iv or the active interval
		// with the furthest end point. This is the Poletto-Sarkar
		// furthest-next-use heuristic.
		var victim *interval
		for _, act := range active {
			if act.spill {
				continue
			}
			if victim == nil || act.end > victim.end {
				victim = act
			}
		}
		if victim != nil && victim.end > iv.end {
			iv.reg = victim.reg
			iv.spill = false
			victim.spill = true
			victim.slot = spillSlots
			spillSlots++
			active = append(active, iv)
		} else {
			iv.spill = true
			iv.slot = spillSlots
			spillSlots++
		}
	}

	a.insertSpillEdits(f, order, intervals)
	a.insertCallSaves(f, order, intervals)
	a.applyAssignments(order, intervals)

	f.ClobberedRegisters(a.clobberedCalleeSaved(intervals))
	f.Done(spillSlots)
	return spillSlots
}

// clobberedCalleeSaved reports, in ascending register order, every
// distinct callee-saved register the scan actually assigned to a live
// interval: a register in available but not in callerSaved. Grounded on
// the teacher's allocatedCalleeSavedRegs bookkeeping in
// backend/regalloc/regalloc.go, passed to Function.ClobberedRegisters for
// the frame layout computation, which needs it to size and fill the
// clobber-save area (spec.md §4.7).
func (a *Allocator) clobberedCalleeSaved(intervals map[VRegID]*interval) []VReg {
	var seen RegSet
	var out []VReg
	for _, iv := range intervals {
		if iv.vreg.IsRealReg() || iv.spill {
			continue
		}
		if a.callerSaved.has(iv.reg) || seen.has(iv.reg) {
			continue
		}
		seen = seen.add(iv.reg)
		out = append(out, iv.allocated())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RealReg() < out[j].RealReg() })
	return out
}

func lowestFree(s RegSet) (RealReg, bool) {
	found := false
	var r RealReg
	s.Range(func(candidate RealReg) {
		if !found {
			r = candidate
			found = true
		}
	})
	return r, found
}

// insertSpillEdits reloads every spilled VReg into the scratch register
// before each of its uses and stores it back after its defining
// instruction, realising the spill decisions Allocate made.
func (a *Allocator) insertSpillEdits(f Function, order []instrRecord, intervals map[VRegID]*interval) {
	for _, rec := range order {
		instr := rec.instr
		for _, d := range instr.Defs() {
			if !d.Valid() || d.IsRealReg() {
				continue
			}
			if iv := intervals[d.ID()]; iv.spill {
				f.StoreRegisterAfter(iv.spillVReg(a.scratch), instr)
			}
		}
		for _, u := range instr.Uses() {
			if !u.Valid() || u.IsRealReg() {
				continue
			}
			if iv := intervals[u.ID()]; iv.spill {
				f.ReloadRegisterBefore(iv.spillVReg(a.scratch), instr)
			}
		}
	}
}

// insertCallSaves honours contract property 2 (spec.md §4.6): no live
// VReg may be left in a caller-saved register across a call. For every
// call instruction, any register-resident interval that is live both
// before and after it gets saved before and reloaded after.
func (a *Allocator) insertCallSaves(f Function, order []instrRecord, intervals map[VRegID]*interval) {
	for _, rec := range order {
		if !rec.instr.IsCall() {
			continue
		}
		for _, iv := range intervals {
			if iv.vreg.IsRealReg() || iv.spill {
				continue
			}
			if !a.callerSaved.has(iv.reg) {
				continue
			}
			if iv.start < rec.point && iv.end > rec.point {
				assigned := iv.allocated()
				f.StoreRegisterBefore(assigned, rec.instr)
				f.ReloadRegisterAfter(assigned, rec.instr)
			}
		}
	}
}

func (a *Allocator) applyAssignments(order []instrRecord, intervals map[VRegID]*interval) {
	for _, rec := range order {
		instr := rec.instr

		for _, d := range instr.Defs() {
			if !d.Valid() || d.IsRealReg() {
				continue
			}
			iv := intervals[d.ID()]
			if iv.spill {
				instr.AssignDef(iv.spillVReg(a.scratch))
			} else {
				instr.AssignDef(iv.allocated())
			}
		}

		uses := instr.Uses()
		if len(uses) == 0 {
			continue
		}
		resolved := make([]VReg, len(uses))
		for i, u := range uses {
			if !u.Valid() || u.IsRealReg() {
				resolved[i] = u
				continue
			}
			iv := intervals[u.ID()]
			if iv.spill {
				resolved[i] = iv.spillVReg(a.scratch)
			} else {
				resolved[i] = iv.allocated()
			}
		}
		instr.AssignUses(resolved)
	}
}
