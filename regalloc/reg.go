// Package regalloc implements register allocation over an ISA-agnostic
// instruction stream: it consumes any type satisfying the Function/Block/
// Instr interfaces in api.go and produces an assignment of virtual
// registers to physical registers or spill slots plus the move/spill/
// reload edits needed to realise that assignment (spec.md §4.6).
package regalloc

import "fmt"

// VReg identifies a register: a 32-bit id packed with an optional RealReg
// (for registers pre-colored by the front end, e.g. fixed ABI registers)
// and a RegType. The packing scheme is grounded on the teacher's
// backend/regalloc.VReg, simplified to a single RegType since RV32 has no
// floating-point register file (spec.md §1 Non-goals).
type VReg uint64

// VRegID is the portion of a VReg that identifies it independent of any
// physical register assignment.
type VRegID uint32

const (
	vRegIDInvalid VRegID = 1<<31 - 1
	// VRegInvalid marks "no register": its id is the invalid id, so Valid
	// reports false; its RealReg and RegType bits are zero.
	VRegInvalid = VReg(vRegIDInvalid)

	// VRegIDReservedForRealNum reserves the low VRegID space for
	// FromRealReg, so a pinned VReg's id (which equals its RealReg
	// number) can never collide with a regular VReg's id. Grounded on
	// the teacher's backend/regalloc/reg.go, which reserves [0,128) the
	// same way; RV32 has only 32 real registers, so 64 leaves headroom.
	VRegIDReservedForRealNum VRegID = 64
)

// RegType distinguishes register files. RV32IMAC has a single integer
// file; RegType exists so the allocator's contract generalizes cleanly if
// a future ISA adds one.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	RegTypeInt
)

// String implements fmt.Stringer.
func (t RegType) String() string {
	switch t {
	case RegTypeInt:
		return "int"
	default:
		return "invalid"
	}
}

// RealReg represents a physical register, numbered per the target ISA's
// own register numbering (for RV32: x0..x31).
type RealReg byte

// RealRegInvalid marks a VReg with no physical register assigned yet.
const RealRegInvalid RealReg = 0xff

// NewVReg returns a fresh virtual register of the given id and type, with
// no RealReg assigned.
func NewVReg(id VRegID, typ RegType) VReg {
	return VReg(id) | VReg(typ)<<40 | VReg(RealRegInvalid)<<32
}

// FromRealReg returns a VReg pinned to a specific physical register, used
// to represent fixed ABI registers (argument/return registers) that the
// allocator must honour rather than choose.
func FromRealReg(r RealReg, typ RegType) VReg {
	return VReg(r) | VReg(typ)<<40 | VReg(r)<<32
}

// ID returns v's identifier, independent of any RealReg assignment.
func (v VReg) ID() VRegID { return VRegID(v & 0xffffffff) }

// RegType returns v's register class.
func (v VReg) RegType() RegType { return RegType(v >> 40) }

// RealReg returns v's assigned physical register, or RealRegInvalid.
func (v VReg) RealReg() RealReg { return RealReg(v >> 32) }

// IsRealReg reports whether v already has a physical register assigned.
func (v VReg) IsRealReg() bool { return v.RealReg() != RealRegInvalid }

// SetRealReg returns v with its RealReg replaced by r, used by the
// allocator to record its decision.
func (v VReg) SetRealReg(r RealReg) VReg {
	return VReg(r)<<32 | (v & 0xff_00_ffffffff)
}

// Valid reports whether v is a legal register reference.
func (v VReg) Valid() bool { return v.ID() != vRegIDInvalid }

// String implements fmt.Stringer.
func (v VReg) String() string {
	if v.IsRealReg() {
		return fmt.Sprintf("r%d", v.RealReg())
	}
	return fmt.Sprintf("v%d", v.ID())
}
