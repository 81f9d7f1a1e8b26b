// Package rvapi holds cross-cutting constants and small pooling utilities
// (Pool backs the ir package's block and instruction allocation), the way
// the teacher's wazevoapi package backs internal/engine/wazevo. It exists
// so debugging knobs live in one place instead of scattered across files.
package rvapi

// These consts name debug-tracing switches, mirroring the teacher's
// wazevoapi/debug_consts.go; there is no environment-variable or flag
// plumbing to set them. No package in this module reads any of them, so
// flipping one has no effect on compilation or output.
const (
	// SSALoggingEnabled names tracing of the verifier and fixedpoint passes.
	SSALoggingEnabled = false
	// RegAllocLoggingEnabled names tracing of the linear-scan allocator's
	// interval computation and assignment decisions.
	RegAllocLoggingEnabled = false
	// PrintLoweredVCode names printing of the VCode textual form after
	// lowering, before register allocation.
	PrintLoweredVCode = false
	// PrintFinalizedMachineCode names printing of the emitted machine code
	// listing after relocation resolution.
	PrintFinalizedMachineCode = false
)

// This const names an internal self-check switch, defaulting to enabled
// the way the teacher's SSAValidationEnabled/RegAllocValidationEnabled do.
// No package in this module reads it: no post-allocation re-verification
// runs, whatever its value.
const (
	// RegAllocValidationEnabled names re-verification of allocation
	// correctness (spec.md §8 "Allocation correctness") after each
	// function's allocation.
	RegAllocValidationEnabled = true
)
