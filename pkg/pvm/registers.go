// Package pvm implements the Polka-style virtual machine (spec §4.3-§4.5,
// components C3-C5): the on-disk program blob parser, the page-granular
// memory map, and the register-file interpreter with gas metering and the
// host-call interrupt protocol.
//
// The dispatch loop follows the teacher's core/vm EVM interpreter
// (pkg/core/vm/interpreter.go): status is mutable state on the
// interpreter, checked after each step, rather than a Go error threaded
// through every opcode handler — this is what spec §10.2 (SPEC_FULL.md)
// calls out as the idiom to carry forward for PVM per-instruction failure.
package pvm

// NumRegisters is the width of the PVM register file (spec §6).
const NumRegisters = 13

// Register indices, per spec §6's register file table.
const (
	RA = iota // return address
	SP        // stack pointer
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
)
