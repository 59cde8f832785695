package pvm

import "github.com/rotkonetworks/romio-sub004/pkg/metrics"

// Status is the PVM's execution status (spec §4.5, §6). Status lives as
// mutable state on the Interpreter and is checked by the caller after each
// Step, rather than flowing out as a Go error -- see SPEC_FULL.md §10.2.
type Status uint8

const (
	StatusHalt      Status = 0
	StatusPanic     Status = 1
	StatusOutOfGas  Status = 2
	StatusFault     Status = 3
	StatusHost      Status = 4
	StatusStepTrace Status = 5

	// StatusContinue is this implementation's internal "still running"
	// sentinel. It has no wire representation; Step leaves it in place
	// while the program is still running, so Run returns with it only
	// when maxSteps is reached.
	StatusContinue Status = 255
)

// Interpreter is one PVM instance: a program, a scoped memory view, the
// register file, gas counter, and current status (spec §3 "PVM state").
type Interpreter struct {
	Program *Program
	Memory  *Memory
	Regs    [NumRegisters]uint64
	PC      uint32
	Gas     int64
	Status  Status

	// HostCallID records the id passed to the most recent ecalli, valid
	// only while Status == StatusHost.
	HostCallID uint64

	// pendingSkip is the skip distance of the ecalli instruction at PC,
	// needed by ResumeAfterHostCall to advance past it (spec §4.5
	// "Host-call re-entry").
	pendingSkip int
}

// New creates an Interpreter over program with gas as the starting budget,
// registers zeroed except SP (initialized to the top of the stack region)
// and RA (initialized to the stack sentinel, so a top-level "return"
// naturally terminates execution rather than jumping into unmapped
// memory).
func New(program *Program, gas int64) *Interpreter {
	mem := NewMemory(program)
	it := &Interpreter{Program: program, Memory: mem, Gas: gas, Status: StatusContinue}
	it.Regs[SP] = uint64(mem.StackPointer())
	it.Regs[RA] = uint64(StackSentinel)
	return it
}

// Step executes exactly one instruction, or performs the host-call
// interrupt hand-off (spec §4.5's dispatch algorithm). It is a no-op once
// Status is no longer StatusContinue.
func (it *Interpreter) Step() {
	if it.Status != StatusContinue {
		return
	}
	pc := int(it.PC)
	if pc < 0 || pc >= len(it.Program.Code) || !it.Program.maskBit(pc) {
		it.Status = StatusFault
		return
	}

	d := it.Program.decodeAt(pc)
	if !d.valid {
		it.Status = StatusFault
		return
	}

	info := opTable[d.op]
	it.Gas -= info.gas
	if it.Gas < 0 {
		it.Status = StatusOutOfGas
		return
	}

	if d.op == OpEcalli {
		it.HostCallID = uint64(d.imm)
		it.pendingSkip = d.skip
		it.Status = StatusHost
		return
	}

	// Fall through to the next instruction unless execute transfers control
	// (jumpTo overwrites PC); a terminal status leaves PC on this instruction.
	pc0 := it.PC
	it.PC += uint32(1 + d.skip)
	it.execute(d)
	if it.Status != StatusContinue {
		it.PC = pc0
	}
}

// ResumeAfterHostCall is called by the host-call dispatcher once it has
// handled the interrupt recorded in HostCallID. It advances PC past the
// ecalli encoding and returns to StatusContinue (spec §4.5, §9: the VM
// "must advance PC past the ecalli only after the host handler runs").
func (it *Interpreter) ResumeAfterHostCall() {
	if it.Status != StatusHost {
		return
	}
	it.PC += uint32(1 + it.pendingSkip)
	it.Status = StatusContinue
}

// Run steps the interpreter until it leaves StatusContinue or maxSteps
// steps have executed, invoking handleHost (if non-nil) and resuming past
// each ecalli automatically. It returns the number of steps executed.
func (it *Interpreter) Run(maxSteps int, handleHost func(*Interpreter)) int {
	n := 0
	for n < maxSteps && it.Status == StatusContinue {
		it.Step()
		n++
		if it.Status == StatusHost {
			if handleHost != nil {
				handleHost(it)
			}
			it.ResumeAfterHostCall()
		}
	}
	metrics.InstructionsExecuted.Add(int64(n))
	return n
}

func (it *Interpreter) execute(d decoded) {
	switch d.op {
	case OpHalt:
		it.Status = StatusHalt
	case OpTrap:
		it.Status = StatusPanic

	case OpLoadImm:
		it.Regs[d.regs[0]] = uint64(d.imm)
	case OpMove:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]]

	case OpAdd:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] + it.Regs[d.regs[2]]
	case OpSub:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] - it.Regs[d.regs[2]]
	case OpAnd:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] & it.Regs[d.regs[2]]
	case OpOr:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] | it.Regs[d.regs[2]]
	case OpXor:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] ^ it.Regs[d.regs[2]]
	case OpShl:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] << (it.Regs[d.regs[2]] & 63)
	case OpShr:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] >> (it.Regs[d.regs[2]] & 63)
	case OpSar:
		it.Regs[d.regs[0]] = uint64(int64(it.Regs[d.regs[1]]) >> (it.Regs[d.regs[2]] & 63))
	case OpMul:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] * it.Regs[d.regs[2]]
	case OpDivU:
		a, b := it.Regs[d.regs[1]], it.Regs[d.regs[2]]
		if b == 0 {
			it.Regs[d.regs[0]] = ^uint64(0)
		} else {
			it.Regs[d.regs[0]] = a / b
		}
	case OpDivS:
		a, b := int64(it.Regs[d.regs[1]]), int64(it.Regs[d.regs[2]])
		switch {
		case b == 0:
			it.Regs[d.regs[0]] = ^uint64(0) // -1 as two's complement
		case a == minInt64 && b == -1:
			it.Regs[d.regs[0]] = uint64(a) // signed overflow wraps
		default:
			it.Regs[d.regs[0]] = uint64(a / b)
		}
	case OpRemU:
		a, b := it.Regs[d.regs[1]], it.Regs[d.regs[2]]
		if b == 0 {
			it.Regs[d.regs[0]] = a
		} else {
			it.Regs[d.regs[0]] = a % b
		}
	case OpRemS:
		a, b := int64(it.Regs[d.regs[1]]), int64(it.Regs[d.regs[2]])
		switch {
		case b == 0:
			it.Regs[d.regs[0]] = uint64(a)
		case a == minInt64 && b == -1:
			it.Regs[d.regs[0]] = 0
		default:
			it.Regs[d.regs[0]] = uint64(a % b)
		}

	case OpAddImm:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] + uint64(d.imm)
	case OpAndImm:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] & uint64(d.imm)
	case OpOrImm:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] | uint64(d.imm)
	case OpXorImm:
		it.Regs[d.regs[0]] = it.Regs[d.regs[1]] ^ uint64(d.imm)
	case OpSltImm:
		if int64(it.Regs[d.regs[1]]) < d.imm {
			it.Regs[d.regs[0]] = 1
		} else {
			it.Regs[d.regs[0]] = 0
		}
	case OpSltuImm:
		if it.Regs[d.regs[1]] < uint64(d.imm) {
			it.Regs[d.regs[0]] = 1
		} else {
			it.Regs[d.regs[0]] = 0
		}

	case OpLoad8, OpLoad8S, OpLoad16, OpLoad16S, OpLoad32, OpLoad32S, OpLoad64:
		it.execLoad(d)
	case OpStore8, OpStore16, OpStore32, OpStore64:
		it.execStore(d)

	case OpBeq, OpBne, OpBlt, OpBge, OpBltU, OpBgeU:
		it.execBranch(d)
	case OpJump:
		it.jumpTo(int(d.imm))

	default:
		it.Status = StatusFault
	}
}

const minInt64 = -1 << 63

func loadWidth(op OpCode) (width int, signExt bool) {
	switch op {
	case OpLoad8:
		return 1, false
	case OpLoad8S:
		return 1, true
	case OpLoad16:
		return 2, false
	case OpLoad16S:
		return 2, true
	case OpLoad32:
		return 4, false
	case OpLoad32S:
		return 4, true
	case OpLoad64:
		return 8, false
	}
	return 0, false
}

func storeWidth(op OpCode) int {
	switch op {
	case OpStore8:
		return 1
	case OpStore16:
		return 2
	case OpStore32:
		return 4
	case OpStore64:
		return 8
	}
	return 0
}

func (it *Interpreter) execLoad(d decoded) {
	width, signExt := loadWidth(d.op)
	addr := uint32(int64(it.Regs[d.regs[1]]) + d.imm)
	v, ok := it.Memory.Read(addr, width)
	if !ok {
		it.Status = StatusFault
		return
	}
	if signExt {
		shift := uint(64 - 8*width)
		v = uint64(int64(v<<shift) >> shift)
	}
	it.Regs[d.regs[0]] = v
}

func (it *Interpreter) execStore(d decoded) {
	width := storeWidth(d.op)
	addr := uint32(int64(it.Regs[d.regs[1]]) + d.imm)
	if !it.Memory.Write(addr, width, it.Regs[d.regs[0]]) {
		it.Status = StatusFault
	}
}

func (it *Interpreter) execBranch(d decoded) {
	a, b := it.Regs[d.regs[0]], it.Regs[d.regs[1]]
	var taken bool
	switch d.op {
	case OpBeq:
		taken = a == b
	case OpBne:
		taken = a != b
	case OpBlt:
		taken = int64(a) < int64(b)
	case OpBge:
		taken = int64(a) >= int64(b)
	case OpBltU:
		taken = a < b
	case OpBgeU:
		taken = a >= b
	}
	if taken {
		it.jumpTo(int(d.imm))
	}
}

// jumpTo resolves a jump-table index to a code address (spec §4.5:
// "Branches compute target by reading the jump table at an index derived
// from the immediate (not an absolute PC)") and validates that the target
// is an instruction head before transferring control.
func (it *Interpreter) jumpTo(index int) {
	if index < 0 || index >= len(it.Program.JumpTable) {
		it.Status = StatusFault
		return
	}
	target := it.Program.JumpTable[index]
	if !it.Program.maskBit(int(target)) {
		it.Status = StatusFault
		return
	}
	it.PC = target
}
