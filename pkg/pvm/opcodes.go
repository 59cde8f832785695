package pvm

// OpCode identifies a PVM instruction. The concrete numeric assignment is
// this implementation's own (spec §4.5 does not fix exact opcode byte
// values the way it fixes the host-call id table in §6); what is
// normative, and implemented exactly, is the opcode-mask/skip-distance
// decoding discipline and the dispatch state machine around it.
type OpCode byte

const (
	OpTrap  OpCode = 0x00 // panic opcode (spec §4.5: "the only way a program exits normally" is halt; trap is the complement)
	OpHalt  OpCode = 0x01
	OpEcalli OpCode = 0x02

	OpLoadImm OpCode = 0x10 // li   rd, imm
	OpMove    OpCode = 0x11 // mov  rd, rs

	OpAdd  OpCode = 0x20
	OpSub  OpCode = 0x21
	OpAnd  OpCode = 0x22
	OpOr   OpCode = 0x23
	OpXor  OpCode = 0x24
	OpShl  OpCode = 0x25
	OpShr  OpCode = 0x26 // logical
	OpSar  OpCode = 0x27 // arithmetic
	OpMul  OpCode = 0x28
	OpDivU OpCode = 0x29
	OpDivS OpCode = 0x2A
	OpRemU OpCode = 0x2B
	OpRemS OpCode = 0x2C

	OpAddImm  OpCode = 0x30
	OpAndImm  OpCode = 0x31
	OpOrImm   OpCode = 0x32
	OpXorImm  OpCode = 0x33
	OpSltImm  OpCode = 0x34 // signed set-less-than immediate
	OpSltuImm OpCode = 0x35 // unsigned set-less-than immediate

	OpLoad8   OpCode = 0x40 // zero-extend
	OpLoad8S  OpCode = 0x41 // sign-extend
	OpLoad16  OpCode = 0x42
	OpLoad16S OpCode = 0x43
	OpLoad32  OpCode = 0x44
	OpLoad32S OpCode = 0x45
	OpLoad64  OpCode = 0x46
	OpStore8  OpCode = 0x47
	OpStore16 OpCode = 0x48
	OpStore32 OpCode = 0x49
	OpStore64 OpCode = 0x4A

	OpBeq  OpCode = 0x50
	OpBne  OpCode = 0x51
	OpBlt  OpCode = 0x52 // signed
	OpBge  OpCode = 0x53 // signed
	OpBltU OpCode = 0x54
	OpBgeU OpCode = 0x55
	OpJump OpCode = 0x56 // unconditional, target via jump table
)

// operandClass describes how an opcode's operand bytes (the run of 0-bits
// following it in the opcode mask) are structured: whether a register
// selector byte is present, and whether the instruction reads memory,
// branches via the jump table, or is a plain immediate/no-operand form.
type operandClass int

const (
	classNone      operandClass = iota // halt, trap: no operand bytes
	classHostCall                      // ecalli: immediate is the host-call id
	classRegImm                        // rd, imm  (li, addi, andi, ...)
	classRegReg                        // rd, rs    (mov)
	classRegRegReg                     // rd, rs1, rs2 (add, sub, ...) -- rd|rs1 in the first selector byte, rs2 in the low nibble of a second
	classMem                           // rd/rs, base(rb)+imm
	classBranch                        // rs1, rs2, jump-table index
)

type opInfo struct {
	class operandClass
	gas   int64
}

// opTable assigns each opcode its operand class and a fixed per-instruction gas cost (spec §4.5
// step 2: "Subtract that opcode's gas cost"). Costs are this
// implementation's own schedule; the protocol does not fix exact values in
// spec.md, only that every opcode has one and that the VM halts with
// out-of-gas once the running total goes negative.
var opTable = map[OpCode]opInfo{
	OpTrap:   {classNone, 0},
	OpHalt:   {classNone, 1},
	OpEcalli: {classHostCall, 10},

	OpLoadImm: {classRegImm, 1},
	OpMove:    {classRegReg, 1},

	OpAdd: {classRegRegReg, 1},
	OpSub: {classRegRegReg, 1},
	OpAnd: {classRegRegReg, 1},
	OpOr:  {classRegRegReg, 1},
	OpXor: {classRegRegReg, 1},
	OpShl: {classRegRegReg, 1},
	OpShr: {classRegRegReg, 1},
	OpSar: {classRegRegReg, 1},
	OpMul: {classRegRegReg, 3},
	OpDivU: {classRegRegReg, 4},
	OpDivS: {classRegRegReg, 4},
	OpRemU: {classRegRegReg, 4},
	OpRemS: {classRegRegReg, 4},

	OpAddImm:  {classRegImm, 1},
	OpAndImm:  {classRegImm, 1},
	OpOrImm:   {classRegImm, 1},
	OpXorImm:  {classRegImm, 1},
	OpSltImm:  {classRegImm, 1},
	OpSltuImm: {classRegImm, 1},

	OpLoad8:   {classMem, 2},
	OpLoad8S:  {classMem, 2},
	OpLoad16:  {classMem, 2},
	OpLoad16S: {classMem, 2},
	OpLoad32:  {classMem, 2},
	OpLoad32S: {classMem, 2},
	OpLoad64:  {classMem, 2},
	OpStore8:  {classMem, 2},
	OpStore16: {classMem, 2},
	OpStore32: {classMem, 2},
	OpStore64: {classMem, 2},

	OpBeq:  {classBranch, 1},
	OpBne:  {classBranch, 1},
	OpBlt:  {classBranch, 1},
	OpBge:  {classBranch, 1},
	OpBltU: {classBranch, 1},
	OpBgeU: {classBranch, 1},
	OpJump: {classBranch, 1},
}
