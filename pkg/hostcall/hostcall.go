// Package hostcall implements the PVM host-call surface (spec §4.9,
// component C9): the fixed id -> handler table, the sentinel return-code
// convention (never a PVM status change), and the nested-guest-PVM calls.
//
// The handler-table-keyed-by-numeric-id shape is grounded on the
// teacher's pkg/core/vm/contract_call.go / dynamic_gas.go pattern of
// dispatching EVM CALL-family operations and their gas rules through a
// small fixed set of named operations; here the dispatch key is the
// host-call id instead of an opcode.
package hostcall

import (
	"github.com/rotkonetworks/romio-sub004/pkg/metrics"
	"github.com/rotkonetworks/romio-sub004/pkg/pvm"
)

// Code is a host-call sentinel return value (spec §4.9: "surfaced as
// well-known sentinel return codes ... never by status change"). The
// concrete numeric assignment is this implementation's own; spec.md
// fixes the names, not the wire values.
type Code uint64

const (
	OK   Code = 0
	HUH  Code = ^Code(0)       // 0xFFFF...FFFF
	WHAT Code = ^Code(0) - 1
	OOB  Code = ^Code(0) - 2
	WHO  Code = ^Code(0) - 3
	FULL Code = ^Code(0) - 4
	CORE Code = ^Code(0) - 5
	CASH Code = ^Code(0) - 6
	LOW  Code = ^Code(0) - 7
	HIGH Code = ^Code(0) - 8
)

// ID is a host-call identifier (spec §4.9's "stable numeric table"). Spec
// §9 fixes fetch=1 and export=7 as the values "key tests" rely on; the
// rest of the table is this implementation's own numbering.
type ID uint64

const (
	IDFetch ID = 1
	IDGas   ID = 2

	IDLookup ID = 10
	IDRead   ID = 11
	IDWrite  ID = 12
	IDInfo   ID = 13

	IDSolicit ID = 20
	IDForget  ID = 21
	IDProvide ID = 22

	IDTransfer ID = 30
	IDEject    ID = 31
	IDNew      ID = 32
	IDUpgrade  ID = 33

	IDExport ID = 7

	IDBless          ID = 40
	IDDesignate      ID = 41
	IDAssign         ID = 42
	IDAutoAccumulate ID = 43

	IDCheckpoint ID = 50
	IDYield      ID = 51

	IDMachine ID = 60
	IDInvoke  ID = 61
	IDExpunge ID = 62
)

// Context is the effect surface a host-call handler mutates: the
// implications context for one accumulate invocation (spec §4.8-§4.9).
// pkg/accumulate.ImplicationsContext implements this; hostcall does not
// import accumulate; to avoid a cycle, the dependency runs the other way
// (accumulate imports hostcall for Dispatch/Code/ID).
type Context interface {
	Gas() int64

	Lookup(service uint32, key []byte) ([]byte, bool)
	ReadSelf(key []byte) ([]byte, bool)
	WriteSelf(key, value []byte) error
	Info(service uint32) (codeHash [32]byte, balance uint64, ok bool)

	Solicit(hash [32]byte, length uint32) error
	Forget(hash [32]byte, length uint32) error
	Provide(service uint32, blob []byte) error

	Transfer(dest uint32, amount uint64, gas int64, memo [128]byte) error
	Eject(target uint32) error
	New(codeHash [32]byte, endowment uint64) (service uint32, err error)
	Upgrade(codeHash [32]byte) error

	Fetch(discriminator uint32, arg uint32) ([]byte, bool)

	Bless(manager uint32) error
	Designate(delegator uint32) error
	Assign(core uint16, queue [][32]byte) error
	AutoAccumulate(service uint32, gas int64) error

	Checkpoint()
	Yield(hash [32]byte)
	Export(data []byte) (index uint32, err error)

	Machine(program []byte) (handle uint32, err error)
	Invoke(handle uint32, gas int64) (pvmStatus uint8, err error)
	Expunge(handle uint32) error
}

// Handler reads its inputs from the interpreter's argument registers
// (A0..A5), performs its effect against ctx, and returns the word to
// place in the first result register (A0).
type Handler func(ctx Context, it *pvm.Interpreter) uint64

// Table is the fixed id -> handler mapping.
var Table = map[ID]Handler{
	IDFetch:          handleFetch,
	IDGas:            handleGas,
	IDLookup:         handleLookup,
	IDRead:           handleRead,
	IDWrite:          handleWrite,
	IDInfo:           handleInfo,
	IDSolicit:        handleSolicit,
	IDForget:         handleForget,
	IDProvide:        handleProvide,
	IDTransfer:       handleTransfer,
	IDEject:          handleEject,
	IDNew:            handleNew,
	IDUpgrade:        handleUpgrade,
	IDExport:         handleExport,
	IDBless:          handleBless,
	IDDesignate:      handleDesignate,
	IDAssign:         handleAssign,
	IDAutoAccumulate: handleAutoAccumulate,
	IDCheckpoint:     handleCheckpoint,
	IDYield:          handleYield,
	IDMachine:        handleMachine,
	IDInvoke:         handleInvoke,
	IDExpunge:        handleExpunge,
}

// Dispatch looks up it.HostCallID in Table and runs the handler, writing
// its result word into A0. Unknown ids write WHAT (spec §4.9: errors
// surface as sentinel codes, never as a PVM status change).
func Dispatch(ctx Context, it *pvm.Interpreter) {
	metrics.HostCallsDispatched.Inc()
	h, known := Table[ID(it.HostCallID)]
	if !known {
		it.Regs[pvm.A0] = uint64(WHAT)
		return
	}
	it.Regs[pvm.A0] = h(ctx, it)
}

func readBlob(it *pvm.Interpreter, addrReg, lenReg int) ([]byte, bool) {
	addr := uint32(it.Regs[addrReg])
	n := int(it.Regs[lenReg])
	if n < 0 {
		return nil, false
	}
	return it.Memory.ReadBytes(addr, n)
}

func hash32(b []byte) [32]byte {
	var h [32]byte
	copy(h[:], b)
	return h
}

func handleGas(ctx Context, it *pvm.Interpreter) uint64 {
	return uint64(ctx.Gas())
}

func handleLookup(ctx Context, it *pvm.Interpreter) uint64 {
	key, ok := readBlob(it, pvm.A1, pvm.A2)
	if !ok {
		return uint64(OOB)
	}
	v, found := ctx.Lookup(uint32(it.Regs[pvm.A0]), key)
	if !found {
		return uint64(WHO)
	}
	if !it.Memory.WriteBytes(uint32(it.Regs[pvm.A3]), v) {
		return uint64(OOB)
	}
	return uint64(len(v))
}

func handleRead(ctx Context, it *pvm.Interpreter) uint64 {
	key, ok := readBlob(it, pvm.A0, pvm.A1)
	if !ok {
		return uint64(OOB)
	}
	v, found := ctx.ReadSelf(key)
	if !found {
		return uint64(WHO)
	}
	if !it.Memory.WriteBytes(uint32(it.Regs[pvm.A2]), v) {
		return uint64(OOB)
	}
	return uint64(len(v))
}

func handleWrite(ctx Context, it *pvm.Interpreter) uint64 {
	key, ok := readBlob(it, pvm.A0, pvm.A1)
	if !ok {
		return uint64(OOB)
	}
	value, ok := readBlob(it, pvm.A2, pvm.A3)
	if !ok {
		return uint64(OOB)
	}
	if err := ctx.WriteSelf(key, value); err != nil {
		return uint64(CASH)
	}
	return uint64(OK)
}

func handleInfo(ctx Context, it *pvm.Interpreter) uint64 {
	codeHash, balance, ok := ctx.Info(uint32(it.Regs[pvm.A0]))
	if !ok {
		return uint64(WHO)
	}
	out := append(append([]byte(nil), codeHash[:]...), leUint64(balance)...)
	if !it.Memory.WriteBytes(uint32(it.Regs[pvm.A1]), out) {
		return uint64(OOB)
	}
	return uint64(OK)
}

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> uint(8*i))
	}
	return b
}

func handleSolicit(ctx Context, it *pvm.Interpreter) uint64 {
	hBytes, ok := it.Memory.ReadBytes(uint32(it.Regs[pvm.A0]), 32)
	if !ok {
		return uint64(OOB)
	}
	h := hash32(hBytes)
	if err := ctx.Solicit(h, uint32(it.Regs[pvm.A1])); err != nil {
		return uint64(HUH)
	}
	return uint64(OK)
}

func handleForget(ctx Context, it *pvm.Interpreter) uint64 {
	hBytes, ok := it.Memory.ReadBytes(uint32(it.Regs[pvm.A0]), 32)
	if !ok {
		return uint64(OOB)
	}
	h := hash32(hBytes)
	if err := ctx.Forget(h, uint32(it.Regs[pvm.A1])); err != nil {
		return uint64(HUH)
	}
	return uint64(OK)
}

func handleProvide(ctx Context, it *pvm.Interpreter) uint64 {
	blob, ok := readBlob(it, pvm.A1, pvm.A2)
	if !ok {
		return uint64(OOB)
	}
	if err := ctx.Provide(uint32(it.Regs[pvm.A0]), blob); err != nil {
		return uint64(HUH)
	}
	return uint64(OK)
}

func handleTransfer(ctx Context, it *pvm.Interpreter) uint64 {
	dest := uint32(it.Regs[pvm.A0])
	amount := it.Regs[pvm.A1]
	gas := int64(it.Regs[pvm.A2])
	memoBytes, ok := it.Memory.ReadBytes(uint32(it.Regs[pvm.A3]), 128)
	if !ok {
		return uint64(OOB)
	}
	var memo [128]byte
	copy(memo[:], memoBytes)
	if err := ctx.Transfer(dest, amount, gas, memo); err != nil {
		return uint64(CASH)
	}
	return uint64(OK)
}

func handleEject(ctx Context, it *pvm.Interpreter) uint64 {
	if err := ctx.Eject(uint32(it.Regs[pvm.A0])); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}

func handleNew(ctx Context, it *pvm.Interpreter) uint64 {
	hBytes, ok := it.Memory.ReadBytes(uint32(it.Regs[pvm.A0]), 32)
	if !ok {
		return uint64(OOB)
	}
	service, err := ctx.New(hash32(hBytes), it.Regs[pvm.A1])
	if err != nil {
		return uint64(CASH)
	}
	return uint64(service)
}

func handleUpgrade(ctx Context, it *pvm.Interpreter) uint64 {
	hBytes, ok := it.Memory.ReadBytes(uint32(it.Regs[pvm.A0]), 32)
	if !ok {
		return uint64(OOB)
	}
	if err := ctx.Upgrade(hash32(hBytes)); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}

func handleFetch(ctx Context, it *pvm.Interpreter) uint64 {
	discriminator := uint32(it.Regs[pvm.A0])
	arg := uint32(it.Regs[pvm.A1])
	v, ok := ctx.Fetch(discriminator, arg)
	if !ok {
		return uint64(WHAT)
	}
	if !it.Memory.WriteBytes(uint32(it.Regs[pvm.A2]), v) {
		return uint64(OOB)
	}
	return uint64(len(v))
}

func handleExport(ctx Context, it *pvm.Interpreter) uint64 {
	data, ok := readBlob(it, pvm.A0, pvm.A1)
	if !ok {
		return uint64(OOB)
	}
	index, err := ctx.Export(data)
	if err != nil {
		return uint64(FULL)
	}
	return uint64(index)
}

func handleAutoAccumulate(ctx Context, it *pvm.Interpreter) uint64 {
	service := uint32(it.Regs[pvm.A0])
	gas := int64(it.Regs[pvm.A1])
	if err := ctx.AutoAccumulate(service, gas); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}

func handleBless(ctx Context, it *pvm.Interpreter) uint64 {
	if err := ctx.Bless(uint32(it.Regs[pvm.A0])); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}

func handleDesignate(ctx Context, it *pvm.Interpreter) uint64 {
	if err := ctx.Designate(uint32(it.Regs[pvm.A0])); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}

func handleAssign(ctx Context, it *pvm.Interpreter) uint64 {
	if err := ctx.Assign(uint16(it.Regs[pvm.A0]), nil); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}

func handleCheckpoint(ctx Context, it *pvm.Interpreter) uint64 {
	ctx.Checkpoint()
	return uint64(OK)
}

func handleYield(ctx Context, it *pvm.Interpreter) uint64 {
	hBytes, ok := it.Memory.ReadBytes(uint32(it.Regs[pvm.A0]), 32)
	if !ok {
		return uint64(OOB)
	}
	ctx.Yield(hash32(hBytes))
	return uint64(OK)
}

func handleMachine(ctx Context, it *pvm.Interpreter) uint64 {
	blob, ok := readBlob(it, pvm.A0, pvm.A1)
	if !ok {
		return uint64(OOB)
	}
	handle, err := ctx.Machine(blob)
	if err != nil {
		return uint64(FULL)
	}
	return uint64(handle)
}

func handleInvoke(ctx Context, it *pvm.Interpreter) uint64 {
	handle := uint32(it.Regs[pvm.A0])
	gas := int64(it.Regs[pvm.A1])
	status, err := ctx.Invoke(handle, gas)
	if err != nil {
		return uint64(WHO)
	}
	return uint64(status)
}

func handleExpunge(ctx Context, it *pvm.Interpreter) uint64 {
	if err := ctx.Expunge(uint32(it.Regs[pvm.A0])); err != nil {
		return uint64(WHO)
	}
	return uint64(OK)
}
