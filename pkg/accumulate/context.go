package accumulate

import (
	"errors"

	"github.com/rotkonetworks/romio-sub004/pkg/account"
	"github.com/rotkonetworks/romio-sub004/pkg/protocol"
	"github.com/rotkonetworks/romio-sub004/pkg/pvm"
)

var (
	errNotPrivileged = errors.New("accumulate: not privileged")
	errNoSuchService = errors.New("accumulate: no such service")
	errFull          = errors.New("accumulate: no free machine handle")
)

// nestedMachine is one guest PVM created by the `machine` host call (spec
// §4.9 "machine / invoke / expunge: create, step, destroy nested guest
// PVM"). Per spec §6 "Ownership", its memory is fully disjoint from the
// parent's.
type nestedMachine struct {
	interp *pvm.Interpreter
}

// ImplicationsContext is imX: the live, mutable view an invoked service's
// accumulate export runs against (spec §3 "Ownership", §4.8). It
// implements hostcall.Context so the interpreter's ecalli dispatch can
// drive it directly.
type ImplicationsContext struct {
	state *State
	self  uint32
	slot  uint64

	interp *pvm.Interpreter

	nested     map[uint32]*nestedMachine
	nextHandle uint32

	checkpoint *State // imY
}

// NewImplicationsContext builds imX over state for an invocation of
// service self at the given timeslot, with imY seeded as an immediate
// deep-copy checkpoint (spec §4.8 step 2).
func NewImplicationsContext(state *State, self uint32, slot uint64) *ImplicationsContext {
	return &ImplicationsContext{
		state:      state,
		self:       self,
		slot:       slot,
		nested:     make(map[uint32]*nestedMachine),
		checkpoint: state.Clone(),
	}
}

// Bind attaches the interpreter currently running this context's PVM
// instance, so Gas() reflects its live remaining-gas counter.
func (ic *ImplicationsContext) Bind(it *pvm.Interpreter) { ic.interp = it }

// Commit is called on halt: imX (ic.state, mutated in place already)
// becomes authoritative, no-op beyond returning it.
func (ic *ImplicationsContext) Commit() *State { return ic.state }

// Rollback is called on panic/out-of-gas/fault: imY replaces imX (spec
// §4.8 step 6). If `checkpoint` was never updated by an explicit
// `checkpoint` host call, it is still the construction-time deep copy,
// so every effect of this invocation is undone.
func (ic *ImplicationsContext) Rollback() *State { return ic.checkpoint }

func (ic *ImplicationsContext) account(id uint32) (*account.Account, bool) {
	a, ok := ic.state.Accounts[id]
	return a, ok
}

func (ic *ImplicationsContext) selfAccount() *account.Account {
	a, ok := ic.state.Accounts[ic.self]
	if !ok {
		panic("accumulate: implications context invoked for an absent account")
	}
	return a
}

// Gas satisfies hostcall.Context.
func (ic *ImplicationsContext) Gas() int64 {
	if ic.interp == nil {
		return 0
	}
	return ic.interp.Gas
}

func (ic *ImplicationsContext) Lookup(service uint32, key []byte) ([]byte, bool) {
	a, ok := ic.account(service)
	if !ok {
		return nil, false
	}
	v, found := a.Storage[account.StorageKey(key)]
	return v, found
}

func (ic *ImplicationsContext) ReadSelf(key []byte) ([]byte, bool) {
	return ic.Lookup(ic.self, key)
}

func (ic *ImplicationsContext) WriteSelf(key, value []byte) error {
	a := ic.selfAccount()
	snap := a.Snapshot()
	a.SetStorage(account.StorageKey(key), value)
	if !a.Solvent() {
		a.RevertTo(snap)
		return account.ErrInsufficientFunds
	}
	return nil
}

func (ic *ImplicationsContext) Info(service uint32) ([32]byte, uint64, bool) {
	a, ok := ic.account(service)
	if !ok {
		return [32]byte{}, 0, false
	}
	return [32]byte(a.CodeHash), a.Balance, true
}

func (ic *ImplicationsContext) Solicit(hash [32]byte, length uint32) error {
	return ic.selfAccount().Solicit(account.Hash(hash), length, ic.slot)
}

func (ic *ImplicationsContext) Forget(hash [32]byte, length uint32) error {
	return ic.selfAccount().Forget(account.Hash(hash), length, ic.slot, ic.expiry())
}

func (ic *ImplicationsContext) Provide(service uint32, blob []byte) error {
	ic.state.Provisions = append(ic.state.Provisions, Provision{Service: service, Blob: blob})
	return nil
}

func (ic *ImplicationsContext) expiry() uint32 {
	return protocol.DefaultParams().Expiry()
}

func (ic *ImplicationsContext) Transfer(dest uint32, amount uint64, gas int64, memo [128]byte) error {
	from := ic.selfAccount()
	if err := from.SubBalance(amount); err != nil {
		return err
	}
	ic.state.Transfers = append(ic.state.Transfers, Transfer{From: ic.self, Dest: dest, Amount: amount, Gas: gas, Memo: memo})
	return nil
}

func (ic *ImplicationsContext) Eject(target uint32) error {
	if target == ic.self {
		return errNotPrivileged
	}
	victim, ok := ic.account(target)
	if !ok {
		return errNoSuchService
	}
	if len(victim.Requests) > 0 {
		return errNotPrivileged
	}
	delete(ic.state.Accounts, target)
	return nil
}

func (ic *ImplicationsContext) New(codeHash [32]byte, endowment uint64) (uint32, error) {
	self := ic.selfAccount()
	if err := self.SubBalance(endowment); err != nil {
		return 0, err
	}
	id := ic.state.nextServiceID
	ic.state.nextServiceID++
	ic.state.Accounts[id] = account.New(account.Hash(codeHash), endowment)
	return id, nil
}

func (ic *ImplicationsContext) Upgrade(codeHash [32]byte) error {
	ic.selfAccount().SetCodeHash(account.Hash(codeHash))
	return nil
}

// Fetch reads an environment blob by discriminator (spec §4.9: "entropy,
// config, work package, recent blocks"). Concrete sourcing of these
// blobs is owned by the block-production layer (out of scope, spec §1);
// this context exposes the hook point, returning not-found until wired
// by an embedder.
func (ic *ImplicationsContext) Fetch(discriminator, arg uint32) ([]byte, bool) {
	return nil, false
}

func (ic *ImplicationsContext) Bless(manager uint32) error {
	if ic.self != ic.state.Privileged.Manager {
		return errNotPrivileged
	}
	ic.state.Privileged.Manager = manager
	return nil
}

func (ic *ImplicationsContext) Designate(delegator uint32) error {
	if ic.self != ic.state.Privileged.Delegator {
		return errNotPrivileged
	}
	ic.state.Privileged.Delegator = delegator
	return nil
}

func (ic *ImplicationsContext) Assign(core uint16, queue [][32]byte) error {
	if ic.self != ic.state.Privileged.Assigners[core] {
		return errNotPrivileged
	}
	ic.state.Privileged.AuthQueues[core] = queue
	return nil
}

func (ic *ImplicationsContext) AutoAccumulate(service uint32, gas int64) error {
	if ic.self != ic.state.Privileged.Registrar && ic.self != ic.state.Privileged.Manager {
		return errNotPrivileged
	}
	ic.state.Privileged.AlwaysAccess[service] = gas
	return nil
}

// Checkpoint copies imX into imY (spec §4.9 "checkpoint: copy imX into
// imY").
func (ic *ImplicationsContext) Checkpoint() {
	ic.checkpoint = ic.state.Clone()
}

func (ic *ImplicationsContext) Yield(hash [32]byte) {
	ic.state.YieldHash = hash
}

func (ic *ImplicationsContext) Export(data []byte) (uint32, error) {
	ic.state.Exports = append(ic.state.Exports, append([]byte(nil), data...))
	return uint32(len(ic.state.Exports) - 1), nil
}

func (ic *ImplicationsContext) Machine(program []byte) (uint32, error) {
	prog, err := pvm.Parse(program)
	if err != nil {
		return 0, err
	}
	handle := ic.nextHandle
	ic.nextHandle++
	if _, exists := ic.nested[handle]; exists {
		return 0, errFull
	}
	ic.nested[handle] = &nestedMachine{interp: pvm.New(prog, 0)}
	return handle, nil
}

func (ic *ImplicationsContext) Invoke(handle uint32, gas int64) (uint8, error) {
	m, ok := ic.nested[handle]
	if !ok {
		return 0, errNoSuchService
	}
	// Gas charged to the parent at the invoke boundary (spec §9: "gas
	// charged to parent at invoke boundary").
	parent := ic.interp
	if parent != nil {
		parent.Gas -= gas
	}
	m.interp.Gas = gas
	m.interp.Status = pvm.StatusContinue
	m.interp.Run(1<<20, nil)
	return uint8(m.interp.Status), nil
}

func (ic *ImplicationsContext) Expunge(handle uint32) error {
	if _, ok := ic.nested[handle]; !ok {
		return errNoSuchService
	}
	delete(ic.nested, handle)
	return nil
}
