// Package account implements the service-account data model (spec §3,
// §4.7, component C7): account fields, the preimage request state
// machine, the min-balance invariant, and storage/octet accounting.
//
// The changelog/snapshot shape follows the teacher's
// pkg/core/state/state_object.go: the balance, code-hash and storage
// mutators record a reversible change before applying it, so a failed
// mutation can be rolled back to a prior snapshot without a deep copy.
// The preimage-request mutators (Solicit, Forget, Provide) record nothing
// on the changelog.
package account

import (
	"errors"

	"github.com/rotkonetworks/romio-sub004/pkg/protocol"
)

// ErrInsufficientFunds is returned by mutators that would leave the
// account insolvent (spec §4.7: "preserve the min-balance invariant or
// fail with insufficient_funds").
var ErrInsufficientFunds = errors.New("account: insufficient funds")

// Hash is a Blake2b-256 digest, used as both preimage key and service
// content address.
type Hash [32]byte

// StorageKey is an opaque service-defined storage key.
type StorageKey string

// Account is a single service's persisted state (spec §3 "Service
// account").
type Account struct {
	CodeHash Hash

	Storage   map[StorageKey][]byte
	Preimages map[Hash][]byte
	Requests  map[RequestKey]*PreimageRequest

	Balance    uint64
	MinAccGas  int64
	MinMemoGas int64
	Gratis     uint64

	changelog []change
}

// New creates an empty account with the given code hash and initial
// endowment, as installed by the `new` host call.
func New(codeHash Hash, endowment uint64) *Account {
	return &Account{
		CodeHash:  codeHash,
		Storage:   make(map[StorageKey][]byte),
		Preimages: make(map[Hash][]byte),
		Requests:  make(map[RequestKey]*PreimageRequest),
		Balance:   endowment,
	}
}

// changeKind identifies a reversible mutation recorded on the changelog.
type changeKind uint8

const (
	changeBalance changeKind = iota
	changeCodeHash
	changeStorageSet
	changeStorageDelete
)

type change struct {
	kind       changeKind
	prevBal    uint64
	prevHash   Hash
	key        StorageKey
	prevVal    []byte
	prevExists bool
}

// Snapshot returns a revert point: the current changelog length.
func (a *Account) Snapshot() int { return len(a.changelog) }

// RevertTo undoes every mutation recorded since snapshot, in reverse
// order. SubBalance and WriteSelf use it to undo a mutation that would
// leave the account insolvent; accumulation's imY rollback uses a
// deep-copied State instead.
func (a *Account) RevertTo(snapshot int) {
	for i := len(a.changelog) - 1; i >= snapshot; i-- {
		c := a.changelog[i]
		switch c.kind {
		case changeBalance:
			a.Balance = c.prevBal
		case changeCodeHash:
			a.CodeHash = c.prevHash
		case changeStorageSet, changeStorageDelete:
			if c.prevExists {
				a.Storage[c.key] = c.prevVal
			} else {
				delete(a.Storage, c.key)
			}
		}
	}
	a.changelog = a.changelog[:snapshot]
}

// Clone returns a deep copy, used to build the imY checkpoint at the
// start of an accumulation invocation (spec §4.8 step 2).
func (a *Account) Clone() *Account {
	clone := &Account{
		CodeHash:   a.CodeHash,
		Storage:    make(map[StorageKey][]byte, len(a.Storage)),
		Preimages:  make(map[Hash][]byte, len(a.Preimages)),
		Requests:   make(map[RequestKey]*PreimageRequest, len(a.Requests)),
		Balance:    a.Balance,
		MinAccGas:  a.MinAccGas,
		MinMemoGas: a.MinMemoGas,
		Gratis:     a.Gratis,
	}
	for k, v := range a.Storage {
		clone.Storage[k] = append([]byte(nil), v...)
	}
	for k, v := range a.Preimages {
		clone.Preimages[k] = append([]byte(nil), v...)
	}
	for k, v := range a.Requests {
		cp := *v
		cp.slots = append([]uint64(nil), v.slots...)
		clone.Requests[k] = &cp
	}
	return clone
}

// SetStorage writes key=value, recording the prior value for revert.
func (a *Account) SetStorage(key StorageKey, value []byte) {
	prev, existed := a.Storage[key]
	a.changelog = append(a.changelog, change{kind: changeStorageSet, key: key, prevVal: prev, prevExists: existed})
	a.Storage[key] = value
}

// DeleteStorage removes key, recording the prior value for revert.
func (a *Account) DeleteStorage(key StorageKey) {
	prev, existed := a.Storage[key]
	if !existed {
		return
	}
	a.changelog = append(a.changelog, change{kind: changeStorageDelete, key: key, prevVal: prev, prevExists: true})
	delete(a.Storage, key)
}

// SetCodeHash replaces the code hash (the `upgrade` host call).
func (a *Account) SetCodeHash(h Hash) {
	a.changelog = append(a.changelog, change{kind: changeCodeHash, prevHash: a.CodeHash})
	a.CodeHash = h
}

// items and octets implement spec §3's min-balance inputs:
// items = 2*|requests| + |storage|
// octets = sum(81+length over requests) + sum(34+|k|+|v| over storage)
func (a *Account) items() uint64 {
	return uint64(2*len(a.Requests) + len(a.Storage))
}

func (a *Account) octets() uint64 {
	var n uint64
	for _, req := range a.Requests {
		n += 81 + uint64(req.Length)
	}
	for k, v := range a.Storage {
		n += 34 + uint64(len(k)) + uint64(len(v))
	}
	return n
}

// MinBalance computes max(0, BS + BI*items + BL*octets - gratis) (spec
// §3's min-balance invariant).
func (a *Account) MinBalance() uint64 {
	cost := protocol.BalanceStorageBase +
		protocol.BalanceStorageItem*a.items() +
		protocol.BalanceStorageByte*a.octets()
	if cost <= a.Gratis {
		return 0
	}
	return cost - a.Gratis
}

// Solvent reports whether balance >= min_balance.
func (a *Account) Solvent() bool {
	return a.Balance >= a.MinBalance()
}

// AddBalance credits amount, recording the prior value for revert.
func (a *Account) AddBalance(amount uint64) {
	a.changelog = append(a.changelog, change{kind: changeBalance, prevBal: a.Balance})
	a.Balance += amount
}

// SubBalance debits amount if doing so would leave the account solvent,
// otherwise returns ErrInsufficientFunds and leaves the account
// unchanged (spec §4.7, invariant 1 in spec §8).
func (a *Account) SubBalance(amount uint64) error {
	if amount > a.Balance {
		return ErrInsufficientFunds
	}
	snap := a.Snapshot()
	a.changelog = append(a.changelog, change{kind: changeBalance, prevBal: a.Balance})
	a.Balance -= amount
	if !a.Solvent() {
		a.RevertTo(snap)
		return ErrInsufficientFunds
	}
	return nil
}
