// Package accumulate implements the accumulation engine (spec §4.8,
// component C8): per-service invocation of the PVM `accumulate` export,
// the ImplicationsContext checkpoint/rollback pair, deferred-transfer
// dispatch, preimage provisioning, privileged-state updates, and
// always-access services.
//
// The checkpoint/rollback shape is grounded on the teacher's
// pkg/core/state/journal.go snapshot-id/revert-to-snapshot idiom,
// generalized per spec §9's explicit guidance to model the source's
// cyclic imX/imY pair as two owned values plus a commit/rollback
// primitive rather than a self-referential type: here imX is the live
// *State and imY is a deep-copy checkpoint, swapped in wholesale on
// rollback instead of replayed entry-by-entry.
package accumulate

import (
	"sort"

	"github.com/rotkonetworks/romio-sub004/pkg/account"
)

// Transfer is a deferred inter-service transfer enqueued by the
// `transfer` host call (spec §4.8 "Deferred transfers").
type Transfer struct {
	From   uint32
	Dest   uint32
	Amount uint64
	Gas    int64
	Memo   [128]byte
}

// Provision is an (service, blob) pair emitted by `accumulate`, applied
// at end-of-timeslot (spec §4.8 "Preimage provisioning").
type Provision struct {
	Service uint32
	Blob    []byte
}

// PrivilegedState holds the chain-wide roles and per-core assignment
// tables (spec §3 "Privileged state").
type PrivilegedState struct {
	Manager      uint32
	Delegator    uint32
	Registrar    uint32
	Assigners    map[uint16]uint32
	StagingSet   [][]byte
	AuthQueues   map[uint16][][32]byte
	AlwaysAccess map[uint32]int64 // service -> gas
}

func NewPrivilegedState() *PrivilegedState {
	return &PrivilegedState{
		Assigners:    make(map[uint16]uint32),
		AuthQueues:   make(map[uint16][][32]byte),
		AlwaysAccess: make(map[uint32]int64),
	}
}

func (p *PrivilegedState) clone() *PrivilegedState {
	c := &PrivilegedState{
		Manager:      p.Manager,
		Delegator:    p.Delegator,
		Registrar:    p.Registrar,
		Assigners:    make(map[uint16]uint32, len(p.Assigners)),
		AuthQueues:   make(map[uint16][][32]byte, len(p.AuthQueues)),
		AlwaysAccess: make(map[uint32]int64, len(p.AlwaysAccess)),
	}
	for k, v := range p.Assigners {
		c.Assigners[k] = v
	}
	for k, v := range p.AuthQueues {
		c.AuthQueues[k] = append([][32]byte(nil), v...)
	}
	for k, v := range p.AlwaysAccess {
		c.AlwaysAccess[k] = v
	}
	for _, s := range p.StagingSet {
		c.StagingSet = append(c.StagingSet, append([]byte(nil), s...))
	}
	return c
}

// State is the whole global account map plus privileged state and the
// queues an accumulate invocation may append to. One State value is
// imX or imY for a given ImplicationsContext; the accumulation engine
// owns the authoritative State between timeslots (spec §3 "Ownership").
type State struct {
	Accounts  map[uint32]*account.Account
	Privileged *PrivilegedState

	Transfers   []Transfer
	Provisions  []Provision
	Exports     [][]byte
	YieldHash   [32]byte

	nextServiceID uint32
}

func NewState() *State {
	return &State{
		Accounts:      make(map[uint32]*account.Account),
		Privileged:    NewPrivilegedState(),
		nextServiceID: 1 << 16, // MinPublicServiceID, spec §3
	}
}

// Clone deep-copies every account and queue (spec §4.8 step 2's
// deep-copy checkpoint).
func (s *State) Clone() *State {
	c := &State{
		Accounts:      make(map[uint32]*account.Account, len(s.Accounts)),
		Privileged:    s.Privileged.clone(),
		YieldHash:     s.YieldHash,
		nextServiceID: s.nextServiceID,
	}
	for id, a := range s.Accounts {
		c.Accounts[id] = a.Clone()
	}
	c.Transfers = append(c.Transfers, s.Transfers...)
	for _, p := range s.Provisions {
		c.Provisions = append(c.Provisions, Provision{Service: p.Service, Blob: append([]byte(nil), p.Blob...)})
	}
	for _, e := range s.Exports {
		c.Exports = append(c.Exports, append([]byte(nil), e...))
	}
	return c
}

// orderedServiceIDs returns account ids in canonical ascending order
// (spec §4.8 "Determinism": "map iteration must be sorted").
func (s *State) orderedServiceIDs() []uint32 {
	ids := make([]uint32, 0, len(s.Accounts))
	for id := range s.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
