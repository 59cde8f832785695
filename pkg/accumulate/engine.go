package accumulate

import (
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/rotkonetworks/romio-sub004/pkg/codec"
	"github.com/rotkonetworks/romio-sub004/pkg/hostcall"
	"github.com/rotkonetworks/romio-sub004/pkg/log"
	"github.com/rotkonetworks/romio-sub004/pkg/metrics"
	"github.com/rotkonetworks/romio-sub004/pkg/pvm"
)

var logger = log.Default().Module("accumulate")

// WorkResult is one refined work item's accumulate input (spec §4.8:
// "encoded inputs (service id, timeslot, list of work results)").
type WorkResult struct {
	ServiceID uint32
	Payload   []byte
	GasLimit  int64
}

// Report groups the work results destined for one service, in the
// canonical order the batch arrived in (spec §4.8 "Input").
type Report struct {
	ServiceID uint32
	Results   []WorkResult
}

// inputAddr is the fixed RW address accumulate/on_transfer inputs are
// written to before invocation; entry code reads its arguments from
// here via A0 (address) / A1 (length), a convention this implementation
// defines since spec.md does not fix a calling convention beyond "the
// accumulate export".
const inputAddr = 0x00020000

// encodeInputs canonically encodes (service, timeslot, results) using
// pkg/codec (spec §9 "Encoding determinism": declaration-order fields,
// compact-nat or fixed-width as declared).
func encodeInputs(service uint32, slot uint64, results []WorkResult) []byte {
	w := codec.NewWriter()
	w.Nat(uint64(service)).Nat(slot).Nat(uint64(len(results)))
	for _, r := range results {
		w.Nat(uint64(r.ServiceID)).Blob(r.Payload).Nat(uint64(r.GasLimit))
	}
	return w.Bytes()
}

// invokeEntry runs one PVM invocation of service's code (loaded from its
// own preimage store, keyed by its code hash) with the given gas and
// encoded inputs, dispatching host calls through an ImplicationsContext,
// and returns the resulting State per spec §4.8 steps 2-6: halt commits
// imX, any other terminal status rolls back to imY.
func invokeEntry(state *State, service uint32, slot uint64, inputs []byte, gas int64) *State {
	acc, ok := state.Accounts[service]
	if !ok {
		return state // spec §4.8 step 1: absent account -> no-op
	}
	code, ok := acc.Preimages[acc.CodeHash]
	if !ok {
		return state // no executable code available for this account
	}
	prog, err := pvm.Parse(code)
	if err != nil {
		return state
	}

	ctx := NewImplicationsContext(state, service, slot)
	it := pvm.New(prog, gas)
	ctx.Bind(it)
	it.Memory.WriteBytes(inputAddr, inputs)
	it.Regs[pvm.A0] = inputAddr
	it.Regs[pvm.A1] = uint64(len(inputs))

	it.Run(1<<24, func(inner *pvm.Interpreter) {
		hostcall.Dispatch(ctx, inner)
	})

	metrics.ServicesInvoked.Inc()
	metrics.GasConsumed.Add(gas - it.Gas)

	switch it.Status {
	case pvm.StatusHalt:
		logger.Debug("accumulate invocation halted", "service", service, "slot", slot)
		return ctx.Commit()
	default: // panic, out-of-gas, fault
		metrics.InvocationsRolledBack.Inc()
		logger.Warn("accumulate invocation rolled back", "service", service, "slot", slot, "status", it.Status)
		return ctx.Rollback()
	}
}

// Accumulate folds one timeslot's batch of reports into state (spec
// §4.8). Reports must already be grouped canonically; Accumulate
// re-sorts by service id ascending to guarantee determinism regardless
// of caller-supplied order.
func Accumulate(state *State, slot uint64, reports []Report) *State {
	timer := metrics.NewTimer(metrics.AccumulationTime)
	defer func() {
		metrics.AccumulationSlot.Set(int64(slot))
		timer.Stop()
	}()

	sort.Slice(reports, func(i, j int) bool { return reports[i].ServiceID < reports[j].ServiceID })

	for _, r := range reports {
		var gasSum int64
		for _, res := range r.Results {
			gasSum += res.GasLimit
		}
		inputs := encodeInputs(r.ServiceID, slot, r.Results)
		state = invokeEntry(state, r.ServiceID, slot, inputs, gasSum)
	}

	state = dispatchDeferredTransfers(state, slot)
	state = applyPreimageProvisions(state, slot)
	state = runAlwaysAccess(state, slot)

	return state
}

// dispatchDeferredTransfers fires on_transfer for every transfer
// enqueued this timeslot, in enqueue order (spec §4.8 "Deferred
// transfers"). Transfers enqueued by on_transfer itself are deferred to
// the next timeslot by construction: Accumulate only drains
// state.Transfers once, here, after all regular accumulations.
func dispatchDeferredTransfers(state *State, slot uint64) *State {
	pending := state.Transfers
	state.Transfers = nil

	for _, tr := range pending {
		dest, ok := state.Accounts[tr.Dest]
		if !ok {
			continue
		}
		dest.AddBalance(tr.Amount)
		w := codec.NewWriter()
		w.Nat(uint64(tr.From)).Nat(tr.Amount)
		inputs := w.Bytes()
		state = invokeEntry(state, tr.Dest, slot, inputs, tr.Gas)
	}
	return state
}

// applyPreimageProvisions moves each queued provision's matching
// request from empty to partial (spec §4.8 "Preimage provisioning").
func applyPreimageProvisions(state *State, slot uint64) *State {
	pending := state.Provisions
	state.Provisions = nil
	for _, p := range pending {
		acc, ok := state.Accounts[p.Service]
		if !ok {
			continue
		}
		acc.Provide(blake2b.Sum256(p.Blob), p.Blob, slot)
	}
	return state
}

// runAlwaysAccess invokes accumulate with an empty result list for every
// (service, gas) pair in privileged.always_access (spec §4.8
// "Always-access services"), even when the service has no reports this
// timeslot.
func runAlwaysAccess(state *State, slot uint64) *State {
	ids := make([]uint32, 0, len(state.Privileged.AlwaysAccess))
	for id := range state.Privileged.AlwaysAccess {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		gas := state.Privileged.AlwaysAccess[id]
		inputs := encodeInputs(id, slot, nil)
		state = invokeEntry(state, id, slot, inputs, gas)
	}
	return state
}
