package accumulate

import (
	"testing"

	"github.com/rotkonetworks/romio-sub004/pkg/account"
)

func TestAccumulateSkipsAbsentAccount(t *testing.T) {
	state := NewState()
	reports := []Report{{ServiceID: 42, Results: []WorkResult{{ServiceID: 42, GasLimit: 100}}}}
	out := Accumulate(state, 1, reports)
	if len(out.Accounts) != 0 {
		t.Fatalf("accumulate on an absent account must be a no-op, got %d accounts", len(out.Accounts))
	}
}

func TestAccumulateHaltCommits(t *testing.T) {
	blob := buildHaltProgram()
	hash := codeHashOf(blob)

	state := NewState()
	a := account.New(hash, 1_000_000)
	a.Preimages[hash] = blob
	state.Accounts[7] = a

	reports := []Report{{ServiceID: 7, Results: []WorkResult{{ServiceID: 7, GasLimit: 1000}}}}
	out := Accumulate(state, 1, reports)

	if _, ok := out.Accounts[7]; !ok {
		t.Fatal("account should still exist after a halting accumulate")
	}
}

func TestAccumulateTrapRollsBack(t *testing.T) {
	blob := buildTrapProgram()
	hash := codeHashOf(blob)

	state := NewState()
	a := account.New(hash, 1_000_000)
	a.Preimages[hash] = blob
	a.SetStorage("untouched", []byte("1"))
	state.Accounts[7] = a

	reports := []Report{{ServiceID: 7, Results: []WorkResult{{ServiceID: 7, GasLimit: 1000}}}}
	out := Accumulate(state, 1, reports)

	got := out.Accounts[7]
	if string(got.Storage["untouched"]) != "1" {
		t.Fatal("a panicking accumulate must roll back to the checkpoint, not corrupt prior state")
	}
}

func TestAlwaysAccessRunsWithoutReports(t *testing.T) {
	blob := buildHaltProgram()
	hash := codeHashOf(blob)

	state := NewState()
	a := account.New(hash, 1_000_000)
	a.Preimages[hash] = blob
	state.Accounts[9] = a
	state.Privileged.AlwaysAccess[9] = 500

	out := Accumulate(state, 1, nil)
	if _, ok := out.Accounts[9]; !ok {
		t.Fatal("always-access service must still be present after its forced invocation")
	}
}
