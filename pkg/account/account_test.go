package account

import "testing"

func TestMinBalanceInvariant(t *testing.T) {
	a := New(Hash{}, 1000)
	a.SetStorage("k", []byte("v"))
	if !a.Solvent() {
		t.Fatalf("account with balance 1000 should be solvent, min_balance=%d", a.MinBalance())
	}
	if err := a.SubBalance(1000); err == nil {
		t.Fatal("draining balance below min_balance should fail")
	}
	if !a.Solvent() {
		t.Fatal("failed SubBalance must not leave account insolvent")
	}
}

func TestPreimageLifecycle(t *testing.T) {
	a := New(Hash{}, 1_000_000)
	var h Hash
	h[0] = 0xAB

	if err := a.Solicit(h, 3, 10); err != nil {
		t.Fatalf("solicit on absent request: %v", err)
	}
	req := a.Requests[RequestKey{Hash: h, Length: 3}]
	if req.State() != StateEmpty {
		t.Fatalf("state after solicit = %v, want empty", req.State())
	}

	if err := a.Provide(h, []byte("abc"), 11); err != nil {
		t.Fatalf("provide: %v", err)
	}
	if req.State() != StatePartial {
		t.Fatalf("state after provide = %v, want partial", req.State())
	}

	if err := a.Forget(h, 3, 12, 19_200); err == nil {
		t.Fatal("forget on a partial request before expiry should huh")
	}
	if req.State() != StatePartial {
		t.Fatalf("state after huh'd forget = %v, want unchanged partial", req.State())
	}

	if err := a.Forget(h, 3, 11+19_200, 19_200); err != nil {
		t.Fatalf("forget on a partial request after expiry: %v", err)
	}
	if _, exists := a.Requests[RequestKey{Hash: h, Length: 3}]; exists {
		t.Fatal("forget past expiry should remove the request")
	}
	if _, exists := a.Preimages[h]; exists {
		t.Fatal("forget past expiry should remove the stored preimage")
	}
}

func TestForgetEmptyRemoves(t *testing.T) {
	a := New(Hash{}, 1000)
	var h Hash
	if err := a.Solicit(h, 5, 1); err != nil {
		t.Fatalf("solicit: %v", err)
	}
	if err := a.Forget(h, 5, 2, 19_200); err != nil {
		t.Fatalf("forget empty: %v", err)
	}
	if _, exists := a.Requests[RequestKey{Hash: h, Length: 5}]; exists {
		t.Fatal("forget on empty request should remove it")
	}
}

func TestAccountCloneIsIndependent(t *testing.T) {
	a := New(Hash{}, 500)
	a.SetStorage("x", []byte{1, 2, 3})
	clone := a.Clone()
	clone.SetStorage("x", []byte{9, 9, 9})
	if string(a.Storage["x"]) == string(clone.Storage["x"]) {
		t.Fatal("clone must not alias the original's storage")
	}
}

func TestRevertTo(t *testing.T) {
	a := New(Hash{}, 500)
	snap := a.Snapshot()
	a.AddBalance(100)
	a.SetStorage("k", []byte("v"))
	a.RevertTo(snap)
	if a.Balance != 500 {
		t.Fatalf("balance after revert = %d, want 500", a.Balance)
	}
	if _, exists := a.Storage["k"]; exists {
		t.Fatal("storage write should have been reverted")
	}
}
